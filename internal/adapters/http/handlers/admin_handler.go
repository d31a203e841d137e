package handlers

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"student-portal/internal/adapters/http/middleware"
	"student-portal/internal/core/domain"
	"student-portal/internal/core/services"
	"student-portal/internal/pkg/pagination"
	"student-portal/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler handles privileged user and roster endpoints
type AdminHandler struct {
	roles  *services.RoleAdminService
	roster *services.RosterService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(roles *services.RoleAdminService, roster *services.RosterService) *AdminHandler {
	return &AdminHandler{roles: roles, roster: roster}
}

// PromoteRequest represents promote request body
type PromoteRequest struct {
	Email string `json:"email"`
}

// DemoteRequest represents demote request body
type DemoteRequest struct {
	UserID uint `json:"userId"`
}

// StatusRequest represents status request body
type StatusRequest struct {
	UserID   uint  `json:"userId"`
	IsActive *bool `json:"isActive"`
}

// ReconcileRequest represents a JSON reconciliation batch
type ReconcileRequest struct {
	Rows []services.RosterRow `json:"rows"`
}

// Promote handles student to admin promotion (Super admin only)
// @Summary Promote user to admin
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body PromoteRequest true "Target email"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/users/promote [patch]
func (h *AdminHandler) Promote(c *fiber.Ctx) error {
	var req PromoteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.roles.Promote(c.UserContext(), middleware.ClaimsFrom(c), req.Email)
	if err != nil {
		return response.FromError(c, err, "Failed to promote user")
	}

	return response.Success(c, "User promoted to admin", user.ToResponse())
}

// Demote handles admin to student demotion (Super admin only)
// @Summary Demote user to student
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body DemoteRequest true "Target user ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/users/demote [patch]
func (h *AdminHandler) Demote(c *fiber.Ctx) error {
	var req DemoteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.UserID == 0 {
		return response.BadRequest(c, "userId is required")
	}

	user, err := h.roles.Demote(c.UserContext(), middleware.ClaimsFrom(c), req.UserID)
	if err != nil {
		return response.FromError(c, err, "Failed to demote user")
	}

	return response.Success(c, "User demoted to student", user.ToResponse())
}

// SetStatus handles suspending and reinstating users (Super admin only)
// @Summary Set user active flag
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body StatusRequest true "Target user and flag"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/users/status [patch]
func (h *AdminHandler) SetStatus(c *fiber.Ctx) error {
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.UserID == 0 || req.IsActive == nil {
		return response.BadRequest(c, "userId and isActive are required")
	}

	user, err := h.roles.SetActive(c.UserContext(), middleware.ClaimsFrom(c), req.UserID, *req.IsActive)
	if err != nil {
		return response.FromError(c, err, "Failed to update user status")
	}

	msg := "User suspended"
	if user.IsActive {
		msg = "User reinstated"
	}
	return response.Success(c, msg, user.ToResponse())
}

// ListUsers handles listing users (Admin only)
// @Summary List users
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param role query string false "Role filter"
// @Success 200 {object} response.Response
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	users, total, err := h.roles.ListUsers(c.UserContext(), middleware.ClaimsFrom(c), services.ListUsersInput{
		Role:   domain.Role(c.Query("role")),
		Offset: params.Offset,
		Limit:  params.Limit,
	})
	if err != nil {
		return response.FromError(c, err, "Failed to list users")
	}

	return response.Success(c, "Users retrieved successfully", pagination.NewPage(users, params, total))
}

// ReconcileRoster bulk upserts roster rows from JSON or CSV (Super admin only)
// @Summary Reconcile student roster
// @Tags Admin
// @Accept json,text/csv,multipart/form-data
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/roster/reconcile [post]
func (h *AdminHandler) ReconcileRoster(c *fiber.Ctx) error {
	rows, err := h.readRosterRows(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	if len(rows) == 0 {
		return response.BadRequest(c, "No roster rows provided")
	}

	result, err := h.roster.ReconcileRoster(c.UserContext(), rows)
	if err != nil {
		return response.FromError(c, err, "Failed to reconcile roster")
	}

	return response.Success(c, "Roster reconciled", result)
}

func (h *AdminHandler) readRosterRows(c *fiber.Ctx) ([]services.RosterRow, error) {
	contentType := strings.ToLower(c.Get(fiber.HeaderContentType))

	switch {
	case strings.HasPrefix(contentType, fiber.MIMEMultipartForm):
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, errors.New("multipart upload requires a 'file' field")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, errors.New("cannot read uploaded file")
		}
		defer f.Close()
		return ParseRosterCSV(f)

	case strings.HasPrefix(contentType, "text/csv"):
		return ParseRosterCSV(strings.NewReader(string(c.Body())))
	}

	// JSON: {"rows": [...]} or a bare array
	body := strings.TrimSpace(string(c.Body()))
	if strings.HasPrefix(body, "[") {
		var rows []services.RosterRow
		if err := c.BodyParser(&rows); err != nil {
			return nil, errors.New("invalid request body")
		}
		return rows, nil
	}
	var req ReconcileRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, errors.New("invalid request body")
	}
	return req.Rows, nil
}

// rosterColumns maps accepted CSV header spellings onto row fields
var rosterColumns = map[string]string{
	"name":          "name",
	"fullname":      "name",
	"email":         "email",
	"matricnumber":  "matric",
	"matric_number": "matric",
	"matric":        "matric",
	"department":    "department",
	"level":         "level",
	"member":        "member",
	"ismember":      "member",
}

// ParseRosterCSV reads a roster export with a header row.
// The member column is passed through as text and decoded per row.
func ParseRosterCSV(r io.Reader) ([]services.RosterRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.New("invalid CSV header")
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		if field, ok := rosterColumns[key]; ok {
			index[field] = i
		}
	}
	if _, ok := index["email"]; !ok {
		return nil, errors.New("CSV header must include email")
	}
	if _, ok := index["matric"]; !ok {
		return nil, errors.New("CSV header must include matricNumber")
	}

	get := func(rec []string, field string) string {
		i, ok := index[field]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []services.RosterRow
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.New("malformed CSV: " + err.Error())
		}
		rows = append(rows, services.RosterRow{
			Name:         get(rec, "name"),
			Email:        get(rec, "email"),
			MatricNumber: get(rec, "matric"),
			Department:   get(rec, "department"),
			Level:        get(rec, "level"),
			Member:       get(rec, "member"),
		})
	}
	return rows, nil
}

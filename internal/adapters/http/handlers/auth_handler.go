package handlers

import (
	"strings"
	"time"

	"student-portal/internal/adapters/http/middleware"
	"student-portal/internal/core/services"
	"student-portal/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// CookieOptions controls the session cookie
type CookieOptions struct {
	Name     string
	Secure   bool
	SameSite string
	Domain   string
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	registration *services.RegistrationService
	credentials  *services.CredentialService
	roster       *services.RosterService
	otp          *services.OTPService
	sessions     *services.SessionService
	cookie       CookieOptions
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	registration *services.RegistrationService,
	credentials *services.CredentialService,
	roster *services.RosterService,
	otp *services.OTPService,
	sessions *services.SessionService,
	cookie CookieOptions,
) *AuthHandler {
	return &AuthHandler{
		registration: registration,
		credentials:  credentials,
		roster:       roster,
		otp:          otp,
		sessions:     sessions,
		cookie:       cookie,
	}
}

// RegisterRequest represents registration request body
type RegisterRequest struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	MatricNumber string `json:"matricNumber"`
	Password     string `json:"password"`
}

// EmailRequest carries a single email
type EmailRequest struct {
	Email string `json:"email"`
}

// VerifyOTPRequest represents verify-otp request body
type VerifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// RosterCheckRequest represents a roster lookup
type RosterCheckRequest struct {
	Email        string `json:"email"`
	MatricNumber string `json:"matricNumber"`
}

// LoginRequest represents login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles student registration
// @Summary Register new student
// @Description Create a student account after roster and email verification
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "Registration data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.registration.Register(c.UserContext(), &services.RegisterInput{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        strings.TrimSpace(req.Email),
		MatricNumber: strings.TrimSpace(req.MatricNumber),
		Password:     req.Password,
	})
	if err != nil {
		return response.FromError(c, err, "Failed to register user")
	}

	return response.Created(c, "User registered successfully", user.ToResponse())
}

// SendOTP issues a verification code to an email
// @Summary Send verification code
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body EmailRequest true "Email"
// @Success 200 {object} response.Response
// @Failure 429 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /auth/send-otp [post]
func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var req EmailRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.otp.Issue(c.UserContext(), req.Email)
	if err != nil {
		return response.FromError(c, err, "Failed to send verification code")
	}

	return response.Success(c, "Verification code sent", result)
}

// VerifyOTP consumes a verification code
// @Summary Verify code
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body VerifyOTPRequest true "Email and code"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 410 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /auth/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req VerifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.otp.Verify(c.UserContext(), req.Email, req.Code); err != nil {
		return response.FromError(c, err, "Failed to verify code")
	}

	return response.Success(c, "Email verified", fiber.Map{"verified": true})
}

// VerifyMembership checks roster membership
// @Summary Roster membership check
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body RosterCheckRequest true "Email and matric number"
// @Success 200 {object} response.Response
// @Router /auth/verify-membership [post]
func (h *AuthHandler) VerifyMembership(c *fiber.Ctx) error {
	var req RosterCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.roster.VerifyMembership(c.UserContext(), req.Email, req.MatricNumber)
	if err != nil {
		return response.FromError(c, err, "Failed to verify membership")
	}

	return response.Success(c, "", result)
}

// VerifyStudentship checks roster identity
// @Summary Roster identity check
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body RosterCheckRequest true "Email and matric number"
// @Success 200 {object} response.Response
// @Router /auth/verify-studentship [post]
func (h *AuthHandler) VerifyStudentship(c *fiber.Ctx) error {
	var req RosterCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.roster.VerifyStudentship(c.UserContext(), req.Email, req.MatricNumber)
	if err != nil {
		return response.FromError(c, err, "Failed to verify studentship")
	}

	return response.Success(c, "", result)
}

// CheckStatus reports whether an account exists and is active.
// This intentionally discloses existence.
// @Summary Account status
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body EmailRequest true "Email"
// @Success 200 {object} response.Response
// @Router /auth/check-status [post]
func (h *AuthHandler) CheckStatus(c *fiber.Ctx) error {
	var req EmailRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	status, err := h.credentials.CheckExists(c.UserContext(), req.Email)
	if err != nil {
		return response.FromError(c, err, "Failed to check status")
	}

	return response.Success(c, "", status)
}

// Login handles user login
// @Summary Login user
// @Description Authenticate and set a 30 minute session cookie
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	session, err := h.sessions.Login(c.UserContext(), &services.LoginInput{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		return response.FromError(c, err, "Failed to login")
	}

	h.setSessionCookie(c, session.Token, session.ExpiresAt)

	return response.Success(c, "Login successful", session)
}

// Logout clears the session cookie. Sessions are stateless, so an already
// copied token stays valid until it expires.
// @Summary Logout
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.clearSessionCookie(c)
	return response.Success(c, "Logout successful", nil)
}

// Session returns the resolved session claims
// @Summary Current session
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	return response.Success(c, "", middleware.ClaimsFrom(c))
}

// ============================================================
// Cookie helpers
// ============================================================

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Domain:   h.cookie.Domain,
		Expires:  expiresAt,
		MaxAge:   int(h.sessions.TTL().Seconds()),
		Secure:   h.cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cookie.SameSite,
	})
}

func (h *AuthHandler) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Domain:   h.cookie.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   h.cookie.Secure,
		HTTPOnly: true,
		SameSite: h.cookie.SameSite,
	})
}

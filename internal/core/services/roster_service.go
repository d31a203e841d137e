package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"student-portal/internal/adapters/persistence/models"
	"student-portal/internal/adapters/persistence/repositories"
	"student-portal/internal/core/domain"
	"student-portal/internal/pkg/logger"
	"student-portal/internal/pkg/metrics"
)

// RosterService matches claimed identities against the student roster
type RosterService struct {
	roster  repositories.RosterRepository
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewRosterService creates a new roster service
func NewRosterService(roster repositories.RosterRepository, log *logger.Logger, m *metrics.Metrics) *RosterService {
	return &RosterService{roster: roster, log: log, metrics: m}
}

// MembershipResult is the outcome of a membership lookup.
// Matched=false means the roster has no such pair, which is inconclusive
// rather than a non-member answer.
type MembershipResult struct {
	Matched  bool `json:"matched"`
	IsMember bool `json:"isMember"`
}

// StudentshipResult reports whether the pair is a known student
type StudentshipResult struct {
	Matched bool `json:"matched"`
}

// RosterRow is one inbound reconciliation row.
// Member accepts bool, string or numeric encodings.
type RosterRow struct {
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	MatricNumber string      `json:"matricNumber"`
	Department   string      `json:"department"`
	Level        string      `json:"level"`
	Member       interface{} `json:"member"`
}

// RowError describes a skipped reconciliation row
type RowError struct {
	Row    int    `json:"row"`
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason"`
}

// ReconcileResult summarises a reconciliation batch
type ReconcileResult struct {
	Upserted int        `json:"upserted"`
	Errors   []RowError `json:"errors"`
}

func (s *RosterService) lookup(ctx context.Context, email, matric string) (*models.StudentRosterEntry, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validateMatric(matric); err != nil {
		return nil, err
	}
	entry, err := s.roster.FindByEmailAndMatric(ctx, email, matric)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil
		}
		return nil, storeError("roster lookup", err)
	}
	return entry, nil
}

// VerifyMembership matches email and matric number and reports membership
func (s *RosterService) VerifyMembership(ctx context.Context, email, matric string) (*MembershipResult, error) {
	entry, err := s.lookup(ctx, email, matric)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return &MembershipResult{}, nil
	}
	return &MembershipResult{Matched: true, IsMember: entry.Member}, nil
}

// VerifyStudentship reports whether the pair matches any roster entry
func (s *RosterService) VerifyStudentship(ctx context.Context, email, matric string) (*StudentshipResult, error) {
	entry, err := s.lookup(ctx, email, matric)
	if err != nil {
		return nil, err
	}
	return &StudentshipResult{Matched: entry != nil}, nil
}

// ReconcileRoster upserts rows keyed by email. Bad rows are skipped and
// reported; only a store outage aborts the batch.
func (s *RosterService) ReconcileRoster(ctx context.Context, rows []RosterRow) (*ReconcileResult, error) {
	result := &ReconcileResult{Errors: []RowError{}}

	for i, row := range rows {
		rowNum := i + 1
		email := domain.NormalizeEmail(row.Email)
		matric := domain.NormalizeMatric(row.MatricNumber)

		if email == "" || matric == "" {
			result.Errors = append(result.Errors, RowError{Row: rowNum, Email: email, Reason: "email and matricNumber are required"})
			continue
		}
		member, err := ParseMemberFlag(row.Member)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNum, Email: email, Reason: err.Error()})
			continue
		}

		entry := &models.StudentRosterEntry{
			Name:         strings.TrimSpace(row.Name),
			Email:        email,
			MatricNumber: matric,
			Department:   strings.TrimSpace(row.Department),
			Level:        strings.TrimSpace(row.Level),
			Member:       member,
		}
		if err := s.roster.Upsert(ctx, entry); err != nil {
			if errors.Is(err, domain.ErrServiceUnavailable) || ctx.Err() != nil {
				return nil, err
			}
			s.log.Warn("roster row upsert failed", "row", rowNum, "email", email, "error", err)
			result.Errors = append(result.Errors, RowError{Row: rowNum, Email: email, Reason: "failed to save row"})
			continue
		}
		result.Upserted++
	}

	s.metrics.RosterRows("upserted", result.Upserted)
	s.metrics.RosterRows("skipped", len(result.Errors))
	s.log.Info("roster reconciled", "upserted", result.Upserted, "skipped", len(result.Errors))
	return result, nil
}

// ParseMemberFlag decodes the heterogeneous membership encodings found in
// roster exports. Missing values mean not a member.
func ParseMemberFlag(v interface{}) (bool, error) {
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case float64:
		return t != 0, nil
	case int:
		return t != 0, nil
	case int64:
		return t != 0, nil
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		switch s {
		case "":
			return false, nil
		case "yes", "y":
			return true, nil
		case "no", "n":
			return false, nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("invalid member flag %q", t)
		}
		return b, nil
	}
	return false, fmt.Errorf("invalid member flag type %T", v)
}

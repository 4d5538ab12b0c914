// Package service handles project registration and lookup. Projects are the
// aggregate root the evidence pool and report versions hang off; the legal
// lock flag is flipped by report generation, never through this surface.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"attest/internal/project"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	"attest/pkg/platform/sentinel"
	"attest/pkg/requestcontext"
)

// AuditPublisher receives compliance events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates project management.
type Service struct {
	store          project.Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// New constructs a Service.
func New(store project.Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a project.
func (s *Service) Create(ctx context.Context, name, referenceNumber, responsibleParty string) (*project.Project, error) {
	name = strings.TrimSpace(name)

	p, err := project.NewProject(id.NewProjectID(), name, referenceNumber, responsibleParty, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "project already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create project")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, string(audit.EventProjectCreated),
			"project_id", p.ID, "log_type", "audit")
	}
	if s.auditPublisher != nil {
		_ = s.auditPublisher.Emit(ctx, audit.Event{
			Category:  audit.CategoryCompliance,
			Timestamp: requestcontext.Now(ctx),
			UserID:    requestcontext.UserID(ctx),
			ProjectID: p.ID.String(),
			Action:    string(audit.EventProjectCreated),
			RequestID: requestcontext.RequestID(ctx),
			ClientIP:  requestcontext.ClientIP(ctx),
			UserAgent: requestcontext.UserAgent(ctx),
		})
	}
	return p, nil
}

// Get loads one project.
func (s *Service) Get(ctx context.Context, projectID id.ProjectID) (*project.Project, error) {
	p, err := s.store.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "project not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load project")
	}
	return p, nil
}

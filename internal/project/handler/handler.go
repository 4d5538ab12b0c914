// Package handler exposes project registration over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"attest/internal/platform/middleware"
	"attest/internal/project"
	"attest/internal/transport/http/shared"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// Service defines the project operations the transport needs.
type Service interface {
	Create(ctx context.Context, name, referenceNumber, responsibleParty string) (*project.Project, error)
	Get(ctx context.Context, projectID id.ProjectID) (*project.Project, error)
}

// Handler handles project endpoints.
type Handler struct {
	logger       *slog.Logger
	projects     Service
	jwtValidator middleware.JWTValidator
}

// New creates a new project Handler.
func New(svc Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{logger: logger, projects: svc, jwtValidator: jwtValidator}
}

// Register registers the project routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(router chi.Router) {
		router.Use(middleware.Recovery(h.logger))
		router.Use(middleware.RequestID)
		router.Use(middleware.Logger(h.logger))
		router.Use(middleware.Timeout(15 * time.Second))
		router.Use(middleware.RequestTime)
		router.Use(middleware.ClientMetadata)
		router.Use(middleware.ContentTypeJSON)
		router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		router.Post("/projects", h.handleCreate)
		router.Get("/projects/{projectID}", h.handleGet)
	})
}

type createRequest struct {
	Name             string `json:"name"`
	ReferenceNumber  string `json:"reference_number"`
	ResponsibleParty string `json:"responsible_party"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	p, err := h.projects.Create(ctx, req.Name, req.ReferenceNumber, req.ResponsibleParty)
	if err != nil {
		h.logger.WarnContext(ctx, "create project failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, err := id.ParseProjectID(chi.URLParam(r, "projectID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	p, err := h.projects.Get(ctx, projectID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, p)
}

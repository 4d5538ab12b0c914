// Package handler exposes evidence management over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"attest/internal/evidence"
	"attest/internal/evidence/service"
	"attest/internal/platform/middleware"
	"attest/internal/transport/http/shared"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// Service defines the evidence operations the transport needs.
type Service interface {
	Create(ctx context.Context, projectID id.ProjectID, input service.CreateInput) (*evidence.Item, error)
	BackfillFromSource(ctx context.Context, projectID id.ProjectID, entries []evidence.SourceEntry) (int, error)
	SetInclusion(ctx context.Context, evidenceID id.EvidenceID, include bool) (*evidence.Item, error)
	Annotate(ctx context.Context, evidenceID id.EvidenceID, title, description string) (*evidence.Item, error)
	SoftDelete(ctx context.Context, evidenceID id.EvidenceID) (*evidence.Item, error)
	Get(ctx context.Context, evidenceID id.EvidenceID) (*evidence.Item, error)
	List(ctx context.Context, projectID id.ProjectID, activeOnly bool) ([]*evidence.Item, error)
}

// Handler handles evidence endpoints.
type Handler struct {
	logger       *slog.Logger
	evidence     Service
	jwtValidator middleware.JWTValidator
}

// New creates a new evidence Handler.
func New(svc Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{logger: logger, evidence: svc, jwtValidator: jwtValidator}
}

// Register registers the evidence routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(router chi.Router) {
		router.Use(middleware.Recovery(h.logger))
		router.Use(middleware.RequestID)
		router.Use(middleware.Logger(h.logger))
		router.Use(middleware.Timeout(30 * time.Second))
		router.Use(middleware.RequestTime)
		router.Use(middleware.ClientMetadata)
		router.Use(middleware.ContentTypeJSON)
		router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		router.Post("/projects/{projectID}/evidence", h.handleCreate)
		router.Post("/projects/{projectID}/evidence/backfill", h.handleBackfill)
		router.Get("/projects/{projectID}/evidence", h.handleList)
		router.Get("/evidence/{evidenceID}", h.handleGet)
		router.Patch("/evidence/{evidenceID}", h.handleAnnotate)
		router.Put("/evidence/{evidenceID}/inclusion", h.handleSetInclusion)
		router.Delete("/evidence/{evidenceID}", h.handleDelete)
	})
}

type createRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	FileRef         string `json:"file_ref"`
	SourceEntryID   string `json:"source_entry_id"`
	IncludeInReport bool   `json:"include_in_report"`
}

type backfillRequest struct {
	Entries []backfillEntry `json:"entries"`
}

type backfillEntry struct {
	ID                     string    `json:"id"`
	CreatedAt              time.Time `json:"created_at"`
	Content                string    `json:"content"`
	FileRef                string    `json:"file_ref"`
	IncludeInReportDefault bool      `json:"include_in_report_default"`
}

type backfillResponse struct {
	Created int `json:"created"`
}

type inclusionRequest struct {
	IncludeInReport bool `json:"include_in_report"`
}

type annotateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, err := id.ParseProjectID(chi.URLParam(r, "projectID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	item, err := h.evidence.Create(ctx, projectID, service.CreateInput{
		Title:           req.Title,
		Description:     req.Description,
		FileRef:         req.FileRef,
		SourceEntryID:   req.SourceEntryID,
		IncludeInReport: req.IncludeInReport,
	})
	if err != nil {
		h.logFailure(ctx, "create evidence", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleBackfill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, err := id.ParseProjectID(chi.URLParam(r, "projectID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req backfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	entries := make([]evidence.SourceEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, evidence.SourceEntry{
			ID:                     e.ID,
			CreatedAt:              e.CreatedAt,
			Content:                e.Content,
			FileRef:                e.FileRef,
			IncludeInReportDefault: e.IncludeInReportDefault,
		})
	}

	created, err := h.evidence.BackfillFromSource(ctx, projectID, entries)
	if err != nil {
		h.logFailure(ctx, "backfill evidence", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, backfillResponse{Created: created})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, err := id.ParseProjectID(chi.URLParam(r, "projectID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	activeOnly := r.URL.Query().Get("include_deleted") != "true"

	items, err := h.evidence.List(ctx, projectID, activeOnly)
	if err != nil {
		h.logFailure(ctx, "list evidence", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	item, err := h.evidence.Get(ctx, evidenceID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req annotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	item, err := h.evidence.Annotate(ctx, evidenceID, req.Title, req.Description)
	if err != nil {
		h.logFailure(ctx, "annotate evidence", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) handleSetInclusion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req inclusionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	item, err := h.evidence.SetInclusion(ctx, evidenceID, req.IncludeInReport)
	if err != nil {
		h.logFailure(ctx, "set evidence inclusion", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if _, err := h.evidence.SoftDelete(ctx, evidenceID); err != nil {
		h.logFailure(ctx, "delete evidence", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logFailure(ctx context.Context, action string, err error) {
	level := slog.LevelWarn
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, "evidence request failed",
		"action", action,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
}

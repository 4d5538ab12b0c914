// Package handler exposes draft editing and the report lifecycle over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"attest/internal/platform/middleware"
	"attest/internal/report"
	"attest/internal/report/service"
	"attest/internal/transport/http/shared"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// Service defines the report operations the transport needs.
type Service interface {
	UpdateDraft(ctx context.Context, projectID id.ProjectID, content report.DraftContent) (*report.Draft, error)
	GetDraft(ctx context.Context, projectID id.ProjectID) (*report.Draft, error)
	Generate(ctx context.Context, projectID id.ProjectID) (*service.GenerateResult, error)
	Render(ctx context.Context, reportID id.ReportID) (*service.RenderResult, error)
	GetVersion(ctx context.Context, reportID id.ReportID) (*report.Instance, error)
	ListVersions(ctx context.Context, projectID id.ProjectID) ([]*report.Instance, error)
	ListCitedEvidence(ctx context.Context, reportID id.ReportID) ([]report.EvidenceSnapshot, error)
	Archive(ctx context.Context, reportID id.ReportID) (*report.Instance, error)
	MarkBackupDownloaded(ctx context.Context, reportID id.ReportID) (*report.Instance, error)
}

// Handler handles report endpoints.
type Handler struct {
	logger       *slog.Logger
	reports      Service
	jwtValidator middleware.JWTValidator
}

// New creates a new report Handler.
func New(svc Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{logger: logger, reports: svc, jwtValidator: jwtValidator}
}

// Register registers the report routes with the chi router. Generation and
// rendering can be slow, so this group gets a wider timeout than the rest
// of the API.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(router chi.Router) {
		router.Use(middleware.Recovery(h.logger))
		router.Use(middleware.RequestID)
		router.Use(middleware.Logger(h.logger))
		router.Use(middleware.Timeout(2 * time.Minute))
		router.Use(middleware.RequestTime)
		router.Use(middleware.ClientMetadata)
		router.Use(middleware.ContentTypeJSON)
		router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		router.Put("/projects/{projectID}/draft", h.handleUpdateDraft)
		router.Get("/projects/{projectID}/draft", h.handleGetDraft)
		router.Post("/projects/{projectID}/reports", h.handleGenerate)
		router.Get("/projects/{projectID}/reports", h.handleListVersions)
		router.Get("/reports/{reportID}", h.handleGetVersion)
		router.Get("/reports/{reportID}/evidence", h.handleListCitedEvidence)
		router.Post("/reports/{reportID}/render", h.handleRender)
		router.Post("/reports/{reportID}/archive", h.handleArchive)
		router.Post("/reports/{reportID}/backup-downloaded", h.handleBackupDownloaded)
	})
}

type draftRequest struct {
	Summary           string `json:"summary"`
	LegalAnalysis     string `json:"legal_analysis"`
	TechnicalAnalysis string `json:"technical_analysis"`
	Conclusions       string `json:"conclusions"`
}

func (h *Handler) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, err := id.ParseProjectID(chi.URLParam(r, "projectID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	draft, err := h.reports.UpdateDraft(ctx, projectID, report.DraftContent{
		Summary:           req.Summary,
		LegalAnalysis:     req.LegalAnalysis,
		TechnicalAnalysis: req.TechnicalAnalysis,
		Conclusions:       req.Conclusions,
	})
	if err != nil {
		h.logFailure(ctx, "update draft", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, draft)
}

func (h *Handler) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, err := id.ParseProjectID(chi.URLParam(r, "projectID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	draft, err := h.reports.GetDraft(ctx, projectID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, draft)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, err := id.ParseProjectID(chi.URLParam(r, "projectID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	result, err := h.reports.Generate(ctx, projectID)
	if err != nil {
		h.logFailure(ctx, "generate report", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleListVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, err := id.ParseProjectID(chi.URLParam(r, "projectID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	instances, err := h.reports.ListVersions(ctx, projectID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, instances)
}

func (h *Handler) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID, err := id.ParseReportID(chi.URLParam(r, "reportID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	instance, err := h.reports.GetVersion(ctx, reportID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, instance)
}

func (h *Handler) handleListCitedEvidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID, err := id.ParseReportID(chi.URLParam(r, "reportID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	snapshots, err := h.reports.ListCitedEvidence(ctx, reportID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, snapshots)
}

func (h *Handler) handleRender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID, err := id.ParseReportID(chi.URLParam(r, "reportID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	result, err := h.reports.Render(ctx, reportID)
	if err != nil {
		h.logFailure(ctx, "render report", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID, err := id.ParseReportID(chi.URLParam(r, "reportID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	instance, err := h.reports.Archive(ctx, reportID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, instance)
}

func (h *Handler) handleBackupDownloaded(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID, err := id.ParseReportID(chi.URLParam(r, "reportID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	instance, err := h.reports.MarkBackupDownloaded(ctx, reportID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, instance)
}

func (h *Handler) logFailure(ctx context.Context, action string, err error) {
	level := slog.LevelWarn
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, "report request failed",
		"action", action,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
}

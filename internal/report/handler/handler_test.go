package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"attest/internal/evidence"
	"attest/internal/platform/middleware"
	"attest/internal/project"
	"attest/internal/report"
	"attest/internal/report/service"
	"attest/internal/sequence"
	"attest/internal/storage"
	id "attest/pkg/domain"
)

type stubValidator struct{ userID string }

func (v *stubValidator) ValidateToken(string) (*middleware.JWTClaims, error) {
	return &middleware.JWTClaims{UserID: v.userID}, nil
}

type ReportHandlerSuite struct {
	suite.Suite
	server *httptest.Server
	items  *evidence.InMemory
	ctx    context.Context

	projectID id.ProjectID
}

func (s *ReportHandlerSuite) SetupTest() {
	s.ctx = context.Background()
	s.items = evidence.NewInMemory()
	projects := project.NewInMemory()
	counters := sequence.NewInMemory()
	drafts := report.NewInMemoryDraftStore()
	reports := report.NewInMemoryStore()

	p, err := project.NewProject(id.NewProjectID(), "Bryggen 2", "REF-2026-002", "Vest Eiendom AS", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(projects.Create(s.ctx, p))
	s.projectID = p.ID

	tx := service.NewInMemoryTx(projects, counters, s.items, drafts, reports)
	svc := service.New(projects, drafts, reports, tx, storage.NewInMemoryObjectStore("artifacts"), "artifacts")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := chi.NewRouter()
	New(svc, logger, &stubValidator{userID: id.NewProjectID().String()}).Register(router)
	s.server = httptest.NewServer(router)
}

func (s *ReportHandlerSuite) TearDownTest() {
	s.server.Close()
}

func TestReportHandlerSuite(t *testing.T) {
	suite.Run(t, new(ReportHandlerSuite))
}

func (s *ReportHandlerSuite) do(method, path string, body any) *http.Response {
	s.T().Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *ReportHandlerSuite) decode(resp *http.Response, out any) {
	s.T().Helper()
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
}

func (s *ReportHandlerSuite) seedEvidence(number int) {
	s.T().Helper()
	item, err := evidence.NewItem(id.NewEvidenceID(), s.projectID, number, "Photo", "", "files/p.jpg", true, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.items.Create(s.ctx, item))
}

// TestDraftRoundTrip verifies PUT then GET returns the saved content.
func (s *ReportHandlerSuite) TestDraftRoundTrip() {
	resp := s.do(http.MethodPut, "/projects/"+s.projectID.String()+"/draft", map[string]any{
		"summary":        "Water intrusion on the third floor.",
		"legal_analysis": "Maintenance duty breached.",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(http.MethodGet, "/projects/"+s.projectID.String()+"/draft", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var draft report.Draft
	s.decode(resp, &draft)
	s.Equal("Water intrusion on the third floor.", draft.Content.Summary)
	s.Equal("Maintenance duty breached.", draft.Content.LegalAnalysis)
}

// TestGenerateLifecycle exercises generate, list, get, cited evidence,
// render, archive and backup over HTTP.
func (s *ReportHandlerSuite) TestGenerateLifecycle() {
	s.seedEvidence(1)
	s.seedEvidence(2)

	resp := s.do(http.MethodPost, "/projects/"+s.projectID.String()+"/reports", nil)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var generated service.GenerateResult
	s.decode(resp, &generated)
	s.Equal(1, generated.VersionNumber)
	s.Equal(2, generated.EvidenceCount)
	s.True(generated.LegalLockNewly)

	reportID := generated.ReportID.String()

	resp = s.do(http.MethodGet, "/projects/"+s.projectID.String()+"/reports", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var versions []report.Instance
	s.decode(resp, &versions)
	s.Require().Len(versions, 1)

	resp = s.do(http.MethodGet, "/reports/"+reportID+"/evidence", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var cited []report.EvidenceSnapshot
	s.decode(resp, &cited)
	s.Len(cited, 2)

	resp = s.do(http.MethodPost, "/reports/"+reportID+"/render", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var rendered service.RenderResult
	s.decode(resp, &rendered)
	s.Require().NotEmpty(rendered.Artifacts)
	s.Equal("report.html", rendered.Artifacts[0].Name)

	resp = s.do(http.MethodPost, "/reports/"+reportID+"/archive", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var archived report.Instance
	s.decode(resp, &archived)
	s.True(archived.Archived)

	resp = s.do(http.MethodPost, "/reports/"+reportID+"/backup-downloaded", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var fetched report.Instance
	s.decode(resp, &fetched)
	s.True(fetched.BackupDownloaded)
}

// TestGenerateWithoutEvidence verifies the empty-selection failure maps to
// 400.
func (s *ReportHandlerSuite) TestGenerateWithoutEvidence() {
	resp := s.do(http.MethodPost, "/projects/"+s.projectID.String()+"/reports", nil)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal("no_evidence_selected", body.Code)
}

// TestUnknownReport verifies missing reports map to 404.
func (s *ReportHandlerSuite) TestUnknownReport() {
	resp := s.do(http.MethodGet, "/reports/"+id.NewReportID().String(), nil)
	defer resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

// Server entrypoint. main wires configuration, storage backends and module
// services, then runs the HTTP server until interrupted. Business logic
// lives in the internal service packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"attest/internal/document"
	"attest/internal/evidence"
	evidencehandler "attest/internal/evidence/handler"
	evidencemetrics "attest/internal/evidence/metrics"
	evidenceservice "attest/internal/evidence/service"
	"attest/internal/jwttoken"
	"attest/internal/platform/config"
	"attest/internal/platform/httpserver"
	"attest/internal/platform/logger"
	platformmetrics "attest/internal/platform/metrics"
	platformredis "attest/internal/platform/redis"
	"attest/internal/project"
	projecthandler "attest/internal/project/handler"
	projectservice "attest/internal/project/service"
	"attest/internal/report"
	reporthandler "attest/internal/report/handler"
	reportmetrics "attest/internal/report/metrics"
	reportservice "attest/internal/report/service"
	"attest/internal/sequence"
	"attest/internal/storage"
	httptransport "attest/internal/transport/http"
	"attest/pkg/platform/audit"
	auditkafka "attest/pkg/platform/audit/publishers/kafka"
	auditmemory "attest/pkg/platform/audit/store/memory"
	auditpostgres "attest/pkg/platform/audit/store/postgres"
	auditworker "attest/pkg/platform/audit/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores. With a DATABASE_URL the process runs against PostgreSQL;
	// without one everything stays in memory, which is enough for local
	// exploration but loses state on restart.
	var (
		projectStore  project.Store
		evidenceStore evidence.Store
		draftStore    report.DraftStore
		reportStore   report.Store
		auditStore    audit.Store
		evidenceTx    evidenceservice.StoreTx
		reportTx      reportservice.StoreTx
		db            *sql.DB
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("database unreachable", "error", err)
			os.Exit(1)
		}

		projectStore = project.NewPostgres(db)
		evidenceStore = evidence.NewPostgres(db)
		draftStore = report.NewPostgresDraftStore(db)
		reportStore = report.NewPostgres(db)
		auditStore = auditpostgres.New(db)
		evidenceTx = newEvidencePostgresTx(db)
		reportTx = newReportPostgresTx(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		memProjects := project.NewInMemory()
		memCounters := sequence.NewInMemory()
		memItems := evidence.NewInMemory()
		memDrafts := report.NewInMemoryDraftStore()
		memReports := report.NewInMemoryStore()

		projectStore = memProjects
		evidenceStore = memItems
		draftStore = memDrafts
		reportStore = memReports
		auditStore = auditmemory.NewInMemoryStore()
		evidenceTx = evidenceservice.NewInMemoryTx(memItems, memCounters)
		reportTx = reportservice.NewInMemoryTx(memProjects, memCounters, memItems, memDrafts, memReports)
	}

	// Audit pipeline: services emit into the inbox, the worker persists and
	// optionally fans out to Kafka.
	inbox := make(chan audit.Event, 256)
	auditPublisher := audit.NewPublisher(inbox, log)
	workerOpts := []auditworker.Option{}
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := auditkafka.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
		if err != nil {
			log.Error("failed to connect audit kafka sink", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		workerOpts = append(workerOpts, auditworker.WithSink(sink))
	}
	worker := auditworker.NewWorker(auditStore, inbox, log, workerOpts...)
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	// Render guard: shared via Redis when configured, in-process otherwise.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect redis", "error", err)
		os.Exit(1)
	}
	var guard reportservice.RenderGuard = reportservice.NewMemoryRenderGuard()
	if redisClient != nil {
		defer redisClient.Close()
		guard = reportservice.NewRedisRenderGuard(redisClient.Client)
	}

	objects := storage.NewInMemoryObjectStore(cfg.ArtifactBucket)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "attest", "attest-api")
	jwtValidator := jwttoken.NewValidatorAdapter(jwtService)

	projectSvc := projectservice.New(projectStore,
		projectservice.WithLogger(log),
		projectservice.WithAuditPublisher(auditPublisher),
	)
	evidenceSvc := evidenceservice.New(evidenceStore, projectStore, evidenceTx,
		evidenceservice.WithLogger(log),
		evidenceservice.WithMetrics(evidencemetrics.New()),
		evidenceservice.WithAuditPublisher(auditPublisher),
	)
	reportSvc := reportservice.New(projectStore, draftStore, reportStore, reportTx,
		objects, cfg.ArtifactBucket,
		reportservice.WithLogger(log),
		reportservice.WithMetrics(reportmetrics.New()),
		reportservice.WithAuditPublisher(auditPublisher),
		reportservice.WithRenderGuard(guard),
		reportservice.WithRenderer(document.NewRenderer(document.WithSplitBytes(cfg.RenderSplitBytes))),
	)

	health := map[string]httptransport.HealthCheck{}
	if db != nil {
		health["postgres"] = db.PingContext
	}
	if redisClient != nil {
		health["redis"] = redisClient.Health
	}

	router := httptransport.NewRouter(health, platformmetrics.NewHTTP(),
		projecthandler.New(projectSvc, log, jwtValidator),
		evidencehandler.New(evidenceSvc, log, jwtValidator),
		reporthandler.New(reportSvc, log, jwtValidator),
	)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting attest server", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

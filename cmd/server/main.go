package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/apigateway"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/auth"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/configmanagement"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/coreengine/pipeline"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/coreengine/vendoradapters"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/datastore"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/objectstore"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/sessionmanagement"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/telemetry"
)

const (
	evictionInterval = time.Minute
	shutdownTimeout  = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := configmanagement.Loader{}.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Server.LogLevel)
	logger.Info("starting server",
		"port", cfg.Server.Port,
		"transcription_vendor", cfg.Vendors.Transcription,
		"image_vendor", cfg.Vendors.ImageGeneration,
		"caption_vendor", cfg.Vendors.Caption,
		"storage_backend", cfg.Storage.Backend,
	)

	recorder := telemetry.NewRecorder(logger)

	vendors, err := vendoradapters.NewSet(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise vendor adapters", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := vendors.Close(); err != nil {
			logger.Warn("failed to close vendor clients", "error", err)
		}
	}()

	adapters := pipeline.Adapters{
		Transcription: pipeline.NewTranscriptionAdapter(vendors.Transcriber, logger),
		Generation:    pipeline.NewGenerationAdapter(vendors.ImageGenerator),
		Caption:       pipeline.NewCaptionAdapter(vendors.Captioner),
	}

	// Saving is unavailable without storage or a database; the other
	// stages keep working.
	store, err := objectstore.New(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Warn("object store unavailable, saving disabled", "error", err)
	} else {
		adapters.Store = pipeline.NewArtifactStoreAdapter(store, nil, logger)
		defer store.Close()
	}

	var records *datastore.ArtifactRecordStore
	db, err := datastore.InitDB(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Warn("database unavailable, saving disabled", "error", err)
	} else {
		defer db.Close()
		records = datastore.NewArtifactRecordStore(db)
		if err := records.EnsureSchema(ctx); err != nil {
			logger.Error("failed to create schema", "error", err)
			os.Exit(1)
		}
		adapters.Repository = records
	}

	idleAfter := time.Duration(cfg.Pipeline.SessionIdleMinutes) * time.Minute
	manager := sessionmanagement.NewManager(adapters, pipeline.OptionsFromConfig(cfg.Pipeline), idleAfter, logger, recorder)
	go manager.Run(ctx, evictionInterval)

	deps := apigateway.Dependencies{
		Sessions:         sessionmanagement.NewHandlers(manager),
		Auth:             auth.NewAuthenticator(cfg.Admin, logger),
		Telemetry:        recorder,
		ArchitecturePath: cfg.Server.ArchitecturePath,
	}
	if records != nil {
		deps.Records = records
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           apigateway.SetupRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutdown requested, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server terminated with error", "error", err)
		os.Exit(1)
	}

	snapshot := recorder.Snapshot()
	logger.Info("telemetry totals",
		"sessions_created", snapshot.SessionsCreated,
		"records_persisted", snapshot.RecordsPersisted,
		"orphaned_uploads", snapshot.OrphanedUploads,
	)
	logger.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(value string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Package main provides the FluentNotes API server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/fluentnotes-go/internal/asr"
	"github.com/raphaelgruber/fluentnotes-go/internal/config"
	"github.com/raphaelgruber/fluentnotes-go/internal/db"
	"github.com/raphaelgruber/fluentnotes-go/internal/llm"
	"github.com/raphaelgruber/fluentnotes-go/internal/metrics"
	"github.com/raphaelgruber/fluentnotes-go/internal/server"
	"github.com/raphaelgruber/fluentnotes-go/internal/service"
	"github.com/raphaelgruber/fluentnotes-go/pkg/executor"
)

func main() {
	configFile := flag.String("config", "", "path to YAML config file (env vars take precedence)")
	wipeDB := flag.Bool("wipe", false, "wipe all meeting jobs on startup (testing only)")
	flag.Parse()

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.LoadFile(*configFile)
		if err != nil {
			slog.Error("failed to load config file", "file", *configFile, "error", err)
			os.Exit(1)
		}
	} else {
		cfg = config.Load()
	}

	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()
	slog.SetDefault(logger)

	slog.Info("starting fluentnotes-server", "port", cfg.ServerPort,
		"llm_provider", cfg.LLMProvider, "llm_model", cfg.LLMModel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	dbClient, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger)
	if err != nil {
		cancel()
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := dbClient.InitSchema(ctx); err != nil {
		cancel()
		slog.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}
	if *wipeDB {
		if err := dbClient.WipeData(ctx); err != nil {
			cancel()
			slog.Error("failed to wipe database", "error", err)
			os.Exit(1)
		}
	}
	cancel()
	defer func() {
		if err := dbClient.Close(context.Background()); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	model, err := llm.NewModel(cfg)
	if err != nil {
		slog.Error("failed to create LLM model", "error", err)
		os.Exit(1)
	}

	transcriber := asr.NewWhisperCPP(asr.WhisperConfig{
		Binary:    cfg.WhisperBinary,
		ModelPath: cfg.WhisperModel,
		Language:  cfg.WhisperLanguage,
		Threads:   cfg.WhisperThreads,
	}, executor.New())

	collector := metrics.NewCollector()
	jobs := service.NewJobManager(service.JobManagerConfig{
		DB:                dbClient,
		Transcriber:       transcriber,
		Summarizer:        llm.NewSummarizer(model),
		Collector:         collector,
		UploadDir:         cfg.UploadDir,
		TranscribeTimeout: cfg.TranscribeTimeout,
		SummarizeTimeout:  cfg.SummarizeTimeout,
	})
	query := service.NewQueryService(dbClient, jobs)
	export := service.NewExportService(query, collector)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := jobs.FailOrphanedJobs(startupCtx); err != nil {
		slog.Warn("failed to clean up orphaned jobs", "error", err)
	}
	startupCancel()

	srv := server.New(server.Config{
		Port:      cfg.ServerPort,
		Jobs:      jobs,
		Query:     query,
		Export:    export,
		Collector: collector,
		Logger:    logger,
	})

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(runCtx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

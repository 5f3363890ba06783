package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"go.uber.org/zap"

	"github.com/serisow/docpilot/config"
	"github.com/serisow/docpilot/db"
	"github.com/serisow/docpilot/llm_service"
	"github.com/serisow/docpilot/logging"
	"github.com/serisow/docpilot/pdfextract"
	"github.com/serisow/docpilot/progress"
	"github.com/serisow/docpilot/server"
	"github.com/serisow/docpilot/store"
	"github.com/serisow/docpilot/worker"
)

func main() {
	cfg := config.Load()

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	ctx := context.Background()

	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer pool.Close()

	broker, err := progress.NewRedisBroker(cfg.RedisURL, logger)
	if err != nil {
		log.Fatalf("Could not create progress broker: %v", err)
	}
	defer broker.Close()
	if err := broker.Ping(ctx); err != nil {
		log.Fatalf("Could not reach redis: %v", err)
	}

	enqueuer, err := worker.NewEnqueuer(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Could not create task enqueuer: %v", err)
	}
	defer enqueuer.Close()

	llm := llm_service.NewOpenAIService(logger, cfg.OpenAIAPIURL, cfg.OpenAIAPIKey, cfg.LLMModel)
	extractor := pdfextract.NewExtractor(logger)

	handler := worker.NewHandler(
		worker.PgxStoreFactory(cfg.DatabaseURL),
		extractor,
		llm,
		broker,
		logger,
		cfg.LLMModel,
	)

	go startWorker(cfg, handler)

	st := store.NewPgStore(pool)
	r := server.SetupRoutes(st, enqueuer, broker, logger)
	n := server.SetupNegroni(r)

	logger.Info("starting server",
		slog.String("environment", cfg.Environment),
		slog.String("http_port", cfg.HTTPPort))

	if cfg.Environment == "production" {
		server.ServeProduction(n, cfg.Domains, cfg.CertCacheDir)
	} else {
		server.ServeDevelopment(cfg.HTTPPort, n)
	}
}

func startWorker(cfg config.Config, handler *worker.Handler) {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Could not create worker logger: %v", err)
	}
	defer zapLogger.Sync()

	srv, err := worker.NewServer(cfg.RedisURL, cfg.WorkerConcurrency, worker.NewZapLogger(zapLogger))
	if err != nil {
		log.Fatalf("Could not create worker server: %v", err)
	}

	if err := srv.Run(worker.NewServeMux(handler)); err != nil {
		log.Fatalf("Worker server stopped: %v", err)
	}
}

func setupLogger(cfg config.Config) *slog.Logger {
	if cfg.Environment == "production" {
		handler, err := logging.NewDailyFileHandler(cfg.LogDir, &slog.HandlerOptions{Level: slog.LevelInfo})
		if err != nil {
			log.Fatalf("Could not create log handler: %v", err)
		}
		return slog.New(handler)
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

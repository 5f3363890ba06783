package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/serisow/docpilot/db"
	"github.com/serisow/docpilot/llm_service"
	"github.com/serisow/docpilot/pipeline"
	"github.com/serisow/docpilot/progress"
	"github.com/serisow/docpilot/store"
)

// StoreFactory opens the store for one run and returns a release func
// invoked when the run exits. Production runs open a dedicated database
// connection per invocation; sharing a pooled connection across worker
// runs risks a stale transaction snapshot surviving between documents.
type StoreFactory func(ctx context.Context) (store.Store, func(context.Context), error)

// PgxStoreFactory returns a factory that dials a fresh connection for
// every pipeline run.
func PgxStoreFactory(databaseURL string) StoreFactory {
	return func(ctx context.Context) (store.Store, func(context.Context), error) {
		conn, err := db.ConnectWorker(ctx, databaseURL)
		if err != nil {
			return nil, nil, err
		}
		release := func(ctx context.Context) {
			conn.Close(ctx)
		}
		return store.NewPgStore(conn), release, nil
	}
}

// Handler executes process-document tasks. One handler serves all of a
// worker's concurrency slots; per-run state lives in the pipeline.
type Handler struct {
	stores    StoreFactory
	extractor pipeline.TextExtractor
	llm       llm_service.LLMService
	publisher progress.Publisher
	logger    *slog.Logger
	modelUsed string

	running sync.Map
}

func NewHandler(
	stores StoreFactory,
	extractor pipeline.TextExtractor,
	llm llm_service.LLMService,
	publisher progress.Publisher,
	logger *slog.Logger,
	modelUsed string,
) *Handler {
	return &Handler{
		stores:    stores,
		extractor: extractor,
		llm:       llm,
		publisher: publisher,
		logger:    logger,
		modelUsed: modelUsed,
	}
}

// HandleProcessDocument runs the five-stage pipeline for one document.
// Concurrent tasks for the same document are skipped, not queued: the
// earlier run is already producing the result the duplicate would.
func (h *Handler) HandleProcessDocument(ctx context.Context, t *asynq.Task) error {
	var p ProcessDocumentPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	documentID, err := uuid.Parse(p.DocumentID)
	if err != nil {
		return fmt.Errorf("bad document id %q: %v: %w", p.DocumentID, err, asynq.SkipRetry)
	}

	if _, loaded := h.running.LoadOrStore(p.DocumentID, struct{}{}); loaded {
		h.logger.Warn("document already processing, skipping duplicate run",
			slog.String("document_id", p.DocumentID),
			slog.String("job_id", p.JobID))
		return nil
	}
	defer h.running.Delete(p.DocumentID)

	st, release, err := h.stores(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer release(ctx)

	h.logger.Info("processing document",
		slog.String("document_id", p.DocumentID),
		slog.String("job_id", p.JobID))

	pipe := pipeline.NewExtractionPipeline(st, h.extractor, h.llm, h.publisher, h.logger, h.modelUsed)
	return pipe.Run(ctx, documentID, p.JobID)
}

// NewServeMux registers the handler's task routes.
func NewServeMux(h *Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeProcessDocument, h.HandleProcessDocument)
	return mux
}

// NewServer builds the queue consumer. Concurrency bounds how many
// documents one worker process handles at a time.
func NewServer(redisURL string, concurrency int, logger asynq.Logger) (*asynq.Server, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Logger:      logger,
	})
	return srv, nil
}

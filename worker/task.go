package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TypeProcessDocument is the task type for one full pipeline run.
const TypeProcessDocument = "document:process"

// ProcessDocumentPayload identifies the document to process and the job
// under which progress is published.
type ProcessDocumentPayload struct {
	DocumentID string `json:"document_id"`
	JobID      string `json:"job_id"`
}

// NewProcessDocumentTask builds the task for a document run. The job ID
// doubles as the progress channel key, so callers hand it to clients
// that want to follow the run.
func NewProcessDocumentTask(documentID uuid.UUID, jobID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ProcessDocumentPayload{
		DocumentID: documentID.String(),
		JobID:      jobID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal process-document payload: %w", err)
	}
	return asynq.NewTask(TypeProcessDocument, payload), nil
}

// Enqueuer submits pipeline runs to the task queue. It is safe for
// concurrent use by HTTP handlers.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(redisURL string) (*Enqueuer, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}
	return &Enqueuer{client: asynq.NewClient(opt)}, nil
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}

// EnqueueProcessDocument queues a run for the document and returns the
// job ID clients can use to stream progress.
func (e *Enqueuer) EnqueueProcessDocument(ctx context.Context, documentID uuid.UUID) (string, error) {
	jobID := uuid.New().String()

	task, err := NewProcessDocumentTask(documentID, jobID)
	if err != nil {
		return "", err
	}

	_, err = e.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Minute),
	)
	if err != nil {
		return "", fmt.Errorf("enqueue document %s: %w", documentID, err)
	}
	return jobID, nil
}

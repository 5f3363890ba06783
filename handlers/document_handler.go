package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/serisow/docpilot/store"
)

// ProcessEnqueuer queues one pipeline run and returns its job ID.
// Satisfied by worker.Enqueuer.
type ProcessEnqueuer interface {
	EnqueueProcessDocument(ctx context.Context, documentID uuid.UUID) (string, error)
}

// DocumentHandler exposes the run trigger: start or re-run processing
// for an uploaded document.
type DocumentHandler struct {
	store    store.Store
	enqueuer ProcessEnqueuer
	logger   *slog.Logger
}

func NewDocumentHandler(st store.Store, enqueuer ProcessEnqueuer, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{store: st, enqueuer: enqueuer, logger: logger}
}

// ProcessDocument queues a pipeline run for the document. A document
// already mid-run is rejected; the pipeline itself does not enforce
// mutual exclusion, so the gate lives here at the trigger.
func (h *DocumentHandler) ProcessDocument(w http.ResponseWriter, r *http.Request) {
	documentID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid document id", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	doc, err := h.store.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Document not found", http.StatusNotFound)
			return
		}
		h.logger.Error("load document failed",
			slog.String("document_id", documentID.String()),
			slog.String("error", err.Error()))
		http.Error(w, "Could not load document", http.StatusInternalServerError)
		return
	}

	if doc.Status == store.StatusProcessing {
		http.Error(w, "Document is already being processed", http.StatusConflict)
		return
	}

	// Reprocessing a completed or failed document starts from a clean
	// uploaded state; prior extractions and clauses are kept.
	if doc.Status != store.StatusUploaded {
		if err := h.store.UpdateStatus(ctx, documentID, store.StatusUploaded); err != nil {
			h.logger.Error("reset document status failed",
				slog.String("document_id", documentID.String()),
				slog.String("error", err.Error()))
			http.Error(w, "Could not reset document", http.StatusInternalServerError)
			return
		}
	}

	jobID, err := h.enqueuer.EnqueueProcessDocument(ctx, documentID)
	if err != nil {
		h.logger.Error("enqueue failed",
			slog.String("document_id", documentID.String()),
			slog.String("error", err.Error()))
		http.Error(w, "Could not queue document for processing", http.StatusInternalServerError)
		return
	}

	h.logger.Info("queued document for processing",
		slog.String("document_id", documentID.String()),
		slog.String("job_id", jobID))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"document_id": documentID.String(),
		"job_id":      jobID,
		"status":      "queued",
	})
}

// GetDocument returns the document record, including whatever the
// pipeline has persisted so far.
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	documentID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid document id", http.StatusBadRequest)
		return
	}

	doc, err := h.store.GetDocument(r.Context(), documentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Document not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Could not load document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/serisow/docpilot/llm_service"
	"github.com/serisow/docpilot/pdfextract"
	"github.com/serisow/docpilot/progress"
	"github.com/serisow/docpilot/store"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubExtractor struct {
	started chan struct{}
	finish  chan struct{}
}

func (s *stubExtractor) ExtractFile(path string) (string, []pdfextract.PageSpan, error) {
	if s.started != nil {
		close(s.started)
	}
	if s.finish != nil {
		<-s.finish
	}
	text := "First paragraph.\n\nSecond paragraph."
	return text, []pdfextract.PageSpan{{Page: 1, StartChar: 0, EndChar: len(text)}}, nil
}

func memoryStoreFactory(st *store.MemoryStore) StoreFactory {
	return func(ctx context.Context) (store.Store, func(context.Context), error) {
		return st, func(context.Context) {}, nil
	}
}

func scriptedLLM() llm_service.LLMService {
	return &llm_service.MockLLMService{
		CallJSONFunc: func(ctx context.Context, systemPrompt, userPrompt string) (map[string]interface{}, error) {
			switch {
			case strings.Contains(systemPrompt, "classifier"):
				return map[string]interface{}{"doc_type": "other", "confidence": 0.5}, nil
			case strings.Contains(systemPrompt, "risk analyst"):
				return map[string]interface{}{"clauses": []interface{}{}}, nil
			default:
				return map[string]interface{}{
					"parties": map[string]interface{}{"value": "A and B", "confidence": 0.7},
				}, nil
			}
		},
	}
}

func newTestHandler(st *store.MemoryStore, ext *stubExtractor) *Handler {
	return NewHandler(
		memoryStoreFactory(st),
		ext,
		scriptedLLM(),
		progress.NewMemoryBroker(),
		testLogger,
		"gpt-4o-mini",
	)
}

func seedDocument(st *store.MemoryStore) *store.Document {
	doc := &store.Document{
		ID:       uuid.New(),
		Filename: "contract.pdf",
		FilePath: "/uploads/contract.pdf",
		Status:   store.StatusUploaded,
	}
	st.PutDocument(doc)
	return doc
}

func TestNewProcessDocumentTaskPayload(t *testing.T) {
	documentID := uuid.New()

	task, err := NewProcessDocumentTask(documentID, "job-42")
	if err != nil {
		t.Fatal(err)
	}
	if task.Type() != TypeProcessDocument {
		t.Errorf("task type = %q, want %q", task.Type(), TypeProcessDocument)
	}

	var p ProcessDocumentPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		t.Fatal(err)
	}
	if p.DocumentID != documentID.String() || p.JobID != "job-42" {
		t.Errorf("payload = %+v", p)
	}
}

func TestHandleProcessDocumentRunsPipeline(t *testing.T) {
	st := store.NewMemoryStore()
	doc := seedDocument(st)
	h := newTestHandler(st, &stubExtractor{})

	task, err := NewProcessDocumentTask(doc.ID, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := h.HandleProcessDocument(context.Background(), task); err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	got, _ := st.GetDocument(context.Background(), doc.ID)
	if got.Status != store.StatusCompleted {
		t.Errorf("status = %s, want %s", got.Status, store.StatusCompleted)
	}
	if n := len(st.Extractions(doc.ID)); n != 1 {
		t.Errorf("extraction rows = %d, want 1", n)
	}
}

func TestHandleProcessDocumentBadPayloadSkipsRetry(t *testing.T) {
	st := store.NewMemoryStore()
	h := newTestHandler(st, &stubExtractor{})

	task := asynq.NewTask(TypeProcessDocument, []byte("not json"))
	err := h.HandleProcessDocument(context.Background(), task)
	if err == nil {
		t.Fatal("expected error for bad payload")
	}
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("error %v should mark the task unretryable", err)
	}
}

func TestHandleProcessDocumentSkipsDuplicateRun(t *testing.T) {
	st := store.NewMemoryStore()
	doc := seedDocument(st)

	ext := &stubExtractor{
		started: make(chan struct{}),
		finish:  make(chan struct{}),
	}
	h := newTestHandler(st, ext)

	first, err := NewProcessDocumentTask(doc.ID, "job-1")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := h.HandleProcessDocument(context.Background(), first); err != nil {
			t.Errorf("first run failed: %v", err)
		}
	}()

	// Wait until the first run is inside stage 1 and holding the guard.
	<-ext.started

	second, err := NewProcessDocumentTask(doc.ID, "job-2")
	if err != nil {
		t.Fatal(err)
	}
	if err := h.HandleProcessDocument(context.Background(), second); err != nil {
		t.Errorf("duplicate run should be skipped without error, got %v", err)
	}

	close(ext.finish)
	wg.Wait()

	if n := len(st.Extractions(doc.ID)); n != 1 {
		t.Errorf("extraction rows = %d, want 1 (duplicate must not run)", n)
	}
}

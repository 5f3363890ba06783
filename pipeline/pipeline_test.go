package pipeline

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

	"github.com/serisow/docpilot/llm_service"
	"github.com/serisow/docpilot/pdfextract"
	"github.com/serisow/docpilot/progress"
	"github.com/serisow/docpilot/store"
)

type fakeExtractor struct {
	text    string
	pageMap []pdfextract.PageSpan
	err     error
}

func (f *fakeExtractor) ExtractFile(path string) (string, []pdfextract.PageSpan, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.text, f.pageMap, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []progress.Message
}

func (p *recordingPublisher) Publish(ctx context.Context, jobID string, msg progress.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) messages() []progress.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]progress.Message(nil), p.msgs...)
}

// scriptedLLM answers by prompt role: classification, field extraction,
// or clause analysis. Responses can be swapped per test.
type scriptedLLM struct {
	classifyResult map[string]interface{}
	fieldsResult   map[string]interface{}
	clausesResult  map[string]interface{}
}

func (s *scriptedLLM) CallJSON(ctx context.Context, systemPrompt, userPrompt string) (map[string]interface{}, error) {
	switch {
	case strings.Contains(systemPrompt, "legal document classifier"):
		return s.classifyResult, nil
	case strings.Contains(systemPrompt, "legal risk analyst"):
		return s.clausesResult, nil
	default:
		return s.fieldsResult, nil
	}
}

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func twoPageDocument() (string, []pdfextract.PageSpan) {
	return pdfextract.BuildPageMap([]string{
		"Clause A text. The receiving party shall hold all confidential information in strict confidence.",
		"Clause B text. This agreement is governed by the laws of Delaware.",
	})
}

func seedDocument(st *store.MemoryStore) *store.Document {
	doc := &store.Document{
		ID:       uuid.New(),
		TeamID:   uuid.New(),
		Filename: "nda.pdf",
		FilePath: "/uploads/nda.pdf",
		Status:   store.StatusUploaded,
	}
	st.PutDocument(doc)
	return doc
}

func defaultLLM() *scriptedLLM {
	return &scriptedLLM{
		classifyResult: map[string]interface{}{
			"doc_type":   "nda",
			"confidence": 0.92,
			"reasoning":  "mutual confidentiality obligations",
		},
		fieldsResult: map[string]interface{}{
			"disclosing_party": map[string]interface{}{"value": "Acme Corp", "confidence": 0.95},
			"receiving_party":  map[string]interface{}{"value": "Beta LLC", "confidence": 0.9},
			"governing_law":    map[string]interface{}{"value": "Delaware", "confidence": 0.85},
		},
		clausesResult: map[string]interface{}{
			"clauses": []interface{}{
				map[string]interface{}{
					"clause_type":   "confidentiality",
					"original_text": "The receiving party shall hold all confidential information in strict confidence.",
					"plain_summary": "Keep shared information secret.",
					"risk_level":    "low",
					"confidence":    0.9,
					"page_number":   float64(1),
				},
				map[string]interface{}{
					"clause_type":   "governing_law",
					"original_text": "This agreement is governed by the laws of Delaware.",
					"plain_summary": "Delaware law applies.",
					"risk_level":    "low",
					"confidence":    0.85,
					"page_number":   float64(2),
				},
			},
		},
	}
}

func newTestPipeline(st store.Store, ext TextExtractor, llm llm_service.LLMService, pub progress.Publisher) *ExtractionPipeline {
	return NewExtractionPipeline(st, ext, llm, pub, testLogger, "gpt-4o-mini")
}

func TestRunCompletesAllStages(t *testing.T) {
	st := store.NewMemoryStore()
	doc := seedDocument(st)
	text, pageMap := twoPageDocument()
	pub := &recordingPublisher{}

	p := newTestPipeline(st, &fakeExtractor{text: text, pageMap: pageMap}, defaultLLM(), pub)

	if err := p.Run(context.Background(), doc.ID, "job-1"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got, err := st.GetDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != store.StatusCompleted {
		t.Errorf("status = %s, want %s", got.Status, store.StatusCompleted)
	}
	if got.DocType == nil || *got.DocType != "nda" {
		t.Errorf("doc_type = %v, want nda", got.DocType)
	}
	if got.RawText == nil || *got.RawText != text {
		t.Error("raw_text was not persisted")
	}
	if got.PageCount == nil || *got.PageCount != 2 {
		t.Errorf("page_count = %v, want 2", got.PageCount)
	}

	extractions := st.Extractions(doc.ID)
	if len(extractions) != 1 {
		t.Fatalf("extraction rows = %d, want 1", len(extractions))
	}
	if extractions[0].ModelUsed != "gpt-4o-mini" {
		t.Errorf("model_used = %q", extractions[0].ModelUsed)
	}
	var persisted map[string]map[string]interface{}
	if err := json.Unmarshal(extractions[0].ExtractedData, &persisted); err != nil {
		t.Fatalf("extracted_data is not a field map: %v", err)
	}
	if persisted["disclosing_party"]["value"] != "Acme Corp" {
		t.Errorf("extracted_data = %s", extractions[0].ExtractedData)
	}

	clauses := st.Clauses(doc.ID)
	if len(clauses) != 2 {
		t.Fatalf("clause rows = %d, want 2", len(clauses))
	}

	msgs := pub.messages()
	wantProgress := []int{10, 20, 35, 55, 75, 100}
	if len(msgs) != len(wantProgress) {
		t.Fatalf("published %d messages, want %d: %+v", len(msgs), len(wantProgress), msgs)
	}
	for i, want := range wantProgress {
		if msgs[i].Progress != want {
			t.Errorf("message %d progress = %d, want %d", i, msgs[i].Progress, want)
		}
		if msgs[i].TotalSteps != progress.TotalSteps {
			t.Errorf("message %d total_steps = %d", i, msgs[i].TotalSteps)
		}
	}
	if !msgs[len(msgs)-1].Terminal() {
		t.Error("final message is not terminal")
	}
}

func TestRunExtractionFailure(t *testing.T) {
	st := store.NewMemoryStore()
	doc := seedDocument(st)
	pub := &recordingPublisher{}

	extractErr := &pdfextract.ExtractionError{Path: "/uploads/nda.pdf", Err: errors.New("invalid PDF header")}
	p := newTestPipeline(st, &fakeExtractor{err: extractErr}, defaultLLM(), pub)

	err := p.Run(context.Background(), doc.ID, "job-1")
	if err == nil {
		t.Fatal("expected Run to fail")
	}
	var ee *pdfextract.ExtractionError
	if !errors.As(err, &ee) {
		t.Errorf("error %v does not unwrap to ExtractionError", err)
	}

	got, _ := st.GetDocument(context.Background(), doc.ID)
	if got.Status != store.StatusFailed {
		t.Errorf("status = %s, want %s", got.Status, store.StatusFailed)
	}
	if n := len(st.Extractions(doc.ID)); n != 0 {
		t.Errorf("extraction rows = %d, want 0", n)
	}
	if n := len(st.Clauses(doc.ID)); n != 0 {
		t.Errorf("clause rows = %d, want 0", n)
	}

	var failures int
	for _, m := range pub.messages() {
		if m.Progress == progress.FailureProgress {
			failures++
			if m.Step != 0 {
				t.Errorf("failure message step = %d, want 0", m.Step)
			}
			if m.Message == "" {
				t.Error("failure message has no error summary")
			}
		}
	}
	if failures != 1 {
		t.Errorf("failure messages = %d, want exactly 1", failures)
	}
}

func TestRunDocumentNotFound(t *testing.T) {
	st := store.NewMemoryStore()
	pub := &recordingPublisher{}
	text, pageMap := twoPageDocument()

	p := newTestPipeline(st, &fakeExtractor{text: text, pageMap: pageMap}, defaultLLM(), pub)

	err := p.Run(context.Background(), uuid.New(), "job-1")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}

	msgs := pub.messages()
	if len(msgs) != 1 || msgs[0].Progress != progress.FailureProgress {
		t.Errorf("expected a single failure message, got %+v", msgs)
	}
}

func TestRunReprocessAccumulatesExtractions(t *testing.T) {
	st := store.NewMemoryStore()
	doc := seedDocument(st)
	text, pageMap := twoPageDocument()
	pub := &recordingPublisher{}

	p := newTestPipeline(st, &fakeExtractor{text: text, pageMap: pageMap}, defaultLLM(), pub)
	ctx := context.Background()

	if err := p.Run(ctx, doc.ID, "job-1"); err != nil {
		t.Fatal(err)
	}

	// Reprocessing resets the document to uploaded before re-running.
	if err := st.UpdateStatus(ctx, doc.ID, store.StatusUploaded); err != nil {
		t.Fatal(err)
	}
	if err := p.Run(ctx, doc.ID, "job-2"); err != nil {
		t.Fatal(err)
	}

	if n := len(st.Extractions(doc.ID)); n != 2 {
		t.Errorf("extraction rows after reprocess = %d, want 2", n)
	}
	got, _ := st.GetDocument(ctx, doc.ID)
	if got.Status != store.StatusCompleted {
		t.Errorf("status = %s, want %s", got.Status, store.StatusCompleted)
	}
}

func TestRunCoercesUnknownDocType(t *testing.T) {
	st := store.NewMemoryStore()
	doc := seedDocument(st)
	text, pageMap := twoPageDocument()

	llm := defaultLLM()
	llm.classifyResult = map[string]interface{}{"doc_type": "sonnet", "confidence": 0.4}
	llm.fieldsResult = map[string]interface{}{
		"parties": map[string]interface{}{"value": "Acme and Beta", "confidence": 0.8},
	}

	p := newTestPipeline(st, &fakeExtractor{text: text, pageMap: pageMap}, llm, &recordingPublisher{})

	if err := p.Run(context.Background(), doc.ID, "job-1"); err != nil {
		t.Fatal(err)
	}

	got, _ := st.GetDocument(context.Background(), doc.ID)
	if got.DocType == nil || *got.DocType != "other" {
		t.Errorf("doc_type = %v, want other", got.DocType)
	}
}

func TestRunQuantizesClauseConfidence(t *testing.T) {
	st := store.NewMemoryStore()
	doc := seedDocument(st)
	text, pageMap := twoPageDocument()

	llm := defaultLLM()
	llm.clausesResult = map[string]interface{}{
		"clauses": []interface{}{
			map[string]interface{}{
				"clause_type":   "indemnification",
				"original_text": "Each party shall indemnify the other.",
				"confidence":    0.8567,
			},
			map[string]interface{}{
				"clause_type":   "termination",
				"original_text": "Either party may terminate with 30 days notice.",
				"confidence":    "fairly sure",
			},
		},
	}

	p := newTestPipeline(st, &fakeExtractor{text: text, pageMap: pageMap}, llm, &recordingPublisher{})

	if err := p.Run(context.Background(), doc.ID, "job-1"); err != nil {
		t.Fatal(err)
	}

	clauses := st.Clauses(doc.ID)
	if len(clauses) != 2 {
		t.Fatalf("clause rows = %d, want 2", len(clauses))
	}
	if clauses[0].Confidence == nil || *clauses[0].Confidence != 0.86 {
		t.Errorf("confidence = %v, want 0.86", clauses[0].Confidence)
	}
	if clauses[1].Confidence != nil {
		t.Errorf("unparseable confidence = %v, want absent", *clauses[1].Confidence)
	}
}

func TestRunFailsWhenLLMExhausted(t *testing.T) {
	st := store.NewMemoryStore()
	doc := seedDocument(st)
	text, pageMap := twoPageDocument()
	pub := &recordingPublisher{}

	llm := &llm_service.MockLLMService{
		CallJSONFunc: func(ctx context.Context, systemPrompt, userPrompt string) (map[string]interface{}, error) {
			return nil, &llm_service.APIError{StatusCode: 503, Message: "overloaded"}
		},
	}

	p := newTestPipeline(st, &fakeExtractor{text: text, pageMap: pageMap}, llm, pub)

	if err := p.Run(context.Background(), doc.ID, "job-1"); err == nil {
		t.Fatal("expected Run to fail when inference is exhausted")
	}

	got, _ := st.GetDocument(context.Background(), doc.ID)
	if got.Status != store.StatusFailed {
		t.Errorf("status = %s, want %s", got.Status, store.StatusFailed)
	}
	// Text extraction committed before the failing classify call.
	if got.RawText == nil {
		t.Error("raw_text from the completed stage should remain persisted")
	}
}

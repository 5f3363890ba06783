package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/serisow/docpilot/chunker"
	"github.com/serisow/docpilot/fields"
	"github.com/serisow/docpilot/llm_service"
	"github.com/serisow/docpilot/pdfextract"
	"github.com/serisow/docpilot/progress"
	"github.com/serisow/docpilot/prompts"
	"github.com/serisow/docpilot/store"
)

// combinedTextLimit bounds the prompt text sent to the model in steps 4
// and 5 so long documents stay inside smaller models' context windows.
const combinedTextLimit = 12000

var validDocTypes = map[string]struct{}{
	"nda":                 {},
	"service_agreement":   {},
	"employment_contract": {},
	"lease":               {},
	"saas_terms":          {},
	"other":               {},
}

// TextExtractor yields a document's full text and page map from its
// file on disk. Satisfied by pdfextract.Extractor.
type TextExtractor interface {
	ExtractFile(path string) (string, []pdfextract.PageSpan, error)
}

// ExtractionPipeline drives one document through the five processing
// stages: extract text, chunk, classify, extract fields, analyze
// clauses. Every collaborator is injected at construction; the pipeline
// holds no hidden process-wide state.
type ExtractionPipeline struct {
	store     store.Store
	extractor TextExtractor
	llm       llm_service.LLMService
	publisher progress.Publisher
	logger    *slog.Logger
	modelUsed string
}

func NewExtractionPipeline(
	st store.Store,
	extractor TextExtractor,
	llm llm_service.LLMService,
	publisher progress.Publisher,
	logger *slog.Logger,
	modelUsed string,
) *ExtractionPipeline {
	return &ExtractionPipeline{
		store:     st,
		extractor: extractor,
		llm:       llm,
		publisher: publisher,
		logger:    logger,
		modelUsed: modelUsed,
	}
}

// run carries the state of a single invocation. A fresh run is built per
// Run call so concurrent documents never share chunks or text.
type run struct {
	p          *ExtractionPipeline
	jobID      string
	documentID uuid.UUID

	doc      *store.Document
	fullText string
	pageMap  []pdfextract.PageSpan
	chunks   []chunker.Chunk
	docType  string
}

// Run executes all five stages for one document. On failure the
// document is moved to failed, a terminal -1 progress message is
// published, and the error is returned for the task runner's own
// failure policy. A run is one attempt; re-running is the caller's
// explicit decision.
func (p *ExtractionPipeline) Run(ctx context.Context, documentID uuid.UUID, jobID string) error {
	r := &run{p: p, jobID: jobID, documentID: documentID, docType: "other"}

	if err := r.execute(ctx); err != nil {
		r.fail(ctx, err)
		return err
	}
	return nil
}

func (r *run) execute(ctx context.Context) error {
	doc, err := r.p.store.GetDocument(ctx, r.documentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", r.documentID, err)
	}
	r.doc = doc

	// Commit the processing transition before any slow work so
	// concurrent observers see the document is mid-run.
	if err := r.p.store.UpdateStatus(ctx, r.documentID, store.StatusProcessing); err != nil {
		return fmt.Errorf("mark document processing: %w", err)
	}

	if err := r.extractText(ctx); err != nil {
		return err
	}
	if err := r.chunkText(ctx); err != nil {
		return err
	}
	if err := r.classify(ctx); err != nil {
		return err
	}
	if err := r.extractFields(ctx); err != nil {
		return err
	}
	if err := r.analyzeClauses(ctx); err != nil {
		return err
	}

	if err := r.p.store.UpdateStatus(ctx, r.documentID, store.StatusCompleted); err != nil {
		return fmt.Errorf("mark document completed: %w", err)
	}

	r.publish(ctx, progress.TotalSteps, "Processing complete", 100)
	return nil
}

// fail is the single exit path for a broken run: best-effort failed
// status, terminal progress message, nothing escalated from the
// bookkeeping itself so the original error stays visible.
func (r *run) fail(ctx context.Context, cause error) {
	if r.doc != nil {
		if err := r.p.store.UpdateStatus(ctx, r.documentID, store.StatusFailed); err != nil {
			r.p.logger.Error("could not mark document failed",
				slog.String("document_id", r.documentID.String()),
				slog.String("error", err.Error()))
		}
	}

	r.publish(ctx, 0, fmt.Sprintf("Processing failed: %v", cause), progress.FailureProgress)

	r.p.logger.Error("pipeline run failed",
		slog.String("document_id", r.documentID.String()),
		slog.String("job_id", r.jobID),
		slog.String("error", cause.Error()))
}

func (r *run) publish(ctx context.Context, step int, message string, pct int) {
	msg := progress.Message{
		Step:       step,
		TotalSteps: progress.TotalSteps,
		Message:    message,
		Progress:   pct,
	}
	if err := r.p.publisher.Publish(ctx, r.jobID, msg); err != nil {
		r.p.logger.Warn("progress publish failed",
			slog.String("job_id", r.jobID),
			slog.Int("step", step),
			slog.String("error", err.Error()))
	}
}

func (r *run) extractText(ctx context.Context) error {
	r.publish(ctx, 1, "Extracting text from PDF...", 10)
	r.p.logger.Info("step 1/5 extracting text",
		slog.String("document_id", r.documentID.String()),
		slog.String("file_path", r.doc.FilePath))

	fullText, pageMap, err := r.p.extractor.ExtractFile(r.doc.FilePath)
	if err != nil {
		return err
	}
	r.fullText = fullText
	r.pageMap = pageMap

	if err := r.p.store.SaveExtractedText(ctx, r.documentID, fullText, len(pageMap)); err != nil {
		return fmt.Errorf("persist extracted text: %w", err)
	}

	r.p.logger.Info("extracted text",
		slog.Int("chars", len(fullText)),
		slog.Int("pages", len(pageMap)))
	return nil
}

func (r *run) chunkText(ctx context.Context) error {
	r.publish(ctx, 2, "Chunking text...", 20)
	r.p.logger.Info("step 2/5 chunking text", slog.String("document_id", r.documentID.String()))

	r.chunks = chunker.ChunkText(r.fullText, r.pageMap, chunker.DefaultChunkSize, chunker.DefaultOverlap)

	r.p.logger.Info("chunked text", slog.Int("chunks", len(r.chunks)))
	return nil
}

func (r *run) classify(ctx context.Context) error {
	r.publish(ctx, 3, "Classifying document type...", 35)
	r.p.logger.Info("step 3/5 classifying document", slog.String("document_id", r.documentID.String()))

	sample := r.joinChunks(3)
	result, err := r.p.llm.CallJSON(ctx, prompts.ClassifySystemPrompt, prompts.BuildClassifyUserPrompt(sample))
	if err != nil {
		return fmt.Errorf("classify document: %w", err)
	}

	rawType, _ := result["doc_type"].(string)
	if _, ok := validDocTypes[rawType]; ok {
		r.docType = rawType
	} else {
		r.docType = "other"
	}

	if err := r.p.store.SaveDocType(ctx, r.documentID, r.docType); err != nil {
		return fmt.Errorf("persist doc type: %w", err)
	}

	r.p.logger.Info("classified document",
		slog.String("doc_type", r.docType),
		slog.Any("confidence", result["confidence"]))
	return nil
}

func (r *run) extractFields(ctx context.Context) error {
	r.publish(ctx, 4, fmt.Sprintf("Extracting fields (%s)...", r.docType), 55)
	r.p.logger.Info("step 4/5 extracting fields",
		slog.String("document_id", r.documentID.String()),
		slog.String("doc_type", r.docType))

	systemPrompt, buildUser := prompts.ExtractionPromptFor(r.docType)
	combined := r.combinedText()

	start := time.Now()
	raw, err := r.p.llm.CallJSON(ctx, systemPrompt, buildUser(combined))
	if err != nil {
		return fmt.Errorf("extract fields: %w", err)
	}
	elapsedMS := int(time.Since(start).Milliseconds())

	set, err := fields.Parse(r.docType, raw)
	if err != nil {
		return fmt.Errorf("extract fields: %w", err)
	}
	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode extracted fields: %w", err)
	}

	extraction := &store.Extraction{
		ID:            uuid.New(),
		DocumentID:    r.documentID,
		ExtractedData: payload,
		ModelUsed:     r.p.modelUsed,
		ProcessingMS:  elapsedMS,
	}
	if err := r.p.store.InsertExtraction(ctx, extraction); err != nil {
		return fmt.Errorf("persist extraction: %w", err)
	}

	r.p.logger.Info("extracted fields",
		slog.Int("fields", set.Len()),
		slog.Int("elapsed_ms", elapsedMS))
	return nil
}

func (r *run) analyzeClauses(ctx context.Context) error {
	r.publish(ctx, 5, "Analyzing clauses for risks...", 75)
	r.p.logger.Info("step 5/5 analyzing clauses", slog.String("document_id", r.documentID.String()))

	combined := r.combinedText()
	result, err := r.p.llm.CallJSON(ctx, prompts.AnalyzeClausesSystemPrompt,
		prompts.BuildAnalyzeClausesUserPrompt(combined, r.docType))
	if err != nil {
		return fmt.Errorf("analyze clauses: %w", err)
	}

	items, _ := result["clauses"].([]interface{})
	clauses := make([]*store.Clause, 0, len(items))
	for _, raw := range items {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		clauses = append(clauses, clauseFromItem(r.documentID, item))
	}

	if err := r.p.store.InsertClauses(ctx, clauses); err != nil {
		return fmt.Errorf("persist clauses: %w", err)
	}

	r.p.logger.Info("saved clauses", slog.Int("count", len(clauses)))
	return nil
}

// joinChunks concatenates the first n chunk texts with blank lines, the
// same separator the chunker used to delimit paragraphs.
func (r *run) joinChunks(n int) string {
	if n > len(r.chunks) {
		n = len(r.chunks)
	}
	parts := make([]string, 0, n)
	for _, c := range r.chunks[:n] {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n\n")
}

func (r *run) combinedText() string {
	parts := make([]string, 0, len(r.chunks))
	for _, c := range r.chunks {
		parts = append(parts, c.Text)
	}
	combined := strings.Join(parts, "\n\n")
	if len(combined) > combinedTextLimit {
		combined = combined[:combinedTextLimit]
	}
	return combined
}

func clauseFromItem(documentID uuid.UUID, item map[string]interface{}) *store.Clause {
	clauseType, _ := item["clause_type"].(string)
	if clauseType == "" {
		clauseType = "unknown"
	}
	originalText, _ := item["original_text"].(string)

	return &store.Clause{
		ID:           uuid.New(),
		DocumentID:   documentID,
		ClauseType:   clauseType,
		OriginalText: originalText,
		PlainSummary: optionalString(item["plain_summary"]),
		RiskLevel:    optionalString(item["risk_level"]),
		RiskReason:   optionalString(item["risk_reason"]),
		Confidence:   quantizedConfidence(item["confidence"]),
		PageNumber:   optionalInt(item["page_number"]),
	}
}

func optionalString(v interface{}) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func optionalInt(v interface{}) *int {
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i
	case int:
		return &n
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return nil
		}
		return &i
	default:
		return nil
	}
}

// quantizedConfidence rounds a model-reported confidence to two decimal
// places. A value that cannot be parsed as a number is stored as absent
// rather than zero so downstream consumers can tell "unknown" from
// "no confidence".
func quantizedConfidence(v interface{}) *float64 {
	var parsed float64
	switch n := v.(type) {
	case float64:
		parsed = n
	case int:
		parsed = float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil
		}
		parsed = f
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil
		}
		parsed = f
	default:
		return nil
	}
	rounded := math.Round(parsed*100) / 100
	return &rounded
}

package pdfextract

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv/v2"
	"github.com/ledongthuc/pdf"
)

// PageSpan records where one page's text landed in the concatenated
// document text. Pages are 1-indexed; offsets are half-open [start, end).
type PageSpan struct {
	Page      int `json:"page"`
	StartChar int `json:"start_char"`
	EndChar   int `json:"end_char"`
}

// ExtractionError marks an unreadable or unparseable source file. The
// pipeline treats it as fatal: malformed input does not become valid on
// retry.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// ExtractFile reads a document from disk and returns its full text plus
// the per-page offset map. PDF is the primary format; DOCX is handled
// through docconv and reported as a single page span.
func (e *Extractor) ExtractFile(path string) (string, []PageSpan, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx", ".doc":
		return e.extractWord(path)
	default:
		return e.extractPDF(path)
	}
}

func (e *Extractor) extractPDF(path string) (string, []PageSpan, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		e.logger.Error("Failed to open PDF",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return "", nil, &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	totalPage := reader.NumPage()
	e.logger.Debug("Starting PDF text extraction",
		slog.String("path", path),
		slog.Int("total_pages", totalPage))

	pageTexts := make([]string, 0, totalPage)
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			e.logger.Warn("Null page encountered",
				slog.Int("page_number", pageIndex))
			pageTexts = append(pageTexts, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Error("Failed to extract text from page",
				slog.Int("page_number", pageIndex),
				slog.String("error", err.Error()))
			return "", nil, &ExtractionError{
				Path: path,
				Err:  fmt.Errorf("page %d: %w", pageIndex, err),
			}
		}
		pageTexts = append(pageTexts, text)
	}

	fullText, pageMap := BuildPageMap(pageTexts)

	e.logger.Info("Extracted text from PDF",
		slog.String("path", path),
		slog.Int("total_pages", totalPage),
		slog.Int("total_text_length", len(fullText)))

	return fullText, pageMap, nil
}

func (e *Extractor) extractWord(path string) (string, []PageSpan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, &ExtractionError{Path: path, Err: err}
	}

	mimeType := "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	result, err := docconv.Convert(strings.NewReader(string(data)), mimeType, false)
	if err != nil {
		e.logger.Error("Failed to convert Word document",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return "", nil, &ExtractionError{Path: path, Err: err}
	}

	// Word documents carry no page geometry here, so the whole body is
	// attributed to page 1.
	fullText := result.Body
	pageMap := []PageSpan{{Page: 1, StartChar: 0, EndChar: len(fullText)}}

	e.logger.Info("Extracted text from Word document",
		slog.String("path", path),
		slog.Int("text_length", len(fullText)))

	return fullText, pageMap, nil
}

// BuildPageMap concatenates per-page text in page order and records each
// page's character interval with a running cursor.
func BuildPageMap(pageTexts []string) (string, []PageSpan) {
	var builder strings.Builder
	pageMap := make([]PageSpan, 0, len(pageTexts))
	cursor := 0

	for i, text := range pageTexts {
		start := cursor
		end := cursor + len(text)
		pageMap = append(pageMap, PageSpan{
			Page:      i + 1,
			StartChar: start,
			EndChar:   end,
		})
		builder.WriteString(text)
		cursor = end
	}

	return builder.String(), pageMap
}

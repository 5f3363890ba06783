package chunker

import (
	"strings"

	"github.com/serisow/docpilot/pdfextract"
)

const (
	DefaultChunkSize = 2000
	DefaultOverlap   = 200
)

// Chunk is one bounded, page-attributed text window used as an inference
// input unit. Chunks exist only within a single pipeline run.
type Chunk struct {
	Text      string `json:"text"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
	Pages     []int  `json:"pages"`
}

// findPages returns the 1-indexed pages whose interval intersects
// [startChar, endChar).
func findPages(startChar, endChar int, pageMap []pdfextract.PageSpan) []int {
	var pages []int
	for _, pm := range pageMap {
		if pm.EndChar <= startChar {
			continue
		}
		if pm.StartChar >= endChar {
			break
		}
		pages = append(pages, pm.Page)
	}
	return pages
}

// ChunkText splits text into overlapping chunks that respect paragraph
// boundaries. Paragraphs are double-newline-delimited blocks; a chunk is
// flushed once the next paragraph would push it past chunkSize, and the
// following chunk is seeded with as many trailing whole paragraphs as fit
// within overlap characters. A single paragraph larger than chunkSize is
// kept whole.
func ChunkText(text string, pageMap []pdfextract.PageSpan, chunkSize, overlap int) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	type paragraph struct {
		start int
		text  string
	}

	var paragraphs []paragraph
	searchFrom := 0
	for _, block := range strings.Split(text, "\n\n") {
		blockText := strings.TrimSpace(block)
		if blockText == "" {
			continue
		}
		// Locate the block in the original text to keep true offsets.
		idx := strings.Index(text[searchFrom:], block)
		if idx == -1 {
			idx = searchFrom
		} else {
			idx += searchFrom
		}
		paragraphs = append(paragraphs, paragraph{start: idx, text: blockText})
		searchFrom = idx + len(block)
	}

	if len(paragraphs) == 0 {
		return []Chunk{{
			Text:      strings.TrimSpace(text),
			StartChar: 0,
			EndChar:   len(text),
			Pages:     findPages(0, len(text), pageMap),
		}}
	}

	var chunks []Chunk
	var currentTexts []string
	currentStart := paragraphs[0].start
	currentLen := 0

	for _, para := range paragraphs {
		paraLen := len(para.text)

		if currentLen+paraLen > chunkSize && len(currentTexts) > 0 {
			chunkBody := strings.Join(currentTexts, "\n\n")
			endChar := currentStart + len(chunkBody)
			chunks = append(chunks, Chunk{
				Text:      chunkBody,
				StartChar: currentStart,
				EndChar:   endChar,
				Pages:     findPages(currentStart, endChar, pageMap),
			})

			// Seed the next chunk with trailing whole paragraphs that fit
			// within the overlap budget.
			var overlapTexts []string
			overlapLen := 0
			for i := len(currentTexts) - 1; i >= 0; i-- {
				t := currentTexts[i]
				if overlapLen+len(t) > overlap {
					break
				}
				overlapTexts = append([]string{t}, overlapTexts...)
				overlapLen += len(t)
			}

			currentTexts = overlapTexts
			currentLen = overlapLen
			if len(overlapTexts) > 0 {
				currentStart = endChar - overlapLen
			} else {
				currentStart = para.start
			}
		}

		currentTexts = append(currentTexts, para.text)
		currentLen += paraLen
	}

	if len(currentTexts) > 0 {
		chunkBody := strings.Join(currentTexts, "\n\n")
		endChar := currentStart + len(chunkBody)
		chunks = append(chunks, Chunk{
			Text:      chunkBody,
			StartChar: currentStart,
			EndChar:   endChar,
			Pages:     findPages(currentStart, endChar, pageMap),
		})
	}

	return chunks
}

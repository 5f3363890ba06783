package chunker

import (
	"strings"
	"testing"

	"github.com/serisow/docpilot/pdfextract"
)

func TestChunkTextEmptyInput(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty string", text: ""},
		{name: "whitespace only", text: "   \n\n  \t "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := ChunkText(tt.text, nil, DefaultChunkSize, DefaultOverlap)
			if len(chunks) != 0 {
				t.Errorf("expected no chunks, got %d", len(chunks))
			}
		})
	}
}

func TestChunkTextNoParagraphBreaks(t *testing.T) {
	text := "one long run of text without any blank lines"
	pageMap := []pdfextract.PageSpan{{Page: 1, StartChar: 0, EndChar: len(text)}}

	chunks := ChunkText(text, pageMap, DefaultChunkSize, DefaultOverlap)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text {
		t.Errorf("chunk text = %q, want %q", chunks[0].Text, text)
	}
	if len(chunks[0].Pages) != 1 || chunks[0].Pages[0] != 1 {
		t.Errorf("chunk pages = %v, want [1]", chunks[0].Pages)
	}
}

func TestChunkTextNeverSplitsParagraphs(t *testing.T) {
	paraA := strings.Repeat("a", 100)
	paraB := strings.Repeat("b", 100)
	text := paraA + "\n\n" + paraB

	chunks := ChunkText(text, nil, 150, 0)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != paraA {
		t.Errorf("chunk 0 should be exactly paragraph A")
	}
	if chunks[1].Text != paraB {
		t.Errorf("chunk 1 should be exactly paragraph B")
	}
	if chunks[0].StartChar != 0 || chunks[0].EndChar != 100 {
		t.Errorf("chunk 0 offsets = [%d,%d), want [0,100)", chunks[0].StartChar, chunks[0].EndChar)
	}
	if chunks[1].StartChar != 102 || chunks[1].EndChar != 202 {
		t.Errorf("chunk 1 offsets = [%d,%d), want [102,202)", chunks[1].StartChar, chunks[1].EndChar)
	}
}

func TestChunkTextOversizedParagraphKeptWhole(t *testing.T) {
	para := strings.Repeat("x", 3000)

	chunks := ChunkText(para, nil, 2000, 200)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != para {
		t.Errorf("oversized paragraph must not be split")
	}
}

func TestChunkTextOverlap(t *testing.T) {
	paraA := strings.Repeat("a", 80)
	paraB := strings.Repeat("b", 80)
	paraC := strings.Repeat("c", 80)
	text := paraA + "\n\n" + paraB + "\n\n" + paraC

	chunks := ChunkText(text, nil, 200, 100)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	want0 := paraA + "\n\n" + paraB
	want1 := paraB + "\n\n" + paraC
	if chunks[0].Text != want0 {
		t.Errorf("chunk 0 = %q, want %q", chunks[0].Text, want0)
	}
	if chunks[1].Text != want1 {
		t.Errorf("chunk 1 = %q, want %q", chunks[1].Text, want1)
	}

	// The overlap region is a suffix of the prior chunk and a prefix of
	// the next, and stays within the overlap budget.
	if !strings.HasSuffix(chunks[0].Text, paraB) {
		t.Error("overlap text should be a suffix of the prior chunk")
	}
	if !strings.HasPrefix(chunks[1].Text, paraB) {
		t.Error("overlap text should be a prefix of the next chunk")
	}
	if len(paraB) > 100 {
		t.Error("overlap exceeds the configured budget")
	}
}

func TestChunkTextPageAttribution(t *testing.T) {
	paraA := strings.Repeat("a", 80)
	paraB := strings.Repeat("b", 80)
	paraC := strings.Repeat("c", 80)
	text := paraA + "\n\n" + paraB + "\n\n" + paraC

	pageMap := []pdfextract.PageSpan{
		{Page: 1, StartChar: 0, EndChar: 82},
		{Page: 2, StartChar: 82, EndChar: len(text)},
	}

	chunks := ChunkText(text, pageMap, 200, 100)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	// Chunk 0 spans [0,162) which intersects both pages.
	if got := chunks[0].Pages; len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("chunk 0 pages = %v, want [1 2]", got)
	}
	// Chunk 1 spans [82,244); page 1 ends exactly at its start so only
	// page 2 intersects.
	if got := chunks[1].Pages; len(got) != 1 || got[0] != 2 {
		t.Errorf("chunk 1 pages = %v, want [2]", got)
	}
}

package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// Document is one uploaded contract file and the durable record the
// pipeline mutates. Status is the source of truth for the run's state;
// progress messages on the pub/sub channel are only a timing aid.
type Document struct {
	ID            uuid.UUID  `json:"id"`
	TeamID        uuid.UUID  `json:"team_id"`
	UploadedBy    uuid.UUID  `json:"uploaded_by"`
	Filename      string     `json:"filename"`
	FilePath      string     `json:"file_path"`
	FileSizeBytes *int64     `json:"file_size_bytes,omitempty"`
	PageCount     *int       `json:"page_count,omitempty"`
	RawText       *string    `json:"raw_text,omitempty"`
	DocType       *string    `json:"doc_type,omitempty"`
	Status        DocumentStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Extraction is one structured field-set result from one pipeline run.
// Rows accumulate across reprocess attempts and are never mutated.
type Extraction struct {
	ID            uuid.UUID       `json:"id"`
	DocumentID    uuid.UUID       `json:"document_id"`
	ExtractedData json.RawMessage `json:"extracted_data"`
	ModelUsed     string          `json:"model_used,omitempty"`
	ProcessingMS  int             `json:"processing_ms,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Clause is one identified, risk-annotated excerpt of contract text.
type Clause struct {
	ID           uuid.UUID `json:"id"`
	DocumentID   uuid.UUID `json:"document_id"`
	ClauseType   string    `json:"clause_type"`
	OriginalText string    `json:"original_text"`
	PlainSummary *string   `json:"plain_summary,omitempty"`
	RiskLevel    *string   `json:"risk_level,omitempty"`
	RiskReason   *string   `json:"risk_reason,omitempty"`
	Confidence   *float64  `json:"confidence,omitempty"`
	PageNumber   *int      `json:"page_number,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

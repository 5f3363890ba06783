package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("document not found")

// Store is the persistence surface the pipeline drives. Each pipeline run
// owns its own Store instance backed by a dedicated connection.
type Store interface {
	GetDocument(ctx context.Context, id uuid.UUID) (*Document, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status DocumentStatus) error
	SaveExtractedText(ctx context.Context, id uuid.UUID, rawText string, pageCount int) error
	SaveDocType(ctx context.Context, id uuid.UUID, docType string) error
	InsertExtraction(ctx context.Context, e *Extraction) error
	InsertClauses(ctx context.Context, clauses []*Clause) error
}

// Querier covers both *pgx.Conn and *pgxpool.Pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgStore struct {
	db Querier
}

func NewPgStore(db Querier) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	var d Document
	err := s.db.QueryRow(ctx, `
		SELECT id, team_id, uploaded_by, filename, file_path, file_size_bytes,
		       page_count, raw_text, doc_type, status, created_at, updated_at
		FROM documents
		WHERE id = $1`, id).Scan(
		&d.ID,
		&d.TeamID,
		&d.UploadedBy,
		&d.Filename,
		&d.FilePath,
		&d.FileSizeBytes,
		&d.PageCount,
		&d.RawText,
		&d.DocType,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return &d, nil
}

func (s *PgStore) UpdateStatus(ctx context.Context, id uuid.UUID, status DocumentStatus) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE documents SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update status for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) SaveExtractedText(ctx context.Context, id uuid.UUID, rawText string, pageCount int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE documents SET raw_text = $2, page_count = $3, updated_at = $4 WHERE id = $1`,
		id, rawText, pageCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save extracted text for %s: %w", id, err)
	}
	return nil
}

func (s *PgStore) SaveDocType(ctx context.Context, id uuid.UUID, docType string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE documents SET doc_type = $2, updated_at = $3 WHERE id = $1`,
		id, docType, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save doc_type for %s: %w", id, err)
	}
	return nil
}

func (s *PgStore) InsertExtraction(ctx context.Context, e *Extraction) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO extractions (id, document_id, extracted_data, model_used, processing_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.DocumentID, e.ExtractedData, e.ModelUsed, e.ProcessingMS, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert extraction for %s: %w", e.DocumentID, err)
	}
	return nil
}

func (s *PgStore) InsertClauses(ctx context.Context, clauses []*Clause) error {
	now := time.Now().UTC()
	for _, c := range clauses {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		_, err := s.db.Exec(ctx, `
			INSERT INTO clauses (id, document_id, clause_type, original_text, plain_summary,
			                     risk_level, risk_reason, confidence, page_number, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			c.ID, c.DocumentID, c.ClauseType, c.OriginalText, c.PlainSummary,
			c.RiskLevel, c.RiskReason, c.Confidence, c.PageNumber, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert clause for %s: %w", c.DocumentID, err)
		}
	}
	return nil
}

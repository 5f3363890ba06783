package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps documents and their child rows in process memory.
// Used by tests and by local development without Postgres.
type MemoryStore struct {
	mu          sync.RWMutex
	documents   map[uuid.UUID]*Document
	extractions map[uuid.UUID][]*Extraction
	clauses     map[uuid.UUID][]*Clause
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents:   make(map[uuid.UUID]*Document),
		extractions: make(map[uuid.UUID][]*Extraction),
		clauses:     make(map[uuid.UUID][]*Clause),
	}
}

func (s *MemoryStore) PutDocument(d *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *d
	s.documents[d.ID] = &copied
}

func (s *MemoryStore) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, status DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return ErrNotFound
	}
	d.Status = status
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) SaveExtractedText(ctx context.Context, id uuid.UUID, rawText string, pageCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return ErrNotFound
	}
	d.RawText = &rawText
	d.PageCount = &pageCount
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) SaveDocType(ctx context.Context, id uuid.UUID, docType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return ErrNotFound
	}
	d.DocType = &docType
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) InsertExtraction(ctx context.Context, e *Extraction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.extractions[e.DocumentID] = append(s.extractions[e.DocumentID], e)
	return nil
}

func (s *MemoryStore) InsertClauses(ctx context.Context, clauses []*Clause) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, c := range clauses {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		s.clauses[c.DocumentID] = append(s.clauses[c.DocumentID], c)
	}
	return nil
}

// Extractions returns the accumulated extraction rows for a document.
func (s *MemoryStore) Extractions(id uuid.UUID) []*Extraction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Extraction(nil), s.extractions[id]...)
}

// Clauses returns the accumulated clause rows for a document.
func (s *MemoryStore) Clauses(id uuid.UUID) []*Clause {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Clause(nil), s.clauses[id]...)
}

package service

import (
	"sync"
	"time"

	"github.com/Gabriel-Santos7/zapsign-api/model"
)

// DocumentStore is an in-memory store for the Document/Signer aggregate,
// the append-only analysis history and the set of applied webhook event
// ids. In production, this should be replaced with a database.
//
// The store also owns the per-document serialization locks: every
// state-machine mutation, dedup check and analysis append for one
// document happens inside the critical section returned by LockDocument.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*model.Document
	byToken   map[string]string // external token -> document ID
	analyses  map[string][]*model.AnalysisRecord
	applied   map[string]map[string]struct{} // document ID -> event IDs
	locks     map[string]*sync.Mutex
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]*model.Document),
		byToken:   make(map[string]string),
		analyses:  make(map[string][]*model.AnalysisRecord),
		applied:   make(map[string]map[string]struct{}),
		locks:     make(map[string]*sync.Mutex),
	}
}

// LockDocument acquires the exclusive critical section for a document and
// returns the release function. Cross-document operations never contend.
func (s *DocumentStore) LockDocument(id string) func() {
	s.mu.Lock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (s *DocumentStore) SaveDocument(doc *model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.UpdatedAt = time.Now()
	s.documents[doc.ID] = doc
	if doc.ExternalToken != "" {
		s.byToken[doc.ExternalToken] = doc.ID
	}
}

func (s *DocumentStore) GetDocument(id string) *model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documents[id]
}

// GetByToken resolves a document by its provider-assigned token.
func (s *DocumentStore) GetByToken(token string) *model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byToken[token]
	if !ok {
		return nil
	}
	return s.documents[id]
}

func (s *DocumentStore) ListByCompany(companyID string) []*model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Document
	for _, d := range s.documents {
		if d.CompanyID == companyID {
			result = append(result, d)
		}
	}
	return result
}

// DeleteDocument removes the document and cascades to its signers,
// analysis history, applied event ids and lock. It waits for the
// document's critical section, so an in-flight webhook delivery or
// analysis append finishes (or sees the document gone) before the
// cascade runs.
func (s *DocumentStore) DeleteDocument(id string) {
	unlock := s.LockDocument(id)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.documents[id]; ok && d.ExternalToken != "" {
		delete(s.byToken, d.ExternalToken)
	}
	delete(s.documents, id)
	delete(s.analyses, id)
	delete(s.applied, id)
	delete(s.locks, id)
}

// AppendAnalysis appends a record to the document's analysis history.
// Records are never mutated or deleted once appended.
func (s *DocumentStore) AppendAnalysis(rec *model.AnalysisRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses[rec.DocumentID] = append(s.analyses[rec.DocumentID], rec)
}

// Analyses returns the analysis history for a document, oldest first.
func (s *DocumentStore) Analyses(documentID string) []*model.AnalysisRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.analyses[documentID]
	result := make([]*model.AnalysisRecord, len(records))
	copy(result, records)
	return result
}

// EventApplied reports whether a webhook event id was already applied to
// the document. Callers must hold the document's lock so that the check
// and MarkEventApplied form one atomic step.
func (s *DocumentStore) EventApplied(documentID, eventID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.applied[documentID][eventID]
	return ok
}

func (s *DocumentStore) MarkEventApplied(documentID, eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.applied[documentID] == nil {
		s.applied[documentID] = make(map[string]struct{})
	}
	s.applied[documentID][eventID] = struct{}{}
}

// Count returns the number of documents in the store.
func (s *DocumentStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// Package document tracks the open text documents of one editor
// session: their content, language id, and monotonically increasing
// version numbers.
package document

import (
	"errors"
	"sync"
	"time"
)

// Errors returned by the store.
var (
	// ErrAlreadyOpen indicates the document is already tracked.
	ErrAlreadyOpen = errors.New("document already open")

	// ErrNotOpen indicates the document is not tracked.
	ErrNotOpen = errors.New("document not open")
)

// Document is one open text document. Values handed out by the store
// are copies; mutating them does not affect the stored state.
type Document struct {
	URI        string
	LanguageID string
	Version    int
	Text       string
	OpenedAt   time.Time
	ModifiedAt time.Time
}

// Store tracks open documents by URI. All methods are safe for
// concurrent use.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewStore creates an empty document store.
func NewStore() *Store {
	return &Store{docs: make(map[string]*Document)}
}

// Open starts tracking a document. Opening an already-open URI is an
// error.
func (s *Store) Open(uri, languageID string, version int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[uri]; exists {
		return ErrAlreadyOpen
	}
	now := time.Now()
	s.docs[uri] = &Document{
		URI:        uri,
		LanguageID: languageID,
		Version:    version,
		Text:       text,
		OpenedAt:   now,
		ModifiedAt: now,
	}
	return nil
}

// Update replaces the content and version of an open document and
// returns a copy of the new state. Versions are expected to increase;
// an equal or older version still updates content but keeps the higher
// version number so stale-validation guards stay correct.
func (s *Store) Update(uri string, version int, text string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, exists := s.docs[uri]
	if !exists {
		return Document{}, ErrNotOpen
	}
	if version > doc.Version {
		doc.Version = version
	}
	doc.Text = text
	doc.ModifiedAt = time.Now()
	return *doc, nil
}

// Close stops tracking a document.
func (s *Store) Close(uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[uri]; !exists {
		return ErrNotOpen
	}
	delete(s.docs, uri)
	return nil
}

// Get returns a copy of the document at uri.
func (s *Store) Get(uri string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.docs[uri]
	if !exists {
		return Document{}, false
	}
	return *doc, true
}

// All returns copies of every open document.
func (s *Store) All() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, *doc)
	}
	return out
}

// Len returns the number of open documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

package lsp

import "sync"

// Document is the last full text the client sent for a URI.
type Document struct {
	Text    string
	Version int32
}

// Store holds open documents. glsp runs handlers on its own goroutine, so
// every access goes through the mutex.
type Store struct {
	mu   sync.RWMutex
	docs map[string]Document // uri -> document
}

func NewStore() *Store {
	return &Store{docs: map[string]Document{}}
}

// Set records text for uri. Older versions are ignored; a version of 0
// always wins (didSave carries no version).
func (s *Store) Set(uri, text string, version int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.docs[uri]; ok && version != 0 && version < cur.Version {
		return false
	}
	s.docs[uri] = Document{Text: text, Version: version}
	return true
}

func (s *Store) Get(uri string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[uri]
	return d, ok
}

func (s *Store) Delete(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

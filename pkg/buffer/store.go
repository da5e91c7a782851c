// Package buffer implements the run-scoped, in-memory variable store that
// backs `@input variable:` / `@output variable:` directives (§4.8).
package buffer

import (
	"sync"

	"github.com/dodgybadger/assistantmd/pkg/logger"
)

var log = logger.New("buffer:store")

// Mode controls how Put combines new content with whatever a name already holds.
type Mode int

const (
	Replace Mode = iota
	Append
)

// Entry is a single named buffer value plus whatever metadata the writer attached.
type Entry struct {
	Name     string
	Content  string
	Metadata map[string]string
}

// Store is a per-run (or per-chat-turn) container of named buffers. It is
// never shared across runs — the step engine and chat executor each create
// one at the start of a run/turn and discard it at the end.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New returns an empty Store.
func New() *Store {
	return &Store{entries: map[string]Entry{}}
}

// Put writes content into the named buffer under the given mode. Append
// concatenates with a single "\n" separator when both the prior and new
// content are non-empty; Replace overwrites unconditionally.
func (s *Store) Put(name, content string, mode Mode, metadata map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, had := s.entries[name]
	var next string
	switch mode {
	case Append:
		switch {
		case !had || existing.Content == "":
			next = content
		case content == "":
			next = existing.Content
		default:
			next = existing.Content + "\n" + content
		}
	default: // Replace
		next = content
	}

	s.entries[name] = Entry{Name: name, Content: next, Metadata: metadata}
	log.Printf("put name=%s mode=%v len=%d", name, mode, len(next))
}

// Get returns the buffer's content, or "" if the name has never been set.
// Callers implementing `@input variable:X (required)` should use Has to
// detect the unset case and skip the step rather than proceed with "".
func (s *Store) Get(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[name].Content
}

// Has reports whether name has ever been written, distinguishing "unset"
// from "set to an empty string".
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[name]
	return ok
}

// GetEntry returns the full Entry (content + metadata) for name.
func (s *Store) GetEntry(name string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	return e, ok
}

// List returns every buffer name currently set, in no particular order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

// Clear removes a single named buffer.
func (s *Store) Clear(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, name)
}

// ClearAll empties the store, e.g. at run completion.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[string]Entry{}
}

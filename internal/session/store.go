package session

import (
	"errors"
	"sort"
	"sync"

	"api-tester-mcp/internal/types"
)

var (
	// ErrNotFound is returned for unknown session ids
	ErrNotFound = errors.New("session not found")
	// ErrBusy is returned when a run is already in progress for the session
	ErrBusy = errors.New("a test run is already in progress for this session")
)

type entry struct {
	mu      sync.Mutex
	session *types.TestSession
	running bool
}

// Store holds sessions in memory for the lifetime of the process. Each session
// has its own lock; readers get copies, writers go through Update.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{sessions: make(map[string]*entry)}
}

// Create adds a session, replacing any session with the same id
func (s *Store) Create(session *types.TestSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = &entry{session: clone(session)}
}

func (s *Store) lookup(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// Get returns a copy of the session
func (s *Store) Get(id string) (*types.TestSession, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return clone(e.session), nil
}

// Update applies fn to the session under its lock. The change is kept only
// when fn succeeds.
func (s *Store) Update(id string, fn func(*types.TestSession) error) (*types.TestSession, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	working := clone(e.session)
	if err := fn(working); err != nil {
		return nil, err
	}
	e.session = working
	return clone(working), nil
}

// BeginRun marks the session as running. The returned function ends the run.
func (s *Store) BeginRun(id string) (func(), error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return nil, ErrBusy
	}
	e.running = true
	return func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}, nil
}

// Running reports whether a run is in progress for the session
func (s *Store) Running(id string) bool {
	e, err := s.lookup(id)
	if err != nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// IDs returns the ids of all sessions, sorted
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// clone copies the session header and its env map. Artifact slices are
// replaced wholesale on regeneration and never modified in place, so they
// are shared.
func clone(s *types.TestSession) *types.TestSession {
	out := *s
	if s.EnvVars != nil {
		out.EnvVars = make(map[string]string, len(s.EnvVars))
		for k, v := range s.EnvVars {
			out.EnvVars[k] = v
		}
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

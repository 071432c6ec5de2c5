package importer

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openassembly/propmove/internal/export"
)

// ErrSessionNotFound is returned when an importId names no live session.
var ErrSessionNotFound = errors.New("import session not found or expired")

// Session bridges analysis and execution. ExportData and Report are set
// once at creation; Configuration is set at most once before execution.
type Session struct {
	ID            string
	UserID        string
	ExportData    *export.Data
	Report        *ConflictReport
	Configuration *ImportConfiguration
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// SessionStore holds sessions in memory with a fixed TTL. An expired
// session behaves identically to a missing one and is evicted when
// touched.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a store whose sessions live for ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// NewImportID mints an opaque session key.
func NewImportID() string {
	return "imp-" + uuid.New().String()
}

// Save registers a freshly analyzed session and sweeps any session
// whose expiry has passed.
func (s *SessionStore) Save(userID string, data *export.Data, report *ConflictReport) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, session := range s.sessions {
		if !session.ExpiresAt.After(now) {
			delete(s.sessions, id)
		}
	}

	session := &Session{
		ID:         report.ImportID,
		UserID:     userID,
		ExportData: data,
		Report:     report,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}
	s.sessions[session.ID] = session
	return session
}

// Get returns the session for importID, or nil when it is absent or
// expired. Expired sessions are evicted on read.
func (s *SessionStore) Get(importID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[importID]
	if !ok {
		return nil
	}
	if !session.ExpiresAt.After(s.now()) {
		delete(s.sessions, importID)
		return nil
	}
	return session
}

// UpdateConfiguration attaches a configuration to a live session.
// Silently no-ops when the session is missing or expired; callers use
// Get to distinguish "missing" from "configured".
func (s *SessionStore) UpdateConfiguration(importID string, cfg *ImportConfiguration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[importID]
	if !ok {
		return
	}
	if !session.ExpiresAt.After(s.now()) {
		delete(s.sessions, importID)
		return
	}
	session.Configuration = cfg
}

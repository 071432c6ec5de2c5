package importer

import (
	"database/sql"
	"time"

	"github.com/openassembly/propmove/internal/events"
	"github.com/openassembly/propmove/internal/export"
	"github.com/openassembly/propmove/internal/filestore"
)

// Service bundles the analyzer, the session store and the executor
// behind the four operations callers use.
type Service struct {
	sessions *SessionStore
	analyzer *Analyzer
	executor *Executor
}

// NewService wires a service against one database, file store and
// audit writer. Sessions expire after ttl.
func NewService(db *sql.DB, files *filestore.Store, ev *events.Writer, ttl time.Duration) *Service {
	sessions := NewSessionStore(ttl)
	return &Service{
		sessions: sessions,
		analyzer: NewAnalyzer(db, sessions),
		executor: NewExecutor(db, files, ev, sessions),
	}
}

// AnalyzeImport runs conflict analysis and registers a session.
func (s *Service) AnalyzeImport(data *export.Data, importerID string) (*ConflictReport, error) {
	return s.analyzer.AnalyzeImport(data, importerID)
}

// GetImportSession returns a live session or nil.
func (s *Service) GetImportSession(importID string) *Session {
	return s.sessions.Get(importID)
}

// UpdateSessionConfiguration attaches resolutions to a live session.
func (s *Service) UpdateSessionConfiguration(importID string, cfg *ImportConfiguration) {
	s.sessions.UpdateConfiguration(importID, cfg)
}

// ExecuteImport applies a configured session transactionally.
func (s *Service) ExecuteImport(cfg *ImportConfiguration, actingUserID string) (*ImportResult, error) {
	return s.executor.ExecuteImport(cfg, actingUserID)
}

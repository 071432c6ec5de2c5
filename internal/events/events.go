package events

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/openassembly/propmove/internal/domain"
)

// Writer handles writing events to the audit event log
type Writer struct {
	db *sql.DB
}

// NewWriter creates a new event writer
func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// LogEvent writes an event to the event log
func (w *Writer) LogEvent(tx *sql.Tx, event *domain.Event) error {
	query := `
		INSERT INTO event_log (actor_id, resource_type, resource_id, event_type, payload)
		VALUES (?, ?, ?, ?, ?)
	`

	executor := w.getExecutor(tx)
	_, err := executor.Exec(query, event.ActorID, event.ResourceType, event.ResourceID, event.EventType, event.Payload)
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// LogPropositionImported logs the creation of a proposition from an
// import document.
func (w *Writer) LogPropositionImported(tx *sql.Tx, actorID string, prop *domain.Proposition, sourceID string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"title":     prop.Title,
		"status":    prop.Status,
		"source_id": sourceID,
	})
	if err != nil {
		return err
	}

	payloadStr := string(payload)
	event := &domain.Event{
		ActorID:      &actorID,
		ResourceType: "proposition",
		ResourceID:   &prop.ID,
		EventType:    "proposition.imported",
		Payload:      &payloadStr,
	}

	return w.LogEvent(tx, event)
}

// LogPropositionMerged logs a merge of incoming data into an existing
// proposition.
func (w *Writer) LogPropositionMerged(tx *sql.Tx, actorID string, propositionID, sourceID string, fields []string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"source_id":     sourceID,
		"merged_fields": fields,
	})
	if err != nil {
		return err
	}

	payloadStr := string(payload)
	event := &domain.Event{
		ActorID:      &actorID,
		ResourceType: "proposition",
		ResourceID:   &propositionID,
		EventType:    "proposition.merged",
		Payload:      &payloadStr,
	}

	return w.LogEvent(tx, event)
}

// LogUserImported logs the creation of a user during import.
func (w *Writer) LogUserImported(tx *sql.Tx, actorID string, user *domain.User, sourceID string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"username":  user.Username,
		"email":     user.Email,
		"source_id": sourceID,
	})
	if err != nil {
		return err
	}

	payloadStr := string(payload)
	event := &domain.Event{
		ActorID:      &actorID,
		ResourceType: "user",
		ResourceID:   &user.ID,
		EventType:    "user.imported",
		Payload:      &payloadStr,
	}

	return w.LogEvent(tx, event)
}

// LogCategoryImported logs the creation of a category during import.
func (w *Writer) LogCategoryImported(tx *sql.Tx, actorID string, category *domain.Category, sourceID string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"name":      category.Name,
		"source_id": sourceID,
	})
	if err != nil {
		return err
	}

	payloadStr := string(payload)
	event := &domain.Event{
		ActorID:      &actorID,
		ResourceType: "category",
		ResourceID:   &category.ID,
		EventType:    "category.imported",
		Payload:      &payloadStr,
	}

	return w.LogEvent(tx, event)
}

// LogFileImported logs the materialization of an embedded file during
// import.
func (w *Writer) LogFileImported(tx *sql.Tx, actorID string, file *domain.File, sourceID string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"name":      file.Name,
		"size":      file.Size,
		"type":      file.Type,
		"source_id": sourceID,
	})
	if err != nil {
		return err
	}

	payloadStr := string(payload)
	event := &domain.Event{
		ActorID:      &actorID,
		ResourceType: "file",
		ResourceID:   &file.ID,
		EventType:    "file.imported",
		Payload:      &payloadStr,
	}

	return w.LogEvent(tx, event)
}

// getExecutor returns the appropriate executor (tx or db)
func (w *Writer) getExecutor(tx *sql.Tx) interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
} {
	if tx != nil {
		return tx
	}
	return w.db
}

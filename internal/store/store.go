// Package store provides tx-scoped persistence helpers for the target
// instance's entities. Every function takes a Queryer so callers decide
// whether reads and writes run on the connection or inside a transaction.
package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Queryer is satisfied by both *sql.DB and *sql.Tx.
type Queryer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// NewID mints a primary key.
func NewID() string {
	return uuid.New().String()
}

// nullableTime converts *time.Time for binding.
func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

// nullableString converts *string for binding.
func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

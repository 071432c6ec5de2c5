package importer

import (
	"testing"
	"time"
)

func testReport(importID string) *ConflictReport {
	return &ConflictReport{ImportID: importID, Conflicts: []ImportConflict{}, ValidationErrors: []ValidationError{}}
}

func TestSessionGetAndExpiry(t *testing.T) {
	store := NewSessionStore(time.Hour)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Save("user-1", exportDoc(), testReport("imp-a"))

	if store.Get("imp-a") == nil {
		t.Fatal("expected live session")
	}
	if store.Get("imp-missing") != nil {
		t.Fatal("expected nil for unknown id")
	}

	// Past the TTL the session behaves as absent and is evicted.
	now = now.Add(time.Hour + time.Minute)
	if store.Get("imp-a") != nil {
		t.Fatal("expected expired session to read as absent")
	}
	now = now.Add(-time.Hour)
	if store.Get("imp-a") != nil {
		t.Fatal("expected expired session to have been evicted, not just hidden")
	}
}

func TestSessionSweepOnSave(t *testing.T) {
	store := NewSessionStore(time.Hour)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Save("user-1", exportDoc(), testReport("imp-old"))

	now = now.Add(2 * time.Hour)
	store.Save("user-1", exportDoc(), testReport("imp-new"))

	if _, ok := store.sessions["imp-old"]; ok {
		t.Error("expected expired session swept on save")
	}
	if _, ok := store.sessions["imp-new"]; !ok {
		t.Error("expected new session present")
	}
}

func TestUpdateConfigurationSilentNoOp(t *testing.T) {
	store := NewSessionStore(time.Hour)

	// Missing session: no panic, no session created.
	store.UpdateConfiguration("imp-nope", &ImportConfiguration{ImportID: "imp-nope"})
	if len(store.sessions) != 0 {
		t.Error("update must not create sessions")
	}

	store.Save("user-1", exportDoc(), testReport("imp-b"))
	cfg := &ImportConfiguration{ImportID: "imp-b"}
	store.UpdateConfiguration("imp-b", cfg)

	session := store.Get("imp-b")
	if session == nil || session.Configuration != cfg {
		t.Error("expected configuration attached to live session")
	}
}

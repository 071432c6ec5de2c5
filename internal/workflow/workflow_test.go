package workflow

import (
	"testing"
	"time"

	"github.com/openassembly/propmove/internal/domain"
	"github.com/openassembly/propmove/internal/store"
	"github.com/openassembly/propmove/internal/testutil"
)

func TestApplyCreationDefaults(t *testing.T) {
	now := time.Now().UTC()
	p := &domain.Proposition{}
	ApplyCreationDefaults(p, now)

	if p.Status != domain.StatusDraft {
		t.Errorf("expected DRAFT, got %s", p.Status)
	}
	if p.Visibility != domain.VisibilityPrivate {
		t.Errorf("expected PRIVATE, got %s", p.Visibility)
	}
	if !p.StatusStartedAt.Equal(now) {
		t.Errorf("expected statusStartedAt %v, got %v", now, p.StatusStartedAt)
	}
	if p.SettingsSnapshot != "{}" {
		t.Errorf("expected empty settings object, got %q", p.SettingsSnapshot)
	}

	// Existing values are kept.
	p2 := &domain.Proposition{Status: domain.StatusVote, Visibility: domain.VisibilityPublic}
	ApplyCreationDefaults(p2, now)
	if p2.Status != domain.StatusVote || p2.Visibility != domain.VisibilityPublic {
		t.Error("defaults must not override explicit values")
	}
}

func TestRecordInitialHistory(t *testing.T) {
	db, _ := testutil.TempDB(t)

	actor, err := store.CreateUser(db, store.UserCreateParams{
		Username: "op", Email: "op@example.org", PasswordHash: "x",
	})
	testutil.AssertNoError(t, err)

	now := time.Now().UTC()
	p := &domain.Proposition{Title: "P", Summary: "s", CreatorID: actor.ID}
	ApplyCreationDefaults(p, now)
	testutil.AssertNoError(t, store.CreateProposition(db, p))

	testutil.AssertNoError(t, RecordInitialHistory(db, p, actor.ID, now))

	entries, err := store.StatusHistoryForProposition(db, p.ID)
	testutil.AssertNoError(t, err)
	if len(entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.FromStatus == nil || *entry.FromStatus != string(p.Status) {
		t.Error("expected fromStatus to anchor at the current status")
	}
	testutil.AssertEqual(t, string(p.Status), entry.ToStatus)
	if entry.Reason == nil || *entry.Reason != "initial creation" {
		t.Error("expected the standard initial reason")
	}
	if entry.TriggeredByUserID == nil || *entry.TriggeredByUserID != actor.ID {
		t.Error("expected the acting user recorded")
	}
}

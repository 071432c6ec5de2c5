// Package workflow applies proposition lifecycle defaults and records
// the status timeline.
package workflow

import (
	"time"

	"github.com/openassembly/propmove/internal/domain"
	"github.com/openassembly/propmove/internal/store"
)

// ApplyCreationDefaults fills the fields a freshly created proposition
// must always carry.
func ApplyCreationDefaults(p *domain.Proposition, now time.Time) {
	if p.Status == "" {
		p.Status = domain.StatusDraft
	}
	if p.StatusStartedAt.IsZero() {
		p.StatusStartedAt = now
	}
	if p.Visibility == "" {
		p.Visibility = domain.VisibilityPrivate
	}
	if p.SettingsSnapshot == "" {
		p.SettingsSnapshot = "{}"
	}
}

// RecordInitialHistory writes the first status-timeline row for a new
// proposition. From and to carry the same status so the timeline always
// has an anchor entry.
func RecordInitialHistory(q store.Queryer, p *domain.Proposition, actorID string, now time.Time) error {
	status := string(p.Status)
	reason := "initial creation"
	return store.InsertStatusHistory(q, &domain.StatusHistory{
		PropositionID:     p.ID,
		FromStatus:        &status,
		ToStatus:          status,
		TriggeredByUserID: &actorID,
		Reason:            &reason,
		Metadata:          "{}",
		CreatedAt:         now,
	})
}

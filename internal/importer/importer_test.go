package importer

import (
	"database/sql"
	"testing"
	"time"

	"github.com/openassembly/propmove/internal/domain"
	"github.com/openassembly/propmove/internal/events"
	"github.com/openassembly/propmove/internal/export"
	"github.com/openassembly/propmove/internal/filestore"
	"github.com/openassembly/propmove/internal/store"
	"github.com/openassembly/propmove/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *sql.DB, *filestore.Store) {
	t.Helper()
	db, _ := testutil.TempDB(t)
	files := filestore.New(t.TempDir())
	svc := NewService(db, files, events.NewWriter(db), time.Hour)
	return svc, db, files
}

func seedUser(t *testing.T, db *sql.DB, username, email string) *domain.User {
	t.Helper()
	user, err := store.CreateUser(db, store.UserCreateParams{
		Username:     username,
		Email:        email,
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedProposition(t *testing.T, db *sql.DB, title, creatorID string) *domain.Proposition {
	t.Helper()
	p := &domain.Proposition{
		Title:           title,
		Summary:         "existing summary",
		StatusStartedAt: time.Now().UTC(),
		CreatorID:       creatorID,
	}
	if err := store.CreateProposition(db, p); err != nil {
		t.Fatalf("seed proposition: %v", err)
	}
	return p
}

func userRef(sourceID, username, email string) export.UserReference {
	return export.UserReference{
		SourceID: sourceID,
		Username: username,
		Email:    email,
		Role:     "USER",
	}
}

func exportedProposition(sourceID, title string, creator export.UserReference) export.ExportedProposition {
	return export.ExportedProposition{
		SourceID:         sourceID,
		Title:            title,
		Summary:          "incoming summary",
		Status:           "DRAFT",
		StatusStartedAt:  "2025-05-01T12:00:00Z",
		Visibility:       "PRIVATE",
		SettingsSnapshot: map[string]interface{}{},
		CreatedAt:        "2025-05-01T12:00:00Z",
		UpdatedAt:        "2025-05-01T12:00:00Z",
		ExternalReferences: export.ExternalReferences{
			Creator:                creator,
			Categories:             []export.CategoryReference{},
			RescueInitiators:       []export.UserReference{},
			Attachments:            []export.FileReference{},
			AssociatedPropositions: []export.PropositionReference{},
		},
	}
}

func exportDoc(propositions ...export.ExportedProposition) *export.Data {
	return &export.Data{
		ExportVersion: export.Version,
		ExportedAt:    "2025-05-01T12:00:00Z",
		ExportedBy: export.ExportedBy{
			UserID:   "src-admin",
			Username: "admin",
			Email:    "admin@source.example",
		},
		SourceEnvironment: export.SourceEnvironment{Name: "source"},
		Propositions:      propositions,
	}
}

func conflictsOfType(report *ConflictReport, typ ConflictType) []ImportConflict {
	var out []ImportConflict
	for _, c := range report.Conflicts {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

package export

import (
	"database/sql"
	"encoding/base64"
	"testing"
	"time"

	"github.com/openassembly/propmove/internal/domain"
	"github.com/openassembly/propmove/internal/filestore"
	"github.com/openassembly/propmove/internal/store"
	"github.com/openassembly/propmove/internal/testutil"
)

func newTestExporter(t *testing.T) (*Exporter, *sql.DB, *filestore.Store) {
	t.Helper()
	db, _ := testutil.TempDB(t)
	files := filestore.New(t.TempDir())
	return NewExporter(db, files), db, files
}

func seedUser(t *testing.T, db *sql.DB, username, email string) *domain.User {
	t.Helper()
	user, err := store.CreateUser(db, store.UserCreateParams{
		Username:     username,
		Email:        email,
		PasswordHash: "x",
	})
	testutil.AssertNoError(t, err)
	return user
}

func seedProposition(t *testing.T, db *sql.DB, title, creatorID string) *domain.Proposition {
	t.Helper()
	p := &domain.Proposition{
		Title:           title,
		Summary:         "a summary",
		StatusStartedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
		CreatorID:       creatorID,
	}
	testutil.AssertNoError(t, store.CreateProposition(db, p))
	return p
}

func seedAttachment(t *testing.T, db *sql.DB, files *filestore.Store, propositionID string, payload []byte) *domain.File {
	t.Helper()
	id := store.NewID()
	path := filestore.RelativePath(id, ".pdf")
	_, err := files.WriteBuffer(path, payload)
	testutil.AssertNoError(t, err)

	file, err := store.CreateFile(db, store.FileCreateParams{
		ID:        id,
		Name:      "brief.pdf",
		Path:      path,
		Extension: ".pdf",
		MimeType:  "application/pdf",
		Size:      int64(len(payload)),
		Type:      domain.FileTypePropositionAttachment,
	})
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, store.AttachAttachments(db, propositionID, []string{file.ID}))
	return file
}

func TestExportDocumentShape(t *testing.T) {
	exporter, db, files := newTestExporter(t)
	alice := seedUser(t, db, "alice", "alice@example.org")
	prop := seedProposition(t, db, "Exported Idea", alice.ID)

	cat, err := store.CreateCategory(db, "Environment")
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, store.AttachCategories(db, prop.ID, []string{cat.ID}))

	payload := []byte("pdf bytes")
	seedAttachment(t, db, files, prop.ID, payload)

	doc, err := exporter.Export([]string{prop.ID}, alice.ID, "staging", Options{})
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, Version, doc.ExportVersion)
	testutil.AssertEqual(t, "alice", doc.ExportedBy.Username)
	testutil.AssertEqual(t, "staging", doc.SourceEnvironment.Name)
	testutil.AssertEqual(t, 1, len(doc.Propositions))

	exported := doc.Propositions[0]
	testutil.AssertEqual(t, prop.ID, exported.SourceID)
	testutil.AssertEqual(t, "Exported Idea", exported.Title)
	testutil.AssertEqual(t, "DRAFT", exported.Status)
	testutil.AssertEqual(t, "2025-05-01T12:00:00Z", exported.StatusStartedAt)

	refs := exported.ExternalReferences
	testutil.AssertEqual(t, alice.ID, refs.Creator.SourceID)
	testutil.AssertEqual(t, "alice@example.org", refs.Creator.Email)
	testutil.AssertEqual(t, 1, len(refs.Categories))
	testutil.AssertEqual(t, "Environment", refs.Categories[0].Name)

	testutil.AssertEqual(t, 1, len(refs.Attachments))
	testutil.AssertEqual(t, base64.StdEncoding.EncodeToString(payload), refs.Attachments[0].Data)
	testutil.AssertEqual(t, int64(len(payload)), refs.Attachments[0].Size)

	// Enriched data rides along only when asked for.
	if exported.StatusHistory != nil || exported.Votes != nil || exported.Comments != nil {
		t.Error("expected no enriched data without options")
	}
}

func TestExportUnknownUserFails(t *testing.T) {
	exporter, _, _ := newTestExporter(t)
	_, err := exporter.Export(nil, "no-such-user", "staging", Options{})
	testutil.AssertError(t, err)
}

func TestExportVotesAndBallots(t *testing.T) {
	exporter, db, _ := newTestExporter(t)
	alice := seedUser(t, db, "alice", "alice@example.org")
	prop := seedProposition(t, db, "Voted Idea", alice.ID)

	vote := &domain.Vote{
		PropositionID: prop.ID,
		Phase:         "FINAL",
		Method:        "SIMPLE",
		Status:        "CLOSED",
	}
	testutil.AssertNoError(t, store.InsertVote(db, vote))
	label := "Yes"
	option := &domain.VoteOption{VoteID: vote.ID, Label: &label, Position: 0}
	testutil.AssertNoError(t, store.InsertVoteOption(db, option))
	testutil.AssertNoError(t, store.InsertVoteBallot(db, &domain.VoteBallot{
		VoteID:     vote.ID,
		VoterID:    alice.ID,
		Payload:    `{"selectedOptions":["` + option.ID + `"]}`,
		RecordedAt: time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC),
	}))

	doc, err := exporter.Export([]string{prop.ID}, alice.ID, "staging", Options{IncludeVotes: true})
	testutil.AssertNoError(t, err)
	exported := doc.Propositions[0].Votes
	testutil.AssertEqual(t, 1, len(exported))
	testutil.AssertEqual(t, vote.ID, exported[0].SourceID)
	testutil.AssertEqual(t, 1, len(exported[0].Options))
	testutil.AssertEqual(t, 0, len(exported[0].Ballots))

	doc, err = exporter.Export([]string{prop.ID}, alice.ID, "staging", Options{IncludeVotes: true, IncludeBallots: true})
	testutil.AssertNoError(t, err)
	ballots := doc.Propositions[0].Votes[0].Ballots
	testutil.AssertEqual(t, 1, len(ballots))
	testutil.AssertEqual(t, "alice", ballots[0].Voter.Username)
	testutil.AssertEqual(t, "2025-05-02T09:00:00Z", ballots[0].RecordedAt)
}

func TestExportCommentsKeepThreading(t *testing.T) {
	exporter, db, _ := newTestExporter(t)
	alice := seedUser(t, db, "alice", "alice@example.org")
	prop := seedProposition(t, db, "Discussed Idea", alice.ID)

	root := &domain.Comment{
		PropositionID: prop.ID,
		AuthorID:      alice.ID,
		Scope:         "GENERAL",
		Visibility:    "PUBLIC",
		Content:       "root",
		CreatedAt:     time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC),
	}
	testutil.AssertNoError(t, store.InsertComment(db, root))
	reply := &domain.Comment{
		PropositionID: prop.ID,
		ParentID:      &root.ID,
		AuthorID:      alice.ID,
		Scope:         "GENERAL",
		Visibility:    "PUBLIC",
		Content:       "reply",
		CreatedAt:     time.Date(2025, 5, 2, 11, 0, 0, 0, time.UTC),
	}
	testutil.AssertNoError(t, store.InsertComment(db, reply))

	doc, err := exporter.Export([]string{prop.ID}, alice.ID, "staging", Options{IncludeComments: true})
	testutil.AssertNoError(t, err)

	comments := doc.Propositions[0].Comments
	testutil.AssertEqual(t, 2, len(comments))
	testutil.AssertEqual(t, root.ID, comments[0].SourceID)
	if comments[0].ParentSourceID != nil {
		t.Error("root comment must have no parent")
	}
	if comments[1].ParentSourceID == nil || *comments[1].ParentSourceID != root.ID {
		t.Error("reply must reference the root's id")
	}
}

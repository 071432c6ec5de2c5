package store

import (
	"testing"
	"time"

	"github.com/openassembly/propmove/internal/domain"
	"github.com/openassembly/propmove/internal/testutil"
)

func seedUser(t *testing.T, q Queryer, username, email string) *domain.User {
	t.Helper()
	user, err := CreateUser(q, UserCreateParams{
		Username:     username,
		Email:        email,
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func seedProposition(t *testing.T, q Queryer, title, creatorID string) *domain.Proposition {
	t.Helper()
	p := &domain.Proposition{
		Title:           title,
		Summary:         "summary",
		StatusStartedAt: time.Now().UTC(),
		CreatorID:       creatorID,
	}
	if err := CreateProposition(q, p); err != nil {
		t.Fatalf("CreateProposition failed: %v", err)
	}
	return p
}

func TestCreateAndGetUser(t *testing.T) {
	db, _ := testutil.TempDB(t)

	user := seedUser(t, db, "alice", "alice@example.org")
	if user.Role != domain.RoleUser {
		t.Errorf("expected default role USER, got %s", user.Role)
	}
	if !user.Enabled {
		t.Error("expected user enabled")
	}

	loaded, err := GetUser(db, user.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "alice", loaded.Username)
}

func TestFindUserByEmailOrUsername(t *testing.T) {
	db, _ := testutil.TempDB(t)
	seedUser(t, db, "bob", "bob@example.org")

	user, err := FindUserByEmailOrUsername(db, "bob@example.org", "nobody")
	testutil.AssertNoError(t, err)
	if user == nil {
		t.Fatal("expected match by email")
	}

	user, err = FindUserByEmailOrUsername(db, "none@example.org", "bob")
	testutil.AssertNoError(t, err)
	if user == nil {
		t.Fatal("expected match by username")
	}

	user, err = FindUserByEmailOrUsername(db, "none@example.org", "nobody")
	testutil.AssertNoError(t, err)
	if user != nil {
		t.Fatal("expected no match")
	}
}

func TestFindUserBySelector(t *testing.T) {
	db, _ := testutil.TempDB(t)
	created := seedUser(t, db, "carol", "carol@example.org")

	for _, selector := range []string{created.ID, "carol", "carol@example.org"} {
		user, err := FindUserBySelector(db, selector)
		testutil.AssertNoError(t, err)
		if user == nil || user.ID != created.ID {
			t.Errorf("selector %q did not resolve", selector)
		}
	}
}

func TestCategoryLifecycle(t *testing.T) {
	db, _ := testutil.TempDB(t)

	cat, err := CreateCategory(db, "Environment")
	testutil.AssertNoError(t, err)

	found, err := FindCategoryByName(db, "Environment")
	testutil.AssertNoError(t, err)
	if found == nil || found.ID != cat.ID {
		t.Fatal("category not found by name")
	}

	missing, err := FindCategoryByName(db, "Nope")
	testutil.AssertNoError(t, err)
	if missing != nil {
		t.Fatal("expected nil for missing category")
	}

	CreateCategory(db, "Agriculture")
	cats, err := ListCategories(db)
	testutil.AssertNoError(t, err)
	if len(cats) != 2 || cats[0].Name != "Agriculture" {
		t.Errorf("expected name-ordered list, got %+v", cats)
	}
}

func TestFindPropositionsByTitle(t *testing.T) {
	db, _ := testutil.TempDB(t)
	alice := seedUser(t, db, "alice", "alice@example.org")
	bob := seedUser(t, db, "bob", "bob@example.org")

	seedProposition(t, db, "Shared Title", alice.ID)
	seedProposition(t, db, "Shared Title", bob.ID)
	seedProposition(t, db, "Other", alice.ID)

	matches, err := FindPropositionsByTitle(db, "Shared Title")
	testutil.AssertNoError(t, err)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	for _, m := range matches {
		if m.CreatorUsername == "" || m.CreatorEmail == "" {
			t.Error("expected creator identity fields on match")
		}
	}
}

func TestListActivePropositionsExcludesArchived(t *testing.T) {
	db, _ := testutil.TempDB(t)
	alice := seedUser(t, db, "alice", "alice@example.org")

	seedProposition(t, db, "Active", alice.ID)
	archived := &domain.Proposition{
		Title:           "Archived",
		Summary:         "s",
		Status:          domain.StatusArchived,
		StatusStartedAt: time.Now().UTC(),
		CreatorID:       alice.ID,
	}
	if err := CreateProposition(db, archived); err != nil {
		t.Fatalf("CreateProposition failed: %v", err)
	}

	props, err := ListActivePropositions(db, 100)
	testutil.AssertNoError(t, err)
	if len(props) != 1 || props[0].Title != "Active" {
		t.Errorf("expected only the active proposition, got %+v", props)
	}
}

func TestUpdatePropositionContent(t *testing.T) {
	db, _ := testutil.TempDB(t)
	alice := seedUser(t, db, "alice", "alice@example.org")
	p := seedProposition(t, db, "Original", alice.ID)

	p.Summary = "rewritten"
	testutil.AssertNoError(t, UpdatePropositionContent(db, p))

	loaded, err := GetProposition(db, p.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "rewritten", loaded.Summary)
}

func TestAttachCategoriesIdempotent(t *testing.T) {
	db, _ := testutil.TempDB(t)
	alice := seedUser(t, db, "alice", "alice@example.org")
	p := seedProposition(t, db, "P", alice.ID)
	cat, _ := CreateCategory(db, "Env")

	testutil.AssertNoError(t, AttachCategories(db, p.ID, []string{cat.ID}))
	testutil.AssertNoError(t, AttachCategories(db, p.ID, []string{cat.ID}))

	names, err := CategoryNamesForProposition(db, p.ID)
	testutil.AssertNoError(t, err)
	if len(names) != 1 {
		t.Errorf("expected 1 category link, got %d", len(names))
	}
}

func TestInsertAssociationIgnoresDuplicates(t *testing.T) {
	db, _ := testutil.TempDB(t)
	alice := seedUser(t, db, "alice", "alice@example.org")
	a := seedProposition(t, db, "A", alice.ID)
	b := seedProposition(t, db, "B", alice.ID)

	testutil.AssertNoError(t, InsertAssociation(db, a.ID, b.ID))
	testutil.AssertNoError(t, InsertAssociation(db, a.ID, b.ID))

	ids, err := AssociatedPropositionIDs(db, a.ID)
	testutil.AssertNoError(t, err)
	if len(ids) != 1 || ids[0] != b.ID {
		t.Errorf("expected single association to B, got %v", ids)
	}
}

func TestQueryerWorksInsideTransaction(t *testing.T) {
	db, _ := testutil.TempDB(t)

	tx, err := db.Begin()
	testutil.AssertNoError(t, err)

	user := seedUser(t, tx, "txuser", "tx@example.org")
	loaded, err := GetUser(tx, user.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "txuser", loaded.Username)

	testutil.AssertNoError(t, tx.Rollback())

	gone, err := FindUserByEmailOrUsername(db, "tx@example.org", "txuser")
	testutil.AssertNoError(t, err)
	if gone != nil {
		t.Error("expected rollback to discard the user")
	}
}

func TestCreateFileValidatesType(t *testing.T) {
	db, _ := testutil.TempDB(t)

	_, err := CreateFile(db, FileCreateParams{
		Name:      "brief.pdf",
		Path:      "propositions/brief.pdf",
		Extension: ".pdf",
		MimeType:  "application/pdf",
		Size:      42,
		Type:      domain.FileType("AVATAR"),
	})
	testutil.AssertError(t, err)

	file, err := CreateFile(db, FileCreateParams{
		Name:      "brief.pdf",
		Path:      "propositions/brief.pdf",
		Extension: ".pdf",
		MimeType:  "application/pdf",
		Size:      42,
		Type:      domain.FileTypePropositionAttachment,
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, domain.FileTypePropositionAttachment, file.Type)
}

func TestEnrichedInserts(t *testing.T) {
	db, _ := testutil.TempDB(t)
	alice := seedUser(t, db, "alice", "alice@example.org")
	p := seedProposition(t, db, "P", alice.ID)

	now := time.Now().UTC()
	vote := &domain.Vote{PropositionID: p.ID, Phase: "FINAL", Method: "SIMPLE", Status: "CLOSED"}
	testutil.AssertNoError(t, InsertVote(db, vote))

	label := "Yes"
	option := &domain.VoteOption{VoteID: vote.ID, Label: &label, Position: 0}
	testutil.AssertNoError(t, InsertVoteOption(db, option))

	ballot := &domain.VoteBallot{VoteID: vote.ID, VoterID: alice.ID, Payload: `{"choice":"x"}`, RecordedAt: now}
	testutil.AssertNoError(t, InsertVoteBallot(db, ballot))

	votes, err := VotesForProposition(db, p.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(votes))

	options, err := OptionsForVote(db, vote.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(options))

	ballots, err := BallotsForVote(db, vote.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(ballots))

	comment := &domain.Comment{
		PropositionID: p.ID, AuthorID: alice.ID,
		Scope: "GENERAL", Visibility: "PUBLIC", Content: "hi", CreatedAt: now,
	}
	testutil.AssertNoError(t, InsertComment(db, comment))
	reply := &domain.Comment{
		PropositionID: p.ID, ParentID: &comment.ID, AuthorID: alice.ID,
		Scope: "GENERAL", Visibility: "PUBLIC", Content: "re", CreatedAt: now.Add(time.Second),
	}
	testutil.AssertNoError(t, InsertComment(db, reply))

	comments, err := CommentsForProposition(db, p.ID)
	testutil.AssertNoError(t, err)
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(comments))
	}
	if comments[1].ParentID == nil || *comments[1].ParentID != comment.ID {
		t.Error("expected reply threaded under root")
	}
}

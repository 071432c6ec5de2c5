package importer

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/openassembly/propmove/internal/export"
	"github.com/openassembly/propmove/internal/store"
)

func analyzeFor(t *testing.T, svc *Service, doc *export.Data) *ConflictReport {
	t.Helper()
	report, err := svc.AnalyzeImport(doc, "op")
	if err != nil {
		t.Fatalf("AnalyzeImport failed: %v", err)
	}
	return report
}

func execute(t *testing.T, svc *Service, report *ConflictReport, actorID string, resolutions ...ConflictResolution) *ImportResult {
	t.Helper()
	result, err := svc.ExecuteImport(&ImportConfiguration{
		ImportID:    report.ImportID,
		Resolutions: resolutions,
	}, actorID)
	if err != nil {
		t.Fatalf("ExecuteImport failed: %v", err)
	}
	return result
}

func TestExecuteSessionNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ExecuteImport(&ImportConfiguration{ImportID: "imp-missing"}, "op")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestExecuteExpiredSessionNotFound(t *testing.T) {
	svc, db, _ := newTestService(t)
	operator := seedUser(t, db, "op", "op@example.org")

	doc := exportDoc(exportedProposition("p1", "Idea", userRef("u1", "op", "op@example.org")))
	report := analyzeFor(t, svc, doc)

	session := svc.GetImportSession(report.ImportID)
	session.ExpiresAt = session.CreatedAt.Add(-1) // force expiry

	_, err := svc.ExecuteImport(&ImportConfiguration{ImportID: report.ImportID}, operator.ID)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for expired session, got %v", err)
	}
}

func TestExecuteRoundTrip(t *testing.T) {
	svc, db, _ := newTestService(t)
	operator := seedUser(t, db, "op", "op@example.org")
	voter := seedUser(t, db, "vera", "vera@example.org")

	yes, no := "Yes", "No"
	prop := exportedProposition("p1", "Big Idea", userRef("u1", "ghost", "ghost@example.org"))
	prop.ExternalReferences.Categories = []export.CategoryReference{{SourceID: "c1", Name: "Environment"}}
	prop.Votes = []export.ExportedVote{{
		SourceID: "v1",
		Phase:    "FINAL",
		Method:   "SIMPLE",
		Status:   "CLOSED",
		Metadata: map[string]interface{}{},
		Options: []export.ExportedVoteOption{
			{SourceID: "opt-yes", Label: &yes, Position: 0, Metadata: map[string]interface{}{}},
			{SourceID: "opt-no", Label: &no, Position: 1, Metadata: map[string]interface{}{}},
		},
		Ballots: []export.ExportedVoteBallot{{
			Voter:      userRef("u-voter", "vera", "vera@example.org"),
			Payload:    map[string]interface{}{"selectedOptions": []interface{}{"opt-yes"}},
			RecordedAt: "2025-05-02T09:00:00Z",
		}},
	}}
	parent := "cm1"
	prop.Comments = []export.ExportedComment{
		{SourceID: "cm1", Author: userRef("u-voter", "vera", "vera@example.org"),
			Scope: "GENERAL", Visibility: "PUBLIC", Content: "root", CreatedAt: "2025-05-02T10:00:00Z"},
		{SourceID: "cm2", ParentSourceID: &parent, Author: userRef("u-voter", "vera", "vera@example.org"),
			Scope: "GENERAL", Visibility: "PUBLIC", Content: "reply", CreatedAt: "2025-05-02T11:00:00Z"},
	}

	report := analyzeFor(t, svc, exportDoc(prop))
	result := execute(t, svc, report, operator.ID,
		ConflictResolution{SourceID: "u1", Strategy: StrategyCreateNew})

	if !result.Success {
		t.Fatalf("expected success, got errors: %v", result.Errors)
	}
	if len(result.Details) != 1 || result.Details[0].Action != ActionCreated {
		t.Fatalf("expected one CREATED detail, got %+v", result.Details)
	}
	if result.Summary.PropositionsCreated != 1 || result.Summary.UsersCreated != 1 || result.Summary.CategoriesCreated != 1 {
		t.Errorf("unexpected summary: %+v", result.Summary)
	}

	targetID := result.Details[0].TargetID
	created, err := store.GetProposition(db, targetID)
	if err != nil {
		t.Fatalf("created proposition missing: %v", err)
	}
	if created.Title != "Big Idea" {
		t.Errorf("unexpected title %q", created.Title)
	}

	names, _ := store.CategoryNamesForProposition(db, targetID)
	if len(names) != 1 || names[0] != "Environment" {
		t.Errorf("expected attached category, got %v", names)
	}

	votes, _ := store.VotesForProposition(db, targetID)
	if len(votes) != 1 {
		t.Fatalf("expected 1 vote, got %d", len(votes))
	}
	options, _ := store.OptionsForVote(db, votes[0].ID)
	if len(options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(options))
	}
	ballots, _ := store.BallotsForVote(db, votes[0].ID)
	if len(ballots) != 1 {
		t.Fatalf("expected 1 ballot, got %d", len(ballots))
	}
	if ballots[0].VoterID != voter.ID {
		t.Error("expected voter auto-matched to existing account")
	}
	// Payload option references must point at the new option ids.
	if strings.Contains(ballots[0].Payload, "opt-yes") {
		t.Errorf("ballot payload still references source option id: %s", ballots[0].Payload)
	}
	var yesID string
	for _, o := range options {
		if o.Label != nil && *o.Label == "Yes" {
			yesID = o.ID
		}
	}
	if !strings.Contains(ballots[0].Payload, yesID) {
		t.Errorf("ballot payload missing remapped option id %s: %s", yesID, ballots[0].Payload)
	}

	comments, _ := store.CommentsForProposition(db, targetID)
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(comments))
	}
	var rootID string
	for _, c := range comments {
		if c.ParentID == nil {
			rootID = c.ID
		}
	}
	for _, c := range comments {
		if c.ParentID != nil && *c.ParentID != rootID {
			t.Error("reply not threaded under imported root")
		}
	}

	// No exported history: the standard initial entry is synthesized.
	history, _ := store.StatusHistoryForProposition(db, targetID)
	if len(history) != 1 || history[0].Reason == nil || *history[0].Reason != "initial creation" {
		t.Errorf("expected synthesized initial history, got %+v", history)
	}
}

func TestExecuteExportedHistorySuppressesInitialEntry(t *testing.T) {
	svc, db, _ := newTestService(t)
	operator := seedUser(t, db, "op", "op@example.org")

	from := "DRAFT"
	prop := exportedProposition("p1", "Idea", userRef("u1", "op", "op@example.org"))
	prop.StatusHistory = []export.ExportedStatusHistory{{
		FromStatus: &from,
		ToStatus:   "CLARIFICATION",
		Metadata:   map[string]interface{}{},
		CreatedAt:  "2025-05-02T09:00:00Z",
	}}

	report := analyzeFor(t, svc, exportDoc(prop))
	result := execute(t, svc, report, operator.ID)
	if !result.Success {
		t.Fatalf("expected success, got %v", result.Errors)
	}

	history, _ := store.StatusHistoryForProposition(db, result.Details[0].TargetID)
	if len(history) != 1 || history[0].ToStatus != "CLARIFICATION" {
		t.Errorf("expected only the exported timeline entry, got %+v", history)
	}
}

func TestExecuteSkip(t *testing.T) {
	svc, db, _ := newTestService(t)
	operator := seedUser(t, db, "op", "op@example.org")

	doc := exportDoc(exportedProposition("p1", "Skipped Idea", userRef("u1", "op", "op@example.org")))
	report := analyzeFor(t, svc, doc)
	result := execute(t, svc, report, operator.ID,
		ConflictResolution{SourceID: "p1", Strategy: StrategySkip})

	if result.Details[0].Action != ActionSkipped || result.Summary.PropositionsSkipped != 1 {
		t.Errorf("expected SKIPPED, got %+v", result.Details)
	}
	matches, _ := store.FindPropositionsByTitle(db, "Skipped Idea")
	if len(matches) != 0 {
		t.Error("skipped proposition must not be persisted")
	}
}

func TestExecuteMergeKeepIncoming(t *testing.T) {
	svc, db, _ := newTestService(t)
	operator := seedUser(t, db, "op", "op@example.org")
	alice := seedUser(t, db, "alice", "alice@example.org")
	existing := seedProposition(t, db, "Shared Title", alice.ID)

	prop := exportedProposition("p1", "Shared Title", userRef("u1", "alice", "alice@example.org"))
	prop.Summary = "new"
	report := analyzeFor(t, svc, exportDoc(prop))
	result := execute(t, svc, report, operator.ID, ConflictResolution{
		SourceID: "p1", Strategy: StrategyMerge, MappedID: existing.ID,
		FieldResolutions: []FieldResolution{{Field: "summary", Action: MergeKeepIncoming}},
	})

	if result.Details[0].Action != ActionMerged || result.Summary.PropositionsMerged != 1 {
		t.Fatalf("expected MERGED, got %+v", result.Details)
	}
	loaded, _ := store.GetProposition(db, existing.ID)
	if loaded.Summary != "new" {
		t.Errorf("keep_incoming must overwrite, got %q", loaded.Summary)
	}
}

func TestExecuteMergeKeepCurrent(t *testing.T) {
	svc, db, _ := newTestService(t)
	operator := seedUser(t, db, "op", "op@example.org")
	alice := seedUser(t, db, "alice", "alice@example.org")
	existing := seedProposition(t, db, "Shared Title", alice.ID)

	prop := exportedProposition("p1", "Shared Title", userRef("u1", "alice", "alice@example.org"))
	prop.Summary = "new"
	report := analyzeFor(t, svc, exportDoc(prop))
	execute(t, svc, report, operator.ID, ConflictResolution{
		SourceID: "p1", Strategy: StrategyMerge, MappedID: existing.ID,
		FieldResolutions: []FieldResolution{{Field: "summary", Action: MergeKeepCurrent}},
	})

	loaded, _ := store.GetProposition(db, existing.ID)
	if loaded.Summary != "existing summary" {
		t.Errorf("keep_current must leave the field alone, got %q", loaded.Summary)
	}
}

func TestExecuteMergeBothCategories(t *testing.T) {
	svc, db, _ := newTestService(t)
	operator := seedUser(t, db, "op", "op@example.org")
	alice := seedUser(t, db, "alice", "alice@example.org")
	existing := seedProposition(t, db, "Shared Title", alice.ID)
	oldCat, _ := store.CreateCategory(db, "Old")
	store.AttachCategories(db, existing.ID, []string{oldCat.ID})

	prop := exportedProposition("p1", "Shared Title", userRef("u1", "alice", "alice@example.org"))
	prop.ExternalReferences.Categories = []export.CategoryReference{{SourceID: "c1", Name: "Incoming"}}
	report := analyzeFor(t, svc, exportDoc(prop))
	result := execute(t, svc, report, operator.ID, ConflictResolution{
		SourceID: "p1", Strategy: StrategyMerge, MappedID: existing.ID,
		FieldResolutions: []FieldResolution{{Field: "categories", Action: MergeBoth}},
	})
	if !result.Success {
		t.Fatalf("merge failed: %v", result.Errors)
	}

	names, _ := store.CategoryNamesForProposition(db, existing.ID)
	if len(names) != 2 || names[0] != "Incoming" || names[1] != "Old" {
		t.Errorf("expected union of category sets, got %v", names)
	}
}

func TestExecuteFailureIsolation(t *testing.T) {
	svc, db, _ := newTestService(t)
	operator := seedUser(t, db, "op", "op@example.org")
	seedUser(t, db, "alice", "alice@example.org")

	good := exportedProposition("p1", "Good Idea", userRef("u1", "alice", "alice@example.org"))
	bad := exportedProposition("p2", "Bad Idea", userRef("u2", "ghost", "ghost@example.org"))

	report := analyzeFor(t, svc, exportDoc(good, bad))
	result := execute(t, svc, report, operator.ID)

	if len(result.Details) != 2 {
		t.Fatalf("expected 2 details, got %d", len(result.Details))
	}
	if result.Details[0].Action != ActionCreated {
		t.Errorf("first item should be CREATED, got %s", result.Details[0].Action)
	}
	if result.Details[1].Action != ActionFailed {
		t.Errorf("second item should be FAILED, got %s", result.Details[1].Action)
	}

	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "Bad Idea") {
			found = true
		}
	}
	if !found {
		t.Errorf("errors must name the failed proposition: %v", result.Errors)
	}

	// The first item's insert survives the second's failure.
	matches, _ := store.FindPropositionsByTitle(db, "Good Idea")
	if len(matches) != 1 {
		t.Error("expected the first proposition to persist")
	}
}

func TestExecuteAssociationSymmetry(t *testing.T) {
	svc, db, _ := newTestService(t)
	operator := seedUser(t, db, "op", "op@example.org")

	a := exportedProposition("pa", "A", userRef("u1", "op", "op@example.org"))
	b := exportedProposition("pb", "B", userRef("u1", "op", "op@example.org"))
	a.ExternalReferences.AssociatedPropositions = []export.PropositionReference{{SourceID: "pb", Title: "B"}}

	report := analyzeFor(t, svc, exportDoc(a, b))
	result := execute(t, svc, report, operator.ID)
	if !result.Success {
		t.Fatalf("import failed: %v", result.Errors)
	}

	aID := result.Details[0].TargetID
	bID := result.Details[1].TargetID
	aAssocs, _ := store.AssociatedPropositionIDs(db, aID)
	bAssocs, _ := store.AssociatedPropositionIDs(db, bID)
	if len(aAssocs) != 1 || aAssocs[0] != bID {
		t.Errorf("A must reference B, got %v", aAssocs)
	}
	if len(bAssocs) != 1 || bAssocs[0] != aID {
		t.Errorf("B must reference A, got %v", bAssocs)
	}
}

func TestExecuteIDRemapConsistency(t *testing.T) {
	svc, db, _ := newTestService(t)
	operator := seedUser(t, db, "op", "op@example.org")

	first := exportedProposition("p1", "First", userRef("u1", "ghost", "ghost@example.org"))
	second := exportedProposition("p2", "Second", userRef("u1", "ghost", "ghost@example.org"))
	first.ExternalReferences.Categories = []export.CategoryReference{{SourceID: "c1", Name: "Env"}}
	second.ExternalReferences.Categories = []export.CategoryReference{{SourceID: "c1", Name: "Env"}}

	report := analyzeFor(t, svc, exportDoc(first, second))
	result := execute(t, svc, report, operator.ID,
		ConflictResolution{SourceID: "u1", Strategy: StrategyCreateNew})
	if !result.Success {
		t.Fatalf("import failed: %v", result.Errors)
	}

	if result.Summary.UsersCreated != 1 {
		t.Errorf("the same user sourceId must be created once, got %d", result.Summary.UsersCreated)
	}
	if result.Summary.CategoriesCreated != 1 {
		t.Errorf("the same category sourceId must be created once, got %d", result.Summary.CategoriesCreated)
	}

	p1, _ := store.GetProposition(db, result.Details[0].TargetID)
	p2, _ := store.GetProposition(db, result.Details[1].TargetID)
	if p1.CreatorID != p2.CreatorID {
		t.Error("one sourceId must resolve to one target id for the whole run")
	}
}

func TestExecuteMapExistingUser(t *testing.T) {
	svc, db, _ := newTestService(t)
	operator := seedUser(t, db, "op", "op@example.org")
	bob := seedUser(t, db, "bob", "bob@example.org")

	doc := exportDoc(exportedProposition("p1", "Idea", userRef("u1", "ghost", "ghost@example.org")))
	report := analyzeFor(t, svc, doc)
	result := execute(t, svc, report, operator.ID,
		ConflictResolution{SourceID: "u1", Strategy: StrategyMapExisting, MappedID: bob.ID})
	if !result.Success {
		t.Fatalf("import failed: %v", result.Errors)
	}

	if result.Summary.UsersCreated != 0 {
		t.Error("map_existing must not create users")
	}
	created, _ := store.GetProposition(db, result.Details[0].TargetID)
	if created.CreatorID != bob.ID {
		t.Error("expected creator mapped to bob")
	}
}

func TestExecuteFileImport(t *testing.T) {
	svc, db, files := newTestService(t)
	operator := seedUser(t, db, "op", "op@example.org")

	payload := []byte("binary image bytes")
	prop := exportedProposition("p1", "Visual Idea", userRef("u1", "op", "op@example.org"))
	prop.ExternalReferences.Visual = &export.FileReference{
		SourceID:  "f1",
		Name:      "banner.png",
		Extension: ".png",
		MimeType:  "image/png",
		Size:      int64(len(payload)),
		Data:      base64.StdEncoding.EncodeToString(payload),
	}
	prop.ExternalReferences.Attachments = []export.FileReference{{
		SourceID:  "f2",
		Name:      "brief.pdf",
		Extension: ".pdf",
		MimeType:  "application/pdf",
		Size:      3,
		Data:      base64.StdEncoding.EncodeToString([]byte("pdf")),
	}}

	report := analyzeFor(t, svc, exportDoc(prop))
	result := execute(t, svc, report, operator.ID)
	if !result.Success {
		t.Fatalf("import failed: %v", result.Errors)
	}
	if result.Summary.FilesUploaded != 2 {
		t.Errorf("expected 2 files uploaded, got %d", result.Summary.FilesUploaded)
	}

	created, _ := store.GetProposition(db, result.Details[0].TargetID)
	if created.VisualFileID == nil {
		t.Fatal("expected a visual file id")
	}
	visual, err := store.GetFile(db, *created.VisualFileID)
	if err != nil {
		t.Fatalf("visual file row missing: %v", err)
	}
	stored, err := files.ReadBuffer(visual.Path)
	if err != nil {
		t.Fatalf("visual payload missing on disk: %v", err)
	}
	if string(stored) != string(payload) {
		t.Error("visual payload does not round-trip")
	}

	attached, _ := store.AttachmentFilesForProposition(db, created.ID)
	if len(attached) != 1 || attached[0].Name != "brief.pdf" {
		t.Errorf("expected one attachment, got %+v", attached)
	}
}

func TestExecuteDroppedBallotWarning(t *testing.T) {
	svc, db, _ := newTestService(t)
	operator := seedUser(t, db, "op", "op@example.org")

	prop := exportedProposition("p1", "Idea", userRef("u1", "op", "op@example.org"))
	prop.Votes = []export.ExportedVote{{
		SourceID: "v1", Phase: "FINAL", Method: "SIMPLE", Status: "CLOSED",
		Metadata: map[string]interface{}{},
		Options:  []export.ExportedVoteOption{},
		Ballots: []export.ExportedVoteBallot{{
			Voter:      userRef("u-ghost", "ghostvoter", "ghostvoter@example.org"),
			Payload:    map[string]interface{}{},
			RecordedAt: "2025-05-02T09:00:00Z",
		}},
	}}

	report := analyzeFor(t, svc, exportDoc(prop))
	result := execute(t, svc, report, operator.ID)
	if !result.Success {
		t.Fatalf("import failed: %v", result.Errors)
	}

	if len(result.Details[0].Warnings) == 0 {
		t.Fatal("expected a warning for the dropped ballot")
	}
	found := false
	for _, w := range result.Details[0].Warnings {
		if strings.Contains(w, "ghostvoter") {
			found = true
		}
	}
	if !found {
		t.Errorf("warning must name the unresolved voter: %v", result.Details[0].Warnings)
	}

	votes, _ := store.VotesForProposition(db, result.Details[0].TargetID)
	ballots, _ := store.BallotsForVote(db, votes[0].ID)
	if len(ballots) != 0 {
		t.Error("unresolvable ballot must be dropped")
	}
}

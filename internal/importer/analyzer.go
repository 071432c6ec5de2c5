package importer

import (
	"database/sql"
	"fmt"

	"github.com/openassembly/propmove/internal/export"
	"github.com/openassembly/propmove/internal/store"
)

// Bounds on map_existing candidate lists.
const (
	maxUserCandidates        = 50
	maxPropositionCandidates = 100
	maxTitleLength           = 150
)

// Analyzer inspects an export document against the target database and
// produces a conflict report. It never mutates persisted data; its only
// side effect is registering an import session.
type Analyzer struct {
	db       *sql.DB
	sessions *SessionStore
}

// NewAnalyzer creates an analyzer backed by db and sessions.
func NewAnalyzer(db *sql.DB, sessions *SessionStore) *Analyzer {
	return &Analyzer{db: db, sessions: sessions}
}

// AnalyzeImport detects duplicates and missing references in data,
// builds resolution menus, and registers a session keyed by the
// report's importId. Content problems are reported, never returned as
// errors; only database failures surface as an error.
func (a *Analyzer) AnalyzeImport(data *export.Data, importerID string) (*ConflictReport, error) {
	report := &ConflictReport{
		ImportID:         NewImportID(),
		Conflicts:        []ImportConflict{},
		ValidationErrors: []ValidationError{},
	}

	a.validateFormat(data, report)

	run := &analysisRun{analyzer: a, report: report, batch: make(map[string]bool)}
	for _, prop := range data.Propositions {
		if prop.SourceID != "" {
			run.batch[prop.SourceID] = true
		}
	}

	report.Summary.TotalPropositions = len(data.Propositions)
	for i := range data.Propositions {
		if err := run.analyzeProposition(i, &data.Propositions[i]); err != nil {
			return nil, err
		}
	}
	report.Summary.Conflicts = len(report.Conflicts)

	a.sessions.Save(importerID, data, report)
	return report, nil
}

func (a *Analyzer) validateFormat(data *export.Data, report *ConflictReport) {
	if data.ExportVersion != export.Version {
		report.ValidationErrors = append(report.ValidationErrors, ValidationError{
			PropositionIndex: -1,
			Field:            "exportVersion",
			Message:          fmt.Sprintf("unsupported export version %q, expected %q", data.ExportVersion, export.Version),
		})
	}
	if len(data.Propositions) == 0 {
		report.ValidationErrors = append(report.ValidationErrors, ValidationError{
			PropositionIndex: -1,
			Field:            "propositions",
			Message:          "export contains no propositions",
		})
	}
	for i, prop := range data.Propositions {
		if prop.Title == "" {
			report.ValidationErrors = append(report.ValidationErrors, ValidationError{
				PropositionIndex: i,
				Field:            "title",
				Message:          "title is required",
			})
		} else if len(prop.Title) > maxTitleLength {
			report.ValidationErrors = append(report.ValidationErrors, ValidationError{
				PropositionIndex: i,
				Field:            "title",
				Message:          fmt.Sprintf("title exceeds %d characters", maxTitleLength),
			})
		}
	}
}

// analysisRun carries the per-call state of one analysis: the report
// under construction, the batch's own sourceIds, sourceIds already
// reported, and lazily built candidate menus.
type analysisRun struct {
	analyzer *Analyzer
	report   *ConflictReport
	batch    map[string]bool

	seenUsers      map[string]bool
	seenCategories map[string]bool
	seenAssocs     map[string]bool

	userCandidates        []Candidate
	categoryCandidates    []Candidate
	propositionCandidates []Candidate
}

func (r *analysisRun) analyzeProposition(index int, prop *export.ExportedProposition) error {
	if err := r.checkDuplicate(index, prop); err != nil {
		return err
	}

	refs := &prop.ExternalReferences
	if err := r.checkUser(index, "creator", &refs.Creator); err != nil {
		return err
	}
	for i := range refs.RescueInitiators {
		if err := r.checkUser(index, "rescueInitiators", &refs.RescueInitiators[i]); err != nil {
			return err
		}
	}
	for i := range refs.Categories {
		if err := r.checkCategory(index, &refs.Categories[i]); err != nil {
			return err
		}
	}
	for i := range refs.AssociatedPropositions {
		if err := r.checkAssociation(index, &refs.AssociatedPropositions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *analysisRun) checkDuplicate(index int, prop *export.ExportedProposition) error {
	if prop.Title == "" {
		r.report.Summary.NewPropositions++
		return nil
	}

	matches, err := store.FindPropositionsByTitle(r.analyzer.db, prop.Title)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		r.report.Summary.NewPropositions++
		return nil
	}
	r.report.Summary.ExistingPropositions++

	match := pickDuplicate(matches, &prop.ExternalReferences.Creator)
	preview, err := buildMergePreview(r.analyzer.db, match.Proposition, prop)
	if err != nil {
		return err
	}

	r.report.Conflicts = append(r.report.Conflicts, ImportConflict{
		Type:             ConflictDuplicateProposition,
		Severity:         SeverityWarning,
		Reference:        ConflictReference{SourceID: prop.SourceID, Title: prop.Title},
		PropositionIndex: index,
		Message:          fmt.Sprintf("a proposition titled %q already exists", prop.Title),
		Resolutions: []ResolutionOption{
			{Strategy: StrategyMerge, Label: "Merge into the existing proposition", Merge: preview},
			{Strategy: StrategyCreateNew, Label: "Create as a new proposition anyway"},
			{Strategy: StrategySkip, Label: "Skip this proposition"},
		},
	})
	return nil
}

// pickDuplicate selects which existing proposition an incoming one
// duplicates. With several title matches the one whose creator shares
// the exported creator's email or username wins; otherwise the oldest.
func pickDuplicate(matches []*store.PropositionMatch, creator *export.UserReference) *store.PropositionMatch {
	if len(matches) == 1 {
		return matches[0]
	}
	for _, m := range matches {
		if m.CreatorEmail == creator.Email || m.CreatorUsername == creator.Username {
			return m
		}
	}
	return matches[0]
}

func (r *analysisRun) checkUser(index int, field string, ref *export.UserReference) error {
	if r.seenUsers == nil {
		r.seenUsers = make(map[string]bool)
	}
	if r.seenUsers[ref.SourceID] {
		return nil
	}
	r.seenUsers[ref.SourceID] = true

	user, err := store.FindUserByEmailOrUsername(r.analyzer.db, ref.Email, ref.Username)
	if err != nil {
		return err
	}
	if user != nil && user.Email == ref.Email && user.Username == ref.Username {
		// Full match resolves automatically at execution.
		return nil
	}

	conflictRef := ConflictReference{SourceID: ref.SourceID, Username: ref.Username, Email: ref.Email}

	if user != nil {
		// Partial identity match: same email or same username, not both.
		candidates, err := r.users()
		if err != nil {
			return err
		}
		preferred := append([]Candidate{{ID: user.ID, Label: user.Username, Detail: user.Email}}, candidates...)
		r.report.Conflicts = append(r.report.Conflicts, ImportConflict{
			Type:             ConflictMissingUser,
			Severity:         SeverityWarning,
			Reference:        conflictRef,
			PropositionIndex: index,
			Field:            field,
			Message: fmt.Sprintf("user %q partially matches existing account %q (email or username differs)",
				ref.Username, user.Username),
			Resolutions: []ResolutionOption{
				{Strategy: StrategyMapExisting, Label: "Map to the partially matching account", Map: &MapCandidates{Candidates: preferred}},
				{Strategy: StrategyCreateNew, Label: "Create a new user", Create: &CreateInput{RequiredFields: []string{"username", "email", "password"}}},
				{Strategy: StrategySkip, Label: "Skip references to this user"},
			},
		})
		return nil
	}

	candidates, err := r.users()
	if err != nil {
		return err
	}
	r.report.Conflicts = append(r.report.Conflicts, ImportConflict{
		Type:             ConflictMissingUser,
		Severity:         SeverityError,
		Reference:        conflictRef,
		PropositionIndex: index,
		Field:            field,
		Message:          fmt.Sprintf("user %q (%s) does not exist on this instance", ref.Username, ref.Email),
		Resolutions: []ResolutionOption{
			{Strategy: StrategyCreateNew, Label: "Create this user", Create: &CreateInput{RequiredFields: []string{"username", "email", "password"}}},
			{Strategy: StrategyMapExisting, Label: "Map to an existing user", Map: &MapCandidates{Candidates: candidates}},
			{Strategy: StrategySkip, Label: "Skip references to this user"},
		},
	})
	return nil
}

func (r *analysisRun) checkCategory(index int, ref *export.CategoryReference) error {
	if r.seenCategories == nil {
		r.seenCategories = make(map[string]bool)
	}
	if r.seenCategories[ref.SourceID] {
		return nil
	}
	r.seenCategories[ref.SourceID] = true

	cat, err := store.FindCategoryByName(r.analyzer.db, ref.Name)
	if err != nil {
		return err
	}
	if cat != nil {
		return nil
	}

	candidates, err := r.categories()
	if err != nil {
		return err
	}
	r.report.Conflicts = append(r.report.Conflicts, ImportConflict{
		Type:             ConflictMissingCategory,
		Severity:         SeverityWarning,
		Reference:        ConflictReference{SourceID: ref.SourceID, Name: ref.Name},
		PropositionIndex: index,
		Field:            "categories",
		Message:          fmt.Sprintf("category %q does not exist on this instance", ref.Name),
		Resolutions: []ResolutionOption{
			{Strategy: StrategyCreateNew, Label: "Create this category", Create: &CreateInput{RequiredFields: []string{"name"}}},
			{Strategy: StrategyMapExisting, Label: "Map to an existing category", Map: &MapCandidates{Candidates: candidates}},
			{Strategy: StrategyRemove, Label: "Remove this category from the proposition"},
		},
	})
	return nil
}

func (r *analysisRun) checkAssociation(index int, ref *export.PropositionReference) error {
	if r.batch[ref.SourceID] {
		// Resolved via the in-batch id map at execution time.
		return nil
	}
	if r.seenAssocs == nil {
		r.seenAssocs = make(map[string]bool)
	}
	if r.seenAssocs[ref.SourceID] {
		return nil
	}
	r.seenAssocs[ref.SourceID] = true

	candidates, err := r.propositions()
	if err != nil {
		return err
	}
	r.report.Conflicts = append(r.report.Conflicts, ImportConflict{
		Type:             ConflictMissingAssociated,
		Severity:         SeverityWarning,
		Reference:        ConflictReference{SourceID: ref.SourceID, Title: ref.Title},
		PropositionIndex: index,
		Field:            "associatedPropositions",
		Message:          fmt.Sprintf("associated proposition %q is not part of this import", ref.Title),
		Resolutions: []ResolutionOption{
			{Strategy: StrategyMapExisting, Label: "Map to an existing proposition", Map: &MapCandidates{Candidates: candidates}},
			{Strategy: StrategyRemove, Label: "Remove this association"},
		},
	})
	return nil
}

func (r *analysisRun) users() ([]Candidate, error) {
	if r.userCandidates != nil {
		return r.userCandidates, nil
	}
	users, err := store.ListEnabledUsers(r.analyzer.db, maxUserCandidates)
	if err != nil {
		return nil, err
	}
	r.userCandidates = []Candidate{}
	for _, u := range users {
		r.userCandidates = append(r.userCandidates, Candidate{ID: u.ID, Label: u.Username, Detail: u.Email})
	}
	return r.userCandidates, nil
}

func (r *analysisRun) categories() ([]Candidate, error) {
	if r.categoryCandidates != nil {
		return r.categoryCandidates, nil
	}
	cats, err := store.ListCategories(r.analyzer.db)
	if err != nil {
		return nil, err
	}
	r.categoryCandidates = []Candidate{}
	for _, c := range cats {
		r.categoryCandidates = append(r.categoryCandidates, Candidate{ID: c.ID, Label: c.Name})
	}
	return r.categoryCandidates, nil
}

func (r *analysisRun) propositions() ([]Candidate, error) {
	if r.propositionCandidates != nil {
		return r.propositionCandidates, nil
	}
	props, err := store.ListActivePropositions(r.analyzer.db, maxPropositionCandidates)
	if err != nil {
		return nil, err
	}
	r.propositionCandidates = []Candidate{}
	for _, p := range props {
		r.propositionCandidates = append(r.propositionCandidates, Candidate{
			ID:     p.ID,
			Label:  p.Title,
			Detail: string(p.Status),
		})
	}
	return r.propositionCandidates, nil
}

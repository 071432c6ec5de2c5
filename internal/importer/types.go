// Package importer implements two-phase proposition import: a read-only
// conflict analysis that produces a resolution menu, and a transactional
// executor that applies the chosen resolutions. The two phases are
// bridged by an in-memory session keyed by importId.
package importer

// ConflictType classifies a detected conflict.
type ConflictType string

const (
	ConflictDuplicateProposition ConflictType = "duplicate_proposition"
	ConflictMissingUser          ConflictType = "missing_user"
	ConflictMissingCategory      ConflictType = "missing_category"
	ConflictMissingAssociated    ConflictType = "missing_associated_proposition"
	ConflictInvalidData          ConflictType = "invalid_data"
)

// ConflictSeverity grades how blocking a conflict is.
type ConflictSeverity string

const (
	SeverityError   ConflictSeverity = "error"
	SeverityWarning ConflictSeverity = "warning"
	SeverityInfo    ConflictSeverity = "info"
)

// ResolutionStrategy names one way of handling a conflict.
type ResolutionStrategy string

const (
	StrategyCreateNew   ResolutionStrategy = "create_new"
	StrategyMapExisting ResolutionStrategy = "map_existing"
	StrategyMerge       ResolutionStrategy = "merge"
	StrategySkip        ResolutionStrategy = "skip"
	StrategyRemove      ResolutionStrategy = "remove"
)

// MergeAction names the per-field choice under a merge resolution.
type MergeAction string

const (
	MergeKeepIncoming MergeAction = "keep_incoming"
	MergeKeepCurrent  MergeAction = "keep_current"
	MergeBoth         MergeAction = "merge_both"
	MergeSkip         MergeAction = "skip"
)

// ReviewRequired marks a merge-preview difference the operator must
// look at before executing.
const ReviewRequired = "REVIEW_REQUIRED"

// ConflictReference carries the descriptive fields of whatever an
// incoming proposition pointed at. SourceID is only meaningful inside
// the export document being analyzed.
type ConflictReference struct {
	SourceID string `json:"sourceId"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Title    string `json:"title,omitempty"`
}

// ImportConflict is one operator-actionable conflict with its
// resolution menu.
type ImportConflict struct {
	Type             ConflictType       `json:"type"`
	Severity         ConflictSeverity   `json:"severity"`
	Reference        ConflictReference  `json:"reference"`
	PropositionIndex int                `json:"propositionIndex"`
	Field            string             `json:"field,omitempty"`
	Message          string             `json:"message"`
	Resolutions      []ResolutionOption `json:"resolutions"`
}

// ResolutionOption is one entry of a conflict's menu. Exactly the
// payload its strategy needs is set; the rest stay nil.
type ResolutionOption struct {
	Strategy ResolutionStrategy `json:"strategy"`
	Label    string             `json:"label"`
	Create   *CreateInput       `json:"create,omitempty"`
	Map      *MapCandidates     `json:"map,omitempty"`
	Merge    *MergePreview      `json:"merge,omitempty"`
}

// CreateInput lists what a create_new resolution needs from the
// operator.
type CreateInput struct {
	RequiredFields []string `json:"requiredFields"`
}

// MapCandidates is the bounded list of existing records a map_existing
// resolution may target.
type MapCandidates struct {
	Candidates []Candidate `json:"candidates"`
}

// Candidate is one mappable existing record.
type Candidate struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
}

// MergePreview is the field-by-field diff offered under a merge
// resolution.
type MergePreview struct {
	TargetID string      `json:"targetId"`
	Fields   []FieldDiff `json:"fields"`
}

// FieldDiff compares one field between the existing record and the
// incoming one. Diff carries a unified diff for long text fields.
type FieldDiff struct {
	Field    string `json:"field"`
	Current  string `json:"current"`
	Incoming string `json:"incoming"`
	Diff     string `json:"diff,omitempty"`
	Marker   string `json:"marker,omitempty"`
}

// ValidationError is one non-fatal format problem.
type ValidationError struct {
	PropositionIndex int    `json:"propositionIndex"`
	Field            string `json:"field"`
	Message          string `json:"message"`
}

// ReportSummary counts what the analyzer saw.
type ReportSummary struct {
	TotalPropositions    int `json:"totalPropositions"`
	NewPropositions      int `json:"newPropositions"`
	ExistingPropositions int `json:"existingPropositions"`
	Conflicts            int `json:"conflicts"`
}

// ConflictReport is the analyzer's output.
type ConflictReport struct {
	ImportID         string            `json:"importId"`
	Summary          ReportSummary     `json:"summary"`
	Conflicts        []ImportConflict  `json:"conflicts"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

// UserCreateInput carries the operator-supplied fields of a create_new
// user resolution. Password may be empty; one is minted.
type UserCreateInput struct {
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	Password    string  `json:"password,omitempty"`
	DisplayName *string `json:"displayName,omitempty"`
	Role        string  `json:"role,omitempty"`
}

// CategoryCreateInput carries the fields of a create_new category
// resolution.
type CategoryCreateInput struct {
	Name string `json:"name"`
}

// FieldResolution is one per-field choice under a merge resolution.
type FieldResolution struct {
	Field  string      `json:"field"`
	Action MergeAction `json:"action"`
}

// ConflictResolution is the operator's answer to one conflict. The
// conflict is named either by its index in the report or directly by
// the reference's sourceId.
type ConflictResolution struct {
	ConflictIndex    *int                 `json:"conflictIndex,omitempty"`
	SourceID         string               `json:"sourceId,omitempty"`
	Strategy         ResolutionStrategy   `json:"strategy"`
	MappedID         string               `json:"mappedId,omitempty"`
	CreateUser       *UserCreateInput     `json:"createUser,omitempty"`
	CreateCategory   *CategoryCreateInput `json:"createCategory,omitempty"`
	FieldResolutions []FieldResolution    `json:"fieldResolutions,omitempty"`
}

// ImportConfiguration names a session and the resolutions to apply.
type ImportConfiguration struct {
	ImportID    string               `json:"importId"`
	Resolutions []ConflictResolution `json:"resolutions"`
}

// ResultSummary counts what the executor did.
type ResultSummary struct {
	PropositionsCreated int `json:"propositionsCreated"`
	PropositionsMerged  int `json:"propositionsMerged"`
	PropositionsSkipped int `json:"propositionsSkipped"`
	UsersCreated        int `json:"usersCreated"`
	CategoriesCreated   int `json:"categoriesCreated"`
	FilesUploaded       int `json:"filesUploaded"`
}

// Import actions recorded per proposition.
const (
	ActionCreated = "CREATED"
	ActionMerged  = "MERGED"
	ActionSkipped = "SKIPPED"
	ActionFailed  = "FAILED"
)

// ImportDetail records the outcome for one proposition.
type ImportDetail struct {
	SourceID string   `json:"sourceId"`
	Title    string   `json:"title"`
	Action   string   `json:"action"`
	TargetID string   `json:"targetId,omitempty"`
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ImportResult is the executor's output.
type ImportResult struct {
	Success bool           `json:"success"`
	Summary ResultSummary  `json:"summary"`
	Details []ImportDetail `json:"details"`
	Errors  []string       `json:"errors"`
}

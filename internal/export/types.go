// Package export defines the portable export document format and
// produces documents from a live database. Every sourceId is only
// meaningful inside the one document that carries it.
package export

// Version is the only document version this tool reads or writes.
const Version = "1.0"

// Data is the root of an export document.
type Data struct {
	ExportVersion     string                `json:"exportVersion"`
	ExportedAt        string                `json:"exportedAt"`
	ExportedBy        ExportedBy            `json:"exportedBy"`
	SourceEnvironment SourceEnvironment     `json:"sourceEnvironment"`
	Propositions      []ExportedProposition `json:"propositions"`
}

// ExportedBy identifies the account that produced the document.
type ExportedBy struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// SourceEnvironment identifies the producing instance.
type SourceEnvironment struct {
	Name       string `json:"name"`
	InstanceID string `json:"instanceId,omitempty"`
}

// ExportedProposition is one proposition with its references and
// optional enriched history.
type ExportedProposition struct {
	SourceID            string  `json:"sourceId"`
	Title               string  `json:"title"`
	Summary             string  `json:"summary"`
	DetailedDescription *string `json:"detailedDescription"`
	SmartObjectives     *string `json:"smartObjectives"`
	Impacts             *string `json:"impacts"`
	MandatesDescription *string `json:"mandatesDescription"`
	Expertise           *string `json:"expertise"`

	Status          string  `json:"status"`
	StatusStartedAt string  `json:"statusStartedAt"`
	Visibility      string  `json:"visibility"`
	ArchivedAt      *string `json:"archivedAt"`

	ClarificationDeadline *string `json:"clarificationDeadline"`
	AmendmentDeadline     *string `json:"amendmentDeadline"`
	VoteDeadline          *string `json:"voteDeadline"`
	MandateDeadline       *string `json:"mandateDeadline"`
	EvaluationDeadline    *string `json:"evaluationDeadline"`

	SettingsSnapshot map[string]interface{} `json:"settingsSnapshot"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`

	ExternalReferences ExternalReferences `json:"externalReferences"`

	StatusHistory []ExportedStatusHistory `json:"statusHistory,omitempty"`
	Votes         []ExportedVote          `json:"votes,omitempty"`
	Mandates      []ExportedMandate       `json:"mandates,omitempty"`
	Comments      []ExportedComment       `json:"comments,omitempty"`
	Events        []ExportedEvent         `json:"events,omitempty"`
	Reactions     []ExportedReaction      `json:"reactions,omitempty"`
}

// ExternalReferences holds everything a proposition points at outside
// its own row.
type ExternalReferences struct {
	Creator                UserReference          `json:"creator"`
	Categories             []CategoryReference    `json:"categories"`
	RescueInitiators       []UserReference        `json:"rescueInitiators"`
	Visual                 *FileReference         `json:"visual"`
	Attachments            []FileReference        `json:"attachments"`
	AssociatedPropositions []PropositionReference `json:"associatedPropositions"`
}

// UserReference describes a user well enough for heuristic matching.
type UserReference struct {
	SourceID    string  `json:"sourceId"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	DisplayName *string `json:"displayName"`
	Role        string  `json:"role"`
}

// CategoryReference describes a category by name.
type CategoryReference struct {
	SourceID string `json:"sourceId"`
	Name     string `json:"name"`
}

// FileReference embeds a file's full payload as base64.
type FileReference struct {
	SourceID  string `json:"sourceId"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
	MimeType  string `json:"mimeType"`
	Size      int64  `json:"size"`
	Data      string `json:"data"`
}

// PropositionReference describes an associated proposition by title.
type PropositionReference struct {
	SourceID string `json:"sourceId"`
	Title    string `json:"title"`
}

// ExportedStatusHistory is one status-timeline entry.
type ExportedStatusHistory struct {
	FromStatus  *string                `json:"fromStatus"`
	ToStatus    string                 `json:"toStatus"`
	TriggeredBy *UserReference         `json:"triggeredBy"`
	Reason      *string                `json:"reason"`
	Metadata    map[string]interface{} `json:"metadata"`
	CreatedAt   string                 `json:"createdAt"`
}

// ExportedVote is one voting round with options and optional ballots.
type ExportedVote struct {
	SourceID      string                 `json:"sourceId"`
	Phase         string                 `json:"phase"`
	Method        string                 `json:"method"`
	Title         *string                `json:"title"`
	Description   *string                `json:"description"`
	OpenAt        *string                `json:"openAt"`
	CloseAt       *string                `json:"closeAt"`
	MaxSelections *int                   `json:"maxSelections"`
	Status        string                 `json:"status"`
	Metadata      map[string]interface{} `json:"metadata"`
	Options       []ExportedVoteOption   `json:"options"`
	Ballots       []ExportedVoteBallot   `json:"ballots,omitempty"`
}

// ExportedVoteOption is one selectable option of a vote.
type ExportedVoteOption struct {
	SourceID    string                 `json:"sourceId"`
	Label       *string                `json:"label"`
	Description *string                `json:"description"`
	Position    int                    `json:"position"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// ExportedVoteBallot is one recorded ballot. Payload values may
// reference vote option sourceIds.
type ExportedVoteBallot struct {
	Voter      UserReference          `json:"voter"`
	Payload    map[string]interface{} `json:"payload"`
	RecordedAt string                 `json:"recordedAt"`
	RevokedAt  *string                `json:"revokedAt"`
}

// ExportedMandate is one execution mandate.
type ExportedMandate struct {
	SourceID           string                 `json:"sourceId"`
	Title              *string                `json:"title"`
	Description        *string                `json:"description"`
	Holder             *UserReference         `json:"holder"`
	Status             string                 `json:"status"`
	TargetObjectiveRef *string                `json:"targetObjectiveRef"`
	InitialDeadline    *string                `json:"initialDeadline"`
	CurrentDeadline    *string                `json:"currentDeadline"`
	Metadata           map[string]interface{} `json:"metadata"`
}

// ExportedComment is one comment; ParentSourceID threads replies.
type ExportedComment struct {
	SourceID       string        `json:"sourceId"`
	ParentSourceID *string       `json:"parentSourceId"`
	Author         UserReference `json:"author"`
	Scope          string        `json:"scope"`
	Section        *string       `json:"section"`
	Visibility     string        `json:"visibility"`
	Content        string        `json:"content"`
	CreatedAt      string        `json:"createdAt"`
}

// ExportedEvent is one scheduled event.
type ExportedEvent struct {
	SourceID    string         `json:"sourceId"`
	Type        string         `json:"type"`
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	StartAt     *string        `json:"startAt"`
	EndAt       *string        `json:"endAt"`
	Location    *string        `json:"location"`
	VideoLink   *string        `json:"videoLink"`
	CreatedBy   *UserReference `json:"createdBy"`
	CreatedAt   string         `json:"createdAt"`
}

// ExportedReaction is one user reaction.
type ExportedReaction struct {
	Author    UserReference `json:"author"`
	Type      string        `json:"type"`
	CreatedAt string        `json:"createdAt"`
}

// Options selects which enriched data an export carries.
type Options struct {
	IncludeStatusHistory bool `json:"includeStatusHistory" yaml:"include_status_history"`
	IncludeVotes         bool `json:"includeVotes" yaml:"include_votes"`
	IncludeBallots       bool `json:"includeBallots" yaml:"include_ballots"`
	IncludeMandates      bool `json:"includeMandates" yaml:"include_mandates"`
	IncludeComments      bool `json:"includeComments" yaml:"include_comments"`
	IncludeEvents        bool `json:"includeEvents" yaml:"include_events"`
	IncludeReactions     bool `json:"includeReactions" yaml:"include_reactions"`
}

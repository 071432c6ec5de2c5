package domain

import (
	"encoding/json"
	"time"
)

// PropositionStatus represents the lifecycle stage of a proposition
type PropositionStatus string

const (
	StatusDraft         PropositionStatus = "DRAFT"
	StatusClarification PropositionStatus = "CLARIFICATION"
	StatusAmendment     PropositionStatus = "AMENDMENT"
	StatusVote          PropositionStatus = "VOTE"
	StatusMandate       PropositionStatus = "MANDATE"
	StatusEvaluation    PropositionStatus = "EVALUATION"
	StatusAdopted       PropositionStatus = "ADOPTED"
	StatusRejected      PropositionStatus = "REJECTED"
	StatusArchived      PropositionStatus = "ARCHIVED"
)

// PropositionVisibility represents who can see a proposition
type PropositionVisibility string

const (
	VisibilityPrivate  PropositionVisibility = "PRIVATE"
	VisibilityInternal PropositionVisibility = "INTERNAL"
	VisibilityPublic   PropositionVisibility = "PUBLIC"
)

// UserRole represents a user's platform role
type UserRole string

const (
	RoleUser      UserRole = "USER"
	RoleModerator UserRole = "MODERATOR"
	RoleAdmin     UserRole = "ADMIN"
)

// FileType classifies stored files
type FileType string

const (
	FileTypePropositionVisual     FileType = "PROPOSITION_VISUAL"
	FileTypePropositionAttachment FileType = "PROPOSITION_ATTACHMENT"
)

// User represents a platform account
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	DisplayName  *string   `json:"display_name,omitempty" db:"display_name"`
	Role         UserRole  `json:"role" db:"role"`
	Enabled      bool      `json:"enabled" db:"enabled"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Category represents a proposition category
type Category struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// File represents a stored binary payload's metadata
type File struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Path      string    `json:"path" db:"path"`
	Extension string    `json:"extension" db:"extension"`
	MimeType  string    `json:"mime_type" db:"mime_type"`
	Size      int64     `json:"size" db:"size"`
	Type      FileType  `json:"type" db:"type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Proposition represents a governance proposition
type Proposition struct {
	ID                    string                `json:"id" db:"id"`
	Title                 string                `json:"title" db:"title"`
	Summary               string                `json:"summary" db:"summary"`
	DetailedDescription   string                `json:"detailed_description" db:"detailed_description"`
	SmartObjectives       string                `json:"smart_objectives" db:"smart_objectives"`
	Impacts               string                `json:"impacts" db:"impacts"`
	MandatesDescription   string                `json:"mandates_description" db:"mandates_description"`
	Expertise             *string               `json:"expertise,omitempty" db:"expertise"`
	Status                PropositionStatus     `json:"status" db:"status"`
	StatusStartedAt       time.Time             `json:"status_started_at" db:"status_started_at"`
	Visibility            PropositionVisibility `json:"visibility" db:"visibility"`
	ArchivedAt            *time.Time            `json:"archived_at,omitempty" db:"archived_at"`
	ClarificationDeadline *time.Time            `json:"clarification_deadline,omitempty" db:"clarification_deadline"`
	AmendmentDeadline     *time.Time            `json:"amendment_deadline,omitempty" db:"amendment_deadline"`
	VoteDeadline          *time.Time            `json:"vote_deadline,omitempty" db:"vote_deadline"`
	MandateDeadline       *time.Time            `json:"mandate_deadline,omitempty" db:"mandate_deadline"`
	EvaluationDeadline    *time.Time            `json:"evaluation_deadline,omitempty" db:"evaluation_deadline"`
	SettingsSnapshot      string                `json:"settings_snapshot" db:"settings_snapshot"` // JSON object
	VisualFileID          *string               `json:"visual_file_id,omitempty" db:"visual_file_id"`
	CreatorID             string                `json:"creator_id" db:"creator_id"`
	CreatedAt             time.Time             `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at" db:"updated_at"`
}

// StatusHistory represents one entry of a proposition's status timeline
type StatusHistory struct {
	ID                string     `json:"id" db:"id"`
	PropositionID     string     `json:"proposition_id" db:"proposition_id"`
	FromStatus        *string    `json:"from_status,omitempty" db:"from_status"`
	ToStatus          string     `json:"to_status" db:"to_status"`
	TriggeredByUserID *string    `json:"triggered_by_user_id,omitempty" db:"triggered_by_user_id"`
	Reason            *string    `json:"reason,omitempty" db:"reason"`
	Metadata          string     `json:"metadata" db:"metadata"` // JSON object
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// Vote represents a voting round attached to a proposition
type Vote struct {
	ID            string     `json:"id" db:"id"`
	PropositionID string     `json:"proposition_id" db:"proposition_id"`
	Phase         string     `json:"phase" db:"phase"`
	Method        string     `json:"method" db:"method"`
	Title         *string    `json:"title,omitempty" db:"title"`
	Description   *string    `json:"description,omitempty" db:"description"`
	OpenAt        *time.Time `json:"open_at,omitempty" db:"open_at"`
	CloseAt       *time.Time `json:"close_at,omitempty" db:"close_at"`
	MaxSelections *int       `json:"max_selections,omitempty" db:"max_selections"`
	Status        string     `json:"status" db:"status"`
	Metadata      string     `json:"metadata" db:"metadata"`
}

// VoteOption represents one selectable option of a vote
type VoteOption struct {
	ID          string  `json:"id" db:"id"`
	VoteID      string  `json:"vote_id" db:"vote_id"`
	Label       *string `json:"label,omitempty" db:"label"`
	Description *string `json:"description,omitempty" db:"description"`
	Position    int     `json:"position" db:"position"`
	Metadata    string  `json:"metadata" db:"metadata"`
}

// VoteBallot represents one recorded ballot
type VoteBallot struct {
	ID         string     `json:"id" db:"id"`
	VoteID     string     `json:"vote_id" db:"vote_id"`
	VoterID    string     `json:"voter_id" db:"voter_id"`
	Payload    string     `json:"payload" db:"payload"` // JSON object
	RecordedAt time.Time  `json:"recorded_at" db:"recorded_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
}

// Mandate represents an execution mandate attached to a proposition
type Mandate struct {
	ID                 string     `json:"id" db:"id"`
	PropositionID      string     `json:"proposition_id" db:"proposition_id"`
	Title              *string    `json:"title,omitempty" db:"title"`
	Description        *string    `json:"description,omitempty" db:"description"`
	HolderID           *string    `json:"holder_id,omitempty" db:"holder_id"`
	Status             string     `json:"status" db:"status"`
	TargetObjectiveRef *string    `json:"target_objective_ref,omitempty" db:"target_objective_ref"`
	InitialDeadline    *time.Time `json:"initial_deadline,omitempty" db:"initial_deadline"`
	CurrentDeadline    *time.Time `json:"current_deadline,omitempty" db:"current_deadline"`
	Metadata           string     `json:"metadata" db:"metadata"`
}

// Comment represents a comment on a proposition
type Comment struct {
	ID            string    `json:"id" db:"id"`
	PropositionID string    `json:"proposition_id" db:"proposition_id"`
	ParentID      *string   `json:"parent_id,omitempty" db:"parent_id"`
	AuthorID      string    `json:"author_id" db:"author_id"`
	Scope         string    `json:"scope" db:"scope"`
	Section       *string   `json:"section,omitempty" db:"section"`
	Visibility    string    `json:"visibility" db:"visibility"`
	Content       string    `json:"content" db:"content"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// PropositionEvent represents a scheduled event tied to a proposition
type PropositionEvent struct {
	ID            string     `json:"id" db:"id"`
	PropositionID string     `json:"proposition_id" db:"proposition_id"`
	Type          string     `json:"type" db:"type"`
	Title         *string    `json:"title,omitempty" db:"title"`
	Description   *string    `json:"description,omitempty" db:"description"`
	StartAt       *time.Time `json:"start_at,omitempty" db:"start_at"`
	EndAt         *time.Time `json:"end_at,omitempty" db:"end_at"`
	Location      *string    `json:"location,omitempty" db:"location"`
	VideoLink     *string    `json:"video_link,omitempty" db:"video_link"`
	CreatedByID   *string    `json:"created_by_id,omitempty" db:"created_by_id"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// Reaction represents a user reaction on a proposition
type Reaction struct {
	ID            string    `json:"id" db:"id"`
	PropositionID string    `json:"proposition_id" db:"proposition_id"`
	AuthorID      string    `json:"author_id" db:"author_id"`
	Type          string    `json:"type" db:"type"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Event represents an entry in the audit event log
type Event struct {
	ID           int64     `json:"id" db:"id"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	ActorID      *string   `json:"actor_id,omitempty" db:"actor_id"`
	ResourceType string    `json:"resource_type" db:"resource_type"`
	ResourceID   *string   `json:"resource_id,omitempty" db:"resource_id"`
	EventType    string    `json:"event_type" db:"event_type"`
	Payload      *string   `json:"payload,omitempty" db:"payload"` // JSON
}

// GetSettings parses the settings snapshot JSON into a map
func (p *Proposition) GetSettings() (map[string]interface{}, error) {
	if p.SettingsSnapshot == "" {
		return map[string]interface{}{}, nil
	}
	var settings map[string]interface{}
	if err := json.Unmarshal([]byte(p.SettingsSnapshot), &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// SetSettings sets the settings snapshot from a map
func (p *Proposition) SetSettings(settings map[string]interface{}) error {
	if settings == nil {
		settings = map[string]interface{}{}
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	p.SettingsSnapshot = string(data)
	return nil
}

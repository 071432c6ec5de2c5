package domain

import (
	"fmt"
	"time"
)

// ValidateStatus validates a proposition status
func ValidateStatus(status string) error {
	switch PropositionStatus(status) {
	case StatusDraft, StatusClarification, StatusAmendment, StatusVote,
		StatusMandate, StatusEvaluation, StatusAdopted, StatusRejected, StatusArchived:
		return nil
	default:
		return fmt.Errorf("invalid status: must be one of: DRAFT, CLARIFICATION, AMENDMENT, VOTE, MANDATE, EVALUATION, ADOPTED, REJECTED, ARCHIVED")
	}
}

// ValidateVisibility validates a proposition visibility
func ValidateVisibility(visibility string) error {
	switch PropositionVisibility(visibility) {
	case VisibilityPrivate, VisibilityInternal, VisibilityPublic:
		return nil
	default:
		return fmt.Errorf("invalid visibility: must be one of: PRIVATE, INTERNAL, PUBLIC")
	}
}

// ValidateUserRole validates a user role
func ValidateUserRole(role string) error {
	switch UserRole(role) {
	case RoleUser, RoleModerator, RoleAdmin:
		return nil
	default:
		return fmt.Errorf("invalid user role: must be one of: USER, MODERATOR, ADMIN")
	}
}

// ValidateFileType validates a file type
func ValidateFileType(fileType string) error {
	switch FileType(fileType) {
	case FileTypePropositionVisual, FileTypePropositionAttachment:
		return nil
	default:
		return fmt.Errorf("invalid file type: must be one of: PROPOSITION_VISUAL, PROPOSITION_ATTACHMENT")
	}
}

// ParseTimestamp parses an ISO8601/RFC3339 timestamp
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp format: expected ISO8601/RFC3339")
	}
	return t, nil
}

// ParseDate parses an ISO date, accepting either a bare date or a full
// RFC3339 timestamp (exports emit deadlines as dates).
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date format: expected YYYY-MM-DD or RFC3339")
}

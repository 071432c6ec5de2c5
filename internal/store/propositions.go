package store

import (
	"database/sql"
	"fmt"

	"github.com/openassembly/propmove/internal/domain"
)

// PropositionMatch pairs a proposition with its creator's identity
// fields, for duplicate-detection heuristics.
type PropositionMatch struct {
	Proposition     *domain.Proposition
	CreatorUsername string
	CreatorEmail    string
}

const propositionColumns = `
	id, title, summary, detailed_description, smart_objectives, impacts,
	mandates_description, expertise, status, status_started_at, visibility,
	archived_at, clarification_deadline, amendment_deadline, vote_deadline,
	mandate_deadline, evaluation_deadline, settings_snapshot, visual_file_id,
	creator_id, created_at, updated_at`

// CreateProposition inserts a proposition. The ID must already be set;
// created_at/updated_at default in the schema.
func CreateProposition(q Queryer, p *domain.Proposition) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	if p.Status == "" {
		p.Status = domain.StatusDraft
	}
	if p.Visibility == "" {
		p.Visibility = domain.VisibilityPrivate
	}
	if p.SettingsSnapshot == "" {
		p.SettingsSnapshot = "{}"
	}

	_, err := q.Exec(`
		INSERT INTO propositions (
			id, title, summary, detailed_description, smart_objectives, impacts,
			mandates_description, expertise, status, status_started_at, visibility,
			archived_at, clarification_deadline, amendment_deadline, vote_deadline,
			mandate_deadline, evaluation_deadline, settings_snapshot, visual_file_id,
			creator_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Title, p.Summary, p.DetailedDescription, p.SmartObjectives, p.Impacts,
		p.MandatesDescription, nullableString(p.Expertise), string(p.Status), p.StatusStartedAt,
		string(p.Visibility), nullableTime(p.ArchivedAt), nullableTime(p.ClarificationDeadline),
		nullableTime(p.AmendmentDeadline), nullableTime(p.VoteDeadline),
		nullableTime(p.MandateDeadline), nullableTime(p.EvaluationDeadline),
		p.SettingsSnapshot, nullableString(p.VisualFileID), p.CreatorID)
	if err != nil {
		return fmt.Errorf("failed to create proposition %q: %w", p.Title, err)
	}
	return nil
}

// GetProposition loads a proposition by id.
func GetProposition(q Queryer, id string) (*domain.Proposition, error) {
	p, err := scanProposition(q.QueryRow(
		`SELECT `+propositionColumns+` FROM propositions WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("proposition not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load proposition: %w", err)
	}
	return p, nil
}

// UpdatePropositionContent persists the merge-editable fields of a
// proposition and bumps updated_at.
func UpdatePropositionContent(q Queryer, p *domain.Proposition) error {
	_, err := q.Exec(`
		UPDATE propositions SET
			title = ?, summary = ?, detailed_description = ?, smart_objectives = ?,
			impacts = ?, mandates_description = ?, expertise = ?,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now')
		WHERE id = ?
	`, p.Title, p.Summary, p.DetailedDescription, p.SmartObjectives,
		p.Impacts, p.MandatesDescription, nullableString(p.Expertise), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update proposition %s: %w", p.ID, err)
	}
	return nil
}

// FindPropositionsByTitle returns propositions with an identical title,
// oldest first, each with its creator's identity fields.
func FindPropositionsByTitle(q Queryer, title string) ([]*PropositionMatch, error) {
	rows, err := q.Query(`
		SELECT `+prefixedPropositionColumns("p")+`, u.username, u.email
		FROM propositions p
		JOIN users u ON u.id = p.creator_id
		WHERE p.title = ?
		ORDER BY p.created_at ASC
	`, title)
	if err != nil {
		return nil, fmt.Errorf("failed to query propositions by title: %w", err)
	}
	defer rows.Close()

	var matches []*PropositionMatch
	for rows.Next() {
		match, err := scanPropositionMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposition: %w", err)
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

// ListActivePropositions returns non-archived propositions, newest
// first, capped at limit.
func ListActivePropositions(q Queryer, limit int) ([]*domain.Proposition, error) {
	rows, err := q.Query(`
		SELECT `+propositionColumns+` FROM propositions
		WHERE status != 'ARCHIVED'
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list propositions: %w", err)
	}
	defer rows.Close()

	var propositions []*domain.Proposition
	for rows.Next() {
		p, err := scanProposition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposition: %w", err)
		}
		propositions = append(propositions, p)
	}
	return propositions, rows.Err()
}

// AttachCategories links categories to a proposition. Existing links
// are left untouched.
func AttachCategories(q Queryer, propositionID string, categoryIDs []string) error {
	for _, catID := range categoryIDs {
		_, err := q.Exec(`
			INSERT OR IGNORE INTO proposition_categories (proposition_id, category_id)
			VALUES (?, ?)
		`, propositionID, catID)
		if err != nil {
			return fmt.Errorf("failed to attach category %s: %w", catID, err)
		}
	}
	return nil
}

// AttachRescueInitiators links rescue-initiator users to a proposition.
func AttachRescueInitiators(q Queryer, propositionID string, userIDs []string) error {
	for _, userID := range userIDs {
		_, err := q.Exec(`
			INSERT OR IGNORE INTO proposition_rescue_initiators (proposition_id, user_id)
			VALUES (?, ?)
		`, propositionID, userID)
		if err != nil {
			return fmt.Errorf("failed to attach rescue initiator %s: %w", userID, err)
		}
	}
	return nil
}

// AttachAttachments links attachment files to a proposition.
func AttachAttachments(q Queryer, propositionID string, fileIDs []string) error {
	for _, fileID := range fileIDs {
		_, err := q.Exec(`
			INSERT OR IGNORE INTO proposition_attachments (proposition_id, file_id)
			VALUES (?, ?)
		`, propositionID, fileID)
		if err != nil {
			return fmt.Errorf("failed to attach file %s: %w", fileID, err)
		}
	}
	return nil
}

// InsertAssociation inserts one direction of a proposition association.
// Duplicate pairs are ignored.
func InsertAssociation(q Queryer, propositionID, relatedID string) error {
	_, err := q.Exec(`
		INSERT OR IGNORE INTO proposition_associations (proposition_id, related_proposition_id)
		VALUES (?, ?)
	`, propositionID, relatedID)
	if err != nil {
		return fmt.Errorf("failed to insert association %s -> %s: %w", propositionID, relatedID, err)
	}
	return nil
}

// RescueInitiatorIDs returns the rescue-initiator user ids of a proposition.
func RescueInitiatorIDs(q Queryer, propositionID string) ([]string, error) {
	rows, err := q.Query(`
		SELECT user_id FROM proposition_rescue_initiators
		WHERE proposition_id = ?
		ORDER BY user_id
	`, propositionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rescue initiators: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan rescue initiator: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AssociatedPropositionIDs returns the ids associated with a proposition.
func AssociatedPropositionIDs(q Queryer, propositionID string) ([]string, error) {
	rows, err := q.Query(`
		SELECT related_proposition_id FROM proposition_associations
		WHERE proposition_id = ?
		ORDER BY related_proposition_id
	`, propositionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list associations: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan association: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func prefixedPropositionColumns(alias string) string {
	return alias + `.id, ` + alias + `.title, ` + alias + `.summary, ` +
		alias + `.detailed_description, ` + alias + `.smart_objectives, ` +
		alias + `.impacts, ` + alias + `.mandates_description, ` + alias + `.expertise, ` +
		alias + `.status, ` + alias + `.status_started_at, ` + alias + `.visibility, ` +
		alias + `.archived_at, ` + alias + `.clarification_deadline, ` +
		alias + `.amendment_deadline, ` + alias + `.vote_deadline, ` +
		alias + `.mandate_deadline, ` + alias + `.evaluation_deadline, ` +
		alias + `.settings_snapshot, ` + alias + `.visual_file_id, ` +
		alias + `.creator_id, ` + alias + `.created_at, ` + alias + `.updated_at`
}

func scanProposition(row rowScanner) (*domain.Proposition, error) {
	var p domain.Proposition
	var status, visibility string
	err := row.Scan(&p.ID, &p.Title, &p.Summary, &p.DetailedDescription,
		&p.SmartObjectives, &p.Impacts, &p.MandatesDescription, &p.Expertise,
		&status, &p.StatusStartedAt, &visibility, &p.ArchivedAt,
		&p.ClarificationDeadline, &p.AmendmentDeadline, &p.VoteDeadline,
		&p.MandateDeadline, &p.EvaluationDeadline, &p.SettingsSnapshot,
		&p.VisualFileID, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = domain.PropositionStatus(status)
	p.Visibility = domain.PropositionVisibility(visibility)
	return &p, nil
}

func scanPropositionMatch(row rowScanner) (*PropositionMatch, error) {
	var p domain.Proposition
	var status, visibility string
	var match PropositionMatch
	err := row.Scan(&p.ID, &p.Title, &p.Summary, &p.DetailedDescription,
		&p.SmartObjectives, &p.Impacts, &p.MandatesDescription, &p.Expertise,
		&status, &p.StatusStartedAt, &visibility, &p.ArchivedAt,
		&p.ClarificationDeadline, &p.AmendmentDeadline, &p.VoteDeadline,
		&p.MandateDeadline, &p.EvaluationDeadline, &p.SettingsSnapshot,
		&p.VisualFileID, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt,
		&match.CreatorUsername, &match.CreatorEmail)
	if err != nil {
		return nil, err
	}
	p.Status = domain.PropositionStatus(status)
	p.Visibility = domain.PropositionVisibility(visibility)
	match.Proposition = &p
	return &match, nil
}

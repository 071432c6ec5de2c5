package store

import (
	"fmt"

	"github.com/openassembly/propmove/internal/domain"
)

// InsertStatusHistory inserts one status-timeline row.
func InsertStatusHistory(q Queryer, h *domain.StatusHistory) error {
	if h.ID == "" {
		h.ID = NewID()
	}
	if h.Metadata == "" {
		h.Metadata = "{}"
	}
	_, err := q.Exec(`
		INSERT INTO status_history (id, proposition_id, from_status, to_status, triggered_by_user_id, reason, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, h.ID, h.PropositionID, nullableString(h.FromStatus), h.ToStatus,
		nullableString(h.TriggeredByUserID), nullableString(h.Reason), h.Metadata, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert status history: %w", err)
	}
	return nil
}

// InsertVote inserts one voting round.
func InsertVote(q Queryer, v *domain.Vote) error {
	if v.ID == "" {
		v.ID = NewID()
	}
	if v.Metadata == "" {
		v.Metadata = "{}"
	}
	_, err := q.Exec(`
		INSERT INTO votes (id, proposition_id, phase, method, title, description, open_at, close_at, max_selections, status, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.PropositionID, v.Phase, v.Method, nullableString(v.Title), nullableString(v.Description),
		nullableTime(v.OpenAt), nullableTime(v.CloseAt), nullableInt(v.MaxSelections), v.Status, v.Metadata)
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}

// InsertVoteOption inserts one vote option.
func InsertVoteOption(q Queryer, o *domain.VoteOption) error {
	if o.ID == "" {
		o.ID = NewID()
	}
	if o.Metadata == "" {
		o.Metadata = "{}"
	}
	_, err := q.Exec(`
		INSERT INTO vote_options (id, vote_id, label, description, position, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
	`, o.ID, o.VoteID, nullableString(o.Label), nullableString(o.Description), o.Position, o.Metadata)
	if err != nil {
		return fmt.Errorf("failed to insert vote option: %w", err)
	}
	return nil
}

// InsertVoteBallot inserts one recorded ballot.
func InsertVoteBallot(q Queryer, b *domain.VoteBallot) error {
	if b.ID == "" {
		b.ID = NewID()
	}
	if b.Payload == "" {
		b.Payload = "{}"
	}
	_, err := q.Exec(`
		INSERT INTO vote_ballots (id, vote_id, voter_id, payload, recorded_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, b.ID, b.VoteID, b.VoterID, b.Payload, b.RecordedAt, nullableTime(b.RevokedAt))
	if err != nil {
		return fmt.Errorf("failed to insert ballot: %w", err)
	}
	return nil
}

// InsertMandate inserts one execution mandate.
func InsertMandate(q Queryer, m *domain.Mandate) error {
	if m.ID == "" {
		m.ID = NewID()
	}
	if m.Metadata == "" {
		m.Metadata = "{}"
	}
	_, err := q.Exec(`
		INSERT INTO mandates (id, proposition_id, title, description, holder_id, status, target_objective_ref, initial_deadline, current_deadline, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.PropositionID, nullableString(m.Title), nullableString(m.Description),
		nullableString(m.HolderID), m.Status, nullableString(m.TargetObjectiveRef),
		nullableTime(m.InitialDeadline), nullableTime(m.CurrentDeadline), m.Metadata)
	if err != nil {
		return fmt.Errorf("failed to insert mandate: %w", err)
	}
	return nil
}

// InsertComment inserts one comment. The parent, when set, must already
// exist.
func InsertComment(q Queryer, c *domain.Comment) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	_, err := q.Exec(`
		INSERT INTO comments (id, proposition_id, parent_id, author_id, scope, section, visibility, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.PropositionID, nullableString(c.ParentID), c.AuthorID, c.Scope,
		nullableString(c.Section), c.Visibility, c.Content, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// InsertPropositionEvent inserts one scheduled event.
func InsertPropositionEvent(q Queryer, e *domain.PropositionEvent) error {
	if e.ID == "" {
		e.ID = NewID()
	}
	_, err := q.Exec(`
		INSERT INTO proposition_events (id, proposition_id, type, title, description, start_at, end_at, location, video_link, created_by_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.PropositionID, e.Type, nullableString(e.Title), nullableString(e.Description),
		nullableTime(e.StartAt), nullableTime(e.EndAt), nullableString(e.Location),
		nullableString(e.VideoLink), nullableString(e.CreatedByID), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// InsertReaction inserts one reaction.
func InsertReaction(q Queryer, r *domain.Reaction) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	_, err := q.Exec(`
		INSERT INTO reactions (id, proposition_id, author_id, type, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, r.ID, r.PropositionID, r.AuthorID, r.Type, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reaction: %w", err)
	}
	return nil
}

// StatusHistoryForProposition returns the status timeline, oldest first.
func StatusHistoryForProposition(q Queryer, propositionID string) ([]*domain.StatusHistory, error) {
	rows, err := q.Query(`
		SELECT id, proposition_id, from_status, to_status, triggered_by_user_id, reason, metadata, created_at
		FROM status_history WHERE proposition_id = ?
		ORDER BY created_at ASC
	`, propositionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	defer rows.Close()

	var entries []*domain.StatusHistory
	for rows.Next() {
		var h domain.StatusHistory
		err := rows.Scan(&h.ID, &h.PropositionID, &h.FromStatus, &h.ToStatus,
			&h.TriggeredByUserID, &h.Reason, &h.Metadata, &h.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		entries = append(entries, &h)
	}
	return entries, rows.Err()
}

// VotesForProposition returns the voting rounds of a proposition.
func VotesForProposition(q Queryer, propositionID string) ([]*domain.Vote, error) {
	rows, err := q.Query(`
		SELECT id, proposition_id, phase, method, title, description, open_at, close_at, max_selections, status, metadata
		FROM votes WHERE proposition_id = ?
		ORDER BY id
	`, propositionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	var votes []*domain.Vote
	for rows.Next() {
		var v domain.Vote
		err := rows.Scan(&v.ID, &v.PropositionID, &v.Phase, &v.Method, &v.Title,
			&v.Description, &v.OpenAt, &v.CloseAt, &v.MaxSelections, &v.Status, &v.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, &v)
	}
	return votes, rows.Err()
}

// OptionsForVote returns a vote's options ordered by position.
func OptionsForVote(q Queryer, voteID string) ([]*domain.VoteOption, error) {
	rows, err := q.Query(`
		SELECT id, vote_id, label, description, position, metadata
		FROM vote_options WHERE vote_id = ?
		ORDER BY position ASC
	`, voteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vote options: %w", err)
	}
	defer rows.Close()

	var options []*domain.VoteOption
	for rows.Next() {
		var o domain.VoteOption
		err := rows.Scan(&o.ID, &o.VoteID, &o.Label, &o.Description, &o.Position, &o.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote option: %w", err)
		}
		options = append(options, &o)
	}
	return options, rows.Err()
}

// BallotsForVote returns a vote's ballots, oldest first.
func BallotsForVote(q Queryer, voteID string) ([]*domain.VoteBallot, error) {
	rows, err := q.Query(`
		SELECT id, vote_id, voter_id, payload, recorded_at, revoked_at
		FROM vote_ballots WHERE vote_id = ?
		ORDER BY recorded_at ASC
	`, voteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ballots: %w", err)
	}
	defer rows.Close()

	var ballots []*domain.VoteBallot
	for rows.Next() {
		var b domain.VoteBallot
		err := rows.Scan(&b.ID, &b.VoteID, &b.VoterID, &b.Payload, &b.RecordedAt, &b.RevokedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ballot: %w", err)
		}
		ballots = append(ballots, &b)
	}
	return ballots, rows.Err()
}

// MandatesForProposition returns the mandates of a proposition.
func MandatesForProposition(q Queryer, propositionID string) ([]*domain.Mandate, error) {
	rows, err := q.Query(`
		SELECT id, proposition_id, title, description, holder_id, status, target_objective_ref, initial_deadline, current_deadline, metadata
		FROM mandates WHERE proposition_id = ?
		ORDER BY id
	`, propositionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list mandates: %w", err)
	}
	defer rows.Close()

	var mandates []*domain.Mandate
	for rows.Next() {
		var m domain.Mandate
		err := rows.Scan(&m.ID, &m.PropositionID, &m.Title, &m.Description, &m.HolderID,
			&m.Status, &m.TargetObjectiveRef, &m.InitialDeadline, &m.CurrentDeadline, &m.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mandate: %w", err)
		}
		mandates = append(mandates, &m)
	}
	return mandates, rows.Err()
}

// CommentsForProposition returns comments oldest first, parents before
// replies when created_at ties are broken by id.
func CommentsForProposition(q Queryer, propositionID string) ([]*domain.Comment, error) {
	rows, err := q.Query(`
		SELECT id, proposition_id, parent_id, author_id, scope, section, visibility, content, created_at
		FROM comments WHERE proposition_id = ?
		ORDER BY created_at ASC, id ASC
	`, propositionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*domain.Comment
	for rows.Next() {
		var c domain.Comment
		err := rows.Scan(&c.ID, &c.PropositionID, &c.ParentID, &c.AuthorID, &c.Scope,
			&c.Section, &c.Visibility, &c.Content, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

// EventsForProposition returns scheduled events, oldest first.
func EventsForProposition(q Queryer, propositionID string) ([]*domain.PropositionEvent, error) {
	rows, err := q.Query(`
		SELECT id, proposition_id, type, title, description, start_at, end_at, location, video_link, created_by_id, created_at
		FROM proposition_events WHERE proposition_id = ?
		ORDER BY created_at ASC
	`, propositionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*domain.PropositionEvent
	for rows.Next() {
		var e domain.PropositionEvent
		err := rows.Scan(&e.ID, &e.PropositionID, &e.Type, &e.Title, &e.Description,
			&e.StartAt, &e.EndAt, &e.Location, &e.VideoLink, &e.CreatedByID, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// ReactionsForProposition returns reactions, oldest first.
func ReactionsForProposition(q Queryer, propositionID string) ([]*domain.Reaction, error) {
	rows, err := q.Query(`
		SELECT id, proposition_id, author_id, type, created_at
		FROM reactions WHERE proposition_id = ?
		ORDER BY created_at ASC
	`, propositionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reactions: %w", err)
	}
	defer rows.Close()

	var reactions []*domain.Reaction
	for rows.Next() {
		var r domain.Reaction
		if err := rows.Scan(&r.ID, &r.PropositionID, &r.AuthorID, &r.Type, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reaction: %w", err)
		}
		reactions = append(reactions, &r)
	}
	return reactions, rows.Err()
}

// nullableInt converts *int for binding.
func nullableInt(i *int) interface{} {
	if i == nil {
		return nil
	}
	return *i
}

package importer

import (
	"encoding/json"
	"fmt"

	"github.com/openassembly/propmove/internal/domain"
	"github.com/openassembly/propmove/internal/export"
	"github.com/openassembly/propmove/internal/store"
)

// importEnrichedData imports the optional sub-entities of every
// proposition that got a target id. Rows whose referenced user cannot
// be resolved are dropped with a per-row warning on the proposition's
// detail entry. A failure inside one proposition's enriched data rolls
// back just that data, not the proposition itself.
func (r *executionRun) importEnrichedData() {
	for i := range r.data.Propositions {
		prop := &r.data.Propositions[i]
		targetID, ok := r.ctx.propositionID(prop.SourceID)
		if !ok {
			continue
		}
		detail := &r.result.Details[i]

		savepoint := fmt.Sprintf("enriched_%d", i)
		if err := r.withSavepoint(savepoint, func() error {
			return r.importEnrichedFor(prop, targetID, detail)
		}); err != nil {
			detail.Warnings = append(detail.Warnings,
				fmt.Sprintf("enriched data not imported: %v", err))
		}
	}
}

func (r *executionRun) importEnrichedFor(prop *export.ExportedProposition, targetID string, detail *ImportDetail) error {
	if err := r.importStatusHistory(prop.StatusHistory, targetID, detail); err != nil {
		return err
	}
	if err := r.importVotes(prop.Votes, targetID, detail); err != nil {
		return err
	}
	if err := r.importMandates(prop.Mandates, targetID, detail); err != nil {
		return err
	}
	if err := r.importComments(prop.Comments, targetID, detail); err != nil {
		return err
	}
	if err := r.importEvents(prop.Events, targetID, detail); err != nil {
		return err
	}
	return r.importReactions(prop.Reactions, targetID, detail)
}

// resolveEnrichedUser maps a user reference from enriched rows. Users
// never seen during resolveUsers are matched by exact email or
// username and bound so later rows agree.
func (r *executionRun) resolveEnrichedUser(ref *export.UserReference) (string, bool) {
	if ref == nil || ref.SourceID == "" {
		return "", false
	}
	if id, ok := r.ctx.userID(ref.SourceID); ok {
		return id, true
	}
	user, err := store.FindUserByEmailOrUsername(r.tx, ref.Email, ref.Username)
	if err != nil || user == nil {
		return "", false
	}
	r.ctx.bindUser(ref.SourceID, user.ID)
	return user.ID, true
}

func (r *executionRun) importStatusHistory(entries []export.ExportedStatusHistory, targetID string, detail *ImportDetail) error {
	for _, h := range entries {
		createdAt, err := domain.ParseTimestamp(h.CreatedAt)
		if err != nil {
			detail.Warnings = append(detail.Warnings,
				fmt.Sprintf("status history entry dropped: bad createdAt %q", h.CreatedAt))
			continue
		}

		var triggeredBy *string
		if h.TriggeredBy != nil {
			if id, ok := r.resolveEnrichedUser(h.TriggeredBy); ok {
				triggeredBy = &id
			} else {
				detail.Warnings = append(detail.Warnings,
					fmt.Sprintf("status history trigger user %q not resolved, recorded without actor", h.TriggeredBy.Username))
			}
		}

		err = store.InsertStatusHistory(r.tx, &domain.StatusHistory{
			PropositionID:     targetID,
			FromStatus:        h.FromStatus,
			ToStatus:          h.ToStatus,
			TriggeredByUserID: triggeredBy,
			Reason:            h.Reason,
			Metadata:          metadataJSON(h.Metadata),
			CreatedAt:         createdAt,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *executionRun) importVotes(votes []export.ExportedVote, targetID string, detail *ImportDetail) error {
	for _, v := range votes {
		openAt, err := parseTimePtr(v.OpenAt, "openAt")
		if err != nil {
			return err
		}
		closeAt, err := parseTimePtr(v.CloseAt, "closeAt")
		if err != nil {
			return err
		}

		vote := &domain.Vote{
			PropositionID: targetID,
			Phase:         v.Phase,
			Method:        v.Method,
			Title:         v.Title,
			Description:   v.Description,
			OpenAt:        openAt,
			CloseAt:       closeAt,
			MaxSelections: v.MaxSelections,
			Status:        v.Status,
			Metadata:      metadataJSON(v.Metadata),
		}
		if err := store.InsertVote(r.tx, vote); err != nil {
			return err
		}

		// Option ids are remapped before ballots so payload references
		// stay coherent.
		optionIDs := make(map[string]string, len(v.Options))
		for _, o := range v.Options {
			option := &domain.VoteOption{
				VoteID:      vote.ID,
				Label:       o.Label,
				Description: o.Description,
				Position:    o.Position,
				Metadata:    metadataJSON(o.Metadata),
			}
			if err := store.InsertVoteOption(r.tx, option); err != nil {
				return err
			}
			if o.SourceID != "" {
				optionIDs[o.SourceID] = option.ID
			}
		}

		for _, b := range v.Ballots {
			voterID, ok := r.resolveEnrichedUser(&b.Voter)
			if !ok {
				detail.Warnings = append(detail.Warnings,
					fmt.Sprintf("ballot dropped: voter %q not resolved", b.Voter.Username))
				continue
			}
			recordedAt, err := domain.ParseTimestamp(b.RecordedAt)
			if err != nil {
				detail.Warnings = append(detail.Warnings,
					fmt.Sprintf("ballot dropped: bad recordedAt %q", b.RecordedAt))
				continue
			}
			revokedAt, err := parseTimePtr(b.RevokedAt, "revokedAt")
			if err != nil {
				return err
			}

			payload, err := json.Marshal(remapOptionRefs(b.Payload, optionIDs))
			if err != nil {
				return fmt.Errorf("failed to encode ballot payload: %w", err)
			}
			err = store.InsertVoteBallot(r.tx, &domain.VoteBallot{
				VoteID:     vote.ID,
				VoterID:    voterID,
				Payload:    string(payload),
				RecordedAt: recordedAt,
				RevokedAt:  revokedAt,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// remapOptionRefs walks a ballot payload and replaces every string
// value that names a source vote-option id with the option's new id.
func remapOptionRefs(value interface{}, optionIDs map[string]string) interface{} {
	switch v := value.(type) {
	case string:
		if mapped, ok := optionIDs[v]; ok {
			return mapped
		}
		return v
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, inner := range v {
			out[key] = remapOptionRefs(inner, optionIDs)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = remapOptionRefs(inner, optionIDs)
		}
		return out
	default:
		return v
	}
}

func (r *executionRun) importMandates(mandates []export.ExportedMandate, targetID string, detail *ImportDetail) error {
	for _, m := range mandates {
		var holderID *string
		if m.Holder != nil {
			if id, ok := r.resolveEnrichedUser(m.Holder); ok {
				holderID = &id
			} else {
				detail.Warnings = append(detail.Warnings,
					fmt.Sprintf("mandate holder %q not resolved, recorded without holder", m.Holder.Username))
			}
		}
		initialDeadline, err := parseDatePtr(m.InitialDeadline, "initialDeadline")
		if err != nil {
			return err
		}
		currentDeadline, err := parseDatePtr(m.CurrentDeadline, "currentDeadline")
		if err != nil {
			return err
		}

		err = store.InsertMandate(r.tx, &domain.Mandate{
			PropositionID:      targetID,
			Title:              m.Title,
			Description:        m.Description,
			HolderID:           holderID,
			Status:             m.Status,
			TargetObjectiveRef: m.TargetObjectiveRef,
			InitialDeadline:    initialDeadline,
			CurrentDeadline:    currentDeadline,
			Metadata:           metadataJSON(m.Metadata),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// importComments runs two passes so replies always find their parent's
// new id: roots first, then everything threaded under them.
func (r *executionRun) importComments(comments []export.ExportedComment, targetID string, detail *ImportDetail) error {
	newIDs := make(map[string]string, len(comments))

	insert := func(c *export.ExportedComment, parentID *string) error {
		authorID, ok := r.resolveEnrichedUser(&c.Author)
		if !ok {
			detail.Warnings = append(detail.Warnings,
				fmt.Sprintf("comment dropped: author %q not resolved", c.Author.Username))
			return nil
		}
		createdAt, err := domain.ParseTimestamp(c.CreatedAt)
		if err != nil {
			detail.Warnings = append(detail.Warnings,
				fmt.Sprintf("comment dropped: bad createdAt %q", c.CreatedAt))
			return nil
		}

		comment := &domain.Comment{
			PropositionID: targetID,
			ParentID:      parentID,
			AuthorID:      authorID,
			Scope:         c.Scope,
			Section:       c.Section,
			Visibility:    c.Visibility,
			Content:       c.Content,
			CreatedAt:     createdAt,
		}
		if err := store.InsertComment(r.tx, comment); err != nil {
			return err
		}
		if c.SourceID != "" {
			newIDs[c.SourceID] = comment.ID
		}
		return nil
	}

	for i := range comments {
		if comments[i].ParentSourceID != nil {
			continue
		}
		if err := insert(&comments[i], nil); err != nil {
			return err
		}
	}
	for i := range comments {
		c := &comments[i]
		if c.ParentSourceID == nil {
			continue
		}
		parentID, ok := newIDs[*c.ParentSourceID]
		if !ok {
			detail.Warnings = append(detail.Warnings,
				fmt.Sprintf("comment dropped: parent %q was not imported", *c.ParentSourceID))
			continue
		}
		if err := insert(c, &parentID); err != nil {
			return err
		}
	}
	return nil
}

func (r *executionRun) importEvents(eventRows []export.ExportedEvent, targetID string, detail *ImportDetail) error {
	for _, ev := range eventRows {
		createdAt, err := domain.ParseTimestamp(ev.CreatedAt)
		if err != nil {
			detail.Warnings = append(detail.Warnings,
				fmt.Sprintf("event dropped: bad createdAt %q", ev.CreatedAt))
			continue
		}
		var createdBy *string
		if ev.CreatedBy != nil {
			if id, ok := r.resolveEnrichedUser(ev.CreatedBy); ok {
				createdBy = &id
			} else {
				detail.Warnings = append(detail.Warnings,
					fmt.Sprintf("event creator %q not resolved, recorded without creator", ev.CreatedBy.Username))
			}
		}
		startAt, err := parseTimePtr(ev.StartAt, "startAt")
		if err != nil {
			return err
		}
		endAt, err := parseTimePtr(ev.EndAt, "endAt")
		if err != nil {
			return err
		}

		err = store.InsertPropositionEvent(r.tx, &domain.PropositionEvent{
			PropositionID: targetID,
			Type:          ev.Type,
			Title:         ev.Title,
			Description:   ev.Description,
			StartAt:       startAt,
			EndAt:         endAt,
			Location:      ev.Location,
			VideoLink:     ev.VideoLink,
			CreatedByID:   createdBy,
			CreatedAt:     createdAt,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *executionRun) importReactions(reactions []export.ExportedReaction, targetID string, detail *ImportDetail) error {
	for _, reaction := range reactions {
		authorID, ok := r.resolveEnrichedUser(&reaction.Author)
		if !ok {
			detail.Warnings = append(detail.Warnings,
				fmt.Sprintf("reaction dropped: author %q not resolved", reaction.Author.Username))
			continue
		}
		createdAt, err := domain.ParseTimestamp(reaction.CreatedAt)
		if err != nil {
			detail.Warnings = append(detail.Warnings,
				fmt.Sprintf("reaction dropped: bad createdAt %q", reaction.CreatedAt))
			continue
		}

		err = store.InsertReaction(r.tx, &domain.Reaction{
			PropositionID: targetID,
			AuthorID:      authorID,
			Type:          reaction.Type,
			CreatedAt:     createdAt,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func metadataJSON(m map[string]interface{}) string {
	if len(m) == 0 {
		return "{}"
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(data)
}

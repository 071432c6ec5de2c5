package export

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openassembly/propmove/internal/domain"
	"github.com/openassembly/propmove/internal/filestore"
	"github.com/openassembly/propmove/internal/store"
)

// Exporter produces export documents from a live database.
type Exporter struct {
	db    *sql.DB
	files *filestore.Store
}

// NewExporter creates an exporter reading payloads from files.
func NewExporter(db *sql.DB, files *filestore.Store) *Exporter {
	return &Exporter{db: db, files: files}
}

// Export builds a document for the given proposition ids on behalf of
// the given user. Options selects which enriched data rides along.
func (e *Exporter) Export(propositionIDs []string, exportedBy string, envName string, opts Options) (*Data, error) {
	actor, err := store.GetUser(e.db, exportedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve exporting user: %w", err)
	}

	doc := &Data{
		ExportVersion: Version,
		ExportedAt:    time.Now().UTC().Format(time.RFC3339),
		ExportedBy: ExportedBy{
			UserID:   actor.ID,
			Username: actor.Username,
			Email:    actor.Email,
		},
		SourceEnvironment: SourceEnvironment{Name: envName},
		Propositions:      []ExportedProposition{},
	}

	for _, id := range propositionIDs {
		exported, err := e.exportProposition(id, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to export proposition %s: %w", id, err)
		}
		doc.Propositions = append(doc.Propositions, *exported)
	}

	return doc, nil
}

func (e *Exporter) exportProposition(id string, opts Options) (*ExportedProposition, error) {
	p, err := store.GetProposition(e.db, id)
	if err != nil {
		return nil, err
	}

	settings, err := p.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("invalid settings snapshot: %w", err)
	}

	out := &ExportedProposition{
		SourceID:            p.ID,
		Title:               p.Title,
		Summary:             p.Summary,
		DetailedDescription: emptyToNil(p.DetailedDescription),
		SmartObjectives:     emptyToNil(p.SmartObjectives),
		Impacts:             emptyToNil(p.Impacts),
		MandatesDescription: emptyToNil(p.MandatesDescription),
		Expertise:           p.Expertise,

		Status:          string(p.Status),
		StatusStartedAt: formatTime(p.StatusStartedAt),
		Visibility:      string(p.Visibility),
		ArchivedAt:      formatTimePtr(p.ArchivedAt),

		ClarificationDeadline: formatTimePtr(p.ClarificationDeadline),
		AmendmentDeadline:     formatTimePtr(p.AmendmentDeadline),
		VoteDeadline:          formatTimePtr(p.VoteDeadline),
		MandateDeadline:       formatTimePtr(p.MandateDeadline),
		EvaluationDeadline:    formatTimePtr(p.EvaluationDeadline),

		SettingsSnapshot: settings,

		CreatedAt: formatTime(p.CreatedAt),
		UpdatedAt: formatTime(p.UpdatedAt),
	}

	refs, err := e.exportReferences(p)
	if err != nil {
		return nil, err
	}
	out.ExternalReferences = *refs

	if opts.IncludeStatusHistory {
		if out.StatusHistory, err = e.exportStatusHistory(p.ID); err != nil {
			return nil, err
		}
	}
	if opts.IncludeVotes {
		if out.Votes, err = e.exportVotes(p.ID, opts.IncludeBallots); err != nil {
			return nil, err
		}
	}
	if opts.IncludeMandates {
		if out.Mandates, err = e.exportMandates(p.ID); err != nil {
			return nil, err
		}
	}
	if opts.IncludeComments {
		if out.Comments, err = e.exportComments(p.ID); err != nil {
			return nil, err
		}
	}
	if opts.IncludeEvents {
		if out.Events, err = e.exportEvents(p.ID); err != nil {
			return nil, err
		}
	}
	if opts.IncludeReactions {
		if out.Reactions, err = e.exportReactions(p.ID); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (e *Exporter) exportReferences(p *domain.Proposition) (*ExternalReferences, error) {
	creator, err := e.userReference(p.CreatorID)
	if err != nil {
		return nil, err
	}

	refs := &ExternalReferences{
		Creator:                *creator,
		Categories:             []CategoryReference{},
		RescueInitiators:       []UserReference{},
		Attachments:            []FileReference{},
		AssociatedPropositions: []PropositionReference{},
	}

	catIDs, err := store.CategoryIDsForProposition(e.db, p.ID)
	if err != nil {
		return nil, err
	}
	for _, catID := range catIDs {
		var cat domain.Category
		err := e.db.QueryRow(`SELECT id, name, created_at FROM categories WHERE id = ?`, catID).
			Scan(&cat.ID, &cat.Name, &cat.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to load category %s: %w", catID, err)
		}
		refs.Categories = append(refs.Categories, CategoryReference{SourceID: cat.ID, Name: cat.Name})
	}

	rescuerIDs, err := store.RescueInitiatorIDs(e.db, p.ID)
	if err != nil {
		return nil, err
	}
	for _, userID := range rescuerIDs {
		ref, err := e.userReference(userID)
		if err != nil {
			return nil, err
		}
		refs.RescueInitiators = append(refs.RescueInitiators, *ref)
	}

	if p.VisualFileID != nil {
		ref, err := e.fileReference(*p.VisualFileID)
		if err != nil {
			return nil, err
		}
		refs.Visual = ref
	}

	attachments, err := store.AttachmentFilesForProposition(e.db, p.ID)
	if err != nil {
		return nil, err
	}
	for _, f := range attachments {
		ref, err := e.fileReferenceFrom(f)
		if err != nil {
			return nil, err
		}
		refs.Attachments = append(refs.Attachments, *ref)
	}

	assocIDs, err := store.AssociatedPropositionIDs(e.db, p.ID)
	if err != nil {
		return nil, err
	}
	for _, assocID := range assocIDs {
		related, err := store.GetProposition(e.db, assocID)
		if err != nil {
			return nil, err
		}
		refs.AssociatedPropositions = append(refs.AssociatedPropositions,
			PropositionReference{SourceID: related.ID, Title: related.Title})
	}

	return refs, nil
}

func (e *Exporter) userReference(userID string) (*UserReference, error) {
	user, err := store.GetUser(e.db, userID)
	if err != nil {
		return nil, err
	}
	return &UserReference{
		SourceID:    user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
	}, nil
}

func (e *Exporter) userReferencePtr(userID *string) (*UserReference, error) {
	if userID == nil {
		return nil, nil
	}
	return e.userReference(*userID)
}

func (e *Exporter) fileReference(fileID string) (*FileReference, error) {
	f, err := store.GetFile(e.db, fileID)
	if err != nil {
		return nil, err
	}
	return e.fileReferenceFrom(f)
}

func (e *Exporter) fileReferenceFrom(f *domain.File) (*FileReference, error) {
	data, err := e.files.ReadBuffer(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload of file %s: %w", f.ID, err)
	}
	return &FileReference{
		SourceID:  f.ID,
		Name:      f.Name,
		Extension: f.Extension,
		MimeType:  f.MimeType,
		Size:      f.Size,
		Data:      base64.StdEncoding.EncodeToString(data),
	}, nil
}

func (e *Exporter) exportStatusHistory(propositionID string) ([]ExportedStatusHistory, error) {
	entries, err := store.StatusHistoryForProposition(e.db, propositionID)
	if err != nil {
		return nil, err
	}

	out := []ExportedStatusHistory{}
	for _, h := range entries {
		triggeredBy, err := e.userReferencePtr(h.TriggeredByUserID)
		if err != nil {
			return nil, err
		}
		out = append(out, ExportedStatusHistory{
			FromStatus:  h.FromStatus,
			ToStatus:    h.ToStatus,
			TriggeredBy: triggeredBy,
			Reason:      h.Reason,
			Metadata:    parseMetadata(h.Metadata),
			CreatedAt:   formatTime(h.CreatedAt),
		})
	}
	return out, nil
}

func (e *Exporter) exportVotes(propositionID string, includeBallots bool) ([]ExportedVote, error) {
	votes, err := store.VotesForProposition(e.db, propositionID)
	if err != nil {
		return nil, err
	}

	out := []ExportedVote{}
	for _, v := range votes {
		exported := ExportedVote{
			SourceID:      v.ID,
			Phase:         v.Phase,
			Method:        v.Method,
			Title:         v.Title,
			Description:   v.Description,
			OpenAt:        formatTimePtr(v.OpenAt),
			CloseAt:       formatTimePtr(v.CloseAt),
			MaxSelections: v.MaxSelections,
			Status:        v.Status,
			Metadata:      parseMetadata(v.Metadata),
			Options:       []ExportedVoteOption{},
		}

		options, err := store.OptionsForVote(e.db, v.ID)
		if err != nil {
			return nil, err
		}
		for _, o := range options {
			exported.Options = append(exported.Options, ExportedVoteOption{
				SourceID:    o.ID,
				Label:       o.Label,
				Description: o.Description,
				Position:    o.Position,
				Metadata:    parseMetadata(o.Metadata),
			})
		}

		if includeBallots {
			ballots, err := store.BallotsForVote(e.db, v.ID)
			if err != nil {
				return nil, err
			}
			for _, b := range ballots {
				voter, err := e.userReference(b.VoterID)
				if err != nil {
					return nil, err
				}
				exported.Ballots = append(exported.Ballots, ExportedVoteBallot{
					Voter:      *voter,
					Payload:    parseMetadata(b.Payload),
					RecordedAt: formatTime(b.RecordedAt),
					RevokedAt:  formatTimePtr(b.RevokedAt),
				})
			}
		}

		out = append(out, exported)
	}
	return out, nil
}

func (e *Exporter) exportMandates(propositionID string) ([]ExportedMandate, error) {
	mandates, err := store.MandatesForProposition(e.db, propositionID)
	if err != nil {
		return nil, err
	}

	out := []ExportedMandate{}
	for _, m := range mandates {
		holder, err := e.userReferencePtr(m.HolderID)
		if err != nil {
			return nil, err
		}
		out = append(out, ExportedMandate{
			SourceID:           m.ID,
			Title:              m.Title,
			Description:        m.Description,
			Holder:             holder,
			Status:             m.Status,
			TargetObjectiveRef: m.TargetObjectiveRef,
			InitialDeadline:    formatTimePtr(m.InitialDeadline),
			CurrentDeadline:    formatTimePtr(m.CurrentDeadline),
			Metadata:           parseMetadata(m.Metadata),
		})
	}
	return out, nil
}

func (e *Exporter) exportComments(propositionID string) ([]ExportedComment, error) {
	comments, err := store.CommentsForProposition(e.db, propositionID)
	if err != nil {
		return nil, err
	}

	out := []ExportedComment{}
	for _, c := range comments {
		author, err := e.userReference(c.AuthorID)
		if err != nil {
			return nil, err
		}
		out = append(out, ExportedComment{
			SourceID:       c.ID,
			ParentSourceID: c.ParentID,
			Author:         *author,
			Scope:          c.Scope,
			Section:        c.Section,
			Visibility:     c.Visibility,
			Content:        c.Content,
			CreatedAt:      formatTime(c.CreatedAt),
		})
	}
	return out, nil
}

func (e *Exporter) exportEvents(propositionID string) ([]ExportedEvent, error) {
	eventRows, err := store.EventsForProposition(e.db, propositionID)
	if err != nil {
		return nil, err
	}

	out := []ExportedEvent{}
	for _, ev := range eventRows {
		createdBy, err := e.userReferencePtr(ev.CreatedByID)
		if err != nil {
			return nil, err
		}
		out = append(out, ExportedEvent{
			SourceID:    ev.ID,
			Type:        ev.Type,
			Title:       ev.Title,
			Description: ev.Description,
			StartAt:     formatTimePtr(ev.StartAt),
			EndAt:       formatTimePtr(ev.EndAt),
			Location:    ev.Location,
			VideoLink:   ev.VideoLink,
			CreatedBy:   createdBy,
			CreatedAt:   formatTime(ev.CreatedAt),
		})
	}
	return out, nil
}

func (e *Exporter) exportReactions(propositionID string) ([]ExportedReaction, error) {
	reactions, err := store.ReactionsForProposition(e.db, propositionID)
	if err != nil {
		return nil, err
	}

	out := []ExportedReaction{}
	for _, r := range reactions {
		author, err := e.userReference(r.AuthorID)
		if err != nil {
			return nil, err
		}
		out = append(out, ExportedReaction{
			Author:    *author,
			Type:      r.Type,
			CreatedAt: formatTime(r.CreatedAt),
		})
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseMetadata(raw string) map[string]interface{} {
	if raw == "" {
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil || m == nil {
		return map[string]interface{}{}
	}
	return m
}

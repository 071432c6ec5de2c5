package importer

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/openassembly/propmove/internal/domain"
	"github.com/openassembly/propmove/internal/events"
	"github.com/openassembly/propmove/internal/export"
	"github.com/openassembly/propmove/internal/filestore"
	"github.com/openassembly/propmove/internal/store"
	"github.com/openassembly/propmove/internal/workflow"
)

// Executor applies a configured import session inside one database
// transaction. Each proposition's import runs under its own savepoint
// so a failed item is recorded and rolled back without poisoning the
// rest of the batch.
type Executor struct {
	db       *sql.DB
	files    *filestore.Store
	events   *events.Writer
	sessions *SessionStore
}

// NewExecutor creates an executor.
func NewExecutor(db *sql.DB, files *filestore.Store, ev *events.Writer, sessions *SessionStore) *Executor {
	return &Executor{db: db, files: files, events: ev, sessions: sessions}
}

// ExecuteImport runs the session named by cfg.ImportID with the given
// resolutions, acting as actingUserID. Returns ErrSessionNotFound
// before opening any transaction when the session is missing or
// expired. Global failures roll everything back and come back as
// Success=false; per-proposition failures are recorded in Details and
// Errors while the rest of the batch commits.
func (e *Executor) ExecuteImport(cfg *ImportConfiguration, actingUserID string) (*ImportResult, error) {
	session := e.sessions.Get(cfg.ImportID)
	if session == nil {
		return nil, ErrSessionNotFound
	}

	result := &ImportResult{
		Details: []ImportDetail{},
		Errors:  []string{},
	}

	tx, err := e.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	run := &executionRun{
		executor:    e,
		tx:          tx,
		data:        session.ExportData,
		resolutions: indexResolutions(cfg, session.Report),
		ctx:         newResolutionContext(),
		actor:       actingUserID,
		result:      result,
		now:         time.Now().UTC(),
	}

	if err := run.execute(); err != nil {
		tx.Rollback()
		result.Success = false
		result.Errors = append(result.Errors, err.Error())
		return result, nil
	}

	if err := tx.Commit(); err != nil {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("failed to commit import: %v", err))
		return result, nil
	}

	result.Success = true
	return result, nil
}

// indexResolutions keys the configured resolutions by sourceId. A
// resolution naming a conflict index is resolved through the report it
// answers.
func indexResolutions(cfg *ImportConfiguration, report *ConflictReport) map[string]*ConflictResolution {
	index := make(map[string]*ConflictResolution)
	for i := range cfg.Resolutions {
		res := &cfg.Resolutions[i]
		sourceID := res.SourceID
		if sourceID == "" && res.ConflictIndex != nil {
			idx := *res.ConflictIndex
			if idx >= 0 && idx < len(report.Conflicts) {
				sourceID = report.Conflicts[idx].Reference.SourceID
			}
		}
		if sourceID != "" {
			index[sourceID] = res
		}
	}
	return index
}

// executionRun carries the state of one ExecuteImport call.
type executionRun struct {
	executor    *Executor
	tx          *sql.Tx
	data        *export.Data
	resolutions map[string]*ConflictResolution
	ctx         *resolutionContext
	actor       string
	result      *ImportResult
	now         time.Time
}

func (r *executionRun) execute() error {
	if err := r.resolveUsers(); err != nil {
		return err
	}
	if err := r.resolveCategories(); err != nil {
		return err
	}
	r.importPropositions()
	r.importEnrichedData()
	if err := r.createAssociations(); err != nil {
		return err
	}
	return nil
}

// resolveUsers binds every distinct user reference of the batch. An
// explicit resolution wins; otherwise an exact email-or-username match
// binds automatically. Unresolvable users stay unbound and surface
// per proposition.
func (r *executionRun) resolveUsers() error {
	for _, ref := range r.collectUserReferences() {
		if _, done := r.ctx.userID(ref.SourceID); done {
			continue
		}

		if res, ok := r.resolutions[ref.SourceID]; ok {
			switch res.Strategy {
			case StrategyCreateNew:
				user, err := r.createUser(ref, res.CreateUser)
				if err != nil {
					return err
				}
				r.ctx.bindUser(ref.SourceID, user.ID)
				continue
			case StrategyMapExisting:
				if res.MappedID != "" {
					r.ctx.bindUser(ref.SourceID, res.MappedID)
				}
				continue
			case StrategySkip, StrategyRemove:
				continue
			}
		}

		user, err := store.FindUserByEmailOrUsername(r.tx, ref.Email, ref.Username)
		if err != nil {
			return err
		}
		if user != nil {
			r.ctx.bindUser(ref.SourceID, user.ID)
		}
	}
	return nil
}

func (r *executionRun) collectUserReferences() []*export.UserReference {
	var refs []*export.UserReference
	seen := make(map[string]bool)
	add := func(ref *export.UserReference) {
		if ref.SourceID == "" || seen[ref.SourceID] {
			return
		}
		seen[ref.SourceID] = true
		refs = append(refs, ref)
	}

	for i := range r.data.Propositions {
		prop := &r.data.Propositions[i]
		add(&prop.ExternalReferences.Creator)
		for j := range prop.ExternalReferences.RescueInitiators {
			add(&prop.ExternalReferences.RescueInitiators[j])
		}
	}
	return refs
}

func (r *executionRun) createUser(ref *export.UserReference, input *UserCreateInput) (*domain.User, error) {
	params := store.UserCreateParams{
		Username:    ref.Username,
		Email:       ref.Email,
		DisplayName: ref.DisplayName,
	}
	password := ""
	if input != nil {
		if input.Username != "" {
			params.Username = input.Username
		}
		if input.Email != "" {
			params.Email = input.Email
		}
		if input.DisplayName != nil {
			params.DisplayName = input.DisplayName
		}
		if input.Role != "" && domain.ValidateUserRole(input.Role) == nil {
			params.Role = domain.UserRole(input.Role)
		}
		password = input.Password
	}
	if params.Role == "" && domain.ValidateUserRole(ref.Role) == nil {
		params.Role = domain.UserRole(ref.Role)
	}
	if password == "" {
		password = randomPassword()
	}
	params.PasswordHash = hashPassword(password)

	user, err := store.CreateUser(r.tx, params)
	if err != nil {
		return nil, err
	}
	r.result.Summary.UsersCreated++
	if err := r.executor.events.LogUserImported(r.tx, r.actor, user, ref.SourceID); err != nil {
		return nil, err
	}
	return user, nil
}

// resolveCategories binds every distinct category reference. Unlike
// users, categories degrade gracefully: with no explicit resolution and
// no name match, the category is created.
func (r *executionRun) resolveCategories() error {
	seen := make(map[string]bool)
	for i := range r.data.Propositions {
		for j := range r.data.Propositions[i].ExternalReferences.Categories {
			ref := &r.data.Propositions[i].ExternalReferences.Categories[j]
			if ref.SourceID == "" || seen[ref.SourceID] {
				continue
			}
			seen[ref.SourceID] = true

			if res, ok := r.resolutions[ref.SourceID]; ok {
				switch res.Strategy {
				case StrategyCreateNew:
					name := ref.Name
					if res.CreateCategory != nil && res.CreateCategory.Name != "" {
						name = res.CreateCategory.Name
					}
					if err := r.createCategory(ref.SourceID, name); err != nil {
						return err
					}
					continue
				case StrategyMapExisting:
					if res.MappedID != "" {
						r.ctx.bindCategory(ref.SourceID, res.MappedID)
					}
					continue
				case StrategySkip, StrategyRemove:
					continue
				}
			}

			cat, err := store.FindCategoryByName(r.tx, ref.Name)
			if err != nil {
				return err
			}
			if cat != nil {
				r.ctx.bindCategory(ref.SourceID, cat.ID)
				continue
			}
			if err := r.createCategory(ref.SourceID, ref.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *executionRun) createCategory(sourceID, name string) error {
	cat, err := store.CreateCategory(r.tx, name)
	if err != nil {
		return err
	}
	r.ctx.bindCategory(sourceID, cat.ID)
	r.result.Summary.CategoriesCreated++
	return r.executor.events.LogCategoryImported(r.tx, r.actor, cat, sourceID)
}

func (r *executionRun) importPropositions() {
	for i := range r.data.Propositions {
		prop := &r.data.Propositions[i]
		detail := ImportDetail{SourceID: prop.SourceID, Title: prop.Title}

		if res, ok := r.resolutions[prop.SourceID]; ok && res.Strategy == StrategySkip {
			detail.Action = ActionSkipped
			r.result.Summary.PropositionsSkipped++
			r.result.Details = append(r.result.Details, detail)
			continue
		}

		savepoint := fmt.Sprintf("import_item_%d", i)
		if err := r.withSavepoint(savepoint, func() error {
			return r.importProposition(prop, &detail)
		}); err != nil {
			detail.Action = ActionFailed
			detail.Error = err.Error()
			r.result.Errors = append(r.result.Errors, fmt.Sprintf("%s: %v", prop.Title, err))
		}

		r.result.Details = append(r.result.Details, detail)
	}
}

// withSavepoint runs fn inside a named savepoint so its writes can be
// undone without aborting the surrounding transaction.
func (r *executionRun) withSavepoint(name string, fn func() error) error {
	if _, err := r.tx.Exec("SAVEPOINT " + name); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}
	if err := fn(); err != nil {
		r.tx.Exec("ROLLBACK TO SAVEPOINT " + name)
		r.tx.Exec("RELEASE SAVEPOINT " + name)
		return err
	}
	if _, err := r.tx.Exec("RELEASE SAVEPOINT " + name); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

func (r *executionRun) importProposition(prop *export.ExportedProposition, detail *ImportDetail) error {
	refs := &prop.ExternalReferences

	creatorID, ok := r.ctx.userID(refs.Creator.SourceID)
	if !ok {
		return fmt.Errorf("creator %q could not be resolved", refs.Creator.Username)
	}

	var categoryIDs []string
	for _, cat := range refs.Categories {
		if id, ok := r.ctx.categoryID(cat.SourceID); ok {
			categoryIDs = append(categoryIDs, id)
		}
	}
	var rescuerIDs []string
	for _, u := range refs.RescueInitiators {
		if id, ok := r.ctx.userID(u.SourceID); ok {
			rescuerIDs = append(rescuerIDs, id)
		}
	}

	var visualID *string
	if refs.Visual != nil {
		id, err := r.importFile(refs.Visual, domain.FileTypePropositionVisual)
		if err != nil {
			return err
		}
		visualID = &id
	}
	var attachmentIDs []string
	for i := range refs.Attachments {
		id, err := r.importFile(&refs.Attachments[i], domain.FileTypePropositionAttachment)
		if err != nil {
			return err
		}
		attachmentIDs = append(attachmentIDs, id)
	}

	if res, ok := r.resolutions[prop.SourceID]; ok && res.Strategy == StrategyMerge && res.MappedID != "" {
		return r.mergeProposition(prop, res, categoryIDs, detail)
	}
	return r.createProposition(prop, creatorID, categoryIDs, rescuerIDs, visualID, attachmentIDs, detail)
}

func (r *executionRun) importFile(ref *export.FileReference, fileType domain.FileType) (string, error) {
	if id, ok := r.ctx.fileID(ref.SourceID); ok {
		return id, nil
	}

	payload, err := base64.StdEncoding.DecodeString(ref.Data)
	if err != nil {
		return "", fmt.Errorf("invalid file payload for %q: %w", ref.Name, err)
	}

	id := store.NewID()
	path := filestore.RelativePath(id, ref.Extension)
	if _, err := r.executor.files.WriteBuffer(path, payload); err != nil {
		return "", err
	}

	file, err := store.CreateFile(r.tx, store.FileCreateParams{
		ID:        id,
		Name:      ref.Name,
		Path:      path,
		Extension: ref.Extension,
		MimeType:  ref.MimeType,
		Size:      int64(len(payload)),
		Type:      fileType,
	})
	if err != nil {
		return "", err
	}

	r.ctx.bindFile(ref.SourceID, file.ID)
	r.result.Summary.FilesUploaded++
	if err := r.executor.events.LogFileImported(r.tx, r.actor, file, ref.SourceID); err != nil {
		return "", err
	}
	return file.ID, nil
}

func (r *executionRun) mergeProposition(prop *export.ExportedProposition, res *ConflictResolution, categoryIDs []string, detail *ImportDetail) error {
	existing, err := store.GetProposition(r.tx, res.MappedID)
	if err != nil {
		return err
	}

	var mergedFields []string
	for _, fr := range res.FieldResolutions {
		switch fr.Action {
		case MergeKeepIncoming:
			if fr.Field == "categories" {
				if _, err := r.tx.Exec(`DELETE FROM proposition_categories WHERE proposition_id = ?`, existing.ID); err != nil {
					return fmt.Errorf("failed to replace categories: %w", err)
				}
				if err := store.AttachCategories(r.tx, existing.ID, categoryIDs); err != nil {
					return err
				}
			} else if err := applyIncomingField(existing, prop, fr.Field); err != nil {
				return err
			}
			mergedFields = append(mergedFields, fr.Field)
		case MergeBoth:
			if fr.Field != "categories" {
				return fmt.Errorf("merge_both only applies to categories, got %q", fr.Field)
			}
			if err := store.AttachCategories(r.tx, existing.ID, categoryIDs); err != nil {
				return err
			}
			mergedFields = append(mergedFields, fr.Field)
		case MergeKeepCurrent, MergeSkip:
			// no-op
		default:
			return fmt.Errorf("unknown merge action %q for field %q", fr.Action, fr.Field)
		}
	}

	if err := store.UpdatePropositionContent(r.tx, existing); err != nil {
		return err
	}
	if err := r.executor.events.LogPropositionMerged(r.tx, r.actor, existing.ID, prop.SourceID, mergedFields); err != nil {
		return err
	}

	r.ctx.bindProposition(prop.SourceID, existing.ID)
	r.result.Summary.PropositionsMerged++
	detail.Action = ActionMerged
	detail.TargetID = existing.ID
	return nil
}

func applyIncomingField(existing *domain.Proposition, prop *export.ExportedProposition, field string) error {
	switch field {
	case "title":
		existing.Title = prop.Title
	case "summary":
		existing.Summary = prop.Summary
	case "detailedDescription":
		existing.DetailedDescription = stringOrEmpty(prop.DetailedDescription)
	case "smartObjectives":
		existing.SmartObjectives = stringOrEmpty(prop.SmartObjectives)
	case "impacts":
		existing.Impacts = stringOrEmpty(prop.Impacts)
	case "mandatesDescription":
		existing.MandatesDescription = stringOrEmpty(prop.MandatesDescription)
	case "expertise":
		existing.Expertise = prop.Expertise
	default:
		return fmt.Errorf("field %q is not mergeable", field)
	}
	return nil
}

func (r *executionRun) createProposition(prop *export.ExportedProposition, creatorID string, categoryIDs, rescuerIDs []string, visualID *string, attachmentIDs []string, detail *ImportDetail) error {
	p := &domain.Proposition{
		Title:               prop.Title,
		Summary:             prop.Summary,
		DetailedDescription: stringOrEmpty(prop.DetailedDescription),
		SmartObjectives:     stringOrEmpty(prop.SmartObjectives),
		Impacts:             stringOrEmpty(prop.Impacts),
		MandatesDescription: stringOrEmpty(prop.MandatesDescription),
		Expertise:           prop.Expertise,
		VisualFileID:        visualID,
		CreatorID:           creatorID,
	}

	if prop.Status != "" {
		if err := domain.ValidateStatus(prop.Status); err != nil {
			return err
		}
		p.Status = domain.PropositionStatus(prop.Status)
	}
	if prop.Visibility != "" {
		if err := domain.ValidateVisibility(prop.Visibility); err != nil {
			return err
		}
		p.Visibility = domain.PropositionVisibility(prop.Visibility)
	}
	if prop.StatusStartedAt != "" {
		t, err := domain.ParseTimestamp(prop.StatusStartedAt)
		if err != nil {
			return fmt.Errorf("statusStartedAt: %w", err)
		}
		p.StatusStartedAt = t
	}

	var err error
	if p.ArchivedAt, err = parseTimePtr(prop.ArchivedAt, "archivedAt"); err != nil {
		return err
	}
	if p.ClarificationDeadline, err = parseDatePtr(prop.ClarificationDeadline, "clarificationDeadline"); err != nil {
		return err
	}
	if p.AmendmentDeadline, err = parseDatePtr(prop.AmendmentDeadline, "amendmentDeadline"); err != nil {
		return err
	}
	if p.VoteDeadline, err = parseDatePtr(prop.VoteDeadline, "voteDeadline"); err != nil {
		return err
	}
	if p.MandateDeadline, err = parseDatePtr(prop.MandateDeadline, "mandateDeadline"); err != nil {
		return err
	}
	if p.EvaluationDeadline, err = parseDatePtr(prop.EvaluationDeadline, "evaluationDeadline"); err != nil {
		return err
	}
	if err := p.SetSettings(prop.SettingsSnapshot); err != nil {
		return fmt.Errorf("settingsSnapshot: %w", err)
	}

	workflow.ApplyCreationDefaults(p, r.now)
	if err := store.CreateProposition(r.tx, p); err != nil {
		return err
	}

	if err := store.AttachCategories(r.tx, p.ID, categoryIDs); err != nil {
		return err
	}
	if err := store.AttachRescueInitiators(r.tx, p.ID, rescuerIDs); err != nil {
		return err
	}
	if err := store.AttachAttachments(r.tx, p.ID, attachmentIDs); err != nil {
		return err
	}

	// The exported timeline, when present, is imported verbatim later;
	// only a history-less proposition gets the standard initial entry.
	if len(prop.StatusHistory) == 0 {
		if err := workflow.RecordInitialHistory(r.tx, p, r.actor, r.now); err != nil {
			return err
		}
	}

	if err := r.executor.events.LogPropositionImported(r.tx, r.actor, p, prop.SourceID); err != nil {
		return err
	}

	r.ctx.bindProposition(prop.SourceID, p.ID)
	r.result.Summary.PropositionsCreated++
	detail.Action = ActionCreated
	detail.TargetID = p.ID
	return nil
}

// createAssociations writes both directions of every resolvable
// association once all propositions are in place.
func (r *executionRun) createAssociations() error {
	for i := range r.data.Propositions {
		prop := &r.data.Propositions[i]
		targetID, ok := r.ctx.propositionID(prop.SourceID)
		if !ok {
			continue
		}

		for _, assoc := range prop.ExternalReferences.AssociatedPropositions {
			relatedID, ok := r.ctx.propositionID(assoc.SourceID)
			if !ok {
				if res, found := r.resolutions[assoc.SourceID]; found && res.Strategy == StrategyMapExisting && res.MappedID != "" {
					relatedID = res.MappedID
					ok = true
				}
			}
			if !ok {
				continue
			}

			if err := store.InsertAssociation(r.tx, targetID, relatedID); err != nil {
				return err
			}
			if err := store.InsertAssociation(r.tx, relatedID, targetID); err != nil {
				return err
			}
		}
	}
	return nil
}

func parseTimePtr(s *string, field string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := domain.ParseTimestamp(*s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &t, nil
}

func parseDatePtr(s *string, field string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := domain.ParseDate(*s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &t, nil
}

func randomPassword() string {
	b := make([]byte, 24)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func hashPassword(password string) string {
	salt := make([]byte, 16)
	rand.Read(salt)
	sum := sha256.Sum256(append(salt, []byte(password)...))
	return fmt.Sprintf("sha256$%s$%s", hex.EncodeToString(salt), hex.EncodeToString(sum[:]))
}

package formsession

import (
	"context"
	"sync"
	"time"

	"survey-drafts/internal/drafts"
	"survey-drafts/internal/form"
	"survey-drafts/internal/logger"
	"survey-drafts/internal/middleware"
	"survey-drafts/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

// Notifier pushes messages to the sockets of a session
type Notifier interface {
	Send(sessionID string, msg models.SessionMessage)
	RefreshDrafts(op *models.Operator)
}

/*
FormSession is one open survey form: the binding context, the form model,
its visibility rules and its autosave scheduler.

Every operation takes mu, including the autosave callback, so a save never
interleaves with an input event. The scheduler releases its own lock before
running the callback, so holding mu while calling it is safe.
*/
type FormSession struct {
	mu        sync.Mutex
	id        string
	binding   *drafts.SessionContext
	form      *form.Form
	rules     *form.Rules
	scheduler *drafts.Scheduler
	manager   *drafts.Manager
	bridge    *drafts.Bridge
	notify    Notifier
	log       *logger.Logger

	openedAt   time.Time
	lastActive time.Time
	// dirty is set by input and cleared by any save or reset
	dirty  bool
	closed bool
}

type sessionDeps struct {
	manager *drafts.Manager
	bridge  *drafts.Bridge
	notify  Notifier
	delay   time.Duration
	log     *logger.Logger
}

func newFormSession(id string, op *models.Operator, deps sessionDeps) *FormSession {
	now := time.Now()
	f := form.New()
	s := &FormSession{
		id:         id,
		binding:    drafts.NewSessionContext(op, models.FormType(f.Value(form.FieldFormType))),
		form:       f,
		rules:      form.NewRules(f),
		manager:    deps.manager,
		bridge:     deps.bridge,
		notify:     deps.notify,
		log:        deps.log.With("session_id", id),
		openedAt:   now,
		lastActive: now,
	}
	s.scheduler = drafts.NewScheduler(deps.delay, s.autosave)
	s.rules.ApplyAll()
	return s
}

func (s *FormSession) ID() string { return s.id }

// Operator reads the binding context only, so the hub can call it without mu
func (s *FormSession) Operator() *models.Operator { return s.binding.Operator() }

func (s *FormSession) touch() { s.lastActive = time.Now() }

// LastActive is used by the idle sweep
func (s *FormSession) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *FormSession) Info() models.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked()
}

func (s *FormSession) infoLocked() models.SessionInfo {
	return models.SessionInfo{
		ID:              s.id,
		Operator:        s.binding.Operator(),
		State:           s.binding.State(),
		DraftID:         s.binding.DraftID(),
		LinkedRecordID:  s.binding.LinkedRecordID(),
		FormType:        s.binding.FormType(),
		OpenedAt:        s.openedAt,
		LastActiveAt:    s.lastActive,
		AutosavePending: s.scheduler.Pending(),
		Snapshot:        drafts.Collect(s.form),
	}
}

// HiddenFields lists the controls the visibility rules currently hide
func (s *FormSession) HiddenFields() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.HiddenFields()
}

// Input applies client changes in order and restarts the autosave countdown.
// The first bad event stops the batch; earlier events stay applied.
func (s *FormSession) Input(ctx context.Context, events []models.InputEvent) error {
	_, span := middleware.StartSpan(ctx, "FormSession.Input",
		attribute.String("session.id", s.id),
		attribute.Int("events", len(events)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return drafts.ErrSessionNotFound
	}
	s.touch()

	applied := 0
	var err error
	for _, ev := range events {
		if err = s.form.Input(ev); err != nil {
			break
		}
		applied++
		for _, group := range s.rules.Triggered(ev.Field) {
			s.rules.Apply(group)
		}
		if ev.Field == form.FieldFormType && ev.Value != nil {
			s.binding.SetFormType(models.FormType(*ev.Value))
		}
	}

	if applied > 0 {
		s.dirty = true
		s.scheduler.Schedule()
	}
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// autosave is the scheduler action. Failures are logged, never surfaced.
func (s *FormSession) autosave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.saveDirtyLocked("FormSession.Autosave")
}

// saveDirtyLocked writes unsaved edits silently. Sessions nobody edited
// since the last save or reset are skipped, so opening and closing a blank
// form never stores an empty draft.
func (s *FormSession) saveDirtyLocked(spanName string) {
	if !s.dirty {
		return
	}

	ctx, span := middleware.StartSpan(context.Background(), spanName,
		attribute.String("session.id", s.id))
	defer span.End()

	d, err := s.manager.SaveCurrentForm(ctx, s.binding, s.form)
	if err != nil {
		middleware.AddSpanError(ctx, err)
		s.log.Warn("autosave failed", "draft_id", d.ID, "error", err)
		return
	}
	s.dirty = false
	s.notify.Send(s.id, models.SessionMessage{Type: models.MessageTypeAutosaved, DraftID: d.ID})
	s.notify.RefreshDrafts(s.binding.Operator())
}

// Save is the manual save. A persistence failure is returned to the caller.
func (s *FormSession) Save(ctx context.Context) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, drafts.ErrSessionNotFound
	}
	s.touch()
	s.scheduler.Cancel()

	d, err := s.manager.SaveCurrentForm(ctx, s.binding, s.form)
	if err != nil {
		s.log.Error("manual save failed", "draft_id", d.ID, "error", err)
		return d, err
	}
	s.dirty = false
	s.notify.RefreshDrafts(s.binding.Operator())
	return d, nil
}

// Login switches the active operator. Bindings stay, so a draft started
// anonymously is adopted on its next save.
func (s *FormSession) Login(op *models.Operator) models.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.binding.SetOperator(op)
	s.log.Info("operator bound", "user_id", models.OperatorID(op))
	return s.infoLocked()
}

func (s *FormSession) Logout() models.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.bridge.OnLogout(s.binding, s.form, s.scheduler)
	s.afterReset()
	return s.infoLocked()
}

func (s *FormSession) NewEvaluation() models.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.bridge.NewEvaluation(s.binding, s.form, s.scheduler)
	s.afterReset()
	return s.infoLocked()
}

// Submitted is called once the server accepted the record
func (s *FormSession) Submitted(ctx context.Context) (models.SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	err := s.bridge.OnSubmitted(ctx, s.binding, s.form, s.scheduler)
	s.afterReset()
	return s.infoLocked(), err
}

// OpenRecord loads a server record for editing
func (s *FormSession) OpenRecord(recordID int64, values models.Snapshot) drafts.ApplyResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	res := s.bridge.OpenRecord(s.binding, s.form, s.rules, s.scheduler, recordID, values)
	s.dirty = false
	return res
}

func (s *FormSession) afterReset() {
	s.dirty = false
	s.binding.SetFormType(models.FormType(s.form.Value(form.FieldFormType)))
	s.rules.ApplyAll()
}

// ListDrafts lists the drafts of the session's operator
func (s *FormSession) ListDrafts(ctx context.Context) []models.Draft {
	return s.manager.ListForOperator(ctx, s.Operator())
}

// LoadDraft restores a stored draft into the form. Unsaved edits of the
// current draft are saved first so switching drafts loses nothing.
func (s *FormSession) LoadDraft(ctx context.Context, id string) (models.SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	d, err := s.manager.LoadByID(ctx, s.binding.Operator(), id)
	if err != nil {
		return models.SessionInfo{}, err
	}

	s.scheduler.Cancel()
	if s.dirty && s.binding.DraftID() != id {
		if _, err := s.manager.SaveCurrentForm(ctx, s.binding, s.form); err != nil {
			s.log.Warn("could not save edits before switching drafts", "error", err)
		}
	}

	s.form.Reset()
	res := s.manager.LoadIntoForm(s.binding, d, s.form, s.rules)
	s.dirty = false
	s.log.Debug("draft loaded", "draft_id", d.ID, "applied", len(res.Applied), "skipped", len(res.Skipped))
	return s.infoLocked(), nil
}

// DeleteDraft removes one of the operator's drafts. Deleting the bound
// draft unbinds the form so later edits start a new one.
func (s *FormSession) DeleteDraft(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	op := s.binding.Operator()
	if _, err := s.manager.LoadByID(ctx, op, id); err != nil {
		return err
	}
	if err := s.manager.DeleteByID(ctx, id); err != nil {
		return err
	}
	if s.binding.DraftID() == id {
		s.scheduler.Cancel()
		s.binding.SetDraftID("")
		s.form.SetValue(drafts.DraftIDField, models.StringValue(""))
	}
	s.notify.RefreshDrafts(op)
	return nil
}

// Payload builds the typed submission body from the current form
func (s *FormSession) Payload() (form.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return form.BuildPayload(drafts.Collect(s.form), s.form.Fields())
}

// Unload is the page-unload save. Closing and saving happen under one
// lock: an edit either lands before it and is saved, or is rejected.
func (s *FormSession) Unload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.scheduler.Close()
	s.saveDirtyLocked("FormSession.Unload")
}

// Package session is the application state machine for one editing session: the current
// step, the accumulated record, and the autosave cycle that persists it.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"driver-application/internal/application/resumetoken"
	apperrors "driver-application/internal/common/errors"
	"driver-application/internal/common/logger"
	"driver-application/internal/models"
)

const DefaultAutosaveInterval = 30 * time.Second

// ErrNotFound is returned by a Store when no application has the requested id.
var ErrNotFound = errors.New("application not found")

// Store is the persistence contract the machine saves drafts through.
type Store interface {
	SaveDraft(ctx context.Context, data models.ApplicationRecord, id string, currentStep int) (*models.Application, error)
	GetApplicationByID(ctx context.Context, id string) (*models.Application, error)
}

// LocalStore keeps the current draft id across reloads. Get returns "" when nothing is stored.
type LocalStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// TokenDecoder resolves a resume token, or returns nil for anything unusable.
type TokenDecoder interface {
	Decode(token string) *resumetoken.Payload
}

// Ticker is the autosave trigger. Tests substitute a channel they drive by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// SaveState is the dirty-tracking state.
type SaveState int

const (
	Clean SaveState = iota
	Dirty
	Saving
)

func (s SaveState) String() string {
	switch s {
	case Dirty:
		return "dirty"
	case Saving:
		return "saving"
	default:
		return "clean"
	}
}

// Source says which restore path Initialize took.
type Source int

const (
	SourceFresh Source = iota
	SourceResumeToken
	SourceLocalID
)

func (s Source) String() string {
	switch s {
	case SourceResumeToken:
		return "resume_token"
	case SourceLocalID:
		return "local_id"
	default:
		return "fresh"
	}
}

// Snapshot is a copy of the observable state handed to subscribers.
type Snapshot struct {
	CurrentStep   int
	Data          models.ApplicationRecord
	ApplicationID string
	SaveState     SaveState
	IsSaving      bool
	IsLoading     bool
	LastSaved     time.Time
	SaveError     string
	Submitted     bool
	AutosaveArmed bool
}

type Options struct {
	Store            Store
	Local            LocalStore
	Tokens           TokenDecoder
	Logger           logger.Logger
	AutosaveInterval time.Duration
	Now              func() time.Time
	NewTicker        func(time.Duration) Ticker
}

// Machine owns the record for the lifetime of a session. All methods are safe to call
// from UI handlers, the autosave goroutine and I/O callbacks concurrently.
type Machine struct {
	store     Store
	local     LocalStore
	tokens    TokenDecoder
	logger    logger.Logger
	interval  time.Duration
	now       func() time.Time
	newTicker func(time.Duration) Ticker

	// saveMu serializes saves so the last one issued is the last one written.
	saveMu sync.Mutex

	mu        sync.Mutex
	step      int
	data      models.ApplicationRecord
	id        string
	state     SaveState
	rev       uint64
	loading   bool
	lastSaved time.Time
	saveErr   string
	submitted bool
	closed    bool
	loadedAt  time.Time
	ticker    Ticker
	stopTick  chan struct{}

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

func New(opts Options) *Machine {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewTicker == nil {
		opts.NewTicker = newTimeTicker
	}
	if opts.AutosaveInterval <= 0 {
		opts.AutosaveInterval = DefaultAutosaveInterval
	}
	return &Machine{
		store:     opts.Store,
		local:     opts.Local,
		tokens:    opts.Tokens,
		logger:    opts.Logger.WithFields(map[string]interface{}{"component": "session"}),
		interval:  opts.AutosaveInterval,
		now:       opts.Now,
		newTicker: opts.NewTicker,
		step:      models.FirstStep,
		subs:      make(map[int]func(Snapshot)),
	}
}

// ==========================
// Initialization
// ==========================

// Initialize restores a draft from the resume token, then from the locally stored id,
// and otherwise starts a fresh record at step 1. It never fails.
func (m *Machine) Initialize(ctx context.Context, resumeToken string) Source {
	m.mu.Lock()
	m.loading = true
	m.mu.Unlock()
	m.notify()

	source := SourceFresh
	var app *models.Application
	if app = m.fromResumeToken(ctx, resumeToken); app != nil {
		source = SourceResumeToken
	} else if app = m.fromLocalID(ctx); app != nil {
		source = SourceLocalID
	}

	m.mu.Lock()
	m.disarmLocked()
	m.loading = false
	m.loadedAt = m.now()
	m.state = Clean
	m.saveErr = ""
	m.submitted = false
	m.rev++
	if app != nil {
		m.data = app.Data
		m.id = app.ID
		m.step = models.ClampStep(app.CurrentStep)
	} else {
		m.data = models.ApplicationRecord{}
		m.id = ""
		m.step = models.FirstStep
	}
	id := m.id
	m.mu.Unlock()

	if source == SourceResumeToken {
		m.mirrorID(ctx, id)
	}
	m.logger.Info("session initialized", map[string]interface{}{
		"source":        source.String(),
		"applicationId": id,
	})
	m.notify()
	return source
}

func (m *Machine) fromResumeToken(ctx context.Context, token string) *models.Application {
	if token == "" || m.tokens == nil {
		return nil
	}
	payload := m.tokens.Decode(token)
	if payload == nil {
		m.logger.Info("resume token rejected", nil)
		return nil
	}
	app, err := m.store.GetApplicationByID(ctx, payload.ApplicationID)
	if err != nil || app == nil {
		m.logger.Warn("resume token application unavailable", map[string]interface{}{
			"applicationId": payload.ApplicationID,
			"error":         err,
		})
		return nil
	}
	if !app.IsDraft() || !payload.Matches(app.Data.Email()) {
		m.logger.Info("resume token does not match a draft", map[string]interface{}{
			"applicationId": payload.ApplicationID,
			"status":        app.Status,
		})
		return nil
	}
	return app
}

func (m *Machine) fromLocalID(ctx context.Context) *models.Application {
	if m.local == nil {
		return nil
	}
	id, err := m.local.Get(ctx)
	if err != nil {
		m.logger.Warn("local application id unreadable", map[string]interface{}{"error": err})
		return nil
	}
	if id == "" {
		return nil
	}

	app, err := m.store.GetApplicationByID(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound), err == nil && app == nil:
		m.logger.Info("discarding stale local application id", map[string]interface{}{"applicationId": id})
		m.clearLocal(ctx)
		return nil
	case err != nil:
		m.logger.Warn("local application lookup failed", map[string]interface{}{
			"applicationId": id,
			"error":         err,
		})
		return nil
	case !app.IsDraft():
		m.logger.Info("local application already submitted", map[string]interface{}{"applicationId": id})
		m.clearLocal(ctx)
		return nil
	}
	return app
}

// ==========================
// Mutation and navigation
// ==========================

// UpdateApplicationData merges partial into the record and marks it dirty. It does not persist.
func (m *Machine) UpdateApplicationData(partial models.ApplicationRecord) {
	m.mu.Lock()
	if m.submitted {
		m.mu.Unlock()
		return
	}
	m.data.Merge(partial)
	m.rev++
	if m.state == Clean {
		m.state = Dirty
	}
	m.armLocked()
	m.mu.Unlock()
	m.notify()
}

func (m *Machine) GoToNextStep() {
	m.moveStep(1)
}

func (m *Machine) GoToPreviousStep() {
	m.moveStep(-1)
}

func (m *Machine) moveStep(delta int) {
	m.mu.Lock()
	next := models.ClampStep(m.step + delta)
	changed := next != m.step
	m.step = next
	m.mu.Unlock()
	if changed {
		m.notify()
	}
}

// ==========================
// Saving
// ==========================

// SaveNow persists the record. It is a no-op when nothing changed since the last save
// and the draft already has an id. On failure the record stays dirty for the next tick.
func (m *Machine) SaveNow(ctx context.Context) error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.mu.Lock()
	if m.submitted || m.closed || (m.state == Clean && m.id != "") {
		m.mu.Unlock()
		return nil
	}
	data := m.data.Clone()
	data.Normalize()
	id, step, rev := m.id, m.step, m.rev
	m.state = Saving
	m.mu.Unlock()
	m.notify()

	app, err := m.store.SaveDraft(ctx, data, id, step)
	if err == nil && (app == nil || app.ID == "") {
		err = errors.New("store returned no application id")
	}

	m.mu.Lock()
	if err != nil {
		stdErr := apperrors.NewDraftSaveFailedError(err)
		m.state = Dirty
		m.saveErr = stdErr.Message
		m.armLocked()
		m.mu.Unlock()
		m.logger.Warn("draft save failed", map[string]interface{}{
			"applicationId": id,
			"error":         err,
		})
		m.notify()
		return stdErr
	}

	adopted := ""
	if m.id == "" {
		m.id = app.ID
		adopted = app.ID
	}
	m.lastSaved = m.now()
	m.saveErr = ""
	if m.rev == rev {
		m.state = Clean
		m.disarmLocked()
	} else {
		m.state = Dirty
		m.armLocked()
	}
	m.mu.Unlock()

	if adopted != "" {
		m.mirrorID(ctx, adopted)
	}
	m.logger.Debug("draft saved", map[string]interface{}{"applicationId": app.ID, "step": step})
	m.notify()
	return nil
}

func (m *Machine) armLocked() {
	if m.ticker != nil || m.closed || m.submitted {
		return
	}
	m.ticker = m.newTicker(m.interval)
	m.stopTick = make(chan struct{})
	go m.autosave(m.ticker, m.stopTick)
}

func (m *Machine) disarmLocked() {
	if m.ticker == nil {
		return
	}
	m.ticker.Stop()
	close(m.stopTick)
	m.ticker = nil
	m.stopTick = nil
}

func (m *Machine) autosave(t Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			select {
			case <-stop:
				return
			default:
			}
			_ = m.SaveNow(context.Background())
		}
	}
}

// ==========================
// Local identifier
// ==========================

func (m *Machine) mirrorID(ctx context.Context, id string) {
	if m.local == nil {
		return
	}
	if id == "" {
		m.clearLocal(ctx)
		return
	}
	if err := m.local.Set(ctx, id); err != nil {
		m.logger.Warn("failed to store local application id", map[string]interface{}{"error": err})
	}
}

func (m *Machine) clearLocal(ctx context.Context) {
	if m.local == nil {
		return
	}
	if err := m.local.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear local application id", map[string]interface{}{"error": err})
	}
}

// ForgetLocalID removes the stored draft id, as done right after a successful submission.
func (m *Machine) ForgetLocalID(ctx context.Context) {
	m.clearLocal(ctx)
}

// MarkSubmitted makes the record read-only and stops autosave.
func (m *Machine) MarkSubmitted() {
	m.mu.Lock()
	m.submitted = true
	m.state = Clean
	m.disarmLocked()
	m.mu.Unlock()
	m.notify()
}

// Close stops autosave. Saves already in flight finish and are dropped.
func (m *Machine) Close() {
	m.mu.Lock()
	m.closed = true
	m.disarmLocked()
	m.mu.Unlock()
}

// ==========================
// Reads and subscriptions
// ==========================

func (m *Machine) Data() models.ApplicationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.Clone()
}

func (m *Machine) ApplicationID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

func (m *Machine) CurrentStep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step
}

// LoadedAt is when the form was presented, the reference point of the dwell check.
func (m *Machine) LoadedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadedAt
}

// ShouldWarnBeforeUnload reports unsaved changes.
func (m *Machine) ShouldWarnBeforeUnload() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state != Clean
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	return Snapshot{
		CurrentStep:   m.step,
		Data:          m.data.Clone(),
		ApplicationID: m.id,
		SaveState:     m.state,
		IsSaving:      m.state == Saving,
		IsLoading:     m.loading,
		LastSaved:     m.lastSaved,
		SaveError:     m.saveErr,
		Submitted:     m.submitted,
		AutosaveArmed: m.ticker != nil,
	}
}

// OnChange registers fn for every state change and returns its unsubscribe func.
// fn runs on the goroutine that caused the change and must not block.
func (m *Machine) OnChange(fn func(Snapshot)) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Machine) notify() {
	m.subMu.Lock()
	if len(m.subs) == 0 {
		m.subMu.Unlock()
		return
	}
	fns := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	snap := m.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

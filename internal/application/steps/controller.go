package steps

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "driver-application/internal/common/errors"
	"driver-application/internal/common/logger"
	"driver-application/internal/common/validation"
	"driver-application/internal/models"
)

const (
	SideFront = "front"
	SideBack  = "back"
)

// Encryptor exchanges a raw 9-digit SSN for an opaque token.
type Encryptor interface {
	EncryptSSN(ctx context.Context, rawSSN string) (string, error)
}

// Uploader stores a license image and returns its reference.
type Uploader interface {
	UploadLicenseImage(ctx context.Context, applicationID, side string, upload Upload) (string, error)
}

// Host is the part of the application state machine a step controller drives.
type Host interface {
	Data() models.ApplicationRecord
	ApplicationID() string
	UpdateApplicationData(partial models.ApplicationRecord)
	SaveNow(ctx context.Context) error
	GoToNextStep()
}

type State int

const (
	StateUnvalidated State = iota
	StateValidating
	StateValid
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateValid:
		return "valid"
	case StateInvalid:
		return "invalid"
	default:
		return "unvalidated"
	}
}

// Deps are the collaborators shared by all step controllers.
type Deps struct {
	Encryptor      Encryptor
	Uploader       Uploader
	Logger         logger.Logger
	Now            func() time.Time
	MaxUploadBytes int64
}

// Controller validates one step, merges it into the host record and advances.
type Controller struct {
	step int
	deps Deps

	mu    sync.Mutex
	state State
	last  Outcome
}

func newController(step int, deps Deps) *Controller {
	return &Controller{step: step, deps: deps}
}

func (c *Controller) Step() int { return c.step }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Last returns the outcome of the most recent Submit.
func (c *Controller) Last() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Reset returns the controller to unvalidated, e.g. after the user edits the step again.
func (c *Controller) Reset() {
	c.setState(StateUnvalidated, Outcome{})
}

func (c *Controller) setState(s State, o Outcome) {
	c.mu.Lock()
	c.state = s
	c.last = o
	c.mu.Unlock()
}

// Submit validates in. A valid step is merged into host and, except for the last step,
// advances it. Field errors come back as validation.FieldErrors; failed encryption or
// upload as a StandardError. On any error the host is left untouched.
func (c *Controller) Submit(ctx context.Context, host Host, in Input) (Outcome, error) {
	if in == nil || in.Step() != c.step {
		return Outcome{}, fmt.Errorf("step %d controller received input for another step", c.step)
	}
	c.setState(StateValidating, Outcome{})

	outcome := Validate(in, Context{Now: c.deps.Now(), Existing: host.Data()})
	if docs, ok := in.(DocumentsInput); ok && outcome.Valid() {
		c.checkUploadSize(&outcome, docs)
	}
	if !outcome.Valid() {
		c.setState(StateInvalid, outcome)
		return outcome, outcome.Errors
	}

	var err error
	switch v := in.(type) {
	case IdentityInput:
		err = c.encrypt(ctx, &outcome)
	case DocumentsInput:
		err = c.upload(ctx, host, &outcome, v)
	}
	if err != nil {
		c.setState(StateInvalid, outcome)
		return outcome, err
	}

	host.UpdateApplicationData(outcome.Partial)
	c.setState(StateValid, outcome)
	if c.step < models.LastStep {
		host.GoToNextStep()
	}
	return outcome, nil
}

func (c *Controller) encrypt(ctx context.Context, outcome *Outcome) error {
	if !outcome.NeedsEncryption() {
		return nil
	}
	token, err := c.deps.Encryptor.EncryptSSN(ctx, outcome.rawSSN)
	outcome.rawSSN = ""
	if err != nil || token == "" {
		c.deps.Logger.Warn("ssn encryption failed", map[string]interface{}{"error": err})
		return apperrors.NewEncryptionFailedError(err)
	}
	outcome.Partial.Identity.SSNEncrypted = token
	return nil
}

func (c *Controller) checkUploadSize(outcome *Outcome, in DocumentsInput) {
	if c.deps.MaxUploadBytes <= 0 {
		return
	}
	check := func(field string, u *Upload) {
		if u != nil && int64(len(u.Data)) > c.deps.MaxUploadBytes {
			outcome.Errors.Add(field, validation.CodeMaxLength, fmt.Sprintf("File must be smaller than %d MB", c.deps.MaxUploadBytes>>20))
		}
	}
	check("license_front_url", in.Front)
	check("license_back_url", in.Back)
}

func (c *Controller) upload(ctx context.Context, host Host, outcome *Outcome, in DocumentsInput) error {
	if in.Front == nil && in.Back == nil {
		return nil
	}
	if host.ApplicationID() == "" {
		err := host.SaveNow(ctx)
		if host.ApplicationID() == "" {
			if err == nil {
				err = errors.New("application has not been saved yet")
			}
			return apperrors.NewUploadFailedError(SideFront, err)
		}
	}
	id := host.ApplicationID()

	docs := outcome.Partial.Documents
	for _, side := range []struct {
		name   string
		upload *Upload
		target *string
	}{
		{SideFront, in.Front, &docs.LicenseFrontURL},
		{SideBack, in.Back, &docs.LicenseBackURL},
	} {
		if side.upload == nil {
			continue
		}
		url, err := c.deps.Uploader.UploadLicenseImage(ctx, id, side.name, *side.upload)
		if err != nil || url == "" {
			c.deps.Logger.Warn("license upload failed", map[string]interface{}{
				"applicationId": id,
				"side":          side.name,
				"error":         err,
			})
			return apperrors.NewUploadFailedError(side.name, err)
		}
		*side.target = url
	}
	return nil
}

// Flow holds one controller per step.
type Flow struct {
	controllers map[int]*Controller
}

func NewFlow(deps Deps) *Flow {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	deps.Logger = deps.Logger.WithFields(map[string]interface{}{"component": "steps"})

	f := &Flow{controllers: make(map[int]*Controller, models.LastStep)}
	for step := models.FirstStep; step <= models.LastStep; step++ {
		f.controllers[step] = newController(step, deps)
	}
	return f
}

// Controller returns the controller of step, clamped to the valid range.
func (f *Flow) Controller(step int) *Controller {
	return f.controllers[models.ClampStep(step)]
}

// Submit routes in to its step's controller.
func (f *Flow) Submit(ctx context.Context, host Host, in Input) (Outcome, error) {
	if in == nil {
		return Outcome{}, fmt.Errorf("nil step input")
	}
	return f.Controller(in.Step()).Submit(ctx, host, in)
}

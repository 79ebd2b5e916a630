// Package submission gates and performs the one-way transition from draft to submitted.
package submission

import (
	"context"
	"sync"
	"time"

	"driver-application/internal/application/guard"
	apperrors "driver-application/internal/common/errors"
	"driver-application/internal/common/logger"
	"driver-application/internal/models"
)

const defaultNotifyTimeout = 10 * time.Second

// Host is the part of the session the controller reads and finalizes.
type Host interface {
	Data() models.ApplicationRecord
	ApplicationID() string
	LoadedAt() time.Time
	ForgetLocalID(ctx context.Context)
	MarkSubmitted()
}

// FormProof lets the server repeat the automation checks against its own form session.
type FormProof struct {
	SessionID     string
	HoneypotValue string
}

type Submitter interface {
	SubmitApplication(ctx context.Context, applicationID string, data models.ApplicationRecord, proof FormProof) error
}

type Notifier interface {
	NotifyApplicationSubmitted(ctx context.Context, n models.SubmissionNotification) error
}

// Attempt is what the applicant sends from the final step.
type Attempt struct {
	PrintedName   string
	SignatureData string
	HoneypotValue string
	FormSessionID string
}

type Options struct {
	Submitter     Submitter
	Notifier      Notifier
	Policy        guard.Policy
	Logger        logger.Logger
	Now           func() time.Time
	NotifyTimeout time.Duration
}

type Controller struct {
	submitter     Submitter
	notifier      Notifier
	policy        guard.Policy
	logger        logger.Logger
	now           func() time.Time
	notifyTimeout time.Duration

	mu        sync.Mutex
	submitted bool
	notifies  sync.WaitGroup
}

func NewController(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = defaultNotifyTimeout
	}
	return &Controller{
		submitter:     opts.Submitter,
		notifier:      opts.Notifier,
		policy:        opts.Policy,
		logger:        opts.Logger.WithFields(map[string]interface{}{"component": "submission"}),
		now:           opts.Now,
		notifyTimeout: opts.NotifyTimeout,
	}
}

// Submit runs the gates in order and submits the record. A rejection or a failed submit
// leaves the session editable so the applicant can try again.
func (c *Controller) Submit(ctx context.Context, host Host, a Attempt) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := host.ApplicationID()
	if c.submitted {
		return apperrors.NewAlreadySubmittedError(id)
	}
	if err := c.gate(host, a, id); err != nil {
		r, _ := guard.AsRejection(err)
		c.logger.Info("submission rejected", map[string]interface{}{
			"applicationId": id,
			"reason":        r.Reason,
		})
		return apperrors.NewSubmissionRejectedError(r.Reason)
	}

	data := host.Data()
	certification := models.Certification{}
	if data.Certification != nil {
		certification = *data.Certification
	}
	certification.PrintedName = a.PrintedName
	certification.SignatureData = a.SignatureData
	certification.SubmittedAt = c.now().UTC().Format(time.RFC3339)
	data.Certification = &certification
	data.Normalize()

	proof := FormProof{SessionID: a.FormSessionID, HoneypotValue: a.HoneypotValue}
	if err := c.submitter.SubmitApplication(ctx, id, data, proof); err != nil {
		c.logger.Warn("submission failed", map[string]interface{}{
			"applicationId": id,
			"error":         err,
		})
		if stdErr, ok := apperrors.As(err); ok {
			return stdErr
		}
		return apperrors.NewSubmissionFailedError(err)
	}

	c.submitted = true
	host.ForgetLocalID(ctx)
	c.dispatch(ctx, models.SubmissionNotification{
		ApplicationID:  id,
		ApplicantName:  data.ApplicantName(),
		ApplicantEmail: data.Email(),
		ApplicantPhone: data.Phone(),
	})
	host.MarkSubmitted()

	c.logger.Info("application submitted", map[string]interface{}{"applicationId": id})
	return nil
}

func (c *Controller) gate(host Host, a Attempt, id string) error {
	if err := c.policy.Check(guard.Signals{
		HoneypotValue: a.HoneypotValue,
		FormLoadedAt:  host.LoadedAt(),
		SubmittedAt:   c.now(),
	}); err != nil {
		return err
	}
	if err := guard.CheckSignature(a.SignatureData); err != nil {
		return err
	}
	if id == "" {
		return guard.Reject(guard.ReasonNoApplicationID)
	}
	return nil
}

// dispatch sends the confirmation in the background. The application is already
// durably submitted, so failures are only logged.
func (c *Controller) dispatch(ctx context.Context, n models.SubmissionNotification) {
	if c.notifier == nil {
		return
	}
	c.notifies.Add(1)
	go func() {
		defer c.notifies.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.notifyTimeout)
		defer cancel()
		if err := c.notifier.NotifyApplicationSubmitted(nctx, n); err != nil {
			c.logger.Warn("submission notification failed", map[string]interface{}{
				"applicationId": n.ApplicationID,
				"error":         err,
			})
		}
	}()
}

// Wait blocks until background notifications have finished.
func (c *Controller) Wait() {
	c.notifies.Wait()
}

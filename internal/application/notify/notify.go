// Package notify starts the post-submission workflow for a submitted application.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"driver-application/internal/common/logger"
	"driver-application/internal/common/validation"
	"driver-application/internal/models"
)

const (
	DefaultProcessID = "driver-application-submitted"

	NotificationType = "application_submitted"
)

var ErrInvalidNotification = errors.New("invalid submission notification")

// ProcessStarter is satisfied by camunda.Client.
type ProcessStarter interface {
	StartProcess(ctx context.Context, processID string, variables map[string]interface{}) (int64, error)
}

// Dispatcher hands a submission over to the workflow engine. The workers it
// triggers send the confirmation and index the application.
type Dispatcher struct {
	starter   ProcessStarter
	processID string
	logger    logger.Logger
	now       func() time.Time
}

func NewDispatcher(starter ProcessStarter, processID string, log logger.Logger) *Dispatcher {
	if processID == "" {
		processID = DefaultProcessID
	}
	return &Dispatcher{
		starter:   starter,
		processID: processID,
		logger:    log.WithFields(map[string]interface{}{"component": "notify"}),
		now:       time.Now,
	}
}

func (d *Dispatcher) NotifyApplicationSubmitted(ctx context.Context, n models.SubmissionNotification) error {
	if err := Validate(n); err != nil {
		return err
	}

	key, err := d.starter.StartProcess(ctx, d.processID, Variables(n, d.now()))
	if err != nil {
		d.logger.Error("failed to start submission process", map[string]interface{}{
			"applicationId": n.ApplicationID,
			"processId":     d.processID,
			"error":         err.Error(),
		})
		return fmt.Errorf("start %s: %w", d.processID, err)
	}

	d.logger.Info("submission process started", map[string]interface{}{
		"applicationId":      n.ApplicationID,
		"processInstanceKey": key,
	})
	return nil
}

// Validate checks the fields the confirmation workers rely on.
func Validate(n models.SubmissionNotification) error {
	var errs validation.FieldErrors
	if strings.TrimSpace(n.ApplicationID) == "" {
		errs.Add("application_id", validation.CodeRequired, "application_id is required")
	}
	if strings.TrimSpace(n.ApplicantName) == "" {
		errs.Add("applicant_name", validation.CodeRequired, "applicant_name is required")
	}
	if !validation.ValidateEmail(n.ApplicantEmail) {
		errs.Add("applicant_email", validation.CodeInvalidFormat, "applicant_email must be a valid email address")
	}
	if err := errs.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}
	return nil
}

// Variables are the process variables read by the post-submission workers.
func Variables(n models.SubmissionNotification, at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"applicationId":    n.ApplicationID,
		"applicantName":    n.ApplicantName,
		"applicantEmail":   n.ApplicantEmail,
		"applicantPhone":   n.ApplicantPhone,
		"notificationType": NotificationType,
		"submittedAt":      at.UTC().Format(time.RFC3339),
	}
}

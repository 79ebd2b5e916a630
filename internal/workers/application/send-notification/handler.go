// internal/workers/application/send-notification/handler.go
package sendnotification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	awsclient "driver-application/internal/common/aws"
	apperrors "driver-application/internal/common/errors"
	"driver-application/internal/common/logger"
	"driver-application/internal/common/metrics"
	"driver-application/internal/common/validation"
	"driver-application/internal/models"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "send-notification"
)

var (
	ErrInvalidInput     = errors.New("invalid notification input")
	ErrUnknownTemplate  = errors.New("no template for notification type")
	ErrNotificationSend = errors.New("notification send failed")
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config       *Config
	logger       logger.Logger
	sesClient    SESService
	snsClient    SNSService
	templates    map[string]models.NotificationTemplate
	errorHandler *apperrors.ErrorHandler
	now          func() time.Time
	newID        func() string
}

func NewHandler(config *Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		logger:       log,
		sesClient:    sesClient,
		snsClient:    snsClient,
		templates:    loadTemplates(),
		errorHandler: apperrors.NewErrorHandler(log),
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, apperrors.NewValidationFailedError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		var stdErr *apperrors.StandardError
		switch {
		case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnknownTemplate):
			stdErr = apperrors.NewValidationFailedError(err.Error())
		default:
			stdErr = apperrors.NewNotificationSendFailedError(input.NotificationType, err)
		}
		h.fail(ctx, client, job, stdErr)
		return
	}

	h.completeJob(ctx, client, job, output)
}

// Execute sends the confirmation over every enabled channel. A channel failure is
// reported in the output status; only an input problem or a failure on every
// attempted channel returns an error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	tmpl, ok := h.templates[input.NotificationType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, input.NotificationType)
	}

	data := map[string]interface{}{
		"applicationId": input.ApplicationID,
		"applicantName": strings.TrimSpace(input.ApplicantName),
		"submittedAt":   input.SubmittedAt,
	}

	output := &Output{
		NotificationID: h.newID(),
		EmailStatus:    StatusDisabled,
		SMSStatus:      StatusDisabled,
		SentAt:         h.now().UTC().Format(time.RFC3339),
	}

	var sendErrs []error
	if h.config.EmailEnabled {
		subject := renderTemplate(tmpl.Subject, data, false)
		text := renderTemplate(tmpl.Body, data, false)
		htmlBody := renderTemplate(tmpl.HTMLBody, data, true)
		if _, err := h.sesClient.SendEmail(ctx, awsclient.EmailInput(h.config.FromEmail, input.ApplicantEmail, subject, text, htmlBody)); err != nil {
			h.logger.Error("email send failed", map[string]interface{}{
				"applicationId": input.ApplicationID,
				"error":         err.Error(),
			})
			output.EmailStatus = StatusFailed
			sendErrs = append(sendErrs, fmt.Errorf("email: %w", err))
		} else {
			output.EmailStatus = StatusSent
		}
	}

	if h.config.SMSEnabled {
		phone, ok := toE164(input.ApplicantPhone)
		switch {
		case !ok:
			output.SMSStatus = StatusSkipped
		default:
			msg := renderTemplate(tmpl.SMSBody, data, false)
			if _, err := h.snsClient.Publish(ctx, awsclient.SMSInput(phone, msg, h.config.SMSSenderID)); err != nil {
				h.logger.Error("SMS send failed", map[string]interface{}{
					"applicationId": input.ApplicationID,
					"error":         err.Error(),
				})
				output.SMSStatus = StatusFailed
				sendErrs = append(sendErrs, fmt.Errorf("sms: %w", err))
			} else {
				output.SMSStatus = StatusSent
			}
		}
	}

	output.Status = overallStatus(output.EmailStatus, output.SMSStatus)
	if output.Status == StatusFailed {
		return nil, fmt.Errorf("%w: %v", ErrNotificationSend, errors.Join(sendErrs...))
	}

	h.logger.Info("notification processed", map[string]interface{}{
		"applicationId":  input.ApplicationID,
		"notificationId": output.NotificationID,
		"status":         output.Status,
		"emailStatus":    output.EmailStatus,
		"smsStatus":      output.SMSStatus,
	})
	return output, nil
}

func validateInput(input *Input) error {
	var errs validation.FieldErrors
	if strings.TrimSpace(input.ApplicationID) == "" {
		errs.Add("applicationId", validation.CodeRequired, "applicationId is required")
	}
	if !validation.ValidateEmail(input.ApplicantEmail) {
		errs.Add("applicantEmail", validation.CodeInvalidFormat, "applicantEmail must be a valid email address")
	}
	if input.NotificationType == "" {
		input.NotificationType = TypeApplicationSubmitted
	}
	if err := errs.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// overallStatus is sent if any channel delivered, failed if a channel was
// attempted and none delivered, and disabled otherwise.
func overallStatus(channels ...string) string {
	attempted := false
	for _, s := range channels {
		switch s {
		case StatusSent:
			return StatusSent
		case StatusFailed:
			attempted = true
		}
	}
	if attempted {
		return StatusFailed
	}
	return StatusDisabled
}

// toE164 turns a 10-digit US number, optionally prefixed with 1, into +1XXXXXXXXXX.
func toE164(phone string) (string, bool) {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) == 11 && d[0] == '1' {
		d = d[1:]
	}
	if len(d) != 10 {
		return "", false
	}
	return "+1" + d, true
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err = cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, stdErr *apperrors.StandardError) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}

// renderTemplate replaces {{key}} placeholders and drops any left unresolved.
// Values are HTML-escaped when escape is set.
func renderTemplate(tmpl string, data map[string]interface{}, escape bool) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		if escape {
			value = html.EscapeString(value)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}

func loadTemplates() map[string]models.NotificationTemplate {
	return map[string]models.NotificationTemplate{
		TypeApplicationSubmitted: {
			Type:    TypeApplicationSubmitted,
			Subject: "We received your driver application",
			Body: "Hi {{applicantName}},\n\n" +
				"Thank you for applying. Your application {{applicationId}} was submitted and is now with our recruiting team.\n" +
				"We will contact you about next steps.",
			HTMLBody: "<p>Hi {{applicantName}},</p>" +
				"<p>Thank you for applying. Your application <strong>{{applicationId}}</strong> was submitted and is now with our recruiting team.</p>" +
				"<p>We will contact you about next steps.</p>",
			SMSBody: "Thanks {{applicantName}}, your driver application {{applicationId}} was received.",
		},
	}
}

// internal/workers/application/index-application/handler.go
package indexapplication

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"driver-application/internal/application/history"
	"driver-application/internal/application/store"
	apperrors "driver-application/internal/common/errors"
	"driver-application/internal/common/logger"
	"driver-application/internal/common/metrics"
	"driver-application/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
)

const (
	TaskType = "index-application"
)

var (
	ErrInvalidInput  = errors.New("invalid index input")
	ErrNotSubmitted  = errors.New("application is not submitted")
	ErrIndexRejected = errors.New("elasticsearch rejected document")
)

// ApplicationLoader reads a stored application. store.Postgres implements it.
type ApplicationLoader interface {
	Get(ctx context.Context, id string) (*models.Application, error)
}

type Handler struct {
	config       *Config
	loader       ApplicationLoader
	client       *elasticsearch.Client
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	now          func() time.Time
}

func NewHandler(config *Config, loader ApplicationLoader, client *elasticsearch.Client, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		loader:       loader,
		client:       client,
		logger:       log,
		errorHandler: apperrors.NewErrorHandler(log),
		now:          time.Now,
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
		h.fail(ctx, client, job, h.mapError(err, input.ApplicationID))
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) mapError(err error, applicationID string) *apperrors.StandardError {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNotSubmitted):
		return apperrors.NewValidationFailedError(err.Error())
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NewDraftNotFoundError(applicationID)
	case errors.Is(err, ErrIndexRejected):
		return apperrors.NewIndexingFailedError(err)
	default:
		return apperrors.NewDatabaseUnavailableError(err)
	}
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, stdErr *apperrors.StandardError) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}

// Execute loads the submitted application and upserts its summary under the application id.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationID == "" {
		return nil, fmt.Errorf("%w: applicationId is required", ErrInvalidInput)
	}

	app, err := h.loader.Get(ctx, input.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("load application: %w", err)
	}
	if app.IsDraft() {
		return nil, fmt.Errorf("%w: %s", ErrNotSubmitted, app.ID)
	}

	doc, err := json.Marshal(Summarize(app))
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}

	res, err := h.client.Index(
		h.config.Index,
		bytes.NewReader(doc),
		h.client.Index.WithContext(ctx),
		h.client.Index.WithDocumentID(app.ID),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexRejected, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return nil, fmt.Errorf("%w: %s %s", ErrIndexRejected, res.Status(), body)
	}

	h.logger.Info("application indexed", map[string]interface{}{
		"applicationId": app.ID,
		"index":         h.config.Index,
	})
	return &Output{
		DocumentID: app.ID,
		Index:      h.config.Index,
		IndexedAt:  h.now().UTC().Format(time.RFC3339),
	}, nil
}

// Summarize builds the redacted search document. Employment coverage is measured
// up to the submission time.
func Summarize(app *models.Application) Summary {
	data := app.Data
	at := app.UpdatedAt
	if app.SubmittedAt != nil {
		at = *app.SubmittedAt
	}

	s := Summary{
		ApplicationID:  app.ID,
		ApplicantName:  data.ApplicantName(),
		ApplicantEmail: data.Email(),
		SubmittedAt:    at.UTC().Format(time.RFC3339),
	}
	if cl := data.CurrentLicense; cl != nil {
		s.LicenseClass = cl.Class
		s.LicenseState = cl.State
	}
	if eh := data.EmploymentHistory; eh != nil {
		intervals, _ := history.FromEmployers(eh.Employers)
		coverage := history.Analyze(intervals, at)
		s.EmploymentCoverageYears = coverage.Years
		s.EmploymentGapCount = len(coverage.Gaps)
		for _, iv := range intervals {
			if iv.Regulated {
				s.RegulatedExperience = true
				break
			}
		}
	}
	return s
}

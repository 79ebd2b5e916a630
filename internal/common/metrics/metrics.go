// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	DraftSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_draft_saves_total",
			Help: "Draft saves handled by the application API",
		},
		[]string{"result"},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_submissions_total",
			Help: "Final submissions handled by the application API",
		},
		[]string{"result"},
	)

	SubmissionRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_submission_rejections_total",
			Help: "Submissions rejected by anti-automation or precondition checks",
		},
		[]string{"reason"},
	)

	SSNEncryptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_ssn_encryptions_total",
			Help: "SSN encryption requests",
		},
		[]string{"result"},
	)

	LicenseUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_license_uploads_total",
			Help: "License image uploads by side",
		},
		[]string{"side", "result"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "application_api_request_duration_seconds",
			Help:    "Duration of application API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

// Result maps an error to the result label.
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}

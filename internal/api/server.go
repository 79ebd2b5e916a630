// Package api serves the draft, submission, encryption, upload, resume-link,
// form-session and notification endpoints of the driver application.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"driver-application/internal/application/formsession"
	"driver-application/internal/application/store"
	"driver-application/internal/common/logger"
	"driver-application/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultMaxUploadBytes = 10 << 20
	defaultNotifyTimeout  = 30 * time.Second
	maxJSONBodyBytes      = 4 << 20
)

// Drafts is the persistence the API serves from. store.Postgres implements it.
type Drafts interface {
	SaveDraft(ctx context.Context, data models.ApplicationRecord, id string, currentStep int) (*models.Application, error)
	Get(ctx context.Context, id string) (*models.Application, error)
	Submit(ctx context.Context, id string, data models.ApplicationRecord) (*models.Application, error)
	PutLicenseImage(ctx context.Context, id, side, contentType string, body []byte) error
	GetLicenseImage(ctx context.Context, id, side string) (*store.LicenseImage, error)
}

// SSNEncryptor issues and opens SSN tokens. ssncrypt.Cipher implements it.
type SSNEncryptor interface {
	Encrypt(raw string) (string, error)
	Decrypt(token string) (string, error)
}

type FormSessions interface {
	Issue(ctx context.Context) (*formsession.Session, error)
	Verify(ctx context.Context, id, honeypotValue string) error
	Close(ctx context.Context, id string) error
}

type ResumeTokens interface {
	Encode(applicationID, email string) (string, time.Time, error)
}

type Notifier interface {
	NotifyApplicationSubmitted(ctx context.Context, n models.SubmissionNotification) error
}

// NotifyClaims deduplicates submission notifications. notify.Claims implements it.
type NotifyClaims interface {
	Claim(ctx context.Context, applicationID string) (bool, error)
	Release(ctx context.Context, applicationID string) error
}

// CheckFunc reports whether a dependency is ready.
type CheckFunc func(ctx context.Context) error

type Options struct {
	Drafts         Drafts
	SSN            SSNEncryptor
	FormSessions   FormSessions
	Tokens         ResumeTokens
	Notifier       Notifier
	NotifyClaims   NotifyClaims
	Logger         logger.Logger
	SiteURL        string
	AllowedOrigins []string
	MaxUploadBytes int64
	NotifyTimeout  time.Duration
	ReadyChecks    map[string]CheckFunc
	Now            func() time.Time
}

type Server struct {
	opts   Options
	logger logger.Logger
	now    func() time.Time

	// background notification dispatches
	inflight sync.WaitGroup
}

func New(opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = defaultNotifyTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		opts:   opts,
		logger: opts.Logger.WithFields(map[string]interface{}{"component": "api"}),
		now:    now,
	}
}

// Router mounts every route with the request middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)
	r.Use(s.observe)
	r.Use(allowOrigins(s.opts.AllowedOrigins))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/applications", s.handleCreateDraft)
		r.Route("/applications/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetApplication)
			r.Put("/", s.handleUpdateDraft)
			r.Post("/submit", s.handleSubmit)
			r.Post("/resume-link", s.handleResumeLink)
			r.Put("/license/{side:front|back}", s.handlePutLicense)
			r.Get("/license/{side:front|back}", s.handleGetLicense)
		})
		r.Post("/ssn/encrypt", s.handleEncryptSSN)
		r.Post("/form-sessions", s.handleIssueFormSession)
		r.Post("/notifications/application-submitted", s.handleNotifySubmitted)
	})
	return r
}

// Wait blocks until background notification dispatches finish.
func (s *Server) Wait() {
	s.inflight.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.opts.ReadyChecks))
	for name, check := range s.opts.ReadyChecks {
		if err := check(ctx); err != nil {
			s.logger.Warn("readiness check failed", map[string]interface{}{"check": name, "error": err.Error()})
			checks[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{"status": state, "checks": checks})
}

package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"driver-application/internal/application/notify"
	"driver-application/internal/application/ssncrypt"
	apperrors "driver-application/internal/common/errors"
	"driver-application/internal/common/metrics"
	"driver-application/internal/common/validation"
	"driver-application/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleEncryptSSN(w http.ResponseWriter, r *http.Request) {
	var req models.EncryptRequest
	if _, ok := decodeJSON(w, r, &req); !ok {
		return
	}

	token, err := s.opts.SSN.Encrypt(req.SSN)
	metrics.SSNEncryptions.WithLabelValues(metrics.Result(err)).Inc()
	if errors.Is(err, ssncrypt.ErrInvalidSSN) {
		var fields validation.FieldErrors
		fields.Add("ssn", validation.CodePatternMismatch, "SSN must be exactly 9 digits")
		writeValidation(w, fields)
		return
	}
	if err != nil {
		s.logger.Error("ssn encryption failed", map[string]interface{}{"error": err.Error()})
		writeError(w, apperrors.NewEncryptionFailedError(err))
		return
	}
	writeJSON(w, http.StatusOK, models.EncryptResponse{EncryptedValue: token})
}

func (s *Server) handleIssueFormSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.opts.FormSessions.Issue(r.Context())
	if err != nil {
		s.logger.Error("form session issue failed", map[string]interface{}{"error": err.Error()})
		writeError(w, apperrors.NewDatabaseUnavailableError(err))
		return
	}
	writeJSON(w, http.StatusCreated, models.FormSession{
		SessionID:     sess.ID,
		HoneypotField: sess.HoneypotField,
		IssuedAt:      sess.IssuedAt,
	})
}

// handleResumeLink issues a link only to the email the draft was saved with.
// Every mismatch answers 404 so the endpoint does not reveal which drafts exist.
func (s *Server) handleResumeLink(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req models.ResumeLinkRequest
	if _, ok := decodeJSON(w, r, &req); !ok {
		return
	}

	app, err := s.opts.Drafts.Get(r.Context(), id)
	if err != nil {
		writeError(w, storeError(err, id))
		return
	}
	email := strings.TrimSpace(req.Email)
	if !app.IsDraft() || email == "" || !strings.EqualFold(app.Data.Email(), email) {
		writeError(w, apperrors.NewDraftNotFoundError(id))
		return
	}

	token, expires, err := s.opts.Tokens.Encode(app.ID, email)
	if err != nil {
		writeError(w, apperrors.NewInternalError(err))
		return
	}
	link := strings.TrimRight(s.opts.SiteURL, "/") + "/apply?resume=" + url.QueryEscape(token)
	s.logger.Info("resume link issued", map[string]interface{}{"applicationId": app.ID})
	writeJSON(w, http.StatusOK, models.ResumeLinkResponse{URL: link, ExpiresAt: expires})
}

// handleNotifySubmitted dispatches the confirmation once per submitted application.
// Recipients always come from the stored record; a request naming another email
// answers 404 like an unknown application.
func (s *Server) handleNotifySubmitted(w http.ResponseWriter, r *http.Request) {
	var req models.SubmissionNotification
	if _, ok := decodeJSON(w, r, &req); !ok {
		return
	}
	if err := notify.Validate(req); err != nil {
		var fields validation.FieldErrors
		fields.Add("(root)", validation.CodeInvalidValue, err.Error())
		writeValidation(w, fields)
		return
	}

	app, err := s.opts.Drafts.Get(r.Context(), req.ApplicationID)
	if err != nil {
		writeError(w, storeError(err, req.ApplicationID))
		return
	}
	stored := app.Data.Email()
	if app.IsDraft() || stored == "" || !strings.EqualFold(stored, strings.TrimSpace(req.ApplicantEmail)) {
		writeError(w, apperrors.NewDraftNotFoundError(req.ApplicationID))
		return
	}

	if claims := s.opts.NotifyClaims; claims != nil {
		first, err := claims.Claim(r.Context(), app.ID)
		if err != nil {
			s.logger.Error("notification claim failed", map[string]interface{}{"applicationId": app.ID, "error": err.Error()})
			writeError(w, apperrors.NewDatabaseUnavailableError(err))
			return
		}
		if !first {
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "already_dispatched"})
			return
		}
	}

	n := models.SubmissionNotification{
		ApplicationID:  app.ID,
		ApplicantName:  app.Data.ApplicantName(),
		ApplicantEmail: stored,
		ApplicantPhone: app.Data.Phone(),
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.opts.NotifyTimeout)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer cancel()
		err := s.opts.Notifier.NotifyApplicationSubmitted(ctx, n)
		if err == nil {
			return
		}
		s.logger.Error("submission notification failed", map[string]interface{}{
			"applicationId": n.ApplicationID,
			"error":         err.Error(),
		})
		if claims := s.opts.NotifyClaims; claims != nil {
			if err := claims.Release(ctx, n.ApplicationID); err != nil {
				s.logger.Warn("notification claim not released", map[string]interface{}{"applicationId": n.ApplicationID, "error": err.Error()})
			}
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

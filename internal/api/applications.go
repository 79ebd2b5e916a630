package api

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"driver-application/internal/application/guard"
	"driver-application/internal/application/steps"
	apperrors "driver-application/internal/common/errors"
	"driver-application/internal/common/metrics"
	"driver-application/internal/common/validation"
	"driver-application/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	s.saveDraft(w, r, "")
}

func (s *Server) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	s.saveDraft(w, r, chi.URLParam(r, "id"))
}

func (s *Server) saveDraft(w http.ResponseWriter, r *http.Request, id string) {
	var req models.DraftRequest
	body, ok := decodeJSON(w, r, &req)
	if !ok {
		return
	}
	if holdsRawSSN(body) {
		metrics.DraftSaves.WithLabelValues(metrics.ResultFailure).Inc()
		var fields validation.FieldErrors
		fields.Add("identity.ssn", validation.CodeInvalidValue, "Drafts may only carry the encrypted SSN")
		writeValidation(w, fields)
		return
	}

	req.Data.Normalize()
	app, err := s.opts.Drafts.SaveDraft(r.Context(), req.Data, id, req.CurrentStep)
	metrics.DraftSaves.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		s.logger.Warn("draft save failed", map[string]interface{}{
			"requestId":     middleware.GetReqID(r.Context()),
			"applicationId": id,
			"error":         err.Error(),
		})
		writeError(w, storeError(err, id))
		return
	}

	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, app)
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	app, err := s.opts.Drafts.Get(r.Context(), id)
	if err != nil {
		writeError(w, storeError(err, id))
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// handleSubmit repeats the automation gates against the stored form session and
// revalidates the whole record before the application becomes read-only.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req models.SubmitRequest
	body, ok := decodeJSON(w, r, &req)
	if !ok {
		return
	}

	if err := s.opts.FormSessions.Verify(ctx, req.FormSessionID, req.HoneypotValue); err != nil {
		if rej, ok := guard.AsRejection(err); ok {
			s.reject(w, r, id, rej.Reason)
			return
		}
		metrics.Submissions.WithLabelValues(metrics.ResultFailure).Inc()
		writeError(w, apperrors.NewSubmissionFailedError(err))
		return
	}
	if req.Data.Certification == nil || guard.CheckSignature(req.Data.Certification.SignatureData) != nil {
		s.reject(w, r, id, guard.ReasonMissingSignature)
		return
	}
	if holdsRawSSN(body) {
		var fields validation.FieldErrors
		fields.Add("identity.ssn", validation.CodeInvalidValue, "Applications may only carry the encrypted SSN")
		writeValidation(w, fields)
		return
	}

	req.Data.Normalize()
	fields := steps.ValidateRecord(req.Data, s.now())
	if len(fields) == 0 {
		fields = s.checkSSNToken(req.Data.Identity)
	}
	if len(fields) > 0 {
		metrics.Submissions.WithLabelValues(metrics.ResultFailure).Inc()
		writeValidation(w, fields)
		return
	}

	app, err := s.opts.Drafts.Submit(ctx, id, req.Data)
	metrics.Submissions.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		s.logger.Warn("submission failed", map[string]interface{}{
			"requestId":     middleware.GetReqID(ctx),
			"applicationId": id,
			"error":         err.Error(),
		})
		writeError(w, storeError(err, id))
		return
	}

	if err := s.opts.FormSessions.Close(ctx, req.FormSessionID); err != nil {
		s.logger.Warn("form session not closed", map[string]interface{}{"applicationId": id, "error": err.Error()})
	}
	s.logger.Info("application submitted", map[string]interface{}{"applicationId": id})
	writeJSON(w, http.StatusOK, app)
}

// checkSSNToken accepts only tokens this server's key opens, whose digits end in the
// stored last four.
func (s *Server) checkSSNToken(identity *models.Identity) validation.FieldErrors {
	var fields validation.FieldErrors
	if identity == nil {
		return fields
	}
	digits, err := s.opts.SSN.Decrypt(identity.SSNEncrypted)
	if err != nil {
		fields.Add("identity.ssn_encrypted", validation.CodeInvalidValue, "SSN must be re-entered")
		return fields
	}
	if !strings.HasSuffix(digits, identity.SSNLast4) || len(identity.SSNLast4) != 4 {
		fields.Add("identity.ssn_last4", validation.CodeInvalidValue, "SSN must be re-entered")
	}
	return fields
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request, id, reason string) {
	metrics.SubmissionRejections.WithLabelValues(reason).Inc()
	s.logger.Warn("submission rejected", map[string]interface{}{
		"requestId":     middleware.GetReqID(r.Context()),
		"applicationId": id,
		"reason":        reason,
	})
	writeError(w, apperrors.NewSubmissionRejectedError(reason))
}

func licensePath(id, side string) string {
	return "/api/applications/" + id + "/license/" + side
}

func (s *Server) handlePutLicense(w http.ResponseWriter, r *http.Request) {
	id, side := chi.URLParam(r, "id"), chi.URLParam(r, "side")
	contentType := r.Header.Get("Content-Type")

	if !steps.AllowedLicenseType(contentType) {
		metrics.LicenseUploads.WithLabelValues(side, metrics.ResultFailure).Inc()
		var fields validation.FieldErrors
		fields.Add("license_"+side, validation.CodeInvalidFormat, "Upload a JPEG, PNG, WEBP, HEIC or PDF file")
		writeValidation(w, fields)
		return
	}
	body, err := readBody(w, r, s.opts.MaxUploadBytes)
	if err != nil || len(body) == 0 {
		metrics.LicenseUploads.WithLabelValues(side, metrics.ResultFailure).Inc()
		var fields validation.FieldErrors
		switch {
		case errors.Is(err, errBodyTooLarge):
			fields.Add("license_"+side, validation.CodeMaxLength, "File is too large")
		default:
			fields.Add("license_"+side, validation.CodeRequired, "The selected file is empty")
		}
		writeValidation(w, fields)
		return
	}

	err = s.opts.Drafts.PutLicenseImage(r.Context(), id, side, contentType, body)
	metrics.LicenseUploads.WithLabelValues(side, metrics.Result(err)).Inc()
	if err != nil {
		s.logger.Warn("license upload failed", map[string]interface{}{
			"applicationId": id,
			"side":          side,
			"error":         err.Error(),
		})
		writeError(w, storeError(err, id))
		return
	}
	writeJSON(w, http.StatusOK, models.UploadResponse{URL: licensePath(id, side)})
}

func (s *Server) handleGetLicense(w http.ResponseWriter, r *http.Request) {
	id, side := chi.URLParam(r, "id"), chi.URLParam(r, "side")
	img, err := s.opts.Drafts.GetLicenseImage(r.Context(), id, side)
	if err != nil {
		writeError(w, storeError(err, id))
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", "private, no-store")
	http.ServeContent(w, r, side, img.UploadedAt, bytes.NewReader(img.Body))
}

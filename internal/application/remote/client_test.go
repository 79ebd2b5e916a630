package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"driver-application/internal/application/session"
	"driver-application/internal/application/steps"
	"driver-application/internal/application/submission"
	apperrors "driver-application/internal/common/errors"
	"driver-application/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]interface{}{"error": map[string]string{"code": code, "message": "x"}})
}

// ==========================
// Drafts
// ==========================

func TestSaveDraft_CreateThenUpdate(t *testing.T) {
	var seen []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		var req models.DraftRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Ann", req.Data.Identity.FirstName)
		writeJSON(w, http.StatusOK, models.Application{ID: "app-1", Status: models.StatusDraft, CurrentStep: req.CurrentStep})
	})
	data := models.ApplicationRecord{Identity: &models.Identity{FirstName: "Ann"}}

	app, err := c.SaveDraft(context.Background(), data, "", 2)
	require.NoError(t, err)
	assert.Equal(t, "app-1", app.ID)
	assert.Equal(t, 2, app.CurrentStep)

	_, err = c.SaveDraft(context.Background(), data, "app-1", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"POST /api/applications", "PUT /api/applications/app-1"}, seen)
}

func TestGetApplicationByID_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, string(apperrors.ErrCodeDraftNotFound))
	})

	_, err := c.GetApplicationByID(context.Background(), "gone")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestGetApplicationByID_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.GetApplicationByID(context.Background(), "app-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, session.ErrNotFound))
}

// ==========================
// Submission
// ==========================

func TestSubmitApplication(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/applications/app-1/submit", r.URL.Path)
		var req models.SubmitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "fs-1", req.FormSessionID)
		writeJSON(w, http.StatusOK, models.Application{ID: "app-1", Status: models.StatusSubmitted})
	})

	err := c.SubmitApplication(context.Background(), "app-1", models.ApplicationRecord{}, submission.FormProof{SessionID: "fs-1"})
	require.NoError(t, err)
}

func TestSubmitApplication_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		want   apperrors.ErrorCode
	}{
		{"already submitted", http.StatusConflict, string(apperrors.ErrCodeAlreadySubmitted), apperrors.ErrCodeAlreadySubmitted},
		{"rejected", http.StatusUnprocessableEntity, string(apperrors.ErrCodeSubmissionRejected), apperrors.ErrCodeSubmissionRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeError(w, tt.status, tt.code)
			})
			err := c.SubmitApplication(context.Background(), "app-1", models.ApplicationRecord{}, submission.FormProof{})
			stdErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, stdErr.Code)
		})
	}
}

// ==========================
// Encryption and uploads
// ==========================

func TestEncryptSSN(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req models.EncryptRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "123456789", req.SSN)
		writeJSON(w, http.StatusOK, models.EncryptResponse{EncryptedValue: "v1:abc"})
	})

	token, err := c.EncryptSSN(context.Background(), "123456789")
	require.NoError(t, err)
	assert.Equal(t, "v1:abc", token)
}

func TestEncryptSSN_EmptyValue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.EncryptResponse{})
	})

	_, err := c.EncryptSSN(context.Background(), "123456789")
	assert.Error(t, err)
}

func TestUploadLicenseImage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/applications/app-1/license/front", r.URL.Path)
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte{1, 2, 3}, body)
		writeJSON(w, http.StatusOK, models.UploadResponse{URL: "/api/applications/app-1/license/front"})
	})

	url, err := c.UploadLicenseImage(context.Background(), "app-1", steps.SideFront, steps.Upload{ContentType: "image/png", Data: []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, "/api/applications/app-1/license/front", url)
}

// ==========================
// Notifications, resume links and form sessions
// ==========================

func TestNotifyApplicationSubmitted(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notifications/application-submitted", r.URL.Path)
		var n models.SubmissionNotification
		require.NoError(t, json.NewDecoder(r.Body).Decode(&n))
		assert.Equal(t, "app-1", n.ApplicationID)
		w.WriteHeader(http.StatusAccepted)
	})

	require.NoError(t, c.NotifyApplicationSubmitted(context.Background(), models.SubmissionNotification{ApplicationID: "app-1"}))
}

func TestRequestResumeLink(t *testing.T) {
	expires := time.Date(2024, 6, 22, 10, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/applications/app-1/resume-link", r.URL.Path)
		writeJSON(w, http.StatusOK, models.ResumeLinkResponse{URL: "https://apply.example.com/apply?resume=tok", ExpiresAt: expires})
	})

	link, err := c.RequestResumeLink(context.Background(), "app-1", "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://apply.example.com/apply?resume=tok", link.URL)
	assert.True(t, expires.Equal(link.ExpiresAt))
}

func TestStartFormSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		writeJSON(w, http.StatusCreated, models.FormSession{SessionID: "fs-1", HoneypotField: "company_website"})
	})

	fs, err := c.StartFormSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fs-1", fs.SessionID)
	assert.Equal(t, "company_website", fs.HoneypotField)
}

// Package remote implements the persistence, encryption, upload and notification
// contracts of the applicant-side core over the application API.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"driver-application/internal/application/session"
	"driver-application/internal/application/steps"
	"driver-application/internal/application/submission"
	apperrors "driver-application/internal/common/errors"
	httpclient "driver-application/internal/common/http"
	"driver-application/internal/models"
)

const DefaultTimeout = 30 * time.Second

type Client struct {
	http *httpclient.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: httpclient.NewClient(baseURL, timeout)}
}

var (
	_ session.Store        = (*Client)(nil)
	_ steps.Encryptor      = (*Client)(nil)
	_ steps.Uploader       = (*Client)(nil)
	_ submission.Submitter = (*Client)(nil)
	_ submission.Notifier  = (*Client)(nil)
)

func applicationPath(id string) string {
	return "/api/applications/" + url.PathEscape(id)
}

// SaveDraft creates the draft when id is empty and updates it otherwise.
func (c *Client) SaveDraft(ctx context.Context, data models.ApplicationRecord, id string, currentStep int) (*models.Application, error) {
	method, path := http.MethodPost, "/api/applications"
	if id != "" {
		method, path = http.MethodPut, applicationPath(id)
	}
	var app models.Application
	if err := c.http.DoJSON(ctx, method, path, models.DraftRequest{Data: data, CurrentStep: currentStep}, &app); err != nil {
		return nil, mapError(err, id)
	}
	return &app, nil
}

func (c *Client) GetApplicationByID(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	if err := c.http.DoJSON(ctx, http.MethodGet, applicationPath(id), nil, &app); err != nil {
		return nil, mapError(err, id)
	}
	return &app, nil
}

func (c *Client) SubmitApplication(ctx context.Context, id string, data models.ApplicationRecord, proof submission.FormProof) error {
	req := models.SubmitRequest{Data: data, FormSessionID: proof.SessionID, HoneypotValue: proof.HoneypotValue}
	if err := c.http.DoJSON(ctx, http.MethodPost, applicationPath(id)+"/submit", req, nil); err != nil {
		return mapError(err, id)
	}
	return nil
}

func (c *Client) EncryptSSN(ctx context.Context, rawSSN string) (string, error) {
	var out models.EncryptResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, "/api/ssn/encrypt", models.EncryptRequest{SSN: rawSSN}, &out); err != nil {
		return "", err
	}
	if out.EncryptedValue == "" {
		return "", errors.New("encryption service returned an empty value")
	}
	return out.EncryptedValue, nil
}

func (c *Client) UploadLicenseImage(ctx context.Context, applicationID, side string, upload steps.Upload) (string, error) {
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	var out models.UploadResponse
	path := applicationPath(applicationID) + "/license/" + url.PathEscape(side)
	if err := c.http.DoRaw(ctx, http.MethodPut, path, contentType, bytes.NewReader(upload.Data), &out); err != nil {
		return "", mapError(err, applicationID)
	}
	return out.URL, nil
}

func (c *Client) NotifyApplicationSubmitted(ctx context.Context, n models.SubmissionNotification) error {
	return c.http.DoJSON(ctx, http.MethodPost, "/api/notifications/application-submitted", n, nil)
}

// RequestResumeLink asks the server to issue a resume link for the draft.
func (c *Client) RequestResumeLink(ctx context.Context, id, email string) (*models.ResumeLinkResponse, error) {
	var out models.ResumeLinkResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, applicationPath(id)+"/resume-link", models.ResumeLinkRequest{Email: email}, &out); err != nil {
		return nil, mapError(err, id)
	}
	return &out, nil
}

func (c *Client) StartFormSession(ctx context.Context) (*models.FormSession, error) {
	var out models.FormSession
	if err := c.http.DoJSON(ctx, http.MethodPost, "/api/form-sessions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// mapError turns the API's status codes into the errors the core branches on.
func mapError(err error, id string) error {
	var statusErr *httpclient.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}
	switch {
	case statusErr.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", session.ErrNotFound, id)
	case statusErr.StatusCode == http.StatusConflict:
		return apperrors.NewAlreadySubmittedError(id)
	case statusErr.Code == string(apperrors.ErrCodeSubmissionRejected):
		return apperrors.NewSubmissionRejectedError("server")
	default:
		return err
	}
}

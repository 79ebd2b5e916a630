// internal/workers/application/index-application/handler_test.go
package indexapplication

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"driver-application/internal/application/store"
	apperrors "driver-application/internal/common/errors"
	"driver-application/internal/common/logger"
	"driver-application/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fakes
// ==========================

type fakeLoader struct {
	apps map[string]*models.Application
	err  error
}

func (f *fakeLoader) Get(ctx context.Context, id string) (*models.Application, error) {
	if f.err != nil {
		return nil, f.err
	}
	app, ok := f.apps[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return app, nil
}

type fakeTransport struct {
	status int
	paths  []string
	bodies []string
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.paths = append(f.paths, req.Method+" "+req.URL.Path)
	body := ""
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		body = string(raw)
	}
	f.bodies = append(f.bodies, body)
	return &http.Response{
		StatusCode: f.status,
		Header:     http.Header{"X-Elastic-Product": []string{"Elasticsearch"}},
		Body:       io.NopCloser(strings.NewReader(`{"result":"created"}`)),
		Request:    req,
	}, nil
}

// ==========================
// Test Helper Functions
// ==========================

var submittedAt = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func submittedApplication() *models.Application {
	return &models.Application{
		ID:          "app-001",
		Status:      models.StatusSubmitted,
		CurrentStep: models.LastStep,
		SubmittedAt: &submittedAt,
		Data: models.ApplicationRecord{
			Identity: &models.Identity{
				FirstName: "Ann", LastName: "Lee", Email: "ann@example.com",
				SSNEncrypted: "v1:secret-token", SSNLast4: "6789",
			},
			CurrentLicense: &models.CurrentLicense{Number: "NV123456", State: "NV", Class: "A", SignatureData: "data:image/png;base64,AAAA"},
			EmploymentHistory: &models.EmploymentHistory{Employers: []models.Employer{
				{Name: "Acme Freight", FromDate: "2017-01-01", SubjectToFMCSR: true},
				{Name: "Old Co", FromDate: "2012-01-01", ToDate: "2016-01-01"},
			}},
		},
	}
}

func newTestHandler(t *testing.T, loader ApplicationLoader, status int) (*Handler, *fakeTransport) {
	t.Helper()
	transport := &fakeTransport{status: status}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://es.local:9200"},
		Transport: transport,
	})
	require.NoError(t, err)

	h := NewHandler(&Config{Index: DefaultIndex, Timeout: 5 * time.Second}, loader, es, logger.NewTestLogger(t))
	h.now = func() time.Time { return submittedAt.Add(time.Minute) }
	return h, transport
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute_IndexesRedactedSummary(t *testing.T) {
	loader := &fakeLoader{apps: map[string]*models.Application{"app-001": submittedApplication()}}
	h, transport := newTestHandler(t, loader, http.StatusCreated)

	out, err := h.Execute(context.Background(), &Input{ApplicationID: "app-001"})
	require.NoError(t, err)
	assert.Equal(t, &Output{DocumentID: "app-001", Index: DefaultIndex, IndexedAt: "2024-06-15T10:01:00Z"}, out)

	require.Len(t, transport.paths, 1)
	assert.Equal(t, "PUT /driver-applications/_doc/app-001", transport.paths[0])

	body := transport.bodies[0]
	assert.NotContains(t, body, "secret-token")
	assert.NotContains(t, body, "6789")
	assert.NotContains(t, body, "NV123456")
	assert.NotContains(t, body, "base64")

	var doc Summary
	require.NoError(t, json.Unmarshal([]byte(body), &doc))
	assert.Equal(t, Summary{
		ApplicationID:           "app-001",
		ApplicantName:           "Ann Lee",
		ApplicantEmail:          "ann@example.com",
		LicenseClass:            "A",
		LicenseState:            "NV",
		EmploymentCoverageYears: 11,
		EmploymentGapCount:      1,
		RegulatedExperience:     true,
		SubmittedAt:             "2024-06-15T10:00:00Z",
	}, doc)
}

func TestHandler_Execute_Errors(t *testing.T) {
	draft := submittedApplication()
	draft.ID, draft.Status, draft.SubmittedAt = "app-draft", models.StatusDraft, nil

	tests := []struct {
		name   string
		id     string
		loader *fakeLoader
		status int
		want   error
		code   apperrors.ErrorCode
	}{
		{"missing id", "", &fakeLoader{}, http.StatusCreated, ErrInvalidInput, apperrors.ErrCodeValidationFailed},
		{"not found", "app-404", &fakeLoader{}, http.StatusCreated, store.ErrNotFound, apperrors.ErrCodeDraftNotFound},
		{"draft", "app-draft", &fakeLoader{apps: map[string]*models.Application{"app-draft": draft}}, http.StatusCreated, ErrNotSubmitted, apperrors.ErrCodeValidationFailed},
		{"database down", "app-001", &fakeLoader{err: errors.New("connection refused")}, http.StatusCreated, nil, apperrors.ErrCodeDatabaseUnavailable},
		{"index rejected", "app-001", &fakeLoader{apps: map[string]*models.Application{"app-001": submittedApplication()}}, http.StatusServiceUnavailable, ErrIndexRejected, apperrors.ErrCodeIndexingFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t, tt.loader, tt.status)
			_, err := h.Execute(context.Background(), &Input{ApplicationID: tt.id})
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.Equal(t, tt.code, h.mapError(err, tt.id).Code)
		})
	}
}

// ==========================
// Summarize
// ==========================

func TestSummarize_SparseRecord(t *testing.T) {
	updated := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	app := &models.Application{ID: "app-2", Status: models.StatusSubmitted, UpdatedAt: updated}

	s := Summarize(app)
	assert.Equal(t, Summary{ApplicationID: "app-2", SubmittedAt: "2024-01-02T03:04:05Z"}, s)
}

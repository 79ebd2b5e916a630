package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"driver-application/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"

var fixedNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	p := NewPostgres(db)
	p.now = func() time.Time { return fixedNow }
	p.newID = func() string { return appID }
	return p, mock
}

func sampleRecord() models.ApplicationRecord {
	return models.ApplicationRecord{
		Identity: &models.Identity{FirstName: "Ann", Email: "Ann@Example.com", SSNEncrypted: "v1:tok", SSNLast4: "6789"},
	}
}

// ==========================
// Drafts
// ==========================

func TestSaveDraft_Create(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO driver_applications`).
		WithArgs(appID, models.StatusDraft, 1, "ann@example.com", sqlmock.AnyArg(), fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	app, err := p.SaveDraft(context.Background(), sampleRecord(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, appID, app.ID)
	assert.Equal(t, models.StatusDraft, app.Status)
	assert.Equal(t, 1, app.CurrentStep)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveDraft_Update(t *testing.T) {
	p, mock := newMockStore(t)
	created := fixedNow.Add(-time.Hour)

	mock.ExpectQuery(`UPDATE driver_applications`).
		WithArgs(appID, 4, "ann@example.com", sqlmock.AnyArg(), fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	app, err := p.SaveDraft(context.Background(), sampleRecord(), appID, 4)
	require.NoError(t, err)
	assert.Equal(t, created, app.CreatedAt)
	assert.Equal(t, 4, app.CurrentStep)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveDraft_UpdateRejectsSubmitted(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE driver_applications`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
	mock.ExpectQuery(`SELECT status FROM driver_applications`).
		WithArgs(appID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.StatusSubmitted))

	_, err := p.SaveDraft(context.Background(), sampleRecord(), appID, 4)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveDraft_UpdateMissing(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectQuery(`UPDATE driver_applications`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))
	mock.ExpectQuery(`SELECT status FROM driver_applications`).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))

	_, err := p.SaveDraft(context.Background(), sampleRecord(), appID, 4)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = p.SaveDraft(context.Background(), sampleRecord(), "not-a-uuid", 4)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveDraft_DatabaseError(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO driver_applications`).WillReturnError(errors.New("connection reset"))

	_, err := p.SaveDraft(context.Background(), sampleRecord(), "", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert draft")
}

// ==========================
// Reads
// ==========================

func TestGet(t *testing.T) {
	p, mock := newMockStore(t)
	submitted := fixedNow

	mock.ExpectQuery(`SELECT id, status, current_step, data`).
		WithArgs(appID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "current_step", "data", "created_at", "updated_at", "submitted_at"}).
			AddRow(appID, models.StatusSubmitted, 14, []byte(`{"identity":{"first_name":"Ann","email":"ann@example.com"}}`), fixedNow, fixedNow, submitted))

	app, err := p.Get(context.Background(), appID)
	require.NoError(t, err)
	assert.False(t, app.IsDraft())
	assert.Equal(t, models.LastStep, app.CurrentStep)
	assert.Equal(t, "Ann", app.Data.Identity.FirstName)
	require.NotNil(t, app.SubmittedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, status, current_step, data`).WillReturnError(sql.ErrNoRows)

	_, err := p.Get(context.Background(), appID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ==========================
// Submission
// ==========================

func TestSubmit(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status, created_at FROM driver_applications WHERE id = \$1 FOR UPDATE`).
		WithArgs(appID).
		WillReturnRows(sqlmock.NewRows([]string{"status", "created_at"}).AddRow(models.StatusDraft, fixedNow))
	mock.ExpectExec(`UPDATE driver_applications`).
		WithArgs(appID, models.StatusSubmitted, models.LastStep, "ann@example.com", sqlmock.AnyArg(), fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	app, err := p.Submit(context.Background(), appID, sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, app.Status)
	require.NotNil(t, app.SubmittedAt)
	assert.Equal(t, fixedNow, *app.SubmittedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_Twice(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status, created_at FROM driver_applications`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "created_at"}).AddRow(models.StatusSubmitted, fixedNow))
	mock.ExpectRollback()

	_, err := p.Submit(context.Background(), appID, sampleRecord())
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit_Missing(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status, created_at FROM driver_applications`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "created_at"}))
	mock.ExpectRollback()

	_, err := p.Submit(context.Background(), appID, sampleRecord())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// License images
// ==========================

func TestPutLicenseImage(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO license_images`).
		WithArgs(appID, "front", "image/png", []byte{1, 2, 3}, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, p.PutLicenseImage(context.Background(), appID, "front", "image/png", []byte{1, 2, 3}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPutLicenseImage_NotDraft(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO license_images`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT status FROM driver_applications`).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.StatusSubmitted))

	err := p.PutLicenseImage(context.Background(), appID, "back", "image/png", []byte{1})
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	assert.ErrorIs(t, p.PutLicenseImage(context.Background(), appID, "side", "image/png", nil), ErrInvalidSide)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLicenseImage(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT content_type, body, uploaded_at FROM license_images`).
		WithArgs(appID, "back").
		WillReturnRows(sqlmock.NewRows([]string{"content_type", "body", "uploaded_at"}).AddRow("image/jpeg", []byte{9}, fixedNow))
	mock.ExpectQuery(`SELECT content_type, body, uploaded_at FROM license_images`).
		WillReturnRows(sqlmock.NewRows([]string{"content_type", "body", "uploaded_at"}))

	img, err := p.GetLicenseImage(context.Background(), appID, "back")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.ContentType)
	assert.Equal(t, []byte{9}, img.Body)

	_, err = p.GetLicenseImage(context.Background(), appID, "front")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Package store persists drafts, submissions and license images in Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"driver-application/internal/models"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("application not found")
	ErrAlreadySubmitted = errors.New("application already submitted")
	ErrInvalidSide      = errors.New("license side must be front or back")
)

// LicenseImage is one stored side of the applicant's license.
type LicenseImage struct {
	ContentType string
	Body        []byte
	UploadedAt  time.Time
}

type Postgres struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, now: time.Now, newID: uuid.NewString}
}

// SaveDraft creates a draft when id is empty and overwrites it otherwise. Last write wins.
func (p *Postgres) SaveDraft(ctx context.Context, data models.ApplicationRecord, id string, currentStep int) (*models.Application, error) {
	if id == "" {
		return p.createDraft(ctx, data, currentStep)
	}
	return p.updateDraft(ctx, id, data, currentStep)
}

func (p *Postgres) createDraft(ctx context.Context, data models.ApplicationRecord, currentStep int) (*models.Application, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal application data: %w", err)
	}
	now := p.now().UTC()
	app := &models.Application{
		ID:          p.newID(),
		Status:      models.StatusDraft,
		CurrentStep: models.ClampStep(currentStep),
		Data:        data,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO driver_applications (id, status, current_step, email, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, app.ID, app.Status, app.CurrentStep, emailOf(data), body, now)
	if err != nil {
		return nil, fmt.Errorf("insert draft: %w", err)
	}
	return app, nil
}

func (p *Postgres) updateDraft(ctx context.Context, id string, data models.ApplicationRecord, currentStep int) (*models.Application, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal application data: %w", err)
	}
	now := p.now().UTC()
	app := &models.Application{
		ID:          id,
		Status:      models.StatusDraft,
		CurrentStep: models.ClampStep(currentStep),
		Data:        data,
		UpdatedAt:   now,
	}

	err = p.db.QueryRowContext(ctx, `
		UPDATE driver_applications
		SET current_step = $2, email = $3, data = $4, updated_at = $5
		WHERE id = $1 AND status = 'draft'
		RETURNING created_at
	`, id, app.CurrentStep, emailOf(data), body, now).Scan(&app.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, p.notDraft(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("update draft: %w", err)
	}
	return app, nil
}

// Get loads an application in any status.
func (p *Postgres) Get(ctx context.Context, id string) (*models.Application, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var (
		app         models.Application
		body        []byte
		submittedAt sql.NullTime
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT id, status, current_step, data, created_at, updated_at, submitted_at
		FROM driver_applications
		WHERE id = $1
	`, id).Scan(&app.ID, &app.Status, &app.CurrentStep, &body, &app.CreatedAt, &app.UpdatedAt, &submittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select application: %w", err)
	}
	if err := json.Unmarshal(body, &app.Data); err != nil {
		return nil, fmt.Errorf("decode application data: %w", err)
	}
	if submittedAt.Valid {
		t := submittedAt.Time
		app.SubmittedAt = &t
	}
	app.CurrentStep = models.ClampStep(app.CurrentStep)
	return &app, nil
}

// Submit stores the final record and makes the application read-only.
func (p *Postgres) Submit(ctx context.Context, id string, data models.ApplicationRecord) (*models.Application, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal application data: %w", err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	var createdAt time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT status, created_at FROM driver_applications WHERE id = $1 FOR UPDATE
	`, id).Scan(&status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock application: %w", err)
	}
	if status != models.StatusDraft {
		return nil, ErrAlreadySubmitted
	}

	now := p.now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE driver_applications
		SET status = $2, current_step = $3, email = $4, data = $5, updated_at = $6, submitted_at = $6
		WHERE id = $1
	`, id, models.StatusSubmitted, models.LastStep, emailOf(data), body, now); err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submission: %w", err)
	}

	return &models.Application{
		ID:          id,
		Status:      models.StatusSubmitted,
		CurrentStep: models.LastStep,
		Data:        data,
		CreatedAt:   createdAt,
		UpdatedAt:   now,
		SubmittedAt: &now,
	}, nil
}

// PutLicenseImage stores or replaces one side. Only drafts accept uploads.
func (p *Postgres) PutLicenseImage(ctx context.Context, id, side, contentType string, body []byte) error {
	if side != "front" && side != "back" {
		return ErrInvalidSide
	}
	if !validID(id) {
		return ErrNotFound
	}
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO license_images (application_id, side, content_type, body, uploaded_at)
		SELECT id, $2, $3, $4, $5 FROM driver_applications WHERE id = $1 AND status = 'draft'
		ON CONFLICT (application_id, side)
		DO UPDATE SET content_type = EXCLUDED.content_type, body = EXCLUDED.body, uploaded_at = EXCLUDED.uploaded_at
	`, id, side, contentType, body, p.now().UTC())
	if err != nil {
		return fmt.Errorf("store license image: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return p.notDraft(ctx, id)
	}
	return nil
}

func (p *Postgres) GetLicenseImage(ctx context.Context, id, side string) (*LicenseImage, error) {
	if side != "front" && side != "back" {
		return nil, ErrInvalidSide
	}
	if !validID(id) {
		return nil, ErrNotFound
	}
	var img LicenseImage
	err := p.db.QueryRowContext(ctx, `
		SELECT content_type, body, uploaded_at FROM license_images
		WHERE application_id = $1 AND side = $2
	`, id, side).Scan(&img.ContentType, &img.Body, &img.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select license image: %w", err)
	}
	return &img, nil
}

// notDraft explains why a draft-only write matched no row.
func (p *Postgres) notDraft(ctx context.Context, id string) error {
	var status string
	err := p.db.QueryRowContext(ctx, `SELECT status FROM driver_applications WHERE id = $1`, id).Scan(&status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case err != nil:
		return fmt.Errorf("select application status: %w", err)
	default:
		return ErrAlreadySubmitted
	}
}

func emailOf(data models.ApplicationRecord) sql.NullString {
	email := strings.ToLower(strings.TrimSpace(data.Email()))
	return sql.NullString{String: email, Valid: email != ""}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

package models

import "time"

// DraftRequest is the body of the draft create and update endpoints.
type DraftRequest struct {
	Data        ApplicationRecord `json:"data"`
	CurrentStep int               `json:"current_step"`
}

// SubmitRequest is the body of the submit endpoint.
type SubmitRequest struct {
	Data          ApplicationRecord `json:"data"`
	FormSessionID string            `json:"form_session_id"`
	HoneypotValue string            `json:"honeypot_value,omitempty"`
}

type EncryptRequest struct {
	SSN string `json:"ssn"`
}

type EncryptResponse struct {
	EncryptedValue string `json:"encrypted_value"`
}

type UploadResponse struct {
	URL string `json:"url"`
}

type ResumeLinkRequest struct {
	Email string `json:"email"`
}

type ResumeLinkResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FormSession is handed to the form when it is first served.
type FormSession struct {
	SessionID     string    `json:"session_id"`
	HoneypotField string    `json:"honeypot_field"`
	IssuedAt      time.Time `json:"issued_at"`
}

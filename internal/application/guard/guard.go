// Package guard holds the anti-automation checks run before an application is submitted.
// The same checks run in the client-side submission controller and again on the server
// against the stored form session.
package guard

import (
	"errors"
	"strings"
	"time"
)

const (
	DefaultMinDwell      = 3 * time.Second
	DefaultHoneypotField = "company_website"

	ReasonHoneypot         = "honeypot"
	ReasonTooFast          = "too_fast"
	ReasonMissingSignature = "missing_signature"
	ReasonNoApplicationID  = "no_application_id"
	ReasonUnknownSession   = "unknown_session"
)

// Rejection is a failed gate. Reason is for logs and metrics only.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string {
	return "submission rejected: " + r.Reason
}

// Reject builds a Rejection for reason.
func Reject(reason string) error {
	return &Rejection{Reason: reason}
}

// AsRejection extracts a Rejection from err.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// Policy configures the automation checks.
type Policy struct {
	MinDwell      time.Duration
	HoneypotField string
}

// DefaultPolicy returns the 3 second dwell and the default honeypot field name.
func DefaultPolicy() Policy {
	return Policy{MinDwell: DefaultMinDwell, HoneypotField: DefaultHoneypotField}
}

func (p Policy) withDefaults() Policy {
	if p.MinDwell <= 0 {
		p.MinDwell = DefaultMinDwell
	}
	if p.HoneypotField == "" {
		p.HoneypotField = DefaultHoneypotField
	}
	return p
}

// Field returns the honeypot field name forms must render hidden.
func (p Policy) Field() string {
	return p.withDefaults().HoneypotField
}

// Signals are what a submission attempt reveals about how the form was filled.
type Signals struct {
	HoneypotValue string
	FormLoadedAt  time.Time
	SubmittedAt   time.Time
}

// Check runs the honeypot gate and then the dwell gate.
func (p Policy) Check(s Signals) error {
	p = p.withDefaults()
	if s.HoneypotValue != "" {
		return Reject(ReasonHoneypot)
	}
	if s.FormLoadedAt.IsZero() || s.SubmittedAt.Sub(s.FormLoadedAt) < p.MinDwell {
		return Reject(ReasonTooFast)
	}
	return nil
}

// CheckSignature rejects an empty signature image.
func CheckSignature(signatureData string) error {
	if strings.TrimSpace(signatureData) == "" {
		return Reject(ReasonMissingSignature)
	}
	return nil
}

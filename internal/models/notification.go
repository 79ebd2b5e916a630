// internal/models/notification.go
package models

// SubmissionNotification is the fire-and-forget payload sent after a successful submission.
type SubmissionNotification struct {
	ApplicationID  string `json:"application_id"`
	ApplicantName  string `json:"applicant_name"`
	ApplicantEmail string `json:"applicant_email"`
	ApplicantPhone string `json:"applicant_phone,omitempty"`
}

// NotificationTemplate is a confirmation message in text and HTML form.
type NotificationTemplate struct {
	Type     string `json:"type"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	HTMLBody string `json:"htmlBody,omitempty"`
	SMSBody  string `json:"smsBody,omitempty"`
}

// internal/workers/application/send-notification/models.go
package sendnotification

// Input is read from the process variables set when the process was started.
type Input struct {
	ApplicationID    string `json:"applicationId"`
	ApplicantName    string `json:"applicantName"`
	ApplicantEmail   string `json:"applicantEmail"`
	ApplicantPhone   string `json:"applicantPhone,omitempty"`
	NotificationType string `json:"notificationType"`
	SubmittedAt      string `json:"submittedAt,omitempty"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // "sent", "failed", "disabled"
	EmailStatus    string `json:"emailStatus"`
	SMSStatus      string `json:"smsStatus"`
	SentAt         string `json:"sentAt"` // ISO 8601
}

// Notification types
const (
	TypeApplicationSubmitted = "application_submitted"
)

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
	StatusSkipped  = "skipped"
)

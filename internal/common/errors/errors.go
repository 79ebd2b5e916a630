// Package errors provides the standardized error shape shared by the application
// API, the client-side session core and the post-submission workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeDraftSaveFailed     ErrorCode = "DRAFT_SAVE_FAILED"
	ErrCodeDraftNotFound       ErrorCode = "DRAFT_NOT_FOUND"
	ErrCodeAlreadySubmitted    ErrorCode = "APPLICATION_ALREADY_SUBMITTED"
	ErrCodeSubmissionFailed    ErrorCode = "SUBMISSION_FAILED"
	ErrCodeSubmissionRejected  ErrorCode = "SUBMISSION_REJECTED"
	ErrCodeEncryptionFailed    ErrorCode = "ENCRYPTION_FAILED"
	ErrCodeUploadFailed        ErrorCode = "UPLOAD_FAILED"
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidResumeToken  ErrorCode = "INVALID_RESUME_TOKEN"
	ErrCodeDatabaseUnavailable ErrorCode = "DATABASE_UNAVAILABLE"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeIndexingFailed         ErrorCode = "INDEXING_FAILED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// As extracts a *StandardError from an error chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func details(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// NewDraftSaveFailedError is shown to the applicant as a save-error banner; the next autosave retries.
func NewDraftSaveFailedError(err error) *StandardError {
	return newError(ErrCodeDraftSaveFailed, "Your progress could not be saved", details(err), true)
}

func NewDraftNotFoundError(applicationID string) *StandardError {
	return newError(ErrCodeDraftNotFound, "Application not found", fmt.Sprintf("applicationId: %s", applicationID), false)
}

func NewAlreadySubmittedError(applicationID string) *StandardError {
	return newError(ErrCodeAlreadySubmitted, "Application has already been submitted", fmt.Sprintf("applicationId: %s", applicationID), false)
}

func NewSubmissionFailedError(err error) *StandardError {
	return newError(ErrCodeSubmissionFailed, "Your application could not be submitted. Please try again.", details(err), true)
}

// NewSubmissionRejectedError carries a generic message. The reason is kept in metadata.
func NewSubmissionRejectedError(reason string) *StandardError {
	e := newError(ErrCodeSubmissionRejected, "Unable to submit application. Please review the form and try again.", "", false)
	e.Metadata = map[string]interface{}{"reason": reason}
	return e
}

func NewEncryptionFailedError(err error) *StandardError {
	return newError(ErrCodeEncryptionFailed, "We could not secure your Social Security Number. Please try again.", details(err), true)
}

func NewUploadFailedError(side string, err error) *StandardError {
	return newError(ErrCodeUploadFailed, fmt.Sprintf("The %s of your license could not be uploaded", side), details(err), true)
}

func NewValidationFailedError(detail string) *StandardError {
	return newError(ErrCodeValidationFailed, "Some fields need your attention", detail, false)
}

func NewInvalidResumeTokenError() *StandardError {
	return newError(ErrCodeInvalidResumeToken, "Resume link is invalid or expired", "", false)
}

func NewDatabaseUnavailableError(err error) *StandardError {
	return newError(ErrCodeDatabaseUnavailable, "Database error", details(err), true)
}

func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	e := newError(ErrCodeNotificationSendFailed, "Failed to send notification", details(err), true)
	e.Metadata = map[string]interface{}{"notificationType": notificationType}
	return e
}

func NewIndexingFailedError(err error) *StandardError {
	return newError(ErrCodeIndexingFailed, "Failed to index application", details(err), true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", details(err), false)
}

// ==========================
// 4. Error Conversion
// ==========================

// GetRetryCount returns the recommended retry count for worker jobs.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseUnavailable,
		ErrCodeNotificationSendFailed,
		ErrCodeIndexingFailed:
		return 3
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// HTTPStatus maps an error code to the status the application API responds with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeDraftNotFound:
		return http.StatusNotFound
	case ErrCodeAlreadySubmitted:
		return http.StatusConflict
	case ErrCodeValidationFailed, ErrCodeSubmissionRejected:
		return http.StatusUnprocessableEntity
	case ErrCodeInvalidResumeToken:
		return http.StatusBadRequest
	case ErrCodeDatabaseUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DRAFT") || strings.Contains(codeStr, "DATABASE"):
		return "PERSISTENCE"
	case strings.Contains(codeStr, "SUBMISSION") || strings.Contains(codeStr, "SUBMITTED"):
		return "SUBMISSION"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "ENCRYPTION") || strings.Contains(codeStr, "UPLOAD"):
		return "INTEGRATION"
	default:
		return "OTHER"
	}
}

// internal/workers/application/index-application/models.go
package indexapplication

type Input struct {
	ApplicationID string `json:"applicationId"`
}

type Output struct {
	DocumentID string `json:"indexedDocumentId"`
	Index      string `json:"indexName"`
	IndexedAt  string `json:"indexedAt"` // ISO 8601
}

// Summary is the searchable view of a submitted application. It carries no SSN,
// signature or license image.
type Summary struct {
	ApplicationID           string `json:"application_id"`
	ApplicantName           string `json:"applicant_name"`
	ApplicantEmail          string `json:"applicant_email"`
	LicenseClass            string `json:"license_class,omitempty"`
	LicenseState            string `json:"license_state,omitempty"`
	EmploymentCoverageYears int    `json:"employment_coverage_years"`
	EmploymentGapCount      int    `json:"employment_gap_count"`
	RegulatedExperience     bool   `json:"regulated_experience"`
	SubmittedAt             string `json:"submitted_at"`
}

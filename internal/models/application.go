// internal/models/application.go
package models

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the wire format of every date in the record.
const DateLayout = "2006-01-02"

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
)

const (
	FirstStep = 1
	LastStep  = 11
)

// Step numbers in form order.
const (
	StepIdentity = iota + 1
	StepResidence
	StepCurrentLicense
	StepLicenseHistory
	StepDrivingExperience
	StepAccidents
	StepConvictions
	StepEmployment
	StepEducation
	StepDocuments
	StepCertification
)

// ClampStep keeps step within [FirstStep, LastStep].
func ClampStep(step int) int {
	if step < FirstStep {
		return FirstStep
	}
	if step > LastStep {
		return LastStep
	}
	return step
}

// Application is a persisted driver application.
type Application struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	CurrentStep int               `json:"current_step"`
	Data        ApplicationRecord `json:"data"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	SubmittedAt *time.Time        `json:"submitted_at,omitempty"`
}

func (a *Application) IsDraft() bool {
	return a.Status == StatusDraft
}

// ApplicationRecord is the partial, progressively filled application.
// Each group is owned by one step; a nil group has not been completed yet.
type ApplicationRecord struct {
	Identity          *Identity          `json:"identity,omitempty"`
	ResidenceHistory  *ResidenceHistory  `json:"residence_history,omitempty"`
	CurrentLicense    *CurrentLicense    `json:"current_license,omitempty"`
	LicenseHistory    *LicenseHistory    `json:"license_history,omitempty"`
	DrivingExperience *DrivingExperience `json:"driving_experience,omitempty"`
	AccidentHistory   *AccidentHistory   `json:"accident_history,omitempty"`
	ConvictionHistory *ConvictionHistory `json:"conviction_history,omitempty"`
	EmploymentHistory *EmploymentHistory `json:"employment_history,omitempty"`
	EducationHistory  *EducationHistory  `json:"education_history,omitempty"`
	Documents         *Documents         `json:"documents,omitempty"`
	Certification     *Certification     `json:"certification,omitempty"`
}

// Identity never carries the raw SSN, only the token returned by the encryption service.
type Identity struct {
	FirstName        string `json:"first_name"`
	MiddleName       string `json:"middle_name,omitempty"`
	LastName         string `json:"last_name"`
	DateOfBirth      string `json:"date_of_birth"`
	SSNEncrypted     string `json:"ssn_encrypted,omitempty"`
	SSNLast4         string `json:"ssn_last4,omitempty"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Street           string `json:"street"`
	City             string `json:"city"`
	State            string `json:"state"`
	Zip              string `json:"zip"`
	LegalRightToWork bool   `json:"legal_right_to_work"`
}

type Residence struct {
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	FromDate  string `json:"from_date"`
	ToDate    string `json:"to_date,omitempty"`
	IsCurrent bool   `json:"is_current"`
}

type ResidenceHistory struct {
	Residences []Residence `json:"residences"`
}

type CurrentLicense struct {
	Number     string `json:"number"`
	State      string `json:"state"`
	Class      string `json:"class"`
	Expiration string `json:"expiration"`

	DeniedLicense         bool   `json:"denied_license"`
	DeniedExplanation     string `json:"denied_explanation,omitempty"`
	SuspendedOrRevoked    bool   `json:"suspended_or_revoked"`
	SuspensionExplanation string `json:"suspension_explanation,omitempty"`
	SignatureData         string `json:"signature_data,omitempty"`
	SignedAt              string `json:"signed_at,omitempty"`
}

type PriorLicense struct {
	State        string `json:"state"`
	Number       string `json:"number"`
	Class        string `json:"class"`
	Endorsements string `json:"endorsements,omitempty"`
	Expiration   string `json:"expiration"`
	IsCurrent    bool   `json:"is_current"`
}

// LicenseHistory holds either prior licenses or the only-one-license certification.
type LicenseHistory struct {
	Licenses       []PriorLicense `json:"licenses,omitempty"`
	OnlyOneLicense bool           `json:"only_one_license"`
}

type DrivingExperienceEntry struct {
	ClassOfEquipment string `json:"class_of_equipment"`
	Type             string `json:"type"`
	DateFrom         string `json:"date_from"`
	DateTo           string `json:"date_to,omitempty"`
	Miles            *int   `json:"miles,omitempty"`
}

type DrivingExperience struct {
	Entries []DrivingExperienceEntry `json:"entries"`
}

type Accident struct {
	Date           string `json:"date"`
	Nature         string `json:"nature"`
	Fatalities     int    `json:"fatalities"`
	Injuries       int    `json:"injuries"`
	ChemicalSpills bool   `json:"chemical_spills"`
}

type AccidentHistory struct {
	HasAccidents bool       `json:"has_accidents"`
	Accidents    []Accident `json:"accidents,omitempty"`
}

type Conviction struct {
	Date      string `json:"date"`
	State     string `json:"state"`
	Violation string `json:"violation"`
	Penalty   string `json:"penalty"`
}

type ConvictionHistory struct {
	HasConvictions bool         `json:"has_convictions"`
	Convictions    []Conviction `json:"convictions,omitempty"`
}

type Employer struct {
	Name                string `json:"name"`
	Phone               string `json:"phone"`
	Address             string `json:"address"`
	Position            string `json:"position"`
	FromDate            string `json:"from_date"`
	ToDate              string `json:"to_date,omitempty"`
	ReasonLeaving       string `json:"reason_leaving,omitempty"`
	Salary              string `json:"salary,omitempty"`
	SubjectToFMCSR      bool   `json:"subject_to_fmcsr"`
	SubjectToDOTTesting bool   `json:"subject_to_dot_testing"`
	GapExplanation      string `json:"gap_explanation,omitempty"`
}

type EmploymentHistory struct {
	Employers []Employer `json:"employers"`
}

type School struct {
	SchoolName     string `json:"school_name"`
	Location       string `json:"location"`
	CourseOfStudy  string `json:"course_of_study,omitempty"`
	YearsCompleted *int   `json:"years_completed,omitempty"`
	Graduated      bool   `json:"graduated"`
	Details        string `json:"details,omitempty"`
}

type EducationHistory struct {
	Schools []School `json:"schools"`
}

type Documents struct {
	LicenseFrontURL string `json:"license_front_url,omitempty"`
	LicenseBackURL  string `json:"license_back_url,omitempty"`
}

type Certification struct {
	PrintedName   string `json:"printed_name"`
	CertifyTrue   bool   `json:"certify_true"`
	SignatureData string `json:"signature_data,omitempty"`
	SubmittedAt   string `json:"submitted_at,omitempty"`
}

// Merge overwrites every group that is set in partial.
func (r *ApplicationRecord) Merge(partial ApplicationRecord) {
	if partial.Identity != nil {
		r.Identity = partial.Identity
	}
	if partial.ResidenceHistory != nil {
		r.ResidenceHistory = partial.ResidenceHistory
	}
	if partial.CurrentLicense != nil {
		r.CurrentLicense = partial.CurrentLicense
	}
	if partial.LicenseHistory != nil {
		r.LicenseHistory = partial.LicenseHistory
	}
	if partial.DrivingExperience != nil {
		r.DrivingExperience = partial.DrivingExperience
	}
	if partial.AccidentHistory != nil {
		r.AccidentHistory = partial.AccidentHistory
	}
	if partial.ConvictionHistory != nil {
		r.ConvictionHistory = partial.ConvictionHistory
	}
	if partial.EmploymentHistory != nil {
		r.EmploymentHistory = partial.EmploymentHistory
	}
	if partial.EducationHistory != nil {
		r.EducationHistory = partial.EducationHistory
	}
	if partial.Documents != nil {
		r.Documents = partial.Documents
	}
	if partial.Certification != nil {
		r.Certification = partial.Certification
	}
}

// Normalize drops data hidden behind a disclosure toggle that is now off.
func (r *ApplicationRecord) Normalize() {
	if r.AccidentHistory != nil && !r.AccidentHistory.HasAccidents {
		r.AccidentHistory.Accidents = nil
	}
	if r.ConvictionHistory != nil && !r.ConvictionHistory.HasConvictions {
		r.ConvictionHistory.Convictions = nil
	}
	if r.CurrentLicense != nil {
		if !r.CurrentLicense.DeniedLicense {
			r.CurrentLicense.DeniedExplanation = ""
		}
		if !r.CurrentLicense.SuspendedOrRevoked {
			r.CurrentLicense.SuspensionExplanation = ""
		}
	}
	if r.LicenseHistory != nil && len(r.LicenseHistory.Licenses) > 0 {
		r.LicenseHistory.OnlyOneLicense = false
	}
}

// Clone returns a deep copy.
func (r ApplicationRecord) Clone() ApplicationRecord {
	raw, err := json.Marshal(r)
	if err != nil {
		return r
	}
	var out ApplicationRecord
	if err := json.Unmarshal(raw, &out); err != nil {
		return r
	}
	return out
}

// Equal reports whether both records serialize identically.
func (r ApplicationRecord) Equal(other ApplicationRecord) bool {
	a, errA := json.Marshal(r)
	b, errB := json.Marshal(other)
	return errA == nil && errB == nil && string(a) == string(b)
}

func (r *ApplicationRecord) Email() string {
	if r.Identity == nil {
		return ""
	}
	return r.Identity.Email
}

func (r *ApplicationRecord) Phone() string {
	if r.Identity == nil {
		return ""
	}
	return r.Identity.Phone
}

func (r *ApplicationRecord) ApplicantName() string {
	if r.Identity == nil {
		return ""
	}
	return strings.Join(strings.Fields(r.Identity.FirstName+" "+r.Identity.LastName), " ")
}

// ParseDate parses a record date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Today truncates t to its calendar date in UTC.
func Today(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var rawSSNPattern = regexp.MustCompile(`^(\d{9}|\d{3}-\d{2}-\d{4})$`)

// IsRawSSN reports whether s looks like an unmasked SSN.
func IsRawSSN(s string) bool {
	return rawSSNPattern.MatchString(strings.TrimSpace(s))
}

// ContainsRawSSN walks a decoded JSON document and reports whether any string value is an unmasked SSN.
func ContainsRawSSN(doc interface{}) bool {
	switch v := doc.(type) {
	case string:
		return IsRawSSN(v)
	case map[string]interface{}:
		for _, item := range v {
			if ContainsRawSSN(item) {
				return true
			}
		}
	case []interface{}:
		for _, item := range v {
			if ContainsRawSSN(item) {
				return true
			}
		}
	}
	return false
}

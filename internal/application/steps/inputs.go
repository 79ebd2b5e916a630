package steps

import (
	"encoding/json"
	"fmt"

	"driver-application/internal/models"
)

// Input is the form data of one step. Each step has its own concrete type.
type Input interface {
	Step() int
}

// IdentityInput carries the SSN as typed: raw, or masked when the field was not re-entered.
type IdentityInput struct {
	models.Identity
	SSN string `json:"ssn"`
}

type ResidenceInput struct {
	models.ResidenceHistory
}

type CurrentLicenseInput struct {
	models.CurrentLicense
}

type LicenseHistoryInput struct {
	models.LicenseHistory
}

type DrivingExperienceInput struct {
	models.DrivingExperience
}

type AccidentsInput struct {
	models.AccidentHistory
}

type ConvictionsInput struct {
	models.ConvictionHistory
}

type EmploymentInput struct {
	models.EmploymentHistory
}

type EducationInput struct {
	models.EducationHistory
}

// Upload is a license image selected for upload.
type Upload struct {
	ContentType string
	Data        []byte
}

// DocumentsInput holds already stored references, new uploads, or a mix per side.
type DocumentsInput struct {
	models.Documents
	Front *Upload `json:"-"`
	Back  *Upload `json:"-"`
}

type CertificationInput struct {
	models.Certification
}

func (IdentityInput) Step() int          { return models.StepIdentity }
func (ResidenceInput) Step() int         { return models.StepResidence }
func (CurrentLicenseInput) Step() int    { return models.StepCurrentLicense }
func (LicenseHistoryInput) Step() int    { return models.StepLicenseHistory }
func (DrivingExperienceInput) Step() int { return models.StepDrivingExperience }
func (AccidentsInput) Step() int         { return models.StepAccidents }
func (ConvictionsInput) Step() int       { return models.StepConvictions }
func (EmploymentInput) Step() int        { return models.StepEmployment }
func (EducationInput) Step() int         { return models.StepEducation }
func (DocumentsInput) Step() int         { return models.StepDocuments }
func (CertificationInput) Step() int     { return models.StepCertification }

// DecodeInput parses a JSON step payload into the step's input type.
func DecodeInput(step int, raw []byte) (Input, error) {
	switch step {
	case models.StepIdentity:
		var v IdentityInput
		err := json.Unmarshal(raw, &v)
		return v, wrapDecode(step, err)
	case models.StepResidence:
		var v ResidenceInput
		err := json.Unmarshal(raw, &v)
		return v, wrapDecode(step, err)
	case models.StepCurrentLicense:
		var v CurrentLicenseInput
		err := json.Unmarshal(raw, &v)
		return v, wrapDecode(step, err)
	case models.StepLicenseHistory:
		var v LicenseHistoryInput
		err := json.Unmarshal(raw, &v)
		return v, wrapDecode(step, err)
	case models.StepDrivingExperience:
		var v DrivingExperienceInput
		err := json.Unmarshal(raw, &v)
		return v, wrapDecode(step, err)
	case models.StepAccidents:
		var v AccidentsInput
		err := json.Unmarshal(raw, &v)
		return v, wrapDecode(step, err)
	case models.StepConvictions:
		var v ConvictionsInput
		err := json.Unmarshal(raw, &v)
		return v, wrapDecode(step, err)
	case models.StepEmployment:
		var v EmploymentInput
		err := json.Unmarshal(raw, &v)
		return v, wrapDecode(step, err)
	case models.StepEducation:
		var v EducationInput
		err := json.Unmarshal(raw, &v)
		return v, wrapDecode(step, err)
	case models.StepDocuments:
		var v DocumentsInput
		err := json.Unmarshal(raw, &v)
		return v, wrapDecode(step, err)
	case models.StepCertification:
		var v CertificationInput
		err := json.Unmarshal(raw, &v)
		return v, wrapDecode(step, err)
	default:
		return nil, fmt.Errorf("unknown step %d", step)
	}
}

func wrapDecode(step int, err error) error {
	if err != nil {
		return fmt.Errorf("decode step %d: %w", step, err)
	}
	return nil
}

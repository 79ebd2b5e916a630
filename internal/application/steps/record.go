package steps

import (
	"fmt"
	"time"

	"driver-application/internal/common/validation"
	"driver-application/internal/models"
)

// ValidateRecord re-runs every step validator over a complete record, as the server does
// before accepting a submission. Optional steps may be absent. Field names are prefixed
// with the record group they belong to.
func ValidateRecord(rec models.ApplicationRecord, now time.Time) validation.FieldErrors {
	var errs validation.FieldErrors
	vc := Context{Now: now, Existing: rec}

	check := func(group string, present bool, in Input) {
		if !present {
			errs.Add(group, validation.CodeRequired, fmt.Sprintf("Step %d has not been completed", in.Step()))
			return
		}
		errs.Merge(group, Validate(in, vc).Errors)
	}

	if rec.Identity != nil {
		check("identity", true, IdentityInput{Identity: *rec.Identity, SSN: MaskSSN(rec.Identity.SSNLast4)})
	} else {
		check("identity", false, IdentityInput{})
	}
	check("residence_history", rec.ResidenceHistory != nil, ResidenceInput{deref(rec.ResidenceHistory)})
	check("current_license", rec.CurrentLicense != nil, CurrentLicenseInput{deref(rec.CurrentLicense)})
	check("license_history", rec.LicenseHistory != nil, LicenseHistoryInput{deref(rec.LicenseHistory)})
	check("driving_experience", true, DrivingExperienceInput{deref(rec.DrivingExperience)})
	check("accident_history", rec.AccidentHistory != nil, AccidentsInput{deref(rec.AccidentHistory)})
	check("conviction_history", rec.ConvictionHistory != nil, ConvictionsInput{deref(rec.ConvictionHistory)})
	check("employment_history", rec.EmploymentHistory != nil, EmploymentInput{deref(rec.EmploymentHistory)})
	check("education_history", true, EducationInput{deref(rec.EducationHistory)})
	check("documents", rec.Documents != nil, DocumentsInput{Documents: deref(rec.Documents)})
	check("certification", rec.Certification != nil, CertificationInput{deref(rec.Certification)})
	return errs
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

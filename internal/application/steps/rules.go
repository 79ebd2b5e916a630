package steps

import (
	"fmt"
	"strings"
	"time"

	"driver-application/internal/application/history"
	"driver-application/internal/common/validation"
	"driver-application/internal/models"
)

const (
	MinimumAge = 18

	CodeUnderage        = "UNDERAGE"
	CodeExpired         = "LICENSE_EXPIRED"
	CodeFutureDate      = "FUTURE_DATE"
	CodeDateOrder       = "DATE_ORDER"
	CodeGapUnexplained  = "GAP_EXPLANATION_REQUIRED"
	CodeExclusiveChoice = "EXCLUSIVE_CHOICE"
	CodeSSNReentry      = "SSN_REENTRY_REQUIRED"
)

// Context is what a validator may read besides its own input.
type Context struct {
	Now      time.Time
	Existing models.ApplicationRecord
}

func (c Context) today() time.Time {
	return models.Today(c.Now)
}

// Outcome is the result of validating one step. Partial is only meaningful when Errors is empty.
type Outcome struct {
	Partial  models.ApplicationRecord
	Coverage *history.Coverage
	Warnings []string
	Errors   validation.FieldErrors

	// rawSSN is set when step 1 carries a newly typed SSN that must be encrypted before merging.
	rawSSN string
}

func (o Outcome) Valid() bool {
	return len(o.Errors) == 0
}

// NeedsEncryption reports whether the identity group still lacks its SSN token.
func (o Outcome) NeedsEncryption() bool {
	return o.rawSSN != ""
}

// Validate runs the structural schema and the cross-field rules of in's step. It performs no I/O.
func Validate(in Input, vc Context) Outcome {
	switch v := in.(type) {
	case IdentityInput:
		return validateIdentity(v, vc)
	case ResidenceInput:
		return validateResidence(v, vc)
	case CurrentLicenseInput:
		return validateCurrentLicense(v, vc)
	case LicenseHistoryInput:
		return validateLicenseHistory(v, vc)
	case DrivingExperienceInput:
		return validateDrivingExperience(v, vc)
	case AccidentsInput:
		return validateAccidents(v, vc)
	case ConvictionsInput:
		return validateConvictions(v, vc)
	case EmploymentInput:
		return validateEmployment(v, vc)
	case EducationInput:
		return validateEducation(v)
	case DocumentsInput:
		return validateDocuments(v)
	case CertificationInput:
		return validateCertification(v)
	default:
		var errs validation.FieldErrors
		errs.Add("step", validation.CodeInvalidValue, fmt.Sprintf("unsupported step input %T", in))
		return Outcome{Errors: errs}
	}
}

// ==========================
// Step 1: identity
// ==========================

func validateIdentity(in IdentityInput, vc Context) Outcome {
	in.SSN = strings.TrimSpace(in.SSN)
	in.State = strings.ToUpper(strings.TrimSpace(in.State))
	errs := identitySchema.Validate(in)

	if dob, ok := parseDate(&errs, "date_of_birth", in.DateOfBirth); ok {
		if dob.AddDate(MinimumAge, 0, 0).After(vc.today()) {
			errs.Add("date_of_birth", CodeUnderage, fmt.Sprintf("You must be at least %d years old", MinimumAge))
		}
	}

	identity := in.Identity
	identity.SSNEncrypted = ""
	identity.SSNLast4 = ""

	out := Outcome{}
	switch {
	case errs.Has("ssn"):
	case IsMaskedSSN(in.SSN):
		existing := vc.Existing.Identity
		last4 := in.SSN[len(in.SSN)-4:]
		if existing == nil || existing.SSNEncrypted == "" || existing.SSNLast4 != last4 {
			errs.Add("ssn", CodeSSNReentry, "Please re-enter your Social Security Number")
			break
		}
		identity.SSNEncrypted = existing.SSNEncrypted
		identity.SSNLast4 = existing.SSNLast4
	default:
		out.rawSSN = DigitsOnly(in.SSN)
		identity.SSNLast4 = out.rawSSN[len(out.rawSSN)-4:]
	}

	out.Errors = errs
	out.Partial = models.ApplicationRecord{Identity: &identity}
	if !out.Valid() {
		out.rawSSN = ""
	}
	return out
}

// IsMaskedSSN reports whether ssn is the masked form the form shows after entry.
func IsMaskedSSN(ssn string) bool {
	return len(ssn) == 11 && strings.HasPrefix(ssn, "***-**-") && isDigits(ssn[7:])
}

// MaskSSN renders the masked form from the last four digits.
func MaskSSN(last4 string) string {
	return "***-**-" + last4
}

// DigitsOnly strips separators from a raw SSN.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isDigits(s string) bool {
	return s != "" && DigitsOnly(s) == s
}

// ==========================
// Step 2: residences
// ==========================

func validateResidence(in ResidenceInput, vc Context) Outcome {
	if in.Residences == nil {
		in.Residences = []models.Residence{}
	}
	errs := residenceSchema.Validate(in)

	current := 0
	for i, r := range in.Residences {
		field := fmt.Sprintf("residences.%d", i)
		if r.IsCurrent {
			current++
		} else if r.ToDate == "" {
			errs.Add(field+".to_date", validation.CodeRequired, "End date is required for a previous address")
		}
		checkRange(&errs, field, "from_date", "to_date", r.FromDate, r.ToDate, vc.today())
	}
	if current > 1 {
		errs.Add("residences", validation.CodeInvalidValue, "Only one address can be current")
	}

	out := Outcome{
		Partial: models.ApplicationRecord{ResidenceHistory: &models.ResidenceHistory{Residences: in.Residences}},
		Errors:  errs,
	}
	if len(errs) == 0 {
		intervals, positions := history.FromResidences(in.Residences)
		cov := history.Analyze(intervals, vc.Now).Remap(positions)
		out.Coverage = &cov
		if !cov.MeetsLookback {
			out.Warnings = append(out.Warnings, shortfall("Residence", cov))
		}
	}
	return out
}

// ==========================
// Step 3: current license
// ==========================

func validateCurrentLicense(in CurrentLicenseInput, vc Context) Outcome {
	in.State = strings.ToUpper(strings.TrimSpace(in.State))
	errs := currentLicenseSchema.Validate(in)

	if exp, ok := parseDate(&errs, "expiration", in.Expiration); ok && !exp.After(vc.today()) {
		errs.Add("expiration", CodeExpired, "License must not be expired")
	}
	requireIf(&errs, in.DeniedLicense, "denied_explanation", in.DeniedExplanation)
	requireIf(&errs, in.SuspendedOrRevoked, "suspension_explanation", in.SuspensionExplanation)

	license := in.CurrentLicense
	if license.SignedAt == "" {
		license.SignedAt = vc.Now.UTC().Format(time.RFC3339)
	}
	return Outcome{Partial: models.ApplicationRecord{CurrentLicense: &license}, Errors: errs}
}

// ==========================
// Step 4: license history
// ==========================

func validateLicenseHistory(in LicenseHistoryInput, vc Context) Outcome {
	errs := licenseHistorySchema.Validate(in)

	hasList := len(in.Licenses) > 0
	switch {
	case !hasList && !in.OnlyOneLicense:
		errs.Add("licenses", validation.CodeRequired, "Add your previous licenses or confirm you have held only one license in the past 3 years")
	case hasList && in.OnlyOneLicense:
		errs.Add("only_one_license", CodeExclusiveChoice, "Uncheck this box or remove the additional licenses")
	}
	for i, l := range in.Licenses {
		parseDate(&errs, fmt.Sprintf("licenses.%d.expiration", i), l.Expiration)
	}

	licenseHistory := in.LicenseHistory
	return Outcome{Partial: models.ApplicationRecord{LicenseHistory: &licenseHistory}, Errors: errs}
}

// ==========================
// Step 5: driving experience
// ==========================

func validateDrivingExperience(in DrivingExperienceInput, vc Context) Outcome {
	errs := drivingExperienceSchema.Validate(in)
	for i, e := range in.Entries {
		checkRange(&errs, fmt.Sprintf("entries.%d", i), "date_from", "date_to", e.DateFrom, e.DateTo, vc.today())
	}
	experience := in.DrivingExperience
	return Outcome{Partial: models.ApplicationRecord{DrivingExperience: &experience}, Errors: errs}
}

// ==========================
// Steps 6 and 7: disclosures
// ==========================

func validateAccidents(in AccidentsInput, vc Context) Outcome {
	if !in.HasAccidents {
		in.Accidents = nil
	}
	errs := accidentSchema.Validate(in)
	if in.HasAccidents && len(in.Accidents) == 0 {
		errs.Add("accidents", validation.CodeRequired, "Add at least one accident")
	}
	for i, a := range in.Accidents {
		field := fmt.Sprintf("accidents.%d.date", i)
		if d, ok := parseDate(&errs, field, a.Date); ok && d.After(vc.today()) {
			errs.Add(field, CodeFutureDate, "Date cannot be in the future")
		}
	}
	accidents := in.AccidentHistory
	return Outcome{Partial: models.ApplicationRecord{AccidentHistory: &accidents}, Errors: errs}
}

func validateConvictions(in ConvictionsInput, vc Context) Outcome {
	if !in.HasConvictions {
		in.Convictions = nil
	}
	errs := convictionSchema.Validate(in)
	if in.HasConvictions && len(in.Convictions) == 0 {
		errs.Add("convictions", validation.CodeRequired, "Add at least one conviction")
	}
	for i, c := range in.Convictions {
		field := fmt.Sprintf("convictions.%d.date", i)
		if d, ok := parseDate(&errs, field, c.Date); ok && d.After(vc.today()) {
			errs.Add(field, CodeFutureDate, "Date cannot be in the future")
		}
	}
	convictions := in.ConvictionHistory
	return Outcome{Partial: models.ApplicationRecord{ConvictionHistory: &convictions}, Errors: errs}
}

// ==========================
// Step 8: employment
// ==========================

func validateEmployment(in EmploymentInput, vc Context) Outcome {
	if in.Employers == nil {
		in.Employers = []models.Employer{}
	}
	errs := employmentSchema.Validate(in)
	for i, e := range in.Employers {
		checkRange(&errs, fmt.Sprintf("employers.%d", i), "from_date", "to_date", e.FromDate, e.ToDate, vc.today())
	}

	out := Outcome{
		Partial: models.ApplicationRecord{EmploymentHistory: &models.EmploymentHistory{Employers: in.Employers}},
	}
	if len(errs) == 0 {
		intervals, positions := history.FromEmployers(in.Employers)
		cov := history.Analyze(intervals, vc.Now).Remap(positions)
		out.Coverage = &cov

		for _, gap := range cov.Gaps {
			if strings.TrimSpace(in.Employers[gap.PrecedingIndex].GapExplanation) == "" {
				errs.Add(
					fmt.Sprintf("employers.%d.gap_explanation", gap.PrecedingIndex),
					CodeGapUnexplained,
					fmt.Sprintf("Explain the %d-month gap before this position", gap.Months),
				)
			}
		}
		if !cov.MeetsLookback {
			out.Warnings = append(out.Warnings, shortfall("Employment", cov))
		}
	}
	out.Errors = errs
	return out
}

// ==========================
// Steps 9 to 11
// ==========================

func validateEducation(in EducationInput) Outcome {
	errs := educationSchema.Validate(in)
	education := in.EducationHistory
	return Outcome{Partial: models.ApplicationRecord{EducationHistory: &education}, Errors: errs}
}

var allowedImageTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/heic":      true,
	"application/pdf": true,
}

// AllowedLicenseType reports whether a license image may be stored with contentType.
func AllowedLicenseType(contentType string) bool {
	return allowedImageTypes[contentType]
}

func validateDocuments(in DocumentsInput) Outcome {
	var errs validation.FieldErrors
	checkSide := func(field, url string, upload *Upload) {
		if upload != nil {
			if len(upload.Data) == 0 {
				errs.Add(field, validation.CodeRequired, "The selected file is empty")
			} else if !allowedImageTypes[upload.ContentType] {
				errs.Add(field, validation.CodeInvalidFormat, "Upload a JPEG, PNG, WEBP, HEIC or PDF file")
			}
			return
		}
		if strings.TrimSpace(url) == "" {
			errs.Add(field, validation.CodeRequired, "This document is required")
		}
	}
	checkSide("license_front_url", in.LicenseFrontURL, in.Front)
	checkSide("license_back_url", in.LicenseBackURL, in.Back)

	documents := in.Documents
	return Outcome{Partial: models.ApplicationRecord{Documents: &documents}, Errors: errs}
}

func validateCertification(in CertificationInput) Outcome {
	errs := certificationSchema.Validate(in)
	certification := in.Certification
	certification.PrintedName = strings.TrimSpace(certification.PrintedName)
	return Outcome{Partial: models.ApplicationRecord{Certification: &certification}, Errors: errs}
}

// ==========================
// Shared predicates
// ==========================

// parseDate adds an error unless the schema already flagged the field.
func parseDate(errs *validation.FieldErrors, field, value string) (time.Time, bool) {
	if value == "" || errs.Has(field) {
		return time.Time{}, false
	}
	t, err := models.ParseDate(value)
	if err != nil {
		errs.Add(field, validation.CodeInvalidFormat, "Enter a valid date")
		return time.Time{}, false
	}
	return t, true
}

func checkRange(errs *validation.FieldErrors, prefix, fromKey, toKey, from, to string, today time.Time) {
	fromField, toField := prefix+"."+fromKey, prefix+"."+toKey
	start, okStart := parseDate(errs, fromField, from)
	if okStart && start.After(today) {
		errs.Add(fromField, CodeFutureDate, "Start date cannot be in the future")
	}
	end, okEnd := parseDate(errs, toField, to)
	if okStart && okEnd && end.Before(start) {
		errs.Add(toField, CodeDateOrder, "End date must be after the start date")
	}
}

func requireIf(errs *validation.FieldErrors, flag bool, field, value string) {
	if flag && strings.TrimSpace(value) == "" {
		errs.Add(field, validation.CodeRequired, "An explanation is required")
	}
}

func shortfall(kind string, cov history.Coverage) string {
	return fmt.Sprintf("%s history covers %d years %d months of the required %d years", kind, cov.Years, cov.Months, cov.RequiredYears)
}

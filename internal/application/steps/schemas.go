package steps

import (
	"strings"

	"driver-application/internal/common/validation"
)

// Structural rules per step. Cross-field rules live in rules.go.

const (
	datePattern  = `^\d{4}-\d{2}-\d{2}$`
	statePattern = `^[A-Z]{2}$`
	zipPattern   = `^\d{5}(-\d{4})?$`
	ssnPattern   = `^(\d{3}-\d{2}-\d{4}|\d{9}|\*{3}-\*{2}-\d{4})$`
	emailPattern = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	phonePattern = `^\+?[\d\s\-\(\)]{10,}$`
)

var identitySchema = validation.MustCompile(`{
  "type": "object",
  "required": ["first_name", "last_name", "date_of_birth", "ssn", "email", "phone", "street", "city", "state", "zip"],
  "properties": {
    "first_name":    {"type": "string", "minLength": 1, "maxLength": 100},
    "middle_name":   {"type": "string", "maxLength": 100},
    "last_name":     {"type": "string", "minLength": 1, "maxLength": 100},
    "date_of_birth": {"type": "string", "pattern": "` + jsonEscape(datePattern) + `"},
    "ssn":           {"type": "string", "pattern": "` + jsonEscape(ssnPattern) + `"},
    "email":         {"type": "string", "pattern": "` + jsonEscape(emailPattern) + `"},
    "phone":         {"type": "string", "pattern": "` + jsonEscape(phonePattern) + `"},
    "street":        {"type": "string", "minLength": 1},
    "city":          {"type": "string", "minLength": 1},
    "state":         {"type": "string", "pattern": "` + jsonEscape(statePattern) + `"},
    "zip":           {"type": "string", "pattern": "` + jsonEscape(zipPattern) + `"},
    "legal_right_to_work": {"type": "boolean"}
  }
}`)

var residenceSchema = validation.MustCompile(`{
  "type": "object",
  "required": ["residences"],
  "properties": {
    "residences": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["street", "city", "state", "zip", "from_date"],
        "properties": {
          "street":    {"type": "string", "minLength": 1},
          "city":      {"type": "string", "minLength": 1},
          "state":     {"type": "string", "pattern": "` + jsonEscape(statePattern) + `"},
          "zip":       {"type": "string", "pattern": "` + jsonEscape(zipPattern) + `"},
          "from_date": {"type": "string", "pattern": "` + jsonEscape(datePattern) + `"},
          "to_date":   {"type": "string", "pattern": "` + jsonEscape(datePattern) + `"},
          "is_current": {"type": "boolean"}
        }
      }
    }
  }
}`)

var currentLicenseSchema = validation.MustCompile(`{
  "type": "object",
  "required": ["number", "state", "class", "expiration", "signature_data"],
  "properties": {
    "number":     {"type": "string", "minLength": 1, "maxLength": 30},
    "state":      {"type": "string", "pattern": "` + jsonEscape(statePattern) + `"},
    "class":      {"type": "string", "enum": ["A", "B", "C", "D", "M"]},
    "expiration": {"type": "string", "pattern": "` + jsonEscape(datePattern) + `"},
    "signature_data": {"type": "string", "minLength": 1}
  }
}`)

var licenseHistorySchema = validation.MustCompile(`{
  "type": "object",
  "properties": {
    "licenses": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["state", "number", "class", "expiration"],
        "properties": {
          "state":        {"type": "string", "pattern": "` + jsonEscape(statePattern) + `"},
          "number":       {"type": "string", "minLength": 1},
          "class":        {"type": "string", "minLength": 1},
          "endorsements": {"type": "string"},
          "expiration":   {"type": "string", "pattern": "` + jsonEscape(datePattern) + `"},
          "is_current":   {"type": "boolean"}
        }
      }
    },
    "only_one_license": {"type": "boolean"}
  }
}`)

var drivingExperienceSchema = validation.MustCompile(`{
  "type": "object",
  "properties": {
    "entries": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["class_of_equipment", "type", "date_from"],
        "properties": {
          "class_of_equipment": {"type": "string", "minLength": 1},
          "type":      {"type": "string", "minLength": 1},
          "date_from": {"type": "string", "pattern": "` + jsonEscape(datePattern) + `"},
          "date_to":   {"type": "string", "pattern": "` + jsonEscape(datePattern) + `"},
          "miles":     {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`)

var accidentSchema = validation.MustCompile(`{
  "type": "object",
  "required": ["has_accidents"],
  "properties": {
    "has_accidents": {"type": "boolean"},
    "accidents": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["date", "nature"],
        "properties": {
          "date":            {"type": "string", "pattern": "` + jsonEscape(datePattern) + `"},
          "nature":          {"type": "string", "minLength": 1},
          "fatalities":      {"type": "integer", "minimum": 0},
          "injuries":        {"type": "integer", "minimum": 0},
          "chemical_spills": {"type": "boolean"}
        }
      }
    }
  }
}`)

var convictionSchema = validation.MustCompile(`{
  "type": "object",
  "required": ["has_convictions"],
  "properties": {
    "has_convictions": {"type": "boolean"},
    "convictions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["date", "state", "violation", "penalty"],
        "properties": {
          "date":      {"type": "string", "pattern": "` + jsonEscape(datePattern) + `"},
          "state":     {"type": "string", "pattern": "` + jsonEscape(statePattern) + `"},
          "violation": {"type": "string", "minLength": 1},
          "penalty":   {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`)

var employmentSchema = validation.MustCompile(`{
  "type": "object",
  "required": ["employers"],
  "properties": {
    "employers": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "phone", "address", "position", "from_date"],
        "properties": {
          "name":      {"type": "string", "minLength": 1},
          "phone":     {"type": "string", "pattern": "` + jsonEscape(phonePattern) + `"},
          "address":   {"type": "string", "minLength": 1},
          "position":  {"type": "string", "minLength": 1},
          "from_date": {"type": "string", "pattern": "` + jsonEscape(datePattern) + `"},
          "to_date":   {"type": "string", "pattern": "` + jsonEscape(datePattern) + `"},
          "reason_leaving": {"type": "string"},
          "salary":         {"type": "string"},
          "subject_to_fmcsr":       {"type": "boolean"},
          "subject_to_dot_testing": {"type": "boolean"},
          "gap_explanation":        {"type": "string"}
        }
      }
    }
  }
}`)

var educationSchema = validation.MustCompile(`{
  "type": "object",
  "properties": {
    "schools": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["school_name", "location"],
        "properties": {
          "school_name":     {"type": "string", "minLength": 1},
          "location":        {"type": "string", "minLength": 1},
          "course_of_study": {"type": "string"},
          "years_completed": {"type": "integer", "minimum": 0, "maximum": 20},
          "graduated":       {"type": "boolean"},
          "details":         {"type": "string"}
        }
      }
    }
  }
}`)

var certificationSchema = validation.MustCompile(`{
  "type": "object",
  "required": ["printed_name", "certify_true", "signature_data"],
  "properties": {
    "printed_name":   {"type": "string", "minLength": 1},
    "certify_true":   {"type": "boolean", "enum": [true]},
    "signature_data": {"type": "string", "minLength": 1}
  }
}`)

// jsonEscape makes a regular expression safe inside a JSON string literal.
func jsonEscape(pattern string) string {
	return strings.ReplaceAll(pattern, `\`, `\\`)
}

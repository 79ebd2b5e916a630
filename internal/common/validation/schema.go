// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const (
	CodeRequired        = "REQUIRED_FIELD_MISSING"
	CodeInvalidType     = "INVALID_TYPE"
	CodePatternMismatch = "PATTERN_MISMATCH"
	CodeInvalidEnum     = "INVALID_ENUM_VALUE"
	CodeMinLength       = "MIN_LENGTH_VIOLATION"
	CodeMaxLength       = "MAX_LENGTH_VIOLATION"
	CodeMinimum         = "MINIMUM_VIOLATION"
	CodeMaximum         = "MAXIMUM_VIOLATION"
	CodeMinItems        = "MIN_ITEMS_VIOLATION"
	CodeInvalidFormat   = "INVALID_FORMAT"
	CodeInvalidValue    = "INVALID_VALUE"
	CodeExtraField      = "EXTRA_FIELD"
)

var schemaCodes = map[string]string{
	"required":                        CodeRequired,
	"invalid_type":                    CodeInvalidType,
	"pattern":                         CodePatternMismatch,
	"enum":                            CodeInvalidEnum,
	"string_gte":                      CodeMinLength,
	"string_lte":                      CodeMaxLength,
	"number_gte":                      CodeMinimum,
	"number_gt":                       CodeMinimum,
	"number_lte":                      CodeMaximum,
	"number_lt":                       CodeMaximum,
	"array_min_items":                 CodeMinItems,
	"format":                          CodeInvalidFormat,
	"additional_property_not_allowed": CodeExtraField,
}

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// FieldErrors collects failures for one payload. A nil FieldErrors means valid.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	return strings.Join(fe.Messages(), "; ")
}

// Add appends a failure for field.
func (fe *FieldErrors) Add(field, code, message string) {
	*fe = append(*fe, FieldError{Field: field, Message: message, Code: code})
}

// Merge appends other, prefixing every field with prefix when it is non-empty.
func (fe *FieldErrors) Merge(prefix string, other FieldErrors) {
	for _, e := range other {
		if prefix != "" {
			e.Field = prefix + "." + e.Field
		}
		*fe = append(*fe, e)
	}
}

// Err returns fe as an error, or nil when empty.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// Messages returns a simple list of error messages
func (fe FieldErrors) Messages() []string {
	messages := make([]string, len(fe))
	for i, e := range fe {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return messages
}

// Has checks if validation has errors for a specific field
func (fe FieldErrors) Has(field string) bool {
	return len(fe.For(field)) > 0
}

// For returns errors for a field and anything nested under it.
func (fe FieldErrors) For(field string) []FieldError {
	var out []FieldError
	for _, e := range fe {
		if e.Field == field || strings.HasPrefix(e.Field, field+".") {
			out = append(out, e)
		}
	}
	return out
}

// Schema is a compiled JSON schema for one payload shape.
type Schema struct {
	compiled *gojsonschema.Schema
}

// Compile parses a JSON schema document.
func Compile(schemaJSON string) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

// MustCompile is Compile for package-level schemas.
func MustCompile(schemaJSON string) *Schema {
	s, err := Compile(schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks doc, which may be a struct with json tags or a decoded map.
// Errors are sorted by field for stable output.
func (s *Schema) Validate(doc interface{}) FieldErrors {
	result, err := s.compiled.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return FieldErrors{{Field: "(root)", Message: err.Error(), Code: CodeInvalidType}}
	}
	if result.Valid() {
		return nil
	}

	var out FieldErrors
	for _, re := range result.Errors() {
		out = append(out, convert(re))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func convert(re gojsonschema.ResultError) FieldError {
	field := re.Field()
	if re.Type() == "required" {
		if prop, ok := re.Details()["property"].(string); ok {
			if field == "(root)" {
				field = prop
			} else {
				field = field + "." + prop
			}
		}
	}
	code, ok := schemaCodes[re.Type()]
	if !ok {
		code = CodeInvalidValue
	}
	return FieldError{Field: field, Message: re.Description(), Code: code}
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]{10,}$`)
	urlPattern   = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)
)

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePhone validates basic phone number format
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// ValidateURL validates URL format
func ValidateURL(url string) bool {
	return urlPattern.MatchString(url)
}

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personSchema = `{
  "type": "object",
  "required": ["name", "zip"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "zip": {"type": "string", "pattern": "^\\d{5}(-\\d{4})?$"},
    "kind": {"type": "string", "enum": ["a", "b"]},
    "items": {
      "type": "array",
      "minItems": 1,
      "items": {"type": "object", "required": ["id"], "properties": {"id": {"type": "string"}}}
    }
  }
}`

type person struct {
	Name  string              `json:"name,omitempty"`
	Zip   string              `json:"zip,omitempty"`
	Kind  string              `json:"kind,omitempty"`
	Items []map[string]string `json:"items,omitempty"`
}

func TestSchema_Valid(t *testing.T) {
	s := MustCompile(personSchema)
	errs := s.Validate(person{Name: "Ann", Zip: "12345-6789", Kind: "a"})
	assert.Nil(t, errs)
	assert.NoError(t, errs.Err())
}

func TestSchema_FieldErrors(t *testing.T) {
	s := MustCompile(personSchema)
	errs := s.Validate(person{Zip: "1234", Kind: "c", Items: []map[string]string{{}}})
	require.Error(t, errs.Err())

	assert.Equal(t, CodeRequired, errs.For("name")[0].Code)
	assert.Equal(t, CodePatternMismatch, errs.For("zip")[0].Code)
	assert.Equal(t, CodeInvalidEnum, errs.For("kind")[0].Code)
	assert.True(t, errs.Has("items.0.id"))
	assert.True(t, errs.Has("items"))
}

func TestSchema_ValidatesMaps(t *testing.T) {
	s := MustCompile(personSchema)
	errs := s.Validate(map[string]interface{}{"name": "Ann", "zip": 12345})
	require.Len(t, errs, 1)
	assert.Equal(t, "zip", errs[0].Field)
	assert.Equal(t, CodeInvalidType, errs[0].Code)
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)
	assert.Panics(t, func() { MustCompile(`not json`) })
}

func TestFieldErrors_Merge(t *testing.T) {
	var errs FieldErrors
	errs.Add("email", CodeInvalidFormat, "invalid email")

	var nested FieldErrors
	nested.Add("zip", CodePatternMismatch, "invalid zip")
	errs.Merge("residences.0", nested)

	assert.Len(t, errs, 2)
	assert.True(t, errs.Has("residences.0.zip"))
	assert.Equal(t, []string{"email: invalid email", "residences.0.zip: invalid zip"}, errs.Messages())
	assert.Contains(t, errs.Error(), "invalid zip")
}

func TestFormatHelpers(t *testing.T) {
	assert.True(t, ValidateEmail("driver@example.com"))
	assert.False(t, ValidateEmail("driver@"))
	assert.True(t, ValidatePhone("(555) 123-4567"))
	assert.False(t, ValidatePhone("123"))
	assert.True(t, ValidateURL("https://cdn.example.com/front.jpg"))
	assert.False(t, ValidateURL("front.jpg"))
}

package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a compiled JSON schema.
type Schema struct {
	schema *gojsonschema.Schema
}

// ValidationError describes one schema violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// SchemaError is returned when a document fails validation.
type SchemaError struct {
	Errors []ValidationError
}

func (e *SchemaError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Field + ": " + ve.Message
	}
	return "schema validation failed: " + strings.Join(msgs, "; ")
}

// Compile parses a JSON schema document.
func Compile(schemaJSON string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// MustCompile is Compile for package-level schemas.
func MustCompile(schemaJSON string) *Schema {
	s, err := Compile(schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// ValidateJSON validates a raw JSON document.
func (s *Schema) ValidateJSON(doc []byte) error {
	return s.validate(gojsonschema.NewBytesLoader(doc))
}

// ValidateValue validates an already-decoded Go value.
func (s *Schema) ValidateValue(doc interface{}) error {
	return s.validate(gojsonschema.NewGoLoader(doc))
}

func (s *Schema) validate(loader gojsonschema.JSONLoader) error {
	result, err := s.schema.Validate(loader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]ValidationError, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = ValidationError{Field: desc.Field(), Message: desc.Description()}
	}
	return &SchemaError{Errors: errs}
}

// RequirementSchema is the shape the requirement extractor asks the model for.
// Numeric fields also accept numeric strings ("3", "1000000"); models emit
// both.
var RequirementSchema = MustCompile(`{
	"type": "object",
	"definitions": {
		"amount": {
			"type": ["number", "string", "null"],
			"minimum": 0,
			"pattern": "^\\s*(\\d+(\\.\\d+)?)?\\s*$"
		}
	},
	"properties": {
		"budget": {
			"type": ["object", "null"],
			"properties": {
				"min": {"$ref": "#/definitions/amount"},
				"max": {"$ref": "#/definitions/amount"},
				"currency": {"type": ["string", "null"]}
			}
		},
		"location": {"type": ["string", "null"]},
		"propertyType": {"type": ["string", "null"]},
		"bedrooms": {"$ref": "#/definitions/amount"},
		"features": {"type": ["array", "null"], "items": {"type": "string"}}
	}
}`)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]{10,}$`)
)

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

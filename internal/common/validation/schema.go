package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator checks documents against one compiled JSON schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles schemaJSON.
func NewValidator(schemaJSON []byte) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// ValidateInput validates an already decoded document.
func (v *Validator) ValidateInput(input map[string]interface{}) *ValidationResult {
	return v.validate(gojsonschema.NewGoLoader(input))
}

// ValidateJSON validates raw JSON. Undecodable input yields a single
// INVALID_JSON error rather than a Go error.
func (v *Validator) ValidateJSON(doc []byte) *ValidationResult {
	return v.validate(gojsonschema.NewBytesLoader(doc))
}

func (v *Validator) validate(loader gojsonschema.JSONLoader) *ValidationResult {
	result, err := v.schema.Validate(loader)
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: err.Error(),
				Code:    "INVALID_JSON",
			}},
		}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		errs = append(errs, toValidationError(re))
	}
	return &ValidationResult{Valid: result.Valid(), Errors: errs}
}

func toValidationError(re gojsonschema.ResultError) ValidationError {
	field := re.Field()
	// Required-property errors are reported against the parent object.
	if re.Type() == "required" {
		if prop, ok := re.Details()["property"].(string); ok {
			if field == "(root)" {
				field = prop
			} else {
				field = field + "." + prop
			}
		}
	}
	return ValidationError{
		Field:   field,
		Message: re.Description(),
		Code:    strings.ToUpper(re.Type()),
	}
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors for a specific field
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") || strings.HasPrefix(err.Field, field+"[") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}

// MissingFields returns the string fields of input that are absent or empty.
func MissingFields(input map[string]string, required ...string) []string {
	var missing []string
	for _, name := range required {
		if strings.TrimSpace(input[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

package validation

import (
	"fmt"
	"regexp"
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

// codes maps gojsonschema error types onto the worker error vocabulary.
var codes = map[string]string{
	"required":                        "REQUIRED_FIELD_MISSING",
	"additional_property_not_allowed": "EXTRA_FIELD",
	"invalid_type":                    "INVALID_TYPE",
	"string_gte":                      "MIN_LENGTH_VIOLATION",
	"string_lte":                      "MAX_LENGTH_VIOLATION",
	"pattern":                         "PATTERN_MISMATCH",
	"enum":                            "INVALID_ENUM_VALUE",
	"number_gte":                      "MINIMUM_VIOLATION",
	"number_lte":                      "MAXIMUM_VIOLATION",
}

// ValidateInput checks job variables against a JSON schema document. A schema
// that cannot be compiled is reported as a single SCHEMA_INVALID error.
func ValidateInput(input map[string]interface{}, schema map[string]interface{}) *ValidationResult {
	if len(schema) == 0 {
		return &ValidationResult{Valid: true}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(input))
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(schema)",
			Message: err.Error(),
			Code:    "SCHEMA_INVALID",
		}}}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		field := desc.Field()
		// required and additional-property errors sit on the parent object
		if prop, ok := desc.Details()["property"].(string); ok {
			field = joinField(field, prop)
		}

		code, ok := codes[desc.Type()]
		if !ok {
			code = strings.ToUpper(desc.Type())
		}
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Message: desc.Description(),
			Code:    code,
		})
	}
	return out
}

func joinField(parent, prop string) string {
	if parent == "" || parent == "(root)" {
		return prop
	}
	return parent + "." + prop
}

var activityNaming = regexp.MustCompile(`^[a-z]+\.[a-z]+\.[a-z]+$`)

// ValidateActivityNaming validates activity ID follows naming convention
func ValidateActivityNaming(activityID string) error {
	if !activityNaming.MatchString(activityID) {
		return fmt.Errorf("activity ID %q must follow format: domain.subdomain.action (e.g., chat.message.interpret)", activityID)
	}
	return nil
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
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}

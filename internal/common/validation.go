package common

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Positive requires an int greater than zero.
func Positive(fieldName string, value interface{}) *ValidationError {
	if n, ok := value.(int); ok && n <= 0 {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be positive"}
	}
	return nil
}

// AtLeast requires an int no smaller than lower.
func AtLeast(lower int) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		if n, ok := value.(int); ok && n < lower {
			return &ValidationError{Field: fieldName, Value: value, Message: fmt.Sprintf("must be at least %d", lower)}
		}
		return nil
	}
}

// UnitInterval requires a float in (0, 1].
func UnitInterval(fieldName string, value interface{}) *ValidationError {
	if f, ok := value.(float64); ok && (f <= 0 || f > 1) {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be in (0, 1]"}
	}
	return nil
}

// Percentage requires a float in [0, 100].
func Percentage(fieldName string, value interface{}) *ValidationError {
	if f, ok := value.(float64); ok && (f < 0 || f > 100) {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be in [0, 100]"}
	}
	return nil
}

// NonEmpty requires a non-empty string slice.
func NonEmpty(fieldName string, value interface{}) *ValidationError {
	if s, ok := value.([]string); ok && len(s) == 0 {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	return nil
}

// SingleRune requires a string of exactly one character.
func SingleRune(fieldName string, value interface{}) *ValidationError {
	if s, ok := value.(string); ok && utf8.RuneCountInString(s) != 1 {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a single character"}
	}
	return nil
}

// OneOf requires a string from the allowed set (case-insensitive).
func OneOf(allowed ...string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		s, ok := value.(string)
		if !ok {
			return nil
		}
		for _, a := range allowed {
			if strings.EqualFold(s, a) {
				return nil
			}
		}
		return &ValidationError{
			Field:   fieldName,
			Value:   value,
			Message: fmt.Sprintf("must be one of %s", strings.Join(allowed, ", ")),
		}
	}
}

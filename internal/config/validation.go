package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value, entityType string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("is required for %s", entityType),
		}
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// Validate checks the configuration for values the engine cannot work with.
func (c ForemanConfig) Validate() error {
	var errs ValidationErrors

	transports := []string{MCPTransportStreamableHTTP, MCPTransportSSE, MCPTransportStdio}
	if err := ValidateOneOf("oracle.transport", c.Oracle.Transport, transports); err != nil {
		errs = append(errs, err.(ValidationError))
	}
	if c.Oracle.Transport == MCPTransportStdio && c.Oracle.Command == "" {
		errs.Add("oracle.command", "is required for the stdio transport")
	}
	if c.Oracle.Reformulations < 1 {
		errs.Add("oracle.reformulations", "must be at least 1", c.Oracle.Reformulations)
	}
	if c.Deploy.PollIntervalSeconds < 1 {
		errs.Add("deploy.pollIntervalSeconds", "must be at least 1", c.Deploy.PollIntervalSeconds)
	}
	if c.Deploy.MaxPollAttempts < 1 {
		errs.Add("deploy.maxPollAttempts", "must be at least 1", c.Deploy.MaxPollAttempts)
	}
	if c.Deploy.MaxAttempts < 1 {
		errs.Add("deploy.maxAttempts", "must be at least 1", c.Deploy.MaxAttempts)
	}
	if c.Optimize.MaxIterations < 1 {
		errs.Add("optimize.maxIterations", "must be at least 1", c.Optimize.MaxIterations)
	}
	if c.Build.MaxAttempts < 1 {
		errs.Add("build.maxAttempts", "must be at least 1", c.Build.MaxAttempts)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

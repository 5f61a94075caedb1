package domain

import "context"

// ValidationResult is the outcome of validating one step.
// A result carrying field errors is never valid.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Valid returns a passing result.
func Valid() ValidationResult {
	return ValidationResult{Valid: true}
}

// Invalid returns a failing result with the given field errors.
func Invalid(errs map[string]string) ValidationResult {
	if errs == nil {
		errs = map[string]string{}
	}
	return ValidationResult{Valid: false, Errors: errs}
}

// OK reports whether the result passed and carries no field errors.
func (r ValidationResult) OK() bool {
	return r.Valid && len(r.Errors) == 0
}

// Validator checks the data of a single step.
//
// Implementations may be pure or may perform remote I/O (uniqueness checks).
// A returned error means the check itself could not run and is never
// confused with invalid data.
type Validator interface {
	Validate(ctx context.Context, data StepData) (ValidationResult, error)
}

// StepDefinition describes one ordered step of an intake.
type StepDefinition struct {
	ID        string
	Order     int
	Title     string
	Required  bool
	Validator Validator
}

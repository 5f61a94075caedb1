package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrConcurrentOperation is returned when an operation starts while another
// validation, save or submit is still in flight for the same session.
var ErrConcurrentOperation = errors.New("operation already in progress")

// ErrSessionTerminated is returned for mutating calls on a submitted session.
var ErrSessionTerminated = errors.New("session already submitted")

// ErrUnknownStep is returned when a step id is not part of the registry.
var ErrUnknownStep = errors.New("unknown step")

// ErrDraftNotFound is returned when a draft ID cannot be found in the store.
var ErrDraftNotFound = errors.New("draft not found")

// ErrSessionNotFound is returned when a session ID is not hosted by the manager.
var ErrSessionNotFound = errors.New("session not found")

// ErrGatewayRejected marks a submission refused by the system of record
// (invalid or duplicate data).
var ErrGatewayRejected = errors.New("submission rejected")

// ErrGatewayUnavailable marks a submission that could not reach the system of record.
var ErrGatewayUnavailable = errors.New("submission gateway unavailable")

// ErrForbidden is returned when the caller lacks the required capability.
var ErrForbidden = errors.New("forbidden")

// ValidationError carries the field errors of a step that failed validation.
type ValidationError struct {
	StepID string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("step %q is invalid: %s", e.StepID, strings.Join(parts, "; "))
}

// ValidationInfrastructureError means a validator could not complete its check.
type ValidationInfrastructureError struct {
	StepID string
	Err    error
}

func (e *ValidationInfrastructureError) Error() string {
	return fmt.Sprintf("validating step %q: %v", e.StepID, e.Err)
}

func (e *ValidationInfrastructureError) Unwrap() error { return e.Err }

// PersistenceError means the draft store failed to save or discard a draft.
type PersistenceError struct {
	Op      string
	DraftID string
	Err     error
}

func (e *PersistenceError) Error() string {
	if e.DraftID == "" {
		return fmt.Sprintf("draft %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("draft %s %s: %v", e.Op, e.DraftID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IncompleteWorkflowError is returned when submission is attempted before
// every required step was validated in this session.
type IncompleteWorkflowError struct {
	Missing    []string
	NotOnFinal bool
}

func (e *IncompleteWorkflowError) Error() string {
	if len(e.Missing) == 0 && e.NotOnFinal {
		return "workflow incomplete: not positioned on the final step"
	}
	return fmt.Sprintf("workflow incomplete: steps not validated: %s", strings.Join(e.Missing, ", "))
}

// SubmissionKind classifies a gateway failure.
type SubmissionKind string

const (
	SubmissionRejected    SubmissionKind = "rejected"
	SubmissionUnavailable SubmissionKind = "unavailable"
	SubmissionUnknown     SubmissionKind = "unknown"
)

// SubmissionError wraps a failure reported by the Submission Gateway.
type SubmissionError struct {
	Kind SubmissionKind
	Err  error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed (%s): %v", e.Kind, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// ClassifySubmission derives the kind of a gateway error.
func ClassifySubmission(err error) SubmissionKind {
	switch {
	case errors.Is(err, ErrGatewayRejected):
		return SubmissionRejected
	case errors.Is(err, ErrGatewayUnavailable):
		return SubmissionUnavailable
	default:
		return SubmissionUnknown
	}
}

package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepEnter     EventType = "step_enter"
	EventValidation    EventType = "validation"
	EventDraftSaved    EventType = "draft_saved"
	EventDraftDiscard  EventType = "draft_discarded"
	EventSubmitted     EventType = "submitted"
	EventSubmitFailure EventType = "submit_failed"
	EventSnapshot      EventType = "snapshot"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// StepEvent is emitted when a session lands on a step.
type StepEvent struct {
	EventBase
	StepID string `json:"step_id"`
	Index  int    `json:"index"`
}

// ValidationEvent reports the outcome of one gate run.
type ValidationEvent struct {
	EventBase
	StepID   string        `json:"step_id"`
	Valid    bool          `json:"valid"`
	Failed   bool          `json:"failed,omitempty"` // infrastructure failure
	Duration time.Duration `json:"duration"`
}

// DraftEvent reports a draft save or discard.
type DraftEvent struct {
	EventBase
	DraftID  string        `json:"draft_id"`
	Step     int           `json:"step"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// SubmitEvent reports a gateway call.
type SubmitEvent struct {
	EventBase
	RecordID string         `json:"record_id,omitempty"`
	Kind     SubmissionKind `json:"kind,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStepEnter      func(context.Context, *StepEvent)
	OnValidation     func(context.Context, *ValidationEvent)
	OnDraftSaved     func(context.Context, *DraftEvent)
	OnDraftDiscarded func(context.Context, *DraftEvent)
	OnSubmit         func(context.Context, *SubmitEvent)
}

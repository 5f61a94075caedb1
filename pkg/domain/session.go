package domain

// Status is the lifecycle position of a workflow session.
type Status string

const (
	StatusEditing    Status = "editing"
	StatusSubmitting Status = "submitting"
	StatusSubmitted  Status = "submitted" // terminal
)

// Snapshot is a read-only view of a workflow session.
type Snapshot struct {
	SessionID        string            `json:"session_id"`
	CurrentStepIndex int               `json:"current_step_index"`
	CurrentStepID    string            `json:"current_step_id"`
	TotalSteps       int               `json:"total_steps"`
	Status           Status            `json:"status"`
	IsLoading        bool              `json:"is_loading"`
	LastError        string            `json:"last_error,omitempty"`
	DraftID          string            `json:"draft_id,omitempty"`
	RecordID         string            `json:"record_id,omitempty"`
	Validated        []string          `json:"validated"`
	FieldErrors      map[string]string `json:"field_errors,omitempty"`
}

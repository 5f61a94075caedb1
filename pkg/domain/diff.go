package domain

import (
	"reflect"
	"slices"
	"time"
)

// SnapshotDiff is the change between two snapshots of the same session,
// sent to stream subscribers as a partial update.
type SnapshotDiff struct {
	EventBase

	CurrentStepIndex *int    `json:"current_step_index,omitempty"`
	CurrentStepID    *string `json:"current_step_id,omitempty"`
	Status           *Status `json:"status,omitempty"`
	DraftID          *string `json:"draft_id,omitempty"`
	RecordID         *string `json:"record_id,omitempty"`
	LastError        *string `json:"last_error,omitempty"`

	Validated *ValidatedDelta `json:"validated,omitempty"`

	// FieldErrors holds changed entries; a cleared field maps to nil.
	FieldErrors map[string]any `json:"field_errors,omitempty"`
}

// ValidatedDelta lists steps that gained or lost their validated mark.
type ValidatedDelta struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// Diff returns what changed from old to cur. A nil old yields the full
// snapshot. It returns nil when nothing changed.
func Diff(old *Snapshot, cur Snapshot, at time.Time) *SnapshotDiff {
	d := &SnapshotDiff{
		EventBase: EventBase{Timestamp: at, Type: EventSnapshot, SessionID: cur.SessionID},
	}
	if old == nil {
		old = &Snapshot{CurrentStepIndex: -1}
	}

	if old.CurrentStepIndex != cur.CurrentStepIndex {
		d.CurrentStepIndex = &cur.CurrentStepIndex
	}
	if old.CurrentStepID != cur.CurrentStepID {
		d.CurrentStepID = &cur.CurrentStepID
	}
	if old.Status != cur.Status {
		d.Status = &cur.Status
	}
	if old.DraftID != cur.DraftID {
		d.DraftID = &cur.DraftID
	}
	if old.RecordID != cur.RecordID {
		d.RecordID = &cur.RecordID
	}
	if old.LastError != cur.LastError {
		d.LastError = &cur.LastError
	}
	d.Validated = diffValidated(old.Validated, cur.Validated)
	d.FieldErrors = diffFieldErrors(old.FieldErrors, cur.FieldErrors)

	if d.IsEmpty() {
		return nil
	}
	return d
}

func diffValidated(old, cur []string) *ValidatedDelta {
	var delta ValidatedDelta
	for _, id := range cur {
		if !slices.Contains(old, id) {
			delta.Added = append(delta.Added, id)
		}
	}
	for _, id := range old {
		if !slices.Contains(cur, id) {
			delta.Removed = append(delta.Removed, id)
		}
	}
	if len(delta.Added) == 0 && len(delta.Removed) == 0 {
		return nil
	}
	return &delta
}

func diffFieldErrors(old, cur map[string]string) map[string]any {
	delta := make(map[string]any)
	for k, v := range cur {
		if prev, ok := old[k]; !ok || !reflect.DeepEqual(prev, v) {
			delta[k] = v
		}
	}
	for k := range old {
		if _, ok := cur[k]; !ok {
			delta[k] = nil
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty reports whether the diff carries no change.
func (d *SnapshotDiff) IsEmpty() bool {
	return d.CurrentStepIndex == nil &&
		d.CurrentStepID == nil &&
		d.Status == nil &&
		d.DraftID == nil &&
		d.RecordID == nil &&
		d.LastError == nil &&
		d.Validated == nil &&
		len(d.FieldErrors) == 0
}

package domain

import "time"

// DraftRecord is the persisted snapshot of an unfinished intake.
type DraftRecord struct {
	ID string `json:"draft_id"`
	// LastSavedStep is the step index the session resumes at.
	LastSavedStep int       `json:"last_saved_step"`
	Payload       FormState `json:"payload"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the record.
func (d *DraftRecord) Clone() *DraftRecord {
	if d == nil {
		return nil
	}
	out := *d
	out.Payload = d.Payload.Clone()
	return &out
}

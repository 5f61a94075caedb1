package domain

// StepData is the opaque field bag collected by one step.
type StepData map[string]any

// FormState maps step ids to the data collected so far.
type FormState map[string]StepData

// Clone returns a deep copy of the step data.
func (d StepData) Clone() StepData {
	if d == nil {
		return nil
	}
	out := make(StepData, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

// Clone returns a deep copy of the form.
func (f FormState) Clone() FormState {
	if f == nil {
		return nil
	}
	out := make(FormState, len(f))
	for id, data := range f {
		out[id] = data.Clone()
	}
	return out
}

// Step returns the slice for id, never nil.
func (f FormState) Step(id string) StepData {
	if d, ok := f[id]; ok && d != nil {
		return d
	}
	return StepData{}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case StepData:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, inner := range t {
			out[i], _ = cloneValue(inner).(map[string]any)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

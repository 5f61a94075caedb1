package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/intake/pkg/domain"
)

// ErrEmpty is returned when a registry is built with no steps.
var ErrEmpty = errors.New("registry: no steps defined")

// Registry is the ordered list of step definitions. It is immutable after New.
type Registry struct {
	steps []domain.StepDefinition
	index map[string]int
}

// New validates and orders steps.
//
// When every step has Order 0 the argument order is used. Otherwise the
// Order values must form the contiguous range 0..n-1. IDs must be non-empty
// and unique.
func New(steps ...domain.StepDefinition) (*Registry, error) {
	if len(steps) == 0 {
		return nil, ErrEmpty
	}

	ordered := make([]domain.StepDefinition, len(steps))
	copy(ordered, steps)

	explicit := false
	for _, s := range ordered {
		if s.Order != 0 {
			explicit = true
			break
		}
	}

	if explicit {
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })
		for i, s := range ordered {
			if s.Order != i {
				return nil, fmt.Errorf("registry: step %q has order %d, expected %d (orders must be contiguous from 0)", s.ID, s.Order, i)
			}
		}
	} else {
		for i := range ordered {
			ordered[i].Order = i
		}
	}

	index := make(map[string]int, len(ordered))
	for i, s := range ordered {
		if s.ID == "" {
			return nil, fmt.Errorf("registry: step at position %d has an empty id", i)
		}
		if _, dup := index[s.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate step id %q", s.ID)
		}
		index[s.ID] = i
	}

	return &Registry{steps: ordered, index: index}, nil
}

// Len returns the number of steps.
func (r *Registry) Len() int { return len(r.steps) }

// At returns the step at position i.
func (r *Registry) At(i int) domain.StepDefinition { return r.steps[i] }

// Last returns the index of the final step.
func (r *Registry) Last() int { return len(r.steps) - 1 }

// Lookup returns the step with the given id.
func (r *Registry) Lookup(id string) (domain.StepDefinition, bool) {
	i, ok := r.index[id]
	if !ok {
		return domain.StepDefinition{}, false
	}
	return r.steps[i], true
}

// Index returns the position of id, or -1.
func (r *Registry) Index(id string) int {
	if i, ok := r.index[id]; ok {
		return i
	}
	return -1
}

// Steps returns a copy of the ordered definitions.
func (r *Registry) Steps() []domain.StepDefinition {
	out := make([]domain.StepDefinition, len(r.steps))
	copy(out, r.steps)
	return out
}

// IDs returns the step ids in order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.steps))
	for i, s := range r.steps {
		out[i] = s.ID
	}
	return out
}

// Required returns the ids of required steps in order.
func (r *Registry) Required() []string {
	var out []string
	for _, s := range r.steps {
		if s.Required {
			out = append(out, s.ID)
		}
	}
	return out
}

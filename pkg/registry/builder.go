package registry

import "github.com/aretw0/intake/pkg/domain"

// Builder assembles a registry step by step, in call order.
type Builder struct {
	steps []*StepBuilder
	byID  map[string]*StepBuilder
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{byID: make(map[string]*StepBuilder)}
}

// Add appends a step. If the step already exists, it returns the existing builder.
// Steps are required unless marked Optional.
func (b *Builder) Add(id string) *StepBuilder {
	if sb, ok := b.byID[id]; ok {
		return sb
	}
	sb := &StepBuilder{step: domain.StepDefinition{ID: id, Required: true}}
	b.steps = append(b.steps, sb)
	b.byID[id] = sb
	return sb
}

// Build compiles the steps into a Registry.
func (b *Builder) Build() (*Registry, error) {
	defs := make([]domain.StepDefinition, 0, len(b.steps))
	for _, sb := range b.steps {
		defs = append(defs, sb.step)
	}
	return New(defs...)
}

// StepBuilder provides a fluent API for configuring a step.
type StepBuilder struct {
	step domain.StepDefinition
}

// Title sets the display title.
func (s *StepBuilder) Title(title string) *StepBuilder {
	s.step.Title = title
	return s
}

// Optional marks the step as not required for submission.
func (s *StepBuilder) Optional() *StepBuilder {
	s.step.Required = false
	return s
}

// Validate sets the step's validator.
func (s *StepBuilder) Validate(v domain.Validator) *StepBuilder {
	s.step.Validator = v
	return s
}

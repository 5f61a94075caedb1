package validation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
)

// Gate runs the validator attached to a step.
type Gate struct {
	logger *slog.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithLogger sets the gate logger.
func WithLogger(l *slog.Logger) GateOption {
	return func(g *Gate) { g.logger = l }
}

// NewGate creates a gate.
func NewGate(opts ...GateOption) *Gate {
	g := &Gate{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run validates data against step. A step without a validator always passes.
func (g *Gate) Run(ctx context.Context, step domain.StepDefinition, data domain.StepData) (domain.ValidationResult, error) {
	if step.Validator == nil {
		return domain.Valid(), nil
	}
	if data == nil {
		data = domain.StepData{}
	}

	start := time.Now()
	res, err := step.Validator.Validate(ctx, data)
	if err != nil {
		var infra *domain.ValidationInfrastructureError
		if !errors.As(err, &infra) {
			infra = &domain.ValidationInfrastructureError{StepID: step.ID, Err: err}
		}
		g.logger.Warn("step validation could not complete", "step", step.ID, "err", err)
		return domain.ValidationResult{}, infra
	}

	if len(res.Errors) > 0 {
		res.Valid = false
	}
	g.logger.Debug("step validated", "step", step.ID, "valid", res.Valid, "duration", time.Since(start))
	return res, nil
}

package observability

import (
	"context"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the intake collectors.
type Metrics struct {
	StepEnters         *prometheus.CounterVec
	Validations        *prometheus.CounterVec
	ValidationDuration *prometheus.HistogramVec
	Drafts             *prometheus.CounterVec
	DraftDuration      *prometheus.HistogramVec
	Submissions        *prometheus.CounterVec
	SubmitDuration     prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StepEnters: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_step_enter_total",
				Help: "Total number of times a session landed on a step",
			},
			[]string{"step"},
		),
		Validations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_validations_total",
				Help: "Step validations by outcome (valid, invalid, error)",
			},
			[]string{"step", "result"},
		),
		ValidationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intake_validation_duration_seconds",
				Help:    "Duration of step validations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"step"},
		),
		Drafts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_drafts_total",
				Help: "Draft store operations by kind (save, discard) and result",
			},
			[]string{"op", "result"},
		),
		DraftDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intake_draft_duration_seconds",
				Help:    "Duration of draft store operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_submissions_total",
				Help: "Gateway submissions by result (committed, rejected, unavailable, unknown)",
			},
			[]string{"result"},
		),
		SubmitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "intake_submit_duration_seconds",
				Help:    "Duration of gateway submissions",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.StepEnters, m.Validations, m.ValidationDuration,
			m.Drafts, m.DraftDuration, m.Submissions, m.SubmitDuration)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) {
			m.StepEnters.WithLabelValues(e.StepID).Inc()
		},
		OnValidation: func(_ context.Context, e *domain.ValidationEvent) {
			result := "invalid"
			switch {
			case e.Failed:
				result = "error"
			case e.Valid:
				result = "valid"
			}
			m.Validations.WithLabelValues(e.StepID, result).Inc()
			m.ValidationDuration.WithLabelValues(e.StepID).Observe(e.Duration.Seconds())
		},
		OnDraftSaved: func(_ context.Context, e *domain.DraftEvent) {
			m.draft("save", e)
		},
		OnDraftDiscarded: func(_ context.Context, e *domain.DraftEvent) {
			m.draft("discard", e)
		},
		OnSubmit: func(_ context.Context, e *domain.SubmitEvent) {
			result := "committed"
			if e.Kind != "" {
				result = string(e.Kind)
			}
			m.Submissions.WithLabelValues(result).Inc()
			m.SubmitDuration.Observe(e.Duration.Seconds())
		},
	}
}

func (m *Metrics) draft(op string, e *domain.DraftEvent) {
	result := "ok"
	if e.Err != nil {
		result = "error"
	}
	m.Drafts.WithLabelValues(op, result).Inc()
	m.DraftDuration.WithLabelValues(op).Observe(e.Duration.Seconds())
}

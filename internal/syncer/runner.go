package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cdd-platform/cdd/internal/adaptor"
	"github.com/cdd-platform/cdd/internal/config"
	"github.com/cdd-platform/cdd/internal/project"
)

// ClientFactory builds the client for one configured adaptor.
type ClientFactory func(svc config.Service) adaptor.Client

// Outcome is the result of one adaptor's pass.
type Outcome struct {
	Adaptor string `json:"adaptor"`
	Counts
	Duration time.Duration `json:"duration"`

	// Plan is only kept for dry runs.
	Plan *Plan `json:"plan,omitempty"`

	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

// Report aggregates the outcomes of one run, in declared adaptor order.
type Report struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	DryRun    bool          `json:"dry_run"`
	Outcomes  []Outcome     `json:"outcomes"`
}

// Err joins the failures of every adaptor, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}

// Failed returns the number of adaptors whose pass failed.
func (r *Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil || o.Error != "" {
			n++
		}
	}
	return n
}

// Runner executes one independent pass per adaptor.
type Runner struct {
	engine      *Engine
	factory     ClientFactory
	concurrency int
	dryRun      bool
	logger      zerolog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithConcurrency bounds how many adaptors run at once.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithDryRun makes the runner plan without applying.
func WithDryRun(dryRun bool) RunnerOption {
	return func(r *Runner) {
		r.dryRun = dryRun
	}
}

// WithLogger sets the runner's logger.
func WithLogger(logger zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner that drives engine through clients built by factory.
func NewRunner(engine *Engine, factory ClientFactory, opts ...RunnerOption) *Runner {
	r := &Runner{
		engine:      engine,
		factory:     factory,
		concurrency: 1,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str("component", "runner").Logger()
	return r
}

// Run synchronizes every service with spec. A failing adaptor never stops
// the others; failures are collected in the report.
func (r *Runner) Run(ctx context.Context, spec *project.Project, services []config.Service) *Report {
	report := &Report{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		DryRun:    r.dryRun,
		Outcomes:  make([]Outcome, len(services)),
	}

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i, svc := range services {
		g.Go(func() error {
			report.Outcomes[i] = r.pass(ctx, spec, svc)
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(report.StartedAt)
	return report
}

func (r *Runner) pass(ctx context.Context, spec *project.Project, svc config.Service) Outcome {
	start := time.Now()
	outcome := Outcome{Adaptor: svc.Name}
	client := r.factory(svc)

	if r.dryRun {
		live, err := r.engine.Live(ctx, client)
		if err == nil {
			outcome.Plan = r.engine.Plan(spec, live)
			outcome.Counts = outcome.Plan.Summary
		}
		outcome.Err = err
	} else {
		outcome.Counts, outcome.Err = r.engine.Sync(ctx, spec, client)
	}

	outcome.Duration = time.Since(start)
	if outcome.Err != nil {
		outcome.Error = outcome.Err.Error()
		r.logger.Error().Err(outcome.Err).Str("adaptor", svc.Name).Msg("synchronization failed")
	} else {
		r.logger.Info().
			Str("adaptor", svc.Name).
			Int("deleted", outcome.Deleted).
			Int("inserted", outcome.Inserted).
			Int("updated", outcome.Updated).
			Dur("duration", outcome.Duration).
			Msg("synchronized")
	}
	return outcome
}

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Phase names a schema lifecycle pass.
type Phase string

const (
	PhaseCreate Phase = "create"
	PhaseAlter  Phase = "alter"
)

// TableResult is the outcome of one table's hook.
type TableResult struct {
	Table    string
	Err      error
	Duration time.Duration
}

// Report aggregates one lifecycle pass over the registry.
type Report struct {
	RunID   uuid.UUID
	Phase   Phase
	Results []TableResult
}

// Failed returns the results whose hook returned an error.
func (r *Report) Failed() []TableResult {
	var failed []TableResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err joins every per-table failure, or returns nil when all succeeded.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", res.Table, res.Err))
	}
	return errors.Join(errs...)
}

// RunLifecycle invokes the phase's hook on every registered binding in
// registration order. A failing (or panicking) hook is recorded and the pass
// continues with the next table.
func (m *Manager) RunLifecycle(ctx context.Context, phase Phase) (*Report, error) {
	switch phase {
	case PhaseCreate, PhaseAlter:
	default:
		return nil, invalidArgument("", "unknown lifecycle phase %q", phase)
	}

	report := &Report{RunID: uuid.New(), Phase: phase}
	logger := log.With().Str("run_id", report.RunID.String()).Str("phase", string(phase)).Logger()
	logger.Info().Int("tables", len(m.Tables())).Msg("Running schema lifecycle")

	for _, b := range m.bindings() {
		start := time.Now()
		err := runHook(ctx, b, phase)
		res := TableResult{Table: b.TableName(), Err: err, Duration: time.Since(start)}
		report.Results = append(report.Results, res)

		if err != nil {
			logger.Error().Err(err).Str("table", res.Table).Msg("Schema hook failed")
			continue
		}
		logger.Info().Str("table", res.Table).Dur("duration", res.Duration).Msg("Schema hook applied")
	}

	logger.Info().Int("failed", len(report.Failed())).Msg("Schema lifecycle complete")
	return report, nil
}

func runHook(ctx context.Context, b Binding, phase Phase) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s hook panicked: %v", phase, r)
		}
	}()

	if phase == PhaseCreate {
		return b.Create(ctx)
	}
	return b.Alter(ctx)
}

// Runner is the lifecycle entry point used by the command line.
type Runner struct {
	m *Manager
}

// NewRunner returns a Runner over m's registry.
func NewRunner(m *Manager) *Runner {
	return &Runner{m: m}
}

// CreateAll runs every registered create hook.
func (r *Runner) CreateAll(ctx context.Context) (*Report, error) {
	return r.m.RunLifecycle(ctx, PhaseCreate)
}

// AlterAll runs every registered alter hook.
func (r *Runner) AlterAll(ctx context.Context) (*Report, error) {
	return r.m.RunLifecycle(ctx, PhaseAlter)
}

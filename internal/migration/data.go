package migration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ajitpratap0/graphschema/internal/metrics"
	"github.com/ajitpratap0/graphschema/internal/store"
)

// Migration is a one-shot data transformation applied after the schema is
// in place. Retrying or skipping on internal failures is up to the unit; an
// error it returns aborts the data phase.
type Migration interface {
	Name() string
	Apply(ctx context.Context, sess store.Session) error
}

// Func adapts a function to Migration.
type Func struct {
	ID string
	Fn func(ctx context.Context, sess store.Session) error
}

// Name returns the unit id.
func (f Func) Name() string { return f.ID }

// Apply calls Fn.
func (f Func) Apply(ctx context.Context, sess store.Session) error { return f.Fn(ctx, sess) }

// Report summarizes a data migration run.
type Report struct {
	Applied []string `json:"applied"`
}

// Runner applies migration units in order.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a new migration runner.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run applies units in list order. An empty list succeeds without touching
// sess, which may then be nil.
func (r *Runner) Run(ctx context.Context, sess store.Session, units []Migration) (*Report, error) {
	report := &Report{}
	if len(units) == 0 {
		r.logger.Info("no data migrations defined")
		return report, nil
	}

	r.logger.Info("performing data migrations", "count", len(units))
	for i, u := range units {
		name := u.Name()
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		if err := u.Apply(ctx, sess); err != nil {
			return report, fmt.Errorf("data migration %s: %w", name, err)
		}
		r.logger.Info("data migration applied", "migration", name)
		report.Applied = append(report.Applied, name)
		metrics.Inc(metrics.MigrationsApplied)
	}
	return report, nil
}

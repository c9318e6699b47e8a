// Package enforcer runs the schema reconciliation phases in order: scan and
// weigh the declared model, reconcile classes and properties, reconcile
// indexes (rebuilding them on a fresh store), then apply data migrations.
package enforcer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/graphschema/internal/metrics"
	"github.com/ajitpratap0/graphschema/internal/migration"
	"github.com/ajitpratap0/graphschema/internal/models"
	"github.com/ajitpratap0/graphschema/internal/reconcile"
	"github.com/ajitpratap0/graphschema/internal/scanner"
	"github.com/ajitpratap0/graphschema/internal/store"
	"github.com/ajitpratap0/graphschema/pkg/schema"
)

// ErrSessionsForbidden is returned by any phase that needs a session when
// the run context forbids opening one.
var ErrSessionsForbidden = errors.New("enforcer: store sessions are forbidden in this context")

// RunContext carries the per-run state shared by all phases.
type RunContext struct {
	ID        uuid.UUID
	Namespace string

	// StoreCreated is set when bootstrap created the target store; it
	// enables the full index rebuild.
	StoreCreated bool

	// SessionsForbidden makes every phase that needs a session fail.
	SessionsForbidden bool
}

// NewRunContext creates a run context with a fresh run id.
func NewRunContext(namespace string, storeCreated bool) *RunContext {
	return &RunContext{ID: uuid.New(), Namespace: namespace, StoreCreated: storeCreated}
}

// Report aggregates the outcome of every phase of a run.
type Report struct {
	RunID    string                  `json:"run_id"`
	Entities int                     `json:"entities"`
	Schema   *reconcile.SchemaReport `json:"schema,omitempty"`
	Indexes  *reconcile.IndexReport  `json:"indexes,omitempty"`
	Rebuilt  bool                    `json:"rebuilt"`
	Data     *migration.Report       `json:"data,omitempty"`
	Duration time.Duration           `json:"-"`
}

// MarshalJSON renders Duration as a Go duration string.
func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	return json.Marshal(struct {
		plain
		Duration string `json:"duration"`
	}{plain(r), r.Duration.String()})
}

// Enforcer orchestrates the phases against one provider.
type Enforcer struct {
	registry *schema.Registry
	provider store.Provider
	logger   *slog.Logger

	// mu serializes ScanSchema and ValidateSchema, which share model.
	mu    sync.Mutex
	model []*models.Entity
}

// New creates an enforcer.
func New(registry *schema.Registry, provider store.Provider, logger *slog.Logger) *Enforcer {
	return &Enforcer{registry: registry, provider: provider, logger: logger}
}

func (e *Enforcer) phaseLogger(rc *RunContext, phase string) *slog.Logger {
	return e.logger.With("run_id", rc.ID.String(), "phase", phase)
}

// Model returns the weighed entities of the last scan.
func (e *Enforcer) Model() []*models.Entity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model
}

// ScanSchema rebuilds the in-memory model from the registry and weighs it.
// The previous model is discarded.
func (e *Enforcer) ScanSchema(rc *RunContext) ([]*models.Entity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	log := e.phaseLogger(rc, "mapping")
	e.model = nil

	entities, err := scanner.New(e.registry, log).Scan(rc.Namespace)
	if err != nil {
		log.Warn("no entity namespace specified, cannot scan")
		return nil, err
	}
	e.model = scanner.Weigh(entities)
	for _, ent := range e.model {
		log.Info("mapped entity", "type", ent.Type, "name", ent.ResolveName(), "kind", ent.Kind.String(),
			"abstract", ent.Abstract, "root", ent.Root, "weight", ent.Weight, "properties", len(ent.Properties))
	}
	log.Info("mapping successful", "definitions", len(entities), "mapped", len(e.model))
	return e.model, nil
}

func (e *Enforcer) withSession(ctx context.Context, rc *RunContext, log *slog.Logger, fn func(store.Session) error) error {
	if rc.SessionsForbidden {
		return ErrSessionsForbidden
	}
	sess, err := e.provider.Open(ctx)
	if err != nil {
		return fmt.Errorf("opening session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("closing session", "error", cerr)
		}
	}()
	return fn(sess)
}

// ValidateSchema reconciles classes, properties and associations of the
// current model in a session of its own.
func (e *Enforcer) ValidateSchema(ctx context.Context, rc *RunContext) (*reconcile.SchemaReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	log := e.phaseLogger(rc, "schema")
	log.Info("performing schema validation")

	var report *reconcile.SchemaReport
	err := e.withSession(ctx, rc, log, func(sess store.Session) error {
		var rerr error
		report, rerr = reconcile.NewSchemaReconciler(log).Reconcile(ctx, sess, e.model)
		return rerr
	})
	if err != nil {
		return report, fmt.Errorf("schema phase: %w", err)
	}
	return report, nil
}

// ValidateIndexes reconciles the declared indexes. Per-index failures are
// reported through IndexReport.OK; an error means no session was available.
func (e *Enforcer) ValidateIndexes(ctx context.Context, rc *RunContext) (*reconcile.IndexReport, error) {
	log := e.phaseLogger(rc, "index")
	log.Info("performing index validation")
	model := e.Model()

	var report *reconcile.IndexReport
	err := e.withSession(ctx, rc, log, func(sess store.Session) error {
		report = reconcile.NewIndexReconciler(log).Reconcile(ctx, sess, model)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("index phase: %w", err)
	}
	return report, nil
}

// RebuildIndexes rebuilds every index in the store.
func (e *Enforcer) RebuildIndexes(ctx context.Context, rc *RunContext) error {
	log := e.phaseLogger(rc, "index")
	err := e.withSession(ctx, rc, log, func(sess store.Session) error {
		return reconcile.NewIndexReconciler(log).Rebuild(ctx, sess)
	})
	if err != nil {
		return fmt.Errorf("index rebuild: %w", err)
	}
	return nil
}

// PerformDataMigrations applies units in order. With no units no session
// is opened.
func (e *Enforcer) PerformDataMigrations(ctx context.Context, rc *RunContext, units []migration.Migration) (*migration.Report, error) {
	log := e.phaseLogger(rc, "data")
	runner := migration.NewRunner(log)
	if len(units) == 0 {
		return runner.Run(ctx, nil, nil)
	}

	var report *migration.Report
	err := e.withSession(ctx, rc, log, func(sess store.Session) error {
		var rerr error
		report, rerr = runner.Run(ctx, sess, units)
		return rerr
	})
	if err != nil {
		return report, fmt.Errorf("data phase: %w", err)
	}
	return report, nil
}

// Run executes every phase. Scan, schema and data failures abort the run;
// index failures are logged and recorded in the report.
func (e *Enforcer) Run(ctx context.Context, rc *RunContext, units []migration.Migration) (*Report, error) {
	start := time.Now()
	metrics.Inc(metrics.RunsTotal)
	report := &Report{RunID: rc.ID.String()}
	defer func() { report.Duration = time.Since(start) }()

	model, err := e.ScanSchema(rc)
	if err != nil {
		return report, err
	}
	report.Entities = len(model)

	if report.Schema, err = e.ValidateSchema(ctx, rc); err != nil {
		return report, err
	}

	report.Indexes, err = e.ValidateIndexes(ctx, rc)
	if err != nil {
		e.logger.Error("index validation failed", "run_id", report.RunID, "error", err)
	}
	if rc.StoreCreated {
		if err := e.RebuildIndexes(ctx, rc); err != nil {
			e.logger.Warn("index rebuild failed", "run_id", report.RunID, "error", err)
		} else {
			report.Rebuilt = true
		}
	}

	if report.Data, err = e.PerformDataMigrations(ctx, rc, units); err != nil {
		return report, err
	}

	indexesOK := report.Indexes != nil && report.Indexes.OK
	e.logger.Info("schema enforcement complete", "run_id", report.RunID, "entities", report.Entities,
		"mutations", report.Schema.Stats.Mutations(), "indexes_ok", indexesOK,
		"rebuilt", report.Rebuilt, "migrations", len(report.Data.Applied), "elapsed", time.Since(start))
	return report, nil
}

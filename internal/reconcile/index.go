package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ajitpratap0/graphschema/internal/metrics"
	"github.com/ajitpratap0/graphschema/internal/migration"
	"github.com/ajitpratap0/graphschema/internal/models"
	"github.com/ajitpratap0/graphschema/internal/store"
)

// IndexReport summarizes an index reconciliation. OK is true when no index
// failed.
type IndexReport struct {
	Created  []string `json:"created,omitempty"`
	Existing []string `json:"existing,omitempty"`
	Skipped  []string `json:"skipped,omitempty"`
	Failures int      `json:"failures"`
	OK       bool     `json:"ok"`
}

// IndexReconciler applies the index declarations of the model.
type IndexReconciler struct {
	logger *slog.Logger
}

// NewIndexReconciler creates a new index reconciler.
func NewIndexReconciler(logger *slog.Logger) *IndexReconciler {
	return &IndexReconciler{logger: logger}
}

// Reconcile applies every index declared on a mapped entity, in model
// order. The first declaration of a name wins; later ones are skipped. A
// declaration without a statement is skipped since statements are never
// synthesized from the property list. Per-index failures are logged and
// counted and never abort the loop.
func (r *IndexReconciler) Reconcile(ctx context.Context, sess store.Session, entities []*models.Entity) *IndexReport {
	report := &IndexReport{}
	h := migration.NewHelpers(r.logger)
	processed := make(map[string]bool)

	for _, e := range entities {
		if !e.Mapped {
			continue
		}
		for _, spec := range e.Indexes {
			if processed[spec.Name] {
				continue
			}
			if spec.Statement == "" {
				r.logger.Info("index has no statement, ignoring", "index", spec.Name, "properties", spec.Properties)
				report.Skipped = append(report.Skipped, spec.Name)
				continue
			}
			created, err := r.apply(ctx, sess, h, e.ResolveName(), spec)
			switch {
			case err != nil:
				r.logger.Error("index could not be validated", "index", spec.Name, "error", err)
				report.Failures++
				metrics.Inc(metrics.IndexFailures)
			case created:
				r.logger.Info("index defined", "index", spec.Name, "class", e.ResolveName())
				report.Created = append(report.Created, spec.Name)
				metrics.Inc(metrics.IndexesCreated)
			default:
				r.logger.Info("index already defined", "index", spec.Name)
				report.Existing = append(report.Existing, spec.Name)
			}
			processed[spec.Name] = true
		}
	}

	report.OK = report.Failures == 0
	if report.OK {
		r.logger.Info("indexes reconciled", "created", len(report.Created), "existing", len(report.Existing))
	} else {
		r.logger.Warn("issues raised while defining indexes", "failures", report.Failures)
	}
	return report
}

func (r *IndexReconciler) apply(ctx context.Context, sess store.Session, h *migration.Helpers, class string, spec models.IndexSpec) (bool, error) {
	cls, err := h.EnsureClass(ctx, sess.Schema(), class)
	if err != nil {
		return false, err
	}
	has, err := h.HasIndex(ctx, cls, spec.Name)
	if err != nil || has {
		return false, err
	}
	if err := sess.Execute(ctx, spec.Statement); err != nil {
		return false, err
	}
	if err := sess.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Rebuild rebuilds every index in the store and commits. It blocks until
// the store finishes and is meant for a freshly created store only.
func (r *IndexReconciler) Rebuild(ctx context.Context, sess store.Session) error {
	if err := sess.RebuildIndexes(ctx); err != nil {
		return fmt.Errorf("rebuilding indexes: %w", err)
	}
	if err := sess.Commit(ctx); err != nil {
		return fmt.Errorf("committing index rebuild: %w", err)
	}
	r.logger.Info("index rebuild issued")
	return nil
}

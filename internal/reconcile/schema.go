// Package reconcile brings the live store's classes, properties and indexes
// into conformance with the scanned entity model.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/davecgh/go-spew/spew"

	"github.com/ajitpratap0/graphschema/internal/migration"
	"github.com/ajitpratap0/graphschema/internal/models"
	"github.com/ajitpratap0/graphschema/internal/store"
	"github.com/ajitpratap0/graphschema/internal/typemap"
	"github.com/ajitpratap0/graphschema/pkg/schema"
)

// UUIDRegexp is the canonical UUID constraint placed on identity properties.
const UUIDRegexp = `^[0-9A-Za-z]{8}-[0-9A-Za-z]{4}-[0-9A-Za-z]{4}-[0-9A-Za-z]{4}-[0-9A-Za-z]{12}$`

// SchemaReport summarizes a class and property reconciliation.
type SchemaReport struct {
	Entities     int             `json:"entities"`
	Associations int             `json:"associations"`
	Skipped      []string        `json:"skipped,omitempty"`
	Stats        migration.Stats `json:"stats"`
}

// SchemaReconciler applies classes, properties and associations.
type SchemaReconciler struct {
	logger *slog.Logger
}

// NewSchemaReconciler creates a new schema reconciler.
func NewSchemaReconciler(logger *slog.Logger) *SchemaReconciler {
	return &SchemaReconciler{logger: logger}
}

type schemaRun struct {
	logger  *slog.Logger
	sc      store.Schema
	h       *migration.Helpers
	report  *SchemaReport
	skipped func(entity, prop, reason string)
}

// Reconcile runs both passes over entities, which must already be weighed.
// Pass A defines classes and non-association properties; pass B defines
// associations once every class exists. Store errors abort the phase;
// declaration problems are logged and skipped.
func (r *SchemaReconciler) Reconcile(ctx context.Context, sess store.Session, entities []*models.Entity) (*SchemaReport, error) {
	report := &SchemaReport{}
	run := &schemaRun{
		logger: r.logger,
		sc:     sess.Schema(),
		h:      migration.NewHelpers(r.logger),
		report: report,
	}
	run.skipped = func(entity, prop, reason string) {
		report.Skipped = append(report.Skipped, fmt.Sprintf("%s.%s: %s", entity, prop, reason))
	}
	defer func() { report.Stats = run.h.Stats() }()

	if classes, err := run.sc.Classes(ctx); err == nil {
		r.logger.Info("current class count", "classes", len(classes))
	}
	if err := run.ensureRootClasses(ctx); err != nil {
		return report, err
	}

	for _, e := range entities {
		if !e.Mapped {
			continue
		}
		if err := run.defineClass(ctx, e); err != nil {
			return report, err
		}
		report.Entities++
	}
	for _, e := range entities {
		if !e.Mapped {
			continue
		}
		if err := run.defineAssociations(ctx, e); err != nil {
			return report, err
		}
	}

	r.logger.Info("schema reconciled", "entities", report.Entities,
		"associations", report.Associations, "mutations", run.h.Stats().Mutations())
	return report, nil
}

func (r *schemaRun) ensureRootClasses(ctx context.Context) error {
	for _, name := range []string{store.VertexRoot, store.EdgeRoot} {
		if _, err := r.h.EnsureClass(ctx, r.sc, name); err != nil {
			return fmt.Errorf("ensuring root class %s: %w", name, err)
		}
	}
	return nil
}

func rootFor(kind schema.GraphKind) string {
	if kind == schema.Edge {
		return store.EdgeRoot
	}
	return store.VertexRoot
}

func (r *schemaRun) defineClass(ctx context.Context, e *models.Entity) error {
	name := e.ResolveName()
	cls, err := r.h.EnsureClass(ctx, r.sc, name)
	if err != nil {
		return err
	}
	if err := r.h.EnsureClassAttribute(ctx, cls, store.ClassAbstract, e.Abstract); err != nil {
		return err
	}

	if e.Root && e.Kind != schema.NoGraph {
		if err := r.h.EnsureClassAttribute(ctx, cls, store.ClassSuperclass, rootFor(e.Kind)); err != nil {
			return err
		}
	} else if anc, ok := e.Nearest(); ok {
		exists, err := r.h.HasClass(ctx, r.sc, anc.Name)
		if err != nil {
			return err
		}
		if !exists {
			r.logger.Warn("superclass not defined in store, ignoring", "class", name, "superclass", anc.Name)
		} else if err := r.h.EnsureClassAttribute(ctx, cls, store.ClassSuperclass, anc.Name); err != nil {
			return err
		}
	}

	for _, p := range e.Properties {
		if p.Inert() {
			continue
		}
		if _, ok := p.Spec.(models.AssociationSpec); ok {
			continue
		}
		if err := r.defineProperty(ctx, e, cls, p); err != nil {
			return err
		}
	}
	return nil
}

func (r *schemaRun) defineProperty(ctx context.Context, e *models.Entity, cls store.Class, p *models.Property) error {
	name := p.EffectiveName()
	if name == "" {
		r.logger.Error("property name missing, cannot define", "class", cls.Name())
		r.skipped(cls.Name(), "?", "missing property name")
		return nil
	}

	switch s := p.Spec.(type) {
	case models.PlainSpec:
		typ, ok := typemap.Value(s.Kind)
		if !ok {
			r.logger.Warn("no store type for property, ignoring", "class", cls.Name(), "property", name, "kind", s.Kind.String())
			r.skipped(cls.Name(), name, "unmapped kind "+s.Kind.String())
			return nil
		}
		prop, err := r.h.EnsureProperty(ctx, cls, name, typ)
		if err != nil {
			return err
		}
		if err := r.common(ctx, prop, s.Mandatory, s.NotNull); err != nil {
			return err
		}
		regex := s.Regex
		if regex == "" && s.Kind == schema.UUID {
			regex = UUIDRegexp
		}
		if regex != "" {
			if err := r.h.EnsurePropertyAttribute(ctx, prop, store.PropRegexp, regex); err != nil {
				return err
			}
		}
		if typemap.IsEmbedded(typ) {
			return r.linked(ctx, cls.Name(), prop, s.LinkedClass, s.Linked)
		}
		return nil

	case models.IdentitySpec:
		prop, err := r.h.EnsureProperty(ctx, cls, name, store.TypeString)
		if err != nil {
			return err
		}
		if err := r.common(ctx, prop, s.Mandatory, s.NotNull); err != nil {
			return err
		}
		return r.h.EnsurePropertyAttribute(ctx, prop, store.PropRegexp, UUIDRegexp)

	case nil:
		if len(p.Facts) > 0 {
			r.logger.Warn("unknown property facts, dumping", "class", cls.Name(), "property", name,
				"facts", spew.Sdump(p.Facts))
			r.skipped(cls.Name(), name, "unrecognized facts")
		} else {
			r.logger.Debug("property carries no facts, cannot define", "class", cls.Name(), "property", name)
		}
	}
	return nil
}

func (r *schemaRun) defineAssociations(ctx context.Context, e *models.Entity) error {
	for _, p := range e.Properties {
		s, ok := p.Spec.(models.AssociationSpec)
		if !ok || p.Inert() {
			continue
		}
		name := p.EffectiveName()
		if name == "" {
			r.logger.Error("association name missing, cannot define", "class", e.ResolveName())
			r.skipped(e.ResolveName(), "?", "missing association name")
			continue
		}
		if err := r.defineAssociation(ctx, e.ResolveName(), name, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *schemaRun) defineAssociation(ctx context.Context, class, name string, s models.AssociationSpec) error {
	switch s.Kind {
	case schema.AssocEdge:
		if s.EdgeName == "" {
			r.logger.Warn("edge association without an edge name, ignoring", "class", class, "property", name)
			r.skipped(class, name, "edge name missing")
			return nil
		}
		edge, err := r.h.EnsureClass(ctx, r.sc, s.EdgeName)
		if err != nil {
			return err
		}
		if err := r.h.EnsureClassAttribute(ctx, edge, store.ClassSuperclass, store.EdgeRoot); err != nil {
			return err
		}
		if err := r.h.EnsureClassAttribute(ctx, edge, store.ClassAbstract, false); err != nil {
			return err
		}
		r.report.Associations++
		return nil

	case schema.AssocEmbeddedList, schema.AssocEmbeddedMap, schema.AssocEmbeddedSet,
		schema.AssocLink, schema.AssocLinkList, schema.AssocLinkSet, schema.AssocLinkMap:
		typ, ok := typemap.Association(s.Kind)
		if !ok {
			r.logger.Warn("no store type for association, ignoring", "class", class, "property", name)
			r.skipped(class, name, "unmapped association "+s.Kind.String())
			return nil
		}
		cls, err := r.h.EnsureClass(ctx, r.sc, class)
		if err != nil {
			return err
		}
		prop, err := r.h.EnsureProperty(ctx, cls, name, typ)
		if err != nil {
			return err
		}
		if err := r.linked(ctx, class, prop, s.LinkedClass, s.Linked); err != nil {
			return err
		}
		if err := r.common(ctx, prop, s.Mandatory, s.NotNull); err != nil {
			return err
		}
		r.report.Associations++
		return nil
	}

	r.logger.Warn("unknown association kind, ignoring", "class", class, "property", name, "kind", s.Kind.String())
	r.skipped(class, name, "unsupported association "+s.Kind.String())
	return nil
}

func (r *schemaRun) common(ctx context.Context, prop store.Property, mandatory, notNull bool) error {
	if err := r.h.EnsurePropertyAttribute(ctx, prop, store.PropMandatory, mandatory); err != nil {
		return err
	}
	return r.h.EnsurePropertyAttribute(ctx, prop, store.PropNotNull, notNull)
}

// linked forces the linked class and linked type when declared. A linked
// class missing from the store is logged and left unset.
func (r *schemaRun) linked(ctx context.Context, class string, prop store.Property, linkedClass string, linked schema.LinkedKind) error {
	if linkedClass != "" {
		exists, err := r.h.HasClass(ctx, r.sc, linkedClass)
		if err != nil {
			return err
		}
		if !exists {
			r.logger.Warn("linked class not defined in store, ignoring", "class", class,
				"property", prop.Name(), "linked_class", linkedClass)
			r.skipped(class, prop.Name(), "linked class "+linkedClass+" missing")
		} else if err := r.h.EnsurePropertyAttribute(ctx, prop, store.PropLinkedClass, linkedClass); err != nil {
			return err
		}
	}
	if linked != schema.LinkedNone {
		if typ, ok := typemap.Linked(linked); ok {
			if err := r.h.EnsurePropertyAttribute(ctx, prop, store.PropLinkedType, typ); err != nil {
				return err
			}
		}
	}
	return nil
}

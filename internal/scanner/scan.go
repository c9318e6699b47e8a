// Package scanner compiles registered type declarations into the in-memory
// entity model and orders it for reconciliation.
package scanner

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/ajitpratap0/graphschema/internal/metrics"
	"github.com/ajitpratap0/graphschema/internal/models"
	"github.com/ajitpratap0/graphschema/pkg/schema"
)

// ErrNoNamespace is returned when Scan is called without a namespace.
var ErrNoNamespace = errors.New("scanner: namespace is required")

// Scanner walks a registry and builds entities for the types it holds.
type Scanner struct {
	registry *schema.Registry
	logger   *slog.Logger
}

// New creates a scanner over registry.
func New(registry *schema.Registry, logger *slog.Logger) *Scanner {
	return &Scanner{registry: registry, logger: logger}
}

// InNamespace reports whether pkg is ns or nested under it.
func InNamespace(pkg, ns string) bool {
	return pkg == ns || strings.HasPrefix(pkg, ns+"/")
}

// Scan builds one entity per class type registered under namespace, in
// registration order. Types that fail to load are skipped; enum and
// interface declarations are ignored.
func (s *Scanner) Scan(namespace string) ([]*models.Entity, error) {
	if namespace == "" {
		return nil, ErrNoNamespace
	}
	s.logger.Info("scanning namespace", "namespace", namespace)

	var entities []*models.Entity
	candidates := 0
	for _, entry := range s.registry.Entries() {
		if !InNamespace(entry.Package, namespace) {
			continue
		}
		candidates++
		t, err := entry.SafeLoad()
		if err != nil {
			s.logger.Debug("skipping type that failed to load", "type", entry.FullName(), "error", err)
			continue
		}
		if t.TypeKind != schema.ClassType {
			continue
		}
		entities = append(entities, s.compile(t))
	}

	metrics.EntitiesScanned.Add(int64(len(entities)))
	s.logger.Info("scan complete", "candidates", candidates, "entities", len(entities))
	return entities, nil
}

func (s *Scanner) compile(t *schema.Type) *models.Entity {
	e := models.NewEntity(t.FullName())
	e.Abstract = t.IsAbstract

	if m := t.Marker; m != nil {
		e.Mapped = true
		e.OverrideName = m.Name
		e.Kind = m.Kind
		e.Root = m.Root
	}
	appendIndexes(e, t)
	s.inherit(e, t)

	if e.Mapped {
		for _, f := range t.Declared {
			if f.IsStatic || f.IsConstant {
				continue
			}
			e.SetProperty(classify(f))
		}
	}
	return e
}

// inherit walks the parent chain, recording ancestors nearest first and
// applying their class-level facts. An unregistered or unloadable parent is
// recorded by simple name and ends the walk, as does a cycle.
func (s *Scanner) inherit(e *models.Entity, t *schema.Type) {
	seen := map[string]bool{t.FullName(): true}
	for parent := t.Parent; parent != ""; {
		if seen[parent] {
			s.logger.Warn("inheritance cycle", "type", e.Type, "at", parent)
			return
		}
		seen[parent] = true

		pt, ok, err := s.registry.Lookup(parent)
		if !ok || err != nil {
			_, simple := schema.SplitName(parent)
			e.Ancestors = append(e.Ancestors, models.Ancestor{Type: parent, Name: simple})
			return
		}
		e.Ancestors = append(e.Ancestors, models.Ancestor{Type: parent, Name: declaredName(pt)})

		appendIndexes(e, pt)
		if pt.Marker != nil && !e.Mapped {
			e.Mapped = true
			e.Kind = pt.Marker.Kind
		}
		parent = pt.Parent
	}
}

func declaredName(t *schema.Type) string {
	if t.Marker != nil && t.Marker.Name != "" {
		return t.Marker.Name
	}
	return t.Name
}

func appendIndexes(e *models.Entity, t *schema.Type) {
	for _, idx := range t.Indexes {
		e.Indexes = append(e.Indexes, models.IndexSpec{
			Name:       idx.Name,
			Engine:     idx.Engine,
			Kind:       idx.Kind,
			Properties: append([]string(nil), idx.Properties...),
			Statement:  idx.Statement,
		})
	}
}

// classify turns a field into a property. A plain fact wins over an
// identity fact, which wins over an association.
func classify(f *schema.Field) *models.Property {
	p := &models.Property{
		Name:     f.Name,
		HostType: f.HostType,
		Identity: f.Identity != nil,
		Facts:    f.Extra,
	}
	switch {
	case f.Property != nil:
		pf := f.Property
		p.Spec = models.PlainSpec{
			Name:        pf.Name,
			Kind:        pf.Kind,
			Mandatory:   pf.Mandatory,
			NotNull:     pf.NotNull,
			Regex:       pf.Regex,
			Linked:      pf.Linked,
			LinkedClass: pf.LinkedClass,
		}
	case f.Identity != nil:
		p.Spec = models.IdentitySpec{
			Name:      f.Identity.Name,
			Mandatory: f.Identity.Mandatory,
			NotNull:   f.Identity.NotNull,
		}
	case f.Association != nil:
		af := f.Association
		p.Spec = models.AssociationSpec{
			Name:        af.Name,
			Kind:        af.Kind,
			Mandatory:   af.Mandatory,
			NotNull:     af.NotNull,
			EdgeName:    af.EdgeName,
			Linked:      af.Linked,
			LinkedClass: af.LinkedClass,
		}
	}
	return p
}

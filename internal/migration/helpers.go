// Package migration holds the idempotent schema primitives used by the
// reconcilers and the runner for one-shot data migrations.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ajitpratap0/graphschema/internal/metrics"
	"github.com/ajitpratap0/graphschema/internal/store"
)

// Stats counts the mutations a Helpers instance performed.
type Stats struct {
	ClassesCreated        int `json:"classes_created"`
	ClassAttributesSet    int `json:"class_attributes_set"`
	PropertiesCreated     int `json:"properties_created"`
	PropertiesRetyped     int `json:"properties_retyped"`
	PropertyAttributesSet int `json:"property_attributes_set"`
	PropertiesDropped     int `json:"properties_dropped"`
}

// Mutations is the total number of mutating calls.
func (s Stats) Mutations() int {
	return s.ClassesCreated + s.ClassAttributesSet + s.PropertiesCreated +
		s.PropertiesRetyped + s.PropertyAttributesSet + s.PropertiesDropped
}

// Helpers is the idempotent mutation facade over one live session. Every
// ensure call compares first and only mutates on a mismatch; mismatches are
// corrected and logged at warning, never rejected.
type Helpers struct {
	logger *slog.Logger
	stats  Stats
}

// NewHelpers creates a Helpers that logs through logger.
func NewHelpers(logger *slog.Logger) *Helpers {
	return &Helpers{logger: logger}
}

// Stats returns the mutations performed so far.
func (h *Helpers) Stats() Stats { return h.stats }

// HasClass reports whether the class exists.
func (h *Helpers) HasClass(ctx context.Context, sc store.Schema, name string) (bool, error) {
	return sc.ExistsClass(ctx, name)
}

// EnsureClass fetches the class, creating it when missing.
func (h *Helpers) EnsureClass(ctx context.Context, sc store.Schema, name string) (store.Class, error) {
	exists, err := sc.ExistsClass(ctx, name)
	if err != nil {
		return nil, err
	}
	cls, err := sc.GetOrCreateClass(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("ensuring class %s: %w", name, err)
	}
	if !exists {
		h.logger.Info("created class", "class", name)
		h.stats.ClassesCreated++
		metrics.Inc(metrics.ClassesCreated)
	}
	return cls, nil
}

// EnsureClassAttribute sets attr to value unless it already holds it.
func (h *Helpers) EnsureClassAttribute(ctx context.Context, cls store.Class, attr store.ClassAttribute, value any) error {
	actual, err := cls.Attribute(ctx, attr)
	if err != nil {
		return fmt.Errorf("reading %s of class %s: %w", attr, cls.Name(), err)
	}
	if actual == value {
		return nil
	}
	h.logger.Warn("changing class attribute", "class", cls.Name(), "attribute", attr.String(), "from", actual, "to", value)
	if err := cls.SetAttribute(ctx, attr, value); err != nil {
		return fmt.Errorf("setting %s of class %s: %w", attr, cls.Name(), err)
	}
	h.stats.ClassAttributesSet++
	metrics.Inc(metrics.ClassAttributesSet)
	return nil
}

// HasProperty reports whether class has the property. A missing class has
// no properties.
func (h *Helpers) HasProperty(ctx context.Context, sc store.Schema, class, prop string) (bool, error) {
	cls, err := sc.Class(ctx, class)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return cls.ExistsProperty(ctx, prop)
}

// EnsureProperty fetches the property, creating it with typ when missing
// and coercing it to typ when it exists with another type.
func (h *Helpers) EnsureProperty(ctx context.Context, cls store.Class, name string, typ store.Type) (store.Property, error) {
	exists, err := cls.ExistsProperty(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		prop, err := cls.CreateProperty(ctx, name, typ)
		if err != nil {
			return nil, fmt.Errorf("creating property %s.%s: %w", cls.Name(), name, err)
		}
		h.logger.Info("created property", "class", cls.Name(), "property", name, "type", typ.String())
		h.stats.PropertiesCreated++
		metrics.Inc(metrics.PropertiesCreated)
		return prop, nil
	}

	prop, err := cls.Property(ctx, name)
	if err != nil {
		return nil, err
	}
	actual, err := prop.Type(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading type of %s.%s: %w", cls.Name(), name, err)
	}
	if actual != typ {
		h.logger.Warn("property has the wrong type", "class", cls.Name(), "property", name,
			"from", actual.String(), "to", typ.String())
		if err := prop.SetType(ctx, typ); err != nil {
			return nil, fmt.Errorf("changing type of %s.%s: %w", cls.Name(), name, err)
		}
		h.stats.PropertiesRetyped++
		metrics.Inc(metrics.PropertiesRetyped)
	}
	return prop, nil
}

// EnsurePropertyLinkedClass ensures the property and its linked class.
func (h *Helpers) EnsurePropertyLinkedClass(ctx context.Context, cls store.Class, name string, typ store.Type, linkedClass string) (store.Property, error) {
	prop, err := h.EnsureProperty(ctx, cls, name, typ)
	if err != nil {
		return nil, err
	}
	if err := h.EnsurePropertyAttribute(ctx, prop, store.PropLinkedClass, linkedClass); err != nil {
		return nil, err
	}
	return prop, nil
}

// EnsurePropertyLinkedType ensures the property and its linked type.
func (h *Helpers) EnsurePropertyLinkedType(ctx context.Context, cls store.Class, name string, typ, linked store.Type) (store.Property, error) {
	prop, err := h.EnsureProperty(ctx, cls, name, typ)
	if err != nil {
		return nil, err
	}
	if err := h.EnsurePropertyAttribute(ctx, prop, store.PropLinkedType, linked); err != nil {
		return nil, err
	}
	return prop, nil
}

// EnsurePropertyAttribute sets attr to value unless it already holds it.
func (h *Helpers) EnsurePropertyAttribute(ctx context.Context, prop store.Property, attr store.PropertyAttribute, value any) error {
	actual, err := prop.Attribute(ctx, attr)
	if err != nil {
		return fmt.Errorf("reading %s of %s: %w", attr, prop.Name(), err)
	}
	if actual == value {
		return nil
	}
	h.logger.Warn("changing property attribute", "property", prop.Name(), "attribute", attr.String(), "from", actual, "to", value)
	if err := prop.SetAttribute(ctx, attr, value); err != nil {
		return fmt.Errorf("setting %s of %s: %w", attr, prop.Name(), err)
	}
	h.stats.PropertyAttributesSet++
	metrics.Inc(metrics.PropertyAttributesSet)
	return nil
}

// SafeDropProperty drops the property if it exists.
func (h *Helpers) SafeDropProperty(ctx context.Context, cls store.Class, name string) error {
	exists, err := cls.ExistsProperty(ctx, name)
	if err != nil || !exists {
		return err
	}
	h.logger.Warn("dropping property that should not exist", "class", cls.Name(), "property", name)
	if err := cls.DropProperty(ctx, name); err != nil {
		return fmt.Errorf("dropping %s.%s: %w", cls.Name(), name, err)
	}
	h.stats.PropertiesDropped++
	metrics.Inc(metrics.PropertiesDropped)
	return nil
}

// HasIndex reports whether cls owns an index called name.
func (h *Helpers) HasIndex(ctx context.Context, cls store.Class, name string) (bool, error) {
	return cls.HasIndex(ctx, name)
}

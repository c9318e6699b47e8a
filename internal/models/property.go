package models

import "github.com/ajitpratap0/graphschema/pkg/schema"

// Property is one field of an entity. At most one Spec is set; a nil Spec
// means the field carried no recognized fact.
type Property struct {
	Name     string         `json:"name"`
	HostType string         `json:"host_type,omitempty"`
	Identity bool           `json:"identity"`
	Spec     Spec           `json:"spec,omitempty"`
	Facts    map[string]any `json:"facts,omitempty"`
}

// Spec is the declared fact of a property: PlainSpec, IdentitySpec or
// AssociationSpec.
type Spec interface {
	// Override is the stored property name, "" to use the field name.
	Override() string
	spec()
}

// PlainSpec is a scalar or embedded-collection property.
type PlainSpec struct {
	Name        string            `json:"name,omitempty"`
	Kind        schema.ValueKind  `json:"kind"`
	Mandatory   bool              `json:"mandatory"`
	NotNull     bool              `json:"not_null"`
	Regex       string            `json:"regex,omitempty"`
	Linked      schema.LinkedKind `json:"linked,omitempty"`
	LinkedClass string            `json:"linked_class,omitempty"`
}

// IdentitySpec is the unique identifier property. It is always stored as a
// string constrained by the canonical UUID regex.
type IdentitySpec struct {
	Name      string `json:"name,omitempty"`
	Mandatory bool   `json:"mandatory"`
	NotNull   bool   `json:"not_null"`
}

// AssociationSpec is a relationship, realized as an edge class or as a
// link/embedded property.
type AssociationSpec struct {
	Name        string                 `json:"name,omitempty"`
	Kind        schema.AssociationKind `json:"kind"`
	Mandatory   bool                   `json:"mandatory"`
	NotNull     bool                   `json:"not_null"`
	EdgeName    string                 `json:"edge_name,omitempty"`
	Linked      schema.LinkedKind      `json:"linked,omitempty"`
	LinkedClass string                 `json:"linked_class,omitempty"`
}

func (s PlainSpec) Override() string       { return s.Name }
func (s IdentitySpec) Override() string    { return s.Name }
func (s AssociationSpec) Override() string { return s.Name }

func (PlainSpec) spec()       {}
func (IdentitySpec) spec()    {}
func (AssociationSpec) spec() {}

// EffectiveName is the name the property is stored under.
func (p *Property) EffectiveName() string {
	if p.Spec != nil {
		if n := p.Spec.Override(); n != "" {
			return n
		}
	}
	return p.Name
}

// Inert reports whether the property is recognized but has no schema
// effect: TRANSIENT plain properties and NONE or TRANSIENT associations.
func (p *Property) Inert() bool {
	switch s := p.Spec.(type) {
	case PlainSpec:
		return s.Kind == schema.Transient
	case AssociationSpec:
		return s.Kind == schema.AssocNone || s.Kind == schema.AssocTransient
	}
	return false
}

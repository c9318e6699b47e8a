package models

import "github.com/ajitpratap0/graphschema/pkg/schema"

// Entity is the in-memory model of one scanned domain type.
type Entity struct {
	Type         string           `json:"type"`
	SimpleName   string           `json:"simple_name"`
	OverrideName string           `json:"override_name,omitempty"`
	Kind         schema.GraphKind `json:"kind"`
	Mapped       bool             `json:"mapped"`
	Root         bool             `json:"root"`
	Abstract     bool             `json:"abstract"`
	Ancestors    []Ancestor       `json:"ancestors,omitempty"`
	Properties   []*Property      `json:"properties,omitempty"`
	Indexes      []IndexSpec      `json:"indexes,omitempty"`
	Weight       int              `json:"weight"`
}

// Ancestor is one entry of an entity's ancestor chain.
type Ancestor struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// IndexSpec is one index declaration collected from an entity or one of
// its ancestors. Properties is informational; Statement is authoritative.
type IndexSpec struct {
	Name       string            `json:"name"`
	Engine     schema.EngineKind `json:"engine"`
	Kind       schema.IndexKind  `json:"kind"`
	Properties []string          `json:"properties,omitempty"`
	Statement  string            `json:"statement"`
}

// NewEntity creates an unmapped entity for the given full type name.
func NewEntity(fullName string) *Entity {
	_, simple := schema.SplitName(fullName)
	return &Entity{Type: fullName, SimpleName: simple, Kind: schema.NoGraph}
}

// ResolveName is the schema identity of the entity: the override name when
// set, the simple type name otherwise.
func (e *Entity) ResolveName() string {
	if e.OverrideName != "" {
		return e.OverrideName
	}
	return e.SimpleName
}

// Nearest returns the closest ancestor.
func (e *Entity) Nearest() (Ancestor, bool) {
	if len(e.Ancestors) == 0 {
		return Ancestor{}, false
	}
	return e.Ancestors[0], true
}

// Property returns the property declared under name.
func (e *Entity) Property(name string) (*Property, bool) {
	for _, p := range e.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// SetProperty adds p, replacing any property with the same name in place.
func (e *Entity) SetProperty(p *Property) {
	for i, existing := range e.Properties {
		if existing.Name == p.Name {
			e.Properties[i] = p
			return
		}
	}
	e.Properties = append(e.Properties, p)
}

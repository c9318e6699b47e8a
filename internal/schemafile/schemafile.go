// Package schemafile loads a declared model from YAML so the CLI can enforce
// a schema without compiling domain packages into the binary.
//
//	types:
//	  - package: acme/model
//	    name: Person
//	    extends: acme/model.RootEntity
//	    graph: {kind: vertex}
//	    indexes:
//	      - name: Person.name
//	        kind: notunique
//	        properties: [name]
//	        statement: CREATE INDEX Person.name ON Person (name) NOTUNIQUE
//	    fields:
//	      - name: name
//	        property: {kind: string, mandatory: true}
//	migrations:
//	  - id: seed-admin
//	    statements: INSERT INTO Person SET name = 'admin'
package schemafile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/graphschema/internal/migration"
	"github.com/ajitpratap0/graphschema/pkg/schema"
)

// File is a parsed schema file.
type File struct {
	Types      []TypeDoc      `yaml:"types"`
	Migrations []MigrationDoc `yaml:"migrations"`
}

// TypeDoc declares one type. Enum values stay strings until the type is
// loaded, so one bad value only makes that type unloadable.
type TypeDoc struct {
	Package  string     `yaml:"package"`
	Name     string     `yaml:"name"`
	Kind     string     `yaml:"kind"`
	Abstract bool       `yaml:"abstract"`
	Extends  string     `yaml:"extends"`
	Graph    *GraphDoc  `yaml:"graph"`
	Indexes  []IndexDoc `yaml:"indexes"`
	Fields   []FieldDoc `yaml:"fields"`
}

// GraphDoc is the graph-object marker.
type GraphDoc struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
	Root bool   `yaml:"root"`
}

// IndexDoc is one index declaration.
type IndexDoc struct {
	Name       string   `yaml:"name"`
	Engine     string   `yaml:"engine"`
	Kind       string   `yaml:"kind"`
	Properties []string `yaml:"properties"`
	Statement  string   `yaml:"statement"`
}

// FieldDoc is one field with its facts. Keys that name no known fact are
// kept in Extra.
type FieldDoc struct {
	Name        string          `yaml:"name"`
	HostType    string          `yaml:"host_type"`
	Static      bool            `yaml:"static"`
	Constant    bool            `yaml:"constant"`
	Property    *PropertyDoc    `yaml:"property"`
	Identity    *IdentityDoc    `yaml:"identity"`
	Association *AssociationDoc `yaml:"association"`
	Extra       map[string]any  `yaml:",inline"`
}

// PropertyDoc is a plain property fact.
type PropertyDoc struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	Mandatory   bool   `yaml:"mandatory"`
	NotNull     bool   `yaml:"not_null"`
	Regex       string `yaml:"regex"`
	Linked      string `yaml:"linked"`
	LinkedClass string `yaml:"linked_class"`
}

// IdentityDoc is a unique identifier fact.
type IdentityDoc struct {
	Name      string `yaml:"name"`
	Mandatory bool   `yaml:"mandatory"`
	NotNull   bool   `yaml:"not_null"`
}

// AssociationDoc is an association fact.
type AssociationDoc struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	Mandatory   bool   `yaml:"mandatory"`
	NotNull     bool   `yaml:"not_null"`
	EdgeName    string `yaml:"edge_name"`
	Linked      string `yaml:"linked"`
	LinkedClass string `yaml:"linked_class"`
}

// MigrationDoc is one statement migration.
type MigrationDoc struct {
	ID         string     `yaml:"id"`
	Statements Statements `yaml:"statements"`
}

// Statements accepts a single statement or a list.
type Statements []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Statements) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var str string
		if err := node.Decode(&str); err != nil {
			return err
		}
		if str == "" {
			*s = Statements{}
		} else {
			*s = Statements{str}
		}
		return nil
	case yaml.SequenceNode:
		var arr []string
		if err := node.Decode(&arr); err != nil {
			return err
		}
		*s = arr
		return nil
	default:
		return fmt.Errorf("line %d: expected a statement or a list of statements", node.Line)
	}
}

// LoadFile reads and parses a schema file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses a schema file. Structural problems (a type or migration
// without a name) fail the whole file; bad enum values do not.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing schema YAML: %w", err)
	}
	for i, t := range f.Types {
		if t.Name == "" {
			return nil, fmt.Errorf("types[%d]: name is required", i)
		}
		for j, fd := range t.Fields {
			if fd.Name == "" {
				return nil, fmt.Errorf("types[%d] %s: fields[%d]: name is required", i, t.Name, j)
			}
		}
	}
	for i, m := range f.Migrations {
		if m.ID == "" {
			return nil, fmt.Errorf("migrations[%d]: id is required", i)
		}
	}
	return &f, nil
}

// Register adds every type of the file to r as a lazy loader.
func (f *File) Register(r *schema.Registry) {
	for _, t := range f.Types {
		r.Register(t.Package, t.Name, t.Load)
	}
}

// Units returns the migrations of the file in declaration order.
func (f *File) Units() []migration.Migration {
	units := make([]migration.Migration, 0, len(f.Migrations))
	for _, m := range f.Migrations {
		units = append(units, &StatementMigration{ID: m.ID, Statements: m.Statements})
	}
	return units
}

// Load builds the fact record of the type.
func (t TypeDoc) Load() (*schema.Type, error) {
	typ := schema.Class(t.Package, t.Name).Extends(t.Extends)
	if t.Kind != "" {
		k, err := schema.ParseTypeKind(t.Kind)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name, err)
		}
		typ.Kind(k)
	}
	if t.Abstract {
		typ.Abstract()
	}
	if t.Graph != nil {
		kind := schema.Vertex
		if t.Graph.Kind != "" {
			k, err := schema.ParseGraphKind(t.Graph.Kind)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", t.Name, err)
			}
			kind = k
		}
		typ.Graph(kind)
		if t.Graph.Root {
			typ.Root()
		}
		if t.Graph.Name != "" {
			typ.Named(t.Graph.Name)
		}
	}
	for _, idx := range t.Indexes {
		b, err := idx.builder()
		if err != nil {
			return nil, fmt.Errorf("%s: index %s: %w", t.Name, idx.Name, err)
		}
		typ.Index(b)
	}
	for _, fd := range t.Fields {
		b, err := fd.builder()
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name, fd.Name, err)
		}
		typ.Fields(b)
	}
	return typ, nil
}

func (d IndexDoc) builder() (*schema.IndexBuilder, error) {
	b := schema.NewIndex(d.Name).On(d.Properties...).Statement(d.Statement)
	if d.Engine != "" {
		e, err := schema.ParseEngineKind(d.Engine)
		if err != nil {
			return nil, err
		}
		b.Engine(e)
	}
	if d.Kind != "" {
		k, err := schema.ParseIndexKind(d.Kind)
		if err != nil {
			return nil, err
		}
		b.Kind(k)
	}
	return b, nil
}

func (d FieldDoc) builder() (*schema.FieldBuilder, error) {
	field := &schema.Field{Name: d.Name, HostType: d.HostType, IsStatic: d.Static, IsConstant: d.Constant}

	if p := d.Property; p != nil {
		kind, err := parseValueKind(p.Kind)
		if err != nil {
			return nil, err
		}
		linked, err := parseLinked(p.Linked)
		if err != nil {
			return nil, err
		}
		field.Property = &schema.PropertyFact{
			Name: p.Name, Kind: kind, Mandatory: p.Mandatory, NotNull: p.NotNull,
			Regex: p.Regex, Linked: linked, LinkedClass: p.LinkedClass,
		}
	}
	if id := d.Identity; id != nil {
		field.Identity = &schema.IdentityFact{Name: id.Name, Mandatory: id.Mandatory, NotNull: id.NotNull}
	}
	if a := d.Association; a != nil {
		kind, err := parseAssociationKind(a.Kind)
		if err != nil {
			return nil, err
		}
		linked, err := parseLinked(a.Linked)
		if err != nil {
			return nil, err
		}
		field.Association = &schema.AssociationFact{
			Name: a.Name, Kind: kind, Mandatory: a.Mandatory, NotNull: a.NotNull,
			EdgeName: a.EdgeName, Linked: linked, LinkedClass: a.LinkedClass,
		}
	}

	b := schema.FromField(field)
	for k, v := range d.Extra {
		b.Fact(k, v)
	}
	return b, nil
}

// An omitted kind means STRING for properties and NONE for associations.
func parseValueKind(s string) (schema.ValueKind, error) {
	if s == "" {
		return schema.String, nil
	}
	return schema.ParseValueKind(s)
}

func parseAssociationKind(s string) (schema.AssociationKind, error) {
	if s == "" {
		return schema.AssocNone, nil
	}
	return schema.ParseAssociationKind(s)
}

func parseLinked(s string) (schema.LinkedKind, error) {
	if s == "" {
		return schema.LinkedNone, nil
	}
	return schema.ParseLinkedKind(s)
}

// Package schema is the declaration side of graphschema: domain packages
// describe their persistent types here and register them, and the
// enforcer reconciles the live store against what was registered.
//
// A declaration names a type, its parent, an optional graph-object marker,
// its index declarations and its fields:
//
//	schema.Class("acme/model", "Person").
//	    Extends("acme/model.RootEntity").
//	    Vertex().
//	    Index(schema.NewIndex("Person.name").Kind(schema.NotUnique).On("name").
//	        Statement("CREATE INDEX Person.name NOTUNIQUE")).
//	    Fields(
//	        schema.Prop("name", schema.String).Mandatory().NotNull(),
//	        schema.UniqueIdentifier("uuid").Mandatory(),
//	        schema.Assoc("owns", schema.AssocEdge).EdgeName("OWNS"),
//	    )
package schema

import "strings"

// GraphObject is the class-level marker that makes a type a mapped entity.
type GraphObject struct {
	Name string
	Root bool
	Kind GraphKind
}

// Index is one index declaration. Statement is authoritative; Properties is
// recorded but not used to synthesize a statement.
type Index struct {
	Name       string
	Engine     EngineKind
	Kind       IndexKind
	Properties []string
	Statement  string
}

// PropertyFact declares a plain property.
type PropertyFact struct {
	Name        string
	Kind        ValueKind
	Mandatory   bool
	NotNull     bool
	Regex       string
	Linked      LinkedKind
	LinkedClass string
}

// IdentityFact declares the unique identifier property of a type.
type IdentityFact struct {
	Name      string
	Mandatory bool
	NotNull   bool
}

// AssociationFact declares a relationship to another type.
type AssociationFact struct {
	Name        string
	Kind        AssociationKind
	Mandatory   bool
	NotNull     bool
	EdgeName    string
	Linked      LinkedKind
	LinkedClass string
}

// Field is one declared field of a type and the facts attached to it.
type Field struct {
	Name        string
	HostType    string
	IsStatic    bool
	IsConstant  bool
	Property    *PropertyFact
	Identity    *IdentityFact
	Association *AssociationFact
	Extra       map[string]any
}

// Type is the fact record of one declared domain type.
type Type struct {
	Package    string
	Name       string
	TypeKind   TypeKind
	IsAbstract bool
	Parent     string
	Marker     *GraphObject
	Indexes    []Index
	Declared   []*Field
}

// Class starts a class declaration in the given package.
func Class(pkg, name string) *Type {
	return &Type{Package: pkg, Name: name, TypeKind: ClassType}
}

// FullName is the registry identity of the type: package path and simple
// name joined by a dot.
func (t *Type) FullName() string {
	return JoinName(t.Package, t.Name)
}

// Kind sets the declaration kind.
func (t *Type) Kind(k TypeKind) *Type {
	t.TypeKind = k
	return t
}

// Abstract marks the type abstract.
func (t *Type) Abstract() *Type {
	t.IsAbstract = true
	return t
}

// Extends sets the parent type by full name.
func (t *Type) Extends(fullName string) *Type {
	t.Parent = fullName
	return t
}

// Graph attaches the graph-object marker with the given kind.
func (t *Type) Graph(kind GraphKind) *Type {
	t.marker().Kind = kind
	return t
}

// Vertex marks the type as a vertex class.
func (t *Type) Vertex() *Type { return t.Graph(Vertex) }

// Edge marks the type as an edge class.
func (t *Type) Edge() *Type { return t.Graph(Edge) }

// Root flags the type as a root class of its graph kind.
func (t *Type) Root() *Type {
	t.marker().Root = true
	return t
}

// Named overrides the schema class name.
func (t *Type) Named(name string) *Type {
	t.marker().Name = name
	return t
}

func (t *Type) marker() *GraphObject {
	if t.Marker == nil {
		t.Marker = &GraphObject{Kind: Vertex}
	}
	return t.Marker
}

// Index appends index declarations.
func (t *Type) Index(builders ...*IndexBuilder) *Type {
	for _, b := range builders {
		t.Indexes = append(t.Indexes, b.idx)
	}
	return t
}

// Fields appends field declarations.
func (t *Type) Fields(builders ...*FieldBuilder) *Type {
	for _, b := range builders {
		t.Declared = append(t.Declared, b.f)
	}
	return t
}

// JoinName builds a full type name.
func JoinName(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// SplitName splits a full type name into package path and simple name.
func SplitName(fullName string) (pkg, name string) {
	i := strings.LastIndex(fullName, ".")
	if i < 0 {
		return "", fullName
	}
	return fullName[:i], fullName[i+1:]
}

// IndexBuilder builds an Index declaration.
type IndexBuilder struct {
	idx Index
}

// NewIndex starts an index declaration. Defaults match the marker defaults:
// SBTREE engine, UNIQUE kind.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{idx: Index{Name: name, Engine: SBTree, Kind: Unique}}
}

// Engine sets the index engine.
func (b *IndexBuilder) Engine(e EngineKind) *IndexBuilder {
	b.idx.Engine = e
	return b
}

// Kind sets the index kind.
func (b *IndexBuilder) Kind(k IndexKind) *IndexBuilder {
	b.idx.Kind = k
	return b
}

// On records the indexed property names.
func (b *IndexBuilder) On(props ...string) *IndexBuilder {
	b.idx.Properties = append(b.idx.Properties, props...)
	return b
}

// Statement sets the raw store statement that defines the index.
func (b *IndexBuilder) Statement(stmt string) *IndexBuilder {
	b.idx.Statement = stmt
	return b
}

// Build returns the declaration.
func (b *IndexBuilder) Build() Index { return b.idx }

// FieldBuilder builds a Field declaration.
type FieldBuilder struct {
	f *Field
}

// Prop declares a plain property field.
func Prop(name string, kind ValueKind) *FieldBuilder {
	return &FieldBuilder{f: &Field{Name: name, Property: &PropertyFact{Kind: kind}}}
}

// UniqueIdentifier declares the identity field of a type.
func UniqueIdentifier(name string) *FieldBuilder {
	return &FieldBuilder{f: &Field{Name: name, HostType: "string", Identity: &IdentityFact{}}}
}

// Assoc declares an association field.
func Assoc(name string, kind AssociationKind) *FieldBuilder {
	return &FieldBuilder{f: &Field{Name: name, Association: &AssociationFact{Kind: kind}}}
}

// FromField continues building an existing field declaration.
func FromField(f *Field) *FieldBuilder {
	return &FieldBuilder{f: f}
}

// Bare declares a field that carries no recognized fact.
func Bare(name string) *FieldBuilder {
	return &FieldBuilder{f: &Field{Name: name}}
}

// As overrides the stored property name on every fact of the field.
func (b *FieldBuilder) As(name string) *FieldBuilder {
	if b.f.Property != nil {
		b.f.Property.Name = name
	}
	if b.f.Identity != nil {
		b.f.Identity.Name = name
	}
	if b.f.Association != nil {
		b.f.Association.Name = name
	}
	return b
}

// Mandatory marks the field mandatory.
func (b *FieldBuilder) Mandatory() *FieldBuilder {
	if b.f.Property != nil {
		b.f.Property.Mandatory = true
	}
	if b.f.Identity != nil {
		b.f.Identity.Mandatory = true
	}
	if b.f.Association != nil {
		b.f.Association.Mandatory = true
	}
	return b
}

// NotNull marks the field not-null.
func (b *FieldBuilder) NotNull() *FieldBuilder {
	if b.f.Property != nil {
		b.f.Property.NotNull = true
	}
	if b.f.Identity != nil {
		b.f.Identity.NotNull = true
	}
	if b.f.Association != nil {
		b.f.Association.NotNull = true
	}
	return b
}

// Regex constrains a plain property with a regular expression.
func (b *FieldBuilder) Regex(re string) *FieldBuilder {
	if b.f.Property != nil {
		b.f.Property.Regex = re
	}
	return b
}

// Linked sets the element kind of a collection or link.
func (b *FieldBuilder) Linked(k LinkedKind) *FieldBuilder {
	if b.f.Property != nil {
		b.f.Property.Linked = k
	}
	if b.f.Association != nil {
		b.f.Association.Linked = k
	}
	return b
}

// LinkedClass sets the class of the elements of a collection or link.
func (b *FieldBuilder) LinkedClass(name string) *FieldBuilder {
	if b.f.Property != nil {
		b.f.Property.LinkedClass = name
	}
	if b.f.Association != nil {
		b.f.Association.LinkedClass = name
	}
	return b
}

// EdgeName sets the edge class an EDGE association materializes.
func (b *FieldBuilder) EdgeName(name string) *FieldBuilder {
	if b.f.Association != nil {
		b.f.Association.EdgeName = name
	}
	return b
}

// HostType records the declared Go (or source) type of the field.
func (b *FieldBuilder) HostType(t string) *FieldBuilder {
	b.f.HostType = t
	return b
}

// Static marks the field as static; the scanner ignores static fields.
func (b *FieldBuilder) Static() *FieldBuilder {
	b.f.IsStatic = true
	return b
}

// Constant marks the field as a constant; the scanner ignores constants.
func (b *FieldBuilder) Constant() *FieldBuilder {
	b.f.IsConstant = true
	return b
}

// Fact attaches an extra raw fact the scanner does not recognize.
func (b *FieldBuilder) Fact(key string, value any) *FieldBuilder {
	if b.f.Extra == nil {
		b.f.Extra = make(map[string]any)
	}
	b.f.Extra[key] = value
	return b
}

// Build returns the declaration.
func (b *FieldBuilder) Build() *Field { return b.f }

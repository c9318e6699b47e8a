package schema

import (
	"fmt"
	"strings"
)

// GraphKind is the graph-object kind carried by the class marker.
type GraphKind int

const (
	Vertex GraphKind = iota
	Edge
	NoGraph
)

var graphKindNames = []string{"VERTEX", "EDGE", "NONE"}

func (k GraphKind) String() string { return enumName(graphKindNames, int(k)) }

// MarshalText encodes the kind by name.
func (k GraphKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseGraphKind resolves a graph kind by name.
func ParseGraphKind(s string) (GraphKind, error) {
	i, err := parseEnum("graph kind", graphKindNames, s)
	return GraphKind(i), err
}

// ValueKind is the declared kind of a plain property.
type ValueKind int

const (
	String ValueKind = iota
	Boolean
	Integer
	Short
	Long
	Float
	Double
	Decimal
	Date
	DateTime
	Embedded
	EmbeddedList
	EmbeddedMap
	EmbeddedSet
	Link
	LinkList
	LinkSet
	LinkMap
	Transient
	UUID
)

var valueKindNames = []string{
	"STRING", "BOOLEAN", "INTEGER", "SHORT", "LONG", "FLOAT", "DOUBLE", "DECIMAL",
	"DATE", "DATETIME", "EMBEDDED", "EMBEDDEDLIST", "EMBEDDEDMAP", "EMBEDDEDSET",
	"LINK", "LINKLIST", "LINKSET", "LINKMAP", "TRANSIENT", "UUID",
}

func (k ValueKind) String() string { return enumName(valueKindNames, int(k)) }

// MarshalText encodes the kind by name.
func (k ValueKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseValueKind resolves a value kind by name.
func ParseValueKind(s string) (ValueKind, error) {
	i, err := parseEnum("value kind", valueKindNames, s)
	return ValueKind(i), err
}

// AssociationKind is the declared kind of an association field.
type AssociationKind int

const (
	AssocNone AssociationKind = iota
	AssocEdge
	AssocEmbeddedList
	AssocEmbeddedMap
	AssocEmbeddedSet
	AssocLink
	AssocLinkList
	AssocLinkSet
	AssocLinkMap
	AssocTransient
	AssocUUID
)

var associationKindNames = []string{
	"NONE", "EDGE", "EMBEDDEDLIST", "EMBEDDEDMAP", "EMBEDDEDSET",
	"LINK", "LINKLIST", "LINKSET", "LINKMAP", "TRANSIENT", "UUID",
}

func (k AssociationKind) String() string { return enumName(associationKindNames, int(k)) }

// MarshalText encodes the kind by name.
func (k AssociationKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseAssociationKind resolves an association kind by name.
func ParseAssociationKind(s string) (AssociationKind, error) {
	i, err := parseEnum("association kind", associationKindNames, s)
	return AssociationKind(i), err
}

// LinkedKind is the element kind of a collection or link property.
type LinkedKind int

const (
	LinkedNone LinkedKind = iota
	LinkedString
	LinkedBinary
	LinkedBoolean
	LinkedByte
	LinkedInteger
	LinkedShort
	LinkedLong
	LinkedFloat
	LinkedDouble
	LinkedDecimal
	LinkedDate
	LinkedDateTime
	LinkedEmbedded
	LinkedEmbeddedList
	LinkedEmbeddedMap
	LinkedEmbeddedSet
	LinkedLink
	LinkedLinkList
	LinkedLinkSet
	LinkedLinkMap
)

var linkedKindNames = []string{
	"NONE", "STRING", "BINARY", "BOOLEAN", "BYTE", "INTEGER", "SHORT", "LONG",
	"FLOAT", "DOUBLE", "DECIMAL", "DATE", "DATETIME", "EMBEDDED", "EMBEDDEDLIST",
	"EMBEDDEDMAP", "EMBEDDEDSET", "LINK", "LINKLIST", "LINKSET", "LINKMAP",
}

func (k LinkedKind) String() string { return enumName(linkedKindNames, int(k)) }

// MarshalText encodes the kind by name.
func (k LinkedKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseLinkedKind resolves a linked kind by name.
func ParseLinkedKind(s string) (LinkedKind, error) {
	i, err := parseEnum("linked kind", linkedKindNames, s)
	return LinkedKind(i), err
}

// EngineKind is the index engine requested by an index declaration.
type EngineKind int

const (
	SBTree EngineKind = iota
	HashIndex
	Lucene
)

var engineKindNames = []string{"SBTREE", "HASHINDEX", "LUCENE"}

func (k EngineKind) String() string { return enumName(engineKindNames, int(k)) }

// MarshalText encodes the kind by name.
func (k EngineKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseEngineKind resolves an index engine by name.
func ParseEngineKind(s string) (EngineKind, error) {
	i, err := parseEnum("engine kind", engineKindNames, s)
	return EngineKind(i), err
}

// IndexKind is the kind of index requested by an index declaration.
type IndexKind int

const (
	Unique IndexKind = iota
	NotUnique
	FullText
	Dictionary
	Spatial
)

var indexKindNames = []string{"UNIQUE", "NOTUNIQUE", "FULLTEXT", "DICTIONARY", "SPATIAL"}

func (k IndexKind) String() string { return enumName(indexKindNames, int(k)) }

// MarshalText encodes the kind by name.
func (k IndexKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseIndexKind resolves an index kind by name.
func ParseIndexKind(s string) (IndexKind, error) {
	i, err := parseEnum("index kind", indexKindNames, s)
	return IndexKind(i), err
}

// TypeKind distinguishes declarations the scanner materializes from the
// ones it ignores.
type TypeKind int

const (
	ClassType TypeKind = iota
	EnumType
	InterfaceType
)

var typeKindNames = []string{"CLASS", "ENUM", "INTERFACE"}

func (k TypeKind) String() string { return enumName(typeKindNames, int(k)) }

// MarshalText encodes the kind by name.
func (k TypeKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseTypeKind resolves a type kind by name.
func ParseTypeKind(s string) (TypeKind, error) {
	i, err := parseEnum("type kind", typeKindNames, s)
	return TypeKind(i), err
}

func enumName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("UNKNOWN(%d)", i)
	}
	return names[i]
}

// parseEnum matches case-insensitively; spaces are treated as underscores
// and underscores are ignored, so "Embedded List", "EMBEDDED_LIST" and
// "embeddedlist" all resolve to EMBEDDEDLIST.
func parseEnum(what string, names []string, s string) (int, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(norm)
	if norm == "" {
		return 0, fmt.Errorf("empty %s", what)
	}
	for i, n := range names {
		if n == norm {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", what, s)
}

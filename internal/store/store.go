package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a class or property does not exist.
var ErrNotFound = errors.New("schema element not found")

// Built-in root classes of a graph store.
const (
	VertexRoot = "V"
	EdgeRoot   = "E"
)

// Provider yields sessions against one target store.
type Provider interface {
	// EnsureDatabase verifies the target store exists, creating it when
	// missing. created reports whether creation happened.
	EnsureDatabase(ctx context.Context) (created bool, err error)

	// Open returns a new session. The caller must Close it.
	Open(ctx context.Context) (Session, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases the provider's resources.
	Close() error
}

// Session is one open connection to the store's metadata surface.
type Session interface {
	// Schema returns the metadata surface of this session.
	Schema() Schema

	// Indexes lists every index name defined in the store.
	Indexes(ctx context.Context) ([]string, error)

	// Execute runs a raw statement in the session's pending transaction.
	Execute(ctx context.Context, statement string) error

	// RebuildIndexes rebuilds every index in the store.
	RebuildIndexes(ctx context.Context) error

	// Commit commits the pending transaction, if any.
	Commit(ctx context.Context) error

	// Close rolls back anything uncommitted and releases the session.
	Close() error
}

// Schema is the class catalog of the store.
type Schema interface {
	Classes(ctx context.Context) ([]string, error)
	ExistsClass(ctx context.Context, name string) (bool, error)

	// Class returns ErrNotFound when the class is not defined.
	Class(ctx context.Context, name string) (Class, error)
	GetOrCreateClass(ctx context.Context, name string) (Class, error)
}

// Class is a handle to one schema class.
type Class interface {
	Name() string
	Attribute(ctx context.Context, attr ClassAttribute) (any, error)
	SetAttribute(ctx context.Context, attr ClassAttribute, value any) error
	ExistsProperty(ctx context.Context, name string) (bool, error)

	// Property returns ErrNotFound when the property is not defined.
	Property(ctx context.Context, name string) (Property, error)
	CreateProperty(ctx context.Context, name string, typ Type) (Property, error)
	DropProperty(ctx context.Context, name string) error
	HasIndex(ctx context.Context, name string) (bool, error)
}

// Property is a handle to one property of a class.
type Property interface {
	Name() string
	Type(ctx context.Context) (Type, error)
	SetType(ctx context.Context, typ Type) error
	Attribute(ctx context.Context, attr PropertyAttribute) (any, error)
	SetAttribute(ctx context.Context, attr PropertyAttribute, value any) error
}

// ClassAttribute names a mutable attribute of a class. ABSTRACT holds a
// bool; SUPERCLASS holds the superclass name, "" when there is none.
type ClassAttribute int

const (
	ClassAbstract ClassAttribute = iota
	ClassSuperclass
)

func (a ClassAttribute) String() string {
	switch a {
	case ClassAbstract:
		return "ABSTRACT"
	case ClassSuperclass:
		return "SUPERCLASS"
	}
	return fmt.Sprintf("ClassAttribute(%d)", int(a))
}

// PropertyAttribute names a mutable attribute of a property. MANDATORY and
// NOTNULL hold bools, REGEXP and LINKEDCLASS strings, LINKEDTYPE a Type.
type PropertyAttribute int

const (
	PropMandatory PropertyAttribute = iota
	PropNotNull
	PropRegexp
	PropLinkedClass
	PropLinkedType
)

func (a PropertyAttribute) String() string {
	switch a {
	case PropMandatory:
		return "MANDATORY"
	case PropNotNull:
		return "NOTNULL"
	case PropRegexp:
		return "REGEXP"
	case PropLinkedClass:
		return "LINKEDCLASS"
	case PropLinkedType:
		return "LINKEDTYPE"
	}
	return fmt.Sprintf("PropertyAttribute(%d)", int(a))
}

// ZeroClassAttribute returns the value an unset class attribute reads as.
func ZeroClassAttribute(attr ClassAttribute) any {
	if attr == ClassAbstract {
		return false
	}
	return ""
}

// ZeroPropertyAttribute returns the value an unset property attribute
// reads as.
func ZeroPropertyAttribute(attr PropertyAttribute) any {
	switch attr {
	case PropMandatory, PropNotNull:
		return false
	case PropLinkedType:
		return TypeNone
	}
	return ""
}

// Type is a physical property type of the store.
type Type int

const (
	TypeNone Type = iota
	TypeString
	TypeBoolean
	TypeInteger
	TypeShort
	TypeLong
	TypeFloat
	TypeDouble
	TypeDecimal
	TypeDate
	TypeDateTime
	TypeBinary
	TypeByte
	TypeEmbedded
	TypeEmbeddedList
	TypeEmbeddedMap
	TypeEmbeddedSet
	TypeLink
	TypeLinkList
	TypeLinkSet
	TypeLinkMap
)

var typeNames = []string{
	"", "STRING", "BOOLEAN", "INTEGER", "SHORT", "LONG", "FLOAT", "DOUBLE",
	"DECIMAL", "DATE", "DATETIME", "BINARY", "BYTE", "EMBEDDED", "EMBEDDEDLIST",
	"EMBEDDEDMAP", "EMBEDDEDSET", "LINK", "LINKLIST", "LINKSET", "LINKMAP",
}

func (t Type) String() string {
	if int(t) < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType resolves a physical type by name; "" resolves to TypeNone.
func ParseType(s string) (Type, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range typeNames {
		if n == up {
			return Type(i), nil
		}
	}
	return TypeNone, fmt.Errorf("unknown store type %q", s)
}

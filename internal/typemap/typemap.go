// Package typemap translates declared kinds into physical store types.
package typemap

import (
	"github.com/ajitpratap0/graphschema/internal/store"
	"github.com/ajitpratap0/graphschema/pkg/schema"
)

var valueTypes = map[schema.ValueKind]store.Type{
	schema.String:       store.TypeString,
	schema.Boolean:      store.TypeBoolean,
	schema.Integer:      store.TypeInteger,
	schema.Short:        store.TypeShort,
	schema.Long:         store.TypeLong,
	schema.Float:        store.TypeFloat,
	schema.Double:       store.TypeDouble,
	schema.Decimal:      store.TypeDecimal,
	schema.Date:         store.TypeDate,
	schema.DateTime:     store.TypeDateTime,
	schema.Embedded:     store.TypeEmbedded,
	schema.EmbeddedList: store.TypeEmbeddedList,
	schema.EmbeddedMap:  store.TypeEmbeddedMap,
	schema.EmbeddedSet:  store.TypeEmbeddedSet,
	schema.Link:         store.TypeLink,
	schema.LinkList:     store.TypeLinkList,
	schema.LinkSet:      store.TypeLinkSet,
	schema.LinkMap:      store.TypeLinkMap,
	schema.UUID:         store.TypeString,
}

var associationTypes = map[schema.AssociationKind]store.Type{
	schema.AssocEmbeddedList: store.TypeEmbeddedList,
	schema.AssocEmbeddedMap:  store.TypeEmbeddedMap,
	schema.AssocEmbeddedSet:  store.TypeEmbeddedSet,
	schema.AssocLink:         store.TypeLink,
	schema.AssocLinkList:     store.TypeLinkList,
	schema.AssocLinkSet:      store.TypeLinkSet,
	schema.AssocLinkMap:      store.TypeLinkMap,
	schema.AssocUUID:         store.TypeString,
}

var linkedTypes = map[schema.LinkedKind]store.Type{
	schema.LinkedBinary:       store.TypeBinary,
	schema.LinkedByte:         store.TypeByte,
	schema.LinkedString:       store.TypeString,
	schema.LinkedBoolean:      store.TypeBoolean,
	schema.LinkedInteger:      store.TypeInteger,
	schema.LinkedShort:        store.TypeShort,
	schema.LinkedLong:         store.TypeLong,
	schema.LinkedFloat:        store.TypeFloat,
	schema.LinkedDouble:       store.TypeDouble,
	schema.LinkedDecimal:      store.TypeDecimal,
	schema.LinkedDate:         store.TypeDate,
	schema.LinkedDateTime:     store.TypeDateTime,
	schema.LinkedEmbedded:     store.TypeEmbedded,
	schema.LinkedEmbeddedList: store.TypeEmbeddedList,
	schema.LinkedEmbeddedMap:  store.TypeEmbeddedMap,
	schema.LinkedEmbeddedSet:  store.TypeEmbeddedSet,
	schema.LinkedLink:         store.TypeLink,
	schema.LinkedLinkList:     store.TypeLinkList,
	schema.LinkedLinkSet:      store.TypeLinkSet,
	schema.LinkedLinkMap:      store.TypeLinkMap,
}

// Value maps a plain property kind. TRANSIENT has no mapping; UUID maps to
// STRING since the UUID constraint is a regex, not a type.
func Value(k schema.ValueKind) (store.Type, bool) {
	t, ok := valueTypes[k]
	return t, ok
}

// Association maps an association kind. NONE, EDGE and TRANSIENT have no
// property mapping.
func Association(k schema.AssociationKind) (store.Type, bool) {
	t, ok := associationTypes[k]
	return t, ok
}

// Linked maps the element kind of a collection or link.
func Linked(k schema.LinkedKind) (store.Type, bool) {
	t, ok := linkedTypes[k]
	return t, ok
}

// IsEmbedded reports whether t belongs to the embedded family, the only
// types that carry linked class and linked type attributes on plain
// properties.
func IsEmbedded(t store.Type) bool {
	switch t {
	case store.TypeEmbedded, store.TypeEmbeddedList, store.TypeEmbeddedMap, store.TypeEmbeddedSet:
		return true
	}
	return false
}

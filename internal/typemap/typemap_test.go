package typemap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ajitpratap0/graphschema/internal/store"
	"github.com/ajitpratap0/graphschema/pkg/schema"
)

func TestValue(t *testing.T) {
	tests := []struct {
		kind schema.ValueKind
		want store.Type
		ok   bool
	}{
		{schema.String, store.TypeString, true},
		{schema.DateTime, store.TypeDateTime, true},
		{schema.EmbeddedMap, store.TypeEmbeddedMap, true},
		{schema.LinkSet, store.TypeLinkSet, true},
		{schema.UUID, store.TypeString, true},
		{schema.Transient, store.TypeNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			got, ok := Value(tt.kind)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValue_EveryKindButTransientMaps(t *testing.T) {
	for k := schema.String; k <= schema.UUID; k++ {
		_, ok := Value(k)
		assert.Equal(t, k != schema.Transient, ok, k.String())
	}
}

func TestAssociation(t *testing.T) {
	for _, k := range []schema.AssociationKind{schema.AssocNone, schema.AssocEdge, schema.AssocTransient} {
		_, ok := Association(k)
		assert.False(t, ok, k.String())
	}
	got, ok := Association(schema.AssocUUID)
	assert.True(t, ok)
	assert.Equal(t, store.TypeString, got)

	got, ok = Association(schema.AssocLinkList)
	assert.True(t, ok)
	assert.Equal(t, store.TypeLinkList, got)
}

func TestLinked(t *testing.T) {
	_, ok := Linked(schema.LinkedNone)
	assert.False(t, ok)
	for k := schema.LinkedString; k <= schema.LinkedLinkMap; k++ {
		_, ok := Linked(k)
		assert.True(t, ok, k.String())
	}
	got, _ := Linked(schema.LinkedBinary)
	assert.Equal(t, store.TypeBinary, got)
	got, _ = Linked(schema.LinkedByte)
	assert.Equal(t, store.TypeByte, got)
}

func TestIsEmbedded(t *testing.T) {
	assert.True(t, IsEmbedded(store.TypeEmbeddedSet))
	assert.True(t, IsEmbedded(store.TypeEmbedded))
	assert.False(t, IsEmbedded(store.TypeLinkList))
	assert.False(t, IsEmbedded(store.TypeString))
}

package migration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/graphschema/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSession(t *testing.T) (*store.MemoryStore, store.Session) {
	t.Helper()
	ms := store.NewMemoryStore()
	sess, err := ms.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return ms, sess
}

func TestHelpers_EnsureClassIsIdempotent(t *testing.T) {
	ms, sess := newSession(t)
	ctx := context.Background()
	h := NewHelpers(discardLogger())

	_, err := h.EnsureClass(ctx, sess.Schema(), "Person")
	require.NoError(t, err)
	_, err = h.EnsureClass(ctx, sess.Schema(), "Person")
	require.NoError(t, err)

	assert.Equal(t, 1, h.Stats().ClassesCreated)
	assert.Equal(t, 1, ms.Mutations())

	ok, err := h.HasClass(ctx, sess.Schema(), "Person")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHelpers_EnsureClassAttributeOnlyOnMismatch(t *testing.T) {
	ms, sess := newSession(t)
	ctx := context.Background()
	h := NewHelpers(discardLogger())

	cls, err := h.EnsureClass(ctx, sess.Schema(), "Person")
	require.NoError(t, err)
	ms.ResetCalls()

	require.NoError(t, h.EnsureClassAttribute(ctx, cls, store.ClassAbstract, false))
	assert.Zero(t, ms.Mutations())

	require.NoError(t, h.EnsureClassAttribute(ctx, cls, store.ClassAbstract, true))
	require.NoError(t, h.EnsureClassAttribute(ctx, cls, store.ClassAbstract, true))
	assert.Equal(t, 1, ms.Mutations())
	assert.Equal(t, 1, h.Stats().ClassAttributesSet)
}

func TestHelpers_EnsurePropertyCoercesType(t *testing.T) {
	ms, sess := newSession(t)
	ctx := context.Background()
	h := NewHelpers(discardLogger())

	cls, err := sess.Schema().GetOrCreateClass(ctx, "Person")
	require.NoError(t, err)
	_, err = cls.CreateProperty(ctx, "name", store.TypeInteger)
	require.NoError(t, err)
	ms.ResetCalls()

	prop, err := h.EnsureProperty(ctx, cls, "name", store.TypeString)
	require.NoError(t, err)
	typ, err := prop.Type(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.TypeString, typ)
	assert.Equal(t, 1, h.Stats().PropertiesRetyped)

	_, err = h.EnsureProperty(ctx, cls, "name", store.TypeString)
	require.NoError(t, err)
	assert.Equal(t, 1, ms.Mutations())
}

func TestHelpers_LinkedAttributes(t *testing.T) {
	_, sess := newSession(t)
	ctx := context.Background()
	h := NewHelpers(discardLogger())

	cls, err := h.EnsureClass(ctx, sess.Schema(), "Person")
	require.NoError(t, err)
	_, err = h.EnsureClass(ctx, sess.Schema(), "Address")
	require.NoError(t, err)

	prop, err := h.EnsurePropertyLinkedClass(ctx, cls, "home", store.TypeLink, "Address")
	require.NoError(t, err)
	lc, err := prop.Attribute(ctx, store.PropLinkedClass)
	require.NoError(t, err)
	assert.Equal(t, "Address", lc)

	prop, err = h.EnsurePropertyLinkedType(ctx, cls, "tags", store.TypeEmbeddedSet, store.TypeString)
	require.NoError(t, err)
	lt, err := prop.Attribute(ctx, store.PropLinkedType)
	require.NoError(t, err)
	assert.Equal(t, store.TypeString, lt)

	assert.Equal(t, 2, h.Stats().PropertiesCreated)
	assert.Equal(t, 2, h.Stats().PropertyAttributesSet)
}

func TestHelpers_HasPropertyAndSafeDrop(t *testing.T) {
	_, sess := newSession(t)
	ctx := context.Background()
	h := NewHelpers(discardLogger())

	ok, err := h.HasProperty(ctx, sess.Schema(), "Ghost", "x")
	require.NoError(t, err)
	assert.False(t, ok)

	cls, err := h.EnsureClass(ctx, sess.Schema(), "Person")
	require.NoError(t, err)
	_, err = h.EnsureProperty(ctx, cls, "legacy", store.TypeString)
	require.NoError(t, err)

	ok, err = h.HasProperty(ctx, sess.Schema(), "Person", "legacy")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, h.SafeDropProperty(ctx, cls, "legacy"))
	require.NoError(t, h.SafeDropProperty(ctx, cls, "legacy"))
	assert.Equal(t, 1, h.Stats().PropertiesDropped)

	has, err := h.HasIndex(ctx, cls, "Person.legacy")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestStats_Mutations(t *testing.T) {
	s := Stats{ClassesCreated: 1, ClassAttributesSet: 2, PropertiesCreated: 3, PropertiesRetyped: 4, PropertyAttributesSet: 5, PropertiesDropped: 6}
	assert.Equal(t, 21, s.Mutations())
}

func TestRunner_EmptyListTouchesNothing(t *testing.T) {
	r := NewRunner(discardLogger())
	report, err := r.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Applied)
}

func TestRunner_AppliesInOrderAndStopsOnError(t *testing.T) {
	ms, sess := newSession(t)
	var order []string
	unit := func(id string, fail error) Migration {
		return Func{ID: id, Fn: func(ctx context.Context, s store.Session) error {
			order = append(order, id)
			if fail != nil {
				return fail
			}
			return s.Execute(ctx, "UPDATE Person SET migrated = '"+id+"'")
		}}
	}
	boom := errors.New("boom")

	r := NewRunner(discardLogger())
	report, err := r.Run(context.Background(), sess, []Migration{unit("a", nil), unit("b", boom), unit("c", nil)})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "data migration b")
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, []string{"a"}, report.Applied)
	assert.Equal(t, 1, ms.Mutations())
}

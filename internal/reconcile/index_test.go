package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/graphschema/internal/models"
	"github.com/ajitpratap0/graphschema/internal/store"
	"github.com/ajitpratap0/graphschema/pkg/schema"
)

func entity(name string, indexes ...models.IndexSpec) *models.Entity {
	e := models.NewEntity(ns + "." + name)
	e.Mapped = true
	e.Kind = schema.Vertex
	e.Indexes = indexes
	return e
}

func indexes(t *testing.T, ms *store.MemoryStore, entities []*models.Entity) *IndexReport {
	t.Helper()
	ctx := context.Background()
	sess, err := ms.Open(ctx)
	require.NoError(t, err)
	defer sess.Close()
	return NewIndexReconciler(discard()).Reconcile(ctx, sess, entities)
}

func TestIndexReconciler_FixtureModel(t *testing.T) {
	ms := store.NewMemoryStore()
	entities := model(t, fixture())
	reconcileWith(t, ms, discard(), entities)

	report := indexes(t, ms, entities)
	assert.True(t, report.OK)
	assert.Equal(t, []string{"RootEntity.uuid", "Person.name"}, report.Created)
	assert.Equal(t, []string{
		"CREATE INDEX RootEntity.uuid UNIQUE",
		"CREATE INDEX Person.name ON Person (name) NOTUNIQUE",
	}, ms.Executed())

	ms.ResetCalls()
	again := indexes(t, ms, model(t, fixture()))
	assert.True(t, again.OK)
	assert.Empty(t, again.Created)
	assert.Equal(t, []string{"RootEntity.uuid", "Person.name"}, again.Existing)
	assert.Zero(t, ms.Mutations())
}

func TestIndexReconciler_DeduplicatesByName(t *testing.T) {
	ms := store.NewMemoryStore()
	x := models.IndexSpec{Name: "X", Statement: "CREATE INDEX X ON A (a) UNIQUE"}
	other := models.IndexSpec{Name: "X", Statement: "CREATE INDEX X ON B (b) UNIQUE"}

	report := indexes(t, ms, []*models.Entity{entity("A", x), entity("B", other)})
	assert.True(t, report.OK)
	assert.Equal(t, []string{"X"}, report.Created)
	assert.Equal(t, []string{"CREATE INDEX X ON A (a) UNIQUE"}, ms.Executed())
	assert.Zero(t, report.Failures)
}

func TestIndexReconciler_EmptyStatementDoesNotClaimName(t *testing.T) {
	ms := store.NewMemoryStore()
	bare := models.IndexSpec{Name: "I", Properties: []string{"a"}}
	full := models.IndexSpec{Name: "I", Statement: "CREATE INDEX I ON B (b) UNIQUE"}

	report := indexes(t, ms, []*models.Entity{entity("A", bare), entity("B", full)})
	assert.Equal(t, []string{"I"}, report.Skipped)
	assert.Equal(t, []string{"I"}, report.Created)
	assert.True(t, report.OK)
}

func TestIndexReconciler_FailuresAreCountedNotFatal(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.FailStatements("Broken", errors.New("syntax error"))

	report := indexes(t, ms, []*models.Entity{
		entity("A",
			models.IndexSpec{Name: "Broken.x", Statement: "CREATE INDEX Broken.x ON A (x) UNIQUE"},
			models.IndexSpec{Name: "A.y", Statement: "CREATE INDEX A.y ON A (y) UNIQUE"},
		),
		entity("B", models.IndexSpec{Name: "Broken.x", Statement: "CREATE INDEX Broken.x ON B (x) UNIQUE"}),
	})
	assert.False(t, report.OK)
	assert.Equal(t, 1, report.Failures, "failed names are still claimed")
	assert.Equal(t, []string{"A.y"}, report.Created)
}

func TestIndexReconciler_UnmappedEntitiesIgnored(t *testing.T) {
	ms := store.NewMemoryStore()
	e := entity("Loose", models.IndexSpec{Name: "L", Statement: "CREATE INDEX L ON Loose (l) UNIQUE"})
	e.Mapped = false

	report := indexes(t, ms, []*models.Entity{e})
	assert.True(t, report.OK)
	assert.Empty(t, ms.Executed())
}

func TestIndexReconciler_OwnerIsResolvedName(t *testing.T) {
	ms := store.NewMemoryStore()
	e := entity("Person", models.IndexSpec{Name: "People.name", Statement: "CREATE INDEX People.name UNIQUE"})
	e.OverrideName = "People"

	report := indexes(t, ms, []*models.Entity{e})
	require.Equal(t, []string{"People.name"}, report.Created)

	again := indexes(t, ms, []*models.Entity{e})
	assert.Equal(t, []string{"People.name"}, again.Existing)
}

func TestIndexReconciler_Rebuild(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()
	sess, err := ms.Open(ctx)
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, NewIndexReconciler(discard()).Rebuild(ctx, sess))
	assert.Equal(t, 1, ms.Rebuilds())
	calls := ms.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "rebuild", calls[0].Op)
	assert.Equal(t, "commit", calls[1].Op)
}

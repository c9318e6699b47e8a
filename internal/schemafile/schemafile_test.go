package schemafile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/graphschema/internal/models"
	"github.com/ajitpratap0/graphschema/internal/scanner"
	"github.com/ajitpratap0/graphschema/internal/store"
	"github.com/ajitpratap0/graphschema/pkg/schema"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func loadFixture(t *testing.T) *File {
	t.Helper()
	f, err := LoadFile(filepath.Join("testdata", "model.yaml"))
	require.NoError(t, err)
	return f
}

func TestLoadFile_Structure(t *testing.T) {
	f := loadFixture(t)
	require.Len(t, f.Types, 4)
	require.Len(t, f.Migrations, 2)
	assert.Equal(t, Statements{"INSERT INTO People SET name = 'Admin'"}, f.Migrations[0].Statements)
	assert.Len(t, f.Migrations[1].Statements, 2)

	scratch := f.Types[1].Fields[3]
	assert.Equal(t, "scratch", scratch.Name)
	assert.Equal(t, map[string]any{"json": "ignore"}, scratch.Extra)
}

func TestLoad_BuildsFacts(t *testing.T) {
	typ, err := loadFixture(t).Types[1].Load()
	require.NoError(t, err)

	assert.Equal(t, "acme/model.Person", typ.FullName())
	assert.Equal(t, "acme/model.RootEntity", typ.Parent)
	require.NotNil(t, typ.Marker)
	assert.Equal(t, "People", typ.Marker.Name)
	require.Len(t, typ.Indexes, 1)
	assert.Equal(t, schema.NotUnique, typ.Indexes[0].Kind)
	assert.Equal(t, schema.SBTree, typ.Indexes[0].Engine)

	require.Len(t, typ.Declared, 4)
	tags := typ.Declared[1].Property
	require.NotNil(t, tags)
	assert.Equal(t, schema.EmbeddedSet, tags.Kind)
	assert.Equal(t, schema.LinkedString, tags.Linked)
	owns := typ.Declared[2].Association
	require.NotNil(t, owns)
	assert.Equal(t, schema.AssocEdge, owns.Kind)
	assert.Equal(t, "OWNS", owns.EdgeName)
	assert.Equal(t, map[string]any{"json": "ignore"}, typ.Declared[3].Extra)
}

func TestLoad_BadEnumFailsOnlyThatType(t *testing.T) {
	f := loadFixture(t)
	_, err := f.Types[2].Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broken.size")
	assert.Contains(t, err.Error(), "gigantic")
}

func TestRegister_ScannerSkipsUnloadableAndNonClass(t *testing.T) {
	r := schema.NewRegistry()
	loadFixture(t).Register(r)
	assert.Equal(t, 4, r.Len())

	entities, err := scanner.New(r, discard()).Scan("acme/model")
	require.NoError(t, err)
	require.Len(t, entities, 2)

	person := entities[1]
	assert.Equal(t, "People", person.ResolveName())
	assert.Equal(t, []models.Ancestor{{Type: "acme/model.RootEntity", Name: "RootEntity"}}, person.Ancestors)
	name, ok := person.Property("name")
	require.True(t, ok)
	plain, ok := name.Spec.(models.PlainSpec)
	require.True(t, ok)
	assert.Equal(t, "^[A-Z]", plain.Regex)
}

func TestLoad_OmittedKindsDefault(t *testing.T) {
	f, err := Parse([]byte(`
types:
  - package: acme/model
    name: Person
    graph: {kind: vertex}
    fields:
      - name: name
        property: {mandatory: true}
      - name: friend
        association: {linked_class: Person}
      - name: LIMIT
        constant: true
        property: {kind: integer}
`))
	require.NoError(t, err)
	r := schema.NewRegistry()
	f.Register(r)

	entities, err := scanner.New(r, discard()).Scan("acme/model")
	require.NoError(t, err)
	require.Len(t, entities, 1)

	person := entities[0]
	name, ok := person.Property("name")
	require.True(t, ok)
	assert.Equal(t, models.PlainSpec{Kind: schema.String, Mandatory: true}, name.Spec)

	friend, ok := person.Property("friend")
	require.True(t, ok)
	assert.Equal(t, models.AssociationSpec{Kind: schema.AssocNone, LinkedClass: "Person"}, friend.Spec)

	_, ok = person.Property("LIMIT")
	assert.False(t, ok)
}

func TestParse_StructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"type without name", "types:\n  - package: p\n", "types[0]: name is required"},
		{"field without name", "types:\n  - name: T\n    fields:\n      - property: {kind: string}\n", "fields[0]: name is required"},
		{"migration without id", "migrations:\n  - statements: X\n", "migrations[0]: id is required"},
		{"statements mapping", "migrations:\n  - id: m\n    statements: {a: b}\n", "expected a statement"},
		{"not yaml", "types: [", "parsing schema YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestUnits_StatementMigration(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()
	sess, err := ms.Open(ctx)
	require.NoError(t, err)
	defer sess.Close()

	units := loadFixture(t).Units()
	require.Len(t, units, 2)
	assert.Equal(t, "seed-admin", units[0].Name())
	for _, u := range units {
		require.NoError(t, u.Apply(ctx, sess))
	}
	assert.Equal(t, []string{
		"INSERT INTO People SET name = 'Admin'",
		"UPDATE People SET tags = []",
		"UPDATE People SET uuid = 'x' WHERE uuid IS NULL",
	}, ms.Executed())
}

func TestStatementMigration_StopsAtFirstFailure(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.FailStatements("DELETE", errors.New("denied"))
	ctx := context.Background()
	sess, err := ms.Open(ctx)
	require.NoError(t, err)
	defer sess.Close()

	m := &StatementMigration{ID: "purge", Statements: []string{"UPDATE A SET x = 1", "DELETE FROM A", "UPDATE A SET y = 2"}}
	err = m.Apply(ctx, sess)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2: denied")
	assert.Empty(t, ms.Executed(), "nothing committed")
}

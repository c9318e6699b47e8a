package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/graphschema/internal/config"
	"github.com/ajitpratap0/graphschema/pkg/schema"
)

func TestLoadModel_MergesSchemaFile(t *testing.T) {
	cfg = &config.Config{Schema: config.SchemaConfig{
		Namespace: "acme/model",
		File:      filepath.Join("..", "..", "internal", "schemafile", "testdata", "model.yaml"),
	}}
	t.Cleanup(func() { cfg = nil })

	registry, units, err := loadModel()
	require.NoError(t, err)
	assert.Equal(t, 4, registry.Len())
	assert.Len(t, units, 2)
}

func TestLoadModel_MissingFile(t *testing.T) {
	cfg = &config.Config{Schema: config.SchemaConfig{File: filepath.Join(t.TempDir(), "absent.yaml")}}
	t.Cleanup(func() { cfg = nil })

	_, _, err := loadModel()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading schema file")
}

func TestLoadModel_DefaultConfigNeedsNoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	loaded, err := config.Load()
	require.NoError(t, err)
	cfg = loaded
	t.Cleanup(func() { cfg = nil })

	registry, units, err := loadModel()
	require.NoError(t, err)
	assert.Equal(t, schema.Default.Len(), registry.Len())
	assert.Empty(t, units)
}

func TestNewLogger_DefaultsWithoutConfig(t *testing.T) {
	cfg = nil
	assert.NotNil(t, newLogger())
}

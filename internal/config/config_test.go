package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validCfg returns a fully-valid Config for mutation testing.
func validCfg() *Config {
	return &Config{
		Store:   StoreConfig{Backend: "sqlite", Path: "graphschema.db"},
		Schema:  SchemaConfig{Namespace: "acme/model"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultBackend, cfg.Store.Backend)
	assert.Equal(t, DefaultSQLitePath, cfg.Store.Path)
	assert.Equal(t, DefaultNeo4jURL, cfg.Store.URL)
	assert.Empty(t, cfg.Schema.File, "no schema file unless configured")
	assert.True(t, cfg.Bootstrap.CreateIfMissing)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, ":8080", cfg.API.ListenAddr)
	assert.Empty(t, cfg.API.AuthToken)
}

func TestLoad_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("GRAPHSCHEMA_STORE_BACKEND", "neo4j")
	t.Setenv("GRAPHSCHEMA_STORE_URL", "neo4j://graph.example.com:7687")
	t.Setenv("GRAPHSCHEMA_STORE_PASSWORD", "s3cret-password")
	t.Setenv("GRAPHSCHEMA_SCHEMA_NAMESPACE", "acme/model")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "neo4j", cfg.Store.Backend)
	assert.Equal(t, "neo4j://graph.example.com:7687", cfg.Store.URL)
	assert.Equal(t, "s3cret-password", cfg.Store.Password)
	assert.Equal(t, "acme/model", cfg.Schema.Namespace)
}

func TestLoadFrom_File(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "graphschema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  backend: memory
schema:
  namespace: acme/model
  file: model.yaml
bootstrap:
  create_if_missing: false
logging:
  level: debug
  format: json
`), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "acme/model", cfg.Schema.Namespace)
	assert.Equal(t, "model.yaml", cfg.Schema.File)
	assert.False(t, cfg.Bootstrap.CreateIfMissing)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFrom_MissingFileIsAnError(t *testing.T) {
	isolate(t)
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "orient" }, "store.backend"},
		{"sqlite without path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"neo4j without url", func(c *Config) { c.Store.Backend = "neo4j"; c.Store.URL = "" }, "store.url"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validCfg()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}

	assert.NoError(t, validCfg().Validate())
	mem := validCfg()
	mem.Store = StoreConfig{Backend: "memory"}
	assert.NoError(t, mem.Validate())
}

func TestStoreConfig_StringMasksPassword(t *testing.T) {
	s := StoreConfig{Backend: "neo4j", Username: "neo4j", Password: "correct-horse-battery"}.String()
	assert.Contains(t, s, "co****ry")
	assert.NotContains(t, s, "horse")

	short := StoreConfig{Password: "pw"}.String()
	assert.Contains(t, short, "Password:***")
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultBackend is the store backend used when none is configured.
	DefaultBackend = "sqlite"

	// DefaultSQLitePath is the database file of the sqlite backend.
	DefaultSQLitePath = "graphschema.db"

	// DefaultNeo4jURL is the bolt endpoint of the neo4j backend.
	DefaultNeo4jURL = "neo4j://localhost:7687"
)

// Backends lists the accepted store.backend values.
var Backends = []string{"memory", "sqlite", "neo4j"}

// Config holds all configuration for graphschema.
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Schema    SchemaConfig    `mapstructure:"schema"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	API       APIConfig       `mapstructure:"api"`
}

// APIConfig holds HTTP admin server settings.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	AuthToken  string `mapstructure:"auth_token"`
}

// StoreConfig selects and addresses the target graph store.
type StoreConfig struct {
	Backend  string `mapstructure:"backend"`
	URL      string `mapstructure:"url"`
	Path     string `mapstructure:"path"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// String returns a safe representation of StoreConfig with the password masked.
func (c StoreConfig) String() string {
	return fmt.Sprintf("StoreConfig{Backend:%s, URL:%s, Path:%s, Username:%s, Password:%s, Database:%s}",
		c.Backend, c.URL, c.Path, c.Username, maskSecret(c.Password), c.Database)
}

// maskSecret shows first 2 + last 2 chars, replacing the middle with asterisks.
func maskSecret(s string) string {
	const visible = 2
	if len(s) <= visible*4 {
		return "***"
	}
	return s[:visible] + "****" + s[len(s)-visible:]
}

// SchemaConfig names where the declared model comes from.
type SchemaConfig struct {
	Namespace string `mapstructure:"namespace"`
	File      string `mapstructure:"file"`
}

// BootstrapConfig controls store creation on startup.
type BootstrapConfig struct {
	CreateIfMissing bool `mapstructure:"create_if_missing"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the default locations and environment variables.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads configuration from file, or from the default locations
// when file is empty, then applies environment variables.
func LoadFrom(file string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("store.backend", DefaultBackend)
	v.SetDefault("store.url", DefaultNeo4jURL)
	v.SetDefault("store.path", DefaultSQLitePath)
	v.SetDefault("store.username", "neo4j")
	v.SetDefault("store.password", "")
	v.SetDefault("store.database", "")

	v.SetDefault("schema.namespace", "")
	v.SetDefault("schema.file", "")

	v.SetDefault("bootstrap.create_if_missing", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.auth_token", "")

	// Config file
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(homeDir(), ".graphschema"))
		v.AddConfigPath(".")
	}

	// Environment variables: GRAPHSCHEMA_STORE_URL overrides store.url
	v.SetEnvPrefix("GRAPHSCHEMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK: use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path must not be empty for the sqlite backend")
		}
	case "neo4j":
		if c.Store.URL == "" {
			return fmt.Errorf("store.url must not be empty for the neo4j backend")
		}
	default:
		return fmt.Errorf("store.backend %q must be one of %s", c.Store.Backend, strings.Join(Backends, ", "))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

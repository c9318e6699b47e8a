package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/graphschema/internal/bootstrap"
	"github.com/ajitpratap0/graphschema/internal/config"
	"github.com/ajitpratap0/graphschema/internal/migration"
	"github.com/ajitpratap0/graphschema/internal/schemafile"
	"github.com/ajitpratap0/graphschema/internal/store"
	"github.com/ajitpratap0/graphschema/pkg/schema"
)

var (
	cfg        *config.Config
	configFile string
	namespace  string
	schemaFile string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "graphschema",
		Short: "graphschema: reconcile a graph store schema with a declared model",
		Long: "graphschema scans a declared entity model, makes the store's classes, properties " +
			"and indexes match it, and applies data migrations. Every run is idempotent.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.LoadFrom(configFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if namespace != "" {
				cfg.Schema.Namespace = namespace
			}
			if schemaFile != "" {
				cfg.Schema.File = schemaFile
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.graphschema/config.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "", "entity namespace to scan (overrides schema.namespace)")
	rootCmd.PersistentFlags().StringVarP(&schemaFile, "schema", "f", "", "schema file (overrides schema.file)")

	rootCmd.AddCommand(
		enforceCmd(),
		scanCmd(),
		indexesCmd(),
		migrateCmd(),
		healthCmd(),
		serveCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil {
		switch strings.ToLower(cfg.Logging.Level) {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newProvider(logger *slog.Logger) (store.Provider, error) {
	return bootstrap.NewProvider(cfg, logger)
}

// loadModel returns the types registered in-process plus the ones declared
// in the schema file, and the file's data migrations.
func loadModel() (*schema.Registry, []migration.Migration, error) {
	r := schema.NewRegistry()
	for _, e := range schema.Default.Entries() {
		r.Register(e.Package, e.Name, e.Load)
	}
	if cfg.Schema.File == "" {
		return r, nil, nil
	}
	f, err := schemafile.LoadFile(cfg.Schema.File)
	if err != nil {
		return nil, nil, err
	}
	f.Register(r)
	return r, f.Units(), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

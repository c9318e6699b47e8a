// Package bootstrap wires a configured store backend to the enforcer: it
// verifies or creates the target store, then runs every enforcement phase.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ajitpratap0/graphschema/internal/config"
	"github.com/ajitpratap0/graphschema/internal/enforcer"
	"github.com/ajitpratap0/graphschema/internal/migration"
	"github.com/ajitpratap0/graphschema/internal/store"
	"github.com/ajitpratap0/graphschema/pkg/schema"
)

// ProviderFactory creates a store provider from the store configuration.
type ProviderFactory func(cfg config.StoreConfig, logger *slog.Logger) (store.Provider, error)

var (
	providerMu       sync.RWMutex
	providerRegistry = make(map[string]ProviderFactory)
)

// RegisterProvider registers a backend under name, replacing any previous one.
func RegisterProvider(name string, factory ProviderFactory) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[name] = factory
}

// Providers returns the registered backend names, sorted.
func Providers() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()

	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewProvider creates the provider selected by cfg.Store.Backend.
func NewProvider(cfg *config.Config, logger *slog.Logger) (store.Provider, error) {
	providerMu.RLock()
	factory, ok := providerRegistry[cfg.Store.Backend]
	providerMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
	p, err := factory(cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("creating %s provider: %w", cfg.Store.Backend, err)
	}
	return p, nil
}

func init() {
	RegisterProvider("memory", func(config.StoreConfig, *slog.Logger) (store.Provider, error) {
		return store.NewMemoryStore(), nil
	})
	RegisterProvider("sqlite", func(cfg config.StoreConfig, logger *slog.Logger) (store.Provider, error) {
		return store.NewSQLiteStore(cfg.Path, logger), nil
	})
	RegisterProvider("neo4j", func(cfg config.StoreConfig, logger *slog.Logger) (store.Provider, error) {
		return store.NewNeo4jStore(cfg.URL, cfg.Username, cfg.Password, cfg.Database, logger)
	})
}

// Prepare verifies the target store, creating it when allowed, and returns
// the run context for the enforcement phases.
func Prepare(ctx context.Context, cfg *config.Config, provider store.Provider, logger *slog.Logger) (*enforcer.RunContext, error) {
	created := false
	if cfg.Bootstrap.CreateIfMissing {
		var err error
		created, err = provider.EnsureDatabase(ctx)
		if err != nil {
			return nil, fmt.Errorf("verifying store: %w", err)
		}
	} else if err := provider.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging store: %w", err)
	}

	rc := enforcer.NewRunContext(cfg.Schema.Namespace, created)
	if created {
		logger.Info("store created", "run_id", rc.ID.String(), "backend", cfg.Store.Backend)
	} else {
		logger.Info("store connection verified", "run_id", rc.ID.String(), "backend", cfg.Store.Backend)
	}
	return rc, nil
}

// Run prepares the store and executes every enforcement phase. A store that
// cannot be verified or created is fatal.
func Run(ctx context.Context, cfg *config.Config, provider store.Provider, registry *schema.Registry,
	units []migration.Migration, logger *slog.Logger) (*enforcer.Report, error) {
	rc, err := Prepare(ctx, cfg, provider, logger)
	if err != nil {
		return nil, err
	}
	return enforcer.New(registry, provider, logger).Run(ctx, rc, units)
}

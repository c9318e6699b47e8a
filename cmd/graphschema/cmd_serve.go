package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/graphschema/internal/api"
	"github.com/ajitpratap0/graphschema/internal/bootstrap"
	"github.com/ajitpratap0/graphschema/internal/enforcer"
)

func serveCmd() *cobra.Command {
	var skipBootstrap bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Bootstrap the store, then serve the HTTP admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			registry, units, err := loadModel()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			provider, err := newProvider(logger)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = provider.Close() }()

			if !skipBootstrap {
				if _, err := bootstrap.Run(ctx, cfg, provider, registry, units, logger); err != nil {
					return fmt.Errorf("serve: bootstrap: %w", err)
				}
			}

			e := enforcer.New(registry, provider, logger)
			srv := api.NewServer(e, provider, cfg.Schema.Namespace, units, logger, cfg.API.AuthToken)

			if cfg.API.AuthToken == "" {
				logger.Warn("HTTP API: auth is DISABLED; set GRAPHSCHEMA_API_AUTH_TOKEN or api.auth_token for production use")
			}

			httpSrv := &http.Server{
				Addr:              cfg.API.ListenAddr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      5 * time.Minute,
				IdleTimeout:       120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("HTTP API server starting", "addr", cfg.API.ListenAddr)
				if listenErr := httpSrv.ListenAndServe(); listenErr != nil && listenErr != http.ErrServerClosed {
					errCh <- fmt.Errorf("serve: HTTP server: %w", listenErr)
				}
				close(errCh)
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
			case startErr := <-errCh:
				return startErr
			}

			const shutdownTimeout = 10 * time.Second
			if shutdownErr := api.Shutdown(httpSrv, shutdownTimeout); shutdownErr != nil {
				return fmt.Errorf("serve: graceful shutdown: %w", shutdownErr)
			}

			// Drain the errCh in case ListenAndServe returned after Shutdown.
			if startErr := <-errCh; startErr != nil {
				return startErr
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipBootstrap, "skip-bootstrap", false, "serve without running enforcement first")
	return cmd
}

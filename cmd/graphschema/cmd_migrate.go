package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/graphschema/internal/enforcer"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the data migrations of the schema file",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			registry, units, err := loadModel()
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			provider, err := newProvider(logger)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			defer func() { _ = provider.Close() }()

			e := enforcer.New(registry, provider, logger)
			report, err := e.PerformDataMigrations(ctx, enforcer.NewRunContext(cfg.Schema.Namespace, false), units)
			if report != nil {
				for _, name := range report.Applied {
					fmt.Printf("applied  %s\n", name)
				}
			}
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if len(units) == 0 {
				fmt.Println("No data migrations defined.")
			}
			return nil
		},
	}
}

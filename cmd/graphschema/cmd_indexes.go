package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/graphschema/internal/enforcer"
)

func indexesCmd() *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "indexes",
		Short: "Create missing indexes declared by the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			registry, _, err := loadModel()
			if err != nil {
				return fmt.Errorf("indexes: %w", err)
			}
			provider, err := newProvider(logger)
			if err != nil {
				return fmt.Errorf("indexes: %w", err)
			}
			defer func() { _ = provider.Close() }()

			rc := enforcer.NewRunContext(cfg.Schema.Namespace, false)
			e := enforcer.New(registry, provider, logger)
			if _, err := e.ScanSchema(rc); err != nil {
				return fmt.Errorf("indexes: %w", err)
			}
			report, err := e.ValidateIndexes(ctx, rc)
			if err != nil {
				return fmt.Errorf("indexes: %w", err)
			}

			for _, name := range report.Created {
				fmt.Printf("created   %s\n", name)
			}
			for _, name := range report.Existing {
				fmt.Printf("existing  %s\n", name)
			}
			for _, name := range report.Skipped {
				fmt.Printf("skipped   %s (no statement)\n", name)
			}

			if rebuild {
				if err := e.RebuildIndexes(ctx, rc); err != nil {
					return fmt.Errorf("indexes: %w", err)
				}
				fmt.Println("Rebuild issued.")
			}

			if !report.OK {
				return fmt.Errorf("indexes: %d index(es) failed", report.Failures)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "rebuild every index after validation")
	return cmd
}

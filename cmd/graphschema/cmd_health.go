package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the store connection and the schema file",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			allOK := true

			// Check store
			provider, err := newProvider(logger)
			if err != nil {
				fmt.Printf("Store (%s): FAIL (%v)\n", cfg.Store.Backend, err)
				allOK = false
			} else {
				defer func() { _ = provider.Close() }()
				if err := provider.Ping(ctx); err != nil {
					fmt.Printf("Store (%s): FAIL (%v)\n", cfg.Store.Backend, err)
					allOK = false
				} else {
					fmt.Printf("Store (%s): OK\n", cfg.Store.Backend)
				}
			}

			// Check schema file
			registry, units, err := loadModel()
			if err != nil {
				fmt.Printf("Schema: FAIL (%v)\n", err)
				allOK = false
			} else {
				fmt.Printf("Schema: OK (%d types, %d migrations)\n", registry.Len(), len(units))
			}

			// Check namespace
			if cfg.Schema.Namespace == "" {
				fmt.Println("Namespace: FAIL (schema.namespace not set)")
				allOK = false
			} else {
				fmt.Printf("Namespace: OK (%s)\n", cfg.Schema.Namespace)
			}

			if !allOK {
				return fmt.Errorf("one or more health checks failed")
			}
			return nil
		},
	}
}

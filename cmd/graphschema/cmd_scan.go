package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/graphschema/internal/enforcer"
)

func scanCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan and weigh the declared model without touching the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			registry, _, err := loadModel()
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}

			e := enforcer.New(registry, nil, logger)
			entities, err := e.ScanSchema(enforcer.NewRunContext(cfg.Schema.Namespace, false))
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}

			if asJSON {
				return printJSON(entities)
			}
			for i, ent := range entities {
				fmt.Printf("[%d] %s (%s, weight %d)\n", i+1, ent.ResolveName(), ent.Kind, ent.Weight)
				if len(ent.Ancestors) > 0 {
					names := make([]string, len(ent.Ancestors))
					for j, a := range ent.Ancestors {
						names[j] = a.Name
					}
					fmt.Printf("    extends: %s\n", strings.Join(names, " > "))
				}
				fmt.Printf("    properties: %d | indexes: %d\n", len(ent.Properties), len(ent.Indexes))
			}
			if len(entities) == 0 {
				fmt.Println("No mapped entities found.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the weighed model as JSON")
	return cmd
}

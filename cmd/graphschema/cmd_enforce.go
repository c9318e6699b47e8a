package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/graphschema/internal/bootstrap"
	"github.com/ajitpratap0/graphschema/internal/enforcer"
	"github.com/ajitpratap0/graphschema/internal/metrics"
)

func enforceCmd() *cobra.Command {
	var (
		asJSON      bool
		showMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "enforce",
		Short: "Verify the store and run every reconciliation phase",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			registry, units, err := loadModel()
			if err != nil {
				return fmt.Errorf("enforce: %w", err)
			}
			provider, err := newProvider(logger)
			if err != nil {
				return fmt.Errorf("enforce: %w", err)
			}
			defer func() { _ = provider.Close() }()

			report, err := bootstrap.Run(ctx, cfg, provider, registry, units, logger)
			if err != nil {
				return fmt.Errorf("enforce: %w", err)
			}

			if asJSON {
				return printJSON(report)
			}
			printReport(report)
			if showMetrics {
				printMetrics()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run report as JSON")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print counters after the run")
	return cmd
}

func printReport(r *enforcer.Report) {
	fmt.Printf("Run %s (%s)\n", r.RunID, r.Duration.Round(time.Millisecond))
	fmt.Printf("  Entities:     %d\n", r.Entities)
	if s := r.Schema; s != nil {
		fmt.Printf("  Classes:      %d created, %d attributes set\n", s.Stats.ClassesCreated, s.Stats.ClassAttributesSet)
		fmt.Printf("  Properties:   %d created, %d retyped, %d attributes set\n",
			s.Stats.PropertiesCreated, s.Stats.PropertiesRetyped, s.Stats.PropertyAttributesSet)
		for _, skip := range s.Skipped {
			fmt.Printf("    skipped %s\n", skip)
		}
	}
	if ix := r.Indexes; ix != nil {
		fmt.Printf("  Indexes:      %d created, %d existing, %d failed\n", len(ix.Created), len(ix.Existing), ix.Failures)
	} else {
		fmt.Println("  Indexes:      not validated")
	}
	if r.Rebuilt {
		fmt.Println("  Rebuild:      issued")
	}
	if d := r.Data; d != nil {
		if len(d.Applied) == 0 {
			fmt.Println("  Migrations:   none")
		} else {
			fmt.Printf("  Migrations:   %s\n", strings.Join(d.Applied, ", "))
		}
	}
}

func printMetrics() {
	snap := metrics.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println("\nCounters:")
	for _, k := range keys {
		fmt.Printf("  %-45s %d\n", k, snap[k])
	}
}

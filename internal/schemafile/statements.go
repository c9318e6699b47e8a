package schemafile

import (
	"context"
	"fmt"

	"github.com/ajitpratap0/graphschema/internal/store"
)

// StatementMigration runs raw store statements in order and commits once
// all of them succeed.
type StatementMigration struct {
	ID         string
	Statements []string
}

// Name returns the migration id.
func (m *StatementMigration) Name() string { return m.ID }

// Apply executes the statements. The first failing statement aborts the
// migration; nothing is committed.
func (m *StatementMigration) Apply(ctx context.Context, sess store.Session) error {
	for i, stmt := range m.Statements {
		if err := sess.Execute(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	if err := sess.Commit(ctx); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

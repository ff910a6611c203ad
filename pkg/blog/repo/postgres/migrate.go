package postgres

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schema string

// Migrate creates the authors, posts and comments tables if they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return r.handlePostgresError("migrate", err)
	}
	return nil
}

// Reset removes every row. Intended for tests.
func (r *Repository) Reset(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `TRUNCATE comments, posts, authors`); err != nil {
		return fmt.Errorf("reset tables: %w", err)
	}
	return nil
}

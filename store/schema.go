package store

import (
	"context"
	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the voices and voice_mappings tables if missing.
// Idempotent; safe to run on every init-db invocation.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.conn(ctx).Exec(ctx, schemaSQL); err != nil {
		return WrapError("ensure schema", err)
	}
	return nil
}

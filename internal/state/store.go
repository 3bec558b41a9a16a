// Package state persists the monitoring inventory (shards, services,
// farms, projects, hosts, exporters, URLs and rules) in SQLite.
//
// The store implements core.Store. All writes are key-unique upserts so
// imports can be retried safely; the schema is managed by goose migrations
// embedded in the binary.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/promgen/pkg/core"
)

// Compile-time contract assertions.
var (
	_ core.Store     = (*SQLiteStore)(nil)
	_ core.Inventory = (*inventory)(nil)
)

// OpenStore opens the database at path, creating its parent directory when
// needed, and applies pending migrations.
func OpenStore(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	s := NewSQLiteStore(logger)
	if err := s.Open(path); err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		_ = s.Close()
		return nil, err
	}
	s.logger.Debug("inventory store ready", "path", path)
	return s, nil
}

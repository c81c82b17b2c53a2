// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/calder/automa/pkg/persistence"
	"github.com/calder/automa/pkg/persistence/file"
	"github.com/calder/automa/pkg/persistence/postgresql"
)

// NewPersistence builds a persistence backend from the database URL scheme:
// postgres:// and postgresql:// select PostgreSQL, anything else is treated
// as a file root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"),
		strings.HasPrefix(databaseURL, "postgresql://"):
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

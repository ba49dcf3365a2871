package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pumba68/qatering-sub001/pkg/persistence"
	"github.com/pumba68/qatering-sub001/pkg/persistence/file"
	"github.com/pumba68/qatering-sub001/pkg/persistence/postgresql"
)

// NewPersistence selects the store from the database URL scheme. Anything
// that is not a postgres URL is treated as a file store root, which is the
// development default.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://")), nil
	}
}

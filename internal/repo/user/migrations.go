package user

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	"github.com/mkrupp/accountdash/internal/infra/logging"
)

//go:embed migrations
var migrationsFS embed.FS

func migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, dir string, log logging.Logger) error {
	fsys, err := fs.Sub(migrationsFS, "migrations/"+dir)
	if err != nil {
		return fmt.Errorf("sub fs: %w", err)
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("new provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("up: %w", err)
	}

	for _, res := range results {
		log.DebugContext(ctx, "migration applied",
			"version", res.Source.Version,
			"duration", res.Duration,
		)
	}

	return nil
}

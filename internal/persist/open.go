package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/l1jgo/stagescript/internal/config"
)

// Open returns the configured profile repository, or nil for backend "none".
func Open(ctx context.Context, cfg config.ProfileConfig, log *zap.Logger) (ProfileRepo, error) {
	switch cfg.Backend {
	case "none", "":
		return nil, nil
	case "sqlite":
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("profile dir: %w", err)
			}
		}
		repo, err := NewSQLiteProfileRepo(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "postgres":
		db, err := NewDB(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		if err := RunMigrations(ctx, db.Pool); err != nil {
			db.Close()
			return nil, err
		}
		return NewPGProfileRepo(db), nil
	}
	return nil, fmt.Errorf("unknown profile backend %q", cfg.Backend)
}

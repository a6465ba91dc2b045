package audit

import (
	"context"

	"go.uber.org/zap"

	"classaccess/internal/store"
)

// Open connects to the audit database and migrates it. Any failure is logged
// and yields nil values, so callers keep running with auditing disabled.
func Open(ctx context.Context, dsn string, log *zap.Logger) (*store.DB, *Repository) {
	db, err := store.NewDB(dsn)
	if err != nil {
		log.Warn("audit db not reachable, auditing disabled", zap.Error(err))
		return nil, nil
	}
	repo := NewRepository(db.Client, db.Driver)
	if err := repo.Migrate(ctx); err != nil {
		log.Warn("audit migrate failed, auditing disabled", zap.Error(err))
		_ = db.Close()
		return nil, nil
	}
	return db, repo
}

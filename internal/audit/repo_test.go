package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classaccess/internal/store"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := store.NewDB(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepository(db.Client, db.Driver)
	require.NoError(t, repo.Migrate(context.Background()))
	require.NoError(t, repo.Migrate(context.Background()), "migrate is idempotent")
	return repo
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	base := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

	for i, action := range []string{ActionUserStatus, ActionDeviceCreated, ActionUserStatus} {
		_, err := repo.Record(ctx, Event{ActorID: 3, Action: action, Subject: "usuario", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.Equal(base.Add(2*time.Minute)), "newest first")
	assert.NotEmpty(t, all[0].ID)

	statuses, err := repo.List(ctx, ActionUserStatus, 10, 0)
	require.NoError(t, err)
	assert.Len(t, statuses, 2)

	page, err := repo.List(ctx, "", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ActionDeviceCreated, page[0].Action)

	n, err := repo.Count(ctx, ActionUserStatus)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecord_RequiresAction(t *testing.T) {
	_, err := newRepo(t).Record(context.Background(), Event{ActorID: 1})
	assert.Error(t, err)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1, $2", (&Repository{driver: "pgx"}).placeholders(1, 2))
	assert.Equal(t, "?, ?", (&Repository{driver: "sqlite3"}).placeholders(1, 2))
}

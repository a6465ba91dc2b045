package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverFor(t *testing.T) {
	assert.Equal(t, "pgx", DriverFor("postgres://u:p@localhost/db"))
	assert.Equal(t, "pgx", DriverFor("postgresql://localhost/db"))
	assert.Equal(t, "sqlite3", DriverFor("audit.db"))
}

func TestNewDB_Sqlite(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, "sqlite3", db.Driver)
	assert.True(t, db.Healthy(context.Background()))
}

func TestNewDB_UnreachablePostgres(t *testing.T) {
	db, err := NewDB("postgres://u:p@127.0.0.1:1/audit?connect_timeout=1")
	assert.Error(t, err)
	assert.Nil(t, db)
	assert.False(t, db.Healthy(context.Background()))
}

func TestNilStoresAreUnhealthy(t *testing.T) {
	var db *DB
	var r *Redis
	assert.False(t, db.Healthy(context.Background()))
	assert.False(t, r.Healthy(context.Background()))
	assert.NoError(t, db.Close())
}

package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classaccess/internal/backend"
	"classaccess/internal/model"
)

type fakeSource struct {
	users    model.Directory
	history  map[int][]model.Record
	failFor  map[int]bool
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	listErr  error
	calls    atomic.Int32
}

func (f *fakeSource) ListUsers(ctx context.Context, cred backend.Credential) (model.Directory, error) {
	f.calls.Add(1)
	return f.users, f.listErr
}

func (f *fakeSource) StudentHistory(ctx context.Context, cred backend.Credential, userID int) ([]model.Record, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	if f.failFor[userID] {
		return nil, errors.New("boom")
	}
	recs := f.history[userID]
	out := make([]model.Record, len(recs))
	copy(out, recs)
	return out, nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *memCache) Set(ctx context.Context, key string, val any, ttl time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = raw
	return nil
}

func manyUsers(n int) (model.Directory, map[int][]model.Record) {
	var dir model.Directory
	hist := map[int][]model.Record{}
	for i := 1; i <= n; i++ {
		dir.Students = append(dir.Students, model.User{ID: i, Privilege: model.PrivilegeStudent})
		// history payloads do not always carry the owner id
		hist[i] = []model.Record{{ID: i * 10, Date: "2024-01-10", CheckIn: "08:00"}}
	}
	return dir, hist
}

func TestLoader_FetchAssignsOwnersInBatches(t *testing.T) {
	dir, hist := manyUsers(23)
	src := &fakeSource{users: dir, history: hist, failFor: map[int]bool{5: true}}
	l := NewLoader(src, nil, time.Minute, 10, nil)

	ds, err := l.Fetch(context.Background(), backend.Credential{})
	require.NoError(t, err)

	assert.Len(t, ds.Users, 23)
	assert.Len(t, ds.Records, 22, "a failed history contributes nothing")
	for _, r := range ds.Records {
		assert.Equal(t, r.ID/10, r.UserID)
	}
	assert.LessOrEqual(t, int(src.maxSeen.Load()), 10)
}

func TestLoader_ListUsersErrorPropagates(t *testing.T) {
	src := &fakeSource{listErr: errors.New("down")}
	l := NewLoader(src, nil, time.Minute, 10, nil)

	_, err := l.Fetch(context.Background(), backend.Credential{})
	assert.ErrorContains(t, err, "down")
}

func TestLoader_LoadUsesCache(t *testing.T) {
	dir, hist := manyUsers(2)
	src := &fakeSource{users: dir, history: hist}
	l := NewLoader(src, &memCache{}, time.Minute, 10, nil)

	first, err := l.Load(context.Background(), backend.Credential{})
	require.NoError(t, err)
	second, err := l.Load(context.Background(), backend.Credential{})
	require.NoError(t, err)

	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, len(first.Records), len(second.Records))
}

func TestFeed_StaleCommitIsDiscarded(t *testing.T) {
	var stale int
	f := NewFeed(func() { stale++ })

	older := f.Begin()
	newer := f.Begin()

	assert.True(t, f.Commit(newer, Dataset{Users: []model.User{{ID: 2}}}))
	assert.False(t, f.Commit(older, Dataset{Users: []model.User{{ID: 1}}}))

	ds, ok := f.Current()
	require.True(t, ok)
	assert.Equal(t, 2, ds.Users[0].ID)
	assert.Equal(t, 1, stale)
}

func TestFeed_Fresh(t *testing.T) {
	f := NewFeed(nil)
	now := time.Now()
	assert.False(t, f.Fresh(time.Minute, now))

	f.Commit(f.Begin(), Dataset{FetchedAt: now.Add(-30 * time.Second)})
	assert.True(t, f.Fresh(time.Minute, now))
	assert.False(t, f.Fresh(10*time.Second, now))
}

func TestLoader_RefreshServesFreshFeed(t *testing.T) {
	dir, hist := manyUsers(1)
	src := &fakeSource{users: dir, history: hist}
	l := NewLoader(src, nil, time.Minute, 10, nil)
	feed := NewFeed(nil)

	_, err := l.Refresh(context.Background(), feed, backend.Credential{}, false)
	require.NoError(t, err)
	_, err = l.Refresh(context.Background(), feed, backend.Credential{}, false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.calls.Load())

	_, err = l.Refresh(context.Background(), feed, backend.Credential{}, true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestLoader_RefreshKeepsPreviousDataOnError(t *testing.T) {
	dir, hist := manyUsers(1)
	src := &fakeSource{users: dir, history: hist}
	l := NewLoader(src, nil, time.Minute, 10, nil)
	feed := NewFeed(nil)

	_, err := l.Refresh(context.Background(), feed, backend.Credential{}, false)
	require.NoError(t, err)

	src.listErr = errors.New("down")
	ds, err := l.Refresh(context.Background(), feed, backend.Credential{}, true)
	require.NoError(t, err)
	assert.Len(t, ds.Users, 1)
}

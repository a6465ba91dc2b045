package attendance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"classaccess/internal/backend"
	"classaccess/internal/model"
)

const datasetCacheKey = "classaccess:attendance:dataset"

// Source is the part of the backend the loader reads from.
type Source interface {
	ListUsers(ctx context.Context, cred backend.Credential) (model.Directory, error)
	StudentHistory(ctx context.Context, cred backend.Credential, userID int) ([]model.Record, error)
}

// Cache stores the assembled dataset between requests.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, val any, ttl time.Duration) error
}

// Loader assembles the admin dataset: every user plus every user's history.
type Loader struct {
	source    Source
	cache     Cache
	ttl       time.Duration
	batchSize int
	log       *zap.Logger
	now       func() time.Time
}

// NewLoader builds a loader. cache may be nil.
func NewLoader(source Source, cache Cache, ttl time.Duration, batchSize int, log *zap.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = 10
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{source: source, cache: cache, ttl: ttl, batchSize: batchSize, log: log, now: time.Now}
}

// Load returns the cached dataset when present, otherwise fetches it.
func (l *Loader) Load(ctx context.Context, cred backend.Credential) (Dataset, error) {
	if l.cache != nil {
		var ds Dataset
		hit, err := l.cache.Get(ctx, datasetCacheKey, &ds)
		if err != nil {
			l.log.Warn("attendance cache read failed", zap.Error(err))
		} else if hit {
			return ds, nil
		}
	}
	return l.Fetch(ctx, cred)
}

// Fetch always goes to the backend and refreshes the cache.
func (l *Loader) Fetch(ctx context.Context, cred backend.Credential) (Dataset, error) {
	dir, err := l.source.ListUsers(ctx, cred)
	if err != nil {
		return Dataset{}, fmt.Errorf("list users: %w", err)
	}
	users := dir.All()

	histories := make([][]model.Record, len(users))
	for start := 0; start < len(users); start += l.batchSize {
		end := min(start+l.batchSize, len(users))
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i, u := i, users[i]
			g.Go(func() error {
				recs, err := l.source.StudentHistory(gctx, cred, u.ID)
				if err != nil {
					l.log.Warn("history fetch failed", zap.Int("user_id", u.ID), zap.Error(err))
					return nil
				}
				for j := range recs {
					recs[j].UserID = u.ID
				}
				histories[i] = recs
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
	}

	ds := Dataset{Users: users, FetchedAt: l.now()}
	for _, h := range histories {
		ds.Records = append(ds.Records, h...)
	}

	if l.cache != nil {
		if err := l.cache.Set(ctx, datasetCacheKey, ds, l.ttl); err != nil {
			l.log.Warn("attendance cache write failed", zap.Error(err))
		}
	}
	return ds, nil
}

// Refresh serves the feed's dataset while it is fresh, and otherwise starts
// a new fetch under a feed ticket. force bypasses both the feed and the
// cache. A fetch that loses to a newer one still returns the newest applied
// dataset.
func (l *Loader) Refresh(ctx context.Context, feed *Feed, cred backend.Credential, force bool) (Dataset, error) {
	if !force && feed.Fresh(l.ttl, l.now()) {
		ds, _ := feed.Current()
		return ds, nil
	}

	ticket := feed.Begin()
	var (
		ds  Dataset
		err error
	)
	if force {
		ds, err = l.Fetch(ctx, cred)
	} else {
		ds, err = l.Load(ctx, cred)
	}
	if err != nil {
		if cur, ok := feed.Current(); ok {
			l.log.Warn("attendance refresh failed, serving previous data", zap.Error(err))
			return cur, nil
		}
		return Dataset{}, err
	}
	if feed.Commit(ticket, ds) {
		return ds, nil
	}
	if cur, ok := feed.Current(); ok {
		return cur, nil
	}
	return ds, nil
}

package repository

import (
	"context"
	"encoding/json"
	"time"

	"go-pos/pkg/model"

	log "github.com/sirupsen/logrus"
)

const tablesKey = "pos:tables"

// TableSource is where authoritative table state comes from.
type TableSource interface {
	ListTables(ctx context.Context) ([]model.Table, error)
}

// TableRepository caches the table list. Cached data is only a read shortcut: every
// mutation is followed by Refetch, and a cache failure falls through to the backend.
type TableRepository struct {
	cache Cache
	ttl   time.Duration
	log   *log.Entry
}

func NewTableRepository(cache Cache, ttl time.Duration, logger *log.Entry) *TableRepository {
	if cache == nil {
		cache = NoCache{}
	}
	return &TableRepository{cache: cache, ttl: ttl, log: logger.WithField("component", "tables")}
}

func (r *TableRepository) List(ctx context.Context, src TableSource) ([]model.Table, error) {
	b, ok, err := r.cache.Get(ctx, tablesKey)
	if err != nil {
		r.log.WithError(err).Warn("table cache read failed")
	}
	if ok {
		var tables []model.Table
		if err := json.Unmarshal(b, &tables); err == nil {
			return tables, nil
		}
		r.log.Warn("dropping undecodable cached tables")
	}
	return r.fetch(ctx, src)
}

func (r *TableRepository) Invalidate(ctx context.Context) error {
	return r.cache.Del(ctx, tablesKey)
}

// Refetch drops the cached list and loads a fresh one.
func (r *TableRepository) Refetch(ctx context.Context, src TableSource) ([]model.Table, error) {
	if err := r.Invalidate(ctx); err != nil {
		r.log.WithError(err).Warn("table cache invalidate failed")
	}
	return r.fetch(ctx, src)
}

func (r *TableRepository) fetch(ctx context.Context, src TableSource) ([]model.Table, error) {
	tables, err := src.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	if r.ttl > 0 {
		if b, err := json.Marshal(tables); err == nil {
			if err := r.cache.Set(ctx, tablesKey, b, r.ttl); err != nil {
				r.log.WithError(err).Warn("table cache write failed")
			}
		}
	}
	return tables, nil
}

// Bind ties the repository to one source, e.g. a session-scoped client.
func (r *TableRepository) Bind(src TableSource) *Tables {
	return &Tables{repo: r, src: src}
}

type Tables struct {
	repo *TableRepository
	src  TableSource
}

func (t *Tables) List(ctx context.Context) ([]model.Table, error) { return t.repo.List(ctx, t.src) }

func (t *Tables) Refetch(ctx context.Context) ([]model.Table, error) {
	return t.repo.Refetch(ctx, t.src)
}

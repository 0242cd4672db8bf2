package service

import (
	"context"
	"log"
	"time"

	"contest_registry/internal/common"
	"contest_registry/internal/domain/model"
	"contest_registry/internal/domain/repository"
)

// StatsCache stores computed statistics between writes. A nil cache disables caching.
type StatsCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context, keys ...string) error
}

// ContestantIndexer is the full-text index behind contestant search. A nil indexer
// leaves search to the database.
type ContestantIndexer interface {
	IndexContestant(ctx context.Context, c *model.Contestant) error
	DeleteContestant(ctx context.Context, id uint) error
	SearchContestants(ctx context.Context, term string, supervisorID *uint, limit int) ([]uint, error)
}

// Clock returns the current time. Services take one so tests can pin "today".
type Clock func() time.Time

type noopCache struct{}

func (noopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (noopCache) Set(context.Context, string, any) error         { return nil }
func (noopCache) Invalidate(context.Context, ...string) error    { return nil }

func orNoopCache(c StatsCache) StatsCache {
	if c == nil {
		return noopCache{}
	}
	return c
}

func orSystemClock(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// ListResult is one page of a listing plus the unpaginated total.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
}

// PageRequest is the 1-based page a caller asked for.
type PageRequest struct {
	Page     int
	PageSize int
}

func (p PageRequest) normalized() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = repository.DefaultPageSize
	}
	return p
}

func (p PageRequest) repoPage() repository.Page {
	p = p.normalized()
	return repository.Page{Limit: p.PageSize, Offset: (p.Page - 1) * p.PageSize}
}

func newListResult[T any](items []T, total int64, p PageRequest) *ListResult[T] {
	p = p.normalized()
	if items == nil {
		items = []T{}
	}
	return &ListResult[T]{Items: items, TotalCount: total, Page: p.Page, PageSize: p.PageSize}
}

// parseDateField parses value into ve-reported errors; blank values are left zero
// and reported only when required.
func parseDateField(ve *common.ValidationError, field, value string, required bool) time.Time {
	if value == "" {
		if required {
			ve.Add(field, "is required")
		}
		return time.Time{}
	}
	t, err := model.ParseDate(value)
	if err != nil {
		ve.Add(field, "must be a date in YYYY-MM-DD format")
	}
	return t
}

// invalidateStats drops cached statistics. Failures only cost freshness so they are logged.
func invalidateStats(ctx context.Context, c StatsCache, keys ...string) {
	if err := c.Invalidate(ctx, keys...); err != nil {
		log.Printf("WARN: failed to invalidate statistics cache %v: %v", keys, err)
	}
}

// cachedStats serves key from the cache or computes and stores it.
func cachedStats[T any](ctx context.Context, c StatsCache, key string, compute func() (T, error)) (T, error) {
	var cached T
	hit, err := c.Get(ctx, key, &cached)
	if err != nil {
		log.Printf("WARN: statistics cache read %s failed: %v", key, err)
	} else if hit {
		return cached, nil
	}

	value, err := compute()
	if err != nil {
		return value, err
	}
	if err := c.Set(ctx, key, value); err != nil {
		log.Printf("WARN: statistics cache write %s failed: %v", key, err)
	}
	return value, nil
}

package utils

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Key 命名要跟 middlewares.CacheKeyFrom 一致
const (
	CacheEventsList = "cache:events:list:"
	CacheEventItem  = "cache:events:item:"
	CacheClubs      = "cache:clubs:"
)

// CacheInvalidator drops cached GET responses after writes. A nil
// invalidator (no Redis configured) is a no-op.
type CacheInvalidator struct{ rdb *redis.Client }

func NewCacheInvalidator(rdb *redis.Client) *CacheInvalidator {
	if rdb == nil {
		return nil
	}
	return &CacheInvalidator{rdb}
}

func (ci *CacheInvalidator) PurgeEventsList(ctx context.Context) {
	ci.purge(ctx, CacheEventsList+"*")
}

// item key 保留原始 id，可以精準刪（含 calendar.ics 等子路徑）
func (ci *CacheInvalidator) PurgeEventItem(ctx context.Context, id string) {
	ci.purge(ctx, CacheEventItem+id+":*")
}

// PurgeEvent 清列表 + 單筆，事件或報名數變動後呼叫
func (ci *CacheInvalidator) PurgeEvent(ctx context.Context, id string) {
	ci.PurgeEventsList(ctx)
	ci.PurgeEventItem(ctx, id)
}

func (ci *CacheInvalidator) PurgeClubs(ctx context.Context) {
	ci.purge(ctx, CacheClubs+"*")
}

func (ci *CacheInvalidator) purge(ctx context.Context, pattern string) {
	if ci == nil {
		return
	}
	iter := ci.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		_ = ci.rdb.Del(ctx, iter.Val()).Err()
	}
}

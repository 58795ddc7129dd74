package cache

import (
	"context"
	"log/slog"
)

func logCacheError(ctx context.Context, msg string, err error, key string) {
	slog.ErrorContext(ctx, msg,
		"error", err,
		"key", key)
}

// SafeDelete deletes cache keys, logging instead of failing
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateUserCache drops every cached view of a user along with the stats snapshot.
func InvalidateUserCache(ctx context.Context, cm *CacheManager, userID string) {
	SafeDelete(ctx, cm.User, "id:"+userID)
	InvalidateStatsCache(ctx, cm)
}

// InvalidateStatsCache drops the grouped user counts.
func InvalidateStatsCache(ctx context.Context, cm *CacheManager) {
	SafeDelete(ctx, cm.Stats, StatsRoleCountsKey, StatsStatusCountsKey)
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
)

// ProgressCache stores course progress views in Redis. A nil client disables caching.
type ProgressCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewProgressCache constructs the cache.
func NewProgressCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *ProgressCache {
	return &ProgressCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "progress_cache").Logger(),
	}
}

func progressCacheKey(userID, courseID uint) string {
	return fmt.Sprintf("progress:course:%d:user:%d", courseID, userID)
}

// Get returns the cached view and whether it was found.
func (c *ProgressCache) Get(ctx context.Context, userID, courseID uint) (dto.CourseProgressResponse, bool) {
	if c == nil || c.client == nil {
		return dto.CourseProgressResponse{}, false
	}

	cached, err := c.client.Get(ctx, progressCacheKey(userID, courseID)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Msg("failed to read progress cache")
		}
		return dto.CourseProgressResponse{}, false
	}

	var response dto.CourseProgressResponse
	if err := json.Unmarshal([]byte(cached), &response); err != nil {
		c.logger.Warn().Err(err).Msg("discarding malformed progress cache entry")
		return dto.CourseProgressResponse{}, false
	}

	return response, true
}

func (c *ProgressCache) Set(ctx context.Context, response dto.CourseProgressResponse) {
	if c == nil || c.client == nil {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, progressCacheKey(response.UserID, response.CourseID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to store progress cache")
	}
}

// Invalidate drops the cached views of the given students in a course.
func (c *ProgressCache) Invalidate(ctx context.Context, courseID uint, userIDs ...uint) {
	if c == nil || c.client == nil || len(userIDs) == 0 {
		return
	}

	keys := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		keys = append(keys, progressCacheKey(userID, courseID))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to invalidate progress cache")
	}
}

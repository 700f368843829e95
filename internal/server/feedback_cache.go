package server

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// feedbackCache keeps admin dashboard counts in Redis for a short TTL. A nil
// cache is valid and turns every operation into a no-op, so Redis stays
// optional.
type feedbackCache struct {
	client *redis.Client
	ttl    time.Duration
}

func newFeedbackCache(addr, password string, ttl time.Duration) *feedbackCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &feedbackCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		ttl: ttl,
	}
}

func countCacheKey(imageType string, resolved *bool) string {
	if imageType == "" {
		imageType = "all"
	}
	state := "any"
	if resolved != nil {
		state = strconv.FormatBool(*resolved)
	}
	return fmt.Sprintf("feedback:count:%s:%s", imageType, state)
}

func (fc *feedbackCache) getCount(imageType string, resolved *bool) (int64, bool) {
	if fc == nil {
		return 0, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	raw, err := fc.client.Get(ctx, countCacheKey(imageType, resolved)).Result()
	if err != nil {
		return 0, false
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return count, true
}

func (fc *feedbackCache) setCount(imageType string, resolved *bool, count int64) {
	if fc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := fc.client.Set(ctx, countCacheKey(imageType, resolved), count, fc.ttl).Err(); err != nil {
		log.Printf("feedback cache set failed err=%v", err)
	}
}

// invalidateCounts drops every cached count combination after a write that
// changes resolution state.
func (fc *feedbackCache) invalidateCounts() {
	if fc == nil {
		return
	}
	resolvedTrue, resolvedFalse := true, false
	states := []*bool{nil, &resolvedTrue, &resolvedFalse}
	keys := make([]string, 0, 9)
	for _, imageType := range []string{"all", "real", "ai"} {
		for _, state := range states {
			keys = append(keys, countCacheKey(imageType, state))
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := fc.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("feedback cache invalidate failed err=%v", err)
	}
}

package question

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedSource wraps a Source with a Redis-backed cache keyed on
// (category, difficulty, n), reducing load on the question pool for the
// popular tuples. Entries expire after ttl; a cache miss or Redis error
// falls through to the underlying Source.
type CachedSource struct {
	next   Source
	client *redis.Client
	ttl    time.Duration
}

// NewCachedSource builds a CachedSource.
func NewCachedSource(next Source, client *redis.Client, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedSource{next: next, client: client, ttl: ttl}
}

func cacheKey(category, difficulty string, n int) string {
	return fmt.Sprintf("question:pool:%s:%s:%d", category, difficulty, n)
}

// FetchRandomQuestions implements Source.
func (c *CachedSource) FetchRandomQuestions(ctx context.Context, category, difficulty string, n int) ([]RawQuestion, error) {
	key := cacheKey(category, difficulty, n)

	if cached, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var qs []RawQuestion
		if jsonErr := json.Unmarshal(cached, &qs); jsonErr == nil {
			return qs, nil
		}
	}

	qs, err := c.next.FetchRandomQuestions(ctx, category, difficulty, n)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(qs); err == nil {
		c.client.Set(ctx, key, payload, c.ttl)
	}

	return qs, nil
}

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "beach:messages:history"

// Redis keeps the history in a capped list, newest at the head.
type Redis struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

func NewRedis(client *redis.Client, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key, now: time.Now}
}

func (r *Redis) Append(ctx context.Context, text string) (Entry, error) {
	e := newEntry(text, r.now())
	raw, err := json.Marshal(e)
	if err != nil {
		return Entry{}, err
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.key, raw)
	pipe.LTrim(ctx, r.key, 0, MaxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return Entry{}, fmt.Errorf("append history: %w", err)
	}
	return e, nil
}

func (r *Redis) List(ctx context.Context) ([]Entry, error) {
	vals, err := r.client.LRange(ctx, r.key, 0, MaxEntries-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	out := make([]Entry, 0, len(vals))
	for _, v := range vals {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *Redis) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

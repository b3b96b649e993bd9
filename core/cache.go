package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

const movieCacheTTL = 5 * time.Minute

// MovieCache is a read-through cache for the movie catalog. Movie reads
// dominate this workload, so details and listing pages are kept in redis
// and dropped on any movie mutation. A nil *MovieCache is valid and
// behaves as a permanent miss, which keeps the service usable without
// redis configured.
type MovieCache struct {
	client *redis.Client
}

func NewMovieCache(client *redis.Client) *MovieCache {
	return &MovieCache{client: client}
}

type cachedMovieList struct {
	Items []Movie `json:"items"`
	Total int     `json:"total"`
}

func movieKey(id int64) string { return fmt.Sprintf("movies:detail:%d", id) }

func movieListKey(page, per int) string { return fmt.Sprintf("movies:list:%d:%d", page, per) }

// GetMovie returns a cached movie detail, or ok=false on miss.
func (mc *MovieCache) GetMovie(ctx context.Context, id int64) (*Movie, bool) {
	if mc == nil {
		return nil, false
	}
	data, err := mc.client.Get(ctx, movieKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var m Movie
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}
	return &m, true
}

func (mc *MovieCache) SetMovie(ctx context.Context, m *Movie) {
	if mc == nil || m == nil {
		return
	}
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	// Cache write failures are ignored; the database stays authoritative.
	_ = mc.client.Set(ctx, movieKey(m.ID), data, movieCacheTTL).Err()
}

// GetList returns a cached listing page, or ok=false on miss.
func (mc *MovieCache) GetList(ctx context.Context, page, perPage int) ([]Movie, int, bool) {
	if mc == nil {
		return nil, 0, false
	}
	data, err := mc.client.Get(ctx, movieListKey(page, perPage)).Bytes()
	if err != nil {
		return nil, 0, false
	}
	var cl cachedMovieList
	if err := json.Unmarshal(data, &cl); err != nil {
		return nil, 0, false
	}
	return cl.Items, cl.Total, true
}

func (mc *MovieCache) SetList(ctx context.Context, page, perPage int, items []Movie, total int) {
	if mc == nil {
		return
	}
	data, err := json.Marshal(cachedMovieList{Items: items, Total: total})
	if err != nil {
		return
	}
	_ = mc.client.Set(ctx, movieListKey(page, perPage), data, movieCacheTTL).Err()
}

// Invalidate drops the detail entry for id and every cached listing page.
// Called after any movie create/update/delete.
func (mc *MovieCache) Invalidate(ctx context.Context, id int64) {
	if mc == nil {
		return
	}
	_ = mc.client.Del(ctx, movieKey(id)).Err()

	iter := mc.client.Scan(ctx, 0, "movies:list:*", 100).Iterator()
	keys := make([]string, 0, 16)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		_ = mc.client.Del(ctx, keys...).Err()
	}
}

package core

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) *MovieCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewMovieCache(client)
}

func TestMovieCacheDetail(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)

	if _, ok := cache.GetMovie(ctx, 1); ok {
		t.Fatalf("expected miss on empty cache")
	}

	m := &Movie{ID: 1, Title: "Stalker", Director: "Andrei Tarkovsky", Genre: "Sci-Fi", ReleaseYear: 1979}
	cache.SetMovie(ctx, m)

	got, ok := cache.GetMovie(ctx, 1)
	if !ok {
		t.Fatalf("expected hit after SetMovie")
	}
	if got.Title != m.Title || got.ID != m.ID {
		t.Fatalf("cached movie mismatch: %+v", got)
	}
}

func TestMovieCacheList(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)

	items := []Movie{{ID: 1, Title: "Stalker"}, {ID: 2, Title: "Solaris"}}
	cache.SetList(ctx, 1, 20, items, 2)

	got, total, ok := cache.GetList(ctx, 1, 20)
	if !ok {
		t.Fatalf("expected hit after SetList")
	}
	if total != 2 || len(got) != 2 || got[1].Title != "Solaris" {
		t.Fatalf("cached list mismatch: total=%d items=%+v", total, got)
	}

	// A different page is a distinct key.
	if _, _, ok := cache.GetList(ctx, 2, 20); ok {
		t.Fatalf("expected miss for uncached page")
	}
}

func TestMovieCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)

	cache.SetMovie(ctx, &Movie{ID: 1, Title: "Stalker"})
	cache.SetMovie(ctx, &Movie{ID: 2, Title: "Solaris"})
	cache.SetList(ctx, 1, 20, []Movie{{ID: 1}, {ID: 2}}, 2)
	cache.SetList(ctx, 2, 20, nil, 2)

	cache.Invalidate(ctx, 1)

	if _, ok := cache.GetMovie(ctx, 1); ok {
		t.Fatalf("expected detail 1 to be dropped")
	}
	// Other details survive; every listing page is dropped.
	if _, ok := cache.GetMovie(ctx, 2); !ok {
		t.Fatalf("expected detail 2 to survive")
	}
	if _, _, ok := cache.GetList(ctx, 1, 20); ok {
		t.Fatalf("expected list page 1 to be dropped")
	}
	if _, _, ok := cache.GetList(ctx, 2, 20); ok {
		t.Fatalf("expected list page 2 to be dropped")
	}
}

func TestNilMovieCache(t *testing.T) {
	ctx := context.Background()
	var cache *MovieCache

	// All operations are safe no-ops without redis configured.
	cache.SetMovie(ctx, &Movie{ID: 1})
	cache.SetList(ctx, 1, 20, nil, 0)
	cache.Invalidate(ctx, 1)
	if _, ok := cache.GetMovie(ctx, 1); ok {
		t.Fatalf("nil cache must always miss")
	}
	if _, _, ok := cache.GetList(ctx, 1, 20); ok {
		t.Fatalf("nil cache must always miss")
	}
}

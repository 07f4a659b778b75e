package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"cardmass/domain"
)

type stubBackend struct {
	fetchCardsFn func(ctx context.Context, orgID string, includeArchived bool) ([]domain.Card, error)
	updateCardFn func(ctx context.Context, orgID string, patch domain.CardPatch, next domain.Card) error
}

func (s *stubBackend) GetCard(ctx context.Context, orgID, id string) (domain.Card, error) {
	return domain.Card{}, errors.New("unexpected GetCard call")
}

func (s *stubBackend) FetchCards(ctx context.Context, orgID string, includeArchived bool) ([]domain.Card, error) {
	if s.fetchCardsFn == nil {
		return nil, errors.New("unexpected FetchCards call")
	}
	return s.fetchCardsFn(ctx, orgID, includeArchived)
}

func (s *stubBackend) InsertCard(ctx context.Context, card domain.Card) error {
	return nil
}

func (s *stubBackend) UpdateCard(ctx context.Context, orgID string, patch domain.CardPatch, next domain.Card) error {
	if s.updateCardFn == nil {
		return errors.New("unexpected UpdateCard call")
	}
	return s.updateCardFn(ctx, orgID, patch, next)
}

func (s *stubBackend) DeleteCard(ctx context.Context, orgID, id string) error {
	return nil
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheFetchCardsMissThenHit(t *testing.T) {
	mr, client := newMiniredis(t)
	ctx := context.Background()
	expected := []domain.Card{{ID: "c1", OrgID: "org1", Text: "hi", BoardAreas: domain.BoardAreas{"b1": "Todo"}, BoardOrders: domain.BoardOrders{"b1": 2}}}

	var calls int
	cache := NewCache(&stubBackend{
		fetchCardsFn: func(ctx context.Context, orgID string, includeArchived bool) ([]domain.Card, error) {
			calls++
			return expected, nil
		},
	}, client, time.Minute)

	for i := 0; i < 2; i++ {
		got, err := cache.FetchCards(ctx, "org1", false)
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if len(got) != 1 || got[0].BoardAreas["b1"] != "Todo" {
			t.Fatalf("unexpected cards %+v", got)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one backend call, got %d", calls)
	}
	if !mr.Exists(cardsCacheKey("org1", false)) {
		t.Fatalf("expected cached listing")
	}
	if ttl := mr.TTL(cardsCacheKey("org1", false)); ttl != time.Minute {
		t.Fatalf("expected ttl of one minute, got %v", ttl)
	}

	if _, err := cache.FetchCards(ctx, "org1", true); err != nil {
		t.Fatalf("fetch archived: %v", err)
	}
	if calls != 2 {
		t.Fatalf("archived listing must be cached separately, got %d calls", calls)
	}
}

func TestCacheUpdateEvictsEvenOnError(t *testing.T) {
	mr, client := newMiniredis(t)
	ctx := context.Background()
	mr.Set(cardsCacheKey("org1", false), "[]")
	mr.Set(cardsCacheKey("org1", true), "[]")
	mr.Set(cardsCacheKey("org2", false), "[]")

	cache := NewCache(&stubBackend{
		updateCardFn: func(ctx context.Context, orgID string, patch domain.CardPatch, next domain.Card) error {
			return errors.New("boom")
		},
	}, client, time.Minute)

	if err := cache.UpdateCard(ctx, "org1", domain.CardPatch{CardID: "c1"}, domain.Card{}); err == nil {
		t.Fatalf("expected backend error")
	}
	if mr.Exists(cardsCacheKey("org1", false)) || mr.Exists(cardsCacheKey("org1", true)) {
		t.Fatalf("expected org1 listings evicted")
	}
	if !mr.Exists(cardsCacheKey("org2", false)) {
		t.Fatalf("org2 listing must survive")
	}
}

func TestCacheDropsCorruptEntries(t *testing.T) {
	mr, client := newMiniredis(t)
	ctx := context.Background()
	mr.Set(cardsCacheKey("org1", false), "not json")

	cache := NewCache(&stubBackend{
		fetchCardsFn: func(ctx context.Context, orgID string, includeArchived bool) ([]domain.Card, error) {
			return []domain.Card{{ID: "fresh"}}, nil
		},
	}, client, 0)

	got, err := cache.FetchCards(ctx, "org1", false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 1 || got[0].ID != "fresh" {
		t.Fatalf("unexpected cards %+v", got)
	}
	if mr.Exists(cardsCacheKey("org1", false)) {
		t.Fatalf("zero ttl must not store, corrupt entry must be removed")
	}
}

func TestCacheWithoutRedisPassesThrough(t *testing.T) {
	var calls int
	cache := NewCache(&stubBackend{
		fetchCardsFn: func(ctx context.Context, orgID string, includeArchived bool) ([]domain.Card, error) {
			calls++
			return nil, nil
		},
	}, nil, time.Minute)
	for i := 0; i < 2; i++ {
		if _, err := cache.FetchCards(context.Background(), "org1", false); err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected every call to reach the backend, got %d", calls)
	}
}

func TestCompiledAreasCachedPerVersion(t *testing.T) {
	mr, client := newMiniredis(t)
	ctx := context.Background()
	cache := NewCache(&stubBackend{}, client, time.Minute)
	b := domain.Board{ID: "b1", OrgID: "org1", Rows: 2, Cols: 2, Version: 1, Areas: []domain.Area{
		{Label: "Todo", Tiles: []domain.Tile{{Row: 0, Col: 0}, {Row: 1, Col: 1}}},
	}}
	boxes := cache.CompiledAreas(ctx, b)
	if len(boxes) != 1 || boxes[0].MaxRow != 1 || boxes[0].MaxCol != 1 {
		t.Fatalf("unexpected boxes %+v", boxes)
	}
	if !mr.Exists(areasCacheKey("org1", "b1", 1)) {
		t.Fatalf("expected compiled areas cached")
	}

	// A stale cached value for the same version is served as is.
	mr.Set(areasCacheKey("org1", "b1", 1), `[{"label":"cached"}]`)
	if got := cache.CompiledAreas(ctx, b); len(got) != 1 || got[0].Label != "cached" {
		t.Fatalf("expected cached boxes, got %+v", got)
	}
	b.Version = 2
	if got := cache.CompiledAreas(ctx, b); got[0].Label != "todo" {
		t.Fatalf("new version must recompile, got %+v", got)
	}
}

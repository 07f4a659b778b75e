package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"cardmass/domain"
	"cardmass/grid"
)

type backend interface {
	GetCard(ctx context.Context, orgID, id string) (domain.Card, error)
	FetchCards(ctx context.Context, orgID string, includeArchived bool) ([]domain.Card, error)
	InsertCard(ctx context.Context, card domain.Card) error
	UpdateCard(ctx context.Context, orgID string, patch domain.CardPatch, next domain.Card) error
	DeleteCard(ctx context.Context, orgID, id string) error
}

// Cache wraps a Storage instance with Redis-backed caching for card listings
// and compiled board areas.
type Cache struct {
	*Storage
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Storage wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}

	c := &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
	if s, ok := base.(*Storage); ok {
		c.Storage = s
	}
	return c
}

func (c *Cache) GetCard(ctx context.Context, orgID, id string) (domain.Card, error) {
	return c.base.GetCard(ctx, orgID, id)
}

func (c *Cache) FetchCards(ctx context.Context, orgID string, includeArchived bool) ([]domain.Card, error) {
	key := cardsCacheKey(orgID, includeArchived)
	var cards []domain.Card
	if c.load(ctx, key, &cards) {
		return cards, nil
	}

	cards, err := c.base.FetchCards(ctx, orgID, includeArchived)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, cards)
	return cards, nil
}

func (c *Cache) InsertCard(ctx context.Context, card domain.Card) error {
	if err := c.base.InsertCard(ctx, card); err != nil {
		return err
	}
	c.evict(ctx, card.OrgID)
	return nil
}

func (c *Cache) UpdateCard(ctx context.Context, orgID string, patch domain.CardPatch, next domain.Card) error {
	err := c.base.UpdateCard(ctx, orgID, patch, next)
	// A failed merge may still have reached the table.
	c.evict(ctx, orgID)
	return err
}

func (c *Cache) DeleteCard(ctx context.Context, orgID, id string) error {
	err := c.base.DeleteCard(ctx, orgID, id)
	c.evict(ctx, orgID)
	return err
}

// CompiledAreas returns the compiled boxes of b. Results are cached per
// board version, so a saved board never serves stale boxes.
func (c *Cache) CompiledAreas(ctx context.Context, b domain.Board) []grid.Box {
	key := areasCacheKey(b.OrgID, b.ID, b.Version)
	var boxes []grid.Box
	if c.load(ctx, key, &boxes) {
		return boxes
	}
	boxes = grid.CompileBoard(b)
	c.store(ctx, key, boxes)
	return boxes
}

// Invalidate drops the cached listings of an organization.
func (c *Cache) Invalidate(ctx context.Context, orgID string) {
	c.evict(ctx, orgID)
}

func (c *Cache) load(ctx context.Context, key string, v any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, orgID string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, cardsCacheKey(orgID, false), cardsCacheKey(orgID, true)).Result()
}

func cardsCacheKey(orgID string, includeArchived bool) string {
	if includeArchived {
		return "cards:all:" + orgID
	}
	return "cards:" + orgID
}

func areasCacheKey(orgID string, id domain.BoardID, version int) string {
	return "areas:" + orgID + ":" + string(id) + ":" + strconv.Itoa(version)
}

package view

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard/internal/model"
)

// Cache wraps a Reader with Redis-backed caching. Redis failures fall back to
// the wrapped reader; they never fail a read.
type Cache struct {
	base  Reader
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Reader using the provided Redis client and TTL.
func NewCache(base Reader, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("view.NewCache: base reader is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) Board(ctx context.Context, boardID uint) (model.BoardView, error) {
	var cached model.BoardView
	if c.load(ctx, boardKey(boardID), &cached) {
		return cached, nil
	}
	board, err := c.base.Board(ctx, boardID)
	if err != nil {
		return model.BoardView{}, err
	}
	c.store(ctx, boardKey(boardID), board)
	return board, nil
}

func (c *Cache) Boards(ctx context.Context, ownerID uint) ([]model.BoardSummary, error) {
	var cached []model.BoardSummary
	if c.load(ctx, boardsKey(ownerID), &cached) {
		return cached, nil
	}
	boards, err := c.base.Boards(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, boardsKey(ownerID), boards)
	return boards, nil
}

// Refresh evicts every cached view the signal touches. Board-content changes
// also move the owner's progress figures, so the owner's list goes too.
func (c *Cache) Refresh(ctx context.Context, signal model.Refresh) {
	if c.redis == nil || signal.Scope == model.RefreshNone {
		return
	}
	var keys []string
	if signal.BoardID != 0 {
		keys = append(keys, boardKey(signal.BoardID))
	}
	if signal.OwnerID != 0 {
		keys = append(keys, boardsKey(signal.OwnerID))
	}
	if len(keys) == 0 {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		log.WithError(err).WithField("keys", keys).Warn("evict views")
	}
}

func (c *Cache) load(ctx context.Context, key string, dst interface{}) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := sonic.Unmarshal(data, dst); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, value interface{}) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(value)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func boardKey(boardID uint) string {
	return "view:board:" + strconv.FormatUint(uint64(boardID), 10)
}

func boardsKey(ownerID uint) string {
	return "view:boards:" + strconv.FormatUint(uint64(ownerID), 10)
}

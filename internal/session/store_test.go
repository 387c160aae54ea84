package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"taskboard/internal/model"
	"taskboard/internal/repository"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

func newDBStore(t *testing.T, ttl time.Duration) *DBStore {
	t.Helper()
	db, err := repository.NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repository.NewUserRepository(db).Create(context.Background(), &model.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return NewDBStore(repository.NewSessionRepository(db), ttl)
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Validate(ctx, ""); !errors.Is(err, ErrNoSession) {
		t.Fatalf("empty token must not validate, got %v", err)
	}
	if _, err := store.Validate(ctx, "not-a-token"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("unknown token must not validate, got %v", err)
	}

	first, err := store.Issue(ctx, 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, err := store.Issue(ctx, 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if first == second {
		t.Fatalf("tokens must be unique")
	}

	userID, err := store.Validate(ctx, first)
	if err != nil || userID != 1 {
		t.Fatalf("validate = %d, %v", userID, err)
	}

	if err := store.Revoke(ctx, first); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := store.Validate(ctx, first); !errors.Is(err, ErrNoSession) {
		t.Fatalf("revoked token still valid: %v", err)
	}
	if userID, err := store.Validate(ctx, second); err != nil || userID != 1 {
		t.Fatalf("revoking one session must keep the other: %d, %v", userID, err)
	}
	if err := store.Revoke(ctx, first); err != nil {
		t.Fatalf("revoking twice must not fail: %v", err)
	}
}

func TestRedisStoreLifecycle(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	exerciseStore(t, store)
}

func TestDBStoreLifecycle(t *testing.T) {
	exerciseStore(t, newDBStore(t, time.Hour))
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()
	token, err := store.Issue(ctx, 7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if ttl := mr.TTL(redisKey(token)); ttl != time.Minute {
		t.Fatalf("ttl = %v, want 1m", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := store.Validate(ctx, token); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expired session must not validate, got %v", err)
	}
}

func TestRedisStoreRejectsGarbage(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	if err := mr.Set(redisKey("junk"), "not-a-number"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.Validate(context.Background(), "junk"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("garbage value must not validate, got %v", err)
	}
}

func TestDBStoreExpiryAndPurge(t *testing.T) {
	store := newDBStore(t, time.Hour)
	ctx := context.Background()
	base := time.Now()
	store.now = func() time.Time { return base }

	token, err := store.Issue(ctx, 1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	store.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := store.Validate(ctx, token); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expired session must not validate, got %v", err)
	}
	purged, err := store.PurgeExpired(ctx)
	if err != nil || purged != 1 {
		t.Fatalf("purge = %d, %v", purged, err)
	}
}

// Package session issues, validates and revokes opaque login tokens.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/repository"
)

// ErrNoSession is returned for absent, unknown, expired or revoked tokens.
var ErrNoSession = errors.New("no session")

// Store is the session collaborator: issue(userId) -> token, validate(token) -> userId, revoke(token).
type Store interface {
	Issue(ctx context.Context, userID uint) (string, error)
	Validate(ctx context.Context, token string) (uint, error)
	Revoke(ctx context.Context, token string) error
}

func newToken() string {
	return uuid.NewString()
}

// RedisStore keeps sessions as expiring keys.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store whose sessions live for ttl.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("session.NewRedisStore: client is nil")
	}
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(token string) string {
	return "session:" + token
}

func (s *RedisStore) Issue(ctx context.Context, userID uint) (string, error) {
	token := newToken()
	if err := s.client.Set(ctx, redisKey(token), strconv.FormatUint(uint64(userID), 10), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func (s *RedisStore) Validate(ctx context.Context, token string) (uint, error) {
	if token == "" {
		return 0, ErrNoSession
	}
	raw, err := s.client.Get(ctx, redisKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNoSession
	}
	if err != nil {
		return 0, fmt.Errorf("load session: %w", err)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrNoSession
	}
	return uint(id), nil
}

func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, redisKey(token)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// DBStore keeps sessions as rows next to the rest of the data.
type DBStore struct {
	repo *repository.SessionRepository
	ttl  time.Duration
	now  func() time.Time
}

// NewDBStore creates a SQL-backed store whose sessions live for ttl.
func NewDBStore(repo *repository.SessionRepository, ttl time.Duration) *DBStore {
	return &DBStore{repo: repo, ttl: ttl, now: time.Now}
}

func (s *DBStore) Issue(ctx context.Context, userID uint) (string, error) {
	now := s.now()
	row := model.Session{
		Token:     newToken(),
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, &row); err != nil {
		return "", err
	}
	return row.Token, nil
}

func (s *DBStore) Validate(ctx context.Context, token string) (uint, error) {
	if token == "" {
		return 0, ErrNoSession
	}
	row, err := s.repo.FindValid(ctx, token, s.now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNoSession
	}
	if err != nil {
		return 0, fmt.Errorf("load session: %w", err)
	}
	return row.UserID, nil
}

func (s *DBStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.repo.Delete(ctx, token)
}

// PurgeExpired deletes sessions past their expiry and returns how many went.
func (s *DBStore) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}

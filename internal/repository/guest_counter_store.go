package repository

import (
	"civics_quiz_backend/internal/quiz"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// GuestCounterStore 游客计数存放在 Redis，带过期时间，仅尽力而为
type GuestCounterStore struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewGuestCounterStore(rdb *redis.Client, ttl time.Duration) *GuestCounterStore {
	return &GuestCounterStore{Redis: rdb, TTL: ttl}
}

func guestCounterKey(guestID string, mode quiz.Mode) string {
	return fmt.Sprintf("quiz:guest:%s:%s", guestID, mode)
}

func (s *GuestCounterStore) GetCount(ctx context.Context, guestID string, mode quiz.Mode) (int, error) {
	n, err := s.Redis.Get(ctx, guestCounterKey(guestID, mode)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *GuestCounterStore) Increment(ctx context.Context, guestID string, mode quiz.Mode) error {
	key := guestCounterKey(guestID, mode)
	pipe := s.Redis.TxPipeline()
	pipe.Incr(ctx, key)
	if s.TTL > 0 {
		pipe.Expire(ctx, key, s.TTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

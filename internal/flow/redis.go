package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront-bot/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions as JSON under session:{name}:{user} with a
// sliding ttl, so they survive a restart and still expire.
type RedisStore[D any] struct {
	rdb  *redis.Client
	name string
	ttl  time.Duration
}

func NewRedisStore[D any](rdb *redis.Client, name string, ttl time.Duration) *RedisStore[D] {
	if ttl <= 0 {
		ttl = redisx.TTLSession
	}
	return &RedisStore[D]{rdb: rdb, name: name, ttl: ttl}
}

func (s *RedisStore[D]) key(user int64) string {
	return fmt.Sprintf(redisx.KeySession, s.name, user)
}

func (s *RedisStore[D]) Get(ctx context.Context, user int64) (Session[D], bool, error) {
	b, err := s.rdb.Get(ctx, s.key(user)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session[D]{}, false, nil
	}
	if err != nil {
		return Session[D]{}, false, err
	}
	var sess Session[D]
	if err := json.Unmarshal(b, &sess); err != nil {
		// unreadable session: drop it rather than wedge the user
		_ = s.rdb.Del(ctx, s.key(user)).Err()
		return Session[D]{}, false, nil
	}
	return sess, true, nil
}

func (s *RedisStore[D]) Put(ctx context.Context, user int64, sess Session[D]) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(user), b, s.ttl).Err()
}

func (s *RedisStore[D]) Delete(ctx context.Context, user int64) error {
	return s.rdb.Del(ctx, s.key(user)).Err()
}

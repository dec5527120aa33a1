package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bayline/server/internal/agent/model"
	errx "github.com/bayline/server/internal/core/error"
	logx "github.com/bayline/server/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type RedisSessionStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisSessionStore(rdb redis.Cmdable, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, ttl: ttl}
}

func (r *RedisSessionStore) sessionKey(userID string) string {
	return fmt.Sprintf("session:%s", userID)
}

func (r *RedisSessionStore) Get(ctx context.Context, userID string) (model.Session, bool, error) {
	key := r.sessionKey(userID)

	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, false, nil
		}
		logx.Ctx(ctx).Error().Err(err).Str("key", key).Msg("failed to load session from redis")
		return model.Session{}, false, errx.WrapRedis(err)
	}

	var s model.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		logx.Ctx(ctx).Error().Err(err).Str("user_id", userID).Msg("failed to unmarshal session")
		return model.Session{}, false, fmt.Errorf("unmarshal session: %w", err)
	}
	return s, true, nil
}

func (r *RedisSessionStore) Set(ctx context.Context, userID string, s model.Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	key := r.sessionKey(userID)

	// a zero ttl keeps the key until it is deleted
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Ctx(ctx).Error().Err(err).Str("key", key).Msg("failed to write session to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, userID string) error {
	key := r.sessionKey(userID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Ctx(ctx).Error().Err(err).Str("key", key).Msg("failed to delete session from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.SessionStore = (*RedisSessionStore)(nil)

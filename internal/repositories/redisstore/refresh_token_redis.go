package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/auth-service/internal/repositories"
)

const defaultPrefix = "refresh:"

// RefreshTokenRedis keeps one key per live refresh token plus a per-user set
// of jtis so that every session of a user can be revoked at once.
type RefreshTokenRedis struct {
	client *redis.Client
	prefix string
}

func NewRefreshTokenRedis(client *redis.Client) *RefreshTokenRedis {
	return &RefreshTokenRedis{
		client: client,
		prefix: defaultPrefix,
	}
}

func (r *RefreshTokenRedis) tokenKey(jti string) string {
	return r.prefix + "jti:" + jti
}

func (r *RefreshTokenRedis) userKey(userID string) string {
	return r.prefix + "user:" + userID
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", repositories.ErrUnavailable, err)
}

func (r *RefreshTokenRedis) Save(ctx context.Context, jti, userID string, ttl time.Duration) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.tokenKey(jti), userID, ttl)
		pipe.SAdd(ctx, r.userKey(userID), jti)
		pipe.Expire(ctx, r.userKey(userID), ttl)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *RefreshTokenRedis) Consume(ctx context.Context, jti, userID string) (bool, error) {
	owner, err := r.client.GetDel(ctx, r.tokenKey(jti)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, unavailable(err)
	}

	if err := r.client.SRem(ctx, r.userKey(owner), jti).Err(); err != nil {
		return false, unavailable(err)
	}

	return owner == userID, nil
}

func (r *RefreshTokenRedis) Revoke(ctx context.Context, jti string) error {
	owner, err := r.client.GetDel(ctx, r.tokenKey(jti)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return unavailable(err)
	}

	if err := r.client.SRem(ctx, r.userKey(owner), jti).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *RefreshTokenRedis) RevokeAllForUser(ctx context.Context, userID string) error {
	jtis, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return unavailable(err)
	}

	keys := make([]string, 0, len(jtis)+1)
	for _, jti := range jtis {
		keys = append(keys, r.tokenKey(jti))
	}
	keys = append(keys, r.userKey(userID))

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/multitenant-task-api/internal/models"
)

const (
	redisTokenPrefix     = "access_token:"
	redisUserTokenPrefix = "user_tokens:"
)

// touchScript only updates a hash that still exists, so a token expiring
// between lookup and touch is not recreated without a TTL.
var touchScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("HSET", KEYS[1], "last_used_at", ARGV[1])
end
return 0
`)

// RedisTokenRepository keeps access token records in Redis with a TTL equal
// to the token lifetime. Revocation deletes the key.
type RedisTokenRepository struct {
	client redis.Cmdable
}

// NewRedisTokenRepository creates a Redis-backed TokenRepository
func NewRedisTokenRepository(client redis.Cmdable) TokenRepository {
	return &RedisTokenRepository{client: client}
}

func tokenKey(id string) string { return redisTokenPrefix + id }
func userTokensKey(userID string) string { return redisUserTokenPrefix + userID }

// Create records a newly issued token
func (r *RedisTokenRepository) Create(ctx context.Context, token *models.AccessToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return errors.New("redis token repository: token already expired")
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, tokenKey(token.ID),
			"user_id", token.UserID,
			"expires_at", token.ExpiresAt.Unix(),
			"created_at", token.CreatedAt.Unix(),
		)
		pipe.ExpireAt(ctx, tokenKey(token.ID), token.ExpiresAt)
		pipe.SAdd(ctx, userTokensKey(token.UserID), token.ID)
		// The index outlives its newest member; stale ids are pruned on RevokeAllForUser
		pipe.ExpireGT(ctx, userTokensKey(token.UserID), ttl)
		pipe.ExpireNX(ctx, userTokensKey(token.UserID), ttl)
		return nil
	})
	return err
}

// FindActive returns a live token record
func (r *RedisTokenRepository) FindActive(ctx context.Context, id string, now time.Time) (*models.AccessToken, error) {
	values, err := r.client.HGetAll(ctx, tokenKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, ErrTokenNotFound
	}

	expiresAt, err := strconv.ParseInt(values["expires_at"], 10, 64)
	if err != nil {
		return nil, ErrTokenNotFound
	}
	createdAt, _ := strconv.ParseInt(values["created_at"], 10, 64)

	token := &models.AccessToken{
		ID:        id,
		UserID:    values["user_id"],
		ExpiresAt: time.Unix(expiresAt, 0),
		CreatedAt: time.Unix(createdAt, 0),
	}
	if lastUsed, err := strconv.ParseInt(values["last_used_at"], 10, 64); err == nil {
		usedAt := time.Unix(lastUsed, 0)
		token.LastUsedAt = &usedAt
	}
	if !token.Active(now) {
		return nil, ErrTokenNotFound
	}
	return token, nil
}

// Touch stamps last_used_at on a live token
func (r *RedisTokenRepository) Touch(ctx context.Context, id string, now time.Time) error {
	return touchScript.Run(ctx, r.client, []string{tokenKey(id)}, now.Unix()).Err()
}

// Revoke deletes one token
func (r *RedisTokenRepository) Revoke(ctx context.Context, id string, _ time.Time) error {
	userID, err := r.client.HGet(ctx, tokenKey(id), "user_id").Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, tokenKey(id))
		pipe.SRem(ctx, userTokensKey(userID), id)
		return nil
	})
	return err
}

// RevokeAllForUser deletes every token of a user
func (r *RedisTokenRepository) RevokeAllForUser(ctx context.Context, userID string, _ time.Time) error {
	ids, err := r.client.SMembers(ctx, userTokensKey(userID)).Result()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, tokenKey(id))
	}
	keys = append(keys, userTokensKey(userID))

	return r.client.Del(ctx, keys...).Err()
}

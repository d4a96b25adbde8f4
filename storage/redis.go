package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"dreambot/domain"

	"github.com/redis/go-redis/v9"
)

const (
	openLobbiesKey = "game:lobbies:open"
	joinDraftTTL   = 10 * time.Minute
)

func sessionKey(code string) string {
	return "game:session:" + code
}

func lockKey(code string) string {
	return sessionKey(code) + ":lock"
}

func playerKey(userId int64) string {
	return "user:" + strconv.FormatInt(userId, 10) + ":session"
}

func joinDraftKey(userId int64) string {
	return "user:" + strconv.FormatInt(userId, 10) + ":join"
}

// RedisStore keeps live game sessions, their lock markers, the open lobby
// registry and per-user pointers.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, opts *redis.Options) (*RedisStore, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, wrapCacheError(err)
	}
	return &RedisStore{client: client}, nil
}

func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

func wrapCacheError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.CacheError, err)
}

func (rs *RedisStore) Lock(ctx context.Context, code string, ttl time.Duration) (bool, error) {
	ok, err := rs.client.SetNX(ctx, lockKey(code), 1, ttl).Result()
	if err != nil {
		return false, wrapCacheError(err)
	}
	return ok, nil
}

func (rs *RedisStore) Unlock(ctx context.Context, code string) error {
	if err := rs.client.Del(ctx, lockKey(code)).Err(); err != nil {
		return wrapCacheError(err)
	}
	return nil
}

func (rs *RedisStore) Load(ctx context.Context, code string) ([]byte, error) {
	blob, err := rs.client.Get(ctx, sessionKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, wrapCacheError(err)
	}
	return blob, nil
}

func (rs *RedisStore) Save(ctx context.Context, code string, blob []byte) error {
	if err := rs.client.Set(ctx, sessionKey(code), blob, 0).Err(); err != nil {
		return wrapCacheError(err)
	}
	return nil
}

// Insert stores blob only when no session exists under code yet.
func (rs *RedisStore) Insert(ctx context.Context, code string, blob []byte) (bool, error) {
	ok, err := rs.client.SetNX(ctx, sessionKey(code), blob, 0).Result()
	if err != nil {
		return false, wrapCacheError(err)
	}
	return ok, nil
}

func (rs *RedisStore) Remove(ctx context.Context, code string) error {
	if err := rs.client.Del(ctx, sessionKey(code), lockKey(code)).Err(); err != nil {
		return wrapCacheError(err)
	}
	return nil
}

func (rs *RedisStore) AddOpen(ctx context.Context, code string) error {
	if err := rs.client.SAdd(ctx, openLobbiesKey, code).Err(); err != nil {
		return wrapCacheError(err)
	}
	return nil
}

func (rs *RedisStore) RemoveOpen(ctx context.Context, code string) error {
	if err := rs.client.SRem(ctx, openLobbiesKey, code).Err(); err != nil {
		return wrapCacheError(err)
	}
	return nil
}

func (rs *RedisStore) ListOpen(ctx context.Context) ([]string, error) {
	codes, err := rs.client.SMembers(ctx, openLobbiesKey).Result()
	if err != nil {
		return nil, wrapCacheError(err)
	}
	slices.Sort(codes)
	return codes, nil
}

func (rs *RedisStore) ClaimPlayerSession(ctx context.Context, userId int64, code string) (bool, error) {
	ok, err := rs.client.SetNX(ctx, playerKey(userId), code, 0).Result()
	if err != nil {
		return false, wrapCacheError(err)
	}
	return ok, nil
}

func (rs *RedisStore) PlayerSession(ctx context.Context, userId int64) (string, error) {
	code, err := rs.client.Get(ctx, playerKey(userId)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrNotFound
		}
		return "", wrapCacheError(err)
	}
	return code, nil
}

func (rs *RedisStore) ClearPlayerSession(ctx context.Context, userId int64) error {
	if err := rs.client.Del(ctx, playerKey(userId)).Err(); err != nil {
		return wrapCacheError(err)
	}
	return nil
}

// SetJoinDraft remembers which lobby the user picked while the bot waits for
// the password. An empty code means the user is still choosing a lobby.
func (rs *RedisStore) SetJoinDraft(ctx context.Context, userId int64, code string) error {
	if err := rs.client.Set(ctx, joinDraftKey(userId), code, joinDraftTTL).Err(); err != nil {
		return wrapCacheError(err)
	}
	return nil
}

func (rs *RedisStore) JoinDraft(ctx context.Context, userId int64) (string, error) {
	code, err := rs.client.Get(ctx, joinDraftKey(userId)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrNotFound
		}
		return "", wrapCacheError(err)
	}
	return code, nil
}

func (rs *RedisStore) ClearJoinDraft(ctx context.Context, userId int64) error {
	if err := rs.client.Del(ctx, joinDraftKey(userId)).Err(); err != nil {
		return wrapCacheError(err)
	}
	return nil
}

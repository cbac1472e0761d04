package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/uma-arai/sbcntr-court/internal/model"
)

const (
	redisKeyPrefix    = "sbcntr-court:"
	redisAllKey       = redisKeyPrefix + "reservations"
	redisAllLoadedKey = redisKeyPrefix + "loaded"
	redisCacheTTLDays = 30
)

func reservationKey(id string) string {
	return redisKeyPrefix + "reservation:" + id
}

func userReservationsKey(userID string) string {
	return redisKeyPrefix + "user:" + userID + ":reservations"
}

// ReplaceAll の際に user:* の走査で消えるよう、ユーザーの索引と同じ名前空間に置きます
func userLoadedKey(userID string) string {
	return redisKeyPrefix + "user:" + userID + ":loaded"
}

// RedisReservationCache は Redis 上の ReservationCache です
// 予約本体を JSON で保持し、ユーザーごとと全体の ID セットで索引します
type RedisReservationCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisReservationCache(client *redis.Client) *RedisReservationCache {
	return &RedisReservationCache{client: client, ttl: redisCacheTTLDays * 24 * time.Hour}
}

// NewRedisClient は接続確認済みの Redis クライアントを作成します
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	log.Println("Redis initialized with address:", addr)
	return client, nil
}

func (c *RedisReservationCache) put(ctx context.Context, pipe redis.Pipeliner, r model.Reservation) error {
	r.Court = nil
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reservation %s: %w", r.ID, err)
	}
	pipe.Set(ctx, reservationKey(r.ID), b, c.ttl)
	pipe.SAdd(ctx, userReservationsKey(r.UserID), r.ID)
	pipe.SAdd(ctx, redisAllKey, r.ID)
	return nil
}

func (c *RedisReservationCache) Put(ctx context.Context, r model.Reservation) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return c.put(ctx, pipe, r)
	})
	if err != nil {
		return fmt.Errorf("failed to cache reservation %s: %w", r.ID, err)
	}
	return nil
}

// UpdateStatus はキャッシュに無い予約を無視します
func (c *RedisReservationCache) UpdateStatus(ctx context.Context, id string, status model.ReservationStatus) error {
	r, err := c.Get(ctx, id)
	if err != nil || r == nil {
		return err
	}
	r.Status = status
	return c.Put(ctx, *r)
}

func (c *RedisReservationCache) Get(ctx context.Context, id string) (*model.Reservation, error) {
	b, err := c.client.Get(ctx, reservationKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached reservation %s: %w", id, err)
	}
	var r model.Reservation
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached reservation %s: %w", id, err)
	}
	return &r, nil
}

func (c *RedisReservationCache) load(ctx context.Context, ids []string) ([]model.Reservation, error) {
	rs := []model.Reservation{}
	if len(ids) == 0 {
		return rs, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = reservationKey(id)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached reservations: %w", err)
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// TTL切れ
			continue
		}
		var r model.Reservation
		if err := json.Unmarshal([]byte(s), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cached reservation %s: %w", ids[i], err)
		}
		rs = append(rs, r)
	}
	sortReservations(rs)
	return rs, nil
}

func (c *RedisReservationCache) ByUser(ctx context.Context, userID string) ([]model.Reservation, error) {
	ids, err := c.client.SMembers(ctx, userReservationsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached reservation ids for %s: %w", userID, err)
	}
	return c.load(ctx, ids)
}

// UserLoaded は全体かユーザー単位の読み込み済みマーカーを確認します
// マーカーは予約本体と同じ TTL で失効します
func (c *RedisReservationCache) UserLoaded(ctx context.Context, userID string) (bool, error) {
	n, err := c.client.Exists(ctx, redisAllLoadedKey, userLoadedKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cache state of %s: %w", userID, err)
	}
	return n > 0, nil
}

func (c *RedisReservationCache) ReplaceUser(ctx context.Context, userID string, rs []model.Reservation) error {
	ids, err := c.client.SMembers(ctx, userReservationsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to read cached reservation ids for %s: %w", userID, err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, reservationKey(id))
			pipe.SRem(ctx, redisAllKey, id)
		}
		pipe.Del(ctx, userReservationsKey(userID))
		for _, r := range rs {
			if err := c.put(ctx, pipe, r); err != nil {
				return err
			}
		}
		pipe.Set(ctx, userLoadedKey(userID), "1", c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace cached reservations for %s: %w", userID, err)
	}
	return nil
}

func (c *RedisReservationCache) ReplaceAll(ctx context.Context, rs []model.Reservation) error {
	ids, err := c.client.SMembers(ctx, redisAllKey).Result()
	if err != nil {
		return fmt.Errorf("failed to read cached reservation ids: %w", err)
	}
	userKeys, err := c.scanUserKeys(ctx)
	if err != nil {
		return err
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, reservationKey(id))
		}
		for _, k := range userKeys {
			pipe.Del(ctx, k)
		}
		pipe.Del(ctx, redisAllKey)
		for _, r := range rs {
			if err := c.put(ctx, pipe, r); err != nil {
				return err
			}
		}
		pipe.Set(ctx, redisAllLoadedKey, "1", c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace cached reservations: %w", err)
	}
	return nil
}

func (c *RedisReservationCache) scanUserKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"user:*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan cached user keys: %w", err)
	}
	return keys, nil
}

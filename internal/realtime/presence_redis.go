package realtime

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPresenceStore keeps membership in a sorted set per room, scored by
// the last heartbeat. Entries older than ttl are pruned on read, so a
// crashed instance's clients disappear after a few missed heartbeats.
type RedisPresenceStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPresenceStore(client *redis.Client, ttl time.Duration) *RedisPresenceStore {
	return &RedisPresenceStore{client: client, ttl: ttl}
}

func presenceKey(room string) string {
	return "presence:" + room
}

// member encodes key and ref; refs are UUIDs so the last separator splits
// them unambiguously.
func member(key, ref string) string {
	return key + "|" + ref
}

func splitMember(m string) (string, string) {
	i := strings.LastIndex(m, "|")
	if i < 0 {
		return m, ""
	}
	return m[:i], m[i+1:]
}

func (s *RedisPresenceStore) Join(ctx context.Context, room, key string, meta Meta) error {
	return s.touch(ctx, room, key, meta)
}

func (s *RedisPresenceStore) Refresh(ctx context.Context, room, key string, meta Meta) error {
	return s.touch(ctx, room, key, meta)
}

func (s *RedisPresenceStore) touch(ctx context.Context, room, key string, meta Meta) error {
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, presenceKey(room), redis.Z{
		Score:  float64(time.Now().UnixMilli()),
		Member: member(key, meta.Ref),
	})
	pipe.Expire(ctx, presenceKey(room), s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisPresenceStore) Leave(ctx context.Context, room, key, ref string) error {
	return s.client.ZRem(ctx, presenceKey(room), member(key, ref)).Err()
}

func (s *RedisPresenceStore) State(ctx context.Context, room string) (map[string][]Meta, error) {
	cutoff := time.Now().Add(-s.ttl).UnixMilli()
	if err := s.client.ZRemRangeByScore(ctx, presenceKey(room), "-inf", "("+strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		return nil, err
	}

	entries, err := s.client.ZRangeWithScores(ctx, presenceKey(room), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	state := make(map[string][]Meta)
	for _, z := range entries {
		raw, ok := z.Member.(string)
		if !ok {
			continue
		}
		key, ref := splitMember(raw)
		state[key] = append(state[key], Meta{Ref: ref, OnlineAt: time.UnixMilli(int64(z.Score)).UTC()})
	}
	return state, nil
}

package changefeed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Claimer decides which instance forwards a notification when several
// instances listen to the same database.
type Claimer interface {
	Claim(ctx context.Context, key string) (bool, error)
}

// RedisClaimer grants each key to the first caller within ttl.
type RedisClaimer struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClaimer(client *redis.Client, ttl time.Duration) *RedisClaimer {
	return &RedisClaimer{client: client, ttl: ttl}
}

func (c *RedisClaimer) Claim(ctx context.Context, key string) (bool, error) {
	return c.client.SetNX(ctx, "changefeed:claim:"+key, 1, c.ttl).Result()
}

// claimKey identifies one notification across instances. Payloads without
// a sequence number fall back to a content hash.
func claimKey(n Notification, payload string) string {
	if n.Seq > 0 {
		return "seq:" + strconv.FormatInt(n.Seq, 10)
	}
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

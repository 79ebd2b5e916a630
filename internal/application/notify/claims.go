package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	claimPrefix     = "driver-application:notified:"
	DefaultClaimTTL = 30 * 24 * time.Hour
)

// Claims makes the submission notification a one-time event per application.
type Claims struct {
	client redis.Cmdable
	ttl    time.Duration
	now    func() time.Time
}

func NewClaims(client redis.Cmdable, ttl time.Duration) *Claims {
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	return &Claims{client: client, ttl: ttl, now: time.Now}
}

// Claim reports whether the caller is the first to notify for applicationID.
func (c *Claims) Claim(ctx context.Context, applicationID string) (bool, error) {
	ok, err := c.client.SetNX(ctx, claimPrefix+applicationID, c.now().UTC().Format(time.RFC3339), c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim notification: %w", err)
	}
	return ok, nil
}

// Release drops a claim so a failed dispatch can be retried.
func (c *Claims) Release(ctx context.Context, applicationID string) error {
	if err := c.client.Del(ctx, claimPrefix+applicationID).Err(); err != nil {
		return fmt.Errorf("release notification claim: %w", err)
	}
	return nil
}

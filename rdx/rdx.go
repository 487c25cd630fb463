package rdx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations is a Redis-backed denylist of JWT IDs. Logout puts a token's
// JTI here until its natural expiry; the auth middleware refuses tokens
// whose JTI is present.
type Revocations struct {
	client *redis.Client
}

func New(addr, password string) *Revocations {
	return &Revocations{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       0,
		}),
	}
}

func (r *Revocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already expired; nothing to revoke.
		return nil
	}
	return r.client.Set(ctx, "revoked:"+jti, "1", ttl).Err()
}

func (r *Revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, "revoked:"+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Revocations) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Revocations) Close() error {
	return r.client.Close()
}

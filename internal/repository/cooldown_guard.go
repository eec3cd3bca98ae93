package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownGuard is the Redis fast path of the transfer anti-spam window.
// SET NX with the window as TTL is atomic across processes, so two racing
// requests cannot both pass before either row hits the database. The
// database check inside the request transaction remains the authority.
type CooldownGuard struct {
	client *redis.Client
	window time.Duration
}

// NewCooldownGuard constructs the guard.
func NewCooldownGuard(client *redis.Client, window time.Duration) *CooldownGuard {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &CooldownGuard{client: client, window: window}
}

func (g *CooldownGuard) key(repositionID, fromArea string) string {
	return fmt.Sprintf("transfer_cooldown:%s:%s", repositionID, fromArea)
}

// Acquire attempts to claim the window. When already claimed it returns the
// remaining TTL so callers can report minutes left.
func (g *CooldownGuard) Acquire(ctx context.Context, repositionID, fromArea string) (bool, time.Duration, error) {
	if g == nil || g.client == nil {
		return true, 0, nil
	}
	key := g.key(repositionID, fromArea)
	ok, err := g.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("acquire cooldown guard: %w", err)
	}
	if ok {
		return true, 0, nil
	}
	remaining, err := g.client.TTL(ctx, key).Result()
	if err != nil || remaining < 0 {
		remaining = g.window
	}
	return false, remaining, nil
}

// Release frees the window, used when the guarded insert fails for reasons
// other than the cooldown itself.
func (g *CooldownGuard) Release(ctx context.Context, repositionID, fromArea string) error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Del(ctx, g.key(repositionID, fromArea)).Err()
}

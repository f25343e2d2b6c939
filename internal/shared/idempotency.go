package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/launchpad-web/launchpad/internal/platform/httpx"
)

// IdempotencyHeader carries the client supplied key of a mutation.
const IdempotencyHeader = "Idempotency-Key"

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = fmt.Errorf("idempotent request already processed: %w", httpx.ErrDuplicate)

// IdempotencyStore claims processed keys in Redis for a retention window.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Claim records key for module, failing with ErrIdempotencyConflict when it was already claimed.
func (s *IdempotencyStore) Claim(ctx context.Context, key, module string) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" || module == "" {
		return fmt.Errorf("%w: idempotency key and module required", httpx.ErrValidation)
	}
	ok, err := s.client.SetNX(ctx, idempotencyKey(key, module), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("idempotency: claim: %w", err)
	}
	if !ok {
		return ErrIdempotencyConflict
	}
	return nil
}

// Release removes a claim, typically after failed processing.
func (s *IdempotencyStore) Release(ctx context.Context, key, module string) error {
	if s == nil || key == "" {
		return nil
	}
	return s.client.Del(ctx, idempotencyKey(key, module)).Err()
}

func idempotencyKey(key, module string) string {
	return "launchpad:idempotency:" + module + ":" + key
}

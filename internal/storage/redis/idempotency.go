// Package redis stores idempotency keys for order commits in Redis.
package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "orders:idempotency:"
	pending   = "\x00pending"
)

// ErrInProgress is returned when another request holding the same key has not
// finished yet.
var ErrInProgress = errors.New("request with this idempotency key is in progress")

// Idempotency remembers which order a client key produced.
//
// A key moves from absent to pending when a request claims it, then either to
// the committed order id or back to absent when the commit fails.
type Idempotency struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewIdempotency returns a store that keeps keys for ttl.
func NewIdempotency(client *goredis.Client, ttl time.Duration) *Idempotency {
	return &Idempotency{client: client, ttl: ttl}
}

// Acquire claims key. When the key already completed it returns the order id
// recorded for it and acquired is false.
func (s *Idempotency) Acquire(ctx context.Context, key string) (orderID string, acquired bool, err error) {
	k := keyPrefix + key
	ok, err := s.client.SetNX(ctx, k, pending, s.ttl).Result()
	if err != nil {
		return "", false, errors.Wrap(err, "claim key")
	}
	if ok {
		return "", true, nil
	}

	v, err := s.client.Get(ctx, k).Result()
	switch {
	case errors.Is(err, goredis.Nil):
		// Expired between SETNX and GET.
		return "", false, ErrInProgress
	case err != nil:
		return "", false, errors.Wrap(err, "get key")
	case v == pending:
		return "", false, ErrInProgress
	}
	return v, false, nil
}

// Complete records the order produced for key.
func (s *Idempotency) Complete(ctx context.Context, key, orderID string) error {
	if err := s.client.Set(ctx, keyPrefix+key, orderID, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "complete key")
	}
	return nil
}

// Release forgets key so that the request can be retried.
func (s *Idempotency) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return errors.Wrap(err, "release key")
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (s *Idempotency) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

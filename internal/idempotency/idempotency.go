// Package idempotency makes retried submissions safe. The first request
// carrying an Idempotency-Key claims it; repeats replay the stored response,
// and a repeat that arrives while the first is still running is refused.
package idempotency

import (
	"context"
	"time"
)

// Record is what a key holds: a pending claim, then the final response.
type Record struct {
	Fingerprint string `json:"fingerprint"`
	Pending     bool   `json:"pending"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Store holds claims and responses. Claim is atomic: exactly one caller gets
// a nil record back for a given key until the key expires or is released.
type Store interface {
	Claim(ctx context.Context, key, fingerprint string, ttl time.Duration) (*Record, error)
	Complete(ctx context.Context, key string, record Record, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

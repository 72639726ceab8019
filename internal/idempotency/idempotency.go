// Package idempotency deduplicates chat submissions that carry a client token.
//
// A submission first reserves its key. The first caller gets the reservation and
// must either Complete it with the reply or Release it on failure. Later callers
// with the same key get the stored reply, or ErrInProgress while the first caller
// is still running.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"time"

	"quickgpt/backend/internal/model"
)

// ErrInProgress is returned by Reserve while another request holds the key.
var ErrInProgress = errors.New("idempotency: submission already in progress")

// Store tracks submission keys.
type Store interface {
	// Reserve claims key. It returns (nil, nil) when the caller now owns the key,
	// the stored reply when the key already completed, or ErrInProgress.
	Reserve(ctx context.Context, key string) (*model.Message, error)
	// Complete records reply for key so retries can replay it.
	Complete(ctx context.Context, key string, reply *model.Message) error
	// Release drops a reservation so the submission can run again.
	Release(ctx context.Context, key string) error
}

// Key scopes a client token to one owner's chat and submission mode. Parts are
// length-prefixed before hashing so no choice of ids or token can collide.
func Key(ownerID, chatID string, mode model.Mode, token string) string {
	h := sha256.New()
	var size [8]byte
	for _, part := range []string{ownerID, chatID, string(mode), token} {
		binary.BigEndian.PutUint64(size[:], uint64(len(part)))
		h.Write(size[:])
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// pendingFor bounds a reservation's lifetime. A zero or oversized pending
// TTL falls back to ttl.
func pendingFor(ttl, pending time.Duration) time.Duration {
	if pending <= 0 || pending > ttl {
		return ttl
	}
	return pending
}

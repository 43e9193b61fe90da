package ports

import (
	"context"
	"time"
)

// NonceStore enforces single-use challenge nonces across instances.
type NonceStore interface {
	// Consume marks a nonce as used. It returns true for the first caller
	// and false once the nonce has already been consumed. The ttl bounds
	// how long the consumption record is kept; it only needs to outlive
	// the challenge's validity window.
	Consume(ctx context.Context, nonce string, ttl time.Duration) (bool, error)
}

// Package auth holds the API-key identity model. Token issuance and user
// management are external; this service only validates keys and reads the
// actor role they carry.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrKeyNotFound is returned when no active key matches the given hash.
var ErrKeyNotFound = errors.New("api key not found")

// APIKeyInfo holds the identity and role data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	// Role is the actor role the key grants: "customer" or "admin".
	Role string
}

// Repository provides lookup of active API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

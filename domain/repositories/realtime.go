package repositories

import (
	"context"
	"time"
)

// EphemeralCredential is a single-use, short-lived secret usable as a
// realtime socket sub-protocol token.
type EphemeralCredential struct {
	Secret    string    `json:"secret"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CredentialIssuer mints ephemeral realtime credentials. bearer may be empty
// (guest mode); implementations must not require it.
type CredentialIssuer interface {
	Issue(ctx context.Context, bearer string) (EphemeralCredential, error)
}

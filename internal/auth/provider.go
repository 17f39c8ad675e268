// ABOUTME: Identity provider interface for the signed-in user
// ABOUTME: Conversation operations no-op when no identity is available

package auth

import "context"

// Provider yields the current signed-in identity.
type Provider interface {
	// Current returns the signed-in identity, or ok=false when nobody
	// is signed in.
	Current(ctx context.Context) (identity string, ok bool)
}

// Static always reports the same identity. Used for local development
// and tests.
type Static string

// Current returns the fixed identity. An empty Static means signed out.
func (s Static) Current(ctx context.Context) (string, bool) {
	return string(s), s != ""
}

// Verify interface compliance at compile time
var _ Provider = Static("")

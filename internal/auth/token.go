// ABOUTME: Identity resolution from an ID token held on disk
// ABOUTME: Extracts the subject claim without signature verification

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// TokenProvider resolves the identity from an ID token file. The file
// holds the raw token issued to this client by the identity service;
// a missing, expired, or malformed token reads as signed out.
type TokenProvider struct {
	path   string
	logger *slog.Logger
}

// NewTokenProvider creates a provider reading the token at path.
// If logger is nil, slog.Default() is used.
func NewTokenProvider(path string, logger *slog.Logger) *TokenProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenProvider{
		path:   path,
		logger: logger.With("component", "auth"),
	}
}

// Current reads and parses the token file on every call, so a token
// refreshed by an external sign-in flow is picked up without restart.
func (p *TokenProvider) Current(ctx context.Context) (string, bool) {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		p.logger.Debug("no identity token", "path", p.path)
		return "", false
	}

	identity, err := ParseIdentity(strings.TrimSpace(string(raw)))
	if err != nil {
		p.logger.Warn("identity token rejected", "error", err)
		return "", false
	}

	return identity, true
}

// ParseIdentity extracts the subject from an ID token without verifying
// its signature. The token was issued to this client; signature checks
// belong to the services it is presented to. Expiry is still honored.
func ParseIdentity(tokenString string) (string, error) {
	parser := jwt.NewParser()

	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if exp != nil && exp.Before(time.Now()) {
		return "", ErrExpiredToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	return sub, nil
}

// Verify interface compliance at compile time
var _ Provider = (*TokenProvider)(nil)

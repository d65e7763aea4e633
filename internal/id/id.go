// Package id generates the UUIDs and opaque secrets the rest of the
// engine treats as injected dependencies: Sub, Session, origin_jti,
// event_id, and refresh tokens.
package id

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// NewSub returns a fresh immutable per-user identifier.
func NewSub() string {
	return uuid.NewString()
}

// NewSession returns a fresh challenge/session token.
func NewSession() string {
	return uuid.NewString()
}

// NewJTI returns a fresh token identifier (origin_jti, event_id, jti).
func NewJTI() string {
	return uuid.NewString()
}

// NewRefreshToken returns an opaque refresh token with at least 256 bits
// of entropy, matching spec §4.4's "not a JWT in the emulator" contract.
// It is not derived from any session identifier and carries no rotation
// metadata, per the spec's no-rotation design note.
func NewRefreshToken() (string, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("id: generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewClientSecret returns an opaque app client secret.
func NewClientSecret() (string, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("id: generate client secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewClientID returns an opaque app client identifier: a 36-character
// hyphenated UUID string, which does not match the upstream service's
// 26-character alphanumeric shape.
func NewClientID() string {
	return uuid.NewString()
}

// NewUserPoolID returns an opaque pool identifier of the form
// region_suffix, mirroring the upstream UserPoolId shape used throughout
// the wire protocol and tests.
func NewUserPoolID(region string) string {
	return region + "_" + uuid.NewString()[:8]
}

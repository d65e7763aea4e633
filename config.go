package cognitoemu

import (
	"errors"
	"time"
)

// Config configures the Engine returned by Builder.Build. It is intended
// to be assembled once during initialization and treated as immutable
// afterward.
type Config struct {
	Token   TokenConfig
	Trigger TriggerConfig
	Audit   AuditConfig
	Metrics MetricsConfig
	Pool    DefaultPoolConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig carries the token generator's Issuer and KeyID. The validity
// fields are checked by Validate but not read elsewhere; the lifetimes a
// new pool or client uses come from Config.Pool (DefaultPoolConfig).
type TokenConfig struct {
	Issuer               string
	KeyID                string
	AccessTokenValidity  time.Duration
	IdTokenValidity      time.Duration
	RefreshTokenValidity time.Duration
}

/*
====================================
TRIGGER CONFIG
====================================
*/

// TriggerConfig controls the lifecycle-hook runtime shared by every pool's
// trigger registry.
type TriggerConfig struct {
	HookTimeout time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the audit dispatcher's buffering behavior.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls whether metrics collection is active.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT POOL CONFIG
====================================
*/

// DefaultPoolConfig supplies the defaults CreateUserPool applies to a pool
// that doesn't explicitly override them.
type DefaultPoolConfig struct {
	MFAConfiguration     string
	PasswordMinLength    int
	AccessTokenValidity  time.Duration
	IdTokenValidity      time.Duration
	RefreshTokenValidity time.Duration
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Issuer:               "http://localhost/cognitoemu",
			KeyID:                "local-1",
			AccessTokenValidity:  time.Hour,
			IdTokenValidity:      time.Hour,
			RefreshTokenValidity: 30 * 24 * time.Hour,
		},
		Trigger: TriggerConfig{
			HookTimeout: 5 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Pool: DefaultPoolConfig{
			MFAConfiguration:     "OFF",
			PasswordMinLength:    8,
			AccessTokenValidity:  time.Hour,
			IdTokenValidity:      time.Hour,
			RefreshTokenValidity: 30 * 24 * time.Hour,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects impossible configurations before construction proceeds.
func (c Config) Validate() error {
	if c.Token.Issuer == "" {
		return errors.New("Token Issuer must not be empty")
	}
	if c.Token.KeyID == "" {
		return errors.New("Token KeyID must not be empty")
	}
	if c.Token.AccessTokenValidity <= 0 {
		return errors.New("Token AccessTokenValidity must be > 0")
	}
	if c.Token.IdTokenValidity <= 0 {
		return errors.New("Token IdTokenValidity must be > 0")
	}
	if c.Token.RefreshTokenValidity <= 0 {
		return errors.New("Token RefreshTokenValidity must be > 0")
	}

	if c.Trigger.HookTimeout < 0 {
		return errors.New("Trigger HookTimeout must be >= 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Pool.PasswordMinLength < 0 {
		return errors.New("Pool PasswordMinLength must be >= 0")
	}
	switch c.Pool.MFAConfiguration {
	case "", "OFF", "OPTIONAL", "ON":
		// valid
	default:
		return errors.New("Pool MFAConfiguration must be OFF, OPTIONAL, or ON")
	}
	if c.Pool.AccessTokenValidity <= 0 {
		return errors.New("Pool AccessTokenValidity must be > 0")
	}
	if c.Pool.IdTokenValidity <= 0 {
		return errors.New("Pool IdTokenValidity must be > 0")
	}
	if c.Pool.RefreshTokenValidity <= 0 {
		return errors.New("Pool RefreshTokenValidity must be > 0")
	}

	return nil
}

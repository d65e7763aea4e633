// Package tokens implements the token generator: RSA-signed access and ID
// tokens and the JWKS document that exposes the signing key's public half
// to verifiers. Opaque refresh tokens are generated by internal/id.
package tokens

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the superset of claim fields the generator may set on either
// token kind; MarshalJSON writes only the fields that are set, which keeps
// access and ID tokens disjoint on the wire despite sharing a struct.
type Claims struct {
	Sub            string   `json:"sub"`
	CognitoGroups  []string `json:"cognito:groups,omitempty"`
	ClientID       string   `json:"client_id,omitempty"`
	OriginJTI      string   `json:"origin_jti,omitempty"`
	EventID        string   `json:"event_id,omitempty"`
	TokenUse       string   `json:"token_use"`
	Scope          string   `json:"scope,omitempty"`
	AuthTime       int64    `json:"auth_time"`
	Username       string   `json:"username,omitempty"`
	CognitoUsername string  `json:"cognito:username,omitempty"`

	Extra map[string]interface{} `json:"-"`

	jwt.RegisteredClaims
}

// MarshalJSON flattens Extra into the top-level object so trigger-supplied
// claim overrides ride alongside the generator's own fields.
func (c Claims) MarshalJSON() ([]byte, error) {
	base := map[string]interface{}{
		"sub":        c.Sub,
		"token_use":  c.TokenUse,
		"auth_time":  c.AuthTime,
		"exp":        c.ExpiresAt.Unix(),
		"iat":        c.IssuedAt.Unix(),
	}
	if c.Issuer != "" {
		base["iss"] = c.Issuer
	}
	if len(c.Audience) > 0 {
		if len(c.Audience) == 1 {
			base["aud"] = c.Audience[0]
		} else {
			base["aud"] = c.Audience
		}
	}
	if c.ID != "" {
		base["jti"] = c.ID
	}
	if c.CognitoGroups != nil {
		base["cognito:groups"] = c.CognitoGroups
	}
	if c.ClientID != "" {
		base["client_id"] = c.ClientID
	}
	if c.OriginJTI != "" {
		base["origin_jti"] = c.OriginJTI
	}
	if c.EventID != "" {
		base["event_id"] = c.EventID
	}
	if c.Scope != "" {
		base["scope"] = c.Scope
	}
	if c.Username != "" {
		base["username"] = c.Username
	}
	if c.CognitoUsername != "" {
		base["cognito:username"] = c.CognitoUsername
	}
	for k, v := range c.Extra {
		base[k] = v
	}
	return json.Marshal(base)
}

// Manager issues and verifies RS256 JWTs against a single signing key,
// taken from Config.PrivateKey or generated at construction, and exposed
// read-only via JWKS. The Manager does not read or write keys on disk, so
// a generated key lasts only as long as the process.
type Manager struct {
	key    *rsa.PrivateKey
	keyID  string
	issuer string
}

// Config configures a Manager.
type Config struct {
	PrivateKey *rsa.PrivateKey // nil generates a fresh 2048-bit key
	KeyID      string
	Issuer     string
}

// NewManager constructs a Manager, generating a 2048-bit RSA key when none
// is supplied. Signing keys are singleton per process by convention of the
// caller holding one Manager for the process lifetime.
func NewManager(cfg Config) (*Manager, error) {
	key := cfg.PrivateKey
	if key == nil {
		generated, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, fmt.Errorf("tokens: generate signing key: %w", err)
		}
		key = generated
	}
	if cfg.KeyID == "" {
		return nil, errors.New("tokens: KeyID is required")
	}
	return &Manager{key: key, keyID: cfg.KeyID, issuer: cfg.Issuer}, nil
}

// AccessTokenInput carries every field CreateAccessToken needs to shape the
// claims described in spec §4.4.
type AccessTokenInput struct {
	Sub       string
	Username  string
	ClientID  string
	Groups    []string
	Validity  time.Duration
	AuthTime  time.Time
	OriginJTI string
	EventID   string
	JTI       string
	Overrides map[string]interface{}
	Suppress  []string
}

// CreateAccessToken signs an access token per the input.
func (m *Manager) CreateAccessToken(in AccessTokenInput) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Sub:           in.Sub,
		CognitoGroups: in.Groups,
		ClientID:      in.ClientID,
		OriginJTI:     in.OriginJTI,
		EventID:       in.EventID,
		TokenUse:      "access",
		Scope:         "aws.cognito.signin.user.admin",
		AuthTime:      in.AuthTime.Unix(),
		Username:      in.Username,
		Extra:         applyOverrides(nil, in.Overrides, in.Suppress),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(in.Validity)),
			ID:        in.JTI,
		},
	}
	return m.sign(claims)
}

// IDTokenInput carries the fields CreateIDToken needs.
type IDTokenInput struct {
	Sub        string
	Username   string
	ClientID   string
	Attributes map[string]string
	Validity   time.Duration
	AuthTime   time.Time
	Overrides  map[string]interface{}
	Suppress   []string
}

// CreateIDToken signs an ID token carrying the user's mapped attributes.
func (m *Manager) CreateIDToken(in IDTokenInput) (string, error) {
	now := time.Now().UTC()
	extra := make(map[string]interface{}, len(in.Attributes))
	for k, v := range in.Attributes {
		switch k {
		case "email_verified", "phone_number_verified":
			extra[k] = v == "true"
		default:
			extra[k] = v
		}
	}
	extra = applyOverrides(extra, in.Overrides, in.Suppress)

	claims := Claims{
		Sub:             in.Sub,
		TokenUse:        "id",
		AuthTime:        in.AuthTime.Unix(),
		CognitoUsername: in.Username,
		Extra:           extra,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{in.ClientID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(in.Validity)),
		},
	}
	return m.sign(claims)
}

func applyOverrides(base map[string]interface{}, overrides map[string]interface{}, suppress []string) map[string]interface{} {
	if base == nil {
		base = make(map[string]interface{})
	}
	for k, v := range overrides {
		base[k] = v
	}
	for _, k := range suppress {
		delete(base, k)
	}
	if len(base) == 0 {
		return nil
	}
	return base
}

func (m *Manager) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = m.keyID
	return token.SignedString(m.key)
}

// ParseAndVerify parses tokenStr, verifying its signature against the
// Manager's public key and the parser's standard time checks (exp). It does
// not check token_use, issuer or audience; callers do that against the
// token kind and the specific pool/client they expect.
func (m *Manager) ParseAndVerify(tokenStr string) (map[string]interface{}, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}))
	token, err := parser.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return &m.key.PublicKey, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// KeyID returns the signing key's identifier, used as the JWKS kid.
func (m *Manager) KeyID() string { return m.keyID }

// PublicKey exposes the verification key for JWKS rendering.
func (m *Manager) PublicKey() *rsa.PublicKey { return &m.key.PublicKey }

func b64url(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

package tokens

import (
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{KeyID: "test-kid", Issuer: "https://example.test/pool"})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestCreateAndVerifyAccessToken(t *testing.T) {
	m := newTestManager(t)

	tok, err := m.CreateAccessToken(AccessTokenInput{
		Sub:      "sub-1",
		Username: "alice",
		ClientID: "client-1",
		Validity: time.Hour,
		AuthTime: time.Now(),
		JTI:      "jti-1",
	})
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}

	claims, err := m.ParseAndVerify(tok)
	if err != nil {
		t.Fatalf("ParseAndVerify: %v", err)
	}
	if claims["sub"] != "sub-1" || claims["token_use"] != "access" || claims["client_id"] != "client-1" {
		t.Fatalf("unexpected claims: %v", claims)
	}
}

func TestPreTokenGenerationOverridesAndSuppression(t *testing.T) {
	m := newTestManager(t)

	tok, err := m.CreateAccessToken(AccessTokenInput{
		Sub:       "sub-1",
		Username:  "alice",
		ClientID:  "client-1",
		Validity:  time.Hour,
		AuthTime:  time.Now(),
		Overrides: map[string]interface{}{"custom:tier": "gold"},
	})
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}

	claims, err := m.ParseAndVerify(tok)
	if err != nil {
		t.Fatalf("ParseAndVerify: %v", err)
	}
	if claims["custom:tier"] != "gold" {
		t.Fatalf("expected override claim present, got %v", claims)
	}

	idTok, err := m.CreateIDToken(IDTokenInput{
		Sub:        "sub-1",
		Username:   "alice",
		ClientID:   "client-1",
		Attributes: map[string]string{"email": "alice@example.com", "custom:tier": "silver"},
		Validity:   time.Hour,
		AuthTime:   time.Now(),
		Overrides:  map[string]interface{}{"custom:tier": "gold"},
		Suppress:   []string{"email"},
	})
	if err != nil {
		t.Fatalf("CreateIDToken: %v", err)
	}

	idClaims, err := m.ParseAndVerify(idTok)
	if err != nil {
		t.Fatalf("ParseAndVerify: %v", err)
	}
	if idClaims["custom:tier"] != "gold" {
		t.Fatalf("expected override claim present, got %v", idClaims)
	}
	if _, ok := idClaims["email"]; ok {
		t.Fatalf("expected suppressed claim absent, got %v", idClaims)
	}
}

func TestJWKSDocumentExposesConfiguredKid(t *testing.T) {
	m := newTestManager(t)
	doc := m.JWKSDocument()
	if len(doc.Keys) != 1 || doc.Keys[0].Kid != "test-kid" || doc.Keys[0].Kty != "RSA" {
		t.Fatalf("unexpected JWKS: %+v", doc)
	}
}

func TestExpiryMatchesConfiguredValidity(t *testing.T) {
	m := newTestManager(t)
	validity := 45 * time.Minute

	tok, err := m.CreateIDToken(IDTokenInput{
		Sub:        "sub-1",
		Username:   "alice",
		ClientID:   "client-1",
		Attributes: map[string]string{"email": "alice@example.com", "email_verified": "true"},
		Validity:   validity,
		AuthTime:   time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateIDToken: %v", err)
	}

	claims, err := m.ParseAndVerify(tok)
	if err != nil {
		t.Fatalf("ParseAndVerify: %v", err)
	}
	exp, _ := claims["exp"].(float64)
	iat, _ := claims["iat"].(float64)
	if exp-iat < validity.Seconds()-1 || exp-iat > validity.Seconds()+1 {
		t.Fatalf("exp-iat = %v, want ~%v", exp-iat, validity.Seconds())
	}
	if claims["email_verified"] != true {
		t.Fatalf("expected boolean email_verified, got %v (%T)", claims["email_verified"], claims["email_verified"])
	}
}

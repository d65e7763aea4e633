package cognitoemu

import (
	"context"
	"errors"
	"testing"

	"github.com/localcognito/cognitoemu/otp"
	"github.com/localcognito/cognitoemu/store"
	"github.com/localcognito/cognitoemu/trigger"
)

func newTestEngine(t *testing.T, mfa store.MFAConfiguration) *Engine {
	t.Helper()
	cfg := defaultConfig()
	if mfa != "" {
		cfg.Pool.MFAConfiguration = string(mfa)
	}
	e, err := New().WithConfig(cfg).WithBackend(store.NewMemoryBackend()).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return e
}

func createPoolAndClient(t *testing.T, e *Engine) (*store.UserPool, *store.AppClient) {
	t.Helper()
	ctx := context.Background()
	pool, err := e.CreateUserPool(ctx, "s1")
	if err != nil {
		t.Fatalf("CreateUserPool: %v", err)
	}
	client, err := e.CreateUserPoolClient(ctx, pool.Id, "c1", nil)
	if err != nil {
		t.Fatalf("CreateUserPoolClient: %v", err)
	}
	return pool, client
}

func putUser(t *testing.T, e *Engine, poolId, username, password string, status store.UserStatus, mfaSettings []string) *store.User {
	t.Helper()
	ctx := context.Background()
	p, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		t.Fatalf("getUserPool: %v", err)
	}
	u := &store.User{
		Username:           username,
		Sub:                "sub-" + username,
		Password:           password,
		UserStatus:         status,
		Enabled:            true,
		UserMFASettingList: mfaSettings,
	}
	if err := p.SaveUser(ctx, u); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	return u
}

// S1: password login, no MFA.
func TestInitiateAuth_PasswordLogin_NoMFA(t *testing.T) {
	e := newTestEngine(t, store.MFAOff)
	pool, client := createPoolAndClient(t, e)
	putUser(t, e, pool.Id, "alice", "p@ss", store.StatusConfirmed, nil)

	out, err := e.InitiateAuth(context.Background(), InitiateAuthInput{
		ClientId: client.ClientId,
		AuthFlow: FlowUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME": "alice",
			"PASSWORD": "p@ss",
		},
	})
	if err != nil {
		t.Fatalf("InitiateAuth: %v", err)
	}
	if out.AuthenticationResult == nil {
		t.Fatalf("expected AuthenticationResult, got challenge %v", out.ChallengeName)
	}
	res := out.AuthenticationResult
	if res.AccessToken == "" || res.IdToken == "" || res.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens, got %+v", res)
	}

	p, _ := e.facade.getUserPool(context.Background(), pool.Id)
	u, ok := p.GetUserByUsername("alice")
	if !ok {
		t.Fatalf("expected alice to exist")
	}
	if !u.HasRefreshToken(res.RefreshToken) {
		t.Fatalf("expected alice.RefreshTokens to contain issued token")
	}
}

// S2 + S3 + S4: MFA challenge issuance, correct code, wrong code.
func TestInitiateAuth_MFAChallenge_ThenRespond(t *testing.T) {
	e := newTestEngine(t, store.MFAOn)
	e.otp = otp.NewFixed("999999")
	pool, client := createPoolAndClient(t, e)
	putUser(t, e, pool.Id, "alice", "p@ss", store.StatusConfirmed, []string{"SOFTWARE_TOKEN_MFA"})

	out, err := e.InitiateAuth(context.Background(), InitiateAuthInput{
		ClientId: client.ClientId,
		AuthFlow: FlowUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME": "alice",
			"PASSWORD": "p@ss",
		},
	})
	if err != nil {
		t.Fatalf("InitiateAuth: %v", err)
	}
	if out.ChallengeName != ChallengeSoftwareTokenMFA {
		t.Fatalf("expected SOFTWARE_TOKEN_MFA challenge, got %v", out.ChallengeName)
	}
	if out.ChallengeParameters["USER_ID_FOR_SRP"] != "alice" {
		t.Fatalf("unexpected challenge params: %v", out.ChallengeParameters)
	}
	if out.Session == "" {
		t.Fatalf("expected non-empty Session")
	}

	p, _ := e.facade.getUserPool(context.Background(), pool.Id)
	u, _ := p.GetUserByUsername("alice")
	if u.MFACode != "999999" {
		t.Fatalf("expected stub MFA code 999999, got %q", u.MFACode)
	}

	// S4: wrong code.
	if _, err := e.RespondToAuthChallenge(context.Background(), RespondToAuthChallengeInput{
		ChallengeName: ChallengeSoftwareTokenMFA,
		Session:       out.Session,
		ChallengeResponses: map[string]string{
			"USERNAME":                "alice",
			"SOFTWARE_TOKEN_MFA_CODE": "111111",
		},
	}); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}

	// Session is consumed by the failed attempt above; re-issue it to
	// complete S3 against a fresh challenge.
	out2, err := e.InitiateAuth(context.Background(), InitiateAuthInput{
		ClientId: client.ClientId,
		AuthFlow: FlowUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME": "alice",
			"PASSWORD": "p@ss",
		},
	})
	if err != nil {
		t.Fatalf("InitiateAuth (re-challenge): %v", err)
	}

	// S3: correct code.
	resp, err := e.RespondToAuthChallenge(context.Background(), RespondToAuthChallengeInput{
		ChallengeName: ChallengeSoftwareTokenMFA,
		Session:       out2.Session,
		ChallengeResponses: map[string]string{
			"USERNAME":                "alice",
			"SOFTWARE_TOKEN_MFA_CODE": "999999",
		},
	})
	if err != nil {
		t.Fatalf("RespondToAuthChallenge: %v", err)
	}
	if resp.AuthenticationResult == nil {
		t.Fatalf("expected AuthenticationResult after MFA success")
	}

	p2, _ := e.facade.getUserPool(context.Background(), pool.Id)
	u2, _ := p2.GetUserByUsername("alice")
	if u2.MFACode != "" {
		t.Fatalf("expected MFACode cleared, got %q", u2.MFACode)
	}
}

// S5: refresh does not rotate the token and leaves RefreshTokens unchanged.
func TestInitiateAuth_Refresh_NoRotation(t *testing.T) {
	e := newTestEngine(t, store.MFAOff)
	pool, client := createPoolAndClient(t, e)
	putUser(t, e, pool.Id, "alice", "p@ss", store.StatusConfirmed, nil)

	login, err := e.InitiateAuth(context.Background(), InitiateAuthInput{
		ClientId: client.ClientId,
		AuthFlow: FlowUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME": "alice",
			"PASSWORD": "p@ss",
		},
	})
	if err != nil {
		t.Fatalf("InitiateAuth: %v", err)
	}
	rt := login.AuthenticationResult.RefreshToken

	refreshed, err := e.InitiateAuth(context.Background(), InitiateAuthInput{
		ClientId: client.ClientId,
		AuthFlow: FlowRefreshTokenAuth,
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": rt,
		},
	})
	if err != nil {
		t.Fatalf("InitiateAuth (refresh): %v", err)
	}
	if refreshed.AuthenticationResult.AccessToken == "" || refreshed.AuthenticationResult.IdToken == "" {
		t.Fatalf("expected fresh access/id tokens")
	}

	p, _ := e.facade.getUserPool(context.Background(), pool.Id)
	u, _ := p.GetUserByUsername("alice")
	if len(u.RefreshTokens) != 1 {
		t.Fatalf("expected exactly one refresh token after refresh, got %v", u.RefreshTokens)
	}
	if !u.HasRefreshToken(rt) {
		t.Fatalf("expected original refresh token to remain bound")
	}
}

// S6: user migration trigger synthesizes and persists a new user.
func TestInitiateAuth_UserMigration(t *testing.T) {
	e := newTestEngine(t, store.MFAOff)
	pool, client := createPoolAndClient(t, e)

	e.triggers.Bind(trigger.HookUserMigration, trigger.HandlerFunc(func(ctx context.Context, hook trigger.Hook, ev trigger.Event) (trigger.Event, error) {
		if ev.Response == nil {
			ev.Response = map[string]interface{}{}
		}
		ev.Response["userAttributes"] = map[string]string{}
		return ev, nil
	}))

	out, err := e.InitiateAuth(context.Background(), InitiateAuthInput{
		ClientId: client.ClientId,
		AuthFlow: FlowUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME": "bob",
			"PASSWORD": "secret",
		},
	})
	if err != nil {
		t.Fatalf("InitiateAuth: %v", err)
	}
	if out.AuthenticationResult == nil {
		t.Fatalf("expected AuthenticationResult for migrated user")
	}

	p, _ := e.facade.getUserPool(context.Background(), pool.Id)
	if _, ok := p.GetUserByUsername("bob"); !ok {
		t.Fatalf("expected bob to be persisted after migration")
	}
}

func TestInitiateAuth_UnknownClient(t *testing.T) {
	e := newTestEngine(t, "")
	_, err := e.InitiateAuth(context.Background(), InitiateAuthInput{
		ClientId: "does-not-exist",
		AuthFlow: FlowUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME": "alice",
			"PASSWORD": "p@ss",
		},
	})
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

// UNCONFIRMED is only reported after the password check succeeds.
func TestInitiateAuth_UnconfirmedAfterPasswordCheck(t *testing.T) {
	e := newTestEngine(t, store.MFAOff)
	pool, client := createPoolAndClient(t, e)
	putUser(t, e, pool.Id, "alice", "p@ss", store.StatusUnconfirmed, nil)

	if _, err := e.InitiateAuth(context.Background(), InitiateAuthInput{
		ClientId: client.ClientId,
		AuthFlow: FlowUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME": "alice",
			"PASSWORD": "wrong",
		},
	}); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword before UserNotConfirmed, got %v", err)
	}

	if _, err := e.InitiateAuth(context.Background(), InitiateAuthInput{
		ClientId: client.ClientId,
		AuthFlow: FlowUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME": "alice",
			"PASSWORD": "p@ss",
		},
	}); !errors.Is(err, ErrUserNotConfirmed) {
		t.Fatalf("expected ErrUserNotConfirmed after correct password, got %v", err)
	}
}

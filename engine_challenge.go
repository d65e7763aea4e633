package cognitoemu

import (
	"context"

	internalmetrics "github.com/localcognito/cognitoemu/internal/metrics"
	"github.com/localcognito/cognitoemu/store"
)

// RespondToAuthChallenge completes a pending challenge identified by
// in.Session, dispatching on the challenge kind per spec §4.1.
func (e *Engine) RespondToAuthChallenge(ctx context.Context, in RespondToAuthChallengeInput) (*RespondToAuthChallengeOutput, error) {
	pending, ok := e.takeSession(in.Session)
	if !ok {
		return nil, ErrNotAuthorized
	}

	pool, err := e.facade.getUserPool(ctx, pending.UserPoolId)
	if err != nil {
		return nil, err
	}
	client, ok := pool.GetClient(pending.ClientId)
	if !ok {
		return nil, ErrResourceNotFound
	}

	switch pending.ChallengeName {
	case ChallengeNewPasswordRequired:
		return e.respondNewPasswordRequired(ctx, pool, client, pending, in)
	case ChallengeSoftwareTokenMFA, ChallengeSMSMFA:
		return e.respondMFA(ctx, pool, client, pending, in)
	case ChallengePasswordVerifier:
		return e.respondPasswordVerifier(ctx, pool, client, in)
	default:
		return nil, Unsupported(string(pending.ChallengeName))
	}
}

func (e *Engine) respondNewPasswordRequired(ctx context.Context, pool *store.Pool, client *store.AppClient, pending *pendingChallenge, in RespondToAuthChallengeInput) (*RespondToAuthChallengeOutput, error) {
	user, ok := pool.GetUserByUsername(pending.Username)
	if !ok {
		return nil, ErrUserNotFound
	}

	newPassword := in.ChallengeResponses["NEW_PASSWORD"]
	if newPassword == "" {
		return nil, ErrInvalidParameter
	}

	for name, value := range in.ChallengeResponses {
		if name == "NEW_PASSWORD" || name == "USERNAME" {
			continue
		}
		if isWritableAttribute(pool, name) {
			user.SetAttribute(name, value)
		}
	}

	user.Password = newPassword
	user.UserStatus = store.StatusConfirmed
	if err := pool.SaveUser(ctx, user); err != nil {
		return nil, ErrInternal
	}

	result, err := e.completeLogin(ctx, pool, client, user, "Authentication")
	if err != nil {
		return nil, err
	}
	return &RespondToAuthChallengeOutput{AuthenticationResult: result.AuthenticationResult}, nil
}

func (e *Engine) respondMFA(ctx context.Context, pool *store.Pool, client *store.AppClient, pending *pendingChallenge, in RespondToAuthChallengeInput) (*RespondToAuthChallengeOutput, error) {
	user, ok := pool.GetUserByUsername(pending.Username)
	if !ok {
		return nil, ErrUserNotFound
	}

	code := in.ChallengeResponses["SOFTWARE_TOKEN_MFA_CODE"]
	if code == "" {
		code = in.ChallengeResponses["SMS_MFA_CODE"]
	}
	if code == "" || code != user.MFACode {
		e.metricInc(internalmetrics.MetricChallengeResponseMismatch)
		return nil, ErrCodeMismatch
	}

	user.MFACode = ""
	if err := pool.SaveUser(ctx, user); err != nil {
		return nil, ErrInternal
	}
	e.metricInc(internalmetrics.MetricChallengeResponseSuccess)

	result, err := e.completeLogin(ctx, pool, client, user, "Authentication")
	if err != nil {
		return nil, err
	}
	return &RespondToAuthChallengeOutput{AuthenticationResult: result.AuthenticationResult}, nil
}

func (e *Engine) respondPasswordVerifier(ctx context.Context, pool *store.Pool, client *store.AppClient, in RespondToAuthChallengeInput) (*RespondToAuthChallengeOutput, error) {
	username := in.ChallengeResponses["USERNAME"]
	password := in.ChallengeResponses["PASSWORD"]
	if username == "" || password == "" {
		return nil, ErrInvalidParameter
	}

	out, err := e.initiatePasswordAuth(ctx, pool, client, InitiateAuthInput{
		AuthParameters: map[string]string{"USERNAME": username, "PASSWORD": password},
	})
	if err != nil {
		return nil, err
	}
	return &RespondToAuthChallengeOutput{
		ChallengeName:        out.ChallengeName,
		ChallengeParameters:  out.ChallengeParameters,
		Session:              out.Session,
		AuthenticationResult: out.AuthenticationResult,
	}, nil
}

func isWritableAttribute(pool *store.Pool, name string) bool {
	snap := pool.Snapshot()
	if len(snap.Schema) == 0 {
		return true
	}
	for _, s := range snap.Schema {
		if s.Name == name {
			return s.Mutable
		}
	}
	return false
}

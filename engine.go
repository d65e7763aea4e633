package cognitoemu

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	internalaudit "github.com/localcognito/cognitoemu/internal/audit"
	internalid "github.com/localcognito/cognitoemu/internal/id"
	internalmetrics "github.com/localcognito/cognitoemu/internal/metrics"
	"github.com/localcognito/cognitoemu/messages"
	"github.com/localcognito/cognitoemu/otp"
	"github.com/localcognito/cognitoemu/store"
	"github.com/localcognito/cognitoemu/tokens"
	"github.com/localcognito/cognitoemu/trigger"
)

// MetricID re-exports internal/metrics.MetricID so callers outside the
// module can read a MetricsSnapshot without importing an internal package.
type MetricID = internalmetrics.MetricID

// MetricsSnapshot re-exports internal/metrics.Snapshot for the same reason.
type MetricsSnapshot = internalmetrics.Snapshot

// Engine implements the authentication state machine, wired to a pool
// facade, token generator, trigger runtime, OTP generator, and message
// service. Construct one with Builder.
type Engine struct {
	config Config

	facade   *facade
	tokens   *tokens.Manager
	triggers *trigger.Registry
	otp      *otp.Generator
	messages *messages.Service
	audit    *internalaudit.Dispatcher
	metrics  *internalmetrics.Metrics

	sessionMu sync.Mutex
	sessions  map[string]*pendingChallenge
}

// Close drains the audit dispatcher, blocking until every buffered event
// has reached its sink.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were dropped because the
// dispatcher's buffer was full and DropIfFull was set.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time read of every counter and
// histogram; a disabled Engine returns an empty snapshot.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}, Histograms: map[MetricID][]uint64{}}
	}
	return e.metrics.Snapshot()
}

// JWKSDocument exposes the signing key's public half for the
// /.well-known/jwks.json endpoint.
func (e *Engine) JWKSDocument() tokens.JWKS {
	return e.tokens.JWKSDocument()
}

// CreateUserPool constructs and persists a new pool, applying the
// Builder's DefaultPoolConfig to any field the caller left unset.
func (e *Engine) CreateUserPool(ctx context.Context, name string) (*store.UserPool, error) {
	id := internalid.NewUserPoolID("us-east-1")
	doc := &store.UserPool{
		Id:                   id,
		Name:                 name,
		IssuerURL:            e.config.Token.Issuer + "/" + id,
		MFAConfiguration:     store.MFAConfiguration(e.config.Pool.MFAConfiguration),
		PasswordPolicy:       store.PasswordPolicy{MinimumLength: e.config.Pool.PasswordMinLength},
		AccessTokenValidity:  e.config.Pool.AccessTokenValidity,
		IdTokenValidity:      e.config.Pool.IdTokenValidity,
		RefreshTokenValidity: e.config.Pool.RefreshTokenValidity,
	}
	pool, err := e.facade.createUserPool(ctx, doc)
	if err != nil {
		return nil, err
	}
	snap := pool.Snapshot()
	return &snap, nil
}

// CreateUserPoolClient registers a new app client against poolId.
func (e *Engine) CreateUserPoolClient(ctx context.Context, poolId, name string, explicitAuthFlows []string) (*store.AppClient, error) {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return nil, err
	}
	secret, err := internalid.NewClientSecret()
	if err != nil {
		return nil, ErrInternal
	}
	client := &store.AppClient{
		ClientId:             internalid.NewClientID(),
		ClientName:           name,
		UserPoolId:           poolId,
		ClientSecret:         secret,
		ExplicitAuthFlows:    explicitAuthFlows,
		AccessTokenValidity:  e.config.Pool.AccessTokenValidity,
		IdTokenValidity:      e.config.Pool.IdTokenValidity,
		RefreshTokenValidity: e.config.Pool.RefreshTokenValidity,
	}
	if err := pool.SaveClient(ctx, client); err != nil {
		return nil, ErrInternal
	}
	e.facade.registerClient(pool, client.ClientId)
	return client, nil
}

// DescribeUserPoolClient returns the app client's current definition.
func (e *Engine) DescribeUserPoolClient(ctx context.Context, clientId string) (*store.AppClient, error) {
	client, _, err := e.facade.getAppClient(ctx, clientId)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// InitiateAuth begins (or, for USER_SRP_AUTH, detours around) the login
// state machine per spec §4.1.
func (e *Engine) InitiateAuth(ctx context.Context, in InitiateAuthInput) (*InitiateAuthOutput, error) {
	client, pool, err := e.facade.getAppClient(ctx, in.ClientId)
	if err != nil {
		return nil, ErrNotAuthorized
	}
	if !client.SupportsFlow(string(in.AuthFlow)) {
		return nil, ErrNotAuthorized
	}

	switch in.AuthFlow {
	case FlowUserPasswordAuth, FlowAdminUserPasswordAuth:
		return e.initiatePasswordAuth(ctx, pool, client, in)
	case FlowRefreshToken, FlowRefreshTokenAuth:
		return e.initiateRefreshAuth(ctx, pool, client, in)
	case FlowUserSRPAuth:
		return e.issueChallenge(pool.ID(), client.ClientId, "", ChallengePasswordVerifier, nil), nil
	default:
		return nil, Unsupported(string(in.AuthFlow))
	}
}

func (e *Engine) initiatePasswordAuth(ctx context.Context, pool *store.Pool, client *store.AppClient, in InitiateAuthInput) (*InitiateAuthOutput, error) {
	username := in.AuthParameters["USERNAME"]
	password := in.AuthParameters["PASSWORD"]
	if username == "" || password == "" {
		return nil, ErrInvalidParameter
	}

	user, ok := pool.GetUserByUsername(username)
	if !ok {
		migrated, err := e.runUserMigration(ctx, pool, client, username, password)
		if err != nil || migrated == nil {
			e.metricInc(internalmetrics.MetricInitiateAuthFailure)
			return nil, ErrNotAuthorized
		}
		user = migrated
	}

	if !user.Enabled {
		e.metricInc(internalmetrics.MetricInitiateAuthFailure)
		return nil, ErrNotAuthorized
	}

	if err := e.runPreAuthentication(ctx, pool, client, user); err != nil {
		e.metricInc(internalmetrics.MetricInitiateAuthFailure)
		return nil, err
	}

	switch user.UserStatus {
	case store.StatusResetRequired:
		return nil, ErrPasswordResetRequired
	case store.StatusForceChangePwd:
		return e.issueNewPasswordChallenge(pool.ID(), client.ClientId, user), nil
	}

	if user.Password != password {
		e.metricInc(internalmetrics.MetricInitiateAuthFailure)
		e.emitAudit(ctx, "InitiateAuth", pool.ID(), client.ClientId, username, false, "invalid password")
		return nil, ErrInvalidPassword
	}

	if user.UserStatus == store.StatusUnconfirmed {
		return nil, ErrUserNotConfirmed
	}

	if e.requiresMFA(pool, user) {
		return e.beginMFAChallenge(ctx, pool, client, user)
	}

	return e.completeLogin(ctx, pool, client, user, "Authentication")
}

func (e *Engine) initiateRefreshAuth(ctx context.Context, pool *store.Pool, client *store.AppClient, in InitiateAuthInput) (*InitiateAuthOutput, error) {
	token := in.AuthParameters["REFRESH_TOKEN"]
	if token == "" {
		return nil, ErrInvalidParameter
	}
	user, ok := pool.GetUserByRefreshToken(token)
	if !ok {
		e.metricInc(internalmetrics.MetricRefreshFailure)
		return nil, ErrNotAuthorized
	}
	if !user.Enabled {
		e.metricInc(internalmetrics.MetricRefreshFailure)
		return nil, ErrNotAuthorized
	}

	result, err := e.issueTokens(ctx, pool, client, user, "RefreshTokens", token)
	if err != nil {
		e.metricInc(internalmetrics.MetricRefreshFailure)
		return nil, err
	}
	e.metricInc(internalmetrics.MetricRefreshSuccess)
	return &InitiateAuthOutput{AuthenticationResult: result}, nil
}

func (e *Engine) requiresMFA(pool *store.Pool, user *store.User) bool {
	snap := pool.Snapshot()
	if snap.MFAConfiguration == store.MFAOn {
		return true
	}
	return snap.MFAConfiguration == store.MFAOptional && len(user.MFAOptions) > 0
}

func (e *Engine) beginMFAChallenge(ctx context.Context, pool *store.Pool, client *store.AppClient, user *store.User) (*InitiateAuthOutput, error) {
	if len(user.UserMFASettingList) == 0 {
		return nil, ErrNotAuthorized
	}
	if !containsString(user.UserMFASettingList, "SOFTWARE_TOKEN_MFA") {
		return nil, Unsupported("MFA challenge without SOFTWARE_TOKEN")
	}

	code, err := e.otp.Generate(6)
	if err != nil {
		return nil, ErrInternal
	}
	user.MFACode = code
	if err := pool.SaveUser(ctx, user); err != nil {
		return nil, ErrInternal
	}
	e.metricInc(internalmetrics.MetricChallengeIssued)

	return e.issueChallenge(pool.ID(), client.ClientId, user.Username, ChallengeSoftwareTokenMFA, map[string]string{
		"USER_ID_FOR_SRP": user.Username,
	}), nil
}

func (e *Engine) issueNewPasswordChallenge(poolId, clientId string, user *store.User) *InitiateAuthOutput {
	attrs, _ := json.Marshal(user.AttributeMap())
	return e.issueChallenge(poolId, clientId, user.Username, ChallengeNewPasswordRequired, map[string]string{
		"USER_ID_FOR_SRP": user.Username,
		"userAttributes":  string(attrs),
	})
}

func (e *Engine) issueChallenge(poolId, clientId, username string, name ChallengeName, params map[string]string) *InitiateAuthOutput {
	session := e.newSession(poolId, clientId, username, name)
	return &InitiateAuthOutput{
		ChallengeName:       name,
		ChallengeParameters: params,
		Session:             session,
	}
}

func (e *Engine) newSession(poolId, clientId, username string, name ChallengeName) string {
	session := internalid.NewSession()
	e.sessionMu.Lock()
	e.sessions[session] = &pendingChallenge{
		UserPoolId:    poolId,
		ClientId:      clientId,
		Username:      username,
		ChallengeName: name,
		CreatedAt:     time.Now().UTC(),
	}
	e.sessionMu.Unlock()
	return session
}

func (e *Engine) takeSession(session string) (*pendingChallenge, bool) {
	e.sessionMu.Lock()
	defer e.sessionMu.Unlock()
	p, ok := e.sessions[session]
	if ok {
		delete(e.sessions, session)
	}
	return p, ok
}

// completeLogin runs PostAuthentication (if bound), issues fresh tokens,
// and persists the new refresh token onto the user.
func (e *Engine) completeLogin(ctx context.Context, pool *store.Pool, client *store.AppClient, user *store.User, reason string) (*InitiateAuthOutput, error) {
	if _, bound, err := e.triggers.Invoke(ctx, trigger.HookPostAuthentication, e.hookEvent(ctx, pool, client, user)); bound && err != nil {
		e.metricTriggerError(err)
		e.metricInc(internalmetrics.MetricInitiateAuthFailure)
		return nil, err
	}

	result, err := e.issueTokens(ctx, pool, client, user, reason, "")
	if err != nil {
		e.metricInc(internalmetrics.MetricInitiateAuthFailure)
		return nil, err
	}
	e.metricInc(internalmetrics.MetricInitiateAuthSuccess)
	e.emitAudit(ctx, "InitiateAuth", pool.ID(), client.ClientId, user.Username, true, "")
	return &InitiateAuthOutput{AuthenticationResult: result}, nil
}

// issueTokens signs access and ID tokens via the token generator, applying
// any PreTokenGeneration overrides, and persists a refresh token: a fresh
// one unless existingRefreshToken is supplied (the refresh-flow path,
// which never rotates per spec's documented deviation).
func (e *Engine) issueTokens(ctx context.Context, pool *store.Pool, client *store.AppClient, user *store.User, reason, existingRefreshToken string) (*AuthenticationResult, error) {
	snap := pool.Snapshot()
	now := time.Now().UTC()

	overrides, suppress, groups, err := e.runPreTokenGeneration(ctx, pool, client, user, reason)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = groupNames(pool.UserGroups(user.Username))
	}

	accessToken, err := e.tokens.CreateAccessToken(tokens.AccessTokenInput{
		Sub:       user.Sub,
		Username:  user.Username,
		ClientID:  client.ClientId,
		Groups:    groups,
		Validity:  snap.AccessTokenValidity,
		AuthTime:  now,
		OriginJTI: internalid.NewJTI(),
		EventID:   internalid.NewJTI(),
		JTI:       internalid.NewJTI(),
		Overrides: overrides,
		Suppress:  suppress,
	})
	if err != nil {
		return nil, ErrInternal
	}

	idToken, err := e.tokens.CreateIDToken(tokens.IDTokenInput{
		Sub:        user.Sub,
		Username:   user.Username,
		ClientID:   client.ClientId,
		Attributes: user.AttributeMap(),
		Validity:   snap.IdTokenValidity,
		AuthTime:   now,
		Overrides:  overrides,
		Suppress:   suppress,
	})
	if err != nil {
		return nil, ErrInternal
	}

	refreshToken := existingRefreshToken
	if refreshToken == "" {
		refreshToken, err = internalid.NewRefreshToken()
		if err != nil {
			return nil, ErrInternal
		}
		if err := pool.StoreRefreshToken(ctx, user.Username, refreshToken); err != nil {
			return nil, ErrInternal
		}
	}

	e.metricInc(internalmetrics.MetricTokenIssued)
	return &AuthenticationResult{
		AccessToken:  accessToken,
		IdToken:      idToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int32(snap.AccessTokenValidity.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

func (e *Engine) runPreTokenGeneration(ctx context.Context, pool *store.Pool, client *store.AppClient, user *store.User, reason string) (overrides map[string]interface{}, suppress []string, groups []string, err error) {
	event := e.hookEvent(ctx, pool, client, user)
	event.Request = map[string]interface{}{"triggerSource": "TokenGeneration_" + reason}

	result, bound, err := e.triggers.Invoke(ctx, trigger.HookPreTokenGeneration, event)
	if err != nil {
		e.metricTriggerError(err)
		return nil, nil, nil, err
	}
	if !bound {
		return nil, nil, nil, nil
	}
	e.metricInc(internalmetrics.MetricTriggerInvoked)

	if v, ok := result.Response["claimsOverrideDetails"].(map[string]interface{}); ok {
		if m, ok := v["claimsToAddOrOverride"].(map[string]interface{}); ok {
			overrides = m
		}
		suppress = toStringSlice(v["claimsToSuppress"])
		groups = toStringSlice(v["groupOverrideDetails"])
	}
	return overrides, suppress, groups, nil
}

func (e *Engine) runPreAuthentication(ctx context.Context, pool *store.Pool, client *store.AppClient, user *store.User) error {
	_, bound, err := e.triggers.Invoke(ctx, trigger.HookPreAuthentication, e.hookEvent(ctx, pool, client, user))
	if bound && err != nil {
		e.metricTriggerError(err)
		return err
	}
	return nil
}

func (e *Engine) runUserMigration(ctx context.Context, pool *store.Pool, client *store.AppClient, username, password string) (*store.User, error) {
	event := trigger.Event{
		UserPoolID:    pool.ID(),
		UserName:      username,
		CallerContext: trigger.CallerContext{ClientID: client.ClientId},
		TriggerSource: "Authentication",
		Request: map[string]interface{}{
			"userAttributes": map[string]string{},
			"password":       password,
		},
	}
	result, bound, err := e.triggers.Invoke(ctx, trigger.HookUserMigration, event)
	if bound && err != nil {
		e.metricTriggerError(err)
	}
	if !bound || err != nil {
		return nil, err
	}
	e.metricInc(internalmetrics.MetricUserMigrationInvoked)

	attrs, _ := result.Response["userAttributes"].(map[string]string)
	user := &store.User{
		Username:   username,
		Sub:        internalid.NewSub(),
		Password:   password,
		UserStatus: store.StatusConfirmed,
		Enabled:    true,
	}
	for k, v := range attrs {
		user.SetAttribute(k, v)
	}
	if err := pool.SaveUser(ctx, user); err != nil {
		e.metricInc(internalmetrics.MetricUserMigrationFailure)
		return nil, ErrInternal
	}
	return user, nil
}

func (e *Engine) hookEvent(ctx context.Context, pool *store.Pool, client *store.AppClient, user *store.User) trigger.Event {
	username := ""
	if user != nil {
		username = user.Username
	}
	clientID := ""
	if client != nil {
		clientID = client.ClientId
	}
	cc := callerContextFromContext(ctx)
	return trigger.Event{
		UserPoolID: pool.ID(),
		UserName:   username,
		CallerContext: trigger.CallerContext{
			ClientID:      clientID,
			AWSSDKVersion: cc.AWSSDKVersion,
		},
	}
}

func (e *Engine) emitAudit(ctx context.Context, eventType, poolId, clientId, username string, success bool, errMsg string) {
	if e.audit == nil {
		return
	}
	var metadata map[string]string
	if ua := userAgentFromContext(ctx); ua != "" {
		metadata = map[string]string{"user_agent": ua}
	}
	e.audit.Emit(ctx, internalaudit.Event{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		Username:   username,
		UserPoolID: poolId,
		ClientID:   clientId,
		IP:         clientIPFromContext(ctx),
		Success:    success,
		Error:      errMsg,
		Metadata:   metadata,
	})
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// metricTriggerError records a trigger invocation failure, distinguishing a
// hook that ran out of time from any other handler error.
func (e *Engine) metricTriggerError(err error) {
	if errors.Is(err, trigger.ErrHookTimeout) {
		e.metricInc(internalmetrics.MetricTriggerTimeout)
		return
	}
	e.metricInc(internalmetrics.MetricTriggerFailure)
}

func groupNames(groups []*store.Group) []string {
	if len(groups) == 0 {
		return nil
	}
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.GroupName
	}
	return names
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// toStringSlice accepts both the native []string a Go handler returns and
// the []interface{} a JSON-decoded trigger.ProcessHandler response produces,
// since both are valid shapes for claimsToSuppress/groupOverrideDetails.
func toStringSlice(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

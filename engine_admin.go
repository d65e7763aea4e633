package cognitoemu

import (
	"context"

	internalid "github.com/localcognito/cognitoemu/internal/id"
	internalmetrics "github.com/localcognito/cognitoemu/internal/metrics"
	"github.com/localcognito/cognitoemu/messages"
	"github.com/localcognito/cognitoemu/store"
	"github.com/localcognito/cognitoemu/trigger"
)

// SignUp registers a new, self-service user. PreSignUp may auto-confirm
// and auto-verify attributes; otherwise the user starts UNCONFIRMED and a
// confirmation code is recorded through the message service.
func (e *Engine) SignUp(ctx context.Context, in SignUpInput) (*SignUpOutput, error) {
	if in.Username == "" || in.Password == "" {
		return nil, ErrInvalidParameter
	}
	client, pool, err := e.facade.getAppClient(ctx, in.ClientId)
	if err != nil {
		return nil, err
	}
	if _, exists := pool.GetUserByUsername(in.Username); exists {
		e.metricInc(internalmetrics.MetricSignUpDuplicate)
		return nil, ErrUsernameExists
	}

	user := &store.User{
		Username:   in.Username,
		Sub:        internalid.NewSub(),
		Password:   in.Password,
		UserStatus: store.StatusUnconfirmed,
		Enabled:    true,
	}
	for k, v := range in.UserAttributes {
		user.SetAttribute(k, v)
	}

	event := e.hookEvent(ctx, pool, client, user)
	event.Request = map[string]interface{}{"userAttributes": in.UserAttributes}
	result, bound, err := e.triggers.Invoke(ctx, trigger.HookPreSignUp, event)
	if bound && err != nil {
		e.metricTriggerError(err)
		return nil, err
	}
	autoConfirmed := false
	if bound {
		if v, ok := result.Response["autoConfirmUser"].(bool); ok {
			autoConfirmed = v
		}
		if v, ok := result.Response["autoVerifyEmail"].(bool); ok && v {
			user.SetAttribute("email_verified", "true")
		}
		if v, ok := result.Response["autoVerifyPhone"].(bool); ok && v {
			user.SetAttribute("phone_number_verified", "true")
		}
	}

	medium := ""
	if autoConfirmed {
		user.UserStatus = store.StatusConfirmed
	} else {
		code, cerr := e.otp.Generate(6)
		if cerr != nil {
			return nil, ErrInternal
		}
		user.ConfirmationCode = code
		if dest, ok := user.Attribute("email"); ok && dest != "" {
			medium = string(messages.MediumEmail)
			e.messages.Deliver(ctx, pool.ID(), user.Username, messages.MediumEmail, dest, messages.TemplateSignUp, code, messages.Render{})
		} else if dest, ok := user.Attribute("phone_number"); ok && dest != "" {
			medium = string(messages.MediumSMS)
			e.messages.Deliver(ctx, pool.ID(), user.Username, messages.MediumSMS, dest, messages.TemplateSignUp, code, messages.Render{})
		}
	}

	if err := pool.SaveUser(ctx, user); err != nil {
		return nil, ErrInternal
	}
	e.metricInc(internalmetrics.MetricSignUpSuccess)
	return &SignUpOutput{UserSub: user.Sub, UserConfirmed: autoConfirmed, CodeDeliveryMedium: medium}, nil
}

// ConfirmSignUp validates the confirmation code delivered during SignUp
// and transitions the user to CONFIRMED.
func (e *Engine) ConfirmSignUp(ctx context.Context, in ConfirmSignUpInput) error {
	client, pool, err := e.facade.getAppClient(ctx, in.ClientId)
	if err != nil {
		return err
	}
	user, ok := pool.GetUserByUsername(in.Username)
	if !ok {
		return ErrUserNotFound
	}
	if user.ConfirmationCode == "" || in.ConfirmationCode != user.ConfirmationCode {
		e.metricInc(internalmetrics.MetricConfirmSignUpCodeMismatch)
		return ErrCodeMismatch
	}

	user.UserStatus = store.StatusConfirmed
	user.ConfirmationCode = ""
	if err := pool.SaveUser(ctx, user); err != nil {
		return ErrInternal
	}
	e.metricInc(internalmetrics.MetricConfirmSignUpSuccess)

	if _, bound, herr := e.triggers.Invoke(ctx, trigger.HookPostConfirmation, e.hookEvent(ctx, pool, client, user)); bound && herr != nil {
		// PostConfirmation failures are observational per spec §4.3: logged, not surfaced.
		e.metricTriggerError(herr)
		e.emitAudit(ctx, "PostConfirmation", pool.ID(), client.ClientId, user.Username, false, herr.Error())
	}
	return nil
}

// AdminCreateUser creates a user administratively with a temporary
// password, bypassing self-service sign-up and its PreSignUp hook.
func (e *Engine) AdminCreateUser(ctx context.Context, in AdminCreateUserInput) (*store.User, error) {
	if in.Username == "" {
		return nil, ErrInvalidParameter
	}
	pool, err := e.facade.getUserPool(ctx, in.UserPoolId)
	if err != nil {
		return nil, err
	}
	if _, exists := pool.GetUserByUsername(in.Username); exists {
		return nil, ErrUsernameExists
	}

	tempPassword := in.TemporaryPassword
	if tempPassword == "" {
		generated, gerr := internalid.NewClientSecret()
		if gerr != nil {
			return nil, ErrInternal
		}
		tempPassword = generated
	}

	user := &store.User{
		Username:   in.Username,
		Sub:        internalid.NewSub(),
		Password:   tempPassword,
		UserStatus: store.StatusForceChangePwd,
		Enabled:    true,
	}
	for k, v := range in.UserAttributes {
		user.SetAttribute(k, v)
	}
	if err := pool.SaveUser(ctx, user); err != nil {
		return nil, ErrInternal
	}
	e.metricInc(internalmetrics.MetricAdminCreateUserSuccess)

	if in.MessageAction != "SUPPRESS" {
		if dest, ok := user.Attribute("email"); ok && dest != "" {
			e.messages.Deliver(ctx, pool.ID(), user.Username, messages.MediumEmail, dest, messages.TemplateAdminCreateUser, tempPassword, messages.Render{})
		}
	}
	return user, nil
}

// AdminGetUser returns the user record by username.
func (e *Engine) AdminGetUser(ctx context.Context, poolId, username string) (*store.User, error) {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return nil, err
	}
	user, ok := pool.GetUserByUsername(username)
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// AdminDeleteUser removes a user and purges its refresh tokens.
func (e *Engine) AdminDeleteUser(ctx context.Context, poolId, username string) error {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return err
	}
	if err := pool.DeleteUser(ctx, username); err != nil {
		if err == store.ErrNotFound {
			return ErrUserNotFound
		}
		return ErrInternal
	}
	return nil
}

// ListUsers returns a filtered, paginated page of users in poolId.
func (e *Engine) ListUsers(ctx context.Context, poolId, filterExpr, paginationToken string, limit int) ([]*store.User, string, error) {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return nil, "", err
	}
	filter, err := store.ParseUserFilter(filterExpr)
	if err != nil {
		return nil, "", ErrInvalidParameter
	}
	page, next, err := pool.ListUsers(filter, paginationToken, limit)
	if err != nil {
		return nil, "", ErrInvalidParameter
	}
	return page, next, nil
}

// GlobalSignOut revokes every refresh token owned by username, invalidating
// its ability to mint new access/ID tokens via REFRESH_TOKEN_AUTH.
func (e *Engine) GlobalSignOut(ctx context.Context, clientId, username string) error {
	_, pool, err := e.facade.getAppClient(ctx, clientId)
	if err != nil {
		return err
	}
	return e.adminGlobalSignOut(ctx, pool, username)
}

// AdminUserGlobalSignOut is the pool-scoped administrative equivalent of
// GlobalSignOut, addressed by UserPoolId rather than ClientId.
func (e *Engine) AdminUserGlobalSignOut(ctx context.Context, poolId, username string) error {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return err
	}
	return e.adminGlobalSignOut(ctx, pool, username)
}

func (e *Engine) adminGlobalSignOut(ctx context.Context, pool *store.Pool, username string) error {
	if err := pool.RevokeAllRefreshTokens(ctx, username); err != nil {
		if err == store.ErrNotFound {
			return ErrUserNotFound
		}
		return ErrInternal
	}
	e.metricInc(internalmetrics.MetricGlobalSignOut)
	return nil
}

// SetUserMFAPreference updates a user's MFA settings and preferred factor.
func (e *Engine) SetUserMFAPreference(ctx context.Context, poolId, username string, pref store.MFAPreference) error {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return err
	}
	if err := pool.SetUserMFAPreference(ctx, username, pref); err != nil {
		if err == store.ErrNotFound {
			return ErrUserNotFound
		}
		return ErrInternal
	}
	return nil
}

// AssociateSoftwareToken issues a fresh TOTP-like enrollment code, recorded
// as the user's MFACode until VerifySoftwareToken confirms it. The real
// service returns a TOTP secret for an authenticator app; this emulator
// substitutes a single shared code, consistent with its deterministic MFA
// stub elsewhere.
func (e *Engine) AssociateSoftwareToken(ctx context.Context, poolId, username string) (string, error) {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return "", err
	}
	user, ok := pool.GetUserByUsername(username)
	if !ok {
		return "", ErrUserNotFound
	}
	code, err := e.otp.Generate(6)
	if err != nil {
		return "", ErrInternal
	}
	user.MFACode = code
	if err := pool.SaveUser(ctx, user); err != nil {
		return "", ErrInternal
	}
	return code, nil
}

// VerifySoftwareToken confirms enrollment by matching code against the
// pending MFACode set by AssociateSoftwareToken, then enables
// SOFTWARE_TOKEN_MFA for the user.
func (e *Engine) VerifySoftwareToken(ctx context.Context, poolId, username, code string) error {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return err
	}
	user, ok := pool.GetUserByUsername(username)
	if !ok {
		return ErrUserNotFound
	}
	if code == "" || code != user.MFACode {
		return ErrCodeMismatch
	}
	user.MFACode = ""
	if err := pool.SaveUser(ctx, user); err != nil {
		return ErrInternal
	}
	return pool.SetUserMFAPreference(ctx, username, store.MFAPreference{SoftwareTokenMFAEnabled: true, SoftwareTokenAsDefault: true})
}

// CreateGroup defines a new group within poolId.
func (e *Engine) CreateGroup(ctx context.Context, poolId string, group *store.Group) error {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return err
	}
	return pool.SaveGroup(ctx, group)
}

// AdminAddUserToGroup adds username to groupName.
func (e *Engine) AdminAddUserToGroup(ctx context.Context, poolId, groupName, username string) error {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return err
	}
	if err := pool.AddUserToGroup(ctx, groupName, username); err != nil {
		if err == store.ErrNotFound {
			return ErrResourceNotFound
		}
		return ErrInternal
	}
	return nil
}

// AdminRemoveUserFromGroup removes username from groupName.
func (e *Engine) AdminRemoveUserFromGroup(ctx context.Context, poolId, groupName, username string) error {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return err
	}
	if err := pool.RemoveUserFromGroup(ctx, groupName, username); err != nil {
		if err == store.ErrNotFound {
			return ErrResourceNotFound
		}
		return ErrInternal
	}
	return nil
}

// ListGroups returns every group in poolId, ordered by Precedence.
func (e *Engine) ListGroups(ctx context.Context, poolId string) ([]*store.Group, error) {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return nil, err
	}
	return pool.ListGroups(), nil
}

// GetGroup returns one group's definition by name.
func (e *Engine) GetGroup(ctx context.Context, poolId, groupName string) (*store.Group, error) {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return nil, err
	}
	group, ok := pool.GetGroup(groupName)
	if !ok {
		return nil, ErrResourceNotFound
	}
	return group, nil
}

// DeleteGroup removes a group definition; membership records on deleted
// users are unaffected, matching AddUserToGroup's own group-scoped storage.
func (e *Engine) DeleteGroup(ctx context.Context, poolId, groupName string) error {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return err
	}
	if err := pool.DeleteGroup(ctx, groupName); err != nil {
		if err == store.ErrNotFound {
			return ErrResourceNotFound
		}
		return ErrInternal
	}
	return nil
}

// ListUsersInGroup returns every user belonging to groupName.
func (e *Engine) ListUsersInGroup(ctx context.Context, poolId, groupName string) ([]*store.User, error) {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return nil, err
	}
	usernames := pool.ListGroupMembership(groupName)
	users := make([]*store.User, 0, len(usernames))
	for _, name := range usernames {
		if u, ok := pool.GetUserByUsername(name); ok {
			users = append(users, u)
		}
	}
	return users, nil
}

// AdminListGroupsForUser returns every group username belongs to.
func (e *Engine) AdminListGroupsForUser(ctx context.Context, poolId, username string) ([]string, error) {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return nil, err
	}
	return pool.ListUserGroupMembership(username), nil
}

// ForgotPassword issues a reset code, invoking UserMigration if the user
// is unknown, matching the spec's shared migration entry point for
// password auth and forgot-password.
func (e *Engine) ForgotPassword(ctx context.Context, clientId, username string) error {
	client, pool, err := e.facade.getAppClient(ctx, clientId)
	if err != nil {
		return err
	}
	user, ok := pool.GetUserByUsername(username)
	if !ok {
		migrated, merr := e.runUserMigration(ctx, pool, client, username, "")
		if merr != nil || migrated == nil {
			return ErrUserNotFound
		}
		user = migrated
	}

	code, err := e.otp.Generate(6)
	if err != nil {
		return ErrInternal
	}
	user.ConfirmationCode = code
	if err := pool.SaveUser(ctx, user); err != nil {
		return ErrInternal
	}
	if dest, ok := user.Attribute("email"); ok && dest != "" {
		e.messages.Deliver(ctx, pool.ID(), user.Username, messages.MediumEmail, dest, messages.TemplateForgotPassword, code, messages.Render{})
	}
	return nil
}

// ConfirmForgotPassword validates the reset code and sets a new password.
func (e *Engine) ConfirmForgotPassword(ctx context.Context, clientId, username, code, newPassword string) error {
	_, pool, err := e.facade.getAppClient(ctx, clientId)
	if err != nil {
		return err
	}
	user, ok := pool.GetUserByUsername(username)
	if !ok {
		return ErrUserNotFound
	}
	if user.ConfirmationCode == "" || code != user.ConfirmationCode {
		return ErrCodeMismatch
	}
	user.Password = newPassword
	user.ConfirmationCode = ""
	user.UserStatus = store.StatusConfirmed
	if err := pool.SaveUser(ctx, user); err != nil {
		return ErrInternal
	}
	return nil
}

// ResendConfirmationCode re-issues the SignUp confirmation code for a
// still-UNCONFIRMED user, through the same delivery mediums as SignUp.
func (e *Engine) ResendConfirmationCode(ctx context.Context, clientId, username string) (string, error) {
	_, pool, err := e.facade.getAppClient(ctx, clientId)
	if err != nil {
		return "", err
	}
	user, ok := pool.GetUserByUsername(username)
	if !ok {
		return "", ErrUserNotFound
	}
	if user.UserStatus != store.StatusUnconfirmed {
		return "", ErrInvalidParameter
	}

	code, err := e.otp.Generate(6)
	if err != nil {
		return "", ErrInternal
	}
	user.ConfirmationCode = code
	if err := pool.SaveUser(ctx, user); err != nil {
		return "", ErrInternal
	}

	medium := ""
	if dest, ok := user.Attribute("email"); ok && dest != "" {
		medium = string(messages.MediumEmail)
		e.messages.Deliver(ctx, pool.ID(), user.Username, messages.MediumEmail, dest, messages.TemplateSignUp, code, messages.Render{})
	} else if dest, ok := user.Attribute("phone_number"); ok && dest != "" {
		medium = string(messages.MediumSMS)
		e.messages.Deliver(ctx, pool.ID(), user.Username, messages.MediumSMS, dest, messages.TemplateSignUp, code, messages.Render{})
	}
	return medium, nil
}

// AdminConfirmSignUp confirms a user administratively, bypassing the
// confirmation code entirely.
func (e *Engine) AdminConfirmSignUp(ctx context.Context, poolId, username string) error {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return err
	}
	user, ok := pool.GetUserByUsername(username)
	if !ok {
		return ErrUserNotFound
	}
	user.UserStatus = store.StatusConfirmed
	user.ConfirmationCode = ""
	if err := pool.SaveUser(ctx, user); err != nil {
		return ErrInternal
	}
	return nil
}

// AdminUpdateUserAttributes upserts the given attributes onto username,
// bypassing the client-writable-attribute restriction self-service
// attribute updates are subject to.
func (e *Engine) AdminUpdateUserAttributes(ctx context.Context, poolId, username string, attrs map[string]string) error {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return err
	}
	user, ok := pool.GetUserByUsername(username)
	if !ok {
		return ErrUserNotFound
	}
	for k, v := range attrs {
		user.SetAttribute(k, v)
	}
	if err := pool.SaveUser(ctx, user); err != nil {
		return ErrInternal
	}
	return nil
}

// AdminSetUserPassword sets username's password directly. permanent false
// leaves the user in FORCE_CHANGE_PASSWORD, mirroring AdminCreateUser's
// temporary-password contract; permanent true confirms the user outright.
func (e *Engine) AdminSetUserPassword(ctx context.Context, poolId, username, password string, permanent bool) error {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return err
	}
	user, ok := pool.GetUserByUsername(username)
	if !ok {
		return ErrUserNotFound
	}
	user.Password = password
	if permanent {
		user.UserStatus = store.StatusConfirmed
	} else {
		user.UserStatus = store.StatusForceChangePwd
	}
	if err := pool.SaveUser(ctx, user); err != nil {
		return ErrInternal
	}
	return nil
}

// AdminEnableUser re-enables a disabled user.
func (e *Engine) AdminEnableUser(ctx context.Context, poolId, username string) error {
	return e.setUserEnabled(ctx, poolId, username, true)
}

// AdminDisableUser disables a user; initiatePasswordAuth, initiateRefreshAuth,
// and ResolveAccessToken each check Enabled once the user record is
// resolved, so a disabled user fails InitiateAuth, token refresh, and
// every AccessToken-addressed self-service op with NotAuthorizedException.
func (e *Engine) AdminDisableUser(ctx context.Context, poolId, username string) error {
	return e.setUserEnabled(ctx, poolId, username, false)
}

func (e *Engine) setUserEnabled(ctx context.Context, poolId, username string, enabled bool) error {
	pool, err := e.facade.getUserPool(ctx, poolId)
	if err != nil {
		return err
	}
	user, ok := pool.GetUserByUsername(username)
	if !ok {
		return ErrUserNotFound
	}
	user.Enabled = enabled
	if err := pool.SaveUser(ctx, user); err != nil {
		return ErrInternal
	}
	return nil
}

// ResolveAccessToken verifies accessToken and resolves the pool, client,
// and user it was issued for, the shared entry point for every
// AccessToken-addressed self-service operation (GetUser, ChangePassword,
// SetUserMFAPreference, AssociateSoftwareToken, VerifySoftwareToken).
func (e *Engine) ResolveAccessToken(ctx context.Context, accessToken string) (*store.Pool, *store.AppClient, *store.User, error) {
	claims, err := e.tokens.ParseAndVerify(accessToken)
	if err != nil {
		return nil, nil, nil, ErrNotAuthorized
	}
	if use, _ := claims["token_use"].(string); use != "access" {
		return nil, nil, nil, ErrNotAuthorized
	}
	clientID, _ := claims["client_id"].(string)
	username, _ := claims["username"].(string)
	if clientID == "" || username == "" {
		return nil, nil, nil, ErrNotAuthorized
	}

	client, pool, err := e.facade.getAppClient(ctx, clientID)
	if err != nil {
		return nil, nil, nil, ErrNotAuthorized
	}
	user, ok := pool.GetUserByUsername(username)
	if !ok {
		return nil, nil, nil, ErrNotAuthorized
	}
	if !user.Enabled {
		return nil, nil, nil, ErrNotAuthorized
	}
	return pool, client, user, nil
}

// GetUser returns the caller's own record, resolved from accessToken.
func (e *Engine) GetUser(ctx context.Context, accessToken string) (*store.User, error) {
	_, _, user, err := e.ResolveAccessToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies previousPassword against the caller's own
// record and, on success, sets proposedPassword.
func (e *Engine) ChangePassword(ctx context.Context, accessToken, previousPassword, proposedPassword string) error {
	pool, _, user, err := e.ResolveAccessToken(ctx, accessToken)
	if err != nil {
		return err
	}
	if user.Password != previousPassword {
		return ErrInvalidPassword
	}
	user.Password = proposedPassword
	if err := pool.SaveUser(ctx, user); err != nil {
		return ErrInternal
	}
	return nil
}

// Package handlers implements one function per wire operation, shaped
// against github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider's
// own request/response and exception types so that a real AWS SDK v2
// client unmarshals the emulator's JSON exactly as it would the real
// service's. Handlers translate between that wire shape and the Engine's
// Go-native calls; they do not implement the HTTP listener or request
// decoding that dispatches AWSCognitoIdentityProviderService.<Op> targets
// onto them.
package handlers

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	cognitoemu "github.com/localcognito/cognitoemu"
	"github.com/localcognito/cognitoemu/store"
	"github.com/localcognito/cognitoemu/tokens"
	"github.com/localcognito/cognitoemu/trigger"
)

// Handlers binds every wire operation to a single Engine.
type Handlers struct {
	Engine *cognitoemu.Engine
}

// New constructs a Handlers bound to engine.
func New(engine *cognitoemu.Engine) *Handlers {
	return &Handlers{Engine: engine}
}

// MapError translates an Engine sentinel error into the SDK exception
// value the real service would have returned, so callers using
// errors.As against *types.NotAuthorizedException and friends behave
// identically against this emulator.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var unsupported *cognitoemu.UnsupportedError
	if errors.As(err, &unsupported) {
		return &types.InvalidParameterException{Message: aws.String(unsupported.Error())}
	}
	switch {
	case errors.Is(err, cognitoemu.ErrNotAuthorized),
		errors.Is(err, cognitoemu.ErrInvalidPassword):
		return &types.NotAuthorizedException{Message: aws.String(err.Error())}
	case errors.Is(err, cognitoemu.ErrPasswordResetRequired):
		return &types.PasswordResetRequiredException{Message: aws.String(err.Error())}
	case errors.Is(err, cognitoemu.ErrUserNotFound):
		return &types.UserNotFoundException{Message: aws.String(err.Error())}
	case errors.Is(err, cognitoemu.ErrUserNotConfirmed):
		return &types.UserNotConfirmedException{Message: aws.String(err.Error())}
	case errors.Is(err, cognitoemu.ErrCodeMismatch):
		return &types.CodeMismatchException{Message: aws.String(err.Error())}
	case errors.Is(err, cognitoemu.ErrExpiredCode):
		return &types.ExpiredCodeException{Message: aws.String(err.Error())}
	case errors.Is(err, cognitoemu.ErrInvalidParameter):
		return &types.InvalidParameterException{Message: aws.String(err.Error())}
	case errors.Is(err, cognitoemu.ErrUsernameExists):
		return &types.UsernameExistsException{Message: aws.String(err.Error())}
	case errors.Is(err, cognitoemu.ErrResourceNotFound):
		return &types.ResourceNotFoundException{Message: aws.String(err.Error())}
	default:
		var hookErr *trigger.HookError
		if errors.As(err, &hookErr) {
			return &types.UnexpectedLambdaException{Message: aws.String(hookErr.Error())}
		}
		return &types.InternalErrorException{Message: aws.String(err.Error())}
	}
}

func attributesToMap(attrs []types.AttributeType) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		if a.Name == nil {
			continue
		}
		m[*a.Name] = aws.ToString(a.Value)
	}
	return m
}

func mapToAttributes(m map[string]string) []types.AttributeType {
	attrs := make([]types.AttributeType, 0, len(m))
	for k, v := range m {
		attrs = append(attrs, types.AttributeType{Name: aws.String(k), Value: aws.String(v)})
	}
	return attrs
}

func userToUserType(u *store.User) types.UserType {
	return types.UserType{
		Username:           aws.String(u.Username),
		Attributes:         mapToAttributes(u.AttributeMap()),
		UserCreateDate:      aws.Time(u.CreateDate),
		UserLastModifiedDate: aws.Time(u.LastModifiedDate),
		Enabled:            u.Enabled,
		UserStatus:         types.UserStatusType(u.UserStatus),
		MFAOptions:         mfaOptionsToType(u.MFAOptions),
	}
}

func mfaOptionsToType(opts []store.MFAOption) []types.MFAOptionType {
	out := make([]types.MFAOptionType, len(opts))
	for i, o := range opts {
		out[i] = types.MFAOptionType{
			DeliveryMedium: types.DeliveryMediumType(o.DeliveryMedium),
			AttributeName:  aws.String(o.AttributeName),
		}
	}
	return out
}

func authResultToType(r *cognitoemu.AuthenticationResult) *types.AuthenticationResultType {
	if r == nil {
		return nil
	}
	return &types.AuthenticationResultType{
		AccessToken:  aws.String(r.AccessToken),
		IdToken:      aws.String(r.IdToken),
		RefreshToken: aws.String(r.RefreshToken),
		ExpiresIn:    r.ExpiresIn,
		TokenType:    aws.String(r.TokenType),
	}
}

// InitiateAuth handles the AWSCognitoIdentityProviderService.InitiateAuth
// target.
func (h *Handlers) InitiateAuth(ctx context.Context, in *cognitoidentityprovider.InitiateAuthInput) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	out, err := h.Engine.InitiateAuth(ctx, cognitoemu.InitiateAuthInput{
		ClientId:       aws.ToString(in.ClientId),
		AuthFlow:       cognitoemu.AuthFlow(in.AuthFlow),
		AuthParameters: in.AuthParameters,
		ClientMetadata: in.ClientMetadata,
	})
	if err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.InitiateAuthOutput{
		AuthenticationResult: authResultToType(out.AuthenticationResult),
		ChallengeName:        types.ChallengeNameType(out.ChallengeName),
		ChallengeParameters:  out.ChallengeParameters,
		Session:              aws.String(out.Session),
	}, nil
}

// AdminInitiateAuth handles AdminInitiateAuth; this emulator resolves the
// pool through ClientId alone (see facade's reverse index), so the
// UserPoolId field is accepted but not separately enforced.
func (h *Handlers) AdminInitiateAuth(ctx context.Context, in *cognitoidentityprovider.AdminInitiateAuthInput) (*cognitoidentityprovider.AdminInitiateAuthOutput, error) {
	out, err := h.Engine.InitiateAuth(ctx, cognitoemu.InitiateAuthInput{
		UserPoolId:     aws.ToString(in.UserPoolId),
		ClientId:       aws.ToString(in.ClientId),
		AuthFlow:       cognitoemu.AuthFlow(in.AuthFlow),
		AuthParameters: in.AuthParameters,
		ClientMetadata: in.ClientMetadata,
	})
	if err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.AdminInitiateAuthOutput{
		AuthenticationResult: authResultToType(out.AuthenticationResult),
		ChallengeName:        types.ChallengeNameType(out.ChallengeName),
		ChallengeParameters:  out.ChallengeParameters,
		Session:              aws.String(out.Session),
	}, nil
}

// RespondToAuthChallenge handles RespondToAuthChallenge.
func (h *Handlers) RespondToAuthChallenge(ctx context.Context, in *cognitoidentityprovider.RespondToAuthChallengeInput) (*cognitoidentityprovider.RespondToAuthChallengeOutput, error) {
	out, err := h.Engine.RespondToAuthChallenge(ctx, cognitoemu.RespondToAuthChallengeInput{
		ClientId:           aws.ToString(in.ClientId),
		ChallengeName:      cognitoemu.ChallengeName(in.ChallengeName),
		Session:            aws.ToString(in.Session),
		ChallengeResponses: in.ChallengeResponses,
		ClientMetadata:     in.ClientMetadata,
	})
	if err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.RespondToAuthChallengeOutput{
		AuthenticationResult: authResultToType(out.AuthenticationResult),
		ChallengeName:        types.ChallengeNameType(out.ChallengeName),
		ChallengeParameters:  out.ChallengeParameters,
		Session:              aws.String(out.Session),
	}, nil
}

// SignUp handles SignUp.
func (h *Handlers) SignUp(ctx context.Context, in *cognitoidentityprovider.SignUpInput) (*cognitoidentityprovider.SignUpOutput, error) {
	out, err := h.Engine.SignUp(ctx, cognitoemu.SignUpInput{
		ClientId:       aws.ToString(in.ClientId),
		Username:       aws.ToString(in.Username),
		Password:       aws.ToString(in.Password),
		UserAttributes: attributesToMap(in.UserAttributes),
		ClientMetadata: in.ClientMetadata,
	})
	if err != nil {
		return nil, MapError(err)
	}
	resp := &cognitoidentityprovider.SignUpOutput{
		UserConfirmed: out.UserConfirmed,
		UserSub:       aws.String(out.UserSub),
	}
	if out.CodeDeliveryMedium != "" {
		resp.CodeDeliveryDetails = &types.CodeDeliveryDetailsType{
			DeliveryMedium: types.DeliveryMediumType(out.CodeDeliveryMedium),
		}
	}
	return resp, nil
}

// ConfirmSignUp handles ConfirmSignUp.
func (h *Handlers) ConfirmSignUp(ctx context.Context, in *cognitoidentityprovider.ConfirmSignUpInput) (*cognitoidentityprovider.ConfirmSignUpOutput, error) {
	err := h.Engine.ConfirmSignUp(ctx, cognitoemu.ConfirmSignUpInput{
		ClientId:         aws.ToString(in.ClientId),
		Username:         aws.ToString(in.Username),
		ConfirmationCode: aws.ToString(in.ConfirmationCode),
	})
	if err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.ConfirmSignUpOutput{}, nil
}

// ResendConfirmationCode handles ResendConfirmationCode.
func (h *Handlers) ResendConfirmationCode(ctx context.Context, in *cognitoidentityprovider.ResendConfirmationCodeInput) (*cognitoidentityprovider.ResendConfirmationCodeOutput, error) {
	medium, err := h.Engine.ResendConfirmationCode(ctx, aws.ToString(in.ClientId), aws.ToString(in.Username))
	if err != nil {
		return nil, MapError(err)
	}
	resp := &cognitoidentityprovider.ResendConfirmationCodeOutput{}
	if medium != "" {
		resp.CodeDeliveryDetails = &types.CodeDeliveryDetailsType{DeliveryMedium: types.DeliveryMediumType(medium)}
	}
	return resp, nil
}

// ForgotPassword handles ForgotPassword.
func (h *Handlers) ForgotPassword(ctx context.Context, in *cognitoidentityprovider.ForgotPasswordInput) (*cognitoidentityprovider.ForgotPasswordOutput, error) {
	if err := h.Engine.ForgotPassword(ctx, aws.ToString(in.ClientId), aws.ToString(in.Username)); err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.ForgotPasswordOutput{
		CodeDeliveryDetails: &types.CodeDeliveryDetailsType{DeliveryMedium: types.DeliveryMediumTypeEmail},
	}, nil
}

// ConfirmForgotPassword handles ConfirmForgotPassword.
func (h *Handlers) ConfirmForgotPassword(ctx context.Context, in *cognitoidentityprovider.ConfirmForgotPasswordInput) (*cognitoidentityprovider.ConfirmForgotPasswordOutput, error) {
	err := h.Engine.ConfirmForgotPassword(ctx, aws.ToString(in.ClientId), aws.ToString(in.Username), aws.ToString(in.ConfirmationCode), aws.ToString(in.Password))
	if err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.ConfirmForgotPasswordOutput{}, nil
}

// GlobalSignOut handles GlobalSignOut; the AccessToken names the
// caller, resolved through ResolveAccessToken before revocation.
func (h *Handlers) GlobalSignOut(ctx context.Context, in *cognitoidentityprovider.GlobalSignOutInput) (*cognitoidentityprovider.GlobalSignOutOutput, error) {
	_, client, user, err := h.Engine.ResolveAccessToken(ctx, aws.ToString(in.AccessToken))
	if err != nil {
		return nil, MapError(err)
	}
	if err := h.Engine.GlobalSignOut(ctx, client.ClientId, user.Username); err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.GlobalSignOutOutput{}, nil
}

// AdminUserGlobalSignOut handles AdminUserGlobalSignOut.
func (h *Handlers) AdminUserGlobalSignOut(ctx context.Context, in *cognitoidentityprovider.AdminUserGlobalSignOutInput) (*cognitoidentityprovider.AdminUserGlobalSignOutOutput, error) {
	err := h.Engine.AdminUserGlobalSignOut(ctx, aws.ToString(in.UserPoolId), aws.ToString(in.Username))
	if err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.AdminUserGlobalSignOutOutput{}, nil
}

// AdminCreateUser handles AdminCreateUser.
func (h *Handlers) AdminCreateUser(ctx context.Context, in *cognitoidentityprovider.AdminCreateUserInput) (*cognitoidentityprovider.AdminCreateUserOutput, error) {
	user, err := h.Engine.AdminCreateUser(ctx, cognitoemu.AdminCreateUserInput{
		UserPoolId:        aws.ToString(in.UserPoolId),
		Username:          aws.ToString(in.Username),
		UserAttributes:    attributesToMap(in.UserAttributes),
		TemporaryPassword: aws.ToString(in.TemporaryPassword),
		MessageAction:     string(in.MessageAction),
	})
	if err != nil {
		return nil, MapError(err)
	}
	ut := userToUserType(user)
	return &cognitoidentityprovider.AdminCreateUserOutput{User: &ut}, nil
}

// AdminConfirmSignUp handles AdminConfirmSignUp.
func (h *Handlers) AdminConfirmSignUp(ctx context.Context, in *cognitoidentityprovider.AdminConfirmSignUpInput) (*cognitoidentityprovider.AdminConfirmSignUpOutput, error) {
	if err := h.Engine.AdminConfirmSignUp(ctx, aws.ToString(in.UserPoolId), aws.ToString(in.Username)); err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.AdminConfirmSignUpOutput{}, nil
}

// AdminGetUser handles AdminGetUser.
func (h *Handlers) AdminGetUser(ctx context.Context, in *cognitoidentityprovider.AdminGetUserInput) (*cognitoidentityprovider.AdminGetUserOutput, error) {
	user, err := h.Engine.AdminGetUser(ctx, aws.ToString(in.UserPoolId), aws.ToString(in.Username))
	if err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.AdminGetUserOutput{
		Username:            aws.String(user.Username),
		UserAttributes:      mapToAttributes(user.AttributeMap()),
		UserCreateDate:      aws.Time(user.CreateDate),
		UserLastModifiedDate: aws.Time(user.LastModifiedDate),
		Enabled:             user.Enabled,
		UserStatus:          types.UserStatusType(user.UserStatus),
		MFAOptions:          mfaOptionsToType(user.MFAOptions),
		PreferredMfaSetting: aws.String(user.PreferredMfaSetting),
		UserMFASettingList:  user.UserMFASettingList,
	}, nil
}

// AdminDeleteUser handles AdminDeleteUser.
func (h *Handlers) AdminDeleteUser(ctx context.Context, in *cognitoidentityprovider.AdminDeleteUserInput) (*cognitoidentityprovider.AdminDeleteUserOutput, error) {
	if err := h.Engine.AdminDeleteUser(ctx, aws.ToString(in.UserPoolId), aws.ToString(in.Username)); err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.AdminDeleteUserOutput{}, nil
}

// AdminEnableUser handles AdminEnableUser.
func (h *Handlers) AdminEnableUser(ctx context.Context, in *cognitoidentityprovider.AdminEnableUserInput) (*cognitoidentityprovider.AdminEnableUserOutput, error) {
	if err := h.Engine.AdminEnableUser(ctx, aws.ToString(in.UserPoolId), aws.ToString(in.Username)); err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.AdminEnableUserOutput{}, nil
}

// AdminDisableUser handles AdminDisableUser.
func (h *Handlers) AdminDisableUser(ctx context.Context, in *cognitoidentityprovider.AdminDisableUserInput) (*cognitoidentityprovider.AdminDisableUserOutput, error) {
	if err := h.Engine.AdminDisableUser(ctx, aws.ToString(in.UserPoolId), aws.ToString(in.Username)); err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.AdminDisableUserOutput{}, nil
}

// AdminUpdateUserAttributes handles AdminUpdateUserAttributes.
func (h *Handlers) AdminUpdateUserAttributes(ctx context.Context, in *cognitoidentityprovider.AdminUpdateUserAttributesInput) (*cognitoidentityprovider.AdminUpdateUserAttributesOutput, error) {
	err := h.Engine.AdminUpdateUserAttributes(ctx, aws.ToString(in.UserPoolId), aws.ToString(in.Username), attributesToMap(in.UserAttributes))
	if err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.AdminUpdateUserAttributesOutput{}, nil
}

// AdminSetUserPassword handles AdminSetUserPassword.
func (h *Handlers) AdminSetUserPassword(ctx context.Context, in *cognitoidentityprovider.AdminSetUserPasswordInput) (*cognitoidentityprovider.AdminSetUserPasswordOutput, error) {
	err := h.Engine.AdminSetUserPassword(ctx, aws.ToString(in.UserPoolId), aws.ToString(in.Username), aws.ToString(in.Password), in.Permanent)
	if err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.AdminSetUserPasswordOutput{}, nil
}

// AdminAddUserToGroup handles AdminAddUserToGroup.
func (h *Handlers) AdminAddUserToGroup(ctx context.Context, in *cognitoidentityprovider.AdminAddUserToGroupInput) (*cognitoidentityprovider.AdminAddUserToGroupOutput, error) {
	err := h.Engine.AdminAddUserToGroup(ctx, aws.ToString(in.UserPoolId), aws.ToString(in.GroupName), aws.ToString(in.Username))
	if err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.AdminAddUserToGroupOutput{}, nil
}

// AdminRemoveUserFromGroup handles AdminRemoveUserFromGroup.
func (h *Handlers) AdminRemoveUserFromGroup(ctx context.Context, in *cognitoidentityprovider.AdminRemoveUserFromGroupInput) (*cognitoidentityprovider.AdminRemoveUserFromGroupOutput, error) {
	err := h.Engine.AdminRemoveUserFromGroup(ctx, aws.ToString(in.UserPoolId), aws.ToString(in.GroupName), aws.ToString(in.Username))
	if err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.AdminRemoveUserFromGroupOutput{}, nil
}

// AdminListGroupsForUser handles AdminListGroupsForUser.
func (h *Handlers) AdminListGroupsForUser(ctx context.Context, in *cognitoidentityprovider.AdminListGroupsForUserInput) (*cognitoidentityprovider.AdminListGroupsForUserOutput, error) {
	names, err := h.Engine.AdminListGroupsForUser(ctx, aws.ToString(in.UserPoolId), aws.ToString(in.Username))
	if err != nil {
		return nil, MapError(err)
	}
	groups := make([]types.GroupType, len(names))
	for i, n := range names {
		groups[i] = types.GroupType{GroupName: aws.String(n)}
	}
	return &cognitoidentityprovider.AdminListGroupsForUserOutput{Groups: groups}, nil
}

// ListUsers handles ListUsers.
func (h *Handlers) ListUsers(ctx context.Context, in *cognitoidentityprovider.ListUsersInput) (*cognitoidentityprovider.ListUsersOutput, error) {
	limit := 0
	if in.Limit != nil {
		limit = int(*in.Limit)
	}
	users, next, err := h.Engine.ListUsers(ctx, aws.ToString(in.UserPoolId), aws.ToString(in.Filter), aws.ToString(in.PaginationToken), limit)
	if err != nil {
		return nil, MapError(err)
	}
	out := make([]types.UserType, len(users))
	for i, u := range users {
		out[i] = userToUserType(u)
	}
	resp := &cognitoidentityprovider.ListUsersOutput{Users: out}
	if next != "" {
		resp.PaginationToken = aws.String(next)
	}
	return resp, nil
}

// CreateGroup handles CreateGroup.
func (h *Handlers) CreateGroup(ctx context.Context, in *cognitoidentityprovider.CreateGroupInput) (*cognitoidentityprovider.CreateGroupOutput, error) {
	group := &store.Group{
		GroupName:   aws.ToString(in.GroupName),
		Description: aws.ToString(in.Description),
		RoleArn:     aws.ToString(in.RoleArn),
		Precedence:  in.Precedence,
	}
	if err := h.Engine.CreateGroup(ctx, aws.ToString(in.UserPoolId), group); err != nil {
		return nil, MapError(err)
	}
	gt := groupToType(group)
	return &cognitoidentityprovider.CreateGroupOutput{Group: &gt}, nil
}

// ListGroups handles ListGroups.
func (h *Handlers) ListGroups(ctx context.Context, in *cognitoidentityprovider.ListGroupsInput) (*cognitoidentityprovider.ListGroupsOutput, error) {
	groups, err := h.Engine.ListGroups(ctx, aws.ToString(in.UserPoolId))
	if err != nil {
		return nil, MapError(err)
	}
	out := make([]types.GroupType, len(groups))
	for i, g := range groups {
		out[i] = groupToType(g)
	}
	return &cognitoidentityprovider.ListGroupsOutput{Groups: out}, nil
}

func groupToType(g *store.Group) types.GroupType {
	return types.GroupType{
		GroupName:   aws.String(g.GroupName),
		Description: aws.String(g.Description),
		RoleArn:     aws.String(g.RoleArn),
		Precedence:  g.Precedence,
	}
}

// GetGroup handles GetGroup.
func (h *Handlers) GetGroup(ctx context.Context, in *cognitoidentityprovider.GetGroupInput) (*cognitoidentityprovider.GetGroupOutput, error) {
	group, err := h.Engine.GetGroup(ctx, aws.ToString(in.UserPoolId), aws.ToString(in.GroupName))
	if err != nil {
		return nil, MapError(err)
	}
	gt := groupToType(group)
	return &cognitoidentityprovider.GetGroupOutput{Group: &gt}, nil
}

// DeleteGroup handles DeleteGroup.
func (h *Handlers) DeleteGroup(ctx context.Context, in *cognitoidentityprovider.DeleteGroupInput) (*cognitoidentityprovider.DeleteGroupOutput, error) {
	if err := h.Engine.DeleteGroup(ctx, aws.ToString(in.UserPoolId), aws.ToString(in.GroupName)); err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.DeleteGroupOutput{}, nil
}

// ListUsersInGroup handles ListUsersInGroup.
func (h *Handlers) ListUsersInGroup(ctx context.Context, in *cognitoidentityprovider.ListUsersInGroupInput) (*cognitoidentityprovider.ListUsersInGroupOutput, error) {
	users, err := h.Engine.ListUsersInGroup(ctx, aws.ToString(in.UserPoolId), aws.ToString(in.GroupName))
	if err != nil {
		return nil, MapError(err)
	}
	out := make([]types.UserType, len(users))
	for i, u := range users {
		out[i] = userToUserType(u)
	}
	return &cognitoidentityprovider.ListUsersInGroupOutput{Users: out}, nil
}

// CreateUserPoolClient handles CreateUserPoolClient.
func (h *Handlers) CreateUserPoolClient(ctx context.Context, in *cognitoidentityprovider.CreateUserPoolClientInput) (*cognitoidentityprovider.CreateUserPoolClientOutput, error) {
	flows := make([]string, len(in.ExplicitAuthFlows))
	for i, f := range in.ExplicitAuthFlows {
		flows[i] = string(f)
	}
	client, err := h.Engine.CreateUserPoolClient(ctx, aws.ToString(in.UserPoolId), aws.ToString(in.ClientName), flows)
	if err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.CreateUserPoolClientOutput{
		UserPoolClient: clientToType(client),
	}, nil
}

// DescribeUserPoolClient handles DescribeUserPoolClient.
func (h *Handlers) DescribeUserPoolClient(ctx context.Context, in *cognitoidentityprovider.DescribeUserPoolClientInput) (*cognitoidentityprovider.DescribeUserPoolClientOutput, error) {
	client, err := h.Engine.DescribeUserPoolClient(ctx, aws.ToString(in.ClientId))
	if err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.DescribeUserPoolClientOutput{
		UserPoolClient: clientToType(client),
	}, nil
}

func clientToType(c *store.AppClient) *types.UserPoolClientType {
	flows := make([]types.ExplicitAuthFlowsType, len(c.ExplicitAuthFlows))
	for i, f := range c.ExplicitAuthFlows {
		flows[i] = types.ExplicitAuthFlowsType(f)
	}
	return &types.UserPoolClientType{
		ClientId:          aws.String(c.ClientId),
		ClientName:        aws.String(c.ClientName),
		UserPoolId:        aws.String(c.UserPoolId),
		ClientSecret:      aws.String(c.ClientSecret),
		ExplicitAuthFlows: flows,
	}
}

// GetUser handles the self-service GetUser target, keyed by AccessToken.
func (h *Handlers) GetUser(ctx context.Context, in *cognitoidentityprovider.GetUserInput) (*cognitoidentityprovider.GetUserOutput, error) {
	user, err := h.Engine.GetUser(ctx, aws.ToString(in.AccessToken))
	if err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.GetUserOutput{
		Username:            aws.String(user.Username),
		UserAttributes:      mapToAttributes(user.AttributeMap()),
		MFAOptions:          mfaOptionsToType(user.MFAOptions),
		PreferredMfaSetting: aws.String(user.PreferredMfaSetting),
		UserMFASettingList:  user.UserMFASettingList,
	}, nil
}

// ChangePassword handles the self-service ChangePassword target.
func (h *Handlers) ChangePassword(ctx context.Context, in *cognitoidentityprovider.ChangePasswordInput) (*cognitoidentityprovider.ChangePasswordOutput, error) {
	err := h.Engine.ChangePassword(ctx, aws.ToString(in.AccessToken), aws.ToString(in.PreviousPassword), aws.ToString(in.ProposedPassword))
	if err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.ChangePasswordOutput{}, nil
}

// SetUserMFAPreference handles the self-service SetUserMFAPreference
// target, keyed by AccessToken.
func (h *Handlers) SetUserMFAPreference(ctx context.Context, in *cognitoidentityprovider.SetUserMFAPreferenceInput) (*cognitoidentityprovider.SetUserMFAPreferenceOutput, error) {
	pool, _, user, err := h.Engine.ResolveAccessToken(ctx, aws.ToString(in.AccessToken))
	if err != nil {
		return nil, MapError(err)
	}
	pref := store.MFAPreference{}
	if in.SMSMfaSettings != nil {
		pref.SMSMFAEnabled = in.SMSMfaSettings.Enabled
		pref.SMSPreferredAsDefault = in.SMSMfaSettings.PreferredMfa
	}
	if in.SoftwareTokenMfaSettings != nil {
		pref.SoftwareTokenMFAEnabled = in.SoftwareTokenMfaSettings.Enabled
		pref.SoftwareTokenAsDefault = in.SoftwareTokenMfaSettings.PreferredMfa
	}
	if err := h.Engine.SetUserMFAPreference(ctx, pool.ID(), user.Username, pref); err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.SetUserMFAPreferenceOutput{}, nil
}

// AssociateSoftwareToken handles AssociateSoftwareToken.
func (h *Handlers) AssociateSoftwareToken(ctx context.Context, in *cognitoidentityprovider.AssociateSoftwareTokenInput) (*cognitoidentityprovider.AssociateSoftwareTokenOutput, error) {
	pool, _, user, err := h.Engine.ResolveAccessToken(ctx, aws.ToString(in.AccessToken))
	if err != nil {
		return nil, MapError(err)
	}
	code, err := h.Engine.AssociateSoftwareToken(ctx, pool.ID(), user.Username)
	if err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.AssociateSoftwareTokenOutput{SecretCode: aws.String(code)}, nil
}

// VerifySoftwareToken handles VerifySoftwareToken.
func (h *Handlers) VerifySoftwareToken(ctx context.Context, in *cognitoidentityprovider.VerifySoftwareTokenInput) (*cognitoidentityprovider.VerifySoftwareTokenOutput, error) {
	pool, _, user, err := h.Engine.ResolveAccessToken(ctx, aws.ToString(in.AccessToken))
	if err != nil {
		return nil, MapError(err)
	}
	if err := h.Engine.VerifySoftwareToken(ctx, pool.ID(), user.Username, aws.ToString(in.UserCode)); err != nil {
		return nil, MapError(err)
	}
	return &cognitoidentityprovider.VerifySoftwareTokenOutput{
		Status: types.VerifySoftwareTokenResponseTypeSuccess,
	}, nil
}

// JWKS renders the /.well-known/jwks.json document.
func (h *Handlers) JWKS(ctx context.Context) tokens.JWKS {
	return h.Engine.JWKSDocument()
}

// OIDCDiscovery renders the /.well-known/openid-configuration document for
// issuer, with jwksURI pointing back at the JWKS handler above.
func (h *Handlers) OIDCDiscovery(ctx context.Context, issuer, jwksURI string) tokens.OIDCDiscovery {
	return tokens.DiscoveryDocument(issuer, jwksURI)
}

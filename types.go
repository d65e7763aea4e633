package cognitoemu

import "time"

// AuthFlow identifies one of the InitiateAuth flows recognized by the
// Engine. Unrecognized flows fail with Unsupported.
type AuthFlow string

const (
	FlowUserPasswordAuth      AuthFlow = "USER_PASSWORD_AUTH"
	FlowRefreshToken          AuthFlow = "REFRESH_TOKEN"
	FlowRefreshTokenAuth      AuthFlow = "REFRESH_TOKEN_AUTH"
	FlowUserSRPAuth           AuthFlow = "USER_SRP_AUTH"
	FlowCustomAuth            AuthFlow = "CUSTOM_AUTH"
	FlowAdminNoSRPAuth        AuthFlow = "ADMIN_NO_SRP_AUTH"
	FlowAdminUserPasswordAuth AuthFlow = "ADMIN_USER_PASSWORD_AUTH"
)

// ChallengeName identifies a pending state in the auth state machine.
type ChallengeName string

const (
	ChallengeNewPasswordRequired ChallengeName = "NEW_PASSWORD_REQUIRED"
	ChallengeSMSMFA              ChallengeName = "SMS_MFA"
	ChallengeSoftwareTokenMFA    ChallengeName = "SOFTWARE_TOKEN_MFA"
	ChallengePasswordVerifier    ChallengeName = "PASSWORD_VERIFIER"
)

// AuthenticationResult carries the three tokens returned on a successful
// login, refresh, or challenge completion.
type AuthenticationResult struct {
	AccessToken  string
	IdToken      string
	RefreshToken string
	ExpiresIn    int32
	TokenType    string
}

// InitiateAuthInput is the Engine-native form of the InitiateAuth
// operation; the handlers package translates the wire request into this
// shape.
type InitiateAuthInput struct {
	UserPoolId     string
	ClientId       string
	AuthFlow       AuthFlow
	AuthParameters map[string]string
	ClientMetadata map[string]string
}

// InitiateAuthOutput is either a populated AuthenticationResult or a
// pending challenge; exactly one of the two is non-zero.
type InitiateAuthOutput struct {
	ChallengeName       ChallengeName
	ChallengeParameters map[string]string
	Session             string

	AuthenticationResult *AuthenticationResult
}

// RespondToAuthChallengeInput is the Engine-native form of
// RespondToAuthChallenge.
type RespondToAuthChallengeInput struct {
	UserPoolId         string
	ClientId           string
	ChallengeName      ChallengeName
	Session            string
	ChallengeResponses map[string]string
	ClientMetadata     map[string]string
}

// RespondToAuthChallengeOutput mirrors InitiateAuthOutput: a follow-up
// challenge is possible, as when a PASSWORD_VERIFIER response leads to an
// MFA or new-password challenge.
type RespondToAuthChallengeOutput struct {
	ChallengeName       ChallengeName
	ChallengeParameters map[string]string
	Session             string

	AuthenticationResult *AuthenticationResult
}

// pendingChallenge is the server-side state a Session UUID resolves to.
// It lives only in memory: a challenge that outlives the process must be
// re-initiated, matching the spec's "no distributed operation" non-goal.
type pendingChallenge struct {
	UserPoolId    string
	ClientId      string
	Username      string
	ChallengeName ChallengeName
	CreatedAt     time.Time
}

// SignUpInput is the Engine-native form of SignUp.
type SignUpInput struct {
	UserPoolId     string
	ClientId       string
	Username       string
	Password       string
	UserAttributes map[string]string
	ClientMetadata map[string]string
}

// SignUpOutput reports the outcome of a self sign-up.
type SignUpOutput struct {
	UserSub            string
	UserConfirmed      bool
	CodeDeliveryMedium string
}

// ConfirmSignUpInput is the Engine-native form of ConfirmSignUp.
type ConfirmSignUpInput struct {
	UserPoolId       string
	ClientId         string
	Username         string
	ConfirmationCode string
}

// AdminCreateUserInput is the Engine-native form of AdminCreateUser.
type AdminCreateUserInput struct {
	UserPoolId        string
	Username          string
	UserAttributes    map[string]string
	TemporaryPassword string
	MessageAction     string // "SUPPRESS" skips the delivery log entry
}

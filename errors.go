package cognitoemu

import "errors"

// Sentinel errors the Engine and its collaborators return. Target handlers
// map these to the wire __type taxonomy (see spec §7 / handlers.MapError).
var (
	// ErrNotAuthorized covers invalid credentials, disabled users, and
	// invalid tokens.
	ErrNotAuthorized = errors.New("cognitoemu: not authorized")
	// ErrInvalidPassword is the password-mismatch case, mapped to
	// NotAuthorizedException on the wire to match upstream.
	ErrInvalidPassword = errors.New("cognitoemu: invalid password")
	// ErrUserNotFound is returned by lookups that find no matching user.
	ErrUserNotFound = errors.New("cognitoemu: user not found")
	// ErrUserNotConfirmed is returned only after a successful password
	// check, preserving upstream's information-hiding ordering.
	ErrUserNotConfirmed = errors.New("cognitoemu: user not confirmed")
	// ErrPasswordResetRequired is returned for users in RESET_REQUIRED.
	ErrPasswordResetRequired = errors.New("cognitoemu: password reset required")
	// ErrCodeMismatch covers confirmation and MFA code mismatches.
	ErrCodeMismatch = errors.New("cognitoemu: code mismatch")
	// ErrExpiredCode maps to ExpiredCodeException. Codes carry no validity
	// window, so no Engine operation returns it.
	ErrExpiredCode = errors.New("cognitoemu: code expired")
	// ErrInvalidParameter covers malformed or missing request fields.
	ErrInvalidParameter = errors.New("cognitoemu: invalid parameter")
	// ErrUsernameExists is returned by sign-up when the username is taken.
	ErrUsernameExists = errors.New("cognitoemu: username exists")
	// ErrResourceNotFound covers unknown pools and clients.
	ErrResourceNotFound = errors.New("cognitoemu: resource not found")
	// ErrInternal covers persistence failures; there is no internal retry.
	ErrInternal = errors.New("cognitoemu: internal error")
)

// UnsupportedError reports an emulator limitation: a flow, challenge, or
// parameter combination the real service supports but this emulator
// deliberately does not.
type UnsupportedError struct {
	Detail string
}

func (e *UnsupportedError) Error() string {
	return "cognitoemu: unsupported: " + e.Detail
}

// Unsupported constructs an UnsupportedError with the given detail.
func Unsupported(detail string) error {
	return &UnsupportedError{Detail: detail}
}

package cognitoemu

import "context"

type clientIPContextKey struct{}
type callerContextKey struct{}
type userAgentContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses it
// for audit logging only; it is not passed to triggers.
//
//	Docs: docs/triggers.md, docs/audit.md
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithCallerContext attaches the wire protocol's CallerContext object to
// ctx. Its AWSSDKVersion is copied into the event envelope of the triggers
// built by hookEvent; HTTPHeaders are not passed to triggers, and the
// UserMigration envelope does not use this value.
//
//	Docs: docs/triggers.md
func WithCallerContext(ctx context.Context, cc CallerContext) context.Context {
	return context.WithValue(ctx, callerContextKey{}, cc)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx, included in
// audit events.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// CallerContext mirrors the subset of the wire protocol's CallerContext
// object that flows through to triggers.
type CallerContext struct {
	AWSSDKVersion string
	HTTPHeaders   map[string]string
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ua, _ := ctx.Value(userAgentContextKey{}).(string)
	return ua
}

func callerContextFromContext(ctx context.Context) CallerContext {
	if ctx == nil {
		return CallerContext{}
	}
	cc, _ := ctx.Value(callerContextKey{}).(CallerContext)
	return cc
}

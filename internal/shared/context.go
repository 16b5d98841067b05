package shared

import "context"

// RequestContext identifies the authenticated actor and its tenant. It is
// passed by value into every operation; nothing reads ambient session state
// below the HTTP layer.
type RequestContext struct {
	UserID         int64
	Role           string
	DepartmentID   int64 // zero when the user belongs to no department
	OrganizationID int64
}

type sessionContextKey struct{}

type requestContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithRequestContext stores the resolved tenant context.
func ContextWithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFromContext extracts the tenant context. The second return
// value is false when no tenant context was resolved for this request.
func RequestContextFromContext(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(RequestContext)
	return rc, ok
}

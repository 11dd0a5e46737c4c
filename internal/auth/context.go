package auth

import "context"

// principalKey is the context key for the authenticated caller. The
// unexported type keeps the value writable only through this package.
type principalKey int

const ctxPrincipal principalKey = 0

// ContextWithPrincipal returns a child context carrying the caller identity.
// The authentication middleware attaches it once per request.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipal, p)
}

// PrincipalFromContext reports the caller identity for the request, if the
// authentication middleware attached one.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(ctxPrincipal).(Principal)
	return p, ok
}

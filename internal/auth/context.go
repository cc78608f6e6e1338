package auth

import "context"

type claimsContextKey struct{}

// WithClaims returns a context carrying the verified claims for a request.
func WithClaims(ctx context.Context, claims *VerifiedClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext returns the verified claims attached to the request
// context, or nil if the request was not authenticated.
func ClaimsFromContext(ctx context.Context) *VerifiedClaims {
	claims, _ := ctx.Value(claimsContextKey{}).(*VerifiedClaims)
	return claims
}

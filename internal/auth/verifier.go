package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerifiedClaims is the authorization decision produced for one request.
// It is never persisted; it lives only until the gate has answered.
type VerifiedClaims struct {
	ClientID  string
	Scopes    []string
	Issuer    string
	ExpiresAt time.Time
}

// HasScope reports whether the token carried the given scope.
func (c *VerifiedClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// accessTokenClaims is the Cognito access-token claim set.
type accessTokenClaims struct {
	jwt.RegisteredClaims
	ClientID string `json:"client_id"`
	TokenUse string `json:"token_use"`
	Scope    string `json:"scope"`
}

// TokenVerifier is the contract the authorizer gate depends on.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string, requiredScopes []string, expectedIssuer string) (*VerifiedClaims, error)
}

// Verifier validates bearer tokens against the identity provider's
// published signing keys. Only RS256 is accepted: a token whose header
// declares any other algorithm is rejected outright, and there is no
// decode-without-verification path.
type Verifier struct {
	keys       *KeySetCache
	region     string
	userPoolID string
	parser     *jwt.Parser
	logger     *slog.Logger
}

// NewVerifier creates a Verifier resolving keys for the given issuer pair.
func NewVerifier(keys *KeySetCache, region, userPoolID string, logger *slog.Logger) *Verifier {
	return &Verifier{
		keys:       keys,
		region:     region,
		userPoolID: userPoolID,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
		logger: logger.With("component", "token_verifier"),
	}
}

// Verify checks structure, signature, expiry, issuer, token type, and
// scopes, in that order. Same token plus same cached key set gives the same
// result, expiry aside.
func (v *Verifier) Verify(ctx context.Context, rawToken string, requiredScopes []string, expectedIssuer string) (*VerifiedClaims, error) {
	token := strings.TrimSpace(strings.TrimPrefix(rawToken, "Bearer "))
	if token == "" || strings.Count(token, ".") != 2 {
		return nil, &AuthError{Kind: KindMalformedToken, Err: errors.New("token is not a three-segment JWT")}
	}

	claims := &accessTokenClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token header missing kid")
		}
		return v.keys.ResolveKey(ctx, v.region, v.userPoolID, kid)
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	if claims.Issuer != expectedIssuer {
		return nil, &AuthError{Kind: KindIssuerMismatch,
			Err: fmt.Errorf("issuer %q, expected %q", claims.Issuer, expectedIssuer)}
	}

	if claims.TokenUse != "access" {
		return nil, &AuthError{Kind: KindWrongTokenType,
			Err: fmt.Errorf("token_use %q, expected %q", claims.TokenUse, "access")}
	}

	scopes := strings.Fields(claims.Scope)
	granted := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		granted[s] = struct{}{}
	}
	for _, required := range requiredScopes {
		if _, ok := granted[required]; !ok {
			return nil, &AuthError{Kind: KindInsufficientScope,
				Err: fmt.Errorf("missing required scope %q", required)}
		}
	}

	verified := &VerifiedClaims{
		ClientID: claims.ClientID,
		Scopes:   scopes,
		Issuer:   claims.Issuer,
	}
	if claims.ExpiresAt != nil {
		verified.ExpiresAt = claims.ExpiresAt.Time
	}
	return verified, nil
}

// classifyParseError maps golang-jwt parse failures onto the AuthError
// taxonomy. Key-resolution failures surface as KeyNotFound even though the
// library wraps them as unverifiable tokens.
func classifyParseError(err error) *AuthError {
	var kre *KeyResolutionError
	switch {
	case errors.As(err, &kre):
		return &AuthError{Kind: KindKeyNotFound, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &AuthError{Kind: KindExpired, Err: err}
	case errors.Is(err, jwt.ErrTokenMalformed):
		return &AuthError{Kind: KindMalformedToken, Err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return &AuthError{Kind: KindInvalidSignature, Err: err}
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return &AuthError{Kind: KindKeyNotFound, Err: err}
	default:
		return &AuthError{Kind: KindMalformedToken, Err: err}
	}
}

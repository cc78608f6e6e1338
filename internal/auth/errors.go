package auth

import (
	"errors"
	"fmt"
)

// AuthErrorKind classifies why a bearer token was rejected. The kind is for
// server-side logs only; callers outside the auth boundary see nothing but
// ErrUnauthorized.
type AuthErrorKind string

const (
	KindMalformedToken    AuthErrorKind = "malformed_token"
	KindKeyNotFound       AuthErrorKind = "key_not_found"
	KindInvalidSignature  AuthErrorKind = "invalid_signature"
	KindExpired           AuthErrorKind = "expired"
	KindIssuerMismatch    AuthErrorKind = "issuer_mismatch"
	KindWrongTokenType    AuthErrorKind = "wrong_token_type"
	KindInsufficientScope AuthErrorKind = "insufficient_scope"
)

// AuthError is the verifier's rejection, carrying the specific reason.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("auth: %s", e.Kind)
}

func (e *AuthError) Unwrap() error { return e.Err }

// AsAuthError unwraps err into an *AuthError if possible.
func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	ok := errors.As(err, &ae)
	return ae, ok
}

// ErrUnauthorized is the only authentication failure ever surfaced to
// callers of the gate. Flattening every AuthError to this single message
// keeps the boundary from acting as an oracle for attackers.
var ErrUnauthorized = errors.New("Unauthorized")

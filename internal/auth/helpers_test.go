package auth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/ampgate/ampgate/internal/auth"
)

const (
	testRegion = "us-west-2"
	testPool   = "us-west-2_TestPool"
	testIssuer = "https://cognito-idp.us-west-2.amazonaws.com/us-west-2_TestPool"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// signingKey is an RSA key pair plus the key ID it is published under.
type signingKey struct {
	key *rsa.PrivateKey
	kid string
}

func newSigningKey(t *testing.T, kid string) *signingKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &signingKey{key: key, kid: kid}
}

// jwksJSON renders the JWKS document publishing the given keys.
func jwksJSON(t *testing.T, keys ...*signingKey) []byte {
	t.Helper()
	type jwk struct {
		Kid string `json:"kid"`
		Kty string `json:"kty"`
		Alg string `json:"alg"`
		Use string `json:"use"`
		N   string `json:"n"`
		E   string `json:"e"`
	}
	doc := struct {
		Keys []jwk `json:"keys"`
	}{}
	for _, k := range keys {
		pub := &k.key.PublicKey
		doc.Keys = append(doc.Keys, jwk{
			Kid: k.kid,
			Kty: "RSA",
			Alg: "RS256",
			Use: "sig",
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   "AQAB",
		})
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

// sign issues an RS256 token under this key's kid with the given claims.
func (s *signingKey) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.kid
	signed, err := token.SignedString(s.key)
	require.NoError(t, err)
	return signed
}

// validClaims returns a claim set that passes every verifier check.
func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":       testIssuer,
		"exp":       time.Now().Add(time.Hour).Unix(),
		"iat":       time.Now().Add(-time.Minute).Unix(),
		"client_id": "client-abc",
		"token_use": "access",
		"scope":     "mcp/invoke mcp/admin",
	}
}

// jwksServer serves a JWKS document and counts how many fetches it saw.
// The served document can be swapped to simulate key rotation.
type jwksServer struct {
	srv     *httptest.Server
	fetches atomic.Int64
	doc     atomic.Value // []byte
}

func newJWKSServer(t *testing.T, initial []byte) *jwksServer {
	t.Helper()
	s := &jwksServer{}
	s.doc.Store(initial)
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(s.doc.Load().([]byte))
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *jwksServer) rotate(doc []byte) { s.doc.Store(doc) }

func (s *jwksServer) cache(refresh time.Duration) *auth.KeySetCache {
	return auth.NewKeySetCache(auth.KeySetCacheConfig{
		Client:          s.srv.Client(),
		RefreshInterval: refresh,
		Endpoint:        s.srv.URL + "/%s/%s/.well-known/jwks.json",
	}, testLogger())
}

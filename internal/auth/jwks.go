package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultJWKSEndpoint is the Cognito well-known key-set URL template,
// parameterized by region then user pool ID.
const DefaultJWKSEndpoint = "https://cognito-idp.%s.amazonaws.com/%s/.well-known/jwks.json"

// KeyResolutionError reports that a signing key could not be resolved for
// an issuer pair, after a refetch attempt where one was allowed.
type KeyResolutionError struct {
	Region     string
	UserPoolID string
	KeyID      string
	Err        error
}

func (e *KeyResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("jwks: resolve key %q for %s/%s: %v", e.KeyID, e.Region, e.UserPoolID, e.Err)
	}
	return fmt.Sprintf("jwks: key %q not found in key set for %s/%s", e.KeyID, e.Region, e.UserPoolID)
}

func (e *KeyResolutionError) Unwrap() error { return e.Err }

// KeySetCacheConfig configures a KeySetCache.
type KeySetCacheConfig struct {
	// Client is the HTTP client used for key-set fetches.
	Client *http.Client

	// RefreshInterval bounds how long a cached key set is trusted before it
	// is revalidated against the identity provider. Zero disables
	// revalidation (the set lives until process restart).
	RefreshInterval time.Duration

	// Endpoint is a printf template taking region then user pool ID.
	// Defaults to DefaultJWKSEndpoint.
	Endpoint string
}

type keySetEntry struct {
	keys      map[string]*rsa.PublicKey
	gen       uint64
	fetchedAt time.Time
}

// KeySetCache is the process-wide cache of identity-provider public signing
// keys, keyed by (region, user pool) pair. Concurrent population of the
// same entry coalesces into a single fetch; reads of a populated entry are
// unlimited. Construct one at process start and pass it by reference.
type KeySetCache struct {
	client          *http.Client
	refreshInterval time.Duration
	endpoint        string
	logger          *slog.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]*keySetEntry
}

// NewKeySetCache creates a KeySetCache.
func NewKeySetCache(cfg KeySetCacheConfig, logger *slog.Logger) *KeySetCache {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultJWKSEndpoint
	}
	return &KeySetCache{
		client:          client,
		refreshInterval: cfg.RefreshInterval,
		endpoint:        endpoint,
		logger:          logger.With("component", "jwks_cache"),
		entries:         make(map[string]*keySetEntry),
	}
}

// ResolveKey returns the public key with the given key ID for the issuer
// pair. A first lookup (or a stale entry) fetches the full key set; a key-ID
// miss on a cached entry triggers exactly one refetch before failing.
func (c *KeySetCache) ResolveKey(ctx context.Context, region, userPoolID, keyID string) (*rsa.PublicKey, error) {
	cacheKey := region + "/" + userPoolID

	ent := c.lookup(cacheKey)
	fetched := false
	if ent == nil || c.stale(ent) {
		var err error
		ent, err = c.fetch(ctx, cacheKey, region, userPoolID, entryGen(ent))
		if err != nil {
			return nil, err
		}
		fetched = true
	}

	if pk, ok := ent.keys[keyID]; ok {
		return pk, nil
	}

	// Key-ID miss on a cached set: the pool may have rotated keys since the
	// set was fetched. One refetch, then fail.
	if !fetched {
		refreshed, err := c.fetch(ctx, cacheKey, region, userPoolID, ent.gen)
		if err != nil {
			return nil, err
		}
		if pk, ok := refreshed.keys[keyID]; ok {
			return pk, nil
		}
	}

	return nil, &KeyResolutionError{Region: region, UserPoolID: userPoolID, KeyID: keyID}
}

func (c *KeySetCache) lookup(cacheKey string) *keySetEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[cacheKey]
}

func (c *KeySetCache) stale(ent *keySetEntry) bool {
	return c.refreshInterval > 0 && time.Since(ent.fetchedAt) > c.refreshInterval
}

func entryGen(ent *keySetEntry) uint64 {
	if ent == nil {
		return 0
	}
	return ent.gen
}

// fetch populates the cache entry for an issuer pair. Concurrent callers
// share one in-flight request via singleflight; the generation check stops
// back-to-back callers from refetching a set another caller just stored.
func (c *KeySetCache) fetch(ctx context.Context, cacheKey, region, userPoolID string, seenGen uint64) (*keySetEntry, error) {
	v, err, _ := c.group.Do(cacheKey, func() (interface{}, error) {
		if cur := c.lookup(cacheKey); cur != nil && cur.gen > seenGen && !c.stale(cur) {
			return cur, nil
		}

		keys, err := c.fetchKeySet(ctx, region, userPoolID)
		if err != nil {
			return nil, err
		}

		ent := &keySetEntry{keys: keys, gen: seenGen + 1, fetchedAt: time.Now()}
		c.mu.Lock()
		c.entries[cacheKey] = ent
		c.mu.Unlock()

		c.logger.Info("Fetched key set",
			slog.String("issuer_pair", cacheKey),
			slog.Int("key_count", len(keys)))
		return ent, nil
	})
	if err != nil {
		return nil, &KeyResolutionError{Region: region, UserPoolID: userPoolID, Err: err}
	}
	return v.(*keySetEntry), nil
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

func (c *KeySetCache) fetchKeySet(ctx context.Context, region, userPoolID string) (map[string]*rsa.PublicKey, error) {
	url := fmt.Sprintf(c.endpoint, region, userPoolID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build JWKS request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("JWKS request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("JWKS endpoint returned HTTP %d: %s", resp.StatusCode, body)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode JWKS document: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pk, err := k.rsaPublicKey()
		if err != nil {
			c.logger.Warn("Skipping unparseable JWK", slog.String("kid", k.Kid), slog.Any("error", err))
			continue
		}
		keys[k.Kid] = pk
	}
	return keys, nil
}

func (k jwk) rsaPublicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 1 {
		return nil, fmt.Errorf("invalid exponent value %d", e)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}

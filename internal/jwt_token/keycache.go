package jwttoken

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// KeyFetcher loads the realm's current signing keys keyed by kid.
type KeyFetcher interface {
	Fetch(ctx context.Context) (map[string]*rsa.PublicKey, error)
}

// JWKSFetcher reads keys from a Keycloak realm: discovery document, then
// jwks_uri, then the first x5c certificate of every RSA key.
type JWKSFetcher struct {
	realmURL string
	client   *http.Client
}

func NewJWKSFetcher(keycloakURL, realm string, timeout time.Duration) *JWKSFetcher {
	return &JWKSFetcher{
		realmURL: RealmURL(keycloakURL, realm),
		client:   &http.Client{Timeout: timeout},
	}
}

// RealmURL is also the issuer of tokens minted by the realm.
func RealmURL(keycloakURL, realm string) string {
	return strings.TrimRight(keycloakURL, "/") + "/realms/" + realm
}

type jwksDocument struct {
	Keys []struct {
		Kid string   `json:"kid"`
		Kty string   `json:"kty"`
		Use string   `json:"use"`
		X5c []string `json:"x5c"`
	} `json:"keys"`
}

func (f *JWKSFetcher) Fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	var discovery struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := f.getJSON(ctx, f.realmURL+"/.well-known/openid-configuration", &discovery); err != nil {
		return nil, err
	}
	if discovery.JWKSURI == "" {
		return nil, fmt.Errorf("discovery document has no jwks_uri")
	}

	var doc jwksDocument
	if err := f.getJSON(ctx, discovery.JWKSURI, &doc); err != nil {
		return nil, err
	}
	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || len(k.X5c) == 0 || (k.Use != "" && k.Use != "sig") {
			continue
		}
		key, err := parseX5C(k.X5c[0])
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", k.Kid, err)
		}
		keys[k.Kid] = key
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("could not extract public key from keycloak")
	}
	return keys, nil
}

func (f *JWKSFetcher) getJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func parseX5C(encoded string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode x5c: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}
	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("certificate key is not RSA")
	}
	return key, nil
}

// minRefetchInterval bounds how often tokens naming unknown kids can make the
// cache go back to the realm.
const minRefetchInterval = 30 * time.Second

// PublicKeyCache holds the realm keys. Keys are fetched lazily on first use
// and again after ttl, after Invalidate, or when a token names an unknown kid
// and the last fetch is older than minRefetchInterval. Fetches run outside
// the lock and concurrent callers share one.
type PublicKeyCache struct {
	fetcher    KeyFetcher
	ttl        time.Duration
	minRefetch time.Duration
	now        func() time.Time
	fetches    singleflight.Group

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
	gen       uint64
}

// NewPublicKeyCache builds a cache. A zero ttl keeps keys until invalidated.
func NewPublicKeyCache(fetcher KeyFetcher, ttl time.Duration) *PublicKeyCache {
	return &PublicKeyCache{fetcher: fetcher, ttl: ttl, minRefetch: minRefetchInterval, now: time.Now}
}

// Key returns the key for kid. An empty kid selects the only key when the
// realm publishes exactly one.
func (c *PublicKeyCache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	stale := c.stale()
	key, ok := c.lookup(kid)
	recent := c.now().Sub(c.fetchedAt) < c.minRefetch
	gen := c.gen
	c.mu.RUnlock()

	if !stale {
		if ok {
			return key, nil
		}
		if recent {
			return nil, fmt.Errorf("unknown signing key %q", kid)
		}
	}
	// stale, or rotated keys: one refetch
	if err := c.refresh(ctx, gen); err != nil {
		return nil, err
	}
	c.mu.RLock()
	key, ok = c.lookup(kid)
	c.mu.RUnlock()
	if ok {
		return key, nil
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}

// Invalidate drops the cached keys; the next Key call refetches.
func (c *PublicKeyCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = nil
	c.fetchedAt = time.Time{}
}

func (c *PublicKeyCache) stale() bool {
	if c.keys == nil {
		return true
	}
	return c.ttl > 0 && c.now().Sub(c.fetchedAt) > c.ttl
}

// refresh fetches unless another caller already replaced the keys seen at
// generation seen.
func (c *PublicKeyCache) refresh(ctx context.Context, seen uint64) error {
	_, err, _ := c.fetches.Do("jwks", func() (any, error) {
		c.mu.RLock()
		done := c.gen != seen && c.keys != nil
		c.mu.RUnlock()
		if done {
			return nil, nil
		}
		keys, err := c.fetcher.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.keys = keys
		c.fetchedAt = c.now()
		c.gen++
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

func (c *PublicKeyCache) lookup(kid string) (*rsa.PublicKey, bool) {
	if kid == "" && len(c.keys) == 1 {
		for _, key := range c.keys {
			return key, true
		}
	}
	key, ok := c.keys[kid]
	return key, ok
}

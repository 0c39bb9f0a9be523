package services

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/loopflow/cadenza/internal/config"
)

const AppleIssuer = "https://appleid.apple.com"

var (
	// ErrAppleKeysUnavailable means the key endpoint could not be reached and
	// no previously fetched keys exist.
	ErrAppleKeysUnavailable = errors.New("apple signing keys unavailable")
	ErrUnknownAppleKey      = errors.New("unknown apple key id")
)

type AppleJWKS struct {
	Keys []AppleJWK `json:"keys"`
}

type AppleJWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// AppleClaims are the identity token claims Cadenza reads.
type AppleClaims struct {
	Email         string      `json:"email,omitempty"`
	EmailVerified interface{} `json:"email_verified,omitempty"`
	jwt.RegisteredClaims
}

// appleRefreshBackoff is how long a failed refresh with cached keys waits
// before Apple is asked again.
const appleRefreshBackoff = time.Minute

// AppleJWKSClient verifies Apple identity tokens against Apple's published keys.
// Keys are cached for the configured TTL; a failed refresh keeps serving the
// previous key set and holds off further fetches for appleRefreshBackoff.
type AppleJWKSClient struct {
	mu         sync.RWMutex
	keys       map[string]*rsa.PublicKey
	fetchedAt  time.Time
	retryAfter time.Time

	ttl        time.Duration
	httpClient *http.Client
	jwksURL    string
	clientID   string
	now        func() time.Time
}

func NewAppleJWKSClient(cfg *config.Config) *AppleJWKSClient {
	return &AppleJWKSClient{
		keys:       make(map[string]*rsa.PublicKey),
		ttl:        cfg.AppleKeysTTL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		jwksURL:    cfg.AppleJWKSURL,
		clientID:   cfg.AppleClientID,
		now:        time.Now,
	}
}

func (c *AppleJWKSClient) fetchKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jwksURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var jwks AppleJWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, jwk := range jwks.Keys {
		if jwk.Kty != "" && jwk.Kty != "RSA" {
			continue
		}
		pubKey, err := parseRSAPublicKey(jwk.N, jwk.E)
		if err != nil {
			continue
		}
		keys[jwk.Kid] = pubKey
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = c.now()
	c.retryAfter = time.Time{}
	c.mu.Unlock()
	return nil
}

// refresh fetches the key set. When the fetch fails but an older key set is
// cached, the error is logged and the stale keys stay in use until the
// backoff window passes.
func (c *AppleJWKSClient) refresh(ctx context.Context) error {
	c.mu.RLock()
	backingOff := c.now().Before(c.retryAfter)
	c.mu.RUnlock()
	if backingOff {
		return nil
	}

	err := c.fetchKeys(ctx)
	if err == nil {
		return nil
	}

	c.mu.Lock()
	haveStale := len(c.keys) > 0
	if haveStale {
		c.retryAfter = c.now().Add(appleRefreshBackoff)
	}
	c.mu.Unlock()
	if haveStale {
		slog.Warn("apple JWKS refresh failed, serving cached keys", "error", err, "retry_after", appleRefreshBackoff)
		return nil
	}
	return fmt.Errorf("%w: %v", ErrAppleKeysUnavailable, err)
}

func (c *AppleJWKSClient) lookup(kid string) (key *rsa.PublicKey, fresh bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fresh = !c.fetchedAt.IsZero() && c.now().Before(c.fetchedAt.Add(c.ttl))
	return c.keys[kid], fresh
}

// PublicKey returns the signing key for kid. An expired cache is refetched
// first; a kid that is still unknown gets one forced refresh.
func (c *AppleJWKSClient) PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	key, fresh := c.lookup(kid)
	if key != nil && fresh {
		return key, nil
	}

	if !fresh {
		if err := c.refresh(ctx); err != nil {
			return nil, err
		}
		if key, _ = c.lookup(kid); key != nil {
			return key, nil
		}
	}

	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	if key, _ = c.lookup(kid); key != nil {
		return key, nil
	}
	return nil, ErrUnknownAppleKey
}

func parseRSAPublicKey(nStr, eStr string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(eStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	var e int
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}

// VerifyToken checks signature, expiry, audience and issuer of an Apple
// identity token.
func (c *AppleJWKSClient) VerifyToken(ctx context.Context, identityToken string) (*AppleClaims, error) {
	claims := &AppleClaims{}
	_, err := jwt.ParseWithClaims(identityToken, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, ErrUnknownAppleKey
		}
		return c.PublicKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(c.clientID),
		jwt.WithIssuer(AppleIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("apple token has no subject")
	}
	return claims, nil
}

package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/loopflow/cadenza/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClientID = "com.loopflow.cadenza.test"

// fakeApple serves a JWKS document whose keys can be rotated mid-test.
type fakeApple struct {
	mu      sync.Mutex
	keys    map[string]*rsa.PrivateKey
	failing bool
	fetches atomic.Int32
	server  *httptest.Server
}

func newFakeApple(t *testing.T) *fakeApple {
	t.Helper()
	f := &fakeApple{keys: map[string]*rsa.PrivateKey{}}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.fetches.Add(1)
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failing {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		doc := AppleJWKS{}
		for kid, key := range f.keys {
			doc.Keys = append(doc.Keys, AppleJWK{
				Kty: "RSA",
				Kid: kid,
				Use: "sig",
				Alg: "RS256",
				N:   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			})
		}
		_ = json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeApple) addKey(t *testing.T, kid string) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	f.mu.Lock()
	f.keys[kid] = key
	f.mu.Unlock()
	return key
}

func (f *fakeApple) setFailing(failing bool) {
	f.mu.Lock()
	f.failing = failing
	f.mu.Unlock()
}

func (f *fakeApple) config() *config.Config {
	return &config.Config{
		Environment:   "dev",
		AppleClientID: testClientID,
		AppleJWKSURL:  f.server.URL,
		AppleKeysTTL:  time.Hour,
		JWTSecret:     "test-secret",
		JWTAlgorithm:  "HS256",
		JWTExpiration: time.Hour,
	}
}

type appleTokenOpts struct {
	sub      string
	email    string
	audience string
	issuer   string
	expires  time.Time
}

func signAppleToken(t *testing.T, key *rsa.PrivateKey, kid string, opts appleTokenOpts) string {
	t.Helper()
	if opts.audience == "" {
		opts.audience = testClientID
	}
	if opts.issuer == "" {
		opts.issuer = AppleIssuer
	}
	if opts.expires.IsZero() {
		opts.expires = time.Now().Add(10 * time.Minute)
	}
	claims := AppleClaims{
		Email: opts.email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   opts.sub,
			Issuer:    opts.issuer,
			Audience:  jwt.ClaimStrings{opts.audience},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(opts.expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestVerifyTokenAcceptsValidToken(t *testing.T) {
	apple := newFakeApple(t)
	key := apple.addKey(t, "k1")
	client := NewAppleJWKSClient(apple.config())

	token := signAppleToken(t, key, "k1", appleTokenOpts{sub: "apple-sub-1", email: "ada@example.com"})
	claims, err := client.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "apple-sub-1", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)

	// Cached: a second verification does not refetch.
	_, err = client.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.EqualValues(t, 1, apple.fetches.Load())
}

func TestVerifyTokenRejectsBadClaims(t *testing.T) {
	apple := newFakeApple(t)
	key := apple.addKey(t, "k1")
	client := NewAppleJWKSClient(apple.config())

	cases := map[string]appleTokenOpts{
		"wrong audience": {sub: "s", audience: "com.someone.else"},
		"wrong issuer":   {sub: "s", issuer: "https://evil.example"},
		"expired":        {sub: "s", expires: time.Now().Add(-time.Minute)},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := client.VerifyToken(context.Background(), signAppleToken(t, key, "k1", opts))
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrAppleKeysUnavailable)
		})
	}

	t.Run("HS256 token", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "s", "aud": testClientID, "iss": AppleIssuer})
		token.Header["kid"] = "k1"
		signed, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = client.VerifyToken(context.Background(), signed)
		assert.Error(t, err)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		_, err = client.VerifyToken(context.Background(), signAppleToken(t, other, "k1", appleTokenOpts{sub: "s"}))
		assert.Error(t, err)
	})
}

func TestVerifyTokenForcesRefreshForUnknownKid(t *testing.T) {
	apple := newFakeApple(t)
	apple.addKey(t, "k1")
	client := NewAppleJWKSClient(apple.config())

	_, err := client.PublicKey(context.Background(), "k1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, apple.fetches.Load())

	rotated := apple.addKey(t, "k2")
	claims, err := client.VerifyToken(context.Background(), signAppleToken(t, rotated, "k2", appleTokenOpts{sub: "s2"}))
	require.NoError(t, err)
	assert.Equal(t, "s2", claims.Subject)
	assert.EqualValues(t, 2, apple.fetches.Load())

	_, err = client.PublicKey(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownAppleKey)
	assert.EqualValues(t, 3, apple.fetches.Load())
}

func TestVerifyTokenServesStaleKeysWhenFetchFails(t *testing.T) {
	apple := newFakeApple(t)
	key := apple.addKey(t, "k1")
	client := NewAppleJWKSClient(apple.config())

	now := time.Now()
	client.now = func() time.Time { return now }
	_, err := client.PublicKey(context.Background(), "k1")
	require.NoError(t, err)

	apple.setFailing(true)
	now = now.Add(2 * time.Hour)

	// Expiry checks use the client's clock as well.
	token := signAppleToken(t, key, "k1", appleTokenOpts{sub: "s", expires: now.Add(time.Minute)})
	claims, err := client.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "s", claims.Subject)
}

func TestFailedRefreshBacksOff(t *testing.T) {
	apple := newFakeApple(t)
	apple.addKey(t, "k1")
	client := NewAppleJWKSClient(apple.config())

	now := time.Now()
	client.now = func() time.Time { return now }
	_, err := client.PublicKey(context.Background(), "k1")
	require.NoError(t, err)

	apple.setFailing(true)
	now = now.Add(2 * time.Hour)
	_, err = client.PublicKey(context.Background(), "k1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, apple.fetches.Load())

	now = now.Add(appleRefreshBackoff / 2)
	_, err = client.PublicKey(context.Background(), "k1")
	require.NoError(t, err)
	_, err = client.PublicKey(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrUnknownAppleKey)
	assert.EqualValues(t, 2, apple.fetches.Load())

	now = now.Add(appleRefreshBackoff)
	apple.setFailing(false)
	_, err = client.PublicKey(context.Background(), "k1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, apple.fetches.Load())

	now = now.Add(time.Minute)
	_, err = client.PublicKey(context.Background(), "k1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, apple.fetches.Load())
}

func TestVerifyTokenReportsUnavailableWithoutKeys(t *testing.T) {
	apple := newFakeApple(t)
	key := apple.addKey(t, "k1")
	apple.setFailing(true)
	client := NewAppleJWKSClient(apple.config())

	_, err := client.VerifyToken(context.Background(), signAppleToken(t, key, "k1", appleTokenOpts{sub: "s"}))
	assert.ErrorIs(t, err, ErrAppleKeysUnavailable)
}

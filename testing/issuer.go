// Package testing provides a stand-in identity issuer for tests of code that
// sits behind storefront bearer auth. It serves a JWKS document and mints
// RS256 tokens that validate against it, so no real auth server is needed.
//
// Example usage:
//
//	issuer := testing.NewTestIssuer()
//	defer issuer.Close()
//
//	verifier := identity.NewTokenVerifier(issuer.AcceptConfig())
//	token := issuer.CreateToken("user-123", "test@example.com")
package testing

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/PaulFidika/auditstore/identity"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

const testKeyID = "test-key-1"

// TestIssuer runs an HTTP server with /.well-known/jwks.json and signs tokens
// with the matching private key.
type TestIssuer struct {
	server   *httptest.Server
	key      *rsa.PrivateKey
	audience string
}

// NewTestIssuer creates a test issuer whose tokens carry audience "storefront".
// Call Close() when done to shut down the test server.
func NewTestIssuer() *TestIssuer {
	return NewTestIssuerWithAudience("storefront")
}

// NewTestIssuerWithAudience creates a test issuer with a specific audience claim.
func NewTestIssuerWithAudience(audience string) *TestIssuer {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic("failed to generate RSA key: " + err.Error())
	}
	ti := &TestIssuer{key: key, audience: audience}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/jwks.json", ti.handleJWKS)
	ti.server = httptest.NewServer(mux)
	return ti
}

// URL returns the issuer base URL, also used as the "iss" claim.
func (ti *TestIssuer) URL() string { return ti.server.URL }

// Audience returns the audience configured for this test issuer.
func (ti *TestIssuer) Audience() string { return ti.audience }

// AcceptConfig returns verifier settings that trust this issuer.
func (ti *TestIssuer) AcceptConfig() identity.AcceptConfig {
	return identity.AcceptConfig{
		Issuer:   ti.URL(),
		Audience: ti.audience,
		JWKSURL:  ti.URL() + "/.well-known/jwks.json",
	}
}

// Close shuts down the test server.
func (ti *TestIssuer) Close() {
	if ti.server != nil {
		ti.server.Close()
	}
}

func (ti *TestIssuer) handleJWKS(w http.ResponseWriter, r *http.Request) {
	key, err := jwk.FromRaw(&ti.key.PublicKey)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = key.Set(jwk.KeyIDKey, testKeyID)
	_ = key.Set(jwk.AlgorithmKey, jwa.RS256)
	_ = key.Set(jwk.KeyUsageKey, "sig")
	set := jwk.NewSet()
	_ = set.AddKey(key)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(set)
}

// CreateToken creates a signed token for a regular user.
func (ti *TestIssuer) CreateToken(userID, email string) string {
	return ti.CreateTokenWithClaims(userID, email, nil)
}

// CreateAdminToken creates a signed token carrying the "admin" role.
func (ti *TestIssuer) CreateAdminToken(userID, email string) string {
	return ti.CreateTokenWithClaims(userID, email, map[string]any{
		"roles": []string{"admin"},
	})
}

// CreateExpiredToken creates a token that expired an hour ago.
func (ti *TestIssuer) CreateExpiredToken(userID, email string) string {
	return ti.CreateTokenWithClaims(userID, email, map[string]any{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
}

// CreateTokenWithClaims merges extraClaims over the standard
// sub/email/iss/aud/exp/iat set and signs the result.
func (ti *TestIssuer) CreateTokenWithClaims(userID, email string, extraClaims map[string]any) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"iss":   ti.URL(),
		"aud":   ti.audience,
		"exp":   now.Add(time.Hour).Unix(),
		"iat":   now.Unix(),
	}
	for k, v := range extraClaims {
		claims[k] = v
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	signed, err := token.SignedString(ti.key)
	if err != nil {
		panic("failed to sign token: " + err.Error())
	}
	return signed
}

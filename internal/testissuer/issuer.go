// Package testissuer runs an in-process identity provider for tests. It
// serves OIDC discovery, a JWKS endpoint, a client-credentials token
// endpoint and a user-info service, and signs tokens that validate against
// its JWKS.
package testissuer

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Default values baked into tokens produced by Claims.
const (
	TenantID = "11111111-2222-3333-4444-555555555555"
	ClientID = "api-client-id"
)

// Issuer is a fake identity provider.
type Issuer struct {
	Server *httptest.Server

	// JWKSRequests counts requests served by the JWKS endpoint.
	JWKSRequests atomic.Int32

	// TokenRequests counts requests served by the token endpoint.
	TokenRequests atomic.Int32

	// UserInfoRequests counts requests served by the user-info endpoint.
	UserInfoRequests atomic.Int32

	mu            sync.Mutex
	private       jwk.Key
	public        jwk.Set
	jwksErr       int // when non-zero, the JWKS endpoint answers with this status
	tokenErr      int // when non-zero, the token endpoint answers with this status
	expiresIn     int
	lastTokenForm map[string]string
	tokenHold     chan struct{}
	users         map[string]map[string]any
	userInfoErr   int
	lastUserAuth  string
}

// Client credentials accepted by the token endpoint.
const (
	AppClientID     = "app-client-id"
	AppClientSecret = "app-client-secret"
)

// New starts an Issuer with one RSA signing key ("kid-1"). The server is
// closed when the test ends.
func New(t testing.TB) *Issuer {
	t.Helper()

	iss := &Issuer{
		public:    jwk.NewSet(),
		expiresIn: 3600,
		users:     make(map[string]map[string]any),
	}
	iss.AddKey(t, "kid-1")

	mux := http.NewServeMux()
	mux.HandleFunc("/"+TenantID+"/v2.0/.well-known/openid-configuration", iss.handleDiscovery)
	mux.HandleFunc("/"+TenantID+"/discovery/v2.0/keys", iss.handleJWKS)
	mux.HandleFunc("POST /"+TenantID+"/oauth2/v2.0/token", iss.handleToken)
	mux.HandleFunc("GET /userinfo/{username}/{$}", iss.handleUserInfo)

	iss.Server = httptest.NewServer(mux)
	t.Cleanup(iss.Server.Close)
	return iss
}

// ProviderURL is the authority base URL, the equivalent of
// https://login.microsoftonline.com.
func (i *Issuer) ProviderURL() string {
	return i.Server.URL
}

// IssuerURL is the expected iss claim.
func (i *Issuer) IssuerURL() string {
	return i.Server.URL + "/" + TenantID + "/v2.0"
}

// JWKSURL is the signing key endpoint.
func (i *Issuer) JWKSURL() string {
	return i.Server.URL + "/" + TenantID + "/discovery/v2.0/keys"
}

// UserInfoURL is the base URL of the user-info service.
func (i *Issuer) UserInfoURL() string {
	return i.Server.URL + "/userinfo"
}

// SetUserInfo registers the document served for username.
func (i *Issuer) SetUserInfo(username string, info map[string]any) {
	i.mu.Lock()
	i.users[username] = info
	i.mu.Unlock()
}

// FailUserInfo makes the user-info endpoint answer with status until reset
// with 0.
func (i *Issuer) FailUserInfo(status int) {
	i.mu.Lock()
	i.userInfoErr = status
	i.mu.Unlock()
}

// LastUserInfoAuthorization returns the Authorization header of the latest
// user-info request.
func (i *Issuer) LastUserInfoAuthorization() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastUserAuth
}

// AddKey generates a new RSA key, publishes it and makes it the signing key.
func (i *Issuer) AddKey(t testing.TB, kid string) {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	private, err := jwk.FromRaw(raw)
	if err != nil {
		t.Fatalf("jwk from raw: %v", err)
	}
	_ = private.Set(jwk.KeyIDKey, kid)
	_ = private.Set(jwk.AlgorithmKey, jwa.RS256)

	public, err := jwk.PublicKeyOf(private)
	if err != nil {
		t.Fatalf("public key: %v", err)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.private = private
	if err := i.public.AddKey(public); err != nil {
		t.Fatalf("add key: %v", err)
	}
}

// FailJWKS makes the JWKS endpoint answer with status until reset with 0.
func (i *Issuer) FailJWKS(status int) {
	i.mu.Lock()
	i.jwksErr = status
	i.mu.Unlock()
}

// FailToken makes the token endpoint answer with status until reset with 0.
func (i *Issuer) FailToken(status int) {
	i.mu.Lock()
	i.tokenErr = status
	i.mu.Unlock()
}

// HoldToken makes the token endpoint wait before answering until release is
// called. Release is also registered as a test cleanup.
func (i *Issuer) HoldToken(t testing.TB) (release func()) {
	t.Helper()

	hold := make(chan struct{})
	i.mu.Lock()
	i.tokenHold = hold
	i.mu.Unlock()

	var once sync.Once
	release = func() {
		once.Do(func() {
			i.mu.Lock()
			i.tokenHold = nil
			i.mu.Unlock()
			close(hold)
		})
	}
	t.Cleanup(release)
	return release
}

// SetTokenLifetime sets the expires_in value of issued app tokens.
func (i *Issuer) SetTokenLifetime(seconds int) {
	i.mu.Lock()
	i.expiresIn = seconds
	i.mu.Unlock()
}

// LastTokenForm returns the form values of the latest token request.
func (i *Issuer) LastTokenForm() map[string]string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastTokenForm
}

// Claims returns a valid Entra-shaped claim set for the given user.
func (i *Issuer) Claims(preferredUsername string) map[string]any {
	now := time.Now()
	claims := map[string]any{
		"iss":   i.IssuerURL(),
		"aud":   ClientID,
		"sub":   "subject-" + preferredUsername,
		"iat":   now.Add(-time.Minute).Unix(),
		"nbf":   now.Add(-time.Minute).Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"tid":   TenantID,
		"roles": []string{"api.read", "api.write", "other.admin"},
	}
	if preferredUsername != "" {
		claims["preferred_username"] = preferredUsername
	}
	return claims
}

// AppClaims returns a valid claim set for a client-credentials token: no upn
// and no preferred_username.
func (i *Issuer) AppClaims() map[string]any {
	claims := i.Claims("")
	claims["appid"] = AppClientID
	claims["azp"] = AppClientID
	return claims
}

// Sign signs claims with the current signing key using RS256.
func (i *Issuer) Sign(t testing.TB, claims map[string]any) string {
	t.Helper()

	i.mu.Lock()
	key := i.private
	i.mu.Unlock()

	return SignWith(t, key, jwa.RS256, claims)
}

// SignWith signs claims with an arbitrary key and algorithm.
func SignWith(t testing.TB, key any, alg jwa.SignatureAlgorithm, claims map[string]any) string {
	t.Helper()

	tok := jwt.New()
	for k, v := range claims {
		if err := tok.Set(k, v); err != nil {
			t.Fatalf("set claim %s: %v", k, err)
		}
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(alg, key))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(signed)
}

func (i *Issuer) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"issuer":         i.IssuerURL(),
		"jwks_uri":       i.JWKSURL(),
		"token_endpoint": i.Server.URL + "/" + TenantID + "/oauth2/v2.0/token",
	})
}

func (i *Issuer) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	i.JWKSRequests.Add(1)

	i.mu.Lock()
	status := i.jwksErr
	set := i.public
	i.mu.Unlock()

	if status != 0 {
		http.Error(w, "unavailable", status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(set)
}

func (i *Issuer) handleToken(w http.ResponseWriter, r *http.Request) {
	n := i.TokenRequests.Add(1)

	i.mu.Lock()
	hold := i.tokenHold
	i.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}

	i.mu.Lock()
	i.lastTokenForm = form
	status := i.tokenErr
	expiresIn := i.expiresIn
	i.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status == 0 && (form["client_id"] != AppClientID || form["client_secret"] != AppClientSecret) {
		status = http.StatusUnauthorized
	}
	if status != 0 {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_client",
			"error_description": "client authentication failed",
		})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": fmt.Sprintf("app-token-%d", n),
		"token_type":   "Bearer",
		"expires_in":   expiresIn,
	})
}

func (i *Issuer) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	i.UserInfoRequests.Add(1)
	auth := r.Header.Get("Authorization")

	i.mu.Lock()
	i.lastUserAuth = auth
	status := i.userInfoErr
	info, ok := i.users[r.PathValue("username")]
	i.mu.Unlock()

	switch {
	case status != 0:
		http.Error(w, "unavailable", status)
		return
	case !strings.HasPrefix(auth, "Bearer app-token-"):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	case !ok:
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}

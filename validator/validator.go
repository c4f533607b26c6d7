package validator

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/entrakit/go-entra-middleware/core"
	"github.com/entrakit/go-entra-middleware/identity"
)

// AppIDURIScheme is the prefix Entra ID puts in front of an application's
// client id to form its default Application ID URI.
const AppIDURIScheme = "api://"

// KeyResolver returns the public key that signed a token. *jwks.KeyCache
// implements it.
type KeyResolver interface {
	GetKey(ctx context.Context, jwksURL, token string) (jwk.Key, error)
}

// Validator verifies Entra ID access tokens and returns their claims.
type Validator struct {
	keys             KeyResolver              // Required when verifying signatures.
	jwksURL          string                   // Required when verifying signatures.
	algorithms       []jwa.SignatureAlgorithm // Defaults to RS256.
	issuer           string                   // Required.
	audiences        []string                 // Required.
	verifySignature  bool                     // Defaults to true.
	requiredClaims   []string                 // Defaults to preferred_username.
	appTokens        bool                     // Defaults to true.
	allowedClockSkew time.Duration            // Optional.
	now              func() time.Time
}

var allowedSigningAlgorithms = map[jwa.SignatureAlgorithm]bool{
	jwa.RS256: true,
	jwa.RS384: true,
	jwa.RS512: true,
	jwa.PS256: true,
	jwa.PS384: true,
	jwa.PS512: true,
	jwa.ES256: true,
	jwa.ES384: true,
	jwa.ES512: true,
	jwa.EdDSA: true,
}

// ParseAlgorithms converts algorithm names such as "RS256" into signature
// algorithms. Symmetric algorithms and "none" are rejected because their keys
// are never published in a JWKS.
func ParseAlgorithms(names []string) ([]jwa.SignatureAlgorithm, error) {
	algs := make([]jwa.SignatureAlgorithm, 0, len(names))
	for _, name := range names {
		alg := jwa.SignatureAlgorithm(strings.TrimSpace(name))
		if !allowedSigningAlgorithms[alg] {
			return nil, fmt.Errorf("unsupported signature algorithm: %s", name)
		}
		algs = append(algs, alg)
	}
	return algs, nil
}

// ValidateToken checks token and returns its claims.
//
// Checks run in a fixed order and the first failure is returned: format,
// signing algorithm, signing key, signature, expiry, not-before, audience,
// issuer and finally the required claims. Every failure is an error that
// matches core.ErrInvalidToken.
func (v *Validator) ValidateToken(ctx context.Context, token string) (map[string]any, error) {
	if err := checkTokenFormat(token); err != nil {
		return nil, core.NewInvalidTokenError(core.ErrorCodeTokenMalformed, "token malformado", err)
	}

	msg, err := jws.Parse([]byte(token))
	if err != nil {
		return nil, core.NewInvalidTokenError(core.ErrorCodeTokenMalformed, "token malformado", err)
	}
	if len(msg.Signatures()) != 1 {
		return nil, core.NewInvalidTokenError(
			core.ErrorCodeTokenMalformed,
			"token malformado",
			fmt.Errorf("expected one signature, got %d", len(msg.Signatures())),
		)
	}

	// Unverified tokens still go through every claim check below. Skipping
	// the signature trusts the key, not the token's lifetime or audience.
	if v.verifySignature {
		if err := v.verify(ctx, token, msg); err != nil {
			return nil, err
		}
	}

	parsed, err := jwt.ParseString(token, jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return nil, core.NewInvalidTokenError(core.ErrorCodeTokenMalformed, "token malformado", err)
	}

	if err := v.validateClaims(parsed); err != nil {
		return nil, err
	}

	claims, err := parsed.AsMap(ctx)
	if err != nil {
		return nil, core.NewInvalidTokenError(core.ErrorCodeVerificationError, "não foi possível ler as claims", err)
	}
	return claims, nil
}

func (v *Validator) verify(ctx context.Context, token string, msg *jws.Message) error {
	alg := msg.Signatures()[0].ProtectedHeaders().Algorithm()
	if !slices.Contains(v.algorithms, alg) {
		return core.NewInvalidTokenError(
			core.ErrorCodeInvalidAlgorithm,
			"algoritmo de assinatura não permitido",
			fmt.Errorf("token is signed with %q, allowed: %v", alg, v.algorithms),
		)
	}

	key, err := v.keys.GetKey(ctx, v.jwksURL, token)
	if err != nil {
		return err
	}

	if _, err := jws.Verify([]byte(token), jws.WithKey(alg, key)); err != nil {
		return core.NewInvalidTokenError(core.ErrorCodeInvalidSignature, "assinatura inválida", err)
	}
	return nil
}

func (v *Validator) validateClaims(token jwt.Token) error {
	now := v.now()

	exp := token.Expiration()
	if exp.IsZero() {
		return core.NewMissingClaimError(jwt.ExpirationKey)
	}
	if !now.Add(-v.allowedClockSkew).Before(exp) {
		return core.NewInvalidTokenError(
			core.ErrorCodeTokenExpired,
			core.MessageTokenExpired,
			fmt.Errorf("token expired at %s", exp.UTC().Format(time.RFC3339)),
		)
	}

	if nbf := token.NotBefore(); !nbf.IsZero() && now.Add(v.allowedClockSkew).Before(nbf) {
		return core.NewInvalidTokenError(
			core.ErrorCodeTokenNotYetValid,
			"token ainda não é válido",
			fmt.Errorf("token is not valid before %s", nbf.UTC().Format(time.RFC3339)),
		)
	}

	if !v.audienceMatches(token.Audience()) {
		return core.NewInvalidTokenError(
			core.ErrorCodeInvalidAudience,
			core.MessageInvalidAudience,
			fmt.Errorf("audience %v does not match %v", token.Audience(), v.audiences),
		)
	}

	if strings.TrimSuffix(token.Issuer(), "/") != strings.TrimSuffix(v.issuer, "/") {
		return core.NewInvalidTokenError(
			core.ErrorCodeInvalidIssuer,
			core.MessageInvalidIssuer,
			fmt.Errorf("issuer %q does not match %q", token.Issuer(), v.issuer),
		)
	}

	return v.validateRequiredClaims(token)
}

// userClaims describe a signed-in user. Client-credentials tokens never
// carry them, so they are not required there.
var userClaims = map[string]bool{
	identity.PreferredUsernameClaim: true,
	identity.UPNClaim:               true,
	"email":                         true,
	"name":                          true,
	"given_name":                    true,
	"family_name":                   true,
	"unique_name":                   true,
}

// idClaims, like userClaims, must be non-blank strings to count as present.
var idClaims = map[string]bool{
	"oid":   true,
	"sub":   true,
	"tid":   true,
	"azp":   true,
	"appid": true,
}

func (v *Validator) validateRequiredClaims(token jwt.Token) error {
	_, hasUPN := token.Get(identity.UPNClaim)
	_, hasUsername := token.Get(identity.PreferredUsernameClaim)
	appToken := !hasUPN && !hasUsername

	if appToken && !v.appTokens {
		return core.NewMissingClaimError(identity.PreferredUsernameClaim)
	}

	for _, name := range v.requiredClaims {
		if appToken && userClaims[name] {
			continue
		}
		value, ok := token.Get(name)
		if !ok || !claimPresent(name, value) {
			return core.NewMissingClaimError(name)
		}
	}
	return nil
}

func (v *Validator) audienceMatches(audience []string) bool {
	for _, aud := range audience {
		if slices.Contains(v.audiences, aud) {
			return true
		}
	}
	return false
}

func claimPresent(name string, value any) bool {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	if userClaims[name] || idClaims[name] {
		return false
	}

	switch value := value.(type) {
	case nil:
		return false
	case []any:
		return len(value) > 0
	case []string:
		return len(value) > 0
	case map[string]any:
		return len(value) > 0
	default:
		return true
	}
}

// audiencesFor returns the audience values Entra ID issues for clientID: the
// bare client id and its Application ID URI.
func audiencesFor(clientID string) []string {
	bare := strings.TrimPrefix(clientID, AppIDURIScheme)
	return []string{bare, AppIDURIScheme + bare}
}

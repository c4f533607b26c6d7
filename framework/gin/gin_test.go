package jwtgin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwtmiddleware "github.com/entrakit/go-entra-middleware"
	"github.com/entrakit/go-entra-middleware/core"
	"github.com/entrakit/go-entra-middleware/internal/testissuer"
	"github.com/entrakit/go-entra-middleware/jwks"
	"github.com/entrakit/go-entra-middleware/validator"
)

func newTestGate(t *testing.T, iss *testissuer.Issuer, routes ...string) *jwtmiddleware.Gate {
	t.Helper()

	keys, err := jwks.NewKeyCache()
	require.NoError(t, err)
	v, err := validator.New(
		validator.WithKeyResolver(keys, iss.JWKSURL()),
		validator.WithIssuer(iss.IssuerURL()),
		validator.WithAudience(testissuer.ClientID),
	)
	require.NoError(t, err)

	gate, err := jwtmiddleware.New(
		jwtmiddleware.WithVerifier(v),
		jwtmiddleware.WithRoutes(jwtmiddleware.NewRouteTable(routes...)),
	)
	require.NoError(t, err)
	return gate
}

func newRouter(gate *jwtmiddleware.Gate, opts ...Option) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(gate, opts...))

	r.GET("/public", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "public"})
	})
	r.GET("/users/:id", func(c *gin.Context) {
		id, err := GetIdentity(c)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		fromRequest, err := core.GetIdentity(c.Request.Context())
		if err != nil || fromRequest != id {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"username": c.GetString(UsernameKey),
			"email":    c.GetString(EmailKey),
			"roles":    c.GetStringSlice(RolesKey),
		})
	})
	return r
}

func TestNew(t *testing.T) {
	iss := testissuer.New(t)
	router := newRouter(newTestGate(t, iss, "/users/:id"))

	t.Run("unprotected routes pass through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/public", nil)
		req.Header.Set("Authorization", "garbage")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("protected routes require a token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/42", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Token não fornecido ou mal formatado.")
	})

	t.Run("protected routes reject invalid tokens", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/42", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Token inválido")
	})

	t.Run("valid tokens set the identity keys", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/42", nil)
		req.Header.Set("Authorization", "Bearer "+iss.Sign(t, iss.Claims("john.doe@example.com")))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Username string   `json:"username"`
			Email    string   `json:"email"`
			Roles    []string `json:"roles"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "john.doe", body.Username)
		assert.Equal(t, "john.doe@example.com", body.Email)
		assert.Equal(t, []string{"api.read", "api.write", "other.admin"}, body.Roles)
	})
}

func TestWithErrorHandler(t *testing.T) {
	iss := testissuer.New(t)
	router := newRouter(newTestGate(t, iss, "/users/:id"), WithErrorHandler(func(c *gin.Context, err error) {
		c.JSON(http.StatusTeapot, gin.H{"detail": core.Message(err)})
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, rec.Body.String(), "Token")
}

func TestGetIdentity(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := GetIdentity(c)
	assert.ErrorIs(t, err, ErrMissingIdentity)

	c.Set(IdentityKey, "not an identity")
	_, err = GetIdentity(c)
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/shopdesk/internal/shared"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "user-7",
		"name":  "Priya",
		"iss":   "https://id.example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"email": "priya@example.com",
	}
}

func TestVerifyAcceptsValidToken(t *testing.T) {
	v := NewVerifier(testSecret, "https://id.example.com")
	p, err := v.Verify(sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims()))
	require.NoError(t, err)
	require.Equal(t, "user-7", p.Subject)
	require.Equal(t, "Priya", p.Name)
	require.False(t, p.ExpiresAt.IsZero())
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier(testSecret, "https://id.example.com")

	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	wrongIssuer := validClaims()
	wrongIssuer["iss"] = "https://evil.example.com"
	noSub := validClaims()
	delete(noSub, "sub")
	noExp := validClaims()
	delete(noExp, "exp")

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"wrong secret": sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims()),
		"expired":      sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired),
		"issuer":       sign(t, jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer),
		"no subject":   sign(t, jwt.SigningMethodHS256, []byte(testSecret), noSub),
		"no expiry":    sign(t, jwt.SigningMethodHS256, []byte(testSecret), noExp),
		"alg none":     sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims()),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			require.ErrorIs(t, err, shared.ErrUnauthorized)
		})
	}
}

func TestDisabledVerifierUsesDevSubject(t *testing.T) {
	v := NewVerifier("", "")
	require.False(t, v.Enabled())
	p, err := v.Verify("")
	require.NoError(t, err)
	require.Equal(t, DevSubject, p.Subject)
}

func TestMiddlewareSetsActor(t *testing.T) {
	v := NewVerifier(testSecret, "")
	var actor string
	h := Middleware(v, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = shared.ActorFromContext(r.Context())
		p, ok := PrincipalFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, "priya@example.com", p.Email)
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims()))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "user-7", actor)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Header().Get("WWW-Authenticate"), "Bearer")

	req = httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Basic abc")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestTokenFromQueryParameter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/live?token=abc", nil)
	tok, err := TokenFromRequest(req)
	require.NoError(t, err)
	require.Equal(t, "abc", tok)
}

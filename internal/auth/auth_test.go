package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-marketplace/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestHMACVerifier_AcceptsSignedToken(t *testing.T) {
	token, err := SignHMAC(secret, "marketplace", "user-1", time.Minute)
	require.NoError(t, err)

	sub, err := (&HMACVerifier{Secret: secret, Issuer: "marketplace"}).Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestHMACVerifier_Rejects(t *testing.T) {
	v := &HMACVerifier{Secret: secret, Issuer: "marketplace"}
	ctx := context.Background()

	wrongKey, _ := SignHMAC([]byte("other"), "marketplace", "user-1", time.Minute)
	_, err := v.Verify(ctx, wrongKey)
	assert.Error(t, err)

	expired, _ := SignHMAC(secret, "marketplace", "user-1", -time.Hour)
	_, err = v.Verify(ctx, expired)
	assert.Error(t, err)

	wrongIssuer, _ := SignHMAC(secret, "elsewhere", "user-1", time.Minute)
	_, err = v.Verify(ctx, wrongIssuer)
	assert.Error(t, err)

	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1", Issuer: "marketplace"}).SignedString(secret)
	_, err = v.Verify(ctx, noExp)
	assert.Error(t, err)

	_, err = v.Verify(ctx, "not-a-jwt")
	assert.Error(t, err)
}

func TestExtractTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := ExtractTokenFromRequest(r)
	assert.Error(t, err)

	r.Header.Set("Authorization", "bearer abc")
	tok, err := ExtractTokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	r.Header.Set("Authorization", "Basic abc")
	_, err = ExtractTokenFromRequest(r)
	assert.Error(t, err)

	r = httptest.NewRequest(http.MethodGet, "/stream?access_token=xyz", nil)
	tok, err = ExtractTokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)
}

func TestMiddleware(t *testing.T) {
	v := &HMACVerifier{Secret: secret}
	var seen string
	h := Middleware(v, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, _ := SignHMAC(secret, "", "user-7", time.Minute)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-7", seen)
}

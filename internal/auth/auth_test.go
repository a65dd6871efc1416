package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	assert.True(t, CheckPassword("secret1", hash))
	assert.False(t, CheckPassword("wrong", hash))
	assert.False(t, CheckPassword("secret1", "not-a-hash"))
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	raw, err := tokens.Generate("user-1", "alice")
	require.NoError(t, err)

	claims, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestVerify_Rejections(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	_, err := tokens.Verify("garbage")
	assert.Error(t, err)

	// Signed with a different secret.
	other := NewTokens("other-secret", time.Hour)
	raw, err := other.Generate("user-1", "alice")
	require.NoError(t, err)
	_, err = tokens.Verify(raw)
	assert.Error(t, err)

	// Expired.
	expired := NewTokens("test-secret", -time.Minute)
	raw, err = expired.Generate("user-1", "alice")
	require.NoError(t, err)
	_, err = tokens.Verify(raw)
	assert.Error(t, err)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/users", nil)
	r.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "abc", TokenFromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/ws?token=xyz", nil)
	assert.Equal(t, "xyz", TokenFromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/users", nil)
	assert.Empty(t, TokenFromRequest(r))
}

func TestMiddleware(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	var gotUserID, gotUsername string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		gotUsername = UsernameFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware(tokens)(next)

	// Missing token.
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Invalid token.
	w = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/users", nil)
	r.Header.Set("Authorization", "Bearer bogus")
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid token reaches the handler with identity in context.
	raw, err := tokens.Generate("user-1", "alice")
	require.NoError(t, err)
	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/users", nil)
	r.Header.Set("Authorization", "Bearer "+raw)
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", gotUserID)
	assert.Equal(t, "alice", gotUsername)
}

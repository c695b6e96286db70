package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"multihorizon/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	claims := models.JwtClaims{
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(exp.Add(-6 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestContextUnauthenticated(t *testing.T) {
	ctx := NewContext("")
	assert.False(t, ctx.Authenticated())
	err := ctx.Check(time.Now())
	assert.Equal(t, models.KindUnauthorized, models.KindOf(err))
}

func TestContextParsesJWTClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	ctx := NewContext(signToken(t, "owner@shop.test", exp))

	assert.True(t, ctx.Authenticated())
	assert.Equal(t, "owner@shop.test", ctx.Subject())
	assert.True(t, exp.Equal(ctx.ExpiresAt()))
	assert.NoError(t, ctx.Check(time.Now()))
}

func TestContextExpiredToken(t *testing.T) {
	ctx := NewContext(signToken(t, "owner@shop.test", time.Now().Add(-time.Minute)))
	err := ctx.Check(time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestContextOpaqueToken(t *testing.T) {
	ctx := NewContext("not-a-jwt")
	assert.True(t, ctx.Authenticated())
	assert.Nil(t, ctx.Claims)
	assert.True(t, ctx.ExpiresAt().IsZero())
	assert.NoError(t, ctx.Check(time.Now()))
}

func TestMemoryTokenStore(t *testing.T) {
	store := NewMemoryTokenStore()
	ctx, err := LoadContext(store)
	require.NoError(t, err)
	assert.False(t, ctx.Authenticated())

	require.NoError(t, store.Set(TokenKey, "abc"))
	ctx, err = LoadContext(store)
	require.NoError(t, err)
	assert.Equal(t, "abc", ctx.Token)

	require.NoError(t, store.Delete(TokenKey))
	_, ok, err := store.Get(TokenKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewFileTokenStore(path)

	_, ok, err := store.Get(TokenKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(TokenKey, "secret-token"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened := NewFileTokenStore(path)
	v, ok, err := reopened.Get(TokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "secret-token", v)

	require.NoError(t, reopened.Delete(TokenKey))
	require.NoError(t, reopened.Delete(TokenKey))
	_, ok, err = store.Get(TokenKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileTokenStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := NewFileTokenStore(path).Get(TokenKey)
	assert.Error(t, err)
}

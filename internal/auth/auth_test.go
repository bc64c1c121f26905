package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/actor"
)

func TestIssueAndVerify(t *testing.T) {
	iss := NewIssuer("secret", time.Minute)
	ver := NewVerifier("secret")

	raw, err := iss.Issue(actor.Identity{Subject: "user-1", Email: "doc@clinic.test", Name: "Dr. Who"})
	require.NoError(t, err)

	claims, err := ver.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, actor.Identity{Subject: "user-1", Email: "doc@clinic.test", Name: "Dr. Who"}, claims.Identity())
	assert.NotEmpty(t, claims.ID)
}

func TestVerify_Rejects(t *testing.T) {
	ver := NewVerifier("secret")

	_, err := ver.Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)

	other, err := NewIssuer("other", time.Minute).Issue(actor.Identity{Subject: "u"})
	require.NoError(t, err)
	_, err = ver.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewIssuer("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	raw, err := expired.Issue(actor.Identity{Subject: "u"})
	require.NoError(t, err)
	_, err = ver.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSub, err := NewIssuer("secret", time.Minute).Issue(actor.Identity{Email: "x@y.z"})
	require.NoError(t, err)
	_, err = ver.Verify(noSub)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewVerifier("secret").Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken(""))
}

func testRevoker(t *testing.T, r Revoker) {
	t.Helper()
	ctx := context.Background()

	revoked, err := r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "jti-1", time.Now().Add(time.Minute)))
	revoked, err = r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// already expired tokens need no entry
	require.NoError(t, r.Revoke(ctx, "jti-2", time.Now().Add(-time.Minute)))
	revoked, err = r.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryRevoker(t *testing.T) {
	m := NewMemoryRevoker()
	testRevoker(t, m)
	assert.Equal(t, 1, m.Count())
}

func TestMemoryRevoker_PrunesExpired(t *testing.T) {
	m := NewMemoryRevoker()
	ctx := context.Background()
	now := time.Now()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Revoke(ctx, "a", now.Add(time.Minute)))
	now = now.Add(2 * time.Minute)

	revoked, _ := m.IsRevoked(ctx, "a")
	assert.False(t, revoked)

	require.NoError(t, m.Revoke(ctx, "b", now.Add(time.Minute)))
	assert.Equal(t, 1, m.Count())
}

func TestRedisRevoker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	r := NewRedisRevoker(client)
	testRevoker(t, r)

	assert.True(t, mr.Exists(revokedKeyPrefix+"jti-1"))
	mr.FastForward(2 * time.Minute)
	revoked, err := r.IsRevoked(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevoker_BackendDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := NewRedisRevoker(client).IsRevoked(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRevokedToken))
}

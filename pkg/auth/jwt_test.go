package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing"

func TestJWTVerifier_Valid(t *testing.T) {
	token, err := GenerateJWT("u1", "owner@bistro.test", testSecret, time.Hour)
	require.NoError(t, err)

	caller, err := NewJWTVerifier(testSecret).Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", caller.UID)
	assert.Equal(t, "owner@bistro.test", caller.Email)
}

func TestJWTVerifier_Rejects(t *testing.T) {
	expired, err := GenerateJWT("u1", "a@b.test", testSecret, -time.Minute)
	require.NoError(t, err)

	wrongSecret, err := GenerateJWT("u1", "a@b.test", "another-secret", time.Hour)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Email: "a@b.test"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"expired":      expired,
		"wrong secret": wrongSecret,
		"no subject":   noSubject,
		"alg none":     noneAlg,
		"garbage":      "not.a.token",
	}

	v := NewJWTVerifier(testSecret)
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestCallerContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, FromContext(ctx))

	ctx = WithCaller(ctx, &Caller{UID: "u1"})
	require.NotNil(t, FromContext(ctx))
	assert.Equal(t, "u1", FromContext(ctx).UID)
}

package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	auth "github.com/imAdityaSharma/doc-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("test-signing-key-for-unit-tests")

func TestTokenServiceRoundTrip(t *testing.T) {
	ts := auth.NewTokenService(testSigningKey, 24, "doc-auth", nil)

	identity := testIdentity{
		id:    "2b7cfa72-4a9f-4f3e-9f2c-1f2a3b4c5d6e",
		email: "a@x.com",
		role:  "patient",
	}

	token, err := ts.Generate(identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ts.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, identity.id, claims.AccountID())
	assert.Equal(t, "a@x.com", claims.Email())
	assert.Equal(t, "patient", claims.Role())
	assert.True(t, claims.HasRole(auth.RolePatient))
	assert.False(t, claims.HasRole(auth.RoleDoctor))
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.Expires(), time.Minute)
}

func TestTokenServiceExpired(t *testing.T) {
	ts := auth.NewTokenService(testSigningKey, 24, "doc-auth", nil)

	now := time.Now()
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "doc-auth",
			Subject:   "someone",
			IssuedAt:  jwt.NewNumericDate(now.Add(-48 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-24 * time.Hour)),
		},
		UID:      "someone",
		UserRole: "patient",
	})

	signed, err := expired.SignedString(testSigningKey)
	require.NoError(t, err)

	claims, err := ts.Validate(signed)
	assert.Nil(t, claims)
	assert.True(t, auth.IsTokenExpiredError(err))
}

func TestTokenServiceWrongKey(t *testing.T) {
	ts := auth.NewTokenService(testSigningKey, 24, "doc-auth", nil)
	other := auth.NewTokenService([]byte("a-different-signing-key"), 24, "doc-auth", nil)

	token, err := other.Generate(testIdentity{id: "x", email: "a@x.com", role: "doctor"})
	require.NoError(t, err)

	claims, err := ts.Validate(token)
	assert.Nil(t, claims)
	assert.True(t, auth.IsMalformedError(err))
}

func TestTokenServiceRejectsOtherHMACAlgs(t *testing.T) {
	ts := auth.NewTokenService(testSigningKey, 24, "doc-auth", nil)

	// same key, different HMAC variant: must be rejected
	token := jwt.NewWithClaims(jwt.SigningMethodHS384, &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "doc-auth",
			Subject:   "someone",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UID:      "someone",
		UserRole: "patient",
	})

	signed, err := token.SignedString(testSigningKey)
	require.NoError(t, err)

	claims, err := ts.Validate(signed)
	assert.Nil(t, claims)
	assert.True(t, auth.IsMalformedError(err))
}

func TestTokenServiceGarbageInput(t *testing.T) {
	ts := auth.NewTokenService(testSigningKey, 24, "doc-auth", nil)

	for _, raw := range []string{"", "garbage", "a.b.c"} {
		claims, err := ts.Validate(raw)
		assert.Nil(t, claims)
		assert.Error(t, err)
	}
}

package auth

import (
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-commerce/internal/application"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWT(t *testing.T) *JWT {
	t.Helper()
	j, err := NewJWT("test-secret", "minishop")
	require.NoError(t, err)
	return j
}

func TestIssueAndVerify(t *testing.T) {
	j := newTestJWT(t)
	raw, err := j.Issue(application.Caller{UserID: "u-1", Role: application.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	c, err := j.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, application.Caller{UserID: "u-1", Role: application.RoleAdmin}, c)
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return raw
}

func TestVerifyLegacyUserIDAndDefaultRole(t *testing.T) {
	j := newTestJWT(t)
	raw := sign(t, jwt.SigningMethodHS256, []byte("test-secret"), Claims{
		UserID: "legacy",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "minishop",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	c, err := j.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "legacy", c.UserID)
	assert.Equal(t, application.RoleCustomer, c.Role)
}

func TestVerifyRejects(t *testing.T) {
	j := newTestJWT(t)
	valid := jwt.RegisteredClaims{
		Subject:   "u-1",
		Issuer:    "minishop",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noExpiry := valid
	noExpiry.ExpiresAt = nil
	otherIssuer := valid
	otherIssuer.Issuer = "elsewhere"
	noSubject := valid
	noSubject.Subject = ""

	cases := map[string]string{
		"wrong secret": sign(t, jwt.SigningMethodHS256, []byte("other"), Claims{RegisteredClaims: valid}),
		"wrong alg":    sign(t, jwt.SigningMethodHS512, []byte("test-secret"), Claims{RegisteredClaims: valid}),
		"expired":      sign(t, jwt.SigningMethodHS256, []byte("test-secret"), Claims{RegisteredClaims: expired}),
		"no expiry":    sign(t, jwt.SigningMethodHS256, []byte("test-secret"), Claims{RegisteredClaims: noExpiry}),
		"issuer":       sign(t, jwt.SigningMethodHS256, []byte("test-secret"), Claims{RegisteredClaims: otherIssuer}),
		"no subject":   sign(t, jwt.SigningMethodHS256, []byte("test-secret"), Claims{RegisteredClaims: noSubject}),
		"unknown role": sign(t, jwt.SigningMethodHS256, []byte("test-secret"), Claims{Role: "root", RegisteredClaims: valid}),
		"garbage":      "not.a.token",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := j.Verify(raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err := j.Verify("  ")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestNewJWTRequiresSecret(t *testing.T) {
	_, err := NewJWT("", "")
	assert.Error(t, err)
}

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestIssueAndParse(t *testing.T) {
	raw, err := IssueAccessToken(secret, 42, "ADMIN", 3, time.Hour, time.Now())
	require.NoError(t, err)

	p, err := ParseAccessToken(secret, raw)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: 42, Role: "ADMIN", TokenVersion: 3}, p)
}

func TestParse_Rejects(t *testing.T) {
	valid, err := IssueAccessToken(secret, 1, "USER", 0, time.Hour, time.Now())
	require.NoError(t, err)
	expired, err := IssueAccessToken(secret, 1, "USER", 0, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "role": "USER", "tv": 0}).
		SignedString([]byte(secret))
	require.NoError(t, err)
	badSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "abc", "role": "USER", "tv": 0, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "1", "role": "USER", "tv": 0, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		raw    string
	}{
		{"wrong secret", "other", valid},
		{"expired", secret, expired},
		{"no exp", secret, noExp},
		{"non numeric sub", secret, badSub},
		{"other alg", secret, hs512},
		{"garbage", secret, "not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAccessToken(tt.secret, tt.raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestIssue_Validation(t *testing.T) {
	_, err := IssueAccessToken("", 1, "USER", 0, time.Hour, time.Now())
	assert.Error(t, err)
	_, err = IssueAccessToken(secret, 0, "USER", 0, time.Hour, time.Now())
	assert.Error(t, err)
}

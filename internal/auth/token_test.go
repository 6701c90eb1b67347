package auth

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func newTestVerifier(t *testing.T) *JWTVerifier {
	t.Helper()
	v, err := NewJWTVerifier(testSecret, "HS256")
	require.NoError(t, err)
	return v
}

func TestVerifyAccessToken(t *testing.T) {
	req := require.New(t)
	v := newTestVerifier(t)

	token, err := v.IssueToken(42, TokenTypeAccess, time.Minute)
	req.NoError(err)

	userID, err := v.VerifyAccessToken(token)
	req.NoError(err)
	req.Equal(int64(42), userID)
}

func TestVerifyAccessTokenRejects(t *testing.T) {
	v := newTestVerifier(t)
	other, err := NewJWTVerifier("another-secret", "HS256")
	require.NoError(t, err)

	refresh, err := v.IssueToken(42, TokenTypeRefresh, time.Minute)
	require.NoError(t, err)
	expired, err := v.IssueToken(42, TokenTypeAccess, -time.Minute)
	require.NoError(t, err)
	foreign, err := other.IssueToken(42, TokenTypeAccess, time.Minute)
	require.NoError(t, err)

	sign := func(claims *Claims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return s
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Minute))
	noSubject := sign(&Claims{Type: TokenTypeAccess, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}})
	textSubject := sign(&Claims{Type: TokenTypeAccess, RegisteredClaims: jwt.RegisteredClaims{Subject: "alice", ExpiresAt: exp}})
	noExpiry := sign(&Claims{Type: TokenTypeAccess, RegisteredClaims: jwt.RegisteredClaims{Subject: strconv.Itoa(42)}})

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-token", ErrInvalidToken},
		{"refresh token", refresh, ErrInvalidTokenType},
		{"expired", expired, ErrInvalidToken},
		{"wrong signature", foreign, ErrInvalidToken},
		{"missing subject", noSubject, ErrInvalidSubject},
		{"non numeric subject", textSubject, ErrInvalidSubject},
		{"missing expiry", noExpiry, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.VerifyAccessToken(tt.token)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewJWTVerifierValidation(t *testing.T) {
	_, err := NewJWTVerifier("", "HS256")
	require.Error(t, err)

	_, err = NewJWTVerifier("secret", "RS256")
	require.Error(t, err)

	_, err = NewJWTVerifier("secret", "nope")
	require.Error(t, err)
}

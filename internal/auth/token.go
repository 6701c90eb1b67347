package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken     = errors.New("invalid authentication credentials")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrInvalidSubject   = errors.New("invalid token payload")
)

// Claims is the payload issued by the platform's auth service.
type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// TokenVerifier turns a bearer token into a verified user id.
type TokenVerifier interface {
	VerifyAccessToken(token string) (int64, error)
}

// JWTVerifier verifies HMAC-signed tokens.
type JWTVerifier struct {
	secret []byte
	method jwt.SigningMethod
	nowFn  func() time.Time
}

func NewJWTVerifier(secret string, algorithm string) (*JWTVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: secret must not be empty")
	}
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("auth: unsupported algorithm %q", algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("auth: algorithm %q is not an HMAC method", algorithm)
	}
	return &JWTVerifier{secret: []byte(secret), method: method, nowFn: time.Now}, nil
}

// VerifyAccessToken checks signature and expiry, requires type "access" and a
// numeric subject.
func (v *JWTVerifier) VerifyAccessToken(tokenString string) (int64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{v.method.Alg()}),
		jwt.WithTimeFunc(v.nowFn),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Type != TokenTypeAccess {
		return 0, ErrInvalidTokenType
	}

	if claims.Subject == "" {
		return 0, ErrInvalidSubject
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrInvalidSubject
	}
	return userID, nil
}

// IssueToken signs a token for userID. The chat service only verifies tokens;
// this is used by tooling and tests.
func (v *JWTVerifier) IssueToken(userID int64, tokenType string, ttl time.Duration) (string, error) {
	now := v.nowFn()
	claims := &Claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(v.method, claims).SignedString(v.secret)
}

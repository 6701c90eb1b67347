package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"photochat/internal/apperror"
	"photochat/internal/model"
)

const userIDKey = "auth.user_id"

// UserLookup resolves the account behind a verified token.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
}

// RequireUser authenticates the Authorization bearer token and requires an
// active, verified account.
func RequireUser(verifier TokenVerifier, users UserLookup, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abort(c, apperror.Unauthenticated("Not authenticated"))
			return
		}

		userID, err := verifier.VerifyAccessToken(strings.TrimSpace(token))
		if err != nil {
			abort(c, apperror.Unauthenticated(publicReason(err)))
			return
		}

		user, err := users.GetUser(c.Request.Context(), userID)
		if err != nil {
			logger.Error("user lookup failed", zap.Int64("user_id", userID), zap.Error(err))
			abort(c, err)
			return
		}
		if user == nil {
			abort(c, apperror.Unauthenticated("User not found"))
			return
		}
		if !user.IsActive {
			abort(c, apperror.Forbidden("User account is inactive"))
			return
		}
		if !user.IsVerified {
			abort(c, apperror.Forbidden("Email not verified. Please verify your email first."))
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user id stored by RequireUser.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

func publicReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidTokenType):
		return "Invalid token type"
	case errors.Is(err, ErrInvalidSubject):
		return "Invalid token payload"
	default:
		return "Invalid authentication credentials"
	}
}

func abort(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperror.PublicMessage(err)})
}

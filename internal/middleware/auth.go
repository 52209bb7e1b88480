package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/workspace/internal/auth"
	"github.com/monocle-dev/workspace/internal/models"
	"github.com/monocle-dev/workspace/internal/types"
	"go.uber.org/zap"
)

type AuthenticatedUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SessionResolver is the part of auth.Sessions the middleware needs.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (auth.Session, error)
}

// UserLookup loads the user a session belongs to.
type UserLookup interface {
	UserByID(ctx context.Context, id string) (models.User, error)
}

// TokenFromRequest reads the session token from the auth cookie or a Bearer header.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(types.AuthCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func AuthMiddleware(sessions SessionResolver, users UserLookup, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := TokenFromRequest(ctx.Request)
		if token == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is required"})
			return
		}

		sess, err := sessions.Resolve(ctx.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, types.ErrUnauthorized) {
				log.Errorw("failed to resolve session", "error", err, "request_id", ctx.GetString(types.ContextRequestID))
				ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		user, err := users.UserByID(ctx.Request.Context(), sess.UserID)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
				return
			}
			log.Errorw("failed to load session user", "error", err, "user_id", sess.UserID)
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		ctx.Set(types.ContextSessionKey, sess)
		ctx.Set(types.ContextUserKey, AuthenticatedUser{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
		})
		ctx.Next()
	}
}

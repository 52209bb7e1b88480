package utils

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/workspace/internal/auth"
	"github.com/monocle-dev/workspace/internal/middleware"
	"github.com/monocle-dev/workspace/internal/types"
)

func GetCurrentUser(ctx *gin.Context) (middleware.AuthenticatedUser, error) {
	user, exists := ctx.Get(types.ContextUserKey)

	if !exists {
		return middleware.AuthenticatedUser{}, fmt.Errorf("User not authenticated")
	}

	authenticatedUser, ok := user.(middleware.AuthenticatedUser)

	if !ok {
		return middleware.AuthenticatedUser{}, fmt.Errorf("Invalid user type in context")
	}

	return authenticatedUser, nil
}

func GetCurrentUserID(ctx *gin.Context) (string, error) {
	user, err := GetCurrentUser(ctx)

	if err != nil {
		return "", err
	}

	return user.ID, nil
}

func GetCurrentSession(ctx *gin.Context) (auth.Session, error) {
	value, exists := ctx.Get(types.ContextSessionKey)

	if !exists {
		return auth.Session{}, fmt.Errorf("Session not found")
	}

	sess, ok := value.(auth.Session)

	if !ok {
		return auth.Session{}, fmt.Errorf("Invalid session type in context")
	}

	return sess, nil
}

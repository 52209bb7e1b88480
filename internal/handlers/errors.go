package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/workspace/internal/types"
)

// writeError maps sentinel errors to status codes. Anything unrecognised is logged and
// answered with fallback so internals never leak to the caller.
func (h *Handler) writeError(ctx *gin.Context, err error, notFound, fallback string) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, types.ErrInvalidArgument):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
	case errors.Is(err, types.ErrConflict):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
	case errors.Is(err, types.ErrUnauthorized):
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	default:
		h.log.Errorw("request failed",
			"error", err,
			"path", ctx.Request.URL.Path,
			"request_id", ctx.GetString(types.ContextRequestID),
		)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

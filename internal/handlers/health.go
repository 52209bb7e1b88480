package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/workspace/internal/types"
)

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{
		Status:    "ok",
		Message:   "Workspace is running",
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

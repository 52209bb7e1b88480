package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/workspace/internal/handlers"
	"github.com/monocle-dev/workspace/internal/middleware"
	"github.com/monocle-dev/workspace/internal/types"
	"go.uber.org/zap"
)

type Deps struct {
	Handler        *handlers.Handler
	Sessions       middleware.SessionResolver
	Users          middleware.UserLookup
	LoginLimiter   *middleware.IPRateLimiter
	AllowedOrigins []string
	Log            *zap.SugaredLogger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID(d.Log))

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = types.DefaultAllowedOrigins
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	h := d.Handler
	requireAuth := middleware.AuthMiddleware(d.Sessions, d.Users, d.Log)

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/ws/projects/:id", requireAuth, h.ProjectSocket)

		auth := api.Group("/auth")
		{
			auth.POST("/register", h.CreateUser)
			auth.POST("/login", middleware.RateLimit(d.LoginLimiter, "Too many login attempts"), h.LoginUser)
			auth.POST("/logout", h.LogoutUser)
			auth.GET("/me", requireAuth, h.Me)
			auth.PUT("/me", requireAuth, h.UpdateUser)
			auth.DELETE("/me", requireAuth, h.DeleteUser)
		}

		projects := api.Group("/projects", requireAuth)
		{
			projects.GET("", h.ListProjects)
			projects.GET("/:id", h.GetProject)
			projects.PATCH("/:id", h.UpdateProject)
		}

		billing := api.Group("/billing", requireAuth)
		{
			billing.GET("", h.GetBilling)
			billing.POST("", h.SaveBilling)
			billing.DELETE("", h.RemovePaymentMethod)
		}
	}

	return r
}

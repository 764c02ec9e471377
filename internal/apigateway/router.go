// Package apigateway assembles the HTTP routes of the service.
package apigateway

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/auth"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/sessionmanagement"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/telemetry"
)

// Dependencies are the components the router exposes.
type Dependencies struct {
	Sessions         *sessionmanagement.Handlers
	Records          sessionmanagement.RecordReader
	Auth             *auth.Authenticator
	Telemetry        *telemetry.Recorder
	ArchitecturePath string
}

// SetupRouter initializes the main Gin router for the API gateway.
// It includes public routes and authenticated routes.
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.Default()

	router.GET("/healthz", healthHandler(deps))
	router.GET("/arch", architectureHandler(deps.ArchitecturePath))

	sessionRoutes := router.Group("/sessions")
	{
		sessionRoutes.POST("", deps.Sessions.CreateSessionHandler)
		sessionRoutes.GET("/:id", deps.Sessions.GetSessionHandler)
		sessionRoutes.DELETE("/:id", deps.Sessions.DeleteSessionHandler)
		sessionRoutes.POST("/:id/audio", deps.Sessions.AudioHandler)
		sessionRoutes.POST("/:id/image", deps.Sessions.ImageHandler)
		sessionRoutes.POST("/:id/caption", deps.Sessions.CaptionHandler)
		sessionRoutes.POST("/:id/save", deps.Sessions.SaveHandler)
	}

	if deps.Auth == nil {
		return router
	}

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/login", deps.Auth.LoginHandler)
		authRoutes.POST("/logout", deps.Auth.LogoutHandler)
	}

	// All routes in this group require an admin session.
	adminRoutes := router.Group("/admin")
	adminRoutes.Use(deps.Auth.Middleware())
	{
		if deps.Records != nil {
			adminRoutes.GET("/artifacts", sessionmanagement.ListArtifactsHandler(deps.Records))
			adminRoutes.GET("/artifacts/:id", sessionmanagement.GetArtifactHandler(deps.Records))
		}
	}

	return router
}

func healthHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"sessions":  deps.Sessions.Manager.Len(),
			"telemetry": deps.Telemetry.Snapshot(),
		})
	}
}

func architectureHandler(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := os.Stat(path)
		if path == "" || err != nil || info.IsDir() {
			c.JSON(http.StatusNotFound, gin.H{"error": "Architecture diagram not found"})
			return
		}
		c.File(path)
	}
}

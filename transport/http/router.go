package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cleardesk/walletauth/service"
)

// SetupRouter sets up the Gin router.
func SetupRouter(authService *service.AuthService, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	handlers := NewAuthHandlers(authService, logger)

	router.GET("/healthz", handlers.Healthz)

	auth := router.Group("/auth")
	{
		auth.POST("/challenge", handlers.Challenge)
		auth.POST("/login", handlers.Login)
	}

	api := router.Group("/api")
	api.Use(AuthMiddleware(authService))
	{
		api.GET("/me", handlers.Me)
		api.GET("/authorize", handlers.Authorize)
	}

	// Sign-out needs a valid session to know which address to clear.
	authenticated := router.Group("/auth")
	authenticated.Use(AuthMiddleware(authService))
	{
		authenticated.POST("/logout", handlers.Logout)
	}

	return router
}

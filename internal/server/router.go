package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/confabhq/confab-backend/internal/handlers"
	"github.com/confabhq/confab-backend/internal/platform/envutil"
)

type RouterConfig struct {
	UserHandler           *handlers.UserHandler
	RecommendationHandler *handlers.RecommendationHandler
	AdminHandler          *handlers.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := strings.Split(envutil.String("CORS_ALLOW_ORIGINS", "http://localhost:3000"), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api/v1")
	{
		// Users
		api.POST("/users", cfg.UserHandler.Register)
		api.GET("/users/:user_id", cfg.UserHandler.Get)
		api.PUT("/users/:user_id", cfg.UserHandler.UpdateProfile)
		api.DELETE("/users/:user_id", cfg.UserHandler.Delete)

		// Recommendations
		api.GET("/recommendations/:user_id", cfg.RecommendationHandler.Get)

		// Admin
		api.POST("/admin/similarity/refresh", cfg.AdminHandler.RefreshSimilarity)
	}

	return router
}

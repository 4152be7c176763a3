package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketplace/pkg/logger"
	"marketplace/pkg/metrics"
	"marketplace/reviews-service/internal/app/reviews/entity"
)

// SetupRoutes настраивает все маршруты приложения с использованием Gin
func SetupRoutes(reviewHandler *ReviewHandler, authMiddleware *AuthMiddleware) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())

	// JSON logging middleware для HTTP-запросов (ELK Stack)
	router.Use(logger.GinLoggerMiddleware())

	router.Use(metrics.GinPrometheusMiddleware("reviews-service"))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowWildcard:    true,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", logger.RequestIDHeader},
		ExposeHeaders:    []string{logger.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "reviews-service",
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	reviews := router.Group("/reviews")
	{
		// Публичные эндпоинты (без аутентификации)
		reviews.GET("", reviewHandler.ListActive)
		reviews.GET("/products/:product_id/reviews", reviewHandler.ListActiveForProduct)

		protected := reviews.Group("")
		protected.Use(authMiddleware.Authenticate())
		{
			protected.POST("", authMiddleware.RequireRole(entity.RoleBuyer), reviewHandler.CreateReview)
			protected.DELETE("/:review_id", reviewHandler.DeleteReview)
			protected.GET("/:review_id", authMiddleware.RequireRole(entity.RoleAdmin), reviewHandler.GetReview)
		}
	}

	return router
}

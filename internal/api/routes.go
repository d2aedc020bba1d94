// Package api wires the admin HTTP surface: route registration and the
// middleware chain sit here; the handlers and middleware themselves live
// in their own subpackages.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rankingsengine/internal/api/handlers"
	"rankingsengine/internal/api/middleware"
	"rankingsengine/internal/config"
	"rankingsengine/internal/services"

	docs "rankingsengine/docs/generated"
)

// SetupRoutes builds the gin engine for the rankings admin API: health
// check unauthenticated, everything else behind bearer auth.
func SetupRoutes(cfg *config.Config, logger *logrus.Logger, admin *services.RankingsAdminService) *gin.Engine {
	// Ensure swagger docs are registered.
	_ = docs.SwaggerInfo

	router := gin.New()

	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.ErrorHandlingMiddleware(logger))

	router.GET("/healthz", handlers.HealthCheck)

	// Swagger documentation - manual implementation since gin-swagger has
	// issues.
	router.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Header("Content-Type", "application/json")
		c.String(200, docs.SwaggerInfo.ReadDoc())
	})
	router.GET("/swagger/", func(c *gin.Context) {
		html := `<!DOCTYPE html>
<html>
<head>
    <title>Player Rankings Engine API</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui.css" />
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: '/swagger/doc.json',
            dom_id: '#swagger-ui',
            presets: [
                SwaggerUIBundle.presets.apis,
                SwaggerUIBundle.presets.standalone
            ]
        });
    </script>
</body>
</html>`
		c.Header("Content-Type", "text/html")
		c.String(200, html)
	})

	adminHandler := handlers.NewAdminHandler(admin)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))
	{
		rankings := v1.Group("/rankings")
		rankings.POST("/rebuild", adminHandler.RebuildPlayerRankings)
		rankings.GET("/calculations/:calculationId", adminHandler.GetCalculationStatus)
	}

	return router
}

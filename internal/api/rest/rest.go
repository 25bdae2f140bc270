package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/biorbit/biorbit/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Area registration and monitoring (caller identity from JWT)
		v1.POST("/areas", middleware.Auth(authCfg), handler.RegisterArea)
		v1.POST("/areas/:area_id/monitoring", middleware.Auth(authCfg), handler.RecordMonitoring)

		// Area queries (public read access)
		v1.GET("/areas", handler.ListAreas)
		v1.GET("/areas/:area_id", handler.GetArea)

		// Image mint/sell/buy
		v1.POST("/images", middleware.Auth(authCfg), handler.MintImage)
		v1.POST("/images/:image_id/sell", middleware.Auth(authCfg), handler.SellImage)
		v1.POST("/images/:image_id/buy", middleware.Auth(authCfg), handler.BuyImage)

		// Image queries (public read access)
		v1.GET("/images", handler.ListImages)
		v1.GET("/images/:image_id", handler.GetImage)

		// Token ownership
		v1.GET("/tokens/:token_id", handler.GetToken)
		v1.POST("/tokens/:token_id/approve", middleware.Auth(authCfg), handler.ApproveToken)
		v1.POST("/tokens/operators", middleware.Auth(authCfg), handler.SetOperatorApproval)

		// Global parameters
		v1.GET("/params/:key", handler.GetParameter)
		v1.PUT("/params/:key", middleware.Auth(authCfg), handler.SetParameter)

		// Treasury
		v1.POST("/withdrawals", middleware.Auth(authCfg), handler.Withdraw)
		v1.GET("/balances/:address", handler.GetBalance)

		// Role administration
		v1.POST("/roles", middleware.Auth(authCfg), handler.GrantRole)
		v1.DELETE("/roles", middleware.Auth(authCfg), handler.RevokeRole)
		v1.GET("/roles/:role/:address", handler.GetRole)

		// Event journal (public read access)
		v1.GET("/events", handler.ListEvents)

		// Webhook endpoints (requires API key authentication only)
		v1.POST("/webhooks/clients", middleware.APIKeyAuth(authCfg), handler.CreateWebhookClient)
	}
}

package server

import (
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, h *handlers) {
	api := router.Group("/api")

	api.GET("/health", h.handleHealth)

	// Object content in and out of the engine.
	api.POST("/objects/ingest", h.handleIngest)
	api.POST("/objects/compose", h.handleCompose)
	api.POST("/objects/prevent", h.handlePrevent)
	api.POST("/objects/delete", h.handleObjectDeleted)

	// Runs and the polling contract.
	api.POST("/runs", h.handleStartRun)
	api.POST("/runs/:id/tick", h.handleTick)
	api.GET("/runs/:id/progress", h.handleRunProgress)
	api.POST("/runs/reset", h.handleReset)
	api.POST("/progress", h.handlePoll)

	// Fragment management.
	api.GET("/fragments", h.handleListFragments)
	api.DELETE("/fragments/:id", h.handleDeleteFragment)
	api.POST("/fragments/:id/ignore", h.handleIgnoreFragment)
	api.DELETE("/fragments/:id/simplifications/:lang", h.handleDeleteSimplification)

	// Quota and audit.
	api.GET("/quota/:api", h.handleQuota)
	api.POST("/quota/:api/reset", h.handleQuotaReset)
	api.GET("/logs", h.handleLogs)
}

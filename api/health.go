package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-hand/services"
)

func setupHealthRoutes(router *gin.Engine, probe services.Probe, log *zap.Logger) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ready", func(c *gin.Context) {
		if probe == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := probe.Check(ctx); err != nil {
			class := services.Classify(err)
			log.Warn("Readiness check failed", zap.Stringer("failure", class), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failure": class.String()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}

package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/jobharvest/models"
)

// ProxyCounter reports how many proxies are configured. *crawler.Factory
// satisfies it.
type ProxyCounter interface {
	ProxyCount() int
}

// Health returns a handler for GET /api/v1/health.
func Health(pc ProxyCounter, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  "healthy",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Proxies: pc.ProxyCount(),
			Version: "0.1.0",
		})
	}
}

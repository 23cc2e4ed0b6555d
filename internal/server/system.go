package server

import (
	"net/http"

	"github.com/ZanzyTHEbar/campus-mcp/internal/classifier"
	"github.com/ZanzyTHEbar/campus-mcp/internal/resilience"
	"github.com/gin-gonic/gin"
)

// RootResponse describes the service
type RootResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// HealthResponse is the liveness report
type HealthResponse struct {
	Status    string                   `json:"status"`
	Version   string                   `json:"version"`
	Timestamp string                   `json:"timestamp"`
	Tools     int                      `json:"tools"`
	Documents int                      `json:"documents"`
	Models    []classifier.ModelStatus `json:"models"`
}

var endpoints = map[string]string{
	"health":          "GET /health",
	"tools":           "GET /mcp/tools/list",
	"execute_tool":    "POST /mcp/tools",
	"rag_search":      "POST /mcp/rag",
	"predict":         "POST /predict",
	"predict_batch":   "POST /predict/batch",
	"fruits_predict":  "POST /fruits/predict",
	"fruits_status":   "GET /fruits/status",
	"dl_predict":      "POST /dl/predict?model_type=pneumonia|fruits",
	"metrics":         "GET /metrics",
	"documentation":   "GET /swagger/index.html",
	"ratelimit_state": "GET /ratelimit/status",
}

// handleRoot godoc
// @Summary      Service description
// @Tags         system
// @Produce      json
// @Success      200  {object}  RootResponse
// @Router       / [get]
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, RootResponse{
		Status:    "online",
		Service:   "Campus MCP Server",
		Version:   Version,
		Endpoints: endpoints,
	})
}

// handleHealth godoc
// @Summary      Liveness and model state
// @Tags         system
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /health [get]
func (s *Server) handleHealth(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: s.timestamp(),
		Models:    []classifier.ModelStatus{},
	}
	if s.dispatcher != nil {
		resp.Tools = len(s.dispatcher.Names())
	}
	if s.knowledge != nil {
		resp.Documents = s.knowledge.Len()
	}
	if s.classifiers != nil {
		resp.Models = s.classifiers.Statuses()
	}
	c.JSON(http.StatusOK, resp)
}

// Backend and breaker state. Degraded when any breaker is open.
func (s *Server) handleServices(c *gin.Context) {
	breakers := map[string]resilience.BreakerStats{}
	if s.breakers != nil {
		breakers = s.breakers.GetStats()
	}

	status := "ok"
	for _, b := range breakers {
		if b.State == resilience.StateOpen.String() {
			status = "degraded"
		}
	}

	redisStatus := "disabled"
	if s.redis.IsEnabled() {
		redisStatus = "ok"
		if err := s.redis.HealthCheck(c.Request.Context()); err != nil {
			redisStatus = "unreachable"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           status,
		"circuit_breakers": breakers,
		"redis":            redisStatus,
		"timestamp":        s.timestamp(),
	})
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.GetStats())
}

func (s *Server) handleCacheStats(c *gin.Context) {
	if s.predictions == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, s.predictions.Stats())
}

func (s *Server) handleRedisPool(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"pool":  "redis",
		"stats": s.redis.PoolStats(),
	})
}

func (s *Server) handleCompressionPool(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"pool":  "compression",
		"stats": s.compression.GetStats(),
	})
}

// Package server exposes the scoring tools, knowledge search and image
// classifiers over HTTP.
package server

import (
	"log/slog"
	"net/http"
	"time"

	_ "github.com/ZanzyTHEbar/campus-mcp/docs"
	"github.com/ZanzyTHEbar/campus-mcp/internal/cache"
	"github.com/ZanzyTHEbar/campus-mcp/internal/classifier"
	"github.com/ZanzyTHEbar/campus-mcp/internal/config"
	apperrors "github.com/ZanzyTHEbar/campus-mcp/internal/errors"
	"github.com/ZanzyTHEbar/campus-mcp/internal/knowledge"
	"github.com/ZanzyTHEbar/campus-mcp/internal/middleware"
	"github.com/ZanzyTHEbar/campus-mcp/internal/monitoring"
	"github.com/ZanzyTHEbar/campus-mcp/internal/ratelimit"
	"github.com/ZanzyTHEbar/campus-mcp/internal/resilience"
	"github.com/ZanzyTHEbar/campus-mcp/internal/security"
	"github.com/ZanzyTHEbar/campus-mcp/internal/tools"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Version is reported by / and /health
const Version = "1.0.0"

const (
	pneumoniaModel = "pneumonia"
	fruitsModel    = "fruits"
)

// Deps are the collaborators the HTTP layer needs. Limiter, Redis,
// Breakers and Predictions may be nil.
type Deps struct {
	Config      *config.Config
	Dispatcher  *tools.Dispatcher
	Knowledge   *knowledge.Base
	Classifiers *classifier.Registry
	Predictions *cache.Cache[classifier.Prediction]
	Limiter     *ratelimit.RateLimiter
	Redis       *ratelimit.RedisClient
	Breakers    *resilience.CircuitBreakerRegistry
	Metrics     *monitoring.Metrics
	Logger      *monitoring.Logger
	Now         func() time.Time
}

// Server owns the gin engine and its handlers
type Server struct {
	cfg         *config.Config
	dispatcher  *tools.Dispatcher
	knowledge   *knowledge.Base
	classifiers *classifier.Registry
	predictions *cache.Cache[classifier.Prediction]
	limiter     *ratelimit.RateLimiter
	redis       *ratelimit.RedisClient
	breakers    *resilience.CircuitBreakerRegistry
	metrics     *monitoring.Metrics
	logger      *monitoring.Logger
	security    *security.SecurityMiddleware
	compression *middleware.CompressionMiddleware
	now         func() time.Time

	engine *gin.Engine
}

// New builds the router
func New(d Deps) *Server {
	s := &Server{
		cfg:         d.Config,
		dispatcher:  d.Dispatcher,
		knowledge:   d.Knowledge,
		classifiers: d.Classifiers,
		predictions: d.Predictions,
		limiter:     d.Limiter,
		redis:       d.Redis,
		breakers:    d.Breakers,
		metrics:     d.Metrics,
		logger:      d.Logger,
		now:         d.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.metrics == nil {
		s.metrics = monitoring.NewMetrics()
	}
	if s.logger == nil {
		s.logger = monitoring.NewLogger(s.cfg.LogLevel)
	}

	secConfig := security.DefaultSecurityConfig()
	secConfig.AllowedOrigins = s.cfg.AllowedOrigins
	secConfig.TrustedProxies = s.cfg.TrustedProxies
	secConfig.RequestTimeout = s.cfg.RequestTimeout
	secConfig.MaxBodyBytes = s.cfg.MaxUploadBytes
	secConfig.EnableHSTS = s.cfg.EnableHSTS
	s.security = security.NewSecurityMiddleware(secConfig)
	s.compression = middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig())

	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(s.security.Config().TrustedProxies); err != nil {
		slog.Warn("Invalid trusted proxies, trusting none", "error", err)
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(monitoring.RequestIDMiddleware())
	r.Use(s.compression.Handler())
	r.Use(apperrors.RecoveryHandler())
	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger))
	r.Use(monitoring.SecurityMonitoringMiddleware(s.logger))
	r.Use(apperrors.ErrorHandler())
	r.Use(security.SecurityHeadersMiddleware(s.security.Config().EnableHSTS, "/swagger/"))
	r.Use(s.security.CORSConfig())
	r.Use(s.security.RequestTimeout)
	r.Use(s.security.ValidateContentType)
	r.Use(s.security.BodyLimit)
	if s.limiter != nil {
		r.Use(s.limiter.IPRateLimitMiddleware())
	}

	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", s.handleMetrics)
	r.GET("/health/services", s.handleServices)
	r.GET("/cache/stats", s.handleCacheStats)
	r.GET("/pools/redis", s.handleRedisPool)
	r.GET("/pools/compression", s.handleCompressionPool)
	if s.limiter != nil {
		r.GET("/ratelimit/status", s.limiter.HandleRateLimitStatus())
	}

	mcp := r.Group("/mcp")
	mcp.GET("/tools/list", s.handleListTools)
	mcp.POST("/tools", s.handleExecuteTool)
	mcp.POST("/rag", s.handleRAGSearch)

	classify := r.Group("/")
	if s.limiter != nil {
		classify.Use(s.limiter.EndpointRateLimitMiddleware("classify", s.cfg.ClassifyRateLimitPerMin))
	}
	classify.POST("/predict", s.handlePredict(pneumoniaModel))
	classify.POST("/predict/batch", s.handlePredictBatch(pneumoniaModel))
	classify.POST("/fruits/predict", s.handlePredict(fruitsModel))
	classify.POST("/dl/predict", s.handleDLPredict)
	r.GET("/fruits/status", s.handleModelStatus(fruitsModel))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "NOT_FOUND",
			"message": "route " + c.Request.Method + " " + c.Request.URL.Path + " does not exist",
		})
	})

	return r
}

func (s *Server) timestamp() string {
	return s.now().Format(time.RFC3339)
}

// Package router 提供 HTTP 路由配置
package router

import (
	"ptt-copy-ai/internal/config"
	"ptt-copy-ai/internal/interfaces/http/handler"
	"ptt-copy-ai/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由所需的处理器
type Handlers struct {
	Health    *handler.HealthHandler
	Session   *handler.SessionHandler
	Reference *handler.ReferenceHandler
	Model     *handler.ModelHandler
	Opinion   *handler.OpinionHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers *Handlers
	limiter  middleware.RateLimiter
}

// New 创建新的路由器；limiter 为 nil 时生成类接口不限流
func New(cfg *config.Config, handlers *Handlers, limiter middleware.RateLimiter) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		handlers: handlers,
		limiter:  limiter,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// quietPaths 不计指标、不产生 span 的系统端点
func (r *Router) quietPaths() []string {
	return []string{"/health", "/live", "/ready", r.cfg.Observability.Metrics.Path}
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name, r.quietPaths()...))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics(r.quietPaths()...))
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	h := r.handlers

	// 系统端点
	r.engine.GET("/health", h.Health.Health)
	r.engine.GET("/ready", h.Health.Ready)
	r.engine.GET("/live", h.Health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// 调用模型的接口共用入站限流
	limited := middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           r.cfg.Security.RateLimit.Enabled,
		RequestsPerMinute: r.cfg.Security.RateLimit.RequestsPerMinute,
		KeyPrefix:         r.cfg.Security.RateLimit.KeyPrefix,
	}, r.limiter)

	v1 := r.engine.Group("/v1")
	{
		v1.GET("/catalog", h.Session.GetCatalog)

		models := v1.Group("/models")
		{
			models.GET("", h.Model.GetResolution)
			models.POST("/resolve", limited, h.Model.Refresh)
		}

		session := v1.Group("/session")
		{
			session.GET("", h.Session.GetSession)
			session.POST("/reset", h.Session.ResetSession)
			session.POST("/select", h.Session.SelectTitle)
			session.POST("/titles", limited, h.Session.GenerateTitles)
			session.POST("/post", limited, h.Session.GeneratePost)
			session.POST("/references", h.Reference.Upload)
			session.DELETE("/references", h.Reference.Clear)
		}

		opinions := v1.Group("/opinions")
		{
			opinions.POST("/analyze", limited, h.Opinion.Analyze)
		}
	}
}

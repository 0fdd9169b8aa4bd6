package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ptt-copy-ai/internal/infrastructure/persistence/redis"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	redis    *redis.Client
	models   ModelResolver
	provider string
	version  string
}

// NewHealthHandler 创建健康检查处理器；redisClient 为 nil 表示未启用
func NewHealthHandler(redisClient *redis.Client, models ModelResolver, provider, version string) *HealthHandler {
	return &HealthHandler{
		redis:    redisClient,
		models:   models,
		provider: provider,
		version:  version,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Detail    string `json:"detail,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Ready 就绪检查接口
//
// Redis 启用时为必需项；模型解析状态只做展示，未解析不影响就绪。
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	cache := h.checkRedis(ctx)
	resp := readinessResponse{
		Status: "ok",
		Checks: map[string]*readinessCheck{
			"redis":      cache,
			"resolution": h.checkResolution(ctx),
		},
	}

	code := http.StatusOK
	if cache.Status == "error" {
		resp.Status = "not_ready"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

func (h *HealthHandler) checkRedis(ctx context.Context) *readinessCheck {
	if h.redis == nil {
		return &readinessCheck{Status: "disabled"}
	}
	began := time.Now()
	err := h.redis.HealthCheck(ctx)
	check := &readinessCheck{Status: "ok", LatencyMs: time.Since(began).Milliseconds()}
	if err != nil {
		check.Status = "error"
		check.Error = err.Error()
	}
	return check
}

// checkResolution 只读缓存，不会触发探测
func (h *HealthHandler) checkResolution(ctx context.Context) *readinessCheck {
	if h.models == nil {
		return &readinessCheck{Status: "unknown"}
	}
	res, ok, err := h.models.Current(ctx, h.provider)
	switch {
	case err != nil:
		return &readinessCheck{Status: "error", Error: err.Error()}
	case !ok:
		return &readinessCheck{Status: "unresolved"}
	default:
		return &readinessCheck{Status: "ok", Detail: res.Model}
	}
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

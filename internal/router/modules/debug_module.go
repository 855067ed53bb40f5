package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/waveai-auth/internal/interface/middleware"
)

type DebugModule struct {
	Redis redis.UniversalClient
}

func NewDebugModule(rdb redis.UniversalClient) *DebugModule { return &DebugModule{Redis: rdb} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// Prometheus exposition, rate-limited per IP
	rl := middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByIPAndPath(), middleware.AllowPrivateIP())
	rg.GET("/debug/metrics", rl, gin.WrapH(promhttp.Handler()))
}

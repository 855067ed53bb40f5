package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/waveai-auth/internal/interface/http"
	"github.com/oksasatya/waveai-auth/internal/interface/middleware"
)

type SystemModule struct {
	Handler *handlers.SystemHandler
	Redis   redis.UniversalClient
}

func NewSystemModule(h *handlers.SystemHandler, rdb redis.UniversalClient) *SystemModule {
	return &SystemModule{Handler: h, Redis: rdb}
}

func (m *SystemModule) Register(rg *gin.RouterGroup) {
	rg.GET("/auth/health", m.Handler.Health)

	// internal dashboards poll stats; private addresses skip the limit
	rl := middleware.RateLimit(m.Redis, 60, time.Minute, middleware.KeyByIPAndPath(), middleware.AllowPrivateIP())
	rg.GET("/stats", rl, m.Handler.Stats)
}

package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/waveai-auth/internal/interface/http"
	"github.com/oksasatya/waveai-auth/internal/interface/middleware"
)

// UserModule serves the authenticated user directory.
type UserModule struct {
	Handler  *handlers.UserHandler
	Resolver middleware.CredentialResolver
	Redis    redis.UniversalClient
}

func NewUserModule(h *handlers.UserHandler, resolver middleware.CredentialResolver, rdb redis.UniversalClient) *UserModule {
	return &UserModule{Handler: h, Resolver: resolver, Redis: rdb}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(
		middleware.Auth(m.Resolver),
		middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByIPAndPath(), nil),
	)
	{
		users.GET("/search", m.Handler.Search)
	}
}

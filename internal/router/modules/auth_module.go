package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/waveai-auth/internal/interface/http"
	"github.com/oksasatya/waveai-auth/internal/interface/middleware"
)

// Limits caps anonymous auth attempts per client IP and path.
type Limits struct {
	Max    int
	Window time.Duration
}

type AuthModule struct {
	Handler  *handlers.AuthHandler
	Users    *handlers.UserHandler
	Resolver middleware.CredentialResolver
	Redis    redis.UniversalClient
	Limits   Limits
}

func NewAuthModule(h *handlers.AuthHandler, u *handlers.UserHandler, resolver middleware.CredentialResolver, rdb redis.UniversalClient, limits Limits) *AuthModule {
	return &AuthModule{Handler: h, Users: u, Resolver: resolver, Redis: rdb, Limits: limits}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Public endpoints with IP-based rate limits
	limiter := middleware.RateLimit(m.Redis, m.Limits.Max, m.Limits.Window, middleware.KeyByIPAndPath(), nil)

	rg.POST("/auth/signup", limiter, m.Handler.Signup)
	rg.POST("/auth/login", limiter, m.Handler.Login)
	rg.GET("/auth/google", m.Handler.GoogleLogin)
	rg.GET("/auth/google/callback", limiter, m.Handler.GoogleCallback)
	rg.POST("/auth/logout", m.Handler.Logout)

	auth := rg.Group("/auth")
	auth.Use(middleware.Auth(m.Resolver))
	{
		auth.GET("/me", m.Handler.Me)
		auth.POST("/me/avatar", m.Users.UploadAvatar)
		auth.POST("/logout/all", m.Handler.LogoutAll)
		auth.GET("/sessions", m.Handler.Sessions)
	}
}

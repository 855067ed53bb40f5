package router

import (
	"github.com/oksasatya/waveai-auth/internal/container"
	handlers "github.com/oksasatya/waveai-auth/internal/interface/http"
	"github.com/oksasatya/waveai-auth/internal/router/modules"
	"github.com/oksasatya/waveai-auth/pkg/validation"
)

// InitModules builds handlers from c and registers every module.
func InitModules(r *Registry, c *container.Container) {
	validation.Init()

	cfg := c.Config
	authH := handlers.NewAuthHandler(c.Auth, c.Cookies, cfg.FrontendURL, c.Logger)
	userH := handlers.NewUserHandler(c.UserSvc, c.Logger)
	sysH := handlers.NewSystemHandler(c.UserSvc, c.Logger)

	limits := modules.Limits{Max: cfg.AuthRateLimit, Window: cfg.AuthRateWindow}
	r.Add(
		modules.NewAuthModule(authH, userH, c.Auth.Resolver, c.Redis, limits),
		modules.NewUserModule(userH, c.Auth.Resolver, c.Redis),
		modules.NewSystemModule(sysH, c.Redis),
		modules.NewDebugModule(c.Redis),
	)
}

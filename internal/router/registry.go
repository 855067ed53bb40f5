package router

import "github.com/gin-gonic/gin"

// Module is a feature area that mounts its routes on the /api group.
type Module interface {
	Register(rg *gin.RouterGroup)
}

// Registry collects modules and group-wide middleware before anything is
// mounted, so middleware order does not depend on module order.
type Registry struct {
	Engine *gin.Engine
	API    *gin.RouterGroup

	middlewares []gin.HandlerFunc
	modules     []Module
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{Engine: engine, API: engine.Group("/api")}
}

// Use adds middleware applied to every module route.
func (r *Registry) Use(mw ...gin.HandlerFunc) { r.middlewares = append(r.middlewares, mw...) }

func (r *Registry) Add(mods ...Module) { r.modules = append(r.modules, mods...) }

// RegisterAll mounts the middleware, then every module in insertion order.
// It returns the number of modules mounted.
func (r *Registry) RegisterAll() int {
	if len(r.middlewares) > 0 {
		r.API.Use(r.middlewares...)
	}
	for _, m := range r.modules {
		m.Register(r.API)
	}
	return len(r.modules)
}

package router

import "github.com/gin-gonic/gin"

// Module is a feature area that mounts its own routes under /api.
type Module interface {
	Register(rg *gin.RouterGroup)
}

// Registry collects modules and shared middleware, then mounts everything
// in one pass so route registration order stays deterministic.
type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	middlewares []gin.HandlerFunc
	modules     []Module
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{Engine: engine, API: engine.Group("/api")}
}

// Use queues middleware applied to the whole /api group before any module
// routes are mounted.
func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

// RegisterAll applies queued middleware and mounts every module in the
// order it was added.
func (r *Registry) RegisterAll() {
	if len(r.middlewares) > 0 {
		r.API.Use(r.middlewares...)
	}
	for _, m := range r.modules {
		m.Register(r.API)
	}
}

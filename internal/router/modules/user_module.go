package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bapconnect/connect-api/internal/container"
	"github.com/bapconnect/connect-api/internal/infrastructure/auth"
	handlers "github.com/bapconnect/connect-api/internal/interface/http"
	"github.com/bapconnect/connect-api/internal/interface/middleware"
)

// UserModule wires the user lifecycle routes.
// Public: POST /api/register, POST /api/verify, GET /api/users, GET /api/users/:id
// Protected: PUT /api/profile, PUT /api/profile/avatar, DELETE /api/profile,
// GET /api/users/search

type UserModule struct {
	Handler *handlers.UserHandler
	Auth    *auth.Provider
}

func NewUserModule(h *handlers.UserHandler, p *auth.Provider) *UserModule {
	return &UserModule{Handler: h, Auth: p}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	// Public with rate limiting
	registerLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath(), nil) // 10 req/min per IP
	verifyLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIPAndPath(), nil)
	listLimiter := middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByIP(), nil)

	rg.POST("/register", registerLimiter, m.Handler.Register)
	rg.POST("/verify", verifyLimiter, m.Handler.Verify)
	rg.GET("/users", listLimiter, m.Handler.FindUsers)

	// Protected
	prot := rg.Group("/")
	prot.Use(middleware.Auth(m.Auth))
	prot.Use(
		middleware.RateLimit(container.GetRedis(), 300, time.Minute, middleware.KeyByIP(), nil),
		middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		prot.PUT("/profile", m.Handler.UpdateProfile)
		prot.PUT("/profile/avatar", m.Handler.UpdateAvatar)
		prot.DELETE("/profile", m.Handler.Delete)
		// Search users via Elasticsearch
		prot.GET("/users/search", m.Handler.Search)
	}

	// Registered after the static /users/search route so Gin resolves both.
	rg.GET("/users/:id", listLimiter, m.Handler.FindByID)
}

package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bapconnect/connect-api/internal/container"
	"github.com/bapconnect/connect-api/internal/infrastructure/auth"
	handlers "github.com/bapconnect/connect-api/internal/interface/http"
	"github.com/bapconnect/connect-api/internal/interface/middleware"
)

type AuthModule struct {
	Handler *handlers.AuthHandler
	Auth    *auth.Provider
}

func NewAuthModule(h *handlers.AuthHandler, p *auth.Provider) *AuthModule {
	return &AuthModule{Handler: h, Auth: p}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Public endpoints with IP-based rate limits
	loginLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	refreshLimiter := middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/login", loginLimiter, m.Handler.Login)
	rg.POST("/refresh", refreshLimiter, m.Handler.Refresh)

	// Protected
	prot := rg.Group("/")
	prot.Use(middleware.Auth(m.Auth))
	prot.Use(middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByUserID(), nil))
	{
		prot.POST("/logout", m.Handler.Logout)
		prot.GET("/authenticated", m.Handler.Authenticated)
	}
}

package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bapconnect/connect-api/internal/container"
	handlers "github.com/bapconnect/connect-api/internal/interface/http"
	"github.com/bapconnect/connect-api/internal/interface/middleware"
)

type EmailModule struct {
	Handler *handlers.EmailHandler
}

func NewEmailModule(h *handlers.EmailHandler) *EmailModule {
	return &EmailModule{Handler: h}
}

func (m *EmailModule) Register(rg *gin.RouterGroup) {
	// Public, tightly rate-limited: resending only works for unverified
	// accounts so there is no session to key on.
	resendLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	rg.POST("/verify/resend", resendLimiter, m.Handler.ResendVerification)
}

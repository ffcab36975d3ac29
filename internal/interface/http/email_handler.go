package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/bapconnect/connect-api/internal/application"
	"github.com/bapconnect/connect-api/pkg/response"
	"github.com/bapconnect/connect-api/pkg/validation"
)

type EmailHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewEmailHandler(svc *userapp.Service, logger *logrus.Logger) *EmailHandler {
	return &EmailHandler{Svc: svc, Logger: logger}
}

type resendVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResendVerification rotates the verification token for an unverified
// account and enqueues a fresh verification email.
func (h *EmailHandler) ResendVerification(c *gin.Context) {
	var req resendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	if err := h.Svc.ResendVerification(c.Request.Context(), req.Email); err != nil {
		status := userapp.HTTPStatus(err)
		if status >= http.StatusInternalServerError && h.Logger != nil {
			h.Logger.WithError(err).WithField("email", req.Email).Error("resend verification failed")
		}
		response.Error[any](c, status, userapp.PublicMessage(err), nil)
		return
	}
	response.Success[any](c, http.StatusAccepted, map[string]any{"enqueued": true}, "verification email enqueued", nil)
}

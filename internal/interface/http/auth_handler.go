package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/bapconnect/connect-api/internal/application"
	"github.com/bapconnect/connect-api/internal/interface/middleware"
	"github.com/bapconnect/connect-api/pkg/response"
	"github.com/bapconnect/connect-api/pkg/validation"
)

type AuthHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewAuthHandler(svc *userapp.Service, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

// Login checks credentials and issues a bearer access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, token, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		status := userapp.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			h.Logger.WithError(err).Error("login failed")
		}
		response.Error[any](c, status, userapp.PublicMessage(err), nil)
		return
	}

	uh := UserHandler{Svc: h.Svc, Logger: h.Logger}
	response.Success(c, http.StatusOK, gin.H{
		"user":         uh.userView(u),
		"access_token": token,
		"token_type":   "Bearer",
	}, "login successful", nil)
}

// Logout invalidates the presented bearer token.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString(middleware.CtxTokenKey)
	if err := h.Svc.Logout(c.Request.Context(), token); err != nil {
		response.Error[any](c, userapp.HTTPStatus(err), userapp.PublicMessage(err), nil)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{}, "successfully logged out", nil)
}

// Refresh exchanges a still-valid bearer token for a fresh one. The old
// token stops working once the new one is issued.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token == "" {
		response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
		return
	}
	fresh, err := h.Svc.RefreshToken(c.Request.Context(), token)
	if err != nil {
		response.Error[any](c, userapp.HTTPStatus(err), userapp.PublicMessage(err), nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"access_token": fresh,
		"token_type":   "Bearer",
	}, "token refreshed", nil)
}

// Authenticated confirms the bearer token passed the auth middleware.
func (h *AuthHandler) Authenticated(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"authenticated": true}, "authenticated", nil)
}

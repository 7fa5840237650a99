package handler

import (
	"time"

	"payauth-platform/internal/adapter/http/dto"
	"payauth-platform/internal/core/ports"
	"payauth-platform/pkg/response"

	"github.com/gin-gonic/gin"
)

// LoginHandler serves the dashboard operator login route.
type LoginHandler struct {
	login ports.LoginService
}

// NewLoginHandler creates a new login handler.
func NewLoginHandler(login ports.LoginService) *LoginHandler {
	return &LoginHandler{login: login}
}

// Login handles POST /v1/dashboard/login.
func (h *LoginHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}
	dto.SanitizeStruct(&req)

	token, expiresAt, err := h.login.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/raglib/docqa/internal/pkg/errcode"
	"github.com/raglib/docqa/internal/pkg/response"
	"github.com/raglib/docqa/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	token, err := h.auth.Login(c.Request.Context(), req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"token": token})
}

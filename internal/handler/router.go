package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raglib/docqa/internal/middleware"
)

type RouterDeps struct {
	Auth        *AuthHandler
	Documents   *DocumentHandler
	Query       *QueryHandler
	Health      *HealthHandler
	AuthEnabled bool
	JWTSecret   string
	QueryWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", deps.Health.Health)
	api.GET("/documents", deps.Documents.List)

	queryGroup := api.Group("")
	if deps.QueryWindow > 0 {
		queryGroup.Use(middleware.RateLimit(deps.QueryWindow))
	}
	queryGroup.POST("/query", deps.Query.Query)

	writeGroup := api.Group("")
	if deps.AuthEnabled {
		api.POST("/auth/login", deps.Auth.Login)
		writeGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	}
	uploadGroup := writeGroup.Group("")
	if deps.QueryWindow > 0 {
		uploadGroup.Use(middleware.RateLimit(deps.QueryWindow))
	}
	uploadGroup.POST("/documents", deps.Documents.Upload)
	writeGroup.DELETE("/documents/:filename", deps.Documents.Delete)
	writeGroup.DELETE("/documents", deps.Documents.Clear)
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/raglib/docqa/internal/pkg/response"
	"github.com/raglib/docqa/internal/service"
)

type HealthHandler struct {
	documents     *service.DocumentService
	provider      string
	model         string
	keyConfigured bool
}

func NewHealthHandler(documents *service.DocumentService, provider string, model string, keyConfigured bool) *HealthHandler {
	return &HealthHandler{documents: documents, provider: provider, model: model, keyConfigured: keyConfigured}
}

func (h *HealthHandler) Health(c *gin.Context) {
	stats, err := h.documents.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"status":            "ok",
		"provider":          h.provider,
		"model":             h.model,
		"api_key_set":       h.keyConfigured,
		"documents_indexed": stats.Documents,
		"chunks_indexed":    stats.Chunks,
	})
}

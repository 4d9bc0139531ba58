package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/raglib/docqa/internal/ai"
	"github.com/raglib/docqa/internal/pkg/errcode"
	"github.com/raglib/docqa/internal/pkg/response"
	"github.com/raglib/docqa/internal/service"
)

type QueryHandler struct {
	query *service.QueryService
}

func NewQueryHandler(query *service.QueryService) *QueryHandler {
	return &QueryHandler{query: query}
}

type queryRequest struct {
	Question string `json:"question"`
}

func (h *QueryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	answer, err := h.query.Answer(c.Request.Context(), req.Question)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			response.Error(c, errcode.ErrAIUnavailable, "ai not configured")
			return
		}
		handleError(c, err)
		return
	}
	response.Success(c, answer)
}

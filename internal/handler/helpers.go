package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/raglib/docqa/internal/pkg/errcode"
	appErr "github.com/raglib/docqa/internal/pkg/errors"
	"github.com/raglib/docqa/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrUnsupportedFile):
		response.Error(c, errcode.ErrUnsupportedFile, "unsupported file type")
	case errors.Is(err, appErr.ErrEmptyDocument):
		response.Error(c, errcode.ErrInvalidFile, "document has no extractable text")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}

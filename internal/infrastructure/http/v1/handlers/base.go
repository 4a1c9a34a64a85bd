package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"tradeflow/internal/core/apperror"
	"tradeflow/internal/infrastructure/http/v1/dto"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds the JSON request body. An empty body is accepted, including
// a chunked one whose length is unknown up front.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers err on the Gin context and aborts the request.
// The JSON response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Refreshed answers a refresh. A cache write failure still returns the
// computed data, flagged with cached=false.
func (h *BaseHandler) Refreshed(c *gin.Context, data any, err error) {
	if err == nil {
		c.JSON(http.StatusOK, dto.RefreshResponse{Success: true, Cached: true, Data: data})
		return
	}
	if apperror.IsCacheWriteFailure(err) {
		_ = c.Error(err)
		c.JSON(http.StatusOK, dto.RefreshResponse{
			Success: true,
			Cached:  false,
			Message: "result computed but not cached",
			Data:    data,
		})
		return
	}
	h.Error(c, err)
}

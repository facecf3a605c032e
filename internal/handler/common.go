package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CategoryValidation  = "validation_error"
	CategoryNotFound    = "not_found"
	CategoryPersistence = "persistence_error"
	CategoryInternal    = "internal_error"
)

// ErrorResponse 統一錯誤回應格式
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func abortWithError(c *gin.Context, status int, category, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: category, Message: message})
}

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		message := "Invalid request format"
		if errors.Is(err, io.EOF) {
			message = "No JSON data provided"
		}
		abortWithError(c, http.StatusBadRequest, CategoryValidation, message)
		return err
	}
	return nil
}

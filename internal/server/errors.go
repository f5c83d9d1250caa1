package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	organizationdomain "github.com/pillarworks/meridian/internal/organization/domain"
)

// APIError is the wire shape for admin endpoint failures.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string { return e.Code }

var (
	ErrUnauthorized = &APIError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "unauthorized"}
	ErrNotFound     = &APIError{Status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}
)

func newValidationError(field, code, message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: code, Message: message, Field: field}
}

func invalidRequestError() *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "request body could not be parsed"}
}

// AbortWithError maps an error to its HTTP response and stops the handler
// chain. Domain sentinels translate to 4xx; anything unrecognized is an
// opaque 500.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}

	switch {
	case errors.Is(err, organizationdomain.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "organization_not_found", "message": "organization not found"}})
	case errors.Is(err, organizationdomain.ErrInvalidStatus),
		errors.Is(err, organizationdomain.ErrInvalidTrial):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": err.Error(), "message": "invalid request"}})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "internal error"}})
	}
}

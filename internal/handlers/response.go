package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gatepass/visitor-gate-backend/internal/database"
)

// Error codes returned in the error envelope
const (
	CodeValidationError = "validation_error"
	CodeUnauthenticated = "unauthenticated"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeRateLimited     = "rate_limited"
	CodeInternal        = "internal"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondOK writes the success envelope
func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes the error envelope
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   errorBody{Code: code, Message: message},
	})
}

// respondRepoError maps repository sentinel errors onto the error envelope.
// Anything that is not a known sentinel becomes an internal error without
// leaking the underlying cause.
func respondRepoError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(c, http.StatusNotFound, CodeNotFound, "Resource not found")
	case errors.Is(err, database.ErrStatusConflict):
		respondError(c, http.StatusConflict, CodeConflict, "The record changed since you loaded it; refresh and try again")
	default:
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
	}
}

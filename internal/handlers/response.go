package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/approva/simulado-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError maps an error chain to its stable code and HTTP status.
// Errors outside the taxonomy fall back to 500 with a generic message so
// internals never leak.
func RespondError(c *gin.Context, err error) {
	status := apierr.StatusOf(err)
	code := apierr.CodeOf(err)
	msg := "internal error"
	if code != "" && err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

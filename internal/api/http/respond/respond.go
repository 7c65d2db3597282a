// Package respond writes the JSON error body shared by every route.
package respond

import (
	"github.com/gin-gonic/gin"

	"github.com/novacode/novacode-backend/internal/apperr"
)

// Error writes {message, error, kind} with the status for err's kind.
// Entries of extra are merged into the body.
func Error(c *gin.Context, err error, extra ...gin.H) {
	e := apperr.As(err)

	body := gin.H{
		"message": e.Message,
		"kind":    e.Kind,
	}
	if cause := e.Cause(); cause != "" {
		body["error"] = cause
	} else {
		body["error"] = e.Message
	}
	for _, h := range extra {
		for k, v := range h {
			body[k] = v
		}
	}

	c.JSON(apperr.HTTPStatus(e.Kind), body)
}

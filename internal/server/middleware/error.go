package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error Error `json:"error"`
}

// AbortWithError aborts the request with a JSON error response and adds the error to gin context for access logging.
func AbortWithError(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: Error{
			Type:    http.StatusText(status),
			Message: err.Error(),
		},
	})
}

package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/looplj/visgate/internal/log"
)

// Recovery turns a panic in a later handler into a bare 500.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			err := fmt.Errorf("panic: %v", rec)
			_ = c.Error(err)

			log.Error(c.Request.Context(), "recovered from panic",
				log.Cause(err),
				log.String("path", c.Request.URL.Path),
				log.String("stack", string(debug.Stack())))

			c.AbortWithStatus(http.StatusInternalServerError)
		}()

		c.Next()
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestWithTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("sets deadline", func(t *testing.T) {
		engine := gin.New()
		engine.Use(WithTimeout(time.Minute))
		engine.GET("/", func(c *gin.Context) {
			deadline, ok := c.Request.Context().Deadline()
			assert.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("zero disables", func(t *testing.T) {
		engine := gin.New()
		engine.Use(WithTimeout(0))
		engine.GET("/", func(c *gin.Context) {
			_, ok := c.Request.Context().Deadline()
			assert.False(t, ok)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("handler sees expiry", func(t *testing.T) {
		engine := gin.New()
		engine.Use(WithTimeout(10 * time.Millisecond))
		engine.GET("/", func(c *gin.Context) {
			<-c.Request.Context().Done()
			c.Status(http.StatusServiceUnavailable)
		})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/looplj/visgate/internal/build"
)

type HealthResponse struct {
	Status string `json:"status"`
	build.Info
}

type SystemHandlers struct{}

func NewSystemHandlers() *SystemHandlers {
	return &SystemHandlers{}
}

func (h *SystemHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Info:   build.GetBuildInfo(),
	})
}

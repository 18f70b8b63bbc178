package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/looplj/visgate/internal/server/biz"
	"github.com/looplj/visgate/internal/visibility"
)

type ItemHandlersParams struct {
	fx.In

	ItemService *biz.ItemService
}

func NewItemHandlers(params ItemHandlersParams) *ItemHandlers {
	return &ItemHandlers{
		ItemService: params.ItemService,
	}
}

type ItemHandlers struct {
	ItemService *biz.ItemService
}

// ListVisible handles GET /items/:id. It answers 200 once every visible item was
// written and a bare 500 when the collection could not be built or a check failed.
func (h *ItemHandlers) ListVisible(c *gin.Context) {
	_, err := h.ItemService.WriteVisible(c.Request.Context(), c.Param("id"), visibility.Discard)
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatus(http.StatusInternalServerError)

		return
	}

	c.Status(http.StatusOK)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplj/visgate/internal/build"
	"github.com/looplj/visgate/internal/item"
	"github.com/looplj/visgate/internal/server/biz"
	"github.com/looplj/visgate/internal/visibility"
)

func newRouter(source item.Source, checker visibility.Checker) *gin.Engine {
	gin.SetMode(gin.TestMode)

	handlers := NewItemHandlers(ItemHandlersParams{
		ItemService: biz.NewItemService(biz.ItemServiceParams{Source: source, Checker: checker}),
	})

	engine := gin.New()
	engine.GET("/items/:id", handlers.ListVisible)
	engine.GET("/health", NewSystemHandlers().Health)

	return engine
}

func get(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	return w
}

func TestListVisible(t *testing.T) {
	failing := visibility.CheckerFunc(func(context.Context, item.Item) (bool, error) {
		return false, errors.New("unavailable")
	})

	tests := []struct {
		name    string
		source  item.Source
		checker visibility.Checker
		want    int
	}{
		{"one live item allowed", item.Synthetic{}, visibility.AllowAll(), http.StatusOK},
		{"one live item denied", item.Synthetic{}, visibility.DenyAll(), http.StatusOK},
		{"checker fails", item.Synthetic{}, failing, http.StatusInternalServerError},
		{"zero items", item.NewFixtures(nil), failing, http.StatusOK},
		{"only deleted items", item.NewFixtures([]item.Item{{ID: "x", Deleted: true}}), failing, http.StatusOK},
		{
			"source fails",
			item.SourceFunc(func(context.Context, string) (*item.Collection, error) { return nil, errors.New("gone") }),
			visibility.AllowAll(),
			http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(newRouter(tt.source, tt.checker), "/items/7")
			assert.Equal(t, tt.want, w.Code)

			if tt.want == http.StatusInternalServerError {
				assert.Empty(t, w.Body.String())
			}
		})
	}
}

func TestListVisible_PassesID(t *testing.T) {
	var seen []string

	checker := visibility.CheckerFunc(func(_ context.Context, it item.Item) (bool, error) {
		seen = append(seen, it.ID)
		return true, nil
	})

	w := get(newRouter(item.Synthetic{}, checker), "/items/abc")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"abc"}, seen)
}

func TestHealth(t *testing.T) {
	w := get(newRouter(item.Synthetic{}, visibility.AllowAll()), "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, build.Version, resp.Version)
}

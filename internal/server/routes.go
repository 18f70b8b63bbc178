package server

import (
	"go.uber.org/fx"

	"github.com/looplj/visgate/internal/server/api"
	"github.com/looplj/visgate/internal/server/middleware"
)

type Handlers struct {
	fx.In

	Item   *api.ItemHandlers
	System *api.SystemHandlers
}

func SetupRoutes(server *Server, handlers Handlers) {
	server.Use(middleware.AccessLog())
	server.Use(middleware.WithLoggingTracing(server.Config.Trace))

	if server.Config.CORS.Enabled {
		corsHandler := middleware.CORS(server.Config.CORS)
		server.Use(corsHandler)
		server.OPTIONS("*any", corsHandler)
	}

	publicGroup := server.Group("", middleware.WithTimeout(server.Config.RequestTimeout))
	{
		publicGroup.GET("/health", handlers.System.Health)
	}

	itemGroup := server.Group("/items",
		middleware.WithTimeout(server.Config.RequestTimeout),
		middleware.WithPrincipal(server.Config.Principal),
	)
	{
		itemGroup.GET("/:id", handlers.Item.ListVisible)
	}
}

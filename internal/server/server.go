package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/looplj/visgate/internal/authz"
	"github.com/looplj/visgate/internal/log"
	"github.com/looplj/visgate/internal/server/api"
	"github.com/looplj/visgate/internal/server/biz"
	"github.com/looplj/visgate/internal/server/dependencies"
	"github.com/looplj/visgate/internal/server/middleware"
	"github.com/looplj/visgate/internal/tracing"
)

func New(config Config) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery())

	return &Server{
		Config: config,
		Engine: engine,
	}
}

type Server struct {
	*gin.Engine

	Config Config
	server *http.Server
}

func (srv *Server) Addr() string {
	return net.JoinHostPort(srv.Config.Host, fmt.Sprint(srv.Config.Port))
}

func (srv *Server) Run() error {
	log.Info(context.Background(), "run server",
		log.String("name", srv.Config.Name),
		log.String("host", srv.Config.Host),
		log.Int("port", srv.Config.Port),
	)

	srv.server = &http.Server{
		Addr:              srv.Addr(),
		Handler:           srv.Engine,
		ReadTimeout:       srv.Config.ReadTimeout,
		ReadHeaderTimeout: srv.Config.ReadTimeout,
		WriteTimeout:      srv.Config.RequestTimeout,
	}

	err := srv.server.ListenAndServe()
	if err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	}

	return nil
}

func (srv *Server) Shutdown(ctx context.Context) error {
	if srv.server == nil {
		return nil
	}

	return srv.server.Shutdown(ctx)
}

// Modules wires everything the HTTP server needs except configuration.
func Modules() fx.Option {
	return fx.Options(
		fx.Provide(New),
		dependencies.Module,
		biz.Module,
		api.Module,
		fx.Invoke(func(cfg log.Config) {
			log.SetGlobalConfig(cfg)
			tracing.InstallLogHook(log.GetGlobalLogger())
			log.GetGlobalLogger().AddHook(log.HookFunc(authz.PrincipalFieldsHook))
		}),
		fx.Invoke(SetupRoutes),
	)
}

func Run(opts ...fx.Option) {
	app := fx.New(
		append([]fx.Option{
			fx.NopLogger,
			Modules(),
		}, opts...)...,
	)
	app.Run()
}

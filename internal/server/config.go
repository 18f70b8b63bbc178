package server

import (
	"time"

	"github.com/looplj/visgate/internal/server/middleware"
	"github.com/looplj/visgate/internal/tracing"
)

type Config struct {
	Host        string        `conf:"host" yaml:"host" json:"host"`
	Port        int           `conf:"port" yaml:"port" json:"port"`
	Name        string        `conf:"name" yaml:"name" json:"name"`
	ReadTimeout time.Duration `conf:"read_timeout" yaml:"read_timeout" json:"read_timeout"`

	// RequestTimeout is the maximum duration for processing a request.
	RequestTimeout time.Duration `conf:"request_timeout" yaml:"request_timeout" json:"request_timeout"`

	Trace     tracing.Config             `conf:"trace" yaml:"trace" json:"trace"`
	Principal middleware.PrincipalConfig `conf:"principal" yaml:"principal" json:"principal"`

	Debug bool                  `conf:"debug" yaml:"debug" json:"debug"`
	CORS  middleware.CORSConfig `conf:"cors" yaml:"cors" json:"cors"`
}

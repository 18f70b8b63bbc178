package conf

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/fx"

	"github.com/looplj/visgate/internal/item"
	"github.com/looplj/visgate/internal/log"
	"github.com/looplj/visgate/internal/metrics"
	"github.com/looplj/visgate/internal/pkg/xcache"
	"github.com/looplj/visgate/internal/pkg/xredis"
	"github.com/looplj/visgate/internal/policy"
	"github.com/looplj/visgate/internal/server"
	"github.com/looplj/visgate/internal/visibility"
)

const (
	envPrefix     = "VISGATE"
	envConfigFile = "VISGATE_CONFIG"
)

// Config is the whole configuration. Each section is provided to fx on its own.
type Config struct {
	fx.Out `yaml:"-" json:"-"`

	Server     server.Config     `conf:"server" yaml:"server" json:"server"`
	Log        log.Config        `conf:"log" yaml:"log" json:"log"`
	Metrics    metrics.Config    `conf:"metrics" yaml:"metrics" json:"metrics"`
	Redis      xredis.Config     `conf:"redis" yaml:"redis" json:"redis"`
	Cache      xcache.Config     `conf:"cache" yaml:"cache" json:"cache"`
	Policy     policy.Config     `conf:"policy" yaml:"policy" json:"policy"`
	Visibility visibility.Config `conf:"visibility" yaml:"visibility" json:"visibility"`
	Items      item.Config       `conf:"items" yaml:"items" json:"items"`
}

// Load reads config.yml from the working directory, ./conf, /etc/visgate, ~/.config/visgate
// or the file named by VISGATE_CONFIG, then applies VISGATE_* environment overrides. A missing file is fine.
func Load() (Config, error) {
	return load(os.Getenv(envConfigFile))
}

// LoadFile is Load with an explicit config file.
func LoadFile(path string) (Config, error) {
	return load(path)
}

func load(path string) (Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./conf")
		v.AddConfigPath("/etc/visgate/")
		v.AddConfigPath("$HOME/.config/visgate")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config

	err := v.Unmarshal(&config, func(c *mapstructure.DecoderConfig) {
		c.TagName = "conf"
		c.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.name", "visgate")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.trace.trace_header", "VG-Trace-Id")
	v.SetDefault("server.trace.request_header", "VG-Request-Id")
	v.SetDefault("server.principal.header", "VG-Principal")
	v.SetDefault("server.principal.roles_header", "VG-Roles")
	v.SetDefault("server.principal.allow_privileged", false)
	v.SetDefault("server.cors.enabled", false)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("log.name", "visgate")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.debug", false)
	v.SetDefault("log.encoding", log.EncodingJSON)
	v.SetDefault("log.output", log.OutputStdio)
	v.SetDefault("log.file.path", "logs/visgate.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 10)
	v.SetDefault("log.file.local_time", true)
	v.SetDefault("log.file.compress", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.exporter.type", metrics.ExporterStdout)
	v.SetDefault("metrics.exporter.endpoint", "")
	v.SetDefault("metrics.exporter.insecure", false)
	v.SetDefault("metrics.exporter.interval", "1m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls", false)
	v.SetDefault("redis.tls_insecure_skip_verify", false)
	v.SetDefault("redis.pool_size", 0)
	v.SetDefault("redis.dial_timeout", "5s")

	v.SetDefault("cache.mode", xcache.ModeMemory)
	v.SetDefault("cache.memory.expiration", "1m")
	v.SetDefault("cache.memory.cleanup_interval", "5m")
	v.SetDefault("cache.redis.expiration", "5m")
	v.SetDefault("cache.redis.key_prefix", "visgate:cache:")

	v.SetDefault("policy.backend", policy.BackendStatic)
	v.SetDefault("policy.key_prefix", "visgate:grants:")
	v.SetDefault("policy.channel", "visgate:grants:changes")

	v.SetDefault("visibility.checker", visibility.CheckerGrants)
	v.SetDefault("visibility.rules.default_effect", string(visibility.EffectDeny))
	v.SetDefault("visibility.remote.url", "")
	v.SetDefault("visibility.remote.timeout", "2s")
	v.SetDefault("visibility.remote.result_path", "allow")

	v.SetDefault("items.source", item.SourceSynthetic)
}

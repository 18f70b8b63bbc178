package xredis

import (
	"strings"
	"time"
)

// Config describes the shared redis connection. Either URL (redis:// or rediss://) or Addr
// must be set; explicit fields override what the URL carries.
type Config struct {
	Addr                  string        `conf:"addr" yaml:"addr" json:"addr"`
	URL                   string        `conf:"url" yaml:"url" json:"url"`
	Username              string        `conf:"username" yaml:"username" json:"username"`
	Password              string        `conf:"password" yaml:"password" json:"-"`
	DB                    *int          `conf:"db" yaml:"db" json:"db"`
	TLS                   bool          `conf:"tls" yaml:"tls" json:"tls"`
	TLSInsecureSkipVerify bool          `conf:"tls_insecure_skip_verify" yaml:"tls_insecure_skip_verify" json:"tls_insecure_skip_verify"`
	PoolSize              int           `conf:"pool_size" yaml:"pool_size" json:"pool_size"`
	DialTimeout           time.Duration `conf:"dial_timeout" yaml:"dial_timeout" json:"dial_timeout"`
}

// Enabled reports whether a redis endpoint is configured at all.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Addr) != "" || c.URL != ""
}

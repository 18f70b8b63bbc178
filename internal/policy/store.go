package policy

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

const (
	BackendStatic = "static"
	BackendRedis  = "redis"

	defaultKeyPrefix = "visgate:grants:"
	defaultChannel   = "visgate:grants:changes"
)

var ErrRedisRequired = errors.New("policy: redis backend requires a redis connection")

// Store resolves the grants held by a subject. A subject without grants has none,
// that is not an error.
type Store interface {
	Grants(ctx context.Context, subject string) ([]string, error)
}

type StaticGrant struct {
	Subject string   `conf:"subject" yaml:"subject" json:"subject"`
	Grants  []string `conf:"grants" yaml:"grants" json:"grants"`
}

type Config struct {
	// Backend is static or redis, static by default.
	Backend string `conf:"backend" yaml:"backend" json:"backend"`
	// Static lists the grants of the static backend.
	Static []StaticGrant `conf:"static" yaml:"static" json:"static"`
	// KeyPrefix prefixes the redis set holding a subject's grants.
	KeyPrefix string `conf:"key_prefix" yaml:"key_prefix" json:"key_prefix"`
	// Channel is the redis channel carrying grant changes between instances.
	Channel string `conf:"channel" yaml:"channel" json:"channel"`
}

// StaticStore serves grants fixed at startup.
type StaticStore struct {
	grants map[string][]string
}

func NewStaticStore(grants []StaticGrant) *StaticStore {
	m := make(map[string][]string, len(grants))
	for _, g := range grants {
		m[g.Subject] = lo.Uniq(append(m[g.Subject], g.Grants...))
	}

	for subject := range m {
		sort.Strings(m[subject])
	}

	return &StaticStore{grants: m}
}

func (s *StaticStore) Grants(_ context.Context, subject string) ([]string, error) {
	return slices.Clone(s.grants[subject]), nil
}

// NewStore builds the configured backend. notifier is only used by the redis backend.
func NewStore(cfg Config, client *redis.Client, notifier Notifier) (Store, error) {
	switch cfg.Backend {
	case BackendStatic, "":
		return NewStaticStore(cfg.Static), nil
	case BackendRedis:
		if client == nil {
			return nil, ErrRedisRequired
		}

		return NewRedisStore(client, lo.Ternary(cfg.KeyPrefix != "", cfg.KeyPrefix, defaultKeyPrefix), notifier), nil
	default:
		return nil, fmt.Errorf("policy: unknown backend %q", cfg.Backend)
	}
}

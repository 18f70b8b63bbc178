package conf

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hashicorp/go-multierror"

	"github.com/looplj/visgate/internal/item"
	"github.com/looplj/visgate/internal/metrics"
	"github.com/looplj/visgate/internal/policy"
	"github.com/looplj/visgate/internal/visibility"
)

var (
	checkers = []string{
		visibility.CheckerAllow,
		visibility.CheckerDeny,
		visibility.CheckerRules,
		visibility.CheckerGrants,
		visibility.CheckerRemote,
	}
	backends  = []string{policy.BackendStatic, policy.BackendRedis}
	sources   = []string{item.SourceSynthetic, item.SourceFixtures}
	exporters = []string{metrics.ExporterStdout, metrics.ExporterOTLPHTTP}
)

// Validate reports every problem at once. It checks the shape of the configuration,
// the components still validate their own settings when built.
func Validate(config Config) error {
	var result *multierror.Error

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		result = multierror.Append(result, errors.New("server.port must be between 1 and 65535"))
	}

	if config.Server.CORS.Enabled && len(config.Server.CORS.AllowedOrigins) == 0 {
		result = multierror.Append(result, errors.New("server.cors.allowed_origins cannot be empty when CORS is enabled"))
	}

	if config.Log.Name == "" {
		result = multierror.Append(result, errors.New("log.name cannot be empty"))
	}

	if config.Metrics.Enabled && !slices.Contains(exporters, config.Metrics.Exporter.Type) {
		result = multierror.Append(result, fmt.Errorf("metrics.exporter.type %q is not one of %v", config.Metrics.Exporter.Type, exporters))
	}

	if config.Cache.UsesRedis() && !config.Redis.Enabled() {
		result = multierror.Append(result, fmt.Errorf("cache.mode %q requires redis.addr or redis.url", config.Cache.Mode))
	}

	if config.Policy.Backend != "" && !slices.Contains(backends, config.Policy.Backend) {
		result = multierror.Append(result, fmt.Errorf("policy.backend %q is not one of %v", config.Policy.Backend, backends))
	}

	if config.Policy.Backend == policy.BackendRedis && !config.Redis.Enabled() {
		result = multierror.Append(result, errors.New("policy.backend redis requires redis.addr or redis.url"))
	}

	checker := config.Visibility.Checker
	if checker != "" && !slices.Contains(checkers, checker) {
		result = multierror.Append(result, fmt.Errorf("visibility.checker %q is not one of %v", checker, checkers))
	}

	if checker == visibility.CheckerRemote && config.Visibility.Remote.URL == "" {
		result = multierror.Append(result, errors.New("visibility.remote.url cannot be empty for the remote checker"))
	}

	if checker == visibility.CheckerRules {
		if _, err := visibility.NewRules(config.Visibility.Rules); err != nil {
			result = multierror.Append(result, fmt.Errorf("visibility.rules: %w", err))
		}
	}

	if config.Items.Source != "" && !slices.Contains(sources, config.Items.Source) {
		result = multierror.Append(result, fmt.Errorf("items.source %q is not one of %v", config.Items.Source, sources))
	}

	return result.ErrorOrNil()
}

// Problems flattens the result of Validate for display.
func Problems(err error) []string {
	if err == nil {
		return nil
	}

	var merr *multierror.Error
	if errors.As(err, &merr) {
		problems := make([]string, 0, len(merr.Errors))
		for _, e := range merr.Errors {
			problems = append(problems, e.Error())
		}

		return problems
	}

	return []string{err.Error()}
}

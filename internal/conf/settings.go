// Package conf loads process configuration from the environment and an
// optional YAML file. Environment variables take precedence and use the
// HOSTWARDEN_ prefix with underscores for nesting, e.g.
// HOSTWARDEN_WORKER_CHECK_INTERVAL=30s.
package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings is the full process configuration.
type Settings struct {
	LogLevel  string            `mapstructure:"log_level"`
	LogJSON   bool              `mapstructure:"log_json"`
	Database  DatabaseSettings  `mapstructure:"database"`
	Worker    WorkerSettings    `mapstructure:"worker"`
	Detection DetectionSettings `mapstructure:"detection"`
	Notify    NotifySettings    `mapstructure:"notify"`
	Metrics   MetricsSettings   `mapstructure:"metrics"`
	Container ContainerSettings `mapstructure:"container"`
}

// DatabaseSettings selects the datastore backend.
type DatabaseSettings struct {
	// Driver is "sqlite" or "mysql".
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// WorkerSettings controls the remediation cycle loop.
type WorkerSettings struct {
	Enabled bool `mapstructure:"enabled"`
	// CheckInterval is the sleep between cycles.
	CheckInterval Duration `mapstructure:"check_interval"`
	// SnapshotInterval is the expected cadence of the external metrics
	// collector, used to size sustained-rule sample windows.
	SnapshotInterval Duration `mapstructure:"snapshot_interval"`
	// StatsEveryCycles emits a summary log line every N cycles. 0 disables.
	StatsEveryCycles int `mapstructure:"stats_every_cycles"`
	// TenantCacheTTL bounds how stale the cached tenant roster may get.
	TenantCacheTTL Duration `mapstructure:"tenant_cache_ttl"`
}

// DetectionSettings tunes the issue detector.
type DetectionSettings struct {
	// MinSampleRatio is the fraction of expected samples a sustained rule
	// needs before it may fire. Clamped to (0, 1].
	MinSampleRatio float64 `mapstructure:"min_sample_ratio"`
	// RulesFile optionally points at a YAML file whose entries override
	// default rules by issue type.
	RulesFile string `mapstructure:"rules_file"`
}

// NotifySettings configures outbound push delivery.
type NotifySettings struct {
	// PushURLs are shoutrrr service URLs. Empty disables push.
	PushURLs []string `mapstructure:"push_urls"`
}

// MetricsSettings exposes Prometheus metrics.
type MetricsSettings struct {
	// ListenAddr like ":9167". Empty disables the metrics endpoint.
	ListenAddr string `mapstructure:"listen_addr"`
}

// ContainerSettings tunes workload command execution.
type ContainerSettings struct {
	// QueryTimeout bounds database queries run inside workloads.
	QueryTimeout Duration `mapstructure:"query_timeout"`
	// CommandTimeout is the default per-action command timeout.
	CommandTimeout Duration `mapstructure:"command_timeout"`
}

// Load reads configuration from the environment and, when path is non-empty,
// from the YAML file at path. Missing files are an error; a missing path is
// not.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HOSTWARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "hostwarden.db")
	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.check_interval", "60s")
	v.SetDefault("worker.snapshot_interval", "60s")
	v.SetDefault("worker.stats_every_cycles", 10)
	v.SetDefault("worker.tenant_cache_ttl", "5m")
	v.SetDefault("detection.min_sample_ratio", 0.5)
	v.SetDefault("container.query_timeout", "30s")
	v.SetDefault("container.command_timeout", "60s")
}

// Validate rejects configurations the rest of the system cannot run with.
func (s *Settings) Validate() error {
	switch s.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", s.Database.Driver)
	}
	if s.Database.DSN == "" {
		return errors.New("database DSN must not be empty")
	}
	if s.Worker.CheckInterval.Std() < time.Second {
		return fmt.Errorf("worker check interval %s is below 1s", s.Worker.CheckInterval.Std())
	}
	if s.Worker.SnapshotInterval.Std() <= 0 {
		return errors.New("worker snapshot interval must be positive")
	}
	if s.Detection.MinSampleRatio <= 0 || s.Detection.MinSampleRatio > 1 {
		return fmt.Errorf("detection min sample ratio %v outside (0, 1]", s.Detection.MinSampleRatio)
	}
	return nil
}

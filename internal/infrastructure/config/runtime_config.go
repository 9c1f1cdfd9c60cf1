// Package config provides runtime configuration for featurefleet.
package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/reglet-dev/featurefleet/internal/application/services"
)

// Configuration keys. Every key can also be set through the environment as
// FEATUREFLEET_<KEY> with dots replaced by underscores.
const (
	KeyProfilesRoot        = "profiles.root"
	KeyProfilesVersion     = "profiles.version"
	KeyProfilesID          = "profiles.id"
	KeyCoordinationURL     = "coordination.url"
	KeyCoordinationTimeout = "coordination.timeout"
	KeyReconcileAttempts   = "reconcile.max_attempts"
	KeyReconcileBackoff    = "reconcile.backoff"
	KeyReconcileHistory    = "reconcile.history"
	KeyMavenRepository     = "repository.maven"
	KeyRepositoryPlainHTTP = "repository.plain_http"
	KeyRepositoryRetries   = "repository.retries"
	KeyMetricsListen       = "metrics.listen"
	KeyWatchDebounce       = "watch.debounce"
	KeyLogLevel            = "log.level"

	// EnvPrefix is the environment variable prefix.
	EnvPrefix = "FEATUREFLEET"
)

// Defaults.
const (
	DefaultProfilesVersion     = "1.0"
	DefaultProfileID           = "default"
	DefaultCoordinationTimeout = 5 * time.Second
	DefaultWatchDebounce       = 500 * time.Millisecond
	DefaultRunHistory          = 100
	DefaultRepositoryRetries   = 2
	DefaultLogLevel            = "info"
)

// RuntimeConfig aggregates all runtime configuration.
// This is a value object that flows through the system.
type RuntimeConfig struct {
	// Profiles
	ProfilesRoot    string
	ProfilesVersion string
	ProfileID       string

	// Coordination store; empty URL disables probing.
	CoordinationURL     string
	CoordinationTimeout time.Duration

	// Reconciliation
	MaxAttempts int
	Backoff     time.Duration
	RunHistory  int

	// Repository descriptors. MavenRepository is the base URL mvn: URIs
	// resolve against; empty rejects mvn: URIs.
	MavenRepository   string
	RegistryPlainHTTP bool
	RepositoryRetries int

	// Metrics listen address; empty disables the endpoint.
	MetricsListen string

	WatchDebounce time.Duration
	LogLevel      string
}

// SetDefaults registers defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyProfilesVersion, DefaultProfilesVersion)
	v.SetDefault(KeyProfilesID, DefaultProfileID)
	v.SetDefault(KeyCoordinationTimeout, DefaultCoordinationTimeout)
	v.SetDefault(KeyReconcileAttempts, services.DefaultMaxAttempts)
	v.SetDefault(KeyReconcileBackoff, services.DefaultBackoffInterval)
	v.SetDefault(KeyReconcileHistory, DefaultRunHistory)
	v.SetDefault(KeyRepositoryRetries, DefaultRepositoryRetries)
	v.SetDefault(KeyWatchDebounce, DefaultWatchDebounce)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
}

// BindEnv makes every key readable from FEATUREFLEET_* variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// FromViper creates RuntimeConfig from v, applies defaults and validates.
func FromViper(v *viper.Viper) (*RuntimeConfig, error) {
	cfg := &RuntimeConfig{
		ProfilesRoot:        v.GetString(KeyProfilesRoot),
		ProfilesVersion:     v.GetString(KeyProfilesVersion),
		ProfileID:           v.GetString(KeyProfilesID),
		CoordinationURL:     v.GetString(KeyCoordinationURL),
		CoordinationTimeout: v.GetDuration(KeyCoordinationTimeout),
		MaxAttempts:         v.GetInt(KeyReconcileAttempts),
		Backoff:             v.GetDuration(KeyReconcileBackoff),
		RunHistory:          v.GetInt(KeyReconcileHistory),
		MavenRepository:     v.GetString(KeyMavenRepository),
		RegistryPlainHTTP:   v.GetBool(KeyRepositoryPlainHTTP),
		RepositoryRetries:   v.GetInt(KeyRepositoryRetries),
		MetricsListen:       v.GetString(KeyMetricsListen),
		WatchDebounce:       v.GetDuration(KeyWatchDebounce),
		LogLevel:            v.GetString(KeyLogLevel),
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults applies defaults for zero values.
func (r *RuntimeConfig) ApplyDefaults() {
	if r.ProfilesVersion == "" {
		r.ProfilesVersion = DefaultProfilesVersion
	}
	if r.ProfileID == "" {
		r.ProfileID = DefaultProfileID
	}
	if r.CoordinationTimeout <= 0 {
		r.CoordinationTimeout = DefaultCoordinationTimeout
	}
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = services.DefaultMaxAttempts
	}
	if r.Backoff <= 0 {
		r.Backoff = services.DefaultBackoffInterval
	}
	if r.RunHistory <= 0 {
		r.RunHistory = DefaultRunHistory
	}
	if r.RepositoryRetries < 0 {
		r.RepositoryRetries = DefaultRepositoryRetries
	}
	if r.WatchDebounce <= 0 {
		r.WatchDebounce = DefaultWatchDebounce
	}
	if r.LogLevel == "" {
		r.LogLevel = DefaultLogLevel
	}
}

// Validate checks the values that have no usable default.
func (r *RuntimeConfig) Validate() error {
	var problems []string

	if r.ProfilesRoot == "" {
		problems = append(problems, KeyProfilesRoot+" is required")
	}
	if strings.ContainsAny(r.ProfileID, `/\`) || r.ProfileID == ".." {
		problems = append(problems, fmt.Sprintf("%s %q is not a valid profile id", KeyProfilesID, r.ProfileID))
	}
	if strings.ContainsAny(r.ProfilesVersion, `/\`) || r.ProfilesVersion == ".." {
		problems = append(problems, fmt.Sprintf("%s %q is not a valid version", KeyProfilesVersion, r.ProfilesVersion))
	}
	if _, err := r.SlogLevel(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// ProfilesDir returns the absolute profile store root.
func (r *RuntimeConfig) ProfilesDir() (string, error) {
	return filepath.Abs(r.ProfilesRoot)
}

// ReconcilerConfig returns the retry settings for the reconciler.
func (r *RuntimeConfig) ReconcilerConfig() services.ReconcilerConfig {
	return services.ReconcilerConfig{
		MaxAttempts:     r.MaxAttempts,
		BackoffInterval: r.Backoff,
	}
}

// SlogLevel parses LogLevel.
func (r *RuntimeConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(r.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%s %q is not a valid level", KeyLogLevel, r.LogLevel)
	}
	return level, nil
}

// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for the city.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	// Templates configures the department template loader.
	Templates TemplatesConfig `yaml:"templates"`

	// Supervision configures the department process supervisor.
	Supervision SupervisionConfig `yaml:"supervision"`

	// Council configures recommendation evaluation policy.
	Council CouncilConfig `yaml:"council"`

	// Routing configures the routing table mirror.
	Routing RoutingConfig `yaml:"routing"`

	// Dispatch configures the dispatch center.
	Dispatch DispatchConfig `yaml:"dispatch"`

	// Per-environment overrides, applied after the base config.
	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides contains the sections that can be overridden per
// environment.
type Overrides struct {
	Templates   *TemplatesConfig   `yaml:"templates,omitempty"`
	Supervision *SupervisionConfig `yaml:"supervision,omitempty"`
	Council     *CouncilConfig     `yaml:"council,omitempty"`
	Routing     *RoutingConfig     `yaml:"routing,omitempty"`
	Dispatch    *DispatchConfig    `yaml:"dispatch,omitempty"`
}

// TemplatesConfig configures the department template loader.
type TemplatesConfig struct {
	// Dir is the directory holding department template JSONC files.
	Dir string `yaml:"dir"`
}

// SupervisionConfig configures the process supervisor.
type SupervisionConfig struct {
	// TickSeconds is the supervision cycle cadence. Default 30.
	TickSeconds int `yaml:"tick_seconds"`

	// SilenceWindowSeconds is how long a health check may go
	// unanswered before it counts as a failure. Default 60.
	SilenceWindowSeconds int `yaml:"silence_window_seconds"`

	// FailureThreshold is the number of consecutive process or
	// health failures that triggers a restart. Default 3.
	FailureThreshold int `yaml:"failure_threshold"`

	// MaxRestarts is the restart budget. A department that exhausts
	// it is permanently failed. Default 3.
	MaxRestarts int `yaml:"max_restarts"`
}

// Tick returns the supervision cadence as a duration.
func (c SupervisionConfig) Tick() time.Duration {
	return time.Duration(c.TickSeconds) * time.Second
}

// SilenceWindow returns the health silence window as a duration.
func (c SupervisionConfig) SilenceWindow() time.Duration {
	return time.Duration(c.SilenceWindowSeconds) * time.Second
}

// CouncilConfig configures recommendation evaluation policy. The
// numeric thresholds are product policy, not invariants: deployments
// tune them without touching code.
type CouncilConfig struct {
	// ApproveSimilarity is the similarity score above which a
	// consolidation can be approved. Default 70.
	ApproveSimilarity float64 `yaml:"approve_similarity"`

	// DeferSimilarity is the similarity score above which a
	// non-approvable consolidation is deferred instead of rejected.
	// Default 50.
	DeferSimilarity float64 `yaml:"defer_similarity"`

	// MinAnnualSavings is the savings floor for approving a
	// consolidation. Default 100000.
	MinAnnualSavings float64 `yaml:"min_annual_savings"`

	// ProtectedDepartments lists name substrings of critical
	// services whose termination is rejected unconditionally.
	ProtectedDepartments []string `yaml:"protected_departments"`

	// ApprovedTerminationReasons lists reason codes that approve a
	// termination outright.
	ApprovedTerminationReasons []string `yaml:"approved_termination_reasons"`
}

// RoutingConfig configures the routing table mirror.
type RoutingConfig struct {
	// SnapshotPath is where consumers persist their routing mirror.
	// Empty disables snapshots.
	SnapshotPath string `yaml:"snapshot_path"`

	// CategoryFallbacks maps a department category to the department
	// that absorbs its traffic after a termination.
	CategoryFallbacks map[string]string `yaml:"category_fallbacks"`

	// DefaultFallback absorbs traffic for categories with no entry
	// in CategoryFallbacks.
	DefaultFallback string `yaml:"default_fallback"`
}

// FallbackFor returns the fallback department for a category.
func (c RoutingConfig) FallbackFor(category string) string {
	if fallback, ok := c.CategoryFallbacks[category]; ok {
		return fallback
	}
	return c.DefaultFallback
}

// DispatchConfig configures the dispatch center.
type DispatchConfig struct {
	// CreationWaitSeconds bounds how long a request waits for a
	// missing department to be created before it is reported
	// undeliverable. Default 30.
	CreationWaitSeconds int `yaml:"creation_wait_seconds"`
}

// CreationWait returns the creation wait bound as a duration.
func (c DispatchConfig) CreationWait() time.Duration {
	return time.Duration(c.CreationWaitSeconds) * time.Second
}

// Default returns the configuration defaults. The supervision and
// council numbers match the original city policy; they are starting
// points, not guarantees.
func Default() *Config {
	return &Config{
		Environment: Development,
		Templates: TemplatesConfig{
			Dir: "templates",
		},
		Supervision: SupervisionConfig{
			TickSeconds:          30,
			SilenceWindowSeconds: 60,
			FailureThreshold:     3,
			MaxRestarts:          3,
		},
		Council: CouncilConfig{
			ApproveSimilarity:          70,
			DeferSimilarity:            50,
			MinAnnualSavings:           100000,
			ProtectedDepartments:       []string{"police", "fire", "emergency"},
			ApprovedTerminationReasons: []string{"redundant", "obsolete", "unused"},
		},
		Routing: RoutingConfig{
			CategoryFallbacks: map[string]string{
				"policing": "emergency-dispatch",
				"utility":  "public-works",
			},
			DefaultFallback: "emergency-dispatch",
		},
		Dispatch: DispatchConfig{
			CreationWaitSeconds: 30,
		},
	}
}

// Load reads the config file at path, or at $CITYSCAPE_CONFIG when
// path is empty, and applies environment overrides. When neither is
// set, the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CITYSCAPE_CONFIG")
	}

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// applyOverrides merges the section overrides for the configured
// environment into the base config.
func (c *Config) applyOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.Templates != nil {
		c.Templates = *overrides.Templates
	}
	if overrides.Supervision != nil {
		c.Supervision = *overrides.Supervision
	}
	if overrides.Council != nil {
		c.Council = *overrides.Council
	}
	if overrides.Routing != nil {
		c.Routing = *overrides.Routing
	}
	if overrides.Dispatch != nil {
		c.Dispatch = *overrides.Dispatch
	}
}

// Validate checks the loaded configuration for values the runtime
// cannot operate with.
func (c *Config) Validate() error {
	switch c.Environment {
	case Development, Staging, Production:
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	if c.Supervision.TickSeconds <= 0 {
		return fmt.Errorf("supervision.tick_seconds must be positive, got %d", c.Supervision.TickSeconds)
	}
	if c.Supervision.SilenceWindowSeconds <= 0 {
		return fmt.Errorf("supervision.silence_window_seconds must be positive, got %d", c.Supervision.SilenceWindowSeconds)
	}
	if c.Supervision.FailureThreshold <= 0 {
		return fmt.Errorf("supervision.failure_threshold must be positive, got %d", c.Supervision.FailureThreshold)
	}
	if c.Supervision.MaxRestarts < 0 {
		return fmt.Errorf("supervision.max_restarts must not be negative, got %d", c.Supervision.MaxRestarts)
	}
	if c.Council.DeferSimilarity > c.Council.ApproveSimilarity {
		return fmt.Errorf("council.defer_similarity (%v) must not exceed approve_similarity (%v)",
			c.Council.DeferSimilarity, c.Council.ApproveSimilarity)
	}
	if c.Routing.DefaultFallback == "" {
		return fmt.Errorf("routing.default_fallback is required")
	}
	if c.Dispatch.CreationWaitSeconds <= 0 {
		return fmt.Errorf("dispatch.creation_wait_seconds must be positive, got %d", c.Dispatch.CreationWaitSeconds)
	}
	return nil
}

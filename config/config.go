// Package config defines the application configuration, loaded from
// environment variables via github.com/caarlos0/env.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeScheduler runs the job scheduler tick loop.
	ServiceModeScheduler ServiceMode = "scheduler"
	// ServiceModeSnapshotter runs periodic state persistence.
	ServiceModeSnapshotter ServiceMode = "snapshotter"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration.
type AppConfig struct {
	// IsDev controls development mode behavior. In dev mode a scripted
	// job runner is wired so the scheduler can run standalone.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Services is the comma-delimited list of enabled services.
	Services string `env:"SERVICES" envDefault:"scheduler"`

	// Scheduler configuration, including the four tier tables.
	Scheduler SchedulerConfig

	// Redis configuration for the snapshot state store.
	Redis RedisConfig `envPrefix:"REDIS_"`

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment
// variables.
func (c *AppConfig) Sanitize() {
	c.Scheduler.Sanitize()
	c.Redis.Sanitize()
	c.Observability.Sanitize()
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsSchedulerEnabled returns true if the scheduler service is enabled.
func (c *AppConfig) IsSchedulerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeScheduler]
}

// IsSnapshotterEnabled returns true if the snapshotter service is enabled.
func (c *AppConfig) IsSnapshotterEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeSnapshotter]
}

// ParseServices parses a comma-delimited string of service names and
// returns the enabled services. It validates that all service names are
// valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeScheduler, ServiceModeSnapshotter:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: scheduler, snapshotter)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

package config

import (
	"time"

	"github.com/Rainking6693/autobolt-scheduler/internal/core"
	"github.com/Rainking6693/autobolt-scheduler/internal/domain/model"
)

// SchedulerConfig contains the scheduler service configuration, including
// the per-tier tables.
type SchedulerConfig struct {
	// Interval is the scheduler tick interval.
	Interval time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"30s"`

	// GlobalMaxConcurrent caps running jobs across all tiers.
	GlobalMaxConcurrent int `env:"SCHEDULER_GLOBAL_MAX_CONCURRENT" envDefault:"10"`

	// ResourceCeilingCPU/Memory/Network bound the aggregate estimated
	// cost of running jobs.
	ResourceCeilingCPU     float64 `env:"SCHEDULER_RESOURCE_CEILING_CPU"     envDefault:"100"`
	ResourceCeilingMemory  float64 `env:"SCHEDULER_RESOURCE_CEILING_MEMORY"  envDefault:"50"`
	ResourceCeilingNetwork float64 `env:"SCHEDULER_RESOURCE_CEILING_NETWORK" envDefault:"25"`

	// ArchiveCapacity bounds the terminal job archive.
	ArchiveCapacity int `env:"SCHEDULER_ARCHIVE_CAPACITY" envDefault:"500"`

	// SnapshotInterval is how often the snapshotter persists state.
	SnapshotInterval time.Duration `env:"SCHEDULER_SNAPSHOT_INTERVAL" envDefault:"1m"`

	// Per-tier settings.
	Enterprise   TierConfig `envPrefix:"TIER_ENTERPRISE_"`
	Professional TierConfig `envPrefix:"TIER_PROFESSIONAL_"`
	Growth       TierConfig `envPrefix:"TIER_GROWTH_"`
	Starter      TierConfig `envPrefix:"TIER_STARTER_"`
}

// TierConfig contains one package tier's scheduling parameters. Env
// defaults are zero so that unset tiers inherit the built-in defaults in
// Sanitize.
type TierConfig struct {
	PriorityRank      int           `env:"PRIORITY_RANK"`
	SLATarget         time.Duration `env:"SLA_TARGET"`
	MaxConcurrent     int           `env:"MAX_CONCURRENT"`
	ResourceShare     float64       `env:"RESOURCE_SHARE"`
	UrgencyMultiplier float64       `env:"URGENCY_MULTIPLIER"`
	MaxRetries        int           `env:"MAX_RETRIES" envDefault:"-1"`
	RetryBaseDelay    time.Duration `env:"RETRY_BASE_DELAY"`
	RetryMaxDelay     time.Duration `env:"RETRY_MAX_DELAY"`
	ExecutionTimeout  time.Duration `env:"EXECUTION_TIMEOUT"`
	WindowStartHour   int           `env:"WINDOW_START_HOUR"`
	WindowEndHour     int           `env:"WINDOW_END_HOUR"`
}

// Sanitize applies guardrails to scheduler configuration values.
func (s *SchedulerConfig) Sanitize() {
	if s.Interval <= 0 {
		s.Interval = 30 * time.Second
	}
	if s.GlobalMaxConcurrent < 1 {
		s.GlobalMaxConcurrent = 1
	}
	if s.ArchiveCapacity < 1 {
		s.ArchiveCapacity = 500
	}
	if s.SnapshotInterval <= 0 {
		s.SnapshotInterval = time.Minute
	}
}

// Build converts the env-level configuration into the runtime
// core.SchedulerConfig, filling unset tier fields from the defaults.
func (s *SchedulerConfig) Build() core.SchedulerConfig {
	defaults := core.DefaultSchedulerConfig()

	cfg := core.SchedulerConfig{
		GlobalMaxConcurrent: s.GlobalMaxConcurrent,
		ResourceCeiling: model.ResourceCost{
			CPU:     s.ResourceCeilingCPU,
			Memory:  s.ResourceCeilingMemory,
			Network: s.ResourceCeilingNetwork,
		},
		ArchiveCapacity: s.ArchiveCapacity,
		Tiers: map[model.PackageTier]model.TierSettings{
			model.TierEnterprise:   s.Enterprise.merge(defaults.Tiers[model.TierEnterprise]),
			model.TierProfessional: s.Professional.merge(defaults.Tiers[model.TierProfessional]),
			model.TierGrowth:       s.Growth.merge(defaults.Tiers[model.TierGrowth]),
			model.TierStarter:      s.Starter.merge(defaults.Tiers[model.TierStarter]),
		},
	}

	if cfg.ResourceCeiling.Total() <= 0 {
		cfg.ResourceCeiling = defaults.ResourceCeiling
	}
	return cfg
}

// merge overlays configured values on the tier defaults. Zero values mean
// "use the default"; MaxRetries uses -1 as its unset marker so an explicit
// zero (no retries) is expressible.
func (t TierConfig) merge(def model.TierSettings) model.TierSettings {
	out := def
	if t.PriorityRank > 0 {
		out.PriorityRank = t.PriorityRank
	}
	if t.SLATarget > 0 {
		out.SLATarget = t.SLATarget
	}
	if t.MaxConcurrent > 0 {
		out.MaxConcurrent = t.MaxConcurrent
	}
	if t.ResourceShare > 0 {
		out.ResourceShare = t.ResourceShare
	}
	if t.UrgencyMultiplier > 0 {
		out.UrgencyMultiplier = t.UrgencyMultiplier
	}
	if t.MaxRetries >= 0 {
		out.MaxRetries = t.MaxRetries
	}
	if t.RetryBaseDelay > 0 {
		out.RetryBaseDelay = t.RetryBaseDelay
	}
	if t.RetryMaxDelay > 0 {
		out.RetryMaxDelay = t.RetryMaxDelay
	}
	if t.ExecutionTimeout > 0 {
		out.ExecutionTimeout = t.ExecutionTimeout
	}
	if t.WindowStartHour != 0 || t.WindowEndHour != 0 {
		out.Window = model.ProcessingWindow{
			StartHour: t.WindowStartHour,
			EndHour:   t.WindowEndHour,
		}
	}
	return out
}

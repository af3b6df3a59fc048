package core

import (
	"time"

	"github.com/Rainking6693/autobolt-scheduler/internal/domain/model"
)

// SchedulerConfig holds the runtime configuration for the scheduler.
type SchedulerConfig struct {
	// GlobalMaxConcurrent caps running jobs across all tiers.
	GlobalMaxConcurrent int `json:"global_max_concurrent"`

	// ResourceCeiling bounds the aggregate estimated cost of running jobs.
	ResourceCeiling model.ResourceCost `json:"resource_ceiling"`

	// ArchiveCapacity bounds the terminal archive; oldest entries evict.
	ArchiveCapacity int `json:"archive_capacity"`

	// Tiers is the per-tier settings table. All four tiers must be present.
	Tiers map[model.PackageTier]model.TierSettings `json:"tiers"`

	// DisableJitter turns off score jitter for deterministic tests.
	DisableJitter bool `json:"disable_jitter,omitempty"`
}

// DefaultSchedulerConfig returns a SchedulerConfig with the standard four
// package tiers.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		GlobalMaxConcurrent: 10,
		ResourceCeiling:     model.ResourceCost{CPU: 100, Memory: 50, Network: 25},
		ArchiveCapacity:     500,
		Tiers: map[model.PackageTier]model.TierSettings{
			model.TierEnterprise: {
				PriorityRank:      1,
				SLATarget:         15 * time.Minute,
				MaxConcurrent:     5,
				ResourceShare:     0.4,
				UrgencyMultiplier: 3.0,
				MaxRetries:        5,
				RetryBaseDelay:    30 * time.Second,
				RetryMaxDelay:     5 * time.Minute,
				ExecutionTimeout:  10 * time.Minute,
				// Always-on window.
			},
			model.TierProfessional: {
				PriorityRank:      2,
				SLATarget:         time.Hour,
				MaxConcurrent:     3,
				ResourceShare:     0.3,
				UrgencyMultiplier: 2.0,
				MaxRetries:        3,
				RetryBaseDelay:    time.Minute,
				RetryMaxDelay:     10 * time.Minute,
				ExecutionTimeout:  15 * time.Minute,
			},
			model.TierGrowth: {
				PriorityRank:      3,
				SLATarget:         4 * time.Hour,
				MaxConcurrent:     2,
				ResourceShare:     0.2,
				UrgencyMultiplier: 1.5,
				MaxRetries:        2,
				RetryBaseDelay:    2 * time.Minute,
				RetryMaxDelay:     20 * time.Minute,
				ExecutionTimeout:  20 * time.Minute,
			},
			model.TierStarter: {
				PriorityRank:      4,
				SLATarget:         24 * time.Hour,
				MaxConcurrent:     1,
				ResourceShare:     0.1,
				UrgencyMultiplier: 1.0,
				MaxRetries:        1,
				RetryBaseDelay:    5 * time.Minute,
				RetryMaxDelay:     30 * time.Minute,
				ExecutionTimeout:  30 * time.Minute,
				// Starter work is dispatched off-peak only.
				Window: model.ProcessingWindow{StartHour: 22, EndHour: 6},
			},
		},
	}
}

// TopTier returns the tier with the lowest priority rank in the table.
// Preemption is reserved for jobs of this tier.
func (c SchedulerConfig) TopTier() model.PackageTier {
	var top model.PackageTier
	best := int(^uint(0) >> 1)
	for tier, settings := range c.Tiers {
		if settings.PriorityRank < best {
			best = settings.PriorityRank
			top = tier
		}
	}
	return top
}

// Package model defines the core data types used throughout the autobolt scheduler.
package model

import (
	"fmt"
	"strings"
	"time"
)

// PackageTier represents a customer package level that controls priority,
// concurrency, and SLA behaviour.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type PackageTier string

const (
	// TierEnterprise is the highest package tier.
	TierEnterprise PackageTier = "enterprise"
	// TierProfessional is the second-highest package tier.
	TierProfessional PackageTier = "professional"
	// TierGrowth is the mid package tier.
	TierGrowth PackageTier = "growth"
	// TierStarter is the entry package tier.
	TierStarter PackageTier = "starter"
)

// AllTiers returns the known tiers ordered from highest to lowest rank.
func AllTiers() []PackageTier {
	return []PackageTier{TierEnterprise, TierProfessional, TierGrowth, TierStarter}
}

// Valid returns true if the PackageTier is one of the four known tiers.
func (t PackageTier) Valid() bool {
	return t == TierEnterprise || t == TierProfessional || t == TierGrowth || t == TierStarter
}

// UnmarshalText implements encoding.TextUnmarshaler for PackageTier to allow env parsing.
func (t *PackageTier) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	pt := PackageTier(v)
	if pt.Valid() {
		*t = pt
		return nil
	}
	return fmt.Errorf("invalid PackageTier: %q", v)
}

// TierSettings holds the per-tier scheduling parameters supplied at
// construction time.
type TierSettings struct {
	// PriorityRank orders tiers; lower rank is served first (enterprise=1).
	PriorityRank int `json:"priority_rank"`

	// SLATarget is the maximum acceptable wait before a violation is flagged.
	SLATarget time.Duration `json:"sla_target"`

	// MaxConcurrent caps how many jobs of this tier may run at once.
	MaxConcurrent int `json:"max_concurrent"`

	// ResourceShare is the fraction (0-1] of the global resource budget
	// nominally reserved for this tier.
	ResourceShare float64 `json:"resource_share"`

	// UrgencyMultiplier scales how fast waiting time converts into a
	// priority boost.
	UrgencyMultiplier float64 `json:"urgency_multiplier"`

	// MaxRetries bounds how many times a transient failure is retried.
	MaxRetries int `json:"max_retries"`

	// RetryBaseDelay is the backoff base for the first retry.
	RetryBaseDelay time.Duration `json:"retry_base_delay"`

	// RetryMaxDelay caps the exponential backoff for this tier.
	RetryMaxDelay time.Duration `json:"retry_max_delay"`

	// ExecutionTimeout fails a running job as transient once exceeded.
	// Zero disables the watchdog for this tier.
	ExecutionTimeout time.Duration `json:"execution_timeout"`

	// Window restricts when jobs of this tier may be dispatched.
	Window ProcessingWindow `json:"window"`
}

// ProcessingWindow describes the wall-clock hours during which a tier's jobs
// may be dispatched. A zero window means always-on. StartHour may exceed
// EndHour, in which case the window wraps midnight (off-peak windows).
type ProcessingWindow struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// AlwaysOn reports whether the window imposes no restriction.
func (w ProcessingWindow) AlwaysOn() bool {
	return w.StartHour == 0 && w.EndHour == 0
}

// Contains reports whether the given time falls inside the window.
func (w ProcessingWindow) Contains(t time.Time) bool {
	if w.AlwaysOn() {
		return true
	}
	hour := t.Hour()
	if w.StartHour <= w.EndHour {
		return hour >= w.StartHour && hour < w.EndHour
	}
	// Window wraps midnight, e.g. 22 -> 6.
	return hour >= w.StartHour || hour < w.EndHour
}

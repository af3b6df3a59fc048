// Package sched contains the pure scheduling math: priority scoring, lane
// assignment, retry backoff, and resource-cost estimation. It has no
// dependencies on the service layer so the algorithms can be tested in
// isolation.
package sched

import (
	"hash/fnv"
	"time"

	"github.com/Rainking6693/autobolt-scheduler/internal/domain/model"
)

const (
	// maxUrgencyBoost caps how much waiting time can raise a score.
	maxUrgencyBoost = 5.0

	// jitterRange bounds the tie-break jitter added to every score.
	jitterRange = 0.1

	// tierBandWidth separates the base scores of adjacent tiers. It is
	// wider than maxUrgencyBoost so aging alone never crosses a tier band.
	tierBandWidth = 10.0

	// slaUrgentFraction of the SLA target after which a queued job is
	// forced into the urgent lane regardless of tier.
	slaUrgentFraction = 0.8
)

// Scorer computes effective priorities and lane assignments. Higher score
// wins; ties break FIFO on submission time in the dispatcher.
type Scorer struct {
	tiers         map[model.PackageTier]model.TierSettings
	jitterEnabled bool
}

// ScorerOptions configures a Scorer.
type ScorerOptions struct {
	Tiers map[model.PackageTier]model.TierSettings

	// DisableJitter makes scores exactly reproducible in tests.
	DisableJitter bool
}

// NewScorer constructs a Scorer for the given tier table.
func NewScorer(opts ScorerOptions) *Scorer {
	return &Scorer{
		tiers:         opts.Tiers,
		jitterEnabled: !opts.DisableJitter,
	}
}

// BasePriority derives the tier-band base score plus the caller hint.
// Rank 1 (enterprise) lands in the highest band.
func (s *Scorer) BasePriority(tier model.PackageTier, hint float64) float64 {
	settings, ok := s.tiers[tier]
	if !ok {
		return hint
	}
	bands := len(s.tiers)
	return float64(bands+1-settings.PriorityRank)*tierBandWidth + hint
}

// Score recomputes the effective priority of a job at the given time:
// base + urgency boost + per-job jitter. The jitter is derived from the job
// ID, so for a fixed job the score is monotonically non-decreasing as the
// wait grows.
func (s *Scorer) Score(job *model.Job, now time.Time) float64 {
	score := job.BasePriority + s.urgencyBoost(job, now)
	if s.jitterEnabled {
		score += jitterFor(job.ID)
	}
	return score
}

// urgencyBoost converts accumulated wait into a bounded score boost.
func (s *Scorer) urgencyBoost(job *model.Job, now time.Time) float64 {
	settings, ok := s.tiers[job.Tier]
	if !ok || settings.SLATarget <= 0 || settings.UrgencyMultiplier <= 0 {
		return 0
	}
	wait := job.WaitTime(now)
	if wait <= 0 {
		return 0
	}
	boost := wait.Minutes() / settings.SLATarget.Minutes() * settings.UrgencyMultiplier
	return min(maxUrgencyBoost, boost)
}

// AssignLane places a job in its lane. Any tier goes urgent once its wait
// passes the SLA-risk threshold; otherwise the tier mapping applies, with
// enterprise promoting from high to urgent on score.
func (s *Scorer) AssignLane(job *model.Job, now time.Time) model.Lane {
	if s.AtSLARisk(job, now) {
		return model.LaneUrgent
	}

	switch job.Tier {
	case model.TierEnterprise:
		// An enterprise job whose boost has consumed a meaningful share of
		// the cap is already aging; serve it from the urgent lane.
		if s.urgencyBoost(job, now) >= maxUrgencyBoost/2 {
			return model.LaneUrgent
		}
		return model.LaneHigh
	case model.TierProfessional:
		if s.urgencyBoost(job, now) >= maxUrgencyBoost/2 {
			return model.LaneHigh
		}
		return model.LaneMedium
	case model.TierGrowth:
		return model.LaneMedium
	case model.TierStarter:
		return model.LaneLow
	default:
		return model.LaneLow
	}
}

// AtSLARisk reports whether a queued job has waited past the urgent
// threshold (80% of its tier SLA target).
func (s *Scorer) AtSLARisk(job *model.Job, now time.Time) bool {
	settings, ok := s.tiers[job.Tier]
	if !ok || settings.SLATarget <= 0 {
		return false
	}
	return job.WaitTime(now) > time.Duration(slaUrgentFraction*float64(settings.SLATarget))
}

// SLAViolated reports whether a queued job has waited past the full SLA
// target for its tier.
func (s *Scorer) SLAViolated(job *model.Job, now time.Time) bool {
	settings, ok := s.tiers[job.Tier]
	if !ok || settings.SLATarget <= 0 {
		return false
	}
	return job.WaitTime(now) > settings.SLATarget
}

// jitterFor maps a job ID to a stable value in [0, jitterRange). A stable
// per-job offset breaks ties between equally aged jobs without making
// recomputed scores non-monotonic.
func jitterFor(id string) float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return float64(h.Sum64()%1000) / 1000.0 * jitterRange
}

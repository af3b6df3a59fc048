package sched_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rainking6693/autobolt-scheduler/internal/domain/model"
	"github.com/Rainking6693/autobolt-scheduler/internal/domain/sched"
)

func testTiers() map[model.PackageTier]model.TierSettings {
	return map[model.PackageTier]model.TierSettings{
		model.TierEnterprise: {
			PriorityRank:      1,
			SLATarget:         15 * time.Minute,
			UrgencyMultiplier: 3.0,
		},
		model.TierProfessional: {
			PriorityRank:      2,
			SLATarget:         time.Hour,
			UrgencyMultiplier: 2.0,
		},
		model.TierGrowth: {
			PriorityRank:      3,
			SLATarget:         4 * time.Hour,
			UrgencyMultiplier: 1.5,
		},
		model.TierStarter: {
			PriorityRank:      4,
			SLATarget:         24 * time.Hour,
			UrgencyMultiplier: 1.0,
		},
	}
}

func newScorer(disableJitter bool) *sched.Scorer {
	return sched.NewScorer(sched.ScorerOptions{
		Tiers:         testTiers(),
		DisableJitter: disableJitter,
	})
}

func queuedJob(id string, tier model.PackageTier, submittedAt time.Time) *model.Job {
	return &model.Job{
		ID:          id,
		Tier:        tier,
		SubmittedAt: submittedAt,
		State:       model.JobStateQueued,
	}
}

func TestBasePriority_TierOrdering(t *testing.T) {
	scorer := newScorer(true)

	enterprise := scorer.BasePriority(model.TierEnterprise, 0)
	professional := scorer.BasePriority(model.TierProfessional, 0)
	growth := scorer.BasePriority(model.TierGrowth, 0)
	starter := scorer.BasePriority(model.TierStarter, 0)

	assert.Greater(t, enterprise, professional)
	assert.Greater(t, professional, growth)
	assert.Greater(t, growth, starter)

	// Bands are wide enough that the maximum urgency boost (5) can never
	// push a lower tier past a fresh job of the tier above.
	assert.GreaterOrEqual(t, professional-growth, 5.0)
}

func TestBasePriority_HintAdds(t *testing.T) {
	scorer := newScorer(true)

	base := scorer.BasePriority(model.TierGrowth, 0)
	hinted := scorer.BasePriority(model.TierGrowth, 7)

	assert.InDelta(t, base+7, hinted, 1e-9)
}

func TestScore_MonotonicWithWait(t *testing.T) {
	// Jitter enabled on purpose: the per-job jitter is constant, so a
	// fixed job's score must still never decrease as it waits.
	scorer := newScorer(false)
	submitted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job := queuedJob("job-1", model.TierGrowth, submitted)
	job.BasePriority = scorer.BasePriority(job.Tier, 0)

	prev := scorer.Score(job, submitted)
	for _, wait := range []time.Duration{
		time.Minute, 30 * time.Minute, 2 * time.Hour, 8 * time.Hour, 48 * time.Hour,
	} {
		score := scorer.Score(job, submitted.Add(wait))
		assert.GreaterOrEqual(t, score, prev, "score decreased at wait %s", wait)
		prev = score
	}
}

func TestScore_UrgencyBoostCapped(t *testing.T) {
	scorer := newScorer(true)
	submitted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job := queuedJob("job-1", model.TierEnterprise, submitted)
	job.BasePriority = scorer.BasePriority(job.Tier, 0)

	// Far past the SLA target the boost saturates at 5.
	score := scorer.Score(job, submitted.Add(1000*time.Hour))
	assert.InDelta(t, job.BasePriority+5, score, 1e-9)
}

func TestScore_JitterIsStablePerJob(t *testing.T) {
	scorer := newScorer(false)
	submitted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := submitted.Add(time.Minute)

	job := queuedJob("job-1", model.TierStarter, submitted)
	job.BasePriority = scorer.BasePriority(job.Tier, 0)

	first := scorer.Score(job, now)
	second := scorer.Score(job, now)
	assert.InDelta(t, first, second, 1e-12)

	// The jitter stays strictly below the band spacing contribution.
	noJitter := newScorer(true).Score(job, now)
	assert.GreaterOrEqual(t, first, noJitter)
	assert.Less(t, first-noJitter, 0.1)
}

func TestAssignLane_FreshJobsByTier(t *testing.T) {
	scorer := newScorer(true)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := map[model.PackageTier]model.Lane{
		model.TierEnterprise:   model.LaneHigh,
		model.TierProfessional: model.LaneMedium,
		model.TierGrowth:       model.LaneMedium,
		model.TierStarter:      model.LaneLow,
	}

	for tier, want := range tests {
		job := queuedJob("job-"+string(tier), tier, now)
		job.BasePriority = scorer.BasePriority(tier, 0)
		assert.Equal(t, want, scorer.AssignLane(job, now), "tier %s", tier)
	}
}

func TestAssignLane_AgedEnterpriseGoesUrgent(t *testing.T) {
	scorer := newScorer(true)
	submitted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job := queuedJob("job-1", model.TierEnterprise, submitted)

	// Boost 2.5 of cap 5 needs wait/SLA * 3 >= 2.5, i.e. 12.5 minutes.
	assert.Equal(t, model.LaneHigh, scorer.AssignLane(job, submitted.Add(10*time.Minute)))
	assert.Equal(t, model.LaneUrgent, scorer.AssignLane(job, submitted.Add(13*time.Minute)))
}

func TestAssignLane_AgedProfessionalGoesHigh(t *testing.T) {
	scorer := newScorer(true)
	submitted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job := queuedJob("job-1", model.TierProfessional, submitted)

	assert.Equal(t, model.LaneMedium, scorer.AssignLane(job, submitted.Add(30*time.Minute)))
	// Boost 2.5 needs wait/60m * 2 >= 2.5, i.e. 75 minutes, but at 48
	// minutes the job already crosses the SLA-risk threshold (80% of 1h).
	assert.Equal(t, model.LaneUrgent, scorer.AssignLane(job, submitted.Add(50*time.Minute)))
}

func TestAssignLane_AnyTierGoesUrgentAtSLARisk(t *testing.T) {
	scorer := newScorer(true)
	submitted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job := queuedJob("job-1", model.TierStarter, submitted)

	// 80% of the 24h starter SLA target.
	assert.Equal(t, model.LaneLow, scorer.AssignLane(job, submitted.Add(19*time.Hour)))
	assert.Equal(t, model.LaneUrgent, scorer.AssignLane(job, submitted.Add(20*time.Hour)))
}

func TestAtSLARisk(t *testing.T) {
	scorer := newScorer(true)
	submitted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job := queuedJob("job-1", model.TierEnterprise, submitted)

	// Threshold is 80% of 15m = 12m, strict.
	require.False(t, scorer.AtSLARisk(job, submitted.Add(12*time.Minute)))
	require.True(t, scorer.AtSLARisk(job, submitted.Add(12*time.Minute+time.Second)))
}

func TestSLAViolated(t *testing.T) {
	scorer := newScorer(true)
	submitted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job := queuedJob("job-1", model.TierEnterprise, submitted)

	require.False(t, scorer.SLAViolated(job, submitted.Add(15*time.Minute)))
	require.True(t, scorer.SLAViolated(job, submitted.Add(15*time.Minute+time.Second)))
}

func TestScore_UnknownTierHasNoBoost(t *testing.T) {
	scorer := newScorer(true)
	submitted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job := queuedJob("job-1", model.PackageTier("mystery"), submitted)
	job.BasePriority = 3

	assert.InDelta(t, 3, scorer.Score(job, submitted.Add(10*time.Hour)), 1e-9)
	assert.Equal(t, model.LaneLow, scorer.AssignLane(job, submitted))
}

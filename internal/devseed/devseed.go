// Package devseed submits a representative batch of jobs in development
// mode so the scheduler has work to chew on without an upstream producer.
package devseed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Rainking6693/autobolt-scheduler/internal/core"
	"github.com/Rainking6693/autobolt-scheduler/internal/domain/model"
)

type jobSeedSpec struct {
	tier    model.PackageTier
	kind    string
	target  string
	hint    float64
	payload map[string]any
}

func defaultJobSeeds() []jobSeedSpec {
	return []jobSeedSpec{
		{
			tier:   model.TierEnterprise,
			kind:   "directory_submission",
			target: "google-business-profile",
			hint:   20,
			payload: map[string]any{
				"business_name": "Acme Plumbing Co",
				"category":      "plumber",
			},
		},
		{
			tier:   model.TierEnterprise,
			kind:   "directory_submission",
			target: "yelp",
			payload: map[string]any{
				"business_name": "Acme Plumbing Co",
			},
		},
		{
			tier:   model.TierProfessional,
			kind:   "directory_submission",
			target: "yellowpages",
			hint:   10,
			payload: map[string]any{
				"business_name": "Bayside Dental",
			},
		},
		{
			tier:   model.TierGrowth,
			kind:   "directory_submission",
			target: "foursquare",
			payload: map[string]any{
				"business_name": "Corner Bakery",
			},
		},
		{
			tier:   model.TierStarter,
			kind:   "directory_submission",
			target: "hotfrog",
			payload: map[string]any{
				"business_name": "Quiet Pines B&B",
			},
		},
	}
}

// Run submits the default development job batch to the scheduler.
func Run(ctx context.Context, scheduler core.JobScheduler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	for _, spec := range defaultJobSeeds() {
		payload, err := json.Marshal(map[string]any{
			"kind":      spec.kind,
			"directory": spec.target,
			"fields":    spec.payload,
		})
		if err != nil {
			return fmt.Errorf("encode seed payload for %s: %w", spec.target, err)
		}

		id, err := scheduler.Submit(ctx, model.SubmitRequest{
			Tier:         spec.tier,
			Payload:      payload,
			PriorityHint: spec.hint,
		})
		if err != nil {
			return fmt.Errorf("seed %s job for %s: %w", spec.tier, spec.target, err)
		}

		logger.Info("seeded dev job",
			"job_id", id,
			"tier", spec.tier,
			"directory", spec.target,
		)
	}

	logger.Info("development seeding complete", "jobs", len(defaultJobSeeds()))
	return nil
}

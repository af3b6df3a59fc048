package sched

import (
	"github.com/Rainking6693/autobolt-scheduler/internal/domain/model"
)

// payloadUnit is the payload size in bytes that costs one additional
// resource unit beyond the floor.
const payloadUnit = 4096

// EstimateCost derives a job's resource cost from its payload size and tier.
// Every job carries a floor of one unit per component so that zero-payload
// jobs still consume budget; larger payloads scale cost linearly, and a
// tier's resource share discounts tiers that reserve less of the budget.
func EstimateCost(payloadBytes int, settings model.TierSettings) model.ResourceCost {
	if payloadBytes < 0 {
		payloadBytes = 0
	}

	units := 1 + float64(payloadBytes)/payloadUnit

	share := settings.ResourceShare
	if share <= 0 || share > 1 {
		share = 1
	}
	// A tier reserving half the budget pays full freight; smaller shares
	// scale down so low tiers cannot starve the ceiling with one job.
	scale := 0.5 + share

	return model.ResourceCost{
		CPU:     units * scale,
		Memory:  units * scale * 0.5,
		Network: units * scale * 0.25,
	}
}

package sched

import (
	"time"

	"github.com/Rainking6693/autobolt-scheduler/internal/domain/model"
)

// maxBackoffShift bounds the exponent so the shift below cannot overflow.
const maxBackoffShift = 16

// RetryDelay computes the exponential backoff before a retried job becomes
// eligible again: base * 2^retryCount, capped at the tier maximum.
// retryCount is the job's count after the increment for the failed attempt.
func RetryDelay(settings model.TierSettings, retryCount int) time.Duration {
	base := settings.RetryBaseDelay
	if base <= 0 {
		return 0
	}

	shift := retryCount
	if shift < 0 {
		shift = 0
	}
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}

	delay := base << shift
	if settings.RetryMaxDelay > 0 && delay > settings.RetryMaxDelay {
		delay = settings.RetryMaxDelay
	}
	return delay
}

// RetriesExhausted reports whether a job that just failed transiently has no
// retry budget left under its tier settings.
func RetriesExhausted(settings model.TierSettings, retryCount int) bool {
	return retryCount >= settings.MaxRetries
}

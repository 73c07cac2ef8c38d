package goals

import "errors"

var (
	// ErrPerformanceOverflow is returned by ApplyDelta when the new value would
	// exceed MaxPerformance. Aggregator turns it into an overflow result.
	ErrPerformanceOverflow = errors.New("performance overflow")

	// ErrNegativeDelta rejects contributions that would lower performance.
	ErrNegativeDelta = errors.New("performance delta must not be negative")

	// ErrNegativeTarget rejects goals below zero.
	ErrNegativeTarget = errors.New("target amount must not be negative")

	// ErrInvalidKey wraps every PerformanceKey validation failure.
	ErrInvalidKey = errors.New("invalid performance key")

	// ErrNoGoalMapping is returned for a sale category with no target mapping.
	ErrNoGoalMapping = errors.New("sale category has no goal mapping")

	// ErrRetriesExhausted is returned when every compare-and-swap attempt lost.
	ErrRetriesExhausted = errors.New("performance update retries exhausted")
)

// OverflowReason is the ContributionResult.Reason for a capped contribution.
const OverflowReason = "overflow"

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNegativeDelta) ||
		errors.Is(err, ErrNegativeTarget) ||
		errors.Is(err, ErrInvalidKey) ||
		errors.Is(err, ErrNoGoalMapping)
}

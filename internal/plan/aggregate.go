package plan

import "pacekeeper/run-tracker/internal/domain"

// SumMovingTime totals moving-time seconds across activities.
// Zero on an empty slice; input order does not matter.
func SumMovingTime(activities []domain.Activity) int64 {
	var total int64
	for _, a := range activities {
		total += a.MovingTimeSec
	}
	return total
}

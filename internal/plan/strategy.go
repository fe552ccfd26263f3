package plan

import (
	"math"
	"time"

	"pacekeeper/run-tracker/internal/domain"
)

// DefaultWeekProgressionMultiplier is applied by the rollover when the user
// has no active strategy (or a strategy without a multiplier).
const DefaultWeekProgressionMultiplier = 1.1

// WeekIndex is the number of calendar weeks between the strategy's anchor
// week and the week containing now. Index 0 is the anchor week itself; a
// negative index means the strategy has not started yet.
func WeekIndex(s *domain.ProgressionStrategy, now time.Time, loc *time.Location) int {
	return WeeksBetween(s.AnchorDate, now, loc)
}

// IsDeloadWeek reports whether the week at offsetWeeks from now is a
// scheduled recovery week for the strategy. Deload requires BOTH
// DeloadEveryNWeeks and DeloadMultiplier to be configured. The anchor week
// (index 0) is never a deload week: growth starts fresh, recovery is
// periodic thereafter.
func IsDeloadWeek(s *domain.ProgressionStrategy, now time.Time, loc *time.Location, offsetWeeks int) bool {
	if s == nil || s.DeloadEveryNWeeks == nil || s.DeloadMultiplier == nil {
		return false
	}
	every := *s.DeloadEveryNWeeks
	if every <= 0 {
		return false
	}
	index := WeekIndex(s, now, loc)
	if index < 0 {
		// Strategy has not started.
		return false
	}
	index += offsetWeeks
	return index > 0 && index%every == 0
}

// isDeloadOffset classifies a week purely by its offset from the strategy
// start. Used by projections, where week 0 is the projection baseline.
func isDeloadOffset(week int, every *int) bool {
	return every != nil && *every > 0 && week > 0 && week%*every == 0
}

// ProjectedVolumeAtWeek returns the projected weekly volume (seconds) at the
// given week offset, starting from startSeconds at week 0 and compounding by
// the strategy's weekly multiplier until the cap, then clamping. Deload weeks
// dip to base*deloadMultiplier but do NOT carry into later weeks: every week
// is recomputed from the un-deloaded exponential baseline.
// Degenerate inputs (no cap, multiplier unset or below 1, non-positive
// baseline, negative week) yield 0 rather than an error so UI layers can
// render "not computable".
func ProjectedVolumeAtWeek(s *domain.ProgressionStrategy, startSeconds float64, week int) float64 {
	if s == nil || s.CapTargetSeconds == nil ||
		s.WeekProgressionMultiplier == nil || *s.WeekProgressionMultiplier < 1 ||
		startSeconds <= 0 || week < 0 {
		return 0
	}
	capSeconds := *s.CapTargetSeconds

	base := startSeconds * math.Pow(*s.WeekProgressionMultiplier, float64(week))
	deloaded := isDeloadOffset(week, s.DeloadEveryNWeeks)

	if base >= capSeconds {
		if deloaded && s.DeloadMultiplier != nil {
			return math.Max(0, capSeconds**s.DeloadMultiplier)
		}
		return capSeconds
	}
	if deloaded && s.DeloadMultiplier != nil {
		return math.Max(0, base**s.DeloadMultiplier)
	}
	return base
}

// WeeksToReachCap estimates how many weeks of compounding it takes to grow
// from baselineSeconds to the strategy's cap: ceil(log(cap/base)/log(m)).
// Returns +Inf when no feasible plan exists (no cap, multiplier unset or
// below 1, non-positive baseline) and 0 when the baseline already meets the
// cap.
//
// This is a display estimate, not a simulation: deload weeks are sparse
// perturbations on the dominant exponential trend and are ignored, so the
// actual week count may be slightly higher when deload is configured.
func WeeksToReachCap(s *domain.ProgressionStrategy, baselineSeconds float64) float64 {
	if s == nil || s.CapTargetSeconds == nil ||
		s.WeekProgressionMultiplier == nil || *s.WeekProgressionMultiplier < 1 ||
		baselineSeconds <= 0 {
		return math.Inf(1)
	}
	capSeconds := *s.CapTargetSeconds
	if baselineSeconds >= capSeconds {
		return 0
	}
	return math.Ceil(math.Log(capSeconds/baselineSeconds) / math.Log(*s.WeekProgressionMultiplier))
}

package plan

import (
	"math"
	"testing"
	"time"

	"pacekeeper/run-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
)

func f64(v float64) *float64 { return &v }
func iptr(v int) *int        { return &v }

// anchor is a Sunday-midnight boundary; "now" values below are relative to it.
var anchor = time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)

func testStrategy() *domain.ProgressionStrategy {
	return &domain.ProgressionStrategy{
		Name:                      "marathon block",
		AnchorDate:                anchor,
		WeekProgressionMultiplier: f64(1.1),
		CapTargetSeconds:          f64(18000),
		DeloadEveryNWeeks:         iptr(4),
		DeloadMultiplier:          f64(0.6),
	}
}

func TestWeekIndex(t *testing.T) {
	s := testStrategy()

	assert.Equal(t, 0, WeekIndex(s, anchor.Add(2*time.Hour), time.UTC))
	assert.Equal(t, 1, WeekIndex(s, anchor.AddDate(0, 0, 7), time.UTC))
	assert.Equal(t, 4, WeekIndex(s, anchor.AddDate(0, 0, 28+3), time.UTC))
	assert.Equal(t, -1, WeekIndex(s, anchor.AddDate(0, 0, -2), time.UTC))
}

func TestIsDeloadWeek(t *testing.T) {
	s := testStrategy()

	tests := []struct {
		name   string
		now    time.Time
		offset int
		want   bool
	}{
		{"anchor week is never deload", anchor.Add(time.Hour), 0, false},
		{"week 4 is deload", anchor.AddDate(0, 0, 28), 0, true},
		{"week 5 is not", anchor.AddDate(0, 0, 35), 0, false},
		{"week 8 is deload", anchor.AddDate(0, 0, 56), 0, true},
		{"before the anchor nothing deloads", anchor.AddDate(0, 0, -7), 0, false},
		{"offset shifts the evaluated week", anchor.AddDate(0, 0, 21), 1, true},
		{"offset from anchor week", anchor.Add(time.Hour), 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDeloadWeek(s, tt.now, time.UTC, tt.offset))
		})
	}

	t.Run("requires both deload fields", func(t *testing.T) {
		noInterval := testStrategy()
		noInterval.DeloadEveryNWeeks = nil
		assert.False(t, IsDeloadWeek(noInterval, anchor.AddDate(0, 0, 28), time.UTC, 0))

		noMultiplier := testStrategy()
		noMultiplier.DeloadMultiplier = nil
		assert.False(t, IsDeloadWeek(noMultiplier, anchor.AddDate(0, 0, 28), time.UTC, 0))
	})

	t.Run("nil strategy", func(t *testing.T) {
		assert.False(t, IsDeloadWeek(nil, anchor, time.UTC, 0))
	})
}

func TestProjectedVolumeAtWeek(t *testing.T) {
	s := testStrategy()
	const start = 9000.0

	assert.InDelta(t, 9000, ProjectedVolumeAtWeek(s, start, 0), 0.01)
	assert.InDelta(t, 9900, ProjectedVolumeAtWeek(s, start, 1), 0.01)

	// Week 4 dips to 60% of the exponential baseline...
	assert.InDelta(t, 9000*math.Pow(1.1, 4)*0.6, ProjectedVolumeAtWeek(s, start, 4), 0.01)
	// ...and week 5 rebounds to the un-deloaded curve, not 1.1x the dip.
	assert.InDelta(t, 9000*math.Pow(1.1, 5), ProjectedVolumeAtWeek(s, start, 5), 0.01)

	// 9000 * 1.1^8 exceeds the 18000 cap; the projection clamps there.
	assert.InDelta(t, 18000, ProjectedVolumeAtWeek(s, start, 8), 0.01)
	assert.InDelta(t, 18000, ProjectedVolumeAtWeek(s, start, 20), 0.01)

	// A deload week above the cap dips from the cap, not the raw exponential.
	assert.InDelta(t, 18000*0.6, ProjectedVolumeAtWeek(s, start, 12), 0.01)
}

func TestProjectedVolumeAtWeekDegenerate(t *testing.T) {
	s := testStrategy()

	noCap := testStrategy()
	noCap.CapTargetSeconds = nil
	assert.Zero(t, ProjectedVolumeAtWeek(noCap, 9000, 3))

	shrinking := testStrategy()
	shrinking.WeekProgressionMultiplier = f64(0.9)
	assert.Zero(t, ProjectedVolumeAtWeek(shrinking, 9000, 3))

	assert.Zero(t, ProjectedVolumeAtWeek(s, 0, 3))
	assert.Zero(t, ProjectedVolumeAtWeek(s, 9000, -1))
	assert.Zero(t, ProjectedVolumeAtWeek(nil, 9000, 3))
}

func TestWeeksToReachCap(t *testing.T) {
	s := testStrategy()

	// log(18000/9000)/log(1.1) = 7.27, so the cap is reached in week 8.
	assert.Equal(t, 8.0, WeeksToReachCap(s, 9000))

	assert.Equal(t, 0.0, WeeksToReachCap(s, 18000))
	assert.Equal(t, 0.0, WeeksToReachCap(s, 25000))

	shrinking := testStrategy()
	shrinking.WeekProgressionMultiplier = f64(0.9)
	assert.True(t, math.IsInf(WeeksToReachCap(shrinking, 9000), 1))

	noCap := testStrategy()
	noCap.CapTargetSeconds = nil
	assert.True(t, math.IsInf(WeeksToReachCap(noCap, 9000), 1))

	assert.True(t, math.IsInf(WeeksToReachCap(s, 0), 1))
	assert.True(t, math.IsInf(WeeksToReachCap(nil, 9000), 1))
}

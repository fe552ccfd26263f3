package plan

import (
	"testing"

	"pacekeeper/run-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestSumMovingTime(t *testing.T) {
	assert.Zero(t, SumMovingTime(nil))
	assert.Equal(t, int64(5400), SumMovingTime([]domain.Activity{
		{MovingTimeSec: 1800},
		{MovingTimeSec: 3600},
	}))
}

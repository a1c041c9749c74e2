package timeout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextLifecycleCounts(t *testing.T) {
	for budget := uint32(1); budget <= 40; budget++ {
		var (
			tm                      Timeout
			lc                      Lifecycle
			started, updated, ended int
		)
		for i := uint32(0); i < budget+1; i++ {
			tm, lc = Next(tm, budget)
			switch lc {
			case Started:
				started++
			case Updated:
				updated++
			case Ended:
				ended++
			}
		}

		require.Equal(t, 1, started, "budget %d", budget)
		require.Equal(t, int(budget-1), updated, "budget %d", budget)
		require.Equal(t, 1, ended, "budget %d", budget)
		require.Equal(t, Ended, lc, "budget %d must end on the last poll", budget)
	}
}

func TestNextStaysEnded(t *testing.T) {
	tm := Timeout{Current: 15, Started: true}

	next, lc := Next(tm, 15)
	assert.Equal(t, Ended, lc)
	assert.Equal(t, tm, next)

	_, lc = Next(next, 15)
	assert.Equal(t, Ended, lc)
}

func TestNextUpdatesCurrentAndTotal(t *testing.T) {
	tm, lc := Next(Timeout{}, 10)
	assert.Equal(t, Started, lc)
	assert.Equal(t, Timeout{Started: true}, tm)

	tm, lc = Next(tm, 10)
	assert.Equal(t, Updated, lc)
	assert.Equal(t, uint32(1), tm.Current)
	assert.Equal(t, uint32(1), tm.Total)

	tm = tm.WithCurrent(0)
	tm, lc = Next(tm, 10)
	assert.Equal(t, Updated, lc)
	assert.Equal(t, uint32(1), tm.Current)
	assert.Equal(t, uint32(2), tm.Total)
}

func TestWithCurrentForcesEnd(t *testing.T) {
	tm, _ := Next(Timeout{}, 5)

	_, lc := Next(tm.WithCurrent(5), 5)
	assert.Equal(t, Ended, lc)
}

func TestUnstartedRestarts(t *testing.T) {
	tm, _ := Next(Timeout{}, 5)
	tm, _ = Next(tm, 5)

	tm, lc := Next(tm.Unstarted(), 5)
	assert.Equal(t, Started, lc)
	assert.Equal(t, uint32(0), tm.Current)
}

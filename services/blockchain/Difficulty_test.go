package blockchain

import (
	"testing"

	"github.com/avercoin/avercore/chaincfg"
	"github.com/avercoin/avercore/model"
	"github.com/avercoin/avercore/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDifficulty(t *testing.T) *Difficulty {
	t.Helper()

	params := chaincfg.MainNetParams.Copy()

	return NewDifficulty(params, ulogger.TestLogger{})
}

func blockAt(index uint64, timestamp float64) *model.Block {
	return &model.Block{Index: index, Timestamp: timestamp}
}

func TestLeadingZeros(t *testing.T) {
	assert.Equal(t, 0, LeadingZeros(""))
	assert.Equal(t, 0, LeadingZeros("a000"))
	assert.Equal(t, 3, LeadingZeros("000a"))
	assert.Equal(t, 4, LeadingZeros("0000"))
}

func TestDifficulty_ImpliedDifficulty(t *testing.T) {
	d := newTestDifficulty(t)

	assert.Equal(t, 4, d.ImpliedDifficulty("00ab"))
	assert.Equal(t, 4, d.ImpliedDifficulty("AverCoin is a future"))
	assert.Equal(t, 6, d.ImpliedDifficulty("000000ab"))
}

func TestDifficulty_MeanBlockTime(t *testing.T) {
	d := newTestDifficulty(t)

	t.Run("empty", func(t *testing.T) {
		assert.InDelta(t, 60.0, d.MeanBlockTime(nil), 0)
	})

	t.Run("skips genesis and long intervals", func(t *testing.T) {
		// intervals 30 and 60 count, 910 is above MaxChangingInt, divisor is 4
		blocks := []*model.Block{
			blockAt(3, 1000),
			blockAt(0, 1725615747),
			blockAt(2, 90),
			blockAt(1, 30),
		}

		assert.InDelta(t, 22.5, d.MeanBlockTime(blocks), 1e-9)
	})

	t.Run("first interval is measured from zero", func(t *testing.T) {
		blocks := []*model.Block{
			blockAt(0, 0),
			blockAt(1, 1725615747),
			blockAt(2, 1725615807),
		}

		assert.InDelta(t, 20.0, d.MeanBlockTime(blocks), 1e-9)
	})
}

func TestDifficulty_Retarget(t *testing.T) {
	d := newTestDifficulty(t)

	blocks := []*model.Block{
		blockAt(0, 0),
		blockAt(1, 30),
		blockAt(2, 90),
		blockAt(3, 1000),
	}

	// int(4 + 5*1 - 1*(22.5/60))
	assert.Equal(t, 8, d.Retarget(5, blocks))

	// slow blocks lower the difficulty below the floor, which is not clamped
	slow := []*model.Block{blockAt(0, 0), blockAt(1, 599), blockAt(2, 1198)}
	assert.Equal(t, -2, d.Retarget(0, slow))
}

func TestDifficulty_RequiredDifficulty(t *testing.T) {
	d := newTestDifficulty(t)

	history := []*model.Block{
		blockAt(0, 0),
		blockAt(1, 30),
		blockAt(2, 90),
		blockAt(3, 1000),
	}

	t.Run("between boundaries", func(t *testing.T) {
		next := &model.Block{Index: 3, PreviousHash: "000000ab"}
		require.Equal(t, 6, d.RequiredDifficulty(next, history))
	})

	t.Run("on a boundary", func(t *testing.T) {
		next := &model.Block{Index: 10, PreviousHash: "000000ab"}
		require.True(t, d.IsRetargetBoundary(next.Index))
		require.Equal(t, d.Retarget(6, history), d.RequiredDifficulty(next, history))
		require.Equal(t, 9, d.RequiredDifficulty(next, history))
	})
}

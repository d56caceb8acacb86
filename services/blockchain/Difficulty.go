package blockchain

import (
	"sort"

	"github.com/avercoin/avercore/chaincfg"
	"github.com/avercoin/avercore/model"
	"github.com/avercoin/avercore/ulogger"
)

// Difficulty derives the number of leading zero hex digits a block hash needs.
//
// Between retarget boundaries the requirement is whatever the parent's hash
// happens to satisfy. On a boundary (index % ChangingDiffTime == 0) it is
// adjusted from the mean block time of the branch.
type Difficulty struct {
	logger ulogger.Logger
	params *chaincfg.Params
}

func NewDifficulty(params *chaincfg.Params, logger ulogger.Logger) *Difficulty {
	return &Difficulty{
		logger: logger,
		params: params,
	}
}

// ImpliedDifficulty returns the number of leading zero hex digits of hash,
// never less than MinMiningDifficulty.
func (d *Difficulty) ImpliedDifficulty(hash string) int {
	zeros := LeadingZeros(hash)
	if zeros < d.params.MinMiningDifficulty {
		return d.params.MinMiningDifficulty
	}

	return zeros
}

// MeanBlockTime averages the intervals between consecutive blocks, skipping
// genesis. The first interval is measured from time 0, and intervals of
// MaxChangingInt seconds or more are left out of the sum but not out of the
// divisor, which is the number of blocks passed in.
func (d *Difficulty) MeanBlockTime(blocks []*model.Block) float64 {
	if len(blocks) == 0 {
		return d.params.BlockTime
	}

	ordered := make([]*model.Block, len(blocks))
	copy(ordered, blocks)

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})

	var (
		sum      float64
		previous float64
	)

	for _, b := range ordered {
		if b.Index == 0 {
			continue
		}

		interval := b.Timestamp - previous
		if interval < d.params.MaxChangingInt {
			sum += interval
		}

		previous = b.Timestamp
	}

	return sum / float64(len(ordered))
}

// Retarget adjusts previousDifficulty by how the mean block time of blocks
// compares to BlockTime. The result is truncated and not clamped.
func (d *Difficulty) Retarget(previousDifficulty int, blocks []*model.Block) int {
	mean := d.MeanBlockTime(blocks)

	return int(float64(d.params.MinMiningDifficulty) +
		float64(previousDifficulty)*d.params.MaxChangingDiff -
		d.params.MaxChangingDiff*(mean/d.params.BlockTime))
}

// IsRetargetBoundary reports whether the block at index gets a retargeted difficulty.
func (d *Difficulty) IsRetargetBoundary(index uint64) bool {
	return index%d.params.ChangingDiffTime == 0
}

// RequiredDifficulty returns the difficulty next has to meet. history is the
// branch from genesis to next's parent and is only read on a retarget
// boundary.
func (d *Difficulty) RequiredDifficulty(next *model.Block, history []*model.Block) int {
	implied := d.ImpliedDifficulty(next.PreviousHash)

	if !d.IsRetargetBoundary(next.Index) {
		return implied
	}

	required := d.Retarget(implied, history)

	d.logger.Debugf("[RequiredDifficulty][%d] retarget from %d to %d over %d blocks", next.Index, implied, required, len(history))

	return required
}

// LeadingZeros counts the leading '0' characters of a hex hash.
func LeadingZeros(hash string) int {
	for i := 0; i < len(hash); i++ {
		if hash[i] != '0' {
			return i
		}
	}

	return len(hash)
}

package chaincfg

import (
	"testing"

	"github.com/avercoin/avercore/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetChainParams(t *testing.T) {
	for _, name := range Networks() {
		t.Run(name, func(t *testing.T) {
			params, err := GetChainParams(name)
			require.NoError(t, err)
			require.Equal(t, name, params.Name)
			require.NoError(t, params.Validate())
		})
	}

	_, err := GetChainParams("stn")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestCopyDoesNotTouchRegisteredNetwork(t *testing.T) {
	params := RegressionNetParams.Copy()
	params.Genesis.Address = "02abc"
	params.MinMiningDifficulty = 7

	assert.NotEqual(t, "02abc", RegressionNetParams.Genesis.Address)
	assert.Equal(t, 0, RegressionNetParams.MinMiningDifficulty)
}

func TestRewardCap(t *testing.T) {
	params := MainNetParams.Copy()
	params.CoinbaseReward = 50
	params.CoinbaseRewardAfter = 1
	params.MaxSupply = 500

	assert.Equal(t, uint64(50), params.RewardCap(0))
	assert.Equal(t, uint64(50), params.RewardCap(10))
	assert.Equal(t, uint64(1), params.RewardCap(11))

	params.CoinbaseReward = 0
	assert.Equal(t, uint64(1), params.RewardCap(0))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Params)
	}{
		{"zero block time", func(p *Params) { p.BlockTime = 0 }},
		{"zero retarget period", func(p *Params) { p.ChangingDiffTime = 0 }},
		{"no transactions allowed", func(p *Params) { p.MaxTransactionsPerBlock = 0 }},
		{"unknown pow", func(p *Params) { p.ProofOfWork = "sha3" }},
		{"unknown balance policy", func(p *Params) { p.BalancePolicy = "lenient" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := MainNetParams.Copy()
			tt.modify(params)
			require.Error(t, params.Validate())
		})
	}
}

package settings

import (
	"time"

	"github.com/avercoin/avercore/chaincfg"
)

// NewSettings reads the settings from gocore configuration (settings.conf,
// settings_local.conf and the environment). It panics on an unknown network or
// inconsistent chain parameters.
func NewSettings() *Settings {
	network := getString("network", "mainnet")

	params, err := chaincfg.GetChainParams(network)
	if err != nil {
		panic(err)
	}

	params = overrideChainParams(params)
	if err = params.Validate(); err != nil {
		panic(err)
	}

	return &Settings{
		ClientName:     getString("clientName", "avercore"),
		LogLevel:       getString("logLevel", "INFO"),
		LoggerType:     getString("logger", "zerolog"),
		ChainCfgParams: params,
		BlockChain: BlockChainSettings{
			InvalidBlockCacheTTL: getDuration("blockchain_invalidBlockCacheTTL", 10*time.Minute),
			MetricsEnabled:       getBool("blockchain_metricsEnabled", true),
		},
		BlockFile: BlockFileSettings{
			Dir:         getString("blockfile_dir", "./blocks"),
			Concurrency: getInt("blockfile_concurrency", 16),
		},
	}
}

// overrideChainParams returns a copy of params with every chain_* key that is
// set in the configuration applied on top.
func overrideChainParams(params *chaincfg.Params) *chaincfg.Params {
	p := params.Copy()

	p.BlockTime = getFloat64("chain_blockTime", p.BlockTime)
	p.MinMiningDifficulty = getInt("chain_minMiningDifficulty", p.MinMiningDifficulty)
	p.MaxChangingDiff = getFloat64("chain_maxChangingDiff", p.MaxChangingDiff)
	p.MaxChangingInt = getFloat64("chain_maxChangingInt", p.MaxChangingInt)
	p.ChangingDiffTime = getUint64("chain_changingDiffTime", p.ChangingDiffTime)
	p.CoinbaseReward = getUint64("chain_coinbaseReward", p.CoinbaseReward)
	p.CoinbaseRewardAfter = getUint64("chain_coinbaseRewardAfter", p.CoinbaseRewardAfter)
	p.MaxSupply = getUint64("chain_maxSupply", p.MaxSupply)
	p.MaxTransactionsPerBlock = getInt("chain_maxTransactionsPerBlock", p.MaxTransactionsPerBlock)
	p.MinTransactionAmount = getUint64("chain_minTransactionAmount", p.MinTransactionAmount)
	p.ProofOfWork = chaincfg.ProofOfWorkMode(getString("chain_proofOfWork", string(p.ProofOfWork)))
	p.BalancePolicy = chaincfg.BalancePolicy(getString("chain_balancePolicy", string(p.BalancePolicy)))
	p.Genesis.Address = getString("chain_genesisAddress", p.Genesis.Address)
	p.Genesis.Amount = getUint64("chain_genesisAmount", p.Genesis.Amount)

	return p
}

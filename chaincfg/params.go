package chaincfg

import (
	"sort"

	"github.com/avercoin/avercore/errors"
)

// ProofOfWorkMode selects how a block's proof of work is checked against the
// required difficulty.
type ProofOfWorkMode string

const (
	// ProofOfWorkLeadingZeros requires the block hash to start with the
	// required number of zero hex digits.
	ProofOfWorkLeadingZeros ProofOfWorkMode = "leading-zeros"

	// ProofOfWorkReference only requires the difficulty not to exceed the
	// length of the previous hash. Not secure, kept for compatibility with
	// chains produced by the original miner.
	ProofOfWorkReference ProofOfWorkMode = "reference"

	// ProofOfWorkNone skips the check entirely.
	ProofOfWorkNone ProofOfWorkMode = "none"
)

// BalancePolicy selects how the amounts of a transaction's inputs and outputs
// are compared.
type BalancePolicy string

const (
	// BalanceReference rejects a non-coinbase transaction spending more than
	// it creates, and any transaction whose inputs equal its outputs.
	BalanceReference BalancePolicy = "reference"

	// BalanceConserve rejects a transaction creating more than it spends and
	// accepts everything else, including zero-fee transfers.
	BalanceConserve BalancePolicy = "conserve"
)

// GenesisParams describes the hard-coded first block of a network.
type GenesisParams struct {
	Timestamp    float64
	Address      string
	Amount       uint64
	PreviousHash string
}

// Params defines a network by its consensus parameters.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// BlockTime is the target number of seconds between blocks.
	BlockTime float64

	// MinMiningDifficulty is the floor of the implied difficulty.
	MinMiningDifficulty int

	// MaxChangingDiff weights the previous difficulty and the observed block
	// time in a retarget.
	MaxChangingDiff float64

	// MaxChangingInt is the longest block interval, in seconds, that still
	// counts towards the mean block time.
	MaxChangingInt float64

	// ChangingDiffTime is the retarget period in blocks.
	ChangingDiffTime uint64

	// CoinbaseReward is the largest coinbase amount allowed until MaxSupply
	// has been minted, CoinbaseRewardAfter afterwards.
	CoinbaseReward      uint64
	CoinbaseRewardAfter uint64
	MaxSupply           uint64

	MaxTransactionsPerBlock int
	MinTransactionAmount    uint64

	ProofOfWork   ProofOfWorkMode
	BalancePolicy BalancePolicy

	Genesis GenesisParams
}

// genesisAddress is an RSA public key, not a secp256k1 one, so the genesis
// coinbase can never be spent.
const genesisAddress = "30820122300d06092a864886f70d01010105000382010f003082010a0282010100b0bb73e00ebdc83794c8b926253e6f72a45b8ef487ffe565941fcd74384884a95939fc0e1213db0dfbab83dcd3902af5b6c7391a453324b956aa5be8d58cf2d5b9e9667429ee40abe8a0d0ad831939454b61db63281f2d42665dccc0088f67291926dfdb321efd7b77ad5e571b16acc931aa31046423ba16ae5c1d3d613dcf2331041d90d0f39e0fd85f30238925d00198a765e0f6c721aa7372bc5cb648156dbaf98bfe16aab9eba12545e05253fb9aab932da75067dc432ac9228b42252c1fb4d5851a5108afa063c4b4f1d1795074e66a2c92261a3d976314134bbd3ba7ae0eb1938a936381239d6f6127b846fc42c99a9fcf36984a83a924ed0522ea24830203010001"

const genesisPreviousHash = "AverCoin is a future, and i want to be in it."

var MainNetParams = Params{
	Name:                    "mainnet",
	BlockTime:               60,
	MinMiningDifficulty:     4,
	MaxChangingDiff:         1,
	MaxChangingInt:          600,
	ChangingDiffTime:        10,
	CoinbaseReward:          50,
	CoinbaseRewardAfter:     0,
	MaxSupply:               21_000_000,
	MaxTransactionsPerBlock: 100,
	MinTransactionAmount:    1,
	ProofOfWork:             ProofOfWorkLeadingZeros,
	BalancePolicy:           BalanceReference,
	Genesis: GenesisParams{
		Timestamp:    1725615747.2513995,
		Address:      genesisAddress,
		Amount:       100,
		PreviousHash: genesisPreviousHash,
	},
}

var TestNetParams = Params{
	Name:                    "testnet",
	BlockTime:               30,
	MinMiningDifficulty:     2,
	MaxChangingDiff:         1,
	MaxChangingInt:          300,
	ChangingDiffTime:        10,
	CoinbaseReward:          50,
	CoinbaseRewardAfter:     0,
	MaxSupply:               21_000_000,
	MaxTransactionsPerBlock: 100,
	MinTransactionAmount:    1,
	ProofOfWork:             ProofOfWorkLeadingZeros,
	BalancePolicy:           BalanceReference,
	Genesis: GenesisParams{
		Timestamp:    1725615747.2513995,
		Address:      genesisAddress,
		Amount:       100,
		PreviousHash: genesisPreviousHash,
	},
}

// RegressionNetParams mines instantly and accepts zero-fee transfers. Tests
// copy it and set their own genesis address.
var RegressionNetParams = Params{
	Name:                    "regtest",
	BlockTime:               1,
	MinMiningDifficulty:     0,
	MaxChangingDiff:         1,
	MaxChangingInt:          600,
	ChangingDiffTime:        10,
	CoinbaseReward:          50,
	CoinbaseRewardAfter:     0,
	MaxSupply:               21_000_000,
	MaxTransactionsPerBlock: 100,
	MinTransactionAmount:    1,
	ProofOfWork:             ProofOfWorkNone,
	BalancePolicy:           BalanceConserve,
	Genesis: GenesisParams{
		Timestamp:    1725615747.2513995,
		Address:      genesisAddress,
		Amount:       100,
		PreviousHash: genesisPreviousHash,
	},
}

var networks = map[string]*Params{
	MainNetParams.Name:       &MainNetParams,
	TestNetParams.Name:       &TestNetParams,
	RegressionNetParams.Name: &RegressionNetParams,
}

// Copy returns a shallow copy of p that can be tweaked without touching the
// registered network.
func (p *Params) Copy() *Params {
	c := *p
	return &c
}

// RewardCap returns the largest coinbase amount allowed in the block at index.
func (p *Params) RewardCap(index uint64) uint64 {
	if p.CoinbaseReward == 0 {
		return p.CoinbaseRewardAfter
	}

	if index > p.MaxSupply/p.CoinbaseReward {
		return p.CoinbaseRewardAfter
	}

	return p.CoinbaseReward
}

// Validate checks that p is usable by the chain.
func (p *Params) Validate() error {
	if p.BlockTime <= 0 {
		return errors.NewConfigurationError("network %s: BlockTime must be positive", p.Name)
	}

	if p.ChangingDiffTime == 0 {
		return errors.NewConfigurationError("network %s: ChangingDiffTime must be positive", p.Name)
	}

	if p.MaxTransactionsPerBlock < 1 {
		return errors.NewConfigurationError("network %s: MaxTransactionsPerBlock must be at least 1", p.Name)
	}

	switch p.ProofOfWork {
	case ProofOfWorkLeadingZeros, ProofOfWorkReference, ProofOfWorkNone:
	default:
		return errors.NewConfigurationError("network %s: unknown proof of work mode %q", p.Name, p.ProofOfWork)
	}

	switch p.BalancePolicy {
	case BalanceReference, BalanceConserve:
	default:
		return errors.NewConfigurationError("network %s: unknown balance policy %q", p.Name, p.BalancePolicy)
	}

	return nil
}

// Networks returns the names of all known networks, sorted.
func Networks() []string {
	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func GetChainParams(network string) (*Params, error) {
	params, ok := networks[network]
	if !ok {
		return nil, errors.NewConfigurationError("unknown network %s", network)
	}

	return params, nil
}

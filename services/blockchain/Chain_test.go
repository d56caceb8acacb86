package blockchain

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/avercoin/avercore/chaincfg"
	"github.com/avercoin/avercore/errors"
	"github.com/avercoin/avercore/model"
	"github.com/avercoin/avercore/settings"
	"github.com/avercoin/avercore/stores/utxo/tests"
	"github.com/avercoin/avercore/ulogger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ownerAddress     = model.AddressFromKey(tests.OwnerKey)
	recipientAddress = model.AddressFromKey(tests.RecipientKey)
)

// regtestSettings returns settings for a regtest chain whose genesis coinbase
// pays 100 to the owner key.
func regtestSettings(t *testing.T, mutate ...func(p *chaincfg.Params)) *settings.Settings {
	t.Helper()

	registered, err := chaincfg.GetChainParams("regtest")
	require.NoError(t, err)

	params := registered.Copy()
	params.Genesis.Address = ownerAddress

	for _, m := range mutate {
		m(params)
	}

	return &settings.Settings{
		ClientName:     "avercore-test",
		ChainCfgParams: params,
		BlockChain: settings.BlockChainSettings{
			InvalidBlockCacheTTL: time.Minute,
		},
	}
}

func newTestChain(t *testing.T, mutate ...func(p *chaincfg.Params)) *Chain {
	t.Helper()

	c, err := NewChain(ulogger.TestLogger{}, regtestSettings(t, mutate...))
	require.NoError(t, err)

	return c
}

// nextBlock builds a block on top of parent carrying a coinbase to address
// followed by txs. The nonce is searched until the block meets the difficulty
// the chain requires.
func nextBlock(t *testing.T, c *Chain, parent *model.Block, address string, txs ...*model.Transaction) *model.Block {
	t.Helper()

	timestamp := parent.Timestamp + 1
	if parent.Index == 0 {
		timestamp = 1
	}

	coinbase := model.NewCoinbaseTransaction(address, 50, timestamp)
	transactions := append([]*model.Transaction{coinbase}, txs...)

	required := 0
	if c.params.ProofOfWork == chaincfg.ProofOfWorkLeadingZeros {
		next := &model.Block{Index: parent.Index + 1, PreviousHash: parent.Hash}
		required = c.difficulty.RequiredDifficulty(next, c.branch(parent))
	}

	for nonce := uint64(0); ; nonce++ {
		block := model.NewBlock(parent.Index+1, timestamp, transactions, nonce, parent.Hash)
		if HasProofOfWork(block.Hash, required) {
			return block
		}
	}
}

func TestNewChain(t *testing.T) {
	c := newTestChain(t)

	genesis := c.Head()
	require.Equal(t, uint64(0), genesis.Index)
	require.Equal(t, genesis, c.Genesis())
	require.Equal(t, 1, c.BlockCount())

	unspent := c.UnspentOutputs(ownerAddress)
	require.Len(t, unspent, 1)
	assert.Equal(t, uint64(100), unspent[0].Amount)
	assert.Equal(t, genesis.Transactions[0].Hash, unspent[0].TxHash)

	stats := c.Stats()
	assert.Equal(t, uint64(0), stats.HeadIndex)
	assert.Equal(t, 1, stats.Blocks)
	assert.Equal(t, 1, stats.Unspent)

	t.Run("invalid params", func(t *testing.T) {
		tSettings := regtestSettings(t, func(p *chaincfg.Params) { p.ChangingDiffTime = 0 })

		_, err := NewChain(ulogger.TestLogger{}, tSettings)
		require.Error(t, err)
		require.True(t, errors.Is(err, errors.ErrConfiguration))
	})
}

func TestAddBlock(t *testing.T) {
	c := newTestChain(t)
	genesis := c.Genesis()

	transfer := tests.Transfer(t, tests.OwnerKey, genesis.Transactions[0], 0, []*model.Output{{Address: recipientAddress, Amount: 100}}, 2)
	block1 := nextBlock(t, c, genesis, ownerAddress, transfer)

	require.NoError(t, c.AddBlock(context.Background(), block1))

	require.Equal(t, block1, c.Head())
	require.Equal(t, 2, c.BlockCount())

	received := c.UnspentOutputs(recipientAddress)
	require.Len(t, received, 1)
	assert.Equal(t, uint64(100), received[0].Amount)
	assert.Equal(t, transfer.Hash, received[0].TxHash)

	owned := c.UnspentOutputs(ownerAddress)
	require.Len(t, owned, 1)
	assert.Equal(t, uint64(50), owned[0].Amount)

	data, ok := c.GetTransaction(transfer.Hash)
	require.True(t, ok)

	decoded, err := model.NewTransactionFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, transfer.Hash, decoded.Hash)

	_, ok = c.GetTransaction("unknown")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.BlocksAdded)
	assert.Equal(t, uint64(1), stats.HeadIndex)
}

func TestAddBlock_Rejections(t *testing.T) {
	c := newTestChain(t)
	genesis := c.Genesis()

	assertUnchanged := func(t *testing.T) {
		t.Helper()

		require.Equal(t, genesis, c.Head())
		require.Len(t, c.UnspentOutputs(""), 1)
	}

	t.Run("duplicate", func(t *testing.T) {
		err := c.AddBlock(context.Background(), genesis)
		require.True(t, errors.Is(err, errors.ErrBlockExists))
		assert.True(t, errors.IsRejection(err))
		assertUnchanged(t)
	})

	t.Run("no parent", func(t *testing.T) {
		orphan := model.NewBlock(5, 10, []*model.Transaction{model.NewCoinbaseTransaction(ownerAddress, 50, 10)}, 0, strings.Repeat("ab", 32))

		err := c.AddBlock(context.Background(), orphan)
		require.True(t, errors.Is(err, errors.ErrBlockParentNotFound))
		assertUnchanged(t)
	})

	t.Run("nil block", func(t *testing.T) {
		err := c.AddBlock(context.Background(), nil)
		require.True(t, errors.Is(err, errors.ErrInvalidArgument))
	})

	t.Run("tampered hash", func(t *testing.T) {
		block := nextBlock(t, c, genesis, ownerAddress)
		block.Timestamp += 100

		err := c.AddBlock(context.Background(), block)
		require.True(t, errors.Is(err, errors.ErrBlockInvalid))
		require.Contains(t, err.Error(), "Invalid block hash")
		assertUnchanged(t)

		t.Run("claimed hash is not cached", func(t *testing.T) {
			child := nextBlock(t, c, block, ownerAddress)

			err := c.AddBlock(context.Background(), child)
			require.True(t, errors.Is(err, errors.ErrBlockParentNotFound))
			assertUnchanged(t)
		})
	})

	t.Run("wrong index", func(t *testing.T) {
		coinbase := model.NewCoinbaseTransaction(ownerAddress, 50, 3)
		block := model.NewBlock(2, 3, []*model.Transaction{coinbase}, 0, genesis.Hash)

		err := c.AddBlock(context.Background(), block)
		require.True(t, errors.Is(err, errors.ErrBlockInvalid))
		require.Contains(t, err.Error(), "Invalid index")
	})

	t.Run("coinbase too large", func(t *testing.T) {
		coinbase := model.NewCoinbaseTransaction(ownerAddress, 51, 4)
		block := model.NewBlock(1, 4, []*model.Transaction{coinbase}, 0, genesis.Hash)

		err := c.AddBlock(context.Background(), block)
		require.True(t, errors.Is(err, errors.ErrBlockInvalid))

		t.Run("descendant of invalid block", func(t *testing.T) {
			child := nextBlock(t, c, block, ownerAddress)

			err := c.AddBlock(context.Background(), child)
			require.True(t, errors.Is(err, errors.ErrBlockInvalid))
			require.Contains(t, err.Error(), "is invalid")
			assertUnchanged(t)
		})
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := c.AddBlock(ctx, nextBlock(t, c, genesis, ownerAddress))
		require.True(t, errors.IsContextError(err))
		assertUnchanged(t)
	})

	stats := c.Stats()
	assert.Equal(t, uint64(0), stats.BlocksAdded)
	assert.Equal(t, uint64(8), stats.BlocksRejected)
}

func TestAddBlock_ForgedHashDoesNotBlockGenuineBlock(t *testing.T) {
	c := newTestChain(t)
	genesis := c.Genesis()

	b1 := nextBlock(t, c, genesis, ownerAddress)
	b2 := nextBlock(t, c, b1, ownerAddress)

	t.Run("header changed", func(t *testing.T) {
		forged := *b1
		forged.Nonce++

		err := c.AddBlock(context.Background(), &forged)
		require.True(t, errors.Is(err, errors.ErrBlockInvalid))
		require.Contains(t, err.Error(), "Invalid block hash")
	})

	t.Run("transaction content changed", func(t *testing.T) {
		coinbase := *b1.Transactions[0]
		coinbase.Outputs = []*model.Output{{Address: recipientAddress, Amount: 50}}

		forged := *b1
		forged.Transactions = []*model.Transaction{&coinbase}
		require.True(t, forged.Valid())

		err := c.AddBlock(context.Background(), &forged)
		require.True(t, errors.Is(err, errors.ErrBlockInvalid))
		require.Contains(t, err.Error(), "does not match")
	})

	require.NoError(t, c.AddBlock(context.Background(), b1))
	require.NoError(t, c.AddBlock(context.Background(), b2))
	require.Equal(t, b2, c.Head())

	owned := c.UnspentOutputs(ownerAddress)
	require.Len(t, owned, 3)
}

func TestAddBlock_MissingReference(t *testing.T) {
	c := newTestChain(t)
	genesis := c.Genesis()

	ghost := model.NewCoinbaseTransaction(ownerAddress, 100, 99)
	spend := tests.Transfer(t, tests.OwnerKey, ghost, 0, []*model.Output{{Address: recipientAddress, Amount: 10}}, 2)
	block := nextBlock(t, c, genesis, ownerAddress, spend)

	before := c.UnspentOutputs("")

	err := c.AddBlock(context.Background(), block)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrTxInvalid))
	require.True(t, errors.Is(err, errors.ErrUtxoNotFound))
	require.Contains(t, err.Error(), "Referenced UTXO does not exist.")

	require.Equal(t, genesis, c.Head())
	require.Equal(t, before, c.UnspentOutputs(""))

	// the block stays indexed but its descendants are refused
	_, ok := c.GetBlock(block.Hash)
	require.True(t, ok)

	err = c.AddBlock(context.Background(), nextBlock(t, c, block, ownerAddress))
	require.True(t, errors.Is(err, errors.ErrBlockInvalid))

	assert.Equal(t, uint64(1), c.Stats().Rollbacks)
}

func TestAddBlock_SideBranch(t *testing.T) {
	c := newTestChain(t)
	genesis := c.Genesis()

	a1 := nextBlock(t, c, genesis, ownerAddress)
	b1 := nextBlock(t, c, genesis, recipientAddress)

	require.NoError(t, c.AddBlock(context.Background(), a1))
	require.NoError(t, c.AddBlock(context.Background(), b1))

	// equal height keeps the first seen branch
	require.Equal(t, a1, c.Head())
	require.Equal(t, 3, c.BlockCount())
	require.Empty(t, c.UnspentOutputs(recipientAddress))

	// transactions of side branches are still found
	_, ok := c.GetTransaction(b1.Transactions[0].Hash)
	require.True(t, ok)
}

func TestReorg(t *testing.T) {
	c := newTestChain(t)
	genesis := c.Genesis()
	funding := genesis.Transactions[0]

	// branch A pays the genesis output to the recipient
	toRecipient := tests.Transfer(t, tests.OwnerKey, funding, 0, []*model.Output{{Address: recipientAddress, Amount: 100}}, 2)
	a1 := nextBlock(t, c, genesis, ownerAddress, toRecipient)
	a2 := nextBlock(t, c, a1, ownerAddress)

	// branch B keeps it with the owner, split in two
	toOwner := tests.Transfer(t, tests.OwnerKey, funding, 0, []*model.Output{
		{Address: ownerAddress, Amount: 60},
		{Address: ownerAddress, Amount: 40},
	}, 3)
	b1 := nextBlock(t, c, genesis, recipientAddress, toOwner)
	b2 := nextBlock(t, c, b1, recipientAddress)
	b3 := nextBlock(t, c, b2, recipientAddress)

	_, err := c.AddBlocks(context.Background(), []*model.Block{a1, a2, b1, b2})
	require.NoError(t, err)
	require.Equal(t, a2, c.Head())

	require.NoError(t, c.AddBlock(context.Background(), b3))
	require.Equal(t, b3, c.Head())

	// same state as building branch B alone
	rebuilt := newTestChain(t)
	n, err := rebuilt.AddBlocks(context.Background(), []*model.Block{b1, b2, b3})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.Equal(t, rebuilt.UnspentOutputs(""), c.UnspentOutputs(""))
	require.Equal(t, []*model.Block{genesis, b1, b2, b3}, c.BestBranch())

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Reorgs)
	assert.Equal(t, 6, stats.Blocks)

	t.Run("back to branch A", func(t *testing.T) {
		a3 := nextBlock(t, c, a2, ownerAddress)
		a4 := nextBlock(t, c, a3, ownerAddress)

		require.NoError(t, c.AddBlock(context.Background(), a3))
		require.Equal(t, b3, c.Head())

		require.NoError(t, c.AddBlock(context.Background(), a4))
		require.Equal(t, a4, c.Head())

		rebuilt := newTestChain(t)
		_, err := rebuilt.AddBlocks(context.Background(), []*model.Block{a1, a2, a3, a4})
		require.NoError(t, err)

		require.Equal(t, rebuilt.UnspentOutputs(""), c.UnspentOutputs(""))
		assert.Equal(t, uint64(2), c.Stats().Reorgs)
	})
}

func TestReorg_Rollback(t *testing.T) {
	c := newTestChain(t)
	genesis := c.Genesis()

	toRecipient := tests.Transfer(t, tests.OwnerKey, genesis.Transactions[0], 0, []*model.Output{{Address: recipientAddress, Amount: 100}}, 2)
	a1 := nextBlock(t, c, genesis, ownerAddress, toRecipient)
	a2 := nextBlock(t, c, a1, ownerAddress)

	_, err := c.AddBlocks(context.Background(), []*model.Block{a1, a2})
	require.NoError(t, err)

	before := c.UnspentOutputs("")

	// b3 spends an output that only exists on branch A
	onlyOnA := tests.Transfer(t, tests.RecipientKey, toRecipient, 0, []*model.Output{{Address: ownerAddress, Amount: 100}}, 5)
	b1 := nextBlock(t, c, genesis, recipientAddress)
	b2 := nextBlock(t, c, b1, recipientAddress)
	b3 := nextBlock(t, c, b2, recipientAddress, onlyOnA)

	n, err := c.AddBlocks(context.Background(), []*model.Block{b1, b2, b3})
	require.Equal(t, 2, n)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrTxInvalid))
	require.False(t, errors.IsLedgerViolation(err))

	require.Equal(t, a2, c.Head())
	require.Equal(t, before, c.UnspentOutputs(""))
	require.Equal(t, []*model.Block{genesis, a1, a2}, c.BestBranch())

	// the indexed side branch is kept, the failing block is refused as a parent
	require.Equal(t, 6, c.BlockCount())

	err = c.AddBlock(context.Background(), nextBlock(t, c, b3, recipientAddress))
	require.True(t, errors.Is(err, errors.ErrBlockInvalid))

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Rollbacks)
	assert.Equal(t, uint64(0), stats.Reorgs)
}

func TestGetAncestorsAndChildren(t *testing.T) {
	c := newTestChain(t)
	genesis := c.Genesis()

	b1 := nextBlock(t, c, genesis, ownerAddress)
	b2 := nextBlock(t, c, b1, ownerAddress)
	b3 := nextBlock(t, c, b2, ownerAddress)
	side := nextBlock(t, c, genesis, recipientAddress)

	_, err := c.AddBlocks(context.Background(), []*model.Block{b1, b2, b3, side})
	require.NoError(t, err)

	t.Run("ancestors", func(t *testing.T) {
		all, err := c.GetAncestors(b3, -1)
		require.NoError(t, err)
		require.Equal(t, []*model.Block{b3, b2, b1}, all)

		two, err := c.GetAncestors(b3, 2)
		require.NoError(t, err)
		require.Equal(t, []*model.Block{b3, b2}, two)

		none, err := c.GetAncestors(b3, 0)
		require.NoError(t, err)
		require.Empty(t, none)

		fromHead, err := c.GetAncestors(nil, 1)
		require.NoError(t, err)
		require.Equal(t, []*model.Block{b3}, fromHead)

		orphan := model.NewBlock(9, 1, nil, 0, "missing")
		_, err = c.GetAncestors(orphan, -1)
		require.True(t, errors.Is(err, errors.ErrBlockParentNotFound))
	})

	t.Run("children", func(t *testing.T) {
		require.Equal(t, []*model.Block{b2, b3}, c.GetChildren(b1))
		require.Equal(t, []*model.Block{b1, b2, b3}, c.GetChildren(genesis))
		require.Empty(t, c.GetChildren(b3))

		// off the best branch the whole branch is returned
		require.Equal(t, []*model.Block{b1, b2, b3}, c.GetChildren(side))

		above := model.NewBlock(10, 1, nil, 0, b3.Hash)
		require.Empty(t, c.GetChildren(above))

		require.Empty(t, c.GetChildren(nil))
	})
}

func TestAddBlock_ProofOfWork(t *testing.T) {
	c := newTestChain(t, func(p *chaincfg.Params) {
		p.ProofOfWork = chaincfg.ProofOfWorkLeadingZeros
		p.MinMiningDifficulty = 1
		p.ChangingDiffTime = 1000
	})

	parent := c.Genesis()

	for i := 0; i < 3; i++ {
		block := nextBlock(t, c, parent, ownerAddress)
		require.NoError(t, c.AddBlock(context.Background(), block))

		parent = block
	}

	required := c.RequiredDifficulty()
	require.GreaterOrEqual(t, required, 1)

	coinbase := model.NewCoinbaseTransaction(ownerAddress, 50, 100)

	var unmined *model.Block

	for nonce := uint64(0); ; nonce++ {
		unmined = model.NewBlock(parent.Index+1, 100, []*model.Transaction{coinbase}, nonce, parent.Hash)
		if !HasProofOfWork(unmined.Hash, required) {
			break
		}
	}

	err := c.AddBlock(context.Background(), unmined)
	require.True(t, errors.Is(err, errors.ErrBlockInvalid))
	require.Contains(t, err.Error(), "proof of work")
	require.Equal(t, parent, c.Head())
}

func TestChain_Metrics(t *testing.T) {
	tSettings := regtestSettings(t)
	tSettings.BlockChain.MetricsEnabled = true

	c, err := NewChain(ulogger.TestLogger{}, tSettings)
	require.NoError(t, err)

	require.NoError(t, c.AddBlock(context.Background(), nextBlock(t, c, c.Genesis(), ownerAddress)))
	require.Error(t, c.AddBlock(context.Background(), c.Genesis()))

	require.NotNil(t, prometheusBlockchainBlocksAdded)
	require.Equal(t, float64(1), testutil.ToFloat64(prometheusBlockchainHeadIndex.WithLabelValues("regtest")))

	t.Run("chains of other networks keep their own gauges", func(t *testing.T) {
		other := regtestSettings(t, func(p *chaincfg.Params) { p.Name = "regtest-other" })
		other.BlockChain.MetricsEnabled = true

		_, err := NewChain(ulogger.TestLogger{}, other)
		require.NoError(t, err)

		require.Equal(t, float64(0), testutil.ToFloat64(prometheusBlockchainHeadIndex.WithLabelValues("regtest-other")))
		require.Equal(t, float64(1), testutil.ToFloat64(prometheusBlockchainHeadIndex.WithLabelValues("regtest")))
	})
}

// Package blockchain admits blocks into a multi-branch block index, keeps the
// UTXO set in step with the best branch and switches branches when a longer
// one appears.
package blockchain

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avercoin/avercore/chaincfg"
	"github.com/avercoin/avercore/errors"
	"github.com/avercoin/avercore/model"
	"github.com/avercoin/avercore/settings"
	"github.com/avercoin/avercore/stores/utxo"
	"github.com/avercoin/avercore/stores/utxo/memory"
	"github.com/avercoin/avercore/ulogger"
	"github.com/dolthub/swiss"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/atomic"
)

type Stats struct {
	BlocksAdded    uint64
	BlocksRejected uint64
	Reorgs         uint64
	Rollbacks      uint64
	HeadIndex      uint64
	Blocks         int
	Unspent        int
}

// Chain is safe for concurrent use. Admission holds the write lock for the
// whole of verification and reorg, queries take the read lock.
type Chain struct {
	mu             sync.RWMutex
	logger         ulogger.Logger
	settings       *settings.Settings
	params         *chaincfg.Params
	difficulty     *Difficulty
	blocks         *swiss.Map[string, *model.Block]
	utxoStore      utxo.Store
	genesis        *model.Block
	head           *model.Block
	invalidBlocks  *ttlcache.Cache[string, string]
	metricsEnabled bool

	blocksAdded    atomic.Uint64
	blocksRejected atomic.Uint64
	reorgs         atomic.Uint64
	rollbacks      atomic.Uint64
}

// NewChain creates a chain holding only the genesis block of the configured
// network, backed by an in-memory UTXO store.
func NewChain(logger ulogger.Logger, tSettings *settings.Settings) (*Chain, error) {
	store := memory.New(logger, memory.WithBalancePolicy(tSettings.ChainCfgParams.BalancePolicy))

	return NewChainWithStore(logger, tSettings, store)
}

// NewChainWithStore is NewChain with a caller supplied, empty UTXO store.
func NewChainWithStore(logger ulogger.Logger, tSettings *settings.Settings, store utxo.Store) (*Chain, error) {
	params := tSettings.ChainCfgParams
	if params == nil {
		return nil, errors.NewConfigurationError("[NewChain] chain params are not set")
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}

	genesis := model.NewGenesisBlock(params.Genesis)

	for _, tx := range genesis.Transactions {
		if err := store.Spend(tx); err != nil {
			return nil, errors.NewProcessingError("[NewChain] could not add genesis transaction %s", tx.Hash, err)
		}
	}

	c := &Chain{
		logger:     logger,
		settings:   tSettings,
		params:     params,
		difficulty: NewDifficulty(params, logger),
		blocks:     swiss.NewMap[string, *model.Block](1024),
		utxoStore:  store,
		genesis:    genesis,
		head:       genesis,
		invalidBlocks: ttlcache.New[string, string](
			ttlcache.WithTTL[string, string](tSettings.BlockChain.InvalidBlockCacheTTL),
			ttlcache.WithDisableTouchOnHit[string, string](),
		),
		metricsEnabled: tSettings.BlockChain.MetricsEnabled,
	}

	c.blocks.Put(genesis.Hash, genesis)

	if c.metricsEnabled {
		initPrometheusMetrics()
		c.updateGauges()
	}

	logger.Infof("[NewChain] %s genesis %s", params.Name, genesis.Hash)

	return c, nil
}

// AddBlock verifies block against its parent and adds it to the index. When
// the block makes its branch longer than the best branch the chain reorgs
// onto it. Rejections leave the chain unchanged.
func (c *Chain) AddBlock(ctx context.Context, block *model.Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.addBlock(block)
}

// AddBlocks adds blocks in order and stops at the first failure, returning
// how many were admitted.
func (c *Chain) AddBlocks(ctx context.Context, blocks []*model.Block) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, block := range blocks {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		if err := c.addBlock(block); err != nil {
			return i, err
		}
	}

	return len(blocks), nil
}

func (c *Chain) addBlock(block *model.Block) error {
	start := time.Now()

	err := c.admit(block)
	if err != nil {
		c.blocksRejected.Inc()

		hash := ""
		if block != nil {
			hash = block.Hash
		}

		c.logger.Warnf("[AddBlock][%s] rejected: %v", hash, err)
	} else {
		c.blocksAdded.Inc()
	}

	if c.metricsEnabled {
		if err != nil {
			prometheusBlockchainBlocksRejected.WithLabelValues(errors.GetErrorCategory(err)).Inc()
		} else {
			prometheusBlockchainBlocksAdded.Inc()
		}

		prometheusBlockchainAddBlock.Observe(time.Since(start).Seconds())
		c.updateGauges()
	}

	return err
}

func (c *Chain) admit(block *model.Block) error {
	if block == nil {
		return errors.NewInvalidArgumentError("[AddBlock] block is nil")
	}

	c.invalidBlocks.DeleteExpired()

	if _, exists := c.blocks.Get(block.Hash); exists {
		return errors.NewBlockExistsError("[AddBlock][%s] block already exists", block.Hash)
	}

	if item := c.invalidBlocks.Get(block.PreviousHash); item != nil {
		c.markInvalid(block, "parent is invalid")
		return errors.NewBlockInvalidError("[AddBlock][%s] parent %s is invalid: %s", block.Hash, block.PreviousHash, item.Value())
	}

	parent, ok := c.blocks.Get(block.PreviousHash)
	if !ok {
		return errors.NewBlockParentNotFoundError("[AddBlock][%s] parent %s not found", block.Hash, block.PreviousHash)
	}

	var history []*model.Block
	if c.difficulty.IsRetargetBoundary(block.Index) {
		history = c.branch(parent)
	}

	if err := VerifyNextBlock(c.params, c.difficulty, parent, block, history); err != nil {
		c.markInvalid(block, err.Error())
		return err
	}

	c.blocks.Put(block.Hash, block)

	if block.Index <= c.head.Index {
		c.logger.Infof("[AddBlock][%s] stored on side branch at index %d, head stays %s", block.Hash, block.Index, c.head.Hash)
		return nil
	}

	if err := c.reorg(block); err != nil {
		return err
	}

	c.logger.Infof("[AddBlock][%s] accepted, new head at index %d", block.Hash, block.Index)

	return nil
}

// markInvalid caches block as invalid. A block whose hashes do not match its
// content is not cached, since its hash may belong to a genuine block.
func (c *Chain) markInvalid(block *model.Block, reason string) {
	if !block.HashesValid() {
		return
	}

	c.invalidBlocks.Set(block.Hash, reason, ttlcache.DefaultTTL)
}

func (c *Chain) updateGauges() {
	prometheusBlockchainHeadIndex.WithLabelValues(c.params.Name).Set(float64(c.head.Index))
	prometheusBlockchainUtxoCount.WithLabelValues(c.params.Name).Set(float64(c.utxoStore.Count()))
}

// branch returns the blocks from genesis to tip, in index order.
func (c *Chain) branch(tip *model.Block) []*model.Block {
	blocks := make([]*model.Block, 0, tip.Index+1)

	for b := tip; b != nil; {
		blocks = append(blocks, b)

		if b.Index == 0 {
			break
		}

		parent, ok := c.blocks.Get(b.PreviousHash)
		if !ok {
			break
		}

		b = parent
	}

	for i, j := 0, len(blocks)-1; i < j; i, j = i+1, j-1 {
		blocks[i], blocks[j] = blocks[j], blocks[i]
	}

	return blocks
}

// Head returns the tip of the best branch.
func (c *Chain) Head() *model.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.head
}

func (c *Chain) Genesis() *model.Block {
	return c.genesis
}

func (c *Chain) GetBlock(hash string) (*model.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.blocks.Get(hash)
}

func (c *Chain) BlockCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.blocks.Count()
}

// BestBranch returns the blocks from genesis to head.
func (c *Chain) BestBranch() []*model.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.branch(c.head)
}

// GetAncestors returns up to n blocks walking from block towards genesis,
// block itself first and genesis excluded. A negative n walks the whole
// branch and a nil block starts at the head.
func (c *Chain) GetAncestors(block *model.Block, n int) ([]*model.Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if block == nil {
		block = c.head
	}

	ancestors := make([]*model.Block, 0)

	for current := block; n != 0 && current.Index > 0; n-- {
		ancestors = append(ancestors, current)

		parent, ok := c.blocks.Get(current.PreviousHash)
		if !ok {
			return nil, errors.NewBlockParentNotFoundError("[GetAncestors][%s] ancestors of block do not exist in chain", block.Hash)
		}

		current = parent
	}

	return ancestors, nil
}

// GetChildren returns the best branch blocks above parent, oldest first.
// When parent is not on the best branch the whole branch above genesis is
// returned, and when it is above the head or nil nothing is.
func (c *Chain) GetChildren(parent *model.Block) []*model.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if parent == nil || parent.Index > c.head.Index {
		return []*model.Block{}
	}

	children := make([]*model.Block, 0)

	for b := c.head; b.Index > 0 && b.Hash != parent.Hash; {
		children = append(children, b)

		previous, ok := c.blocks.Get(b.PreviousHash)
		if !ok {
			break
		}

		b = previous
	}

	for i, j := 0, len(children)-1; i < j; i, j = i+1, j-1 {
		children[i], children[j] = children[j], children[i]
	}

	return children
}

// GetTransaction returns the indented JSON of the transaction with hash,
// searching the best branch before the other branches.
func (c *Chain) GetTransaction(hash string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	best := c.branch(c.head)
	onBest := make(map[string]struct{}, len(best))

	for i := len(best) - 1; i >= 0; i-- {
		onBest[best[i].Hash] = struct{}{}

		if tx := findTransaction(best[i], hash); tx != nil {
			return encodeTransaction(tx)
		}
	}

	others := make([]*model.Block, 0)

	c.blocks.Iter(func(h string, b *model.Block) bool {
		if _, ok := onBest[h]; !ok {
			others = append(others, b)
		}

		return false
	})

	sort.Slice(others, func(i, j int) bool {
		if others[i].Index != others[j].Index {
			return others[i].Index < others[j].Index
		}

		return others[i].Hash < others[j].Hash
	})

	for _, b := range others {
		if tx := findTransaction(b, hash); tx != nil {
			return encodeTransaction(tx)
		}
	}

	return nil, false
}

func findTransaction(b *model.Block, hash string) *model.Transaction {
	for _, tx := range b.Transactions {
		if tx.Hash == hash {
			return tx
		}
	}

	return nil
}

func encodeTransaction(tx *model.Transaction) ([]byte, bool) {
	data, err := tx.JSON()
	if err != nil {
		return nil, false
	}

	return data, true
}

// UnspentOutputs lists the unspent outputs on the best branch paying to
// address, or all of them when address is empty.
func (c *Chain) UnspentOutputs(address string) []*utxo.Unspent {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if address == "" {
		return c.utxoStore.Unspent()
	}

	return c.utxoStore.UnspentByAddress(address)
}

// RequiredDifficulty returns the difficulty a block mined on top of the head
// has to meet.
func (c *Chain) RequiredDifficulty() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	next := &model.Block{Index: c.head.Index + 1, PreviousHash: c.head.Hash}

	var history []*model.Block
	if c.difficulty.IsRetargetBoundary(next.Index) {
		history = c.branch(c.head)
	}

	return c.difficulty.RequiredDifficulty(next, history)
}

func (c *Chain) Params() *chaincfg.Params {
	return c.params
}

func (c *Chain) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		BlocksAdded:    c.blocksAdded.Load(),
		BlocksRejected: c.blocksRejected.Load(),
		Reorgs:         c.reorgs.Load(),
		Rollbacks:      c.rollbacks.Load(),
		HeadIndex:      c.head.Index,
		Blocks:         c.blocks.Count(),
		Unspent:        c.utxoStore.Count(),
	}
}

package blockchain

import (
	"github.com/avercoin/avercore/errors"
	"github.com/avercoin/avercore/model"
)

// reorg makes newTip the head. The best branch is reverted down to the fork
// point and the branch of newTip is applied on top of it. If a transaction of
// the new branch can not be spent everything is put back the way it was and
// the head does not move.
func (c *Chain) reorg(newTip *model.Block) error {
	moveDownBlocks, moveUpBlocks, err := c.getReorgBlocks(newTip)
	if err != nil {
		return err
	}

	for _, block := range moveDownBlocks {
		if err = c.revertBlock(block); err != nil {
			c.logger.Errorf("[reorg][%s] could not revert block %s: %v", newTip.Hash, block.Hash, err)
			return errors.NewProcessingError("[reorg][%s] could not revert block %s", newTip.Hash, block.Hash, err)
		}
	}

	applied := make([]*model.Transaction, 0)

	for i, block := range moveUpBlocks {
		for _, tx := range block.Transactions {
			if err = c.utxoStore.CanSpend(tx); err == nil {
				err = c.utxoStore.Spend(tx)
			}

			if err != nil {
				return c.rollback(newTip, moveDownBlocks, moveUpBlocks[i:], applied, tx, err)
			}

			applied = append(applied, tx)
		}
	}

	if len(moveDownBlocks) > 0 {
		c.reorgs.Inc()

		c.logger.Infof("[reorg][%s] switched branch at fork %s, reverted %d blocks, applied %d blocks",
			newTip.Hash, moveUpBlocks[0].PreviousHash, len(moveDownBlocks), len(moveUpBlocks))

		if c.metricsEnabled {
			prometheusBlockchainReorg.Inc()
			prometheusBlockchainReorgDepth.Observe(float64(len(moveDownBlocks)))
		}
	}

	c.head = newTip

	return nil
}

// getReorgBlocks walks back from the head and from newTip to their fork point.
// moveDownBlocks runs from the head down, moveUpBlocks from the fork up to
// newTip. Nothing is changed, so a broken parent link is found before any
// transaction is reverted.
func (c *Chain) getReorgBlocks(newTip *model.Block) ([]*model.Block, []*model.Block, error) {
	moveDownBlocks := make([]*model.Block, 0)
	moveUpBlocks := make([]*model.Block, 0, newTip.Index-c.head.Index)

	newBlock := newTip
	for newBlock.Index > c.head.Index {
		moveUpBlocks = append(moveUpBlocks, newBlock)

		parent, err := c.parentOf(newTip, newBlock)
		if err != nil {
			return nil, nil, err
		}

		newBlock = parent
	}

	oldBlock := c.head
	for oldBlock.Hash != newBlock.Hash {
		if oldBlock.Index == 0 {
			return nil, nil, errors.NewProcessingError("[reorg][%s] no common ancestor with head %s", newTip.Hash, c.head.Hash)
		}

		moveDownBlocks = append(moveDownBlocks, oldBlock)
		moveUpBlocks = append(moveUpBlocks, newBlock)

		var err error

		if oldBlock, err = c.parentOf(newTip, oldBlock); err != nil {
			return nil, nil, err
		}

		if newBlock, err = c.parentOf(newTip, newBlock); err != nil {
			return nil, nil, err
		}
	}

	// reverse moveUpBlocks so it starts at the fork
	for i, j := 0, len(moveUpBlocks)-1; i < j; i, j = i+1, j-1 {
		moveUpBlocks[i], moveUpBlocks[j] = moveUpBlocks[j], moveUpBlocks[i]
	}

	return moveDownBlocks, moveUpBlocks, nil
}

func (c *Chain) parentOf(newTip, block *model.Block) (*model.Block, error) {
	parent, ok := c.blocks.Get(block.PreviousHash)
	if !ok {
		c.logger.Errorf("[reorg][%s] parent %s of block %s is not indexed", newTip.Hash, block.PreviousHash, block.Hash)
		return nil, errors.NewProcessingError("[reorg][%s] parent %s of block %s is not indexed", newTip.Hash, block.PreviousHash, block.Hash)
	}

	return parent, nil
}

// revertBlock takes the transactions of block out of the UTXO set, last first.
func (c *Chain) revertBlock(block *model.Block) error {
	for i := len(block.Transactions) - 1; i >= 0; i-- {
		if err := c.utxoStore.Revert(block.Transactions[i]); err != nil {
			return err
		}
	}

	return nil
}

// spendBlock puts the transactions of block into the UTXO set, first first.
func (c *Chain) spendBlock(block *model.Block) error {
	for _, tx := range block.Transactions {
		if err := c.utxoStore.Spend(tx); err != nil {
			return err
		}
	}

	return nil
}

// rollback undoes a failed reorg: the transactions applied from the new
// branch are reverted and the old branch is spent again. failed holds the
// block with the bad transaction followed by its descendants on the new
// branch, all of which are remembered as invalid.
func (c *Chain) rollback(newTip *model.Block, moveDownBlocks, failed []*model.Block, applied []*model.Transaction, tx *model.Transaction, cause error) error {
	c.rollbacks.Inc()

	if c.metricsEnabled {
		prometheusBlockchainRollback.Inc()
	}

	c.logger.Errorf("[reorg][%s] transaction %s in block %s can not be spent, rolling back: %v", newTip.Hash, tx.Hash, failed[0].Hash, cause)

	for i := len(applied) - 1; i >= 0; i-- {
		if err := c.utxoStore.Revert(applied[i]); err != nil {
			return errors.NewProcessingError("[reorg][%s] rollback could not revert transaction %s", newTip.Hash, applied[i].Hash, err)
		}
	}

	for i := len(moveDownBlocks) - 1; i >= 0; i-- {
		if err := c.spendBlock(moveDownBlocks[i]); err != nil {
			return errors.NewProcessingError("[reorg][%s] rollback could not restore block %s", newTip.Hash, moveDownBlocks[i].Hash, err)
		}
	}

	for _, block := range failed {
		c.markInvalid(block, "transaction "+tx.Hash+" can not be spent")
	}

	return errors.NewTxInvalidError("[reorg][%s] transaction %s in block %s can not be spent", newTip.Hash, tx.Hash, failed[0].Hash, cause)
}

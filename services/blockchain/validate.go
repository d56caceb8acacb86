package blockchain

import (
	"github.com/avercoin/avercore/chaincfg"
	"github.com/avercoin/avercore/errors"
	"github.com/avercoin/avercore/model"
)

// HasProofOfWork reports whether hash starts with difficulty zero hex digits.
// A difficulty of zero or less is always met.
func HasProofOfWork(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}

	if difficulty > len(hash) {
		return false
	}

	return LeadingZeros(hash) >= difficulty
}

// CheckProofOfWork checks next against the required difficulty using the
// network's proof of work mode.
func CheckProofOfWork(mode chaincfg.ProofOfWorkMode, next *model.Block, required int) error {
	switch mode {
	case chaincfg.ProofOfWorkNone:
		return nil

	case chaincfg.ProofOfWorkReference:
		if required > len(next.PreviousHash) {
			return errors.NewBlockInvalidError("Block does not have a valid proof of work. Current diff: %d", required)
		}

		return nil

	default:
		if !HasProofOfWork(next.Hash, required) {
			return errors.NewBlockInvalidError("Block does not have a valid proof of work. Current diff: %d", required)
		}

		return nil
	}
}

// VerifyNextBlock checks that next can extend parent: linkage, hash integrity,
// proof of work and transaction syntax. It does not look at the UTXO set.
// history is the branch from genesis to parent.
func VerifyNextBlock(params *chaincfg.Params, difficulty *Difficulty, parent, next *model.Block, history []*model.Block) error {
	if next.Index != parent.Index+1 {
		return errors.NewBlockInvalidError("Invalid index. Current: %d, Next %d", parent.Index, next.Index)
	}

	if next.PreviousHash != parent.Hash {
		return errors.NewBlockInvalidError("Invalid previous hash. Current %s, Next %s", parent.Hash, next.PreviousHash)
	}

	expected := model.HashBlock(parent.Index+1, next.Timestamp, next.Transactions, next.Nonce, parent.Hash)
	if expected != next.Hash {
		return errors.NewBlockInvalidError("Invalid block hash. Current %s, Expected %s", next.Hash, expected)
	}

	required := difficulty.RequiredDifficulty(next, history)
	if err := CheckProofOfWork(params.ProofOfWork, next, required); err != nil {
		return err
	}

	return VerifyTransactionsSyntax(params, next.Index, next.Transactions)
}

// VerifyTransactionsSyntax checks the transactions of the block at index
// without consulting the UTXO set. Once the maximum supply has been mined the
// coinbase cap drops to CoinbaseRewardAfter.
func VerifyTransactionsSyntax(params *chaincfg.Params, index uint64, transactions []*model.Transaction) error {
	if len(transactions) == 0 || len(transactions) > params.MaxTransactionsPerBlock {
		return errors.NewBlockInvalidError("Number of transactions is invalid.")
	}

	rewardCap := params.RewardCap(index)
	txHashes := make(map[string]struct{}, len(transactions))
	referenced := make(map[model.Input]struct{})
	hasCoinbase := false

	for _, tx := range transactions {
		if tx == nil {
			return errors.NewBlockInvalidError("Transaction is missing.")
		}

		if expected := tx.CalculateHash(); tx.Hash != expected {
			return errors.NewBlockInvalidError("Transaction hash %s does not match expected %s", tx.Hash, expected)
		}

		if _, ok := txHashes[tx.Hash]; ok {
			return errors.NewBlockInvalidError("Duplicate transaction objects found. Hash: %s", tx.Hash)
		}

		txHashes[tx.Hash] = struct{}{}

		if tx.IsCoinbase() {
			switch {
			case len(tx.Outputs) == 0:
				return errors.NewBlockInvalidError("No inputs in outputs found in transaction object.")
			case len(tx.Outputs) > 1:
				return errors.NewBlockInvalidError("Coinbase contains too many outputs.")
			case hasCoinbase:
				return errors.NewBlockInvalidError("Multiple coinbase transactions found.")
			case tx.Outputs[0].Amount > rewardCap:
				return errors.NewBlockInvalidError("Coinbase reward is too large: %d", tx.Outputs[0].Amount)
			}

			hasCoinbase = true
		}

		for _, in := range tx.Inputs {
			ref := model.Input{ReferencedHash: in.ReferencedHash, ReferencedOutputIndex: in.ReferencedOutputIndex}
			if _, ok := referenced[ref]; ok {
				return errors.NewBlockInvalidError("Multiple inputs for utxo %s with index %d", in.ReferencedHash, in.ReferencedOutputIndex)
			}

			referenced[ref] = struct{}{}
		}

		for _, out := range tx.Outputs {
			if out.Amount < params.MinTransactionAmount {
				return errors.NewBlockInvalidError("Output amount '%d' is less than the minimum reward.", out.Amount)
			}
		}
	}

	return nil
}

// Package utxo defines the unspent transaction output set kept for the best
// branch of the chain.
//
// The store follows a validate-then-mutate protocol: CanSpend is pure and must
// succeed before Spend is called for the same transaction, and Revert is only
// called for transactions previously spent, in reverse order. Calls that break
// the protocol return an ERR_UTXO_LEDGER error and leave the set unchanged.
package utxo

import (
	"github.com/avercoin/avercore/model"
)

// Unspent is a single spendable output.
type Unspent struct {
	TxHash      string `json:"txHash"`
	OutputIndex int    `json:"outputIndex"`
	Address     string `json:"address"`
	Amount      uint64 `json:"amount"`
}

type Store interface {
	// Spend consumes the outputs referenced by tx and adds tx's own outputs.
	Spend(tx *model.Transaction) error

	// CanSpend reports, without mutating anything, whether tx could be spent
	// now: every referenced output exists and is unspent, every input is
	// correctly signed and the amounts satisfy the balance policy.
	CanSpend(tx *model.Transaction) error

	// Revert undoes Spend(tx).
	Revert(tx *model.Transaction) error

	// Get returns the transaction with the given hash and its unspent output
	// indices, sorted.
	Get(hash string) (*model.Transaction, []int, bool)

	// Unspent returns every unspent output, sorted by transaction hash and
	// output index.
	Unspent() []*Unspent

	// UnspentByAddress returns the unspent outputs owned by address.
	UnspentByAddress(address string) []*Unspent

	// Count returns the number of unspent outputs.
	Count() int
}

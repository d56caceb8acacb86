package memory

import (
	"math/bits"
	"sort"

	"github.com/avercoin/avercore/chaincfg"
	"github.com/avercoin/avercore/errors"
	"github.com/avercoin/avercore/model"
	"github.com/avercoin/avercore/stores/utxo"
	"github.com/avercoin/avercore/ulogger"
	"github.com/dolthub/swiss"
)

type entry struct {
	tx      *model.Transaction
	unspent map[int]struct{}
}

type outpoint struct {
	hash  string
	index int
}

type Options struct {
	balancePolicy chaincfg.BalancePolicy
	initialSize   uint32
}

type Option func(*Options)

func WithBalancePolicy(policy chaincfg.BalancePolicy) Option {
	return func(o *Options) {
		o.balancePolicy = policy
	}
}

func WithInitialSize(size uint32) Option {
	return func(o *Options) {
		o.initialSize = size
	}
}

// Memory keeps the UTXO set in a swiss map keyed by transaction hash. It is
// not safe for concurrent use, the chain serialises access.
type Memory struct {
	logger        ulogger.Logger
	txs           *swiss.Map[string, *entry]
	unspentCount  int
	balancePolicy chaincfg.BalancePolicy
}

var _ utxo.Store = (*Memory)(nil)

func New(logger ulogger.Logger, opts ...Option) *Memory {
	options := &Options{
		balancePolicy: chaincfg.BalanceReference,
		initialSize:   1024,
	}

	for _, opt := range opts {
		opt(options)
	}

	return &Memory{
		logger:        logger,
		txs:           swiss.NewMap[string, *entry](options.initialSize),
		balancePolicy: options.balancePolicy,
	}
}

func (m *Memory) Spend(tx *model.Transaction) error {
	if _, exists := m.txs.Get(tx.Hash); exists {
		return errors.NewUtxoLedgerErr("Transaction is already in the UTXO set.", tx.Hash, -1, tx.Hash)
	}

	consumed := make(map[outpoint]struct{}, len(tx.Inputs))

	for _, in := range tx.Inputs {
		e, ok := m.txs.Get(in.ReferencedHash)
		if !ok {
			return errors.NewUtxoLedgerErr("Input can not be spent: referenced transaction does not exist.", in.ReferencedHash, in.ReferencedOutputIndex, tx.Hash)
		}

		op := outpoint{in.ReferencedHash, in.ReferencedOutputIndex}
		_, unspent := e.unspent[in.ReferencedOutputIndex]

		if _, dup := consumed[op]; dup || !unspent {
			return errors.NewUtxoLedgerErr("Input can not be spent: output is not unspent.", in.ReferencedHash, in.ReferencedOutputIndex, tx.Hash)
		}

		consumed[op] = struct{}{}
	}

	for op := range consumed {
		e, _ := m.txs.Get(op.hash)
		delete(e.unspent, op.index)
	}

	m.unspentCount -= len(consumed)

	unspent := make(map[int]struct{}, len(tx.Outputs))
	for i := range tx.Outputs {
		unspent[i] = struct{}{}
	}

	m.txs.Put(tx.Hash, &entry{tx: tx, unspent: unspent})
	m.unspentCount += len(unspent)

	m.logger.Debugf("[Spend][%s] spent %d inputs, added %d outputs", tx.Hash, len(consumed), len(unspent))

	return nil
}

func (m *Memory) CanSpend(tx *model.Transaction) error {
	if _, exists := m.txs.Get(tx.Hash); exists {
		return errors.NewTxAlreadyExistsError("[CanSpend][%s] transaction is already in the UTXO set", tx.Hash)
	}

	var inputAmounts uint64

	seen := make(map[outpoint]struct{}, len(tx.Inputs))

	for i, in := range tx.Inputs {
		op := outpoint{in.ReferencedHash, in.ReferencedOutputIndex}
		if _, dup := seen[op]; dup {
			return errors.NewTxInvalidDoubleSpendError("[CanSpend][%s] input %d spends %s:%d twice", tx.Hash, i, in.ReferencedHash, in.ReferencedOutputIndex)
		}

		seen[op] = struct{}{}

		referenced := m.reference(in)
		if referenced == nil {
			return errors.NewUtxoNotFoundError("Referenced UTXO does not exist.")
		}

		if err := tx.VerifyInput(referenced, i); err != nil {
			return err
		}

		var carry uint64
		if inputAmounts, carry = bits.Add64(inputAmounts, referenced.Outputs[in.ReferencedOutputIndex].Amount, 0); carry != 0 {
			return errors.NewTxInvalidError("[CanSpend][%s] input amounts overflow at input %d", tx.Hash, i)
		}
	}

	outputAmounts, err := tx.TotalOutput()
	if err != nil {
		return err
	}

	return m.checkBalance(tx, inputAmounts, outputAmounts)
}

func (m *Memory) checkBalance(tx *model.Transaction, inputAmounts, outputAmounts uint64) error {
	switch m.balancePolicy {
	case chaincfg.BalanceConserve:
		if !tx.IsCoinbase() && outputAmounts > inputAmounts {
			return errors.NewTxInvalidError("[CanSpend][%s] output amounts %d exceed input amounts %d", tx.Hash, outputAmounts, inputAmounts)
		}

	default:
		isCoinbase := len(tx.Inputs) == 0 && len(tx.Outputs) == 1

		if !isCoinbase && inputAmounts > outputAmounts {
			return errors.NewTxInvalidError("[CanSpend][%s] input amounts %d do not match output amounts %d", tx.Hash, inputAmounts, outputAmounts)
		}

		if inputAmounts == outputAmounts {
			return errors.NewTxInvalidError("[CanSpend][%s] input amounts equal output amounts (%d)", tx.Hash, inputAmounts)
		}
	}

	return nil
}

func (m *Memory) Revert(tx *model.Transaction) error {
	own, ok := m.txs.Get(tx.Hash)
	if !ok {
		return errors.NewUtxoLedgerErr("Reverted transaction is not in the UTXO set.", tx.Hash, -1, tx.Hash)
	}

	// outputs spent by later transactions must be reverted first
	if len(own.unspent) != len(own.tx.Outputs) {
		return errors.NewUtxoLedgerErr("Reverted transaction has spent outputs.", tx.Hash, -1, tx.Hash)
	}

	restored := make(map[outpoint]struct{}, len(tx.Inputs))

	for _, in := range tx.Inputs {
		e, ok := m.txs.Get(in.ReferencedHash)
		if !ok {
			return errors.NewUtxoLedgerErr("Reference from reverted transaction does not exist.", in.ReferencedHash, in.ReferencedOutputIndex, tx.Hash)
		}

		op := outpoint{in.ReferencedHash, in.ReferencedOutputIndex}
		_, unspent := e.unspent[in.ReferencedOutputIndex]

		if _, dup := restored[op]; dup || unspent {
			return errors.NewUtxoLedgerErr("Transaction index is already unspent.", in.ReferencedHash, in.ReferencedOutputIndex, tx.Hash)
		}

		if in.ReferencedOutputIndex < 0 || in.ReferencedOutputIndex >= len(e.tx.Outputs) {
			return errors.NewUtxoLedgerErr("Reference from reverted transaction is out of range.", in.ReferencedHash, in.ReferencedOutputIndex, tx.Hash)
		}

		restored[op] = struct{}{}
	}

	for op := range restored {
		e, _ := m.txs.Get(op.hash)
		e.unspent[op.index] = struct{}{}
	}

	m.unspentCount += len(restored)
	m.unspentCount -= len(own.unspent)
	m.txs.Delete(tx.Hash)

	m.logger.Debugf("[Revert][%s] restored %d inputs", tx.Hash, len(restored))

	return nil
}

// reference returns the transaction referenced by in when the referenced
// output is still unspent.
func (m *Memory) reference(in *model.Input) *model.Transaction {
	e, ok := m.txs.Get(in.ReferencedHash)
	if !ok {
		return nil
	}

	if _, unspent := e.unspent[in.ReferencedOutputIndex]; !unspent {
		return nil
	}

	return e.tx
}

func (m *Memory) Get(hash string) (*model.Transaction, []int, bool) {
	e, ok := m.txs.Get(hash)
	if !ok {
		return nil, nil, false
	}

	return e.tx, sortedIndices(e.unspent), true
}

func (m *Memory) Unspent() []*utxo.Unspent {
	return m.collect(func(_ *model.Output) bool { return true })
}

func (m *Memory) UnspentByAddress(address string) []*utxo.Unspent {
	return m.collect(func(out *model.Output) bool { return out.Address == address })
}

func (m *Memory) Count() int {
	return m.unspentCount
}

func (m *Memory) collect(match func(out *model.Output) bool) []*utxo.Unspent {
	result := make([]*utxo.Unspent, 0)

	m.txs.Iter(func(hash string, e *entry) bool {
		for _, i := range sortedIndices(e.unspent) {
			out := e.tx.Outputs[i]
			if match(out) {
				result = append(result, &utxo.Unspent{
					TxHash:      hash,
					OutputIndex: i,
					Address:     out.Address,
					Amount:      out.Amount,
				})
			}
		}

		return false
	})

	sort.Slice(result, func(i, j int) bool {
		if result[i].TxHash != result[j].TxHash {
			return result[i].TxHash < result[j].TxHash
		}

		return result[i].OutputIndex < result[j].OutputIndex
	})

	return result
}

func sortedIndices(set map[int]struct{}) []int {
	indices := make([]int, 0, len(set))
	for i := range set {
		indices = append(indices, i)
	}

	sort.Ints(indices)

	return indices
}

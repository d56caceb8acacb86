package errors

import (
	"fmt"
)

// UtxoSpentErrData identifies the outpoint involved in a ledger-consistency
// violation: spending an output that is not unspent, or reverting an output
// that was never spent.
type UtxoSpentErrData struct {
	Hash        string `json:"hash"`
	OutputIndex int    `json:"outputIndex"`
	SpendingTx  string `json:"spendingTx"`
}

func (e *UtxoSpentErrData) Error() string {
	return fmt.Sprintf("utxo %s:%d referenced by %s", e.Hash, e.OutputIndex, e.SpendingTx)
}

func (e *UtxoSpentErrData) GetData(key string) interface{} {
	switch key {
	case "hash":
		return e.Hash
	case "outputIndex":
		return e.OutputIndex
	case "spendingTx":
		return e.SpendingTx
	}

	return nil
}

// NewUtxoLedgerErr builds an ERR_UTXO_LEDGER error carrying the offending outpoint.
func NewUtxoLedgerErr(message string, hash string, outputIndex int, spendingTx string) *Error {
	data := &UtxoSpentErrData{
		Hash:        hash,
		OutputIndex: outputIndex,
		SpendingTx:  spendingTx,
	}

	e := New(ERR_UTXO_LEDGER, message)
	e.data = data

	return e
}

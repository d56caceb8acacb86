package model

import (
	"github.com/avercoin/avercore/errors"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NewBlockFromJSON decodes a block and checks that its stored hash matches
// its content.
func NewBlockFromJSON(data []byte) (*Block, error) {
	block := &Block{}

	if err := json.Unmarshal(data, block); err != nil {
		return nil, errors.NewBlockInvalidError("[NewBlockFromJSON] could not decode block", err)
	}

	if block.Transactions == nil {
		block.Transactions = []*Transaction{}
	}

	if calculated := block.CalculateHash(); block.Hash != calculated {
		return nil, errors.NewBlockInvalidError("[NewBlockFromJSON][%s] serialized block hash is invalid, calculated %s", block.Hash, calculated)
	}

	return block, nil
}

// NewTransactionFromJSON decodes a transaction. The hash is taken as is, block
// verification checks it against the content.
func NewTransactionFromJSON(data []byte) (*Transaction, error) {
	tx := &Transaction{}

	if err := json.Unmarshal(data, tx); err != nil {
		return nil, errors.NewTxInvalidError("[NewTransactionFromJSON] could not decode transaction", err)
	}

	return tx, nil
}

// JSON returns the indented JSON encoding of the block.
func (b *Block) JSON() ([]byte, error) {
	return json.MarshalIndent(b, "", "    ")
}

// JSON returns the indented JSON encoding of the transaction.
func (tx *Transaction) JSON() ([]byte, error) {
	return json.MarshalIndent(tx, "", "    ")
}

package model

import (
	"strconv"
	"strings"

	"github.com/avercoin/avercore/chaincfg"
)

type Block struct {
	Index        uint64         `json:"index"`
	Timestamp    float64        `json:"timestamp"`
	Transactions []*Transaction `json:"transactions"`
	Nonce        uint64         `json:"noonce"`
	PreviousHash string         `json:"previousHash"`
	Hash         string         `json:"hash"`
}

func NewBlock(index uint64, timestamp float64, transactions []*Transaction, nonce uint64, previousHash string) *Block {
	if transactions == nil {
		transactions = []*Transaction{}
	}

	b := &Block{
		Index:        index,
		Timestamp:    timestamp,
		Transactions: transactions,
		Nonce:        nonce,
		PreviousHash: previousHash,
	}
	b.Hash = b.CalculateHash()

	return b
}

// NewGenesisBlock builds the first block of a network: a single coinbase
// paying the genesis amount to the genesis address.
func NewGenesisBlock(genesis chaincfg.GenesisParams) *Block {
	coinbase := NewCoinbaseTransaction(genesis.Address, genesis.Amount, genesis.Timestamp)

	return NewBlock(0, genesis.Timestamp, []*Transaction{coinbase}, 0, genesis.PreviousHash)
}

// CalculateHash recomputes the block hash from its content.
func (b *Block) CalculateHash() string {
	return HashBlock(b.Index, b.Timestamp, b.Transactions, b.Nonce, b.PreviousHash)
}

// HashBlock hashes the given block fields. It allows a block to be rehashed
// against a different index or parent without copying it.
func HashBlock(index uint64, timestamp float64, transactions []*Transaction, nonce uint64, previousHash string) string {
	var sb strings.Builder

	sb.WriteString(strconv.FormatUint(index, 10))
	sb.WriteString(formatFloat(timestamp))

	for _, tx := range transactions {
		sb.WriteString(tx.Hash)
	}

	sb.WriteString(strconv.FormatUint(nonce, 10))
	sb.WriteString(previousHash)

	return hashString(sb.String())
}

// Valid reports whether the stored hash matches the block content.
func (b *Block) Valid() bool {
	return b.Hash == b.CalculateHash()
}

// HashesValid reports whether the block hash and every transaction hash
// match their content.
func (b *Block) HashesValid() bool {
	if !b.Valid() {
		return false
	}

	for _, tx := range b.Transactions {
		if tx.Hash != tx.CalculateHash() {
			return false
		}
	}

	return true
}

// Equal compares two blocks by their recomputed hashes.
func (b *Block) Equal(other *Block) bool {
	if b == nil || other == nil {
		return b == other
	}

	return b.CalculateHash() == other.CalculateHash()
}

func (b *Block) String() string {
	return b.Hash
}

// Coinbase returns the block's coinbase transaction, or nil when it has none.
func (b *Block) Coinbase() *Transaction {
	for _, tx := range b.Transactions {
		if tx.IsCoinbase() {
			return tx
		}
	}

	return nil
}

package model

import (
	"encoding/hex"
	"math/bits"
	"strconv"
	"strings"

	"github.com/avercoin/avercore/errors"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Input references an output of an earlier transaction.
type Input struct {
	ReferencedHash        string `json:"referencedHash"`
	ReferencedOutputIndex int    `json:"referencedOutputIndex"`

	// Signature is a hex encoded DER signature over the transaction hash,
	// made with the key owning the referenced output.
	Signature string `json:"signature"`
}

// Output assigns an amount to an address. The address is the hex encoded
// compressed secp256k1 public key of the owner.
type Output struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

type Transaction struct {
	Inputs    []*Input  `json:"inputs"`
	Outputs   []*Output `json:"outputs"`
	Timestamp float64   `json:"timestamp"`
	Hash      string    `json:"hash"`
}

func NewTransaction(inputs []*Input, outputs []*Output, timestamp float64) *Transaction {
	if inputs == nil {
		inputs = []*Input{}
	}

	if outputs == nil {
		outputs = []*Output{}
	}

	tx := &Transaction{
		Inputs:    inputs,
		Outputs:   outputs,
		Timestamp: timestamp,
	}
	tx.Hash = tx.CalculateHash()

	return tx
}

// NewCoinbaseTransaction creates a transaction without inputs paying amount to address.
func NewCoinbaseTransaction(address string, amount uint64, timestamp float64) *Transaction {
	return NewTransaction(nil, []*Output{{Address: address, Amount: amount}}, timestamp)
}

// CalculateHash hashes the inputs (without signatures), the outputs and the timestamp.
func (tx *Transaction) CalculateHash() string {
	var sb strings.Builder

	for _, in := range tx.Inputs {
		sb.WriteString(in.ReferencedHash)
		sb.WriteString(strconv.Itoa(in.ReferencedOutputIndex))
	}

	for _, out := range tx.Outputs {
		sb.WriteString(out.Address)
		sb.WriteString(strconv.FormatUint(out.Amount, 10))
	}

	sb.WriteString(formatFloat(tx.Timestamp))

	return hashString(sb.String())
}

// IsCoinbase reports whether tx creates new coins, i.e. has no inputs.
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 0
}

// TotalOutput sums the output amounts. A sum that does not fit in a uint64
// is an ERR_TX_INVALID error.
func (tx *Transaction) TotalOutput() (uint64, error) {
	var total, carry uint64

	for i, out := range tx.Outputs {
		if total, carry = bits.Add64(total, out.Amount, 0); carry != 0 {
			return 0, errors.NewTxInvalidError("[TotalOutput][%s] output amounts overflow at output %d", tx.Hash, i)
		}
	}

	return total, nil
}

// VerifyInput checks the signature of input i against the owner of the output
// it references in referenced.
func (tx *Transaction) VerifyInput(referenced *Transaction, i int) error {
	if i < 0 || i >= len(tx.Inputs) {
		return errors.NewTxInvalidError("[VerifyInput][%s] input %d out of range", tx.Hash, i)
	}

	in := tx.Inputs[i]

	if referenced == nil || in.ReferencedOutputIndex < 0 || in.ReferencedOutputIndex >= len(referenced.Outputs) {
		return errors.NewTxInvalidError("[VerifyInput][%s] input %d references a missing output", tx.Hash, i)
	}

	pubKeyBytes, err := hex.DecodeString(referenced.Outputs[in.ReferencedOutputIndex].Address)
	if err != nil {
		return errors.NewTxInvalidError("[VerifyInput][%s] input %d: address is not hex", tx.Hash, i, err)
	}

	pubKey, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return errors.NewTxInvalidError("[VerifyInput][%s] input %d: invalid public key", tx.Hash, i, err)
	}

	sigBytes, err := hex.DecodeString(in.Signature)
	if err != nil {
		return errors.NewTxInvalidError("[VerifyInput][%s] input %d: signature is not hex", tx.Hash, i, err)
	}

	signature, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return errors.NewTxInvalidError("[VerifyInput][%s] input %d: invalid signature encoding", tx.Hash, i, err)
	}

	digest, err := hex.DecodeString(tx.CalculateHash())
	if err != nil {
		return errors.NewProcessingError("[VerifyInput][%s] could not decode transaction hash", tx.Hash, err)
	}

	if !signature.Verify(digest, pubKey) {
		return errors.NewTxInvalidError("[VerifyInput][%s] input %d: signature verification failed", tx.Hash, i)
	}

	return nil
}

// SignInput fills the signature of input i using key.
func (tx *Transaction) SignInput(i int, key *btcec.PrivateKey) error {
	if i < 0 || i >= len(tx.Inputs) {
		return errors.NewInvalidArgumentError("[SignInput][%s] input %d out of range", tx.Hash, i)
	}

	digest, err := hex.DecodeString(tx.CalculateHash())
	if err != nil {
		return errors.NewProcessingError("[SignInput][%s] could not decode transaction hash", tx.Hash, err)
	}

	tx.Inputs[i].Signature = hex.EncodeToString(ecdsa.Sign(key, digest).Serialize())

	return nil
}

// SignAllInputs signs every input with key.
func (tx *Transaction) SignAllInputs(key *btcec.PrivateKey) error {
	for i := range tx.Inputs {
		if err := tx.SignInput(i, key); err != nil {
			return err
		}
	}

	return nil
}

// AddressFromKey returns the address owned by key.
func AddressFromKey(key *btcec.PrivateKey) string {
	return hex.EncodeToString(key.PubKey().SerializeCompressed())
}

// hashString returns the hex encoded SHA-256 of s, in digest byte order.
func hashString(s string) string {
	h := chainhash.HashH([]byte(s))
	return hex.EncodeToString(h[:])
}

// formatFloat renders f as the shortest decimal that parses back to f.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

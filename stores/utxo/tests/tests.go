// Package tests holds store-agnostic checks run against every utxo.Store
// implementation.
package tests

import (
	"testing"

	"github.com/avercoin/avercore/errors"
	"github.com/avercoin/avercore/model"
	"github.com/avercoin/avercore/stores/utxo"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

var (
	OwnerKey, _     = btcec.NewPrivateKey()
	RecipientKey, _ = btcec.NewPrivateKey()

	// Funding pays 100 to the owner in a single output, like a genesis coinbase.
	Funding = model.NewCoinbaseTransaction(model.AddressFromKey(OwnerKey), 100, 1)
)

// Transfer builds a transaction spending output index of from, signed by key.
func Transfer(t *testing.T, key *btcec.PrivateKey, from *model.Transaction, index int, outputs []*model.Output, timestamp float64) *model.Transaction {
	t.Helper()

	tx := model.NewTransaction(
		[]*model.Input{{ReferencedHash: from.Hash, ReferencedOutputIndex: index}},
		outputs,
		timestamp,
	)
	require.NoError(t, tx.SignAllInputs(key))

	return tx
}

// Spend checks that spending moves outputs out of and into the set.
func Spend(t *testing.T, db utxo.Store) {
	require.NoError(t, db.Spend(Funding))
	require.Equal(t, 1, db.Count())

	tx := Transfer(t, OwnerKey, Funding, 0, []*model.Output{
		{Address: model.AddressFromKey(RecipientKey), Amount: 60},
		{Address: model.AddressFromKey(OwnerKey), Amount: 50},
	}, 2)

	require.NoError(t, db.Spend(tx))
	require.Equal(t, 2, db.Count())

	_, unspent, ok := db.Get(Funding.Hash)
	require.True(t, ok)
	require.Empty(t, unspent)

	_, unspent, ok = db.Get(tx.Hash)
	require.True(t, ok)
	require.Equal(t, []int{0, 1}, unspent)

	owned := db.UnspentByAddress(model.AddressFromKey(RecipientKey))
	require.Len(t, owned, 1)
	require.Equal(t, tx.Hash, owned[0].TxHash)
	require.Equal(t, uint64(60), owned[0].Amount)

	// spending the same output again is a ledger violation and changes nothing
	again := Transfer(t, OwnerKey, Funding, 0, []*model.Output{{Address: "x", Amount: 1}}, 3)
	err := db.Spend(again)
	require.Error(t, err)
	require.True(t, errors.IsLedgerViolation(err))
	require.Equal(t, 2, db.Count())

	_, _, ok = db.Get(again.Hash)
	require.False(t, ok)
}

// CanSpend checks the pure admission checks.
func CanSpend(t *testing.T, db utxo.Store) {
	require.NoError(t, db.Spend(Funding))

	t.Run("missing reference", func(t *testing.T) {
		ghost := model.NewCoinbaseTransaction(model.AddressFromKey(OwnerKey), 100, 99)
		tx := Transfer(t, OwnerKey, ghost, 0, []*model.Output{{Address: "x", Amount: 150}}, 2)

		err := db.CanSpend(tx)
		require.Error(t, err)
		require.True(t, errors.Is(err, errors.ErrUtxoNotFound))
		require.Contains(t, err.Error(), "Referenced UTXO does not exist.")
	})

	t.Run("missing output index", func(t *testing.T) {
		tx := Transfer(t, OwnerKey, Funding, 1, []*model.Output{{Address: "x", Amount: 150}}, 2)

		err := db.CanSpend(tx)
		require.True(t, errors.Is(err, errors.ErrUtxoNotFound))
	})

	t.Run("wrong signer", func(t *testing.T) {
		tx := Transfer(t, RecipientKey, Funding, 0, []*model.Output{{Address: "x", Amount: 150}}, 2)

		err := db.CanSpend(tx)
		require.Error(t, err)
		require.True(t, errors.Is(err, errors.ErrTxInvalid))
	})

	t.Run("same output twice", func(t *testing.T) {
		tx := model.NewTransaction([]*model.Input{
			{ReferencedHash: Funding.Hash, ReferencedOutputIndex: 0},
			{ReferencedHash: Funding.Hash, ReferencedOutputIndex: 0},
		}, []*model.Output{{Address: "x", Amount: 150}}, 2)
		require.NoError(t, tx.SignAllInputs(OwnerKey))

		err := db.CanSpend(tx)
		require.True(t, errors.Is(err, errors.ErrTxInvalidDoubleSpend))
	})

	t.Run("already in the set", func(t *testing.T) {
		err := db.CanSpend(Funding)
		require.True(t, errors.Is(err, errors.ErrTxAlreadyExists))
	})

	t.Run("pure", func(t *testing.T) {
		before := db.Unspent()

		tx := Transfer(t, OwnerKey, Funding, 0, []*model.Output{{Address: "x", Amount: 150}}, 2)
		_ = db.CanSpend(tx)

		require.Equal(t, before, db.Unspent())
	})
}

// Revert checks that spend followed by revert restores the set exactly.
func Revert(t *testing.T, db utxo.Store) {
	require.NoError(t, db.Spend(Funding))

	before := db.Unspent()

	tx := Transfer(t, OwnerKey, Funding, 0, []*model.Output{
		{Address: model.AddressFromKey(RecipientKey), Amount: 60},
		{Address: model.AddressFromKey(OwnerKey), Amount: 50},
	}, 2)
	require.NoError(t, db.Spend(tx))

	child := Transfer(t, RecipientKey, tx, 0, []*model.Output{{Address: "x", Amount: 70}}, 3)
	require.NoError(t, db.Spend(child))

	t.Run("out of order", func(t *testing.T) {
		err := db.Revert(tx)
		require.Error(t, err)
		require.True(t, errors.IsLedgerViolation(err))
	})

	require.NoError(t, db.Revert(child))
	require.NoError(t, db.Revert(tx))
	require.Equal(t, before, db.Unspent())
	require.Equal(t, 1, db.Count())

	t.Run("twice", func(t *testing.T) {
		err := db.Revert(tx)
		require.Error(t, err)
		require.True(t, errors.IsLedgerViolation(err))
		require.Equal(t, before, db.Unspent())
	})
}

// LedgerViolation checks that protocol violations are reported and leave the
// set untouched.
func LedgerViolation(t *testing.T, db utxo.Store) {
	require.NoError(t, db.Spend(Funding))

	before := db.Unspent()

	t.Run("spend unknown reference", func(t *testing.T) {
		ghost := model.NewCoinbaseTransaction("a", 1, 42)
		tx := Transfer(t, OwnerKey, ghost, 0, []*model.Output{{Address: "x", Amount: 1}}, 2)

		err := db.Spend(tx)
		require.Error(t, err)
		require.True(t, errors.Is(err, errors.ErrUtxoLedger))

		var data *errors.UtxoSpentErrData
		require.True(t, errors.AsData(err, &data))
		require.Equal(t, ghost.Hash, data.Hash)
		require.Equal(t, tx.Hash, data.SpendingTx)
	})

	t.Run("partially valid inputs", func(t *testing.T) {
		tx := model.NewTransaction([]*model.Input{
			{ReferencedHash: Funding.Hash, ReferencedOutputIndex: 0},
			{ReferencedHash: Funding.Hash, ReferencedOutputIndex: 5},
		}, []*model.Output{{Address: "x", Amount: 1}}, 2)

		require.Error(t, db.Spend(tx))
		require.Equal(t, before, db.Unspent())
	})

	t.Run("spend twice", func(t *testing.T) {
		require.True(t, errors.IsLedgerViolation(db.Spend(Funding)))
	})

	t.Run("revert unspent", func(t *testing.T) {
		tx := Transfer(t, OwnerKey, Funding, 0, []*model.Output{{Address: "x", Amount: 1}}, 2)

		require.True(t, errors.IsLedgerViolation(db.Revert(tx)))
	})

	require.Equal(t, before, db.Unspent())
}

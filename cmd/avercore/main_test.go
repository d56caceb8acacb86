package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/avercoin/avercore/model"
	"github.com/avercoin/avercore/stores/blockfile"
	"github.com/avercoin/avercore/ulogger"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir      string
	address  string
	transfer *model.Transaction
	head     *model.Block
}

// newFixture configures a regtest network whose genesis pays a fresh key and
// writes two blocks, the first spending the genesis output, into a temp dir.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	address := model.AddressFromKey(key)

	t.Setenv("network", "regtest")
	t.Setenv("chain_genesisAddress", address)
	t.Setenv("logLevel", "ERROR")
	t.Setenv("blockchain_metricsEnabled", "false")

	genesis := model.NewGenesisBlock(newCommandApp().tSettings.ChainCfgParams.Genesis)

	transfer := model.NewTransaction(
		[]*model.Input{{ReferencedHash: genesis.Transactions[0].Hash, ReferencedOutputIndex: 0}},
		[]*model.Output{{Address: "recipient", Amount: 70}, {Address: address, Amount: 30}},
		2,
	)
	require.NoError(t, transfer.SignAllInputs(key))

	block1 := model.NewBlock(1, 2, []*model.Transaction{model.NewCoinbaseTransaction(address, 50, 2), transfer}, 0, genesis.Hash)
	block2 := model.NewBlock(2, 3, []*model.Transaction{model.NewCoinbaseTransaction("recipient", 50, 3)}, 0, block1.Hash)

	dir := t.TempDir()

	for _, block := range []*model.Block{genesis, block1, block2} {
		_, err = blockfile.Save(dir, block)
		require.NoError(t, err)
	}

	return &fixture{
		dir:      dir,
		address:  address,
		transfer: transfer,
		head:     block2,
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	a := newApp()
	a.Writer = &out

	err := a.Run(append([]string{progname}, args...))

	return out.String(), err
}

func TestImport(t *testing.T) {
	f := newFixture(t)

	out, err := run(t, "import", "--dir", f.dir)
	require.NoError(t, err)

	assert.Contains(t, out, "head: "+f.head.Hash)
	assert.Contains(t, out, "index: 2")
	assert.Contains(t, out, "blocks: 3")
}

func TestTx(t *testing.T) {
	f := newFixture(t)

	out, err := run(t, "tx", "--dir", f.dir, "--hash", f.transfer.Hash)
	require.NoError(t, err)

	tx, err := model.NewTransactionFromJSON([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, f.transfer.Hash, tx.Hash)

	_, err = run(t, "tx", "--dir", f.dir, "--hash", "unknown")
	require.Error(t, err)
}

func TestUtxos(t *testing.T) {
	f := newFixture(t)

	out, err := run(t, "utxos", "--dir", f.dir, "--address", "recipient")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "total: 120", lines[2])

	out, err = run(t, "utxos", "--dir", f.dir, "--address", f.address)
	require.NoError(t, err)
	assert.Contains(t, out, "total: 80")
}

func TestGenesis(t *testing.T) {
	f := newFixture(t)

	out, err := run(t, "genesis")
	require.NoError(t, err)

	genesis, err := model.NewBlockFromJSON([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, f.address, genesis.Transactions[0].Outputs[0].Address)
}

func TestGenesis_Dir(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()

	out, err := run(t, "genesis", "--dir", dir)
	require.NoError(t, err)

	blocks, err := blockfile.Load(context.Background(), ulogger.TestLogger{}, dir, 1)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, filepath.Join(dir, blockfile.FileName(blocks[0])), strings.TrimSpace(out))
	assert.Equal(t, f.address, blocks[0].Transactions[0].Outputs[0].Address)
}

func TestImport_EmptyDir(t *testing.T) {
	newFixture(t)

	dir := filepath.Join(t.TempDir(), "blocks")

	out, err := run(t, "import", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "index: 0")

	blocks, err := blockfile.Load(context.Background(), ulogger.TestLogger{}, dir, 1)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, uint64(0), blocks[0].Index)

	// the written genesis is accepted on the next import
	out, err = run(t, "import", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "blocks: 1")
}

func TestImport_Tampered(t *testing.T) {
	f := newFixture(t)

	orphan := model.NewBlock(3, 4, []*model.Transaction{model.NewCoinbaseTransaction("x", 50, 4)}, 0, "unknown parent")
	_, err := blockfile.Save(f.dir, orphan)
	require.NoError(t, err)

	_, err = run(t, "import", "--dir", f.dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "added 2 of 3 blocks")
}

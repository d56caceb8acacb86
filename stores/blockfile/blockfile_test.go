package blockfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/avercoin/avercore/errors"
	"github.com/avercoin/avercore/model"
	"github.com/avercoin/avercore/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBlocks(n int) []*model.Block {
	blocks := make([]*model.Block, 0, n)
	previous := "genesis"

	for i := 1; i <= n; i++ {
		coinbase := model.NewCoinbaseTransaction("owner", 50, float64(i))
		block := model.NewBlock(uint64(i), float64(i), []*model.Transaction{coinbase}, 0, previous)

		blocks = append(blocks, block)
		previous = block.Hash
	}

	return blocks
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	blocks := testBlocks(12)

	// save in reverse so that directory order does not match index order
	for i := len(blocks) - 1; i >= 0; i-- {
		path, err := Save(dir, blocks[i])
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, FileName(blocks[i])), path)
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not a block"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0o755))

	loaded, err := Load(context.Background(), ulogger.TestLogger{}, dir, 4)
	require.NoError(t, err)
	require.Len(t, loaded, len(blocks))

	for i, block := range loaded {
		assert.True(t, blocks[i].Equal(block), "block %d", i)
	}
}

func TestFileName(t *testing.T) {
	block := testBlocks(1)[0]

	assert.Equal(t, "block1-"+block.Hash[:16]+".json", FileName(block))
	assert.Equal(t, "block3-abc.json", FileName(&model.Block{Index: 3, Hash: "abc"}))
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := Load(context.Background(), ulogger.TestLogger{}, filepath.Join(t.TempDir(), "missing"), 1)
		require.True(t, errors.Is(err, errors.ErrStorageError))
	})

	t.Run("tampered block", func(t *testing.T) {
		dir := t.TempDir()
		block := testBlocks(1)[0]

		path, err := Save(dir, block)
		require.NoError(t, err)

		block.Nonce = 99
		data, err := block.JSON()
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o644))

		_, err = Load(context.Background(), ulogger.TestLogger{}, dir, 0)
		require.True(t, errors.Is(err, errors.ErrBlockInvalid))
	})

	t.Run("cancelled", func(t *testing.T) {
		dir := t.TempDir()

		_, err := Save(dir, testBlocks(1)[0])
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = Load(ctx, ulogger.TestLogger{}, dir, 2)
		require.True(t, errors.IsContextError(err))
	})
}

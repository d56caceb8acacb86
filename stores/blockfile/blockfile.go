// Package blockfile reads and writes blocks as JSON files, one block per file.
package blockfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/avercoin/avercore/errors"
	"github.com/avercoin/avercore/model"
	"github.com/avercoin/avercore/ulogger"
	"golang.org/x/sync/errgroup"
)

const fileExtension = ".json"

// FileName returns the name a block is saved under.
func FileName(block *model.Block) string {
	hash := block.Hash
	if len(hash) > 16 {
		hash = hash[:16]
	}

	return fmt.Sprintf("block%d-%s%s", block.Index, hash, fileExtension)
}

// Save writes block into dir and returns the path of the file.
func Save(dir string, block *model.Block) (string, error) {
	data, err := block.JSON()
	if err != nil {
		return "", errors.NewProcessingError("[Save][%s] could not encode block", block.Hash, err)
	}

	if err = os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.NewStorageError("[Save][%s] could not create %s", block.Hash, dir, err)
	}

	path := filepath.Join(dir, FileName(block))

	if err = os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.NewStorageError("[Save][%s] could not write %s", block.Hash, path, err)
	}

	return path, nil
}

// Load decodes every block file in dir, at most concurrency at a time, and
// returns the blocks ordered by index. Every block's hash is checked while
// decoding.
func Load(ctx context.Context, logger ulogger.Logger, dir string, concurrency int) ([]*model.Block, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewStorageError("[Load] could not read %s", dir, err)
	}

	paths := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExtension) {
			continue
		}

		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	if concurrency < 1 {
		concurrency = 1
	}

	blocks := make([]*model.Block, len(paths))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return errors.NewStorageError("[Load] could not read %s", path, err)
			}

			block, err := model.NewBlockFromJSON(data)
			if err != nil {
				return errors.NewBlockInvalidError("[Load] could not decode %s", path, err)
			}

			blocks[i] = block

			return nil
		})
	}

	if err = g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Index != blocks[j].Index {
			return blocks[i].Index < blocks[j].Index
		}

		return blocks[i].Hash < blocks[j].Hash
	})

	logger.Infof("[Load] loaded %d blocks from %s", len(blocks), dir)

	return blocks, nil
}

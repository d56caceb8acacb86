// Command avercore loads blocks from a directory of block files into a chain
// and answers queries about the resulting best branch.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/avercoin/avercore/errors"
	"github.com/avercoin/avercore/model"
	"github.com/avercoin/avercore/services/blockchain"
	"github.com/avercoin/avercore/settings"
	"github.com/avercoin/avercore/stores/blockfile"
	"github.com/avercoin/avercore/ulogger"
	"github.com/ordishs/gocore"
	"github.com/urfave/cli/v2"
)

// Name used by build script for the binaries. (Please keep on single line)
const progname = "avercore"

// Version & commit strings injected at build with -ldflags -X...
var (
	version string
	commit  string
)

func init() {
	gocore.SetInfo(progname, version, commit)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "dir",
		Usage: "directory holding the block files, defaults to the blockfile_dir setting",
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    progname,
		Usage:   "load and query an avercore block chain",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:   "import",
				Usage:  "load every block file and print the resulting head",
				Flags:  []cli.Flag{dirFlag()},
				Action: importBlocks,
			},
			{
				Name:  "tx",
				Usage: "print a transaction by hash",
				Flags: []cli.Flag{
					dirFlag(),
					&cli.StringFlag{Name: "hash", Usage: "transaction hash", Required: true},
				},
				Action: printTransaction,
			},
			{
				Name:  "utxos",
				Usage: "list the unspent outputs of the best branch",
				Flags: []cli.Flag{
					dirFlag(),
					&cli.StringFlag{Name: "address", Usage: "only list outputs paying to this address"},
				},
				Action: listUnspent,
			},
			{
				Name:   "genesis",
				Usage:  "print the genesis block of the configured network, or write it to --dir",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "dir", Usage: "directory to write the genesis block file to"}},
				Action: printGenesis,
			},
		},
	}
}

type app struct {
	logger    ulogger.Logger
	tSettings *settings.Settings
}

func newCommandApp() *app {
	tSettings := settings.NewSettings()

	logger := ulogger.New(progname,
		ulogger.WithLevel(tSettings.LogLevel),
		ulogger.WithLoggerType(tSettings.LoggerType),
		ulogger.WithWriter(os.Stderr),
	)

	return &app{
		logger:    logger,
		tSettings: tSettings,
	}
}

// loadChain builds a chain from genesis and the block files in dir. Blocks are
// added in index order, so a side branch only needs its parent to be present.
func (a *app) loadChain(ctx context.Context, dir string) (*blockchain.Chain, error) {
	if dir == "" {
		dir = a.tSettings.BlockFile.Dir
	}

	chain, err := blockchain.NewChain(a.logger, a.tSettings)
	if err != nil {
		return nil, err
	}

	blocks, err := blockfile.Load(ctx, a.logger, dir, a.tSettings.BlockFile.Concurrency)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	// an empty or missing directory is bootstrapped with the genesis file
	if len(blocks) == 0 {
		path, err := blockfile.Save(dir, chain.Genesis())
		if err != nil {
			return nil, err
		}

		a.logger.Infof("[loadChain] no block files in %s, wrote genesis to %s", dir, path)

		return chain, nil
	}

	// the genesis file, when present, is already part of the chain
	if len(blocks) > 0 && blocks[0].Index == 0 {
		if !blocks[0].Equal(chain.Genesis()) {
			return nil, errors.NewBlockInvalidError("genesis block %s does not match network genesis %s", blocks[0].Hash, chain.Genesis().Hash)
		}

		blocks = blocks[1:]
	}

	n, err := chain.AddBlocks(ctx, blocks)
	if err != nil {
		return nil, errors.NewProcessingError("added %d of %d blocks", n, len(blocks), err)
	}

	return chain, nil
}

func importBlocks(c *cli.Context) error {
	a := newCommandApp()

	chain, err := a.loadChain(c.Context, c.String("dir"))
	if err != nil {
		return err
	}

	head := chain.Head()
	stats := chain.Stats()

	fmt.Fprintf(c.App.Writer, "head: %s\nindex: %d\nblocks: %d\nunspent: %d\nrequired difficulty: %d\n",
		head.Hash, head.Index, stats.Blocks, stats.Unspent, chain.RequiredDifficulty())

	return nil
}

func printTransaction(c *cli.Context) error {
	a := newCommandApp()

	chain, err := a.loadChain(c.Context, c.String("dir"))
	if err != nil {
		return err
	}

	hash := c.String("hash")

	data, ok := chain.GetTransaction(hash)
	if !ok {
		return errors.NewTxNotFoundError("transaction %s not found", hash)
	}

	fmt.Fprintln(c.App.Writer, string(data))

	return nil
}

func listUnspent(c *cli.Context) error {
	a := newCommandApp()

	chain, err := a.loadChain(c.Context, c.String("dir"))
	if err != nil {
		return err
	}

	var total uint64

	for _, u := range chain.UnspentOutputs(c.String("address")) {
		fmt.Fprintf(c.App.Writer, "%s:%d %s %d\n", u.TxHash, u.OutputIndex, u.Address, u.Amount)
		total += u.Amount
	}

	fmt.Fprintf(c.App.Writer, "total: %d\n", total)

	return nil
}

func printGenesis(c *cli.Context) error {
	a := newCommandApp()

	genesis := model.NewGenesisBlock(a.tSettings.ChainCfgParams.Genesis)

	if dir := c.String("dir"); dir != "" {
		path, err := blockfile.Save(dir, genesis)
		if err != nil {
			return err
		}

		fmt.Fprintln(c.App.Writer, path)

		return nil
	}

	data, err := genesis.JSON()
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, string(data))

	return nil
}

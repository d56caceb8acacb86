package settings

import (
	"time"

	"github.com/avercoin/avercore/chaincfg"
)

type BlockChainSettings struct {
	// InvalidBlockCacheTTL is how long a rejected block hash is remembered,
	// so that its descendants are refused without a parent lookup.
	InvalidBlockCacheTTL time.Duration
	MetricsEnabled       bool
}

type BlockFileSettings struct {
	Dir         string
	Concurrency int
}

type Settings struct {
	ClientName     string
	LogLevel       string
	LoggerType     string
	ChainCfgParams *chaincfg.Params
	BlockChain     BlockChainSettings
	BlockFile      BlockFileSettings
}

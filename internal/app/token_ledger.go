package app

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/ethereum/go-ethereum/common/fdlimit"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/token-ledger/api/jsonrpc"
	"github.com/axiomesh/token-ledger/internal/coreapi"
	"github.com/axiomesh/token-ledger/internal/executor"
	"github.com/axiomesh/token-ledger/internal/genesis"
	"github.com/axiomesh/token-ledger/internal/ledger"
	"github.com/axiomesh/token-ledger/internal/storagemgr"
	"github.com/axiomesh/token-ledger/pkg/loggers"
	"github.com/axiomesh/token-ledger/pkg/repo"
)

type TokenLedger struct {
	Ctx           context.Context
	Cancel        context.CancelFunc
	Repo          *repo.Repo
	logger        logrus.FieldLogger
	Ledger        *ledger.Ledger
	BlockExecutor executor.Executor
	Jsonrpc       *jsonrpc.ChainBrokerService
}

func PrepareTokenLedger(rep *repo.Repo) error {
	if err := storagemgr.Initialize(rep.Config.Storage.KvType, rep.Config.Storage.KvCacheSize, rep.Config.Storage.Sync); err != nil {
		return fmt.Errorf("storagemgr initialize: %w", err)
	}
	if rep.Config.Ulimit != 0 {
		if err := raiseUlimit(rep.Config.Ulimit); err != nil {
			return fmt.Errorf("raise ulimit: %w", err)
		}
	}
	return nil
}

// NewTokenLedger opens the ledger and runs genesis on an empty one. A non-empty
// ledger keeps the genesis config it was initialized with.
func NewTokenLedger(rep *repo.Repo, ctx context.Context, cancel context.CancelFunc) (*TokenLedger, error) {
	if err := PrepareTokenLedger(rep); err != nil {
		return nil, err
	}

	logger := loggers.Logger(loggers.App)

	lg, err := ledger.New(rep)
	if err != nil {
		return nil, fmt.Errorf("create ledger: %w", err)
	}

	if lg.ChainLedger.GetChainMeta().Height != 0 {
		genesisCfg, err := genesis.GetGenesisConfig(lg)
		if err != nil {
			lg.Close()
			return nil, fmt.Errorf("load genesis config: %w", err)
		}
		if genesisCfg == nil {
			lg.Close()
			return nil, errors.New("ledger has blocks but no genesis config")
		}
		rep.GenesisConfig = genesisCfg
	}

	txExec, err := executor.New(rep, lg)
	if err != nil {
		lg.Close()
		return nil, fmt.Errorf("create BlockExecutor: %w", err)
	}

	if lg.ChainLedger.GetChainMeta().Height == 0 {
		if err := genesis.Initialize(rep.GenesisConfig, lg, txExec); err != nil {
			lg.Close()
			return nil, fmt.Errorf("initialize genesis: %w", err)
		}
		logger.WithFields(logrus.Fields{
			"genesis block hash": lg.ChainLedger.GetChainMeta().BlockHash,
		}).Info("Initialize genesis")
	}

	api := coreapi.New(rep, lg, txExec, loggers.Logger(loggers.API))
	cbs, err := jsonrpc.NewChainBrokerService(api, rep)
	if err != nil {
		lg.Close()
		return nil, fmt.Errorf("create json-rpc service: %w", err)
	}

	return &TokenLedger{
		Ctx:           ctx,
		Cancel:        cancel,
		Repo:          rep,
		logger:        logger,
		Ledger:        lg,
		BlockExecutor: txExec,
		Jsonrpc:       cbs,
	}, nil
}

func (tl *TokenLedger) Start() error {
	if err := tl.BlockExecutor.Start(); err != nil {
		return fmt.Errorf("block executor start: %w", err)
	}

	tl.start()

	if err := tl.Jsonrpc.Start(); err != nil {
		return fmt.Errorf("json-rpc start: %w", err)
	}

	tl.printLogo()

	return nil
}

func (tl *TokenLedger) Stop() error {
	if err := tl.Jsonrpc.Stop(); err != nil {
		tl.logger.Warnf("json-rpc stop: %v", err)
	}
	if err := tl.BlockExecutor.Stop(); err != nil {
		return fmt.Errorf("block executor stop: %w", err)
	}
	tl.Cancel()
	tl.Ledger.Close()

	tl.logger.Infof("%s stopped", repo.AppName)

	return nil
}

func (tl *TokenLedger) printLogo() {
	meta := tl.Ledger.ChainLedger.GetChainMeta()
	tl.logger.WithFields(logrus.Fields{
		"height": meta.Height,
		"token":  tl.Repo.GenesisConfig.Token.Symbol,
	}).Info("Token ledger is ready")
	fig := figure.NewFigure(repo.AppName, "slant", true)
	fmt.Printf(`
=========================================================================================
%s
=========================================================================================
`, fig.String())
}

func raiseUlimit(limitNew uint64) error {
	_, err := fdlimit.Raise(limitNew)
	if err != nil {
		return fmt.Errorf("set limit failed: %w", err)
	}

	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		return fmt.Errorf("getrlimit error: %w", err)
	}

	if limit.Cur != limitNew && limit.Cur != limit.Max {
		return errors.New("failed to raise ulimit")
	}

	return nil
}

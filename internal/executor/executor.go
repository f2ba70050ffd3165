package executor

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/token-ledger/internal/executor/system"
	sys_common "github.com/axiomesh/token-ledger/internal/executor/system/common"
	"github.com/axiomesh/token-ledger/internal/ledger"
	"github.com/axiomesh/token-ledger/pkg/events"
	"github.com/axiomesh/token-ledger/pkg/loggers"
	"github.com/axiomesh/token-ledger/pkg/repo"
)

const (
	invocationChanNumber = 1024
)

var (
	ErrEmptyBlock         = errors.New("block has no invocation")
	ErrTooManyInvocations = errors.New("too many invocations in block")
	ErrExecutorStopped    = errors.New("executor stopped")
)

var _ Executor = (*BlockExecutor)(nil)

type pendingInvocation struct {
	inv     *ledger.Invocation
	receipt chan *submitResult
}

type submitResult struct {
	receipt *ledger.Receipt
	err     error
}

// BlockExecutor serialises every invocation against the ledger. Submitted
// invocations are packed into blocks by a single loop.
type BlockExecutor struct {
	ledger           *ledger.Ledger
	logger           logrus.FieldLogger
	invocationC      chan *pendingInvocation
	currentHeight    uint64
	currentBlockHash common.Hash
	blockFeed        event.Feed
	logsFeed         event.Feed
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup

	rep                 *repo.Repo
	lock                *sync.Mutex
	maxBlockInvocations int

	nvm sys_common.VirtualMachine
}

// New creates executor instance
func New(rep *repo.Repo, ledger *ledger.Ledger) (*BlockExecutor, error) {
	return NewWithVM(rep, ledger, system.New(rep.GenesisConfig.Policy))
}

// NewWithVM creates an executor running invocations on nvm.
func NewWithVM(rep *repo.Repo, ledger *ledger.Ledger, nvm sys_common.VirtualMachine) (*BlockExecutor, error) {
	if rep.Config.Executor.MaxBlockInvocations <= 0 {
		return nil, errors.Errorf("invalid max block invocations: %d", rep.Config.Executor.MaxBlockInvocations)
	}
	ctx, cancel := context.WithCancel(context.Background())

	meta := ledger.ChainLedger.GetChainMeta()
	return &BlockExecutor{
		ledger:              ledger,
		logger:              loggers.Logger(loggers.Executor),
		ctx:                 ctx,
		cancel:              cancel,
		invocationC:         make(chan *pendingInvocation, invocationChanNumber),
		currentHeight:       meta.Height,
		currentBlockHash:    meta.BlockHash,
		rep:                 rep,
		lock:                &sync.Mutex{},
		maxBlockInvocations: rep.Config.Executor.MaxBlockInvocations,
		nvm:                 nvm,
	}, nil
}

// Start starts executor
func (exec *BlockExecutor) Start() error {
	exec.wg.Add(1)
	go exec.listenInvocations()

	exec.logger.WithFields(logrus.Fields{
		"height": exec.currentHeight,
		"hash":   exec.currentBlockHash.String(),
	}).Infof("BlockExecutor started")

	return nil
}

// Stop stops executor
func (exec *BlockExecutor) Stop() error {
	exec.cancel()
	exec.wg.Wait()

	exec.logger.Info("BlockExecutor stopped")

	return nil
}

func (exec *BlockExecutor) CurrentHeight() uint64 {
	exec.lock.Lock()
	defer exec.lock.Unlock()
	return exec.currentHeight
}

// SubscribeBlockEvent registers a subscription of ExecutedEvent.
func (exec *BlockExecutor) SubscribeBlockEvent(ch chan<- events.ExecutedEvent) event.Subscription {
	return exec.blockFeed.Subscribe(ch)
}

func (exec *BlockExecutor) SubscribeLogsEvent(ch chan<- []*types.Log) event.Subscription {
	return exec.logsFeed.Subscribe(ch)
}

func (exec *BlockExecutor) SubmitInvocation(ctx context.Context, inv *ledger.Invocation) (*ledger.Receipt, error) {
	if exec.ctx.Err() != nil {
		return nil, ErrExecutorStopped
	}
	pending := &pendingInvocation{
		inv:     inv,
		receipt: make(chan *submitResult, 1),
	}

	select {
	case exec.invocationC <- pending:
	case <-exec.ctx.Done():
		return nil, ErrExecutorStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-pending.receipt:
		return res.receipt, res.err
	case <-exec.ctx.Done():
		return nil, ErrExecutorStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// listenInvocations packs whatever is queued, up to the block limit, into one block.
func (exec *BlockExecutor) listenInvocations() {
	defer exec.wg.Done()
	for {
		select {
		case <-exec.ctx.Done():
			return
		case first := <-exec.invocationC:
			batch := []*pendingInvocation{first}
		drain:
			for len(batch) < exec.maxBlockInvocations {
				select {
				case next := <-exec.invocationC:
					batch = append(batch, next)
				default:
					break drain
				}
			}
			exec.executeBatch(batch)
		}
	}
}

func (exec *BlockExecutor) executeBatch(batch []*pendingInvocation) {
	invocations := make([]*ledger.Invocation, len(batch))
	for i, p := range batch {
		invocations[i] = p.inv
	}

	_, receipts, err := exec.ExecuteBlock(invocations)
	for i, p := range batch {
		if err != nil {
			p.receipt <- &submitResult{err: err}
			continue
		}
		p.receipt <- &submitResult{receipt: receipts[i]}
	}
}

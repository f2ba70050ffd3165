package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/axiomesh/token-ledger/internal/storagemgr"
	"github.com/axiomesh/token-ledger/internal/storagemgr/kv"
	"github.com/axiomesh/token-ledger/pkg/loggers"
	"github.com/axiomesh/token-ledger/pkg/repo"
)

// ChainLedger handles block and receipt data.
type ChainLedger interface {
	// GetBlock get block with height
	GetBlock(height uint64) (*Block, error)

	// GetBlockByHash get the block using block hash
	GetBlockByHash(hash common.Hash) (*Block, error)

	// GetReceipt get the invocation receipt
	GetReceipt(hash common.Hash) (*Receipt, error)

	// GetBlockReceipts get the invocation receipts in a block
	GetBlockReceipts(height uint64) ([]*Receipt, error)

	// GetLogs collects the logs matching filter
	GetLogs(filter *LogFilter) ([]*types.Log, error)

	// PersistExecutionResult persist the execution result
	PersistExecutionResult(block *Block, receipts []*Receipt) error

	// GetChainMeta get chain meta data
	GetChainMeta() *ChainMeta

	Close()
}

type StateLedger interface {
	StateAccessor

	SetTxContext(thash common.Hash, txIndex int)

	AddLog(log *types.Log)

	GetLogs(txHash common.Hash, height uint64) []*types.Log

	Finalise()

	// Commit commits the finalised state data
	Commit() (common.Hash, error)

	// Clear drops the block scoped journal and logs
	Clear()

	Version() uint64

	StateRoot() common.Hash

	// Close release resource
	Close()
}

// StateAccessor manipulates the state data
type StateAccessor interface {
	GetOrCreateAccount(common.Address) IAccount

	// GetAccount returns nil for an unknown account
	GetAccount(common.Address) IAccount

	GetState(common.Address, []byte) (bool, []byte)

	SetState(common.Address, []byte, []byte)

	RevertToSnapshot(int)

	Snapshot() int
}

type IAccount interface {
	GetAddress() common.Address

	GetState(key []byte) (bool, []byte)

	GetCommittedState(key []byte) []byte

	SetState(key []byte, value []byte)

	Finalise() [][]byte

	IsEmpty() bool

	String() string
}

type Ledger struct {
	ChainLedger ChainLedger
	StateLedger StateLedger
}

func NewLedgerWithStores(rep *repo.Repo, blockchainStore kv.Storage, stateStore kv.Storage) (*Ledger, error) {
	chainLedger, err := newChainLedger(rep, blockchainStore)
	if err != nil {
		return nil, errors.Wrap(err, "init chain ledger failed")
	}

	stateLedger, err := newStateLedger(loggers.Logger(loggers.Storage), stateStore, rep.Config.Ledger.StateLedgerCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "init state ledger failed")
	}

	meta := chainLedger.GetChainMeta()
	if stateLedger.Version() != meta.Height {
		return nil, errors.Errorf("state version %d mismatch chain height %d", stateLedger.Version(), meta.Height)
	}
	if stateLedger.StateRoot() != meta.StateRoot {
		return nil, errors.Errorf("state root %s mismatch chain meta state root %s", stateLedger.StateRoot(), meta.StateRoot)
	}

	return &Ledger{
		ChainLedger: chainLedger,
		StateLedger: stateLedger,
	}, nil
}

func NewMemory(rep *repo.Repo) (*Ledger, error) {
	return NewLedgerWithStores(rep, kv.NewMemory(), kv.NewMemory())
}

// New opens the disk backed ledger under the repo storage dir.
func New(rep *repo.Repo) (*Ledger, error) {
	bcStorage, err := storagemgr.Open(storagemgr.GetLedgerComponentPath(rep, storagemgr.BlockChain))
	if err != nil {
		return nil, errors.Wrap(err, "create blockchain storage")
	}

	stateStorage, err := storagemgr.OpenCached(storagemgr.GetLedgerComponentPath(rep, storagemgr.Ledger))
	if err != nil {
		return nil, errors.Wrap(err, "create state storage")
	}

	return NewLedgerWithStores(rep, bcStorage, stateStorage)
}

func (l *Ledger) Close() {
	l.ChainLedger.Close()
	l.StateLedger.Close()
}

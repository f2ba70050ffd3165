package ledger

import (
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/token-ledger/internal/storagemgr/kv"
	"github.com/axiomesh/token-ledger/pkg/loggers"
	"github.com/axiomesh/token-ledger/pkg/repo"
)

var (
	ErrNotFound = errors.New("not found in DB")

	ErrInvalidBlockRange = errors.New("invalid block range")
)

const chainLedgerCacheSize = 128

var _ ChainLedger = (*ChainLedgerImpl)(nil)

type receiptLookup struct {
	Number uint64
	Index  uint64
}

type ChainLedgerImpl struct {
	blockchainStore kv.Storage
	repo            *repo.Repo
	chainMeta       atomic.Pointer[ChainMeta]
	logger          logrus.FieldLogger

	// block height -> block
	blockCache *lru.Cache[uint64, *Block]

	// block height -> block receipts
	blockReceiptsCache *lru.Cache[uint64, []*Receipt]
}

func newChainLedger(rep *repo.Repo, bcStorage kv.Storage) (*ChainLedgerImpl, error) {
	c := &ChainLedgerImpl{
		blockchainStore: bcStorage,
		repo:            rep,
		logger:          loggers.Logger(loggers.Storage),
	}

	meta, err := c.LoadChainMeta()
	if err != nil {
		return nil, errors.Wrap(err, "load chain meta failed")
	}
	c.chainMeta.Store(meta)

	c.blockCache, err = lru.New[uint64, *Block](chainLedgerCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "new block cache failed")
	}

	c.blockReceiptsCache, err = lru.New[uint64, []*Receipt](chainLedgerCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "new block receipts cache failed")
	}

	return c, nil
}

func (l *ChainLedgerImpl) GetBlock(height uint64) (*Block, error) {
	if block, ok := l.blockCache.Get(height); ok {
		return block, nil
	}

	data := l.blockchainStore.Get(compositeKey(blockKey, height))
	if data == nil {
		return nil, ErrNotFound
	}

	block := &Block{}
	if err := rlp.DecodeBytes(data, block); err != nil {
		return nil, errors.Wrapf(err, "unmarshal block %d", height)
	}
	l.blockCache.Add(height, block)
	return block, nil
}

func (l *ChainLedgerImpl) GetBlockNumberByHash(hash common.Hash) (uint64, error) {
	data := l.blockchainStore.Get(compositeKey(blockHashKey, hash.Hex()))
	if data == nil {
		return 0, ErrNotFound
	}

	height, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "wrong height %q", data)
	}
	return height, nil
}

func (l *ChainLedgerImpl) GetBlockByHash(hash common.Hash) (*Block, error) {
	height, err := l.GetBlockNumberByHash(hash)
	if err != nil {
		return nil, err
	}
	return l.GetBlock(height)
}

func (l *ChainLedgerImpl) GetReceipt(hash common.Hash) (*Receipt, error) {
	data := l.blockchainStore.Get(compositeKey(receiptLookupKey, hash.Hex()))
	if data == nil {
		return nil, ErrNotFound
	}

	lookup := &receiptLookup{}
	if err := rlp.DecodeBytes(data, lookup); err != nil {
		return nil, errors.Wrap(err, "unmarshal receipt lookup")
	}

	receipts, err := l.GetBlockReceipts(lookup.Number)
	if err != nil {
		return nil, err
	}
	if lookup.Index >= uint64(len(receipts)) {
		return nil, errors.Errorf("receipt index %d out of block %d", lookup.Index, lookup.Number)
	}
	return receipts[lookup.Index], nil
}

func (l *ChainLedgerImpl) GetBlockReceipts(height uint64) ([]*Receipt, error) {
	if receipts, ok := l.blockReceiptsCache.Get(height); ok {
		return receipts, nil
	}

	data := l.blockchainStore.Get(compositeKey(receiptsKey, height))
	if data == nil {
		return nil, ErrNotFound
	}

	var receipts []*Receipt
	if err := rlp.DecodeBytes(data, &receipts); err != nil {
		return nil, errors.Wrapf(err, "unmarshal receipts of block %d", height)
	}

	block, err := l.GetBlock(height)
	if err != nil {
		return nil, err
	}
	var logIndex uint
	for _, receipt := range receipts {
		logIndex = receipt.fillLogContext(block.Hash(), logIndex)
	}

	l.blockReceiptsCache.Add(height, receipts)
	return receipts, nil
}

// GetLogs scans the receipts of the filter range. ToBlock zero means the latest block.
func (l *ChainLedgerImpl) GetLogs(filter *LogFilter) ([]*types.Log, error) {
	if filter.ToBlock != 0 && filter.FromBlock > filter.ToBlock {
		return nil, errors.Wrapf(ErrInvalidBlockRange, "from %d to %d", filter.FromBlock, filter.ToBlock)
	}
	from, to := filter.FromBlock, filter.ToBlock
	height := l.chainMeta.Load().Height
	if to == 0 || to > height {
		to = height
	}
	if from == 0 {
		from = 1
	}

	logs := make([]*types.Log, 0)
	for number := from; number <= to; number++ {
		receipts, err := l.GetBlockReceipts(number)
		if err != nil {
			return nil, err
		}
		for _, receipt := range receipts {
			logs = append(logs, lo.Filter(receipt.Logs, func(log *types.Log, _ int) bool {
				return filter.Match(log)
			})...)
		}
	}
	return logs, nil
}

// PersistExecutionResult persist the execution result
func (l *ChainLedgerImpl) PersistExecutionResult(block *Block, receipts []*Receipt) error {
	current := time.Now()

	prev := l.chainMeta.Load()
	if block.Number() != prev.Height+1 {
		return errors.Errorf("block %d does not follow height %d", block.Number(), prev.Height)
	}
	if block.Header.ParentHash != prev.BlockHash {
		return errors.Errorf("block %d parent hash %s mismatch %s", block.Number(), block.Header.ParentHash, prev.BlockHash)
	}

	batcher := l.blockchainStore.NewBatch()

	blockData, err := rlp.EncodeToBytes(block)
	if err != nil {
		return errors.Wrap(err, "marshal block")
	}
	blockHash := block.Hash()
	batcher.Put(compositeKey(blockKey, block.Number()), blockData)
	batcher.Put(compositeKey(blockHashKey, blockHash.Hex()), []byte(strconv.FormatUint(block.Number(), 10)))

	receiptsData, err := rlp.EncodeToBytes(receipts)
	if err != nil {
		return errors.Wrap(err, "marshal receipts")
	}
	batcher.Put(compositeKey(receiptsKey, block.Number()), receiptsData)
	for i, receipt := range receipts {
		lookup, err := rlp.EncodeToBytes(&receiptLookup{Number: block.Number(), Index: uint64(i)})
		if err != nil {
			return errors.Wrap(err, "marshal receipt lookup")
		}
		batcher.Put(compositeKey(receiptLookupKey, receipt.InvocationHash.Hex()), lookup)
	}

	meta := &ChainMeta{
		Height:    block.Number(),
		BlockHash: blockHash,
		StateRoot: block.Header.StateRoot,
	}
	metaData, err := json.Marshal(meta)
	if err != nil {
		return errors.Wrap(err, "marshal chain meta")
	}
	batcher.Put([]byte(chainMetaKey), metaData)
	batcher.Commit()

	l.blockCache.Add(block.Number(), block)
	var logIndex uint
	for _, receipt := range receipts {
		logIndex = receipt.fillLogContext(blockHash, logIndex)
	}
	l.blockReceiptsCache.Add(block.Number(), receipts)
	l.chainMeta.Store(meta)

	blockHeightMetric.Set(float64(meta.Height))
	persistBlockDuration.Observe(float64(time.Since(current)) / float64(time.Second))
	l.logger.WithFields(logrus.Fields{
		"height":   meta.Height,
		"hash":     meta.BlockHash,
		"receipts": len(receipts),
	}).Debug("Persist execution result")
	return nil
}

// GetChainMeta get chain meta data
func (l *ChainLedgerImpl) GetChainMeta() *ChainMeta {
	meta := l.chainMeta.Load()
	return &ChainMeta{
		Height:    meta.Height,
		BlockHash: meta.BlockHash,
		StateRoot: meta.StateRoot,
	}
}

// LoadChainMeta load chain meta data
func (l *ChainLedgerImpl) LoadChainMeta() (*ChainMeta, error) {
	meta := &ChainMeta{}
	body := l.blockchainStore.Get([]byte(chainMetaKey))
	if body == nil {
		return meta, nil
	}
	if err := json.Unmarshal(body, meta); err != nil {
		return nil, errors.Wrap(err, "unmarshal chain meta")
	}
	return meta, nil
}

func (l *ChainLedgerImpl) Close() {
	if err := l.blockchainStore.Close(); err != nil {
		l.logger.WithField("err", err).Error("Close blockchain storage failed")
	}
}

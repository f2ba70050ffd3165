package executor

import (
	"time"

	"github.com/cbergoon/merkletree"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/token-ledger/internal/executor/system"
	"github.com/axiomesh/token-ledger/internal/ledger"
	"github.com/axiomesh/token-ledger/pkg/events"
	"github.com/axiomesh/token-ledger/pkg/packer"
)

// ExecuteBlock applies the invocations in order as block currentHeight+1. A
// failing invocation is rolled back on its own and leaves a failed receipt.
func (exec *BlockExecutor) ExecuteBlock(invocations []*ledger.Invocation) (*ledger.Block, []*ledger.Receipt, error) {
	if len(invocations) == 0 {
		return nil, nil, ErrEmptyBlock
	}
	if len(invocations) > exec.maxBlockInvocations {
		return nil, nil, errors.Wrapf(ErrTooManyInvocations, "%d > %d", len(invocations), exec.maxBlockInvocations)
	}

	exec.lock.Lock()
	defer exec.lock.Unlock()

	current := time.Now()
	height := exec.currentHeight + 1

	receipts := exec.applyInvocations(invocations, height)
	applyInvocationsDuration.Observe(float64(time.Since(current)) / float64(time.Second))

	receiptRoot, err := exec.calcReceiptMerkleRoot(receipts)
	if err != nil {
		panic(errors.Wrap(err, "calculate receipt root failed"))
	}

	stateRoot, err := exec.ledger.StateLedger.Commit()
	if err != nil {
		panic(errors.Wrap(err, "commit stateLedger failed"))
	}

	block := &ledger.Block{
		Header: &ledger.BlockHeader{
			Number:      height,
			ParentHash:  exec.currentBlockHash,
			StateRoot:   stateRoot,
			ReceiptRoot: receiptRoot,
			Timestamp:   uint64(time.Now().Unix()),
		},
		Invocations: invocations,
	}

	// state is already committed, a chain that cannot follow it is unrecoverable
	if err := exec.ledger.ChainLedger.PersistExecutionResult(block, receipts); err != nil {
		panic(errors.Wrap(err, "persist execution result failed"))
	}

	blockHash := block.Hash()
	exec.currentHeight = height
	exec.currentBlockHash = blockHash

	executeBlockDuration.Observe(float64(time.Since(current)) / float64(time.Second))
	exec.logger.WithFields(logrus.Fields{
		"height":       height,
		"hash":         blockHash.String(),
		"count":        len(invocations),
		"parent_hash":  block.Header.ParentHash.String(),
		"receipt_root": receiptRoot.String(),
		"state_root":   stateRoot.String(),
		"elapse":       time.Since(current),
	}).Info("Executed block")

	exec.postBlockEvent(block, receipts)
	exec.postLogsEvent(receipts)
	return block, receipts, nil
}

// Call executes inv on a view of the vm and reverts every write it made.
func (exec *BlockExecutor) Call(inv *ledger.Invocation) ([]byte, error) {
	exec.lock.Lock()
	defer exec.lock.Unlock()

	stateLedger := exec.ledger.StateLedger
	snapshot := stateLedger.Snapshot()
	defer func() {
		stateLedger.RevertToSnapshot(snapshot)
		stateLedger.Finalise()
	}()

	to := inv.To
	res := system.RunNativeVM(exec.nvm.View(), exec.currentHeight+1, stateLedger, inv.Data, inv.From, &to)
	return res.ReturnData, res.Err
}

func (exec *BlockExecutor) applyInvocations(invocations []*ledger.Invocation, height uint64) []*ledger.Receipt {
	receipts := make([]*ledger.Receipt, 0, len(invocations))

	for i, inv := range invocations {
		receipts = append(receipts, exec.applyInvocation(i, inv, height))
	}

	exec.logger.Debugf("executor executed %d invocations", len(invocations))

	return receipts
}

func (exec *BlockExecutor) applyInvocation(i int, inv *ledger.Invocation, height uint64) *ledger.Receipt {
	stateLedger := exec.ledger.StateLedger
	defer stateLedger.Finalise()

	invHash := inv.Hash(height, uint64(i))
	stateLedger.SetTxContext(invHash, i)

	receipt := &ledger.Receipt{
		InvocationHash: invHash,
		BlockNumber:    height,
		Index:          uint64(i),
	}

	snapshot := stateLedger.Snapshot()
	to := inv.To
	result := system.RunNativeVM(exec.nvm, height, stateLedger, inv.Data, inv.From, &to)
	if result.Err != nil {
		stateLedger.RevertToSnapshot(snapshot)
		receipt.Status = ledger.ReceiptFailed
		receipt.Err = result.Err.Error()
		var revertErr *packer.RevertError
		if errors.As(result.Err, &revertErr) {
			receipt.RevertData = revertErr.Data
		}
		exec.logger.WithFields(logrus.Fields{
			"hash": invHash.String(),
			"from": inv.From.String(),
			"err":  result.Err.Error(),
		}).Warn("execute invocation failed")
		invocationCounter.WithLabelValues("failed").Inc()
		return receipt
	}

	receipt.Status = ledger.ReceiptSuccess
	receipt.Ret = result.ReturnData
	receipt.Logs = stateLedger.GetLogs(invHash, height)
	invocationCounter.WithLabelValues("success").Inc()
	return receipt
}

func (exec *BlockExecutor) calcReceiptMerkleRoot(receipts []*ledger.Receipt) (root common.Hash, err error) {
	return ledger.CalcMerkleRoot(lo.Map(receipts, func(item *ledger.Receipt, index int) merkletree.Content {
		return item.Hash()
	}))
}

func (exec *BlockExecutor) postBlockEvent(block *ledger.Block, receipts []*ledger.Receipt) {
	exec.blockFeed.Send(events.ExecutedEvent{
		Block:    block,
		Receipts: receipts,
	})
}

func (exec *BlockExecutor) postLogsEvent(receipts []*ledger.Receipt) {
	logs := make([]*types.Log, 0)
	for _, receipt := range receipts {
		logs = append(logs, receipt.Logs...)
	}
	if len(logs) == 0 {
		return
	}

	exec.logsFeed.Send(logs)
}

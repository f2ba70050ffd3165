package executor

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	sys_common "github.com/axiomesh/token-ledger/internal/executor/system/common"
	"github.com/axiomesh/token-ledger/internal/executor/system/common/mock_common"
	"github.com/axiomesh/token-ledger/internal/executor/system/token"
	"github.com/axiomesh/token-ledger/internal/ledger"
	"github.com/axiomesh/token-ledger/pkg/events"
	"github.com/axiomesh/token-ledger/pkg/packer"
	"github.com/axiomesh/token-ledger/pkg/repo"
)

var (
	tokenAddr = common.HexToAddress(sys_common.TokenLedgerContractAddr)
	deployer  = common.HexToAddress(repo.MockDeployer)
	alice     = common.HexToAddress(repo.MockAccounts[1])
	bob       = common.HexToAddress(repo.MockAccounts[2])
)

func prepareExecutor(t *testing.T) (*BlockExecutor, *ledger.Ledger) {
	r := repo.MockRepo(t)
	lg, err := ledger.NewMemory(r)
	require.Nil(t, err)
	exec, err := New(r, lg)
	require.Nil(t, err)
	return exec, lg
}

func invocation(t *testing.T, from common.Address, method string, args ...any) *ledger.Invocation {
	data, err := token.ParsedABI().Pack(method, args...)
	require.Nil(t, err)
	return &ledger.Invocation{From: from, To: tokenAddr, Data: data}
}

func callBalance(t *testing.T, exec *BlockExecutor, addr common.Address) *big.Int {
	ret, err := exec.Call(invocation(t, addr, token.BalanceOfMethod, addr))
	require.Nil(t, err)
	out, err := token.ParsedABI().Unpack(token.BalanceOfMethod, ret)
	require.Nil(t, err)
	return out[0].(*big.Int)
}

func TestNew(t *testing.T) {
	r := repo.MockRepo(t)
	lg, err := ledger.NewMemory(r)
	require.Nil(t, err)

	exec, err := New(r, lg)
	require.Nil(t, err)
	assert.Equal(t, lg, exec.ledger)
	assert.NotNil(t, exec.invocationC)
	assert.EqualValues(t, 0, exec.CurrentHeight())

	r.Config.Executor.MaxBlockInvocations = 0
	_, err = New(r, lg)
	assert.Error(t, err)
}

func TestExecuteBlock(t *testing.T) {
	exec, lg := prepareExecutor(t)

	blockC := make(chan events.ExecutedEvent, 1)
	blockSub := exec.SubscribeBlockEvent(blockC)
	defer blockSub.Unsubscribe()
	logsC := make(chan []*types.Log, 1)
	logsSub := exec.SubscribeLogsEvent(logsC)
	defer logsSub.Unsubscribe()

	block, receipts, err := exec.ExecuteBlock([]*ledger.Invocation{
		invocation(t, deployer, token.InitializeMethod, "Stylus", "STY", big.NewInt(1_000_000_000)),
		invocation(t, deployer, token.TransferMethod, alice, big.NewInt(100)),
		invocation(t, bob, token.TransferMethod, alice, big.NewInt(1)),
	})
	require.Nil(t, err)
	require.Len(t, receipts, 3)
	assert.EqualValues(t, 1, block.Number())
	assert.Equal(t, common.Hash{}, block.Header.ParentHash)

	assert.True(t, receipts[0].IsSuccess())
	assert.True(t, receipts[1].IsSuccess())
	assert.False(t, receipts[2].IsSuccess())
	assert.Len(t, receipts[0].Logs, 1)
	assert.Len(t, receipts[1].Logs, 1)
	assert.Empty(t, receipts[2].Logs)

	name, args, err := packer.UnpackError(token.ParsedABI(), receipts[2].RevertData)
	require.Nil(t, err)
	assert.Equal(t, "InsufficientBalance", name)
	assert.Equal(t, bob, args[0])

	assert.EqualValues(t, 1, receipts[1].Logs[0].Index)
	assert.Equal(t, block.Hash(), receipts[1].Logs[0].BlockHash)
	assert.Equal(t, receipts[1].InvocationHash, receipts[1].Logs[0].TxHash)

	meta := lg.ChainLedger.GetChainMeta()
	assert.EqualValues(t, 1, meta.Height)
	assert.Equal(t, block.Hash(), meta.BlockHash)
	assert.Equal(t, block.Header.StateRoot, meta.StateRoot)

	stored, err := lg.ChainLedger.GetReceipt(receipts[1].InvocationHash)
	require.Nil(t, err)
	assert.True(t, stored.IsSuccess())

	assert.EqualValues(t, 999_999_900, callBalance(t, exec, deployer).Int64())
	assert.EqualValues(t, 100, callBalance(t, exec, alice).Int64())
	assert.EqualValues(t, 0, callBalance(t, exec, bob).Int64())

	select {
	case ev := <-blockC:
		assert.Equal(t, block.Hash(), ev.Block.Hash())
		assert.Len(t, ev.Receipts, 3)
	case <-time.After(time.Second):
		t.Fatal("no block event")
	}
	select {
	case logs := <-logsC:
		assert.Len(t, logs, 2)
	case <-time.After(time.Second):
		t.Fatal("no logs event")
	}

	next, _, err := exec.ExecuteBlock([]*ledger.Invocation{
		invocation(t, alice, token.ApproveMethod, bob, big.NewInt(50)),
	})
	require.Nil(t, err)
	assert.Equal(t, block.Hash(), next.Header.ParentHash)
	assert.EqualValues(t, 2, exec.CurrentHeight())
}

func TestExecuteBlockFailedInvocationLeavesNoTrace(t *testing.T) {
	exec, lg := prepareExecutor(t)
	_, _, err := exec.ExecuteBlock([]*ledger.Invocation{
		invocation(t, deployer, token.InitializeMethod, "Stylus", "STY", big.NewInt(1000)),
	})
	require.Nil(t, err)
	rootBefore := lg.StateLedger.StateRoot()

	_, receipts, err := exec.ExecuteBlock([]*ledger.Invocation{
		invocation(t, alice, token.TransferFromMethod, deployer, bob, big.NewInt(1)),
		invocation(t, alice, token.InitializeMethod, "Other", "OTH", big.NewInt(1)),
	})
	require.Nil(t, err)
	for _, receipt := range receipts {
		assert.False(t, receipt.IsSuccess())
		assert.NotEmpty(t, receipt.RevertData)
	}
	assert.Equal(t, rootBefore, lg.StateLedger.StateRoot())

	logs, err := lg.ChainLedger.GetLogs(&ledger.LogFilter{FromBlock: 2, ToBlock: 2})
	require.Nil(t, err)
	assert.Empty(t, logs)
}

func TestExecuteBlockRollbackWithMockVM(t *testing.T) {
	r := repo.MockRepo(t)
	lg, err := ledger.NewMemory(r)
	require.Nil(t, err)

	mockCtl := gomock.NewController(t)
	vm := mock_common.NewMockVirtualMachine(mockCtl)
	exec, err := NewWithVM(r, lg, vm)
	require.Nil(t, err)

	key := []byte("slot")
	var stateLedger ledger.StateLedger
	vm.EXPECT().Reset(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Do(func(_ uint64, sl ledger.StateLedger, _ common.Address, _ *common.Address) {
		stateLedger = sl
	}).Times(2)
	gomock.InOrder(
		vm.EXPECT().Run(gomock.Any()).DoAndReturn(func(data []byte) ([]byte, error) {
			stateLedger.SetState(tokenAddr, key, []byte("written"))
			stateLedger.AddLog(&types.Log{Address: tokenAddr})
			return nil, errors.New("abort")
		}),
		vm.EXPECT().Run(gomock.Any()).DoAndReturn(func(data []byte) ([]byte, error) {
			exist, _ := stateLedger.GetState(tokenAddr, key)
			assert.False(t, exist)
			return []byte{1}, nil
		}),
	)

	_, receipts, err := exec.ExecuteBlock([]*ledger.Invocation{
		{From: alice, To: tokenAddr, Data: []byte{1}},
		{From: alice, To: tokenAddr, Data: []byte{2}},
	})
	require.Nil(t, err)
	assert.False(t, receipts[0].IsSuccess())
	assert.Equal(t, "abort", receipts[0].Err)
	assert.Empty(t, receipts[0].Logs)
	assert.True(t, receipts[1].IsSuccess())
	assert.Equal(t, []byte{1}, receipts[1].Ret)

	exist, _ := lg.StateLedger.GetState(tokenAddr, key)
	assert.False(t, exist)
}

func TestCallDiscardsWrites(t *testing.T) {
	exec, lg := prepareExecutor(t)
	_, _, err := exec.ExecuteBlock([]*ledger.Invocation{
		invocation(t, deployer, token.InitializeMethod, "Stylus", "STY", big.NewInt(1000)),
	})
	require.Nil(t, err)

	ret, err := exec.Call(invocation(t, deployer, token.TransferMethod, alice, big.NewInt(10)))
	require.Nil(t, err)
	out, err := token.ParsedABI().Unpack(token.TransferMethod, ret)
	require.Nil(t, err)
	assert.Equal(t, true, out[0])

	assert.EqualValues(t, 0, callBalance(t, exec, alice).Int64())
	assert.EqualValues(t, 1, lg.ChainLedger.GetChainMeta().Height)

	_, err = exec.Call(invocation(t, bob, token.TransferMethod, alice, big.NewInt(10)))
	assert.Error(t, err)
}

func TestExecuteBlockLimits(t *testing.T) {
	exec, _ := prepareExecutor(t)
	_, _, err := exec.ExecuteBlock(nil)
	assert.ErrorIs(t, err, ErrEmptyBlock)

	invocations := make([]*ledger.Invocation, exec.maxBlockInvocations+1)
	for i := range invocations {
		invocations[i] = invocation(t, alice, token.NameMethod)
	}
	_, _, err = exec.ExecuteBlock(invocations)
	assert.ErrorIs(t, err, ErrTooManyInvocations)
}

func TestSubmitInvocation(t *testing.T) {
	exec, lg := prepareExecutor(t)
	require.Nil(t, exec.Start())

	ctx := context.Background()
	receipt, err := exec.SubmitInvocation(ctx, invocation(t, deployer, token.InitializeMethod, "Stylus", "STY", big.NewInt(1000)))
	require.Nil(t, err)
	require.True(t, receipt.IsSuccess())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			receipt, err := exec.SubmitInvocation(ctx, invocation(t, deployer, token.TransferMethod, alice, big.NewInt(1)))
			assert.Nil(t, err)
			assert.True(t, receipt.IsSuccess())
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 20, callBalance(t, exec, alice).Int64())
	assert.EqualValues(t, 980, callBalance(t, exec, deployer).Int64())
	assert.LessOrEqual(t, lg.ChainLedger.GetChainMeta().Height, uint64(21))

	require.Nil(t, exec.Stop())
	_, err = exec.SubmitInvocation(ctx, invocation(t, deployer, token.NameMethod))
	assert.ErrorIs(t, err, ErrExecutorStopped)
}

func TestSubmitInvocationContextCanceled(t *testing.T) {
	exec, _ := prepareExecutor(t)
	// not started, nothing drains the queue
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := exec.SubmitInvocation(ctx, invocation(t, deployer, token.NameMethod))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

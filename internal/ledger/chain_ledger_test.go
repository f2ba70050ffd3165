package ledger

import (
	"testing"

	"github.com/cbergoon/merkletree"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiomesh/token-ledger/internal/storagemgr/kv"
	"github.com/axiomesh/token-ledger/pkg/repo"
)

var (
	transferTopic = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	approvalTopic = common.HexToHash("0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925")
)

func mockBlock(parent *ChainMeta, invocations []*Invocation) (*Block, []*Receipt) {
	number := parent.Height + 1
	receipts := make([]*Receipt, 0, len(invocations))
	for i, inv := range invocations {
		receipts = append(receipts, &Receipt{
			InvocationHash: inv.Hash(number, uint64(i)),
			BlockNumber:    number,
			Index:          uint64(i),
			Status:         ReceiptSuccess,
			Ret:            []byte{1},
			Logs: []*types.Log{
				{Address: inv.To, Topics: []common.Hash{transferTopic, common.BytesToHash(inv.From.Bytes())}, Data: []byte{byte(i)}},
				{Address: inv.To, Topics: []common.Hash{approvalTopic}, Data: []byte{byte(i)}},
			},
		})
	}
	return &Block{
		Header: &BlockHeader{
			Number:      number,
			ParentHash:  parent.BlockHash,
			StateRoot:   common.HexToHash("0xaa"),
			ReceiptRoot: EmptyRoot,
			Timestamp:   1700000000 + number,
		},
		Invocations: invocations,
	}, receipts
}

func TestChainLedger_Persist(t *testing.T) {
	rep := repo.MockRepo(t)
	store := kv.NewMemory()
	l, err := newChainLedger(rep, store)
	require.Nil(t, err)
	assert.EqualValues(t, 0, l.GetChainMeta().Height)

	invs := []*Invocation{
		{From: addr2, To: addr1, Data: []byte{0xa9, 0x05, 0x9c, 0xbb}},
		{From: addr2, To: addr1, Data: []byte{0xa9, 0x05, 0x9c, 0xbb}},
	}
	block, receipts := mockBlock(l.GetChainMeta(), invs)
	require.Nil(t, l.PersistExecutionResult(block, receipts))

	meta := l.GetChainMeta()
	assert.EqualValues(t, 1, meta.Height)
	assert.Equal(t, block.Hash(), meta.BlockHash)
	assert.Equal(t, block.Header.StateRoot, meta.StateRoot)

	// identical payloads get distinct hashes
	assert.NotEqual(t, receipts[0].InvocationHash, receipts[1].InvocationHash)

	// reload from storage without caches
	reopened, err := newChainLedger(rep, store)
	require.Nil(t, err)
	assert.Equal(t, meta, reopened.GetChainMeta())

	got, err := reopened.GetBlock(1)
	require.Nil(t, err)
	assert.Equal(t, block.Hash(), got.Hash())
	assert.Len(t, got.Invocations, 2)

	got, err = reopened.GetBlockByHash(block.Hash())
	require.Nil(t, err)
	assert.EqualValues(t, 1, got.Number())

	receipt, err := reopened.GetReceipt(receipts[1].InvocationHash)
	require.Nil(t, err)
	assert.EqualValues(t, 1, receipt.Index)
	assert.True(t, receipt.IsSuccess())
	require.Len(t, receipt.Logs, 2)
	assert.EqualValues(t, 2, receipt.Logs[0].Index)
	assert.Equal(t, block.Hash(), receipt.Logs[0].BlockHash)
	assert.Equal(t, receipts[1].InvocationHash, receipt.Logs[0].TxHash)
	assert.Equal(t, receipts[1].Hash(), receipt.Hash())

	_, err = reopened.GetBlock(2)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = reopened.GetReceipt(common.HexToHash("0x1234"))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = reopened.GetBlockByHash(common.HexToHash("0x1234"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChainLedger_PersistWrongBlock(t *testing.T) {
	l, err := newChainLedger(repo.MockRepo(t), kv.NewMemory())
	require.Nil(t, err)

	block, receipts := mockBlock(&ChainMeta{Height: 1}, nil)
	err = l.PersistExecutionResult(block, receipts)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "does not follow")

	block, receipts = mockBlock(&ChainMeta{BlockHash: common.HexToHash("0x01")}, nil)
	err = l.PersistExecutionResult(block, receipts)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "parent hash")
}

func TestChainLedger_GetLogs(t *testing.T) {
	l, err := newChainLedger(repo.MockRepo(t), kv.NewMemory())
	require.Nil(t, err)

	logs, err := l.GetLogs(&LogFilter{})
	require.Nil(t, err)
	assert.Empty(t, logs)

	for i := 0; i < 3; i++ {
		block, receipts := mockBlock(l.GetChainMeta(), []*Invocation{{From: addr2, To: addr1}})
		require.Nil(t, l.PersistExecutionResult(block, receipts))
	}

	logs, err = l.GetLogs(&LogFilter{})
	require.Nil(t, err)
	assert.Len(t, logs, 6)

	logs, err = l.GetLogs(&LogFilter{FromBlock: 2, ToBlock: 2})
	require.Nil(t, err)
	require.Len(t, logs, 2)
	assert.EqualValues(t, 2, logs[0].BlockNumber)

	logs, err = l.GetLogs(&LogFilter{Topics: [][]common.Hash{{transferTopic}}})
	require.Nil(t, err)
	assert.Len(t, logs, 3)

	logs, err = l.GetLogs(&LogFilter{Topics: [][]common.Hash{{transferTopic, approvalTopic}}})
	require.Nil(t, err)
	assert.Len(t, logs, 6)

	logs, err = l.GetLogs(&LogFilter{Topics: [][]common.Hash{{}, {common.BytesToHash(addr2.Bytes())}}})
	require.Nil(t, err)
	assert.Len(t, logs, 3)

	logs, err = l.GetLogs(&LogFilter{Addresses: []common.Address{addr2}})
	require.Nil(t, err)
	assert.Empty(t, logs)

	logs, err = l.GetLogs(&LogFilter{FromBlock: 10})
	require.Nil(t, err)
	assert.Empty(t, logs)

	_, err = l.GetLogs(&LogFilter{FromBlock: 3, ToBlock: 2})
	assert.ErrorIs(t, err, ErrInvalidBlockRange)
}

func TestCalcMerkleRoot(t *testing.T) {
	root, err := CalcMerkleRoot(nil)
	require.Nil(t, err)
	assert.Equal(t, EmptyRoot, root)

	r := &Receipt{Status: ReceiptSuccess}
	root1, err := CalcMerkleRoot([]merkletree.Content{r.Hash()})
	require.Nil(t, err)
	assert.NotEqual(t, EmptyRoot, root1)
}

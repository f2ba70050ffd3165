package ledger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiomesh/token-ledger/internal/storagemgr/kv"
	"github.com/axiomesh/token-ledger/pkg/loggers"
	"github.com/axiomesh/token-ledger/pkg/repo"
)

var (
	addr1 = common.HexToAddress("0x0000000000000000000000000000000000001002")
	addr2 = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func newTestStateLedger(t *testing.T, backend kv.Storage) *StateLedgerImpl {
	l, err := newStateLedger(loggers.Logger(loggers.Storage), backend, 16)
	require.Nil(t, err)
	return l
}

func TestStateLedger_GetSetState(t *testing.T) {
	l := newTestStateLedger(t, kv.NewMemory())

	assert.Nil(t, l.GetAccount(addr1))
	exist, value := l.GetState(addr1, []byte("k"))
	assert.False(t, exist)
	assert.Nil(t, value)

	l.SetState(addr1, []byte("k"), []byte("v"))
	require.NotNil(t, l.GetAccount(addr1))
	assert.Equal(t, addr1, l.GetAccount(addr1).GetAddress())
	exist, value = l.GetState(addr1, []byte("k"))
	assert.True(t, exist)
	assert.Equal(t, []byte("v"), value)

	// empty value deletes
	l.SetState(addr1, []byte("k"), []byte{})
	exist, value = l.GetState(addr1, []byte("k"))
	assert.False(t, exist)
	assert.Nil(t, value)
}

func TestStateLedger_RevertToSnapshot(t *testing.T) {
	l := newTestStateLedger(t, kv.NewMemory())

	l.SetState(addr1, []byte("a"), []byte("1"))
	l.Finalise()

	snap := l.Snapshot()
	l.SetState(addr1, []byte("a"), []byte("2"))
	l.SetState(addr1, []byte("b"), []byte("3"))
	l.SetState(addr2, []byte("c"), []byte("4"))
	l.SetState(addr1, []byte("a"), []byte("5"))

	inner := l.Snapshot()
	l.SetState(addr1, []byte("a"), []byte("6"))
	l.RevertToSnapshot(inner)
	_, value := l.GetState(addr1, []byte("a"))
	assert.Equal(t, []byte("5"), value)

	l.RevertToSnapshot(snap)
	_, value = l.GetState(addr1, []byte("a"))
	assert.Equal(t, []byte("1"), value)
	exist, _ := l.GetState(addr1, []byte("b"))
	assert.False(t, exist)
	assert.Nil(t, l.GetAccount(addr2))

	assert.Panics(t, func() {
		l.RevertToSnapshot(inner)
	})
}

func TestStateLedger_Logs(t *testing.T) {
	l := newTestStateLedger(t, kv.NewMemory())
	hash1 := common.HexToHash("0x01")
	hash2 := common.HexToHash("0x02")

	l.SetTxContext(hash1, 0)
	l.AddLog(&types.Log{Address: addr1})
	l.Finalise()

	l.SetTxContext(hash2, 1)
	snap := l.Snapshot()
	l.AddLog(&types.Log{Address: addr1})
	l.AddLog(&types.Log{Address: addr1})
	assert.Len(t, l.GetLogs(hash2, 1), 2)
	l.RevertToSnapshot(snap)
	assert.Len(t, l.GetLogs(hash2, 1), 0)

	l.AddLog(&types.Log{Address: addr2})
	logs := l.GetLogs(hash2, 7)
	require.Len(t, logs, 1)
	assert.EqualValues(t, 1, logs[0].Index)
	assert.EqualValues(t, 1, logs[0].TxIndex)
	assert.EqualValues(t, 7, logs[0].BlockNumber)
	assert.Equal(t, hash2, logs[0].TxHash)

	logs = l.GetLogs(hash1, 7)
	require.Len(t, logs, 1)
	assert.EqualValues(t, 0, logs[0].Index)

	l.Clear()
	assert.Len(t, l.GetLogs(hash1, 7), 0)
}

func TestStateLedger_Commit(t *testing.T) {
	backend := kv.NewMemory()
	l := newTestStateLedger(t, backend)
	assert.EqualValues(t, 0, l.Version())

	l.SetState(addr1, []byte("a"), []byte("1"))
	l.SetState(addr1, []byte("b"), []byte("2"))
	l.Finalise()
	// not finalised, never committed
	l.SetState(addr2, []byte("c"), []byte("3"))

	root1, err := l.Commit()
	require.Nil(t, err)
	assert.NotEqual(t, common.Hash{}, root1)
	assert.EqualValues(t, 1, l.Version())
	assert.Equal(t, root1, l.StateRoot())
	assert.Equal(t, root1, l.StateRootAt(1))

	reopened := newTestStateLedger(t, backend)
	assert.EqualValues(t, 1, reopened.Version())
	assert.Equal(t, root1, reopened.StateRoot())
	_, value := reopened.GetState(addr1, []byte("b"))
	assert.Equal(t, []byte("2"), value)
	assert.Nil(t, reopened.GetAccount(addr2))

	// no changes keeps the root
	root2, err := reopened.Commit()
	require.Nil(t, err)
	assert.Equal(t, root1, root2)
	assert.EqualValues(t, 2, reopened.Version())

	reopened.SetState(addr1, []byte("a"), nil)
	reopened.Finalise()
	root3, err := reopened.Commit()
	require.Nil(t, err)
	assert.NotEqual(t, root2, root3)
	exist, _ := reopened.GetState(addr1, []byte("a"))
	assert.False(t, exist)

	again := newTestStateLedger(t, backend)
	exist, _ = again.GetState(addr1, []byte("a"))
	assert.False(t, exist)
	require.NotNil(t, again.GetAccount(addr1))
}

func TestStateLedger_CommitRootIsDeterministic(t *testing.T) {
	write := func(l *StateLedgerImpl, order []common.Address) common.Hash {
		for _, addr := range order {
			l.SetState(addr, []byte("k"), addr.Bytes())
		}
		l.Finalise()
		root, err := l.Commit()
		require.Nil(t, err)
		return root
	}

	r1 := write(newTestStateLedger(t, kv.NewMemory()), []common.Address{addr1, addr2})
	r2 := write(newTestStateLedger(t, kv.NewMemory()), []common.Address{addr2, addr1})
	assert.Equal(t, r1, r2)
}

func TestNewLedgerConsistency(t *testing.T) {
	rep := repo.MockRepo(t)
	bcStore := kv.NewMemory()
	stateStore := kv.NewMemory()
	l, err := NewLedgerWithStores(rep, bcStore, stateStore)
	require.Nil(t, err)

	l.StateLedger.SetState(addr1, []byte("a"), []byte("1"))
	l.StateLedger.Finalise()
	_, err = l.StateLedger.Commit()
	require.Nil(t, err)

	// state advanced without a persisted block
	_, err = NewLedgerWithStores(rep, bcStore, stateStore)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "mismatch chain height")
}

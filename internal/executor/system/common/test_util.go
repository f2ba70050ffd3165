package common

import (
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/axiomesh/token-ledger/internal/ledger"
	"github.com/axiomesh/token-ledger/pkg/repo"
)

// TestNVM drives system contracts directly against an in-memory ledger.
type TestNVM struct {
	t           testing.TB
	Rep         *repo.Repo
	Ledger      *ledger.Ledger
	StateLedger ledger.StateLedger
}

func NewTestNVM(t testing.TB) *TestNVM {
	rep := repo.MockRepo(t)
	lg, err := ledger.NewMemory(rep)
	require.Nil(t, err)
	return &TestNVM{
		t:           t,
		Rep:         rep,
		Ledger:      lg,
		StateLedger: lg.StateLedger,
	}
}

// RunSingleTX runs executor as one invocation from the given caller. A failing
// executor is rolled back and its logs dropped.
func (nvm *TestNVM) RunSingleTX(contract SystemContract, from ethcommon.Address, executor func() error) []*types.Log {
	snapshot := nvm.StateLedger.Snapshot()
	var logs []*types.Log
	contract.SetContext(&VMContext{
		StateLedger: nvm.StateLedger,
		BlockNumber: nvm.Ledger.ChainLedger.GetChainMeta().Height + 1,
		From:        from,
		CurrentLogs: &logs,
	})
	if err := executor(); err != nil {
		nvm.StateLedger.RevertToSnapshot(snapshot)
		return nil
	}
	nvm.StateLedger.Finalise()
	return logs
}

// Call runs a read and always reverts.
func (nvm *TestNVM) Call(contract SystemContract, from ethcommon.Address, executor func()) {
	snapshot := nvm.StateLedger.Snapshot()
	var logs []*types.Log
	contract.SetContext(&VMContext{
		StateLedger: nvm.StateLedger,
		BlockNumber: nvm.Ledger.ChainLedger.GetChainMeta().Height + 1,
		From:        from,
		CurrentLogs: &logs,
	})
	executor()
	nvm.StateLedger.RevertToSnapshot(snapshot)
}

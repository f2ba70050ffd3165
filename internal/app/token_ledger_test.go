package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiomesh/token-ledger/pkg/repo"
)

func TestTokenLedgerRestart(t *testing.T) {
	rep := repo.MockRepo(t)
	rep.Config.Storage.KvType = repo.KVStorageTypePebble
	rep.GenesisConfig.Policy.ApproveRequiresBalance = true

	ctx, cancel := context.WithCancel(context.Background())
	tl, err := NewTokenLedger(rep, ctx, cancel)
	require.Nil(t, err)
	require.Nil(t, tl.Start())
	meta := tl.Ledger.ChainLedger.GetChainMeta()
	assert.EqualValues(t, 1, meta.Height)
	require.Nil(t, tl.Stop())

	// the stored genesis config wins over a changed file
	rep2 := repo.MockRepo(t)
	rep2.RepoRoot = rep.RepoRoot
	rep2.Config.Storage.KvType = repo.KVStorageTypePebble
	rep2.GenesisConfig.Token.Symbol = "OTHER"

	ctx, cancel = context.WithCancel(context.Background())
	tl, err = NewTokenLedger(rep2, ctx, cancel)
	require.Nil(t, err)
	defer func() {
		assert.Nil(t, tl.Stop())
	}()
	require.Nil(t, tl.Start())

	reopened := tl.Ledger.ChainLedger.GetChainMeta()
	assert.EqualValues(t, 1, reopened.Height)
	assert.Equal(t, meta.BlockHash, reopened.BlockHash)
	assert.Equal(t, meta.StateRoot, reopened.StateRoot)
	assert.Equal(t, rep.GenesisConfig.Token.Symbol, rep2.GenesisConfig.Token.Symbol)
	assert.True(t, rep2.GenesisConfig.Policy.ApproveRequiresBalance)
}

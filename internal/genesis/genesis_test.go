package genesis

import (
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiomesh/token-ledger/internal/executor"
	"github.com/axiomesh/token-ledger/internal/executor/system/common"
	"github.com/axiomesh/token-ledger/internal/executor/system/token"
	"github.com/axiomesh/token-ledger/internal/ledger"
	"github.com/axiomesh/token-ledger/pkg/repo"
)

func prepare(t *testing.T) (*repo.Repo, *ledger.Ledger, *executor.BlockExecutor) {
	rep := repo.MockRepo(t)
	lg, err := ledger.NewMemory(rep)
	require.Nil(t, err)
	exec, err := executor.New(rep, lg)
	require.Nil(t, err)
	return rep, lg, exec
}

func TestInitialize(t *testing.T) {
	rep, lg, exec := prepare(t)

	assert.False(t, IsInitialized(lg))
	cfg, err := GetGenesisConfig(lg)
	assert.Nil(t, err)
	assert.Nil(t, cfg)

	require.Nil(t, Initialize(rep.GenesisConfig, lg, exec))
	assert.True(t, IsInitialized(lg))
	assert.EqualValues(t, 1, lg.ChainLedger.GetChainMeta().Height)

	cfg, err = GetGenesisConfig(lg)
	require.Nil(t, err)
	assert.Equal(t, rep.GenesisConfig.Token, cfg.Token)
	assert.Equal(t, rep.GenesisConfig.Policy, cfg.Policy)

	data, err := token.ParsedABI().Pack(token.BalanceOfMethod, ethcommon.HexToAddress(rep.GenesisConfig.Token.Deployer))
	require.Nil(t, err)
	ret, err := exec.Call(&ledger.Invocation{To: ethcommon.HexToAddress(common.TokenLedgerContractAddr), Data: data})
	require.Nil(t, err)
	out, err := token.ParsedABI().Unpack(token.BalanceOfMethod, ret)
	require.Nil(t, err)
	supply, err := rep.GenesisConfig.Token.InitialSupplyValue()
	require.Nil(t, err)
	assert.Equal(t, 0, supply.Cmp(out[0].(*big.Int)))

	logs, err := lg.ChainLedger.GetLogs(&ledger.LogFilter{FromBlock: 1, ToBlock: 1})
	require.Nil(t, err)
	assert.Len(t, logs, 1)

	// a non-empty ledger is never initialized again
	assert.Error(t, Initialize(rep.GenesisConfig, lg, exec))
}

func TestInitializeInvalidConfig(t *testing.T) {
	rep, lg, exec := prepare(t)
	rep.GenesisConfig.Token.InitialSupply = "-1"
	assert.Error(t, Initialize(rep.GenesisConfig, lg, exec))
	assert.EqualValues(t, 0, lg.ChainLedger.GetChainMeta().Height)
	assert.False(t, IsInitialized(lg))
}

package repo

import (
	"os"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	repoRoot := t.TempDir()
	rep, err := Load(repoRoot)
	require.Nil(t, err)
	assert.Equal(t, repoRoot, rep.RepoRoot)
	assert.Equal(t, DefaultConfig(), rep.Config)
	assert.Equal(t, DefaultGenesisConfig(), rep.GenesisConfig)

	assert.FileExists(t, path.Join(repoRoot, CfgFileName))
	assert.FileExists(t, path.Join(repoRoot, genesisCfgFileName))

	// load again from the written files
	rep2, err := Load(repoRoot)
	require.Nil(t, err)
	assert.Equal(t, rep.Config, rep2.Config)
	assert.Equal(t, rep.GenesisConfig, rep2.GenesisConfig)
}

func TestFlush(t *testing.T) {
	repoRoot := t.TempDir()
	rep := Default(repoRoot)
	rep.Config.Port.JsonRpc = 18881
	rep.Config.JsonRPC.CallTimeout = Duration(3 * time.Second)
	rep.GenesisConfig.Token.Name = "Gold"
	rep.GenesisConfig.Policy.ApproveRequiresBalance = true
	require.Nil(t, rep.Flush())

	loaded, err := Load(repoRoot)
	require.Nil(t, err)
	assert.EqualValues(t, 18881, loaded.Config.Port.JsonRpc)
	assert.Equal(t, 3*time.Second, loaded.Config.JsonRPC.CallTimeout.ToDuration())
	assert.Equal(t, "Gold", loaded.GenesisConfig.Token.Name)
	assert.True(t, loaded.GenesisConfig.Policy.ApproveRequiresBalance)
}

func TestLoadConfigWithEnv(t *testing.T) {
	repoRoot := t.TempDir()
	t.Setenv("TOKEN_LEDGER_PORT_JSONRPC", "28881")
	t.Setenv("TOKEN_LEDGER_GENESIS_TOKEN_SYMBOL", "ENV")

	cfg, err := LoadConfig(repoRoot)
	require.Nil(t, err)
	assert.EqualValues(t, 28881, cfg.Port.JsonRpc)

	genesis, err := LoadGenesisConfig(repoRoot)
	require.Nil(t, err)
	assert.Equal(t, "ENV", genesis.Token.Symbol)
}

func TestLoadConfigWithWrongFormat(t *testing.T) {
	repoRoot := t.TempDir()
	err := os.WriteFile(path.Join(repoRoot, CfgFileName), []byte("[port]\njsonrpc = \"abc\"\n"), 0644)
	require.Nil(t, err)

	_, err = LoadConfig(repoRoot)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "check config formater failed")
}

func TestGenesisConfig_Validate(t *testing.T) {
	testcases := []struct {
		name   string
		modify func(g *GenesisConfig)
		errMsg string
	}{
		{name: "default", modify: func(g *GenesisConfig) {}},
		{name: "empty name", modify: func(g *GenesisConfig) { g.Token.Name = "" }, errMsg: "name is empty"},
		{name: "empty symbol", modify: func(g *GenesisConfig) { g.Token.Symbol = "" }, errMsg: "symbol is empty"},
		{name: "bad deployer", modify: func(g *GenesisConfig) { g.Token.Deployer = "0x123" }, errMsg: "invalid genesis deployer"},
		{name: "zero deployer", modify: func(g *GenesisConfig) { g.Token.Deployer = "0x0000000000000000000000000000000000000000" }, errMsg: "zero address"},
		{name: "bad supply", modify: func(g *GenesisConfig) { g.Token.InitialSupply = "1e9" }, errMsg: "invalid initial supply"},
		{name: "negative supply", modify: func(g *GenesisConfig) { g.Token.InitialSupply = "-1" }, errMsg: "below zero"},
		{
			name: "supply overflow",
			modify: func(g *GenesisConfig) {
				g.Token.InitialSupply = "115792089237316195423570985008687907853269984665640564039457584007913129639936"
			},
			errMsg: "exceeds uint256",
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			g := DefaultGenesisConfig()
			tc.modify(g)
			err := g.Validate()
			if tc.errMsg == "" {
				assert.Nil(t, err)
				return
			}
			require.NotNil(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestLoadRepoRootFromEnv(t *testing.T) {
	root, err := LoadRepoRootFromEnv("/tmp/explicit")
	require.Nil(t, err)
	assert.Equal(t, "/tmp/explicit", root)

	t.Setenv(rootPathEnvVar, "/tmp/from-env")
	root, err = LoadRepoRootFromEnv("")
	require.Nil(t, err)
	assert.Equal(t, "/tmp/from-env", root)
}

func TestPid(t *testing.T) {
	repoRoot := t.TempDir()
	require.Nil(t, WritePid(repoRoot))
	assert.FileExists(t, path.Join(repoRoot, pidFileName))
	require.Nil(t, RemovePID(repoRoot))
	assert.NoFileExists(t, path.Join(repoRoot, pidFileName))
}

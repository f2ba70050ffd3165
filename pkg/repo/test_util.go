package repo

import (
	"testing"
)

const (
	MockDeployer = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

var MockAccounts = []string{
	"0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
	"0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC",
	"0x90F79bf6EB2c4f870365E785982E1f101E93b906",
	"0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65",
}

func MockRepo(t testing.TB) *Repo {
	repoRoot := t.TempDir()
	rep := Default(repoRoot)
	rep.Config.Storage.KvType = KVStorageTypeMemory
	rep.Config.Monitor.Enable = false
	rep.Config.Ulimit = 0
	rep.Config.Port.JsonRpc = 0
	rep.Config.Port.WebSocket = 0
	rep.GenesisConfig.Token.Deployer = MockDeployer
	return rep
}

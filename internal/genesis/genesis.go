package genesis

import (
	"encoding/json"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/axiomesh/token-ledger/internal/executor"
	"github.com/axiomesh/token-ledger/internal/executor/system/common"
	"github.com/axiomesh/token-ledger/internal/executor/system/token"
	"github.com/axiomesh/token-ledger/internal/ledger"
	"github.com/axiomesh/token-ledger/pkg/repo"
)

var (
	genesisConfigKey = []byte("genesis_cfg")
)

// Initialize records the genesis config and runs initialize from the deployer
// as block 1. The ledger must be empty.
func Initialize(genesis *repo.GenesisConfig, lg *ledger.Ledger, exec executor.Executor) error {
	if height := lg.ChainLedger.GetChainMeta().Height; height != 0 {
		return errors.Errorf("ledger already has %d blocks", height)
	}
	if err := genesis.Validate(); err != nil {
		return errors.Wrap(err, "invalid genesis config")
	}
	supply, err := genesis.Token.InitialSupplyValue()
	if err != nil {
		return err
	}
	data, err := token.ParsedABI().Pack(token.InitializeMethod, genesis.Token.Name, genesis.Token.Symbol, supply)
	if err != nil {
		return errors.Wrap(err, "pack initialize call")
	}

	if err := initializeGenesisConfig(genesis, lg.StateLedger); err != nil {
		return err
	}
	lg.StateLedger.Finalise()

	_, receipts, err := exec.ExecuteBlock([]*ledger.Invocation{
		{
			From: ethcommon.HexToAddress(genesis.Token.Deployer),
			To:   ethcommon.HexToAddress(common.TokenLedgerContractAddr),
			Data: data,
		},
	})
	if err != nil {
		return errors.Wrap(err, "execute genesis block")
	}
	if !receipts[0].IsSuccess() {
		return errors.Errorf("genesis initialize failed: %s", receipts[0].Err)
	}
	return nil
}

func IsInitialized(lg *ledger.Ledger) bool {
	account := lg.StateLedger.GetAccount(ethcommon.HexToAddress(common.ZeroAddress))
	if account == nil {
		return false
	}
	exists, _ := account.GetState(genesisConfigKey)
	return exists
}

func initializeGenesisConfig(genesis *repo.GenesisConfig, lg ledger.StateLedger) error {
	account := lg.GetOrCreateAccount(ethcommon.HexToAddress(common.ZeroAddress))

	genesisCfg, err := json.Marshal(genesis)
	if err != nil {
		return err
	}
	account.SetState(genesisConfigKey, genesisCfg)
	return nil
}

// GetGenesisConfig retrieves the genesis configuration from the given ledger.
func GetGenesisConfig(lg *ledger.Ledger) (*repo.GenesisConfig, error) {
	account := lg.StateLedger.GetAccount(ethcommon.HexToAddress(common.ZeroAddress))
	if account == nil {
		return nil, nil
	}

	state, bytes := account.GetState(genesisConfigKey)
	if !state {
		return nil, nil
	}

	genesis := &repo.GenesisConfig{}
	err := json.Unmarshal(bytes, genesis)
	if err != nil {
		return nil, err
	}

	return genesis, nil
}

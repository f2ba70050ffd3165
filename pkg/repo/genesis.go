package repo

import (
	"math/big"
	"os"
	"path"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

type GenesisConfig struct {
	ChainID uint64      `mapstructure:"chainid" toml:"chainid"`
	Token   Token       `mapstructure:"token" toml:"token"`
	Policy  TokenPolicy `mapstructure:"policy" toml:"policy"`
}

// Token is the metadata and supply passed to initialize at genesis.
type Token struct {
	Name          string `mapstructure:"name" toml:"name"`
	Symbol        string `mapstructure:"symbol" toml:"symbol"`
	InitialSupply string `mapstructure:"initial_supply" toml:"initial_supply"`
	Deployer      string `mapstructure:"deployer" toml:"deployer"`
}

type TokenPolicy struct {
	// approve fails with InsufficientBalance when the approver holds less than the approved value
	ApproveRequiresBalance bool `mapstructure:"approve_requires_balance" toml:"approve_requires_balance"`

	// transfer and transferFrom fail with TransferToZeroAddress when the receiver is 0x0
	RejectZeroAddress bool `mapstructure:"reject_zero_address" toml:"reject_zero_address"`
}

func DefaultGenesisConfig() *GenesisConfig {
	return &GenesisConfig{
		ChainID: 1356,
		Token: Token{
			Name:          "Stylus",
			Symbol:        "STY",
			InitialSupply: DefaultInitialSupply,
			Deployer:      DefaultDeployer,
		},
		Policy: TokenPolicy{
			ApproveRequiresBalance: false,
			RejectZeroAddress:      true,
		},
	}
}

// InitialSupplyValue parses the decimal initial supply.
func (t *Token) InitialSupplyValue() (*big.Int, error) {
	supply, ok := new(big.Int).SetString(t.InitialSupply, 10)
	if !ok {
		return nil, errors.Errorf("invalid initial supply: %q", t.InitialSupply)
	}
	if supply.Sign() < 0 {
		return nil, errors.Errorf("initial supply below zero: %s", t.InitialSupply)
	}
	if supply.BitLen() > 256 {
		return nil, errors.Errorf("initial supply exceeds uint256: %s", t.InitialSupply)
	}
	return supply, nil
}

func (g *GenesisConfig) Validate() error {
	if g.Token.Name == "" {
		return errors.New("genesis token name is empty")
	}
	if g.Token.Symbol == "" {
		return errors.New("genesis token symbol is empty")
	}
	if !ethcommon.IsHexAddress(g.Token.Deployer) {
		return errors.Errorf("invalid genesis deployer address: %q", g.Token.Deployer)
	}
	if ethcommon.HexToAddress(g.Token.Deployer) == (ethcommon.Address{}) {
		return errors.New("genesis deployer is the zero address")
	}
	if _, err := g.Token.InitialSupplyValue(); err != nil {
		return err
	}
	return nil
}

func LoadGenesisConfig(repoRoot string) (*GenesisConfig, error) {
	genesis, err := func() (*GenesisConfig, error) {
		genesis := DefaultGenesisConfig()
		cfgPath := path.Join(repoRoot, genesisCfgFileName)
		if !fileExist(cfgPath) {
			err := os.MkdirAll(repoRoot, 0755)
			if err != nil {
				return nil, errors.Wrap(err, "failed to build default config")
			}

			if err := writeConfigWithEnv(cfgPath, genesis); err != nil {
				return nil, errors.Wrap(err, "failed to build default genesis config")
			}
		} else {
			if err := CheckWritable(repoRoot); err != nil {
				return nil, err
			}
			if err := readConfigFromFile(cfgPath, genesis); err != nil {
				return nil, err
			}
		}

		if err := genesis.Validate(); err != nil {
			return nil, err
		}
		return genesis, nil
	}()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load genesis config")
	}
	return genesis, nil
}

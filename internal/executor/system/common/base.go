package common

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/token-ledger/internal/ledger"
	"github.com/axiomesh/token-ledger/pkg/packer"
)

// SystemContractBase holds what every native contract shares: its address,
// abi, the invocation context and the contract account.
type SystemContractBase struct {
	Logger       logrus.FieldLogger
	Address      ethcommon.Address
	Abi          abi.ABI
	Ctx          *VMContext
	StateAccount ledger.IAccount
}

func NewSystemContractBase(cfg *SystemContractConfig, addr ethcommon.Address, contractABI abi.ABI) SystemContractBase {
	return SystemContractBase{
		Logger:  cfg.Logger,
		Address: addr,
		Abi:     contractABI,
	}
}

func (s *SystemContractBase) SetContext(ctx *VMContext) {
	s.Ctx = ctx
	s.StateAccount = ctx.StateLedger.GetOrCreateAccount(s.Address)
}

// EmitEvent packs the event and queues it as a log of the current invocation.
func (s *SystemContractBase) EmitEvent(event packer.Event) {
	log, err := event.Pack(s.Abi)
	if err != nil {
		panic(err)
	}
	log.Address = s.Address
	*s.Ctx.CurrentLogs = append(*s.Ctx.CurrentLogs, log)
}

package common

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/token-ledger/internal/ledger"
)

const (
	// ZeroAddress is a special address, no one has control
	ZeroAddress = "0x0000000000000000000000000000000000000000"

	// system contract address range 0x1000-0xffff, avoid conflicts with precompiled contracts
	SystemContractStartAddr = "0x0000000000000000000000000000000000001000"

	// TokenLedgerContractAddr is the fungible token ledger
	TokenLedgerContractAddr = "0x0000000000000000000000000000000000001002"

	// SystemContractEndAddr is the end address of system contract
	SystemContractEndAddr = "0x000000000000000000000000000000000000ffff"
)

type SystemContractConfig struct {
	Logger logrus.FieldLogger
}

//go:generate mockgen -destination mock_common/mock_common.go -package mock_common -source common.go
type VirtualMachine interface {
	// IsSystemContract judge if is system contract
	IsSystemContract(addr ethcommon.Address) bool

	// Reset the state of the system contract
	Reset(currentHeight uint64, stateLedger ledger.StateLedger, from ethcommon.Address, to *ethcommon.Address)

	// Run executes the abi encoded call data against the contract chosen by Reset
	Run(data []byte) ([]byte, error)

	// View return a view system contract
	View() VirtualMachine
}

// VMContext carries everything a contract may observe about the current invocation.
type VMContext struct {
	StateLedger ledger.StateLedger
	BlockNumber uint64
	From        ethcommon.Address
	CurrentLogs *[]*types.Log
}

// SystemContract must be implemented by all system contract
type SystemContract interface {
	SetContext(*VMContext)
}

func IsZeroAddress(addr ethcommon.Address) bool {
	return addr == ethcommon.Address{}
}

func IsSystemContractAddr(addr ethcommon.Address) bool {
	start := ethcommon.HexToAddress(SystemContractStartAddr)
	end := ethcommon.HexToAddress(SystemContractEndAddr)
	return addr.Big().Cmp(start.Big()) >= 0 && addr.Big().Cmp(end.Big()) <= 0
}

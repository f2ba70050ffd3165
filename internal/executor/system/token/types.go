package token

import (
	_ "embed"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/axiomesh/token-ledger/pkg/packer"
)

//go:embed sol/TokenLedger.abi
var ABI string

// Decimals is fixed for the lifetime of the ledger.
const Decimals uint8 = 18

const (
	initializedKey = "initialized"
	nameKey        = "name"
	symbolKey      = "symbol"
	ownerKey       = "owner"
	totalSupplyKey = "totalSupply"
	balanceKey     = "balance"
	allowanceKey   = "allowance"
)

const (
	InitializeMethod   = "initialize"
	NameMethod         = "name"
	SymbolMethod       = "symbol"
	DecimalsMethod     = "decimals"
	OwnerMethod        = "owner"
	TotalSupplyMethod  = "totalSupply"
	BalanceOfMethod    = "balanceOf"
	AllowanceMethod    = "allowance"
	TransferMethod     = "transfer"
	ApproveMethod      = "approve"
	TransferFromMethod = "transferFrom"
)

// Method2Sig lists the entry points of the ledger.
var Method2Sig = map[string]string{
	InitializeMethod:   "initialize(string,string,uint256)",
	NameMethod:         "name()",
	SymbolMethod:       "symbol()",
	DecimalsMethod:     "decimals()",
	OwnerMethod:        "owner()",
	TotalSupplyMethod:  "totalSupply()",
	BalanceOfMethod:    "balanceOf(address)",
	AllowanceMethod:    "allowance(address,address)",
	TransferMethod:     "transfer(address,uint256)",
	ApproveMethod:      "approve(address,uint256)",
	TransferFromMethod: "transferFrom(address,address,uint256)",
}

// ParsedABI returns the ledger abi, it panics on a malformed embed.
func ParsedABI() abi.ABI {
	contractABI, err := abi.JSON(strings.NewReader(ABI))
	if err != nil {
		panic(err)
	}
	return contractABI
}

type InsufficientBalanceError struct {
	Account ethcommon.Address
	Amount  *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: account %s, amount %s", e.Account, e.Amount)
}

func (e *InsufficientBalanceError) Pack(contractABI abi.ABI) error {
	return packer.PackError(e, contractABI.Errors["InsufficientBalance"])
}

type InsufficientAllowanceError struct {
	Spender ethcommon.Address
	Amount  *big.Int
}

func (e *InsufficientAllowanceError) Error() string {
	return fmt.Sprintf("insufficient allowance: spender %s, allowance %s", e.Spender, e.Amount)
}

func (e *InsufficientAllowanceError) Pack(contractABI abi.ABI) error {
	return packer.PackError(e, contractABI.Errors["InsufficientAllowance"])
}

type TransferToZeroAddressError struct{}

func (e *TransferToZeroAddressError) Error() string {
	return "transfer to zero address"
}

func (e *TransferToZeroAddressError) Pack(contractABI abi.ABI) error {
	return packer.PackError(e, contractABI.Errors["TransferToZeroAddress"])
}

type AlreadyInitializedError struct{}

func (e *AlreadyInitializedError) Error() string {
	return "ledger already initialized"
}

func (e *AlreadyInitializedError) Pack(contractABI abi.ABI) error {
	return packer.PackError(e, contractABI.Errors["AlreadyInitialized"])
}

type TransferEvent struct {
	From  ethcommon.Address
	To    ethcommon.Address
	Value *big.Int
}

func (e *TransferEvent) Pack(contractABI abi.ABI) (*types.Log, error) {
	return packer.PackEvent(e, contractABI.Events["Transfer"])
}

type ApprovalEvent struct {
	Owner   ethcommon.Address
	Spender ethcommon.Address
	Value   *big.Int
}

func (e *ApprovalEvent) Pack(contractABI abi.ABI) (*types.Log, error) {
	return packer.PackEvent(e, contractABI.Events["Approval"])
}

package token

import (
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/token-ledger/internal/executor/system/common"
	"github.com/axiomesh/token-ledger/pkg/repo"
)

var (
	ErrValueOutOfRange = errors.New("value out of uint256 range")
	ErrBalanceOverflow = errors.New("balance overflow")
)

var _ common.SystemContract = (*Ledger)(nil)

// Ledger is the fungible token contract. Every entry point validates all of
// its preconditions before the first write.
type Ledger struct {
	common.SystemContractBase
	policy repo.TokenPolicy

	initialized *common.VMSlot[bool]
	name        *common.VMSlot[string]
	symbol      *common.VMSlot[string]
	owner       *common.VMSlot[ethcommon.Address]
	totalSupply *common.VMSlot[*uint256.Int]
	balances    *common.VMMap[ethcommon.Address, *uint256.Int]
	allowances  *common.VMMap[[2]ethcommon.Address, *uint256.Int]
}

func New(cfg *common.SystemContractConfig, policy repo.TokenPolicy) *Ledger {
	return &Ledger{
		SystemContractBase: common.NewSystemContractBase(cfg, ethcommon.HexToAddress(common.TokenLedgerContractAddr), ParsedABI()),
		policy:             policy,
	}
}

func (l *Ledger) SetContext(ctx *common.VMContext) {
	l.SystemContractBase.SetContext(ctx)

	l.initialized = common.NewVMSlotWithCodec[bool](l.StateAccount, initializedKey, common.BoolCodec{})
	l.name = common.NewVMSlotWithCodec[string](l.StateAccount, nameKey, common.StringCodec{})
	l.symbol = common.NewVMSlotWithCodec[string](l.StateAccount, symbolKey, common.StringCodec{})
	l.owner = common.NewVMSlotWithCodec[ethcommon.Address](l.StateAccount, ownerKey, common.AddressCodec{})
	l.totalSupply = common.NewVMSlotWithCodec[*uint256.Int](l.StateAccount, totalSupplyKey, common.Uint256Codec{})
	l.balances = common.NewVMMapWithCodec[ethcommon.Address, *uint256.Int](l.StateAccount, balanceKey, func(key ethcommon.Address) string {
		return key.Hex()
	}, common.Uint256Codec{})
	l.allowances = common.NewVMMapWithCodec[[2]ethcommon.Address, *uint256.Int](l.StateAccount, allowanceKey, func(key [2]ethcommon.Address) string {
		return fmt.Sprintf("%s-%s", key[0].Hex(), key[1].Hex())
	}, common.Uint256Codec{})
}

// Initialize mints initialSupply to the caller and records the metadata. It runs once.
func (l *Ledger) Initialize(name string, symbol string, initialSupply *big.Int) (bool, error) {
	if l.isInitialized() {
		return false, &AlreadyInitializedError{}
	}
	supply, err := toUint256(initialSupply)
	if err != nil {
		return false, err
	}

	caller := l.Ctx.From
	if err := l.initialized.Put(true); err != nil {
		return false, err
	}
	if err := l.name.Put(name); err != nil {
		return false, err
	}
	if err := l.symbol.Put(symbol); err != nil {
		return false, err
	}
	if err := l.owner.Put(caller); err != nil {
		return false, err
	}
	if err := l.totalSupply.Put(supply); err != nil {
		return false, err
	}
	if err := l.balances.Put(caller, supply); err != nil {
		return false, err
	}

	l.Logger.WithFields(logrus.Fields{
		"name":   name,
		"symbol": symbol,
		"owner":  caller.Hex(),
		"supply": supply.Dec(),
	}).Info("Token ledger initialized")
	l.EmitEvent(&TransferEvent{From: ethcommon.Address{}, To: caller, Value: supply.ToBig()})
	return true, nil
}

func (l *Ledger) Name() string {
	return l.mustGet(l.name.Get)
}

func (l *Ledger) Symbol() string {
	return l.mustGet(l.symbol.Get)
}

func (l *Ledger) Decimals() uint8 {
	return Decimals
}

func (l *Ledger) Owner() ethcommon.Address {
	_, owner, err := l.owner.Get()
	if err != nil {
		panic(err)
	}
	return owner
}

func (l *Ledger) TotalSupply() *big.Int {
	_, supply, err := l.totalSupply.Get()
	if err != nil {
		panic(err)
	}
	return supply.ToBig()
}

func (l *Ledger) BalanceOf(account ethcommon.Address) *big.Int {
	return l.balanceOf(account).ToBig()
}

func (l *Ledger) Allowance(owner, spender ethcommon.Address) *big.Int {
	return l.allowance(owner, spender).ToBig()
}

// Transfer moves value from the caller to to.
func (l *Ledger) Transfer(to ethcommon.Address, value *big.Int) (bool, error) {
	amount, err := toUint256(value)
	if err != nil {
		return false, err
	}
	if err := l.checkReceiver(to); err != nil {
		return false, err
	}

	caller := l.Ctx.From
	if !checkBalance(l.balanceOf(caller), amount) {
		return false, &InsufficientBalanceError{Account: caller, Amount: amount.ToBig()}
	}

	if err := l.move(caller, to, amount); err != nil {
		return false, err
	}
	l.EmitEvent(&TransferEvent{From: caller, To: to, Value: amount.ToBig()})
	return true, nil
}

// Approve sets the allowance of spender over the caller's balance to value.
func (l *Ledger) Approve(spender ethcommon.Address, value *big.Int) (bool, error) {
	amount, err := toUint256(value)
	if err != nil {
		return false, err
	}

	caller := l.Ctx.From
	if l.policy.ApproveRequiresBalance && !checkBalance(l.balanceOf(caller), amount) {
		return false, &InsufficientBalanceError{Account: caller, Amount: amount.ToBig()}
	}

	if err := l.allowances.Put([2]ethcommon.Address{caller, spender}, amount); err != nil {
		return false, err
	}
	l.EmitEvent(&ApprovalEvent{Owner: caller, Spender: spender, Value: amount.ToBig()})
	return true, nil
}

// TransferFrom moves value from owner to to, spending the caller's allowance.
func (l *Ledger) TransferFrom(owner ethcommon.Address, to ethcommon.Address, value *big.Int) (bool, error) {
	amount, err := toUint256(value)
	if err != nil {
		return false, err
	}
	if err := l.checkReceiver(to); err != nil {
		return false, err
	}

	spender := l.Ctx.From
	allowance := l.allowance(owner, spender)
	if !checkAllowance(allowance, amount) {
		return false, &InsufficientAllowanceError{Spender: spender, Amount: allowance.ToBig()}
	}
	if !checkBalance(l.balanceOf(owner), amount) {
		return false, &InsufficientBalanceError{Account: owner, Amount: amount.ToBig()}
	}

	remaining := new(uint256.Int).Sub(allowance, amount)
	if err := l.move(owner, to, amount); err != nil {
		return false, err
	}
	if err := l.spendAllowance(owner, spender, remaining); err != nil {
		return false, err
	}
	l.EmitEvent(&TransferEvent{From: owner, To: to, Value: amount.ToBig()})
	return true, nil
}

// move debits from and credits to, both new balances are computed before either is written.
func (l *Ledger) move(from, to ethcommon.Address, amount *uint256.Int) error {
	if from == to {
		return nil
	}
	fromBalance := new(uint256.Int).Sub(l.balanceOf(from), amount)
	toBalance, overflow := new(uint256.Int).AddOverflow(l.balanceOf(to), amount)
	if overflow {
		return ErrBalanceOverflow
	}

	if err := l.balances.Put(from, fromBalance); err != nil {
		return err
	}
	return l.balances.Put(to, toBalance)
}

// spendAllowance stores the remaining allowance, an exhausted one is removed.
func (l *Ledger) spendAllowance(owner, spender ethcommon.Address, remaining *uint256.Int) error {
	key := [2]ethcommon.Address{owner, spender}
	if remaining.IsZero() {
		return l.allowances.Delete(key)
	}
	return l.allowances.Put(key, remaining)
}

func (l *Ledger) checkReceiver(to ethcommon.Address) error {
	if l.policy.RejectZeroAddress && common.IsZeroAddress(to) {
		return &TransferToZeroAddressError{}
	}
	return nil
}

func (l *Ledger) isInitialized() bool {
	return l.initialized.Has()
}

func (l *Ledger) balanceOf(account ethcommon.Address) *uint256.Int {
	_, balance, err := l.balances.Get(account)
	if err != nil {
		panic(err)
	}
	return balance
}

func (l *Ledger) allowance(owner, spender ethcommon.Address) *uint256.Int {
	_, allowance, err := l.allowances.Get([2]ethcommon.Address{owner, spender})
	if err != nil {
		panic(err)
	}
	return allowance
}

func (l *Ledger) mustGet(get func() (bool, string, error)) string {
	_, v, err := get()
	if err != nil {
		panic(err)
	}
	return v
}

func checkBalance(balance, value *uint256.Int) bool {
	return balance.Cmp(value) >= 0
}

func checkAllowance(allowance, value *uint256.Int) bool {
	return allowance.Cmp(value) >= 0
}

func toUint256(value *big.Int) (*uint256.Int, error) {
	if value == nil {
		return new(uint256.Int), nil
	}
	if value.Sign() < 0 {
		return nil, errors.Wrapf(ErrValueOutOfRange, "negative value %s", value)
	}
	v, overflow := uint256.FromBig(value)
	if overflow {
		return nil, errors.Wrapf(ErrValueOutOfRange, "value %s", value)
	}
	return v, nil
}

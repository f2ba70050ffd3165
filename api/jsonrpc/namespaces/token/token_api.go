package token

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/token-ledger/internal/coreapi/api"
	systemcommon "github.com/axiomesh/token-ledger/internal/executor/system/common"
	"github.com/axiomesh/token-ledger/internal/executor/system/token"
	"github.com/axiomesh/token-ledger/internal/ledger"
	"github.com/axiomesh/token-ledger/pkg/events"
	"github.com/axiomesh/token-ledger/pkg/packer"
	"github.com/axiomesh/token-ledger/pkg/repo"
)

var (
	ErrBlockRangeTooLarge = errors.New("block range exceeds limit")
)

// TokenAPI serves the token namespace
type TokenAPI struct {
	ctx    context.Context
	cancel context.CancelFunc
	rep    *repo.Repo
	api    api.CoreAPI
	abi    abi.ABI
	logger logrus.FieldLogger
}

func NewTokenAPI(rep *repo.Repo, api api.CoreAPI, logger logrus.FieldLogger) *TokenAPI {
	ctx, cancel := context.WithCancel(context.Background())
	return &TokenAPI{
		ctx:    ctx,
		cancel: cancel,
		rep:    rep,
		api:    api,
		abi:    token.ParsedABI(),
		logger: logger,
	}
}

func (t *TokenAPI) Name() (ret string, err error) {
	err = t.view(token.NameMethod, &ret)
	return
}

func (t *TokenAPI) Symbol() (ret string, err error) {
	err = t.view(token.SymbolMethod, &ret)
	return
}

func (t *TokenAPI) Decimals() (hexutil.Uint, error) {
	var ret uint8
	if err := t.view(token.DecimalsMethod, &ret); err != nil {
		return 0, err
	}
	return hexutil.Uint(ret), nil
}

func (t *TokenAPI) Owner() (ret common.Address, err error) {
	err = t.view(token.OwnerMethod, &ret)
	return
}

func (t *TokenAPI) TotalSupply() (*hexutil.Big, error) {
	var ret *big.Int
	if err := t.view(token.TotalSupplyMethod, &ret); err != nil {
		return nil, err
	}
	return (*hexutil.Big)(ret), nil
}

func (t *TokenAPI) BalanceOf(account common.Address) (*hexutil.Big, error) {
	var ret *big.Int
	if err := t.view(token.BalanceOfMethod, &ret, account); err != nil {
		return nil, err
	}
	return (*hexutil.Big)(ret), nil
}

func (t *TokenAPI) Allowance(owner, spender common.Address) (*hexutil.Big, error) {
	var ret *big.Int
	if err := t.view(token.AllowanceMethod, &ret, owner, spender); err != nil {
		return nil, err
	}
	return (*hexutil.Big)(ret), nil
}

// Transfer moves value from the caller and waits for the receipt.
// A reverted transfer is reported in the receipt, not as an rpc error.
func (t *TokenAPI) Transfer(ctx context.Context, from, to common.Address, value *hexutil.Big) (*RPCReceipt, error) {
	return t.send(ctx, from, token.TransferMethod, to, value.ToInt())
}

func (t *TokenAPI) Approve(ctx context.Context, owner, spender common.Address, value *hexutil.Big) (*RPCReceipt, error) {
	return t.send(ctx, owner, token.ApproveMethod, spender, value.ToInt())
}

func (t *TokenAPI) TransferFrom(ctx context.Context, spender, from, to common.Address, value *hexutil.Big) (*RPCReceipt, error) {
	return t.send(ctx, spender, token.TransferFromMethod, from, to, value.ToInt())
}

// Call runs raw abi input against the latest state.
func (t *TokenAPI) Call(args InvocationArgs) (hexutil.Bytes, error) {
	queryTotalCounter.Inc()
	defer func(start time.Time) {
		invokeReadOnlyDuration.Observe(time.Since(start).Seconds())
	}(time.Now())

	ret, err := t.api.Broker().Call(args.toInvocation())
	if err != nil {
		queryFailedCounter.Inc()
		return nil, t.decodeRevert(err)
	}
	return ret, nil
}

// SendInvocation submits raw abi input and waits for the receipt.
func (t *TokenAPI) SendInvocation(ctx context.Context, args InvocationArgs) (*RPCReceipt, error) {
	return t.submit(ctx, args.toInvocation())
}

func (t *TokenAPI) GetReceipt(hash common.Hash) (*RPCReceipt, error) {
	t.logger.Debugf("token_getReceipt, hash: %s", hash)
	receipt, err := t.api.Broker().GetReceipt(hash)
	if err != nil {
		return nil, err
	}
	return t.toRPCReceipt(receipt), nil
}

func (t *TokenAPI) GetBlock(number hexutil.Uint64) (*RPCBlock, error) {
	block, err := t.api.Broker().GetBlock(uint64(number))
	if err != nil {
		return nil, err
	}
	invocations := make([]common.Hash, 0, len(block.Invocations))
	for i, inv := range block.Invocations {
		invocations = append(invocations, inv.Hash(block.Number(), uint64(i)))
	}
	return &RPCBlock{
		Number:      hexutil.Uint64(block.Header.Number),
		Hash:        block.Hash(),
		ParentHash:  block.Header.ParentHash,
		StateRoot:   block.Header.StateRoot,
		ReceiptRoot: block.Header.ReceiptRoot,
		Timestamp:   hexutil.Uint64(block.Header.Timestamp),
		Invocations: invocations,
	}, nil
}

func (t *TokenAPI) GetLogs(query FilterQuery) ([]*types.Log, error) {
	filter := query.toLogFilter()
	if err := t.checkRange(filter); err != nil {
		return nil, err
	}
	return t.api.Broker().GetLogs(filter)
}

func (t *TokenAPI) ChainMeta() (*RPCChainMeta, error) {
	meta, err := t.api.Chain().Meta()
	if err != nil {
		return nil, err
	}
	return &RPCChainMeta{
		Height:    hexutil.Uint64(meta.Height),
		BlockHash: meta.BlockHash,
		StateRoot: meta.StateRoot,
		Status:    t.api.Chain().Status(),
	}, nil
}

// Logs streams the logs of every new block that match the query.
func (t *TokenAPI) Logs(ctx context.Context, query FilterQuery) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return &rpc.Subscription{}, rpc.ErrNotificationsUnsupported
	}
	filter := query.toLogFilter()
	rpcSub := notifier.CreateSubscription()

	go func() {
		logsC := make(chan []*types.Log, 128)
		sub := t.api.Feed().SubscribeLogsEvent(logsC)
		defer sub.Unsubscribe()

		for {
			select {
			case logs := <-logsC:
				for _, log := range logs {
					if log.BlockNumber < filter.FromBlock || (filter.ToBlock != 0 && log.BlockNumber > filter.ToBlock) {
						continue
					}
					if !filter.Match(log) {
						continue
					}
					if err := notifier.Notify(rpcSub.ID, log); err != nil {
						t.logger.Debugf("notify log failed: %v", err)
						return
					}
				}
			case <-rpcSub.Err():
				return
			case err := <-sub.Err():
				if err != nil {
					t.logger.Warnf("logs subscription closed: %v", err)
				}
				return
			case <-t.ctx.Done():
				return
			}
		}
	}()

	return rpcSub, nil
}

// NewBlocks streams the header of every executed block.
func (t *TokenAPI) NewBlocks(ctx context.Context) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return &rpc.Subscription{}, rpc.ErrNotificationsUnsupported
	}
	rpcSub := notifier.CreateSubscription()

	go func() {
		blockC := make(chan events.ExecutedEvent, 16)
		sub := t.api.Feed().SubscribeNewBlockEvent(blockC)
		defer sub.Unsubscribe()

		for {
			select {
			case ev := <-blockC:
				if err := notifier.Notify(rpcSub.ID, ev.Block.Header); err != nil {
					return
				}
			case <-rpcSub.Err():
				return
			case <-sub.Err():
				return
			case <-t.ctx.Done():
				return
			}
		}
	}()

	return rpcSub, nil
}

func (t *TokenAPI) Stop() {
	t.cancel()
}

func (t *TokenAPI) checkRange(filter *ledger.LogFilter) error {
	limit := t.rep.Config.JsonRPC.GetLogsBlockRangeLimit
	if limit == 0 {
		return nil
	}
	to := filter.ToBlock
	if to == 0 {
		meta, err := t.api.Chain().Meta()
		if err != nil {
			return err
		}
		to = meta.Height
	}
	if to > filter.FromBlock && to-filter.FromBlock > limit {
		return errors.Wrapf(ErrBlockRangeTooLarge, "from %d to %d, limit %d", filter.FromBlock, to, limit)
	}
	return nil
}

func (t *TokenAPI) view(method string, out any, args ...any) error {
	queryTotalCounter.Inc()
	defer func(start time.Time) {
		invokeReadOnlyDuration.Observe(time.Since(start).Seconds())
	}(time.Now())

	input, err := t.abi.Pack(method, args...)
	if err != nil {
		queryFailedCounter.Inc()
		return errors.Wrapf(err, "pack %s", method)
	}
	ret, err := t.api.Broker().Call(&ledger.Invocation{
		To:   ledgerAddr,
		Data: input,
	})
	if err != nil {
		queryFailedCounter.Inc()
		return t.decodeRevert(err)
	}
	if err := t.abi.UnpackIntoInterface(out, method, ret); err != nil {
		queryFailedCounter.Inc()
		return errors.Wrapf(err, "unpack %s", method)
	}
	return nil
}

func (t *TokenAPI) send(ctx context.Context, from common.Address, method string, args ...any) (*RPCReceipt, error) {
	for _, arg := range args {
		if v, ok := arg.(*big.Int); ok && v == nil {
			return nil, errors.Errorf("%s: missing value", method)
		}
	}
	input, err := t.abi.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", method)
	}
	return t.submit(ctx, &ledger.Invocation{
		From: from,
		To:   ledgerAddr,
		Data: input,
	})
}

func (t *TokenAPI) submit(ctx context.Context, inv *ledger.Invocation) (*RPCReceipt, error) {
	defer func(start time.Time) {
		invokeSendDuration.Observe(time.Since(start).Seconds())
	}(time.Now())

	if timeout := t.rep.Config.JsonRPC.CallTimeout.ToDuration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	receipt, err := t.api.Broker().HandleInvocation(ctx, inv)
	if err != nil {
		return nil, err
	}
	return t.toRPCReceipt(receipt), nil
}

func (t *TokenAPI) toRPCReceipt(receipt *ledger.Receipt) *RPCReceipt {
	return NewRPCReceipt(receipt, t.abi)
}

func (t *TokenAPI) decodeRevert(err error) error {
	var revertErr *packer.RevertError
	if errors.As(err, &revertErr) {
		return &revertError{
			reason: RevertReason(t.abi, revertErr.Data),
			data:   revertErr.Data,
		}
	}
	return err
}

// revertError carries revert data to the client through rpc.DataError
type revertError struct {
	reason string
	data   []byte
}

func (e *revertError) Error() string {
	return "execution reverted: " + e.reason
}

func (e *revertError) ErrorCode() int {
	return 3
}

func (e *revertError) ErrorData() any {
	return hexutil.Encode(e.data)
}

var ledgerAddr = common.HexToAddress(systemcommon.TokenLedgerContractAddr)

func (args InvocationArgs) toInvocation() *ledger.Invocation {
	to := ledgerAddr
	if args.To != nil {
		to = *args.To
	}
	return &ledger.Invocation{
		From: args.From,
		To:   to,
		Data: args.Data,
	}
}

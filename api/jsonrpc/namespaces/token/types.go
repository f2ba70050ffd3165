package token

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/axiomesh/token-ledger/internal/ledger"
	"github.com/axiomesh/token-ledger/pkg/packer"
)

// InvocationArgs is a raw abi call. To defaults to the token ledger.
type InvocationArgs struct {
	From common.Address  `json:"from"`
	To   *common.Address `json:"to"`
	Data hexutil.Bytes   `json:"data"`
}

// FilterQuery selects logs, a nil ToBlock means the latest block.
type FilterQuery struct {
	FromBlock *hexutil.Uint64  `json:"fromBlock"`
	ToBlock   *hexutil.Uint64  `json:"toBlock"`
	Addresses []common.Address `json:"addresses"`
	Topics    [][]common.Hash  `json:"topics"`
}

func (q *FilterQuery) toLogFilter() *ledger.LogFilter {
	filter := &ledger.LogFilter{
		Addresses: q.Addresses,
		Topics:    q.Topics,
	}
	if q.FromBlock != nil {
		filter.FromBlock = uint64(*q.FromBlock)
	}
	if q.ToBlock != nil {
		filter.ToBlock = uint64(*q.ToBlock)
	}
	return filter
}

type RPCReceipt struct {
	InvocationHash common.Hash    `json:"invocationHash"`
	BlockNumber    hexutil.Uint64 `json:"blockNumber"`
	Index          hexutil.Uint64 `json:"index"`
	Status         hexutil.Uint64 `json:"status"`
	Ret            hexutil.Bytes  `json:"ret"`
	RevertData     hexutil.Bytes  `json:"revertData,omitempty"`
	RevertReason   string         `json:"revertReason,omitempty"`
	Err            string         `json:"error,omitempty"`
	Logs           []*types.Log   `json:"logs"`
}

type RPCBlock struct {
	Number      hexutil.Uint64 `json:"number"`
	Hash        common.Hash    `json:"hash"`
	ParentHash  common.Hash    `json:"parentHash"`
	StateRoot   common.Hash    `json:"stateRoot"`
	ReceiptRoot common.Hash    `json:"receiptRoot"`
	Timestamp   hexutil.Uint64 `json:"timestamp"`
	Invocations []common.Hash  `json:"invocations"`
}

type RPCChainMeta struct {
	Height    hexutil.Uint64 `json:"height"`
	BlockHash common.Hash    `json:"blockHash"`
	StateRoot common.Hash    `json:"stateRoot"`
	Status    string         `json:"status"`
}

// NewRPCReceipt converts a stored receipt, decoding revert data against contractABI.
func NewRPCReceipt(receipt *ledger.Receipt, contractABI abi.ABI) *RPCReceipt {
	ret := &RPCReceipt{
		InvocationHash: receipt.InvocationHash,
		BlockNumber:    hexutil.Uint64(receipt.BlockNumber),
		Index:          hexutil.Uint64(receipt.Index),
		Status:         hexutil.Uint64(receipt.Status),
		Ret:            receipt.Ret,
		RevertData:     receipt.RevertData,
		Err:            receipt.Err,
		Logs:           receipt.Logs,
	}
	if ret.Logs == nil {
		ret.Logs = []*types.Log{}
	}
	if len(receipt.RevertData) > 0 {
		ret.RevertReason = RevertReason(contractABI, receipt.RevertData)
	}
	return ret
}

// RevertReason renders revert data as ErrorName[args], or hex when the
// selector is unknown.
func RevertReason(contractABI abi.ABI, data []byte) string {
	name, args, err := packer.UnpackError(contractABI, data)
	if err != nil {
		return hexutil.Encode(data)
	}
	if len(args) == 0 {
		return name
	}
	return fmt.Sprintf("%s%v", name, args)
}

package api

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"github.com/axiomesh/token-ledger/internal/ledger"
	"github.com/axiomesh/token-ledger/pkg/events"
)

type CoreAPI interface {
	Broker() BrokerAPI
	Chain() ChainAPI
	Feed() FeedAPI
}

type BrokerAPI interface {
	// HandleInvocation queues inv and waits for its receipt
	HandleInvocation(ctx context.Context, inv *ledger.Invocation) (*ledger.Receipt, error)

	// Call runs inv against the latest state without persisting anything
	Call(inv *ledger.Invocation) ([]byte, error)

	GetReceipt(hash common.Hash) (*ledger.Receipt, error)
	GetReceipts(blockNum uint64) ([]*ledger.Receipt, error)
	GetBlock(height uint64) (*ledger.Block, error)
	GetLogs(filter *ledger.LogFilter) ([]*types.Log, error)
}

type ChainAPI interface {
	Status() string
	Meta() (*ledger.ChainMeta, error)
}

type FeedAPI interface {
	SubscribeLogsEvent(chan<- []*types.Log) event.Subscription
	SubscribeNewBlockEvent(chan<- events.ExecutedEvent) event.Subscription
}

package executor

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"github.com/axiomesh/token-ledger/internal/ledger"
	"github.com/axiomesh/token-ledger/pkg/events"
)

type Executor interface {
	Start() error

	Stop() error

	// ExecuteBlock applies the invocations as the next block
	ExecuteBlock(invocations []*ledger.Invocation) (*ledger.Block, []*ledger.Receipt, error)

	// SubmitInvocation queues inv for the next block and waits for its receipt
	SubmitInvocation(ctx context.Context, inv *ledger.Invocation) (*ledger.Receipt, error)

	// Call runs inv against the latest state and discards every write
	Call(inv *ledger.Invocation) ([]byte, error)

	CurrentHeight() uint64

	SubscribeBlockEvent(chan<- events.ExecutedEvent) event.Subscription

	SubscribeLogsEvent(chan<- []*types.Log) event.Subscription
}

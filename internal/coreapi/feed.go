package coreapi

import (
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"github.com/axiomesh/token-ledger/internal/coreapi/api"
	"github.com/axiomesh/token-ledger/pkg/events"
)

type FeedAPI CoreAPI

var _ api.FeedAPI = (*FeedAPI)(nil)

func (api *FeedAPI) SubscribeNewBlockEvent(ch chan<- events.ExecutedEvent) event.Subscription {
	return api.executor.SubscribeBlockEvent(ch)
}

func (api *FeedAPI) SubscribeLogsEvent(ch chan<- []*types.Log) event.Subscription {
	return api.executor.SubscribeLogsEvent(ch)
}

package coreapi

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/token-ledger/internal/coreapi/api"
	"github.com/axiomesh/token-ledger/internal/ledger"
)

type BrokerAPI CoreAPI

var _ api.BrokerAPI = (*BrokerAPI)(nil)

func (b *BrokerAPI) HandleInvocation(ctx context.Context, inv *ledger.Invocation) (*ledger.Receipt, error) {
	if inv == nil {
		return nil, errors.New("invocation is nil")
	}

	b.logger.WithFields(logrus.Fields{
		"from": inv.From.String(),
		"to":   inv.To.String(),
	}).Debug("Receive invocation")

	receipt, err := b.executor.SubmitInvocation(ctx, inv)
	if err != nil {
		return nil, errors.Wrap(err, "submit invocation")
	}
	return receipt, nil
}

func (b *BrokerAPI) Call(inv *ledger.Invocation) ([]byte, error) {
	if inv == nil {
		return nil, errors.New("invocation is nil")
	}
	return b.executor.Call(inv)
}

func (b *BrokerAPI) GetReceipt(hash common.Hash) (*ledger.Receipt, error) {
	return b.ledger.ChainLedger.GetReceipt(hash)
}

func (b *BrokerAPI) GetReceipts(blockNum uint64) ([]*ledger.Receipt, error) {
	return b.ledger.ChainLedger.GetBlockReceipts(blockNum)
}

func (b *BrokerAPI) GetBlock(height uint64) (*ledger.Block, error) {
	return b.ledger.ChainLedger.GetBlock(height)
}

func (b *BrokerAPI) GetLogs(filter *ledger.LogFilter) ([]*types.Log, error) {
	return b.ledger.ChainLedger.GetLogs(filter)
}

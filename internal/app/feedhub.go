package app

import (
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/token-ledger/pkg/events"
)

func (tl *TokenLedger) start() {
	go tl.listenExecutedBlock()
}

func (tl *TokenLedger) listenExecutedBlock() {
	blockCh := make(chan events.ExecutedEvent, 16)
	blockSub := tl.BlockExecutor.SubscribeBlockEvent(blockCh)
	defer blockSub.Unsubscribe()

	for {
		select {
		case <-tl.Ctx.Done():
			return
		case ev := <-blockCh:
			tl.reportBlock(ev)
		}
	}
}

func (tl *TokenLedger) reportBlock(ev events.ExecutedEvent) {
	failed := 0
	for _, receipt := range ev.Receipts {
		if !receipt.IsSuccess() {
			failed++
		}
	}
	tl.logger.WithFields(logrus.Fields{
		"height": ev.Block.Number(),
		"hash":   ev.Block.Hash().String(),
		"count":  len(ev.Receipts),
		"failed": failed,
	}).Debug("Report executed block")
}

package events

import (
	"github.com/axiomesh/token-ledger/internal/ledger"
)

// ExecutedEvent is posted after a block and its receipts are persisted.
type ExecutedEvent struct {
	Block    *ledger.Block
	Receipts []*ledger.Receipt
}

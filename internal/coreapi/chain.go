package coreapi

import (
	"github.com/axiomesh/token-ledger/internal/coreapi/api"
	"github.com/axiomesh/token-ledger/internal/ledger"
)

type ChainAPI CoreAPI

var _ api.ChainAPI = (*ChainAPI)(nil)

func (api *ChainAPI) Status() string {
	if api.ledger.ChainLedger.GetChainMeta().Height == 0 {
		return "uninitialized"
	}
	return "normal"
}

func (api *ChainAPI) Meta() (*ledger.ChainMeta, error) {
	meta := api.ledger.ChainLedger.GetChainMeta()
	return &ledger.ChainMeta{
		Height:    meta.Height,
		BlockHash: meta.BlockHash,
		StateRoot: meta.StateRoot,
	}, nil
}

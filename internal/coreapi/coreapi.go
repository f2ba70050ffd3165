package coreapi

import (
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/token-ledger/internal/coreapi/api"
	"github.com/axiomesh/token-ledger/internal/executor"
	"github.com/axiomesh/token-ledger/internal/ledger"
	"github.com/axiomesh/token-ledger/pkg/repo"
)

var _ api.CoreAPI = (*CoreAPI)(nil)

// CoreAPI exposes the node to the api layer.
type CoreAPI struct {
	rep      *repo.Repo
	ledger   *ledger.Ledger
	executor executor.Executor
	logger   logrus.FieldLogger
}

func New(rep *repo.Repo, lg *ledger.Ledger, exec executor.Executor, logger logrus.FieldLogger) *CoreAPI {
	return &CoreAPI{
		rep:      rep,
		ledger:   lg,
		executor: exec,
		logger:   logger,
	}
}

func (api *CoreAPI) Broker() api.BrokerAPI {
	return (*BrokerAPI)(api)
}

func (api *CoreAPI) Chain() api.ChainAPI {
	return (*ChainAPI)(api)
}

func (api *CoreAPI) Feed() api.FeedAPI {
	return (*FeedAPI)(api)
}

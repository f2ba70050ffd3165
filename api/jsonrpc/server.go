package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gorilla/mux"
	"github.com/juju/ratelimit"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/token-ledger/api/jsonrpc/namespaces/token"
	"github.com/axiomesh/token-ledger/internal/coreapi/api"
	"github.com/axiomesh/token-ledger/pkg/loggers"
	"github.com/axiomesh/token-ledger/pkg/repo"
)

const (
	TokenNamespace = "token"

	readHeaderTimeout = 10 * time.Second
	maxRequestBody    = 5 * 1024 * 1024
)

// methods that change the ledger are charged to the write limiter
var writeMethods = map[string]struct{}{
	"token_transfer":       {},
	"token_approve":        {},
	"token_transferFrom":   {},
	"token_sendInvocation": {},
}

type ChainBrokerService struct {
	config       repo.JsonRPC
	rep          *repo.Repo
	api          api.CoreAPI
	server       *rpc.Server
	tokenAPI     *token.TokenAPI
	httpServer   *http.Server
	wsServer     *http.Server
	readLimiter  *ratelimit.Bucket
	writeLimiter *ratelimit.Bucket
	logger       logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewChainBrokerService(coreAPI api.CoreAPI, rep *repo.Repo) (*ChainBrokerService, error) {
	ctx, cancel := context.WithCancel(context.Background())

	cbs := &ChainBrokerService{
		logger: loggers.Logger(loggers.API),
		config: rep.Config.JsonRPC,
		rep:    rep,
		api:    coreAPI,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := cbs.init(); err != nil {
		cancel()
		return nil, err
	}

	return cbs, nil
}

func (cbs *ChainBrokerService) init() error {
	cbs.readLimiter = newLimiter(cbs.config.ReadLimiter)
	cbs.writeLimiter = newLimiter(cbs.config.WriteLimiter)

	cbs.server = rpc.NewServer()
	cbs.tokenAPI = token.NewTokenAPI(cbs.rep, cbs.api, cbs.logger)
	if err := cbs.server.RegisterName(TokenNamespace, cbs.tokenAPI); err != nil {
		return errors.Wrapf(err, "register %s namespace", TokenNamespace)
	}

	router := mux.NewRouter()
	router.Handle("/", cbs.limit(cbs.server))
	if cbs.rep.Config.Monitor.Enable {
		router.Handle("/metrics", promhttp.Handler())
	}
	handler := cors.New(cors.Options{
		AllowedOrigins: cbs.config.CorsDomains,
		AllowedMethods: []string{http.MethodPost, http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(router)

	cbs.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	cbs.wsServer = &http.Server{
		Handler:           cbs.limitHandshake(cbs.server.WebsocketHandler(cbs.config.CorsDomains)),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return nil
}

func (cbs *ChainBrokerService) Start() error {
	if err := cbs.start(cbs.httpServer, cbs.rep.Config.Port.JsonRpc, "JSON-RPC"); err != nil {
		return err
	}
	return cbs.start(cbs.wsServer, cbs.rep.Config.Port.WebSocket, "WebSocket")
}

func (cbs *ChainBrokerService) start(server *http.Server, port int64, name string) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return errors.Wrapf(err, "listen %s port %d", name, port)
	}

	go func() {
		cbs.logger.WithFields(logrus.Fields{
			"port": port,
		}).Infof("%s service started", name)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cbs.logger.Errorf("%s service stopped: %v", name, err)
		}
	}()
	return nil
}

func (cbs *ChainBrokerService) Stop() error {
	cbs.cancel()
	cbs.tokenAPI.Stop()
	cbs.server.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cbs.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	if err := cbs.wsServer.Shutdown(ctx); err != nil {
		return err
	}
	cbs.logger.Info("JSON-RPC service stopped")
	return nil
}

// limit takes one token per request. Requests carrying any write method,
// batches included, are charged to the write bucket.
func (cbs *ChainBrokerService) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || (cbs.readLimiter == nil && cbs.writeLimiter == nil) {
			next.ServeHTTP(w, r)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(body) > maxRequestBody {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		bucket := cbs.readLimiter
		if isWriteRequest(body) {
			bucket = cbs.writeLimiter
		}
		if bucket != nil && bucket.TakeAvailable(1) == 0 {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitHandshake charges each websocket upgrade to the read bucket. Messages
// sent over an established connection are not metered.
func (cbs *ChainBrokerService) limitHandshake(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cbs.readLimiter != nil && cbs.readLimiter.TakeAvailable(1) == 0 {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type jsonrpcMessage struct {
	Method string `json:"method"`
}

func isWriteRequest(body []byte) bool {
	var msgs []jsonrpcMessage
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &msgs); err != nil {
			return false
		}
	} else {
		var msg jsonrpcMessage
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return false
		}
		msgs = append(msgs, msg)
	}
	for _, msg := range msgs {
		if _, ok := writeMethods[msg.Method]; ok {
			return true
		}
	}
	return false
}

func newLimiter(cfg repo.JLimiter) *ratelimit.Bucket {
	if !cfg.Enable {
		return nil
	}
	return ratelimit.NewBucketWithQuantum(cfg.Interval.ToDuration(), cfg.Capacity, cfg.Quantum)
}

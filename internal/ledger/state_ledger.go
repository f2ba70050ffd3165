package ledger

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/cbergoon/merkletree"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/token-ledger/internal/storagemgr/kv"
)

var _ StateLedger = (*StateLedgerImpl)(nil)

type revision struct {
	id           int
	changerIndex int
}

type evmLogs struct {
	logs    map[common.Hash][]*types.Log
	logSize uint
}

func newEvmLogs() *evmLogs {
	return &evmLogs{
		logs: make(map[common.Hash][]*types.Log),
	}
}

type stateMeta struct {
	Version uint64      `json:"version"`
	Root    common.Hash `json:"root"`
}

// stateCache keeps committed slot values by storage key, nil marks a known absence.
type stateCache struct {
	cache *lru.Cache[string, []byte]
}

func newStateCache(size int) (*stateCache, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &stateCache{cache: c}, nil
}

func (c *stateCache) get(key []byte) ([]byte, bool) {
	v, ok := c.cache.Get(string(key))
	if ok {
		stateCacheHitCounter.Inc()
	} else {
		stateCacheMissCounter.Inc()
	}
	return v, ok
}

func (c *stateCache) add(key []byte, value []byte) {
	c.cache.Add(string(key), value)
}

type StateLedgerImpl struct {
	logger  logrus.FieldLogger
	backend kv.Storage
	cache   *stateCache

	accounts map[common.Address]*SimpleAccount
	changer  *stateChanger

	validRevisions []revision
	nextRevisionId int

	logs    *evmLogs
	thash   common.Hash
	txIndex int

	version   uint64
	stateRoot common.Hash
}

func newStateLedger(logger logrus.FieldLogger, backend kv.Storage, cacheSize int) (*StateLedgerImpl, error) {
	cache, err := newStateCache(cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "new state cache failed")
	}

	l := &StateLedgerImpl{
		logger:   logger,
		backend:  backend,
		cache:    cache,
		accounts: make(map[common.Address]*SimpleAccount),
		changer:  newChanger(),
		logs:     newEvmLogs(),
	}

	if data := backend.Get([]byte(stateMetaKey)); data != nil {
		meta := &stateMeta{}
		if err := json.Unmarshal(data, meta); err != nil {
			return nil, errors.Wrap(err, "unmarshal state meta failed")
		}
		l.version = meta.Version
		l.stateRoot = meta.Root
	}

	return l, nil
}

func (l *StateLedgerImpl) GetOrCreateAccount(addr common.Address) IAccount {
	if account := l.getAccount(addr); account != nil {
		return account
	}

	account := newAccount(l.logger, l.backend, l.cache, addr, l.changer)
	l.changer.append(createObjectChange{account: addr})
	l.accounts[addr] = account
	l.logger.Debugf("[GetOrCreateAccount] create account, addr: %v", addr)
	return account
}

func (l *StateLedgerImpl) GetAccount(addr common.Address) IAccount {
	// avoid returning a typed nil
	if account := l.getAccount(addr); account != nil {
		return account
	}
	return nil
}

func (l *StateLedgerImpl) getAccount(addr common.Address) *SimpleAccount {
	if account, ok := l.accounts[addr]; ok {
		return account
	}

	start := time.Now()
	defer func() {
		accountReadDuration.Observe(float64(time.Since(start)) / float64(time.Second))
	}()
	if !l.backend.Has(compositeAccountKey(addr)) {
		return nil
	}

	account := newAccount(l.logger, l.backend, l.cache, addr, l.changer)
	account.persisted = true
	l.accounts[addr] = account
	return account
}

func (l *StateLedgerImpl) GetState(addr common.Address, key []byte) (bool, []byte) {
	account := l.getAccount(addr)
	if account == nil {
		return false, nil
	}
	return account.GetState(key)
}

func (l *StateLedgerImpl) SetState(addr common.Address, key []byte, value []byte) {
	l.GetOrCreateAccount(addr).SetState(key, value)
}

func (l *StateLedgerImpl) SetTxContext(thash common.Hash, txIndex int) {
	l.thash = thash
	l.txIndex = txIndex
}

func (l *StateLedgerImpl) AddLog(log *types.Log) {
	if log.TxHash == (common.Hash{}) {
		log.TxHash = l.thash
	}
	log.TxIndex = uint(l.txIndex)

	l.changer.append(addLogChange{txHash: log.TxHash})

	log.Index = l.logs.logSize
	l.logs.logs[log.TxHash] = append(l.logs.logs[log.TxHash], log)
	l.logs.logSize++
}

func (l *StateLedgerImpl) GetLogs(txHash common.Hash, height uint64) []*types.Log {
	logs := l.logs.logs[txHash]
	for _, log := range logs {
		log.BlockNumber = height
	}
	return logs
}

func (l *StateLedgerImpl) Snapshot() int {
	id := l.nextRevisionId
	l.nextRevisionId++
	l.validRevisions = append(l.validRevisions, revision{id: id, changerIndex: l.changer.length()})
	return id
}

func (l *StateLedgerImpl) RevertToSnapshot(revid int) {
	idx := sort.Search(len(l.validRevisions), func(i int) bool {
		return l.validRevisions[i].id >= revid
	})
	if idx == len(l.validRevisions) || l.validRevisions[idx].id != revid {
		panic(fmt.Errorf("revision id %v cannot be reverted", revid))
	}
	snap := l.validRevisions[idx].changerIndex

	l.changer.revert(l, snap)
	l.validRevisions = l.validRevisions[:idx]
}

// Finalise makes the changes of the current invocation permanent for the block.
// Snapshots taken before Finalise can no longer be reverted.
func (l *StateLedgerImpl) Finalise() {
	for _, account := range l.accounts {
		account.Finalise()
	}
	l.clearChanger()
}

func (l *StateLedgerImpl) clearChanger() {
	l.changer.reset()
	l.validRevisions = l.validRevisions[:0]
	l.nextRevisionId = 0
}

// Commit flushes the finalised state of the block in one batch. The returned
// root chains the merkle root of the changed slots onto the previous root.
func (l *StateLedgerImpl) Commit() (common.Hash, error) {
	start := time.Now()

	addrs := make([]common.Address, 0, len(l.accounts))
	for addr := range l.accounts {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].Hex() < addrs[j].Hex()
	})

	batch := l.backend.NewBatch()
	var leaves []merkletree.Content
	written := make(map[common.Address]bool)
	for _, addr := range addrs {
		account := l.accounts[addr]
		entries := account.pendingEntries()
		if len(entries) == 0 {
			continue
		}
		written[addr] = true
		if !account.persisted {
			batch.Put(compositeAccountKey(addr), []byte{1})
		}
		for _, entry := range entries {
			storageKey := compositeStorageKey(addr, entry.key)
			if entry.value == nil {
				batch.Delete(storageKey)
			} else {
				batch.Put(storageKey, entry.value)
			}
			leaves = append(leaves, HashContent(crypto.Keccak256Hash(storageKey, entry.value)))
		}
	}

	root := l.stateRoot
	if len(leaves) > 0 {
		changesRoot, err := CalcMerkleRoot(leaves)
		if err != nil {
			return common.Hash{}, errors.Wrap(err, "calculate state changes root failed")
		}
		root = crypto.Keccak256Hash(l.stateRoot.Bytes(), changesRoot.Bytes())
	}

	version := l.version + 1
	meta, err := json.Marshal(&stateMeta{Version: version, Root: root})
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "marshal state meta failed")
	}
	batch.Put([]byte(stateMetaKey), meta)
	batch.Put(compositeKey(stateRootKey, version), root.Bytes())
	batch.Commit()

	for addr, account := range l.accounts {
		account.commitPending(written[addr])
	}
	l.version = version
	l.stateRoot = root
	l.Clear()

	flushDirtyWorldStateDuration.Observe(float64(time.Since(start)) / float64(time.Second))
	l.logger.WithFields(logrus.Fields{
		"version": version,
		"root":    root,
		"slots":   len(leaves),
		"elapsed": time.Since(start),
	}).Debug("Commit state")
	return root, nil
}

// Clear drops the block scoped data: journal, revisions and logs.
func (l *StateLedgerImpl) Clear() {
	l.clearChanger()
	l.logs = newEvmLogs()
}

func (l *StateLedgerImpl) Version() uint64 {
	return l.version
}

func (l *StateLedgerImpl) StateRoot() common.Hash {
	return l.stateRoot
}

// StateRootAt returns the root committed at version, zero hash when unknown.
func (l *StateLedgerImpl) StateRootAt(version uint64) common.Hash {
	return common.BytesToHash(l.backend.Get(compositeKey(stateRootKey, version)))
}

func (l *StateLedgerImpl) Close() {
	if err := l.backend.Close(); err != nil {
		l.logger.WithField("err", err).Error("Close state ledger storage failed")
	}
}

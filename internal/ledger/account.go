package ledger

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/token-ledger/internal/storagemgr/kv"
)

var _ IAccount = (*SimpleAccount)(nil)

type bytesLazyLogger struct {
	bytes []byte
}

func (l *bytesLazyLogger) String() string {
	return hexutil.Encode(l.bytes)
}

type SimpleAccount struct {
	logger logrus.FieldLogger
	Addr   common.Address

	// The committed state of the previous block
	originState map[string][]byte

	// Modified state of previous invocations in the current block
	pendingState map[string][]byte

	// The latest state of the current invocation
	dirtyState map[string][]byte

	backend kv.Storage
	cache   *stateCache
	changer *stateChanger

	// persisted is false until the account marker reaches storage
	persisted bool
}

func newAccount(logger logrus.FieldLogger, backend kv.Storage, cache *stateCache, addr common.Address, changer *stateChanger) *SimpleAccount {
	return &SimpleAccount{
		logger:       logger,
		Addr:         addr,
		originState:  make(map[string][]byte),
		pendingState: make(map[string][]byte),
		dirtyState:   make(map[string][]byte),
		backend:      backend,
		cache:        cache,
		changer:      changer,
	}
}

func (o *SimpleAccount) String() string {
	return fmt.Sprintf("{addr: %s, dirty: %d, pending: %d}", o.Addr, len(o.dirtyState), len(o.pendingState))
}

func (o *SimpleAccount) GetAddress() common.Address {
	return o.Addr
}

// GetState returns the latest value of key, the bool reports presence.
func (o *SimpleAccount) GetState(key []byte) (bool, []byte) {
	if value, exist := o.dirtyState[string(key)]; exist {
		return value != nil, value
	}

	return o.getCommittedOrPending(key)
}

func (o *SimpleAccount) getCommittedOrPending(key []byte) (bool, []byte) {
	if value, exist := o.pendingState[string(key)]; exist {
		return value != nil, value
	}

	val := o.GetCommittedState(key)
	return val != nil, val
}

// GetCommittedState reads the value as of the last commit.
func (o *SimpleAccount) GetCommittedState(key []byte) []byte {
	if value, exist := o.originState[string(key)]; exist {
		return value
	}

	storageKey := compositeStorageKey(o.Addr, key)
	val, ok := o.cache.get(storageKey)
	if !ok {
		val = o.backend.Get(storageKey)
		o.cache.add(storageKey, val)
	}
	o.logger.Debugf("[GetCommittedState] get from storage, addr: %v, key: %v, state: %v", o.Addr, string(key), &bytesLazyLogger{bytes: val})

	o.originState[string(key)] = val
	return val
}

// SetState records value for key in the journal. An empty value deletes the slot.
func (o *SimpleAccount) SetState(key []byte, value []byte) {
	_, prev := o.GetState(key)
	_, prevDirty := o.dirtyState[string(key)]
	o.changer.append(storageChange{
		account:   o.Addr,
		key:       common.CopyBytes(key),
		prevalue:  prev,
		prevDirty: prevDirty,
	})
	if len(value) == 0 {
		value = nil
	}
	o.logger.Debugf("[SetState] addr: %v, key: %v, before state: %v, after state: %v", o.Addr, string(key), &bytesLazyLogger{bytes: prev}, &bytesLazyLogger{bytes: value})
	o.setState(key, common.CopyBytes(value))
}

func (o *SimpleAccount) setState(key []byte, value []byte) {
	o.dirtyState[string(key)] = value
}

func (o *SimpleAccount) unsetState(key []byte) {
	delete(o.dirtyState, string(key))
}

// Finalise moves the dirty state of the last invocation into the block pending
// state and returns the touched keys.
func (o *SimpleAccount) Finalise() [][]byte {
	keys := make([][]byte, 0, len(o.dirtyState))
	for key, value := range o.dirtyState {
		o.pendingState[key] = value
		keys = append(keys, []byte(key))
	}
	o.dirtyState = make(map[string][]byte)
	return keys
}

// IsEmpty reports whether the account holds no state at all.
func (o *SimpleAccount) IsEmpty() bool {
	return !o.persisted && len(o.dirtyState) == 0 && len(o.pendingState) == 0
}

type stateEntry struct {
	key   []byte
	value []byte
}

// pendingEntries returns the pending changes that differ from the committed
// state, sorted by key.
func (o *SimpleAccount) pendingEntries() []stateEntry {
	entries := make([]stateEntry, 0, len(o.pendingState))
	for key, value := range o.pendingState {
		if bytes.Equal(o.GetCommittedState([]byte(key)), value) {
			continue
		}
		entries = append(entries, stateEntry{key: []byte(key), value: value})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})
	return entries
}

// commitPending folds the pending state into the origin state after a flush.
func (o *SimpleAccount) commitPending(written bool) {
	for key, value := range o.pendingState {
		o.originState[key] = value
		storageKey := compositeStorageKey(o.Addr, []byte(key))
		o.cache.add(storageKey, value)
	}
	o.pendingState = make(map[string][]byte)
	if written {
		o.persisted = true
	}
}

package storagemgr

import (
	"fmt"
	"runtime"
	"sync"

	pebbledb "github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"

	"github.com/axiomesh/token-ledger/internal/storagemgr/kv"
	"github.com/axiomesh/token-ledger/pkg/loggers"
	"github.com/axiomesh/token-ledger/pkg/repo"
)

const (
	BlockChain = "blockchain"
	Ledger     = "ledger"
)

var globalStorageMgr = &storageMgr{
	storageBuilderMap: make(map[string]func(p string) (kv.Storage, error)),
	storages:          make(map[string]kv.Storage),
	lock:              new(sync.Mutex),
}

func init() {
	memoryBuilder := func(p string) (kv.Storage, error) {
		return kv.NewMemory(), nil
	}

	globalStorageMgr.storageBuilderMap[repo.KVStorageTypeMemory] = memoryBuilder
	// only for test, replaced by Initialize
	globalStorageMgr.storageBuilderMap[repo.KVStorageTypeLeveldb] = memoryBuilder
	globalStorageMgr.storageBuilderMap[repo.KVStorageTypePebble] = memoryBuilder
	globalStorageMgr.storageBuilderMap[""] = memoryBuilder
}

type storageMgr struct {
	storageBuilderMap map[string]func(p string) (kv.Storage, error)
	storages          map[string]kv.Storage
	defaultKVType     string
	cacheMegabytes    int
	lock              *sync.Mutex
}

var defaultPebbleOptions = &pebbledb.Options{
	// MemTableStopWritesThreshold is max number of the existent MemTables(including the frozen one).
	MemTableStopWritesThreshold: 2,

	MaxConcurrentCompactions: func() int { return runtime.NumCPU() },

	// The options for the last level are used for all subsequent levels.
	Levels: []pebbledb.LevelOptions{
		{TargetFileSize: 2 * 1024 * 1024, BlockSize: 32 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
		{TargetFileSize: 2 * 1024 * 1024, BlockSize: 32 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
		{TargetFileSize: 4 * 1024 * 1024, BlockSize: 32 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
		{TargetFileSize: 4 * 1024 * 1024, BlockSize: 32 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
		{TargetFileSize: 8 * 1024 * 1024, BlockSize: 32 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
	},
}

func (m *storageMgr) open(typ string, p string) (kv.Storage, error) {
	builder, ok := m.storageBuilderMap[typ]
	if !ok {
		return nil, fmt.Errorf("unknow kv type %s, expect memory, leveldb or pebble", typ)
	}
	return builder(p)
}

// Initialize registers the disk backends and selects the default kv type.
func Initialize(defaultKVType string, defaultKvCacheSize int, sync bool) error {
	globalStorageMgr.lock.Lock()
	defer globalStorageMgr.lock.Unlock()

	globalStorageMgr.storageBuilderMap[repo.KVStorageTypeLeveldb] = func(p string) (kv.Storage, error) {
		return kv.NewLeveldb(p, nil, sync)
	}
	globalStorageMgr.storageBuilderMap[repo.KVStorageTypePebble] = func(p string) (kv.Storage, error) {
		opts := *defaultPebbleOptions
		opts.Cache = pebbledb.NewCache(int64(defaultKvCacheSize * 1024 * 1024))
		// size of a single memory table
		opts.MemTableSize = defaultKvCacheSize * 1024 * 1024 / 4
		wo := pebbledb.NoSync
		if sync {
			wo = pebbledb.Sync
		}
		return kv.NewPebble(p, &opts, wo, loggers.Logger(loggers.Storage))
	}
	_, ok := globalStorageMgr.storageBuilderMap[defaultKVType]
	if !ok {
		return fmt.Errorf("unknow kv type %s, expect memory, leveldb or pebble", defaultKVType)
	}
	globalStorageMgr.defaultKVType = defaultKVType
	globalStorageMgr.cacheMegabytes = defaultKvCacheSize
	return nil
}

// Open returns the storage at p, opening it with the default kv type on first use.
func Open(p string) (kv.Storage, error) {
	return OpenSpecifyType(globalStorageMgr.defaultKVType, p)
}

// OpenCached wraps the storage at p with a read cache sized by Initialize.
func OpenCached(p string) (kv.Storage, error) {
	s, err := Open(p)
	if err != nil {
		return nil, err
	}
	return NewCachedStorage(s, globalStorageMgr.cacheMegabytes), nil
}

func OpenSpecifyType(typ string, p string) (kv.Storage, error) {
	globalStorageMgr.lock.Lock()
	defer globalStorageMgr.lock.Unlock()
	s, ok := globalStorageMgr.storages[p]
	if !ok {
		var err error
		s, err = globalStorageMgr.open(typ, p)
		if err != nil {
			return nil, err
		}
		s = &instrumentedStorage{Storage: s, path: p}
		globalStorageMgr.storages[p] = s
	}
	return s, nil
}

func GetLedgerComponentPath(rep *repo.Repo, component string) string {
	return repo.GetStoragePath(rep.RepoRoot, component)
}

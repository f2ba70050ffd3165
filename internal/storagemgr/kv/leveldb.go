package kv

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

var _ Storage = (*ldb)(nil)

type ldb struct {
	db *leveldb.DB
	wo *opt.WriteOptions
}

func NewLeveldb(path string, o *opt.Options, sync bool) (Storage, error) {
	db, err := leveldb.OpenFile(path, o)
	if err != nil {
		return nil, errors.Wrapf(err, "open leveldb at %s", path)
	}

	return &ldb{
		db: db,
		wo: &opt.WriteOptions{Sync: sync},
	}, nil
}

func (l *ldb) Put(key, value []byte) {
	if err := l.db.Put(key, value, l.wo); err != nil {
		panic(err)
	}
}

func (l *ldb) Delete(key []byte) {
	if err := l.db.Delete(key, l.wo); err != nil {
		panic(err)
	}
}

func (l *ldb) Get(key []byte) []byte {
	val, err := l.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil
		}
		panic(err)
	}
	return val
}

func (l *ldb) Has(key []byte) bool {
	has, err := l.db.Has(key, nil)
	if err != nil {
		panic(err)
	}
	return has
}

func (l *ldb) NewBatch() Batch {
	return &ldbBatch{
		batch: &leveldb.Batch{},
		ldb:   l,
	}
}

func (l *ldb) Close() error {
	return l.db.Close()
}

type ldbBatch struct {
	batch *leveldb.Batch
	ldb   *ldb
	size  int
}

func (b *ldbBatch) Put(key, value []byte) {
	b.batch.Put(key, value)
	b.size += len(key) + len(value)
}

func (b *ldbBatch) Delete(key []byte) {
	b.batch.Delete(key)
	b.size += len(key)
}

func (b *ldbBatch) Commit() {
	if err := b.ldb.db.Write(b.batch, b.ldb.wo); err != nil {
		panic(err)
	}
}

func (b *ldbBatch) Size() int {
	return b.size
}

func (b *ldbBatch) Reset() {
	b.batch.Reset()
	b.size = 0
}

package kv

import (
	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var _ Storage = (*pdb)(nil)

type pdb struct {
	db     *pebble.DB
	wo     *pebble.WriteOptions
	logger logrus.FieldLogger
}

func NewPebble(path string, o *pebble.Options, wo *pebble.WriteOptions, logger logrus.FieldLogger) (Storage, error) {
	db, err := pebble.Open(path, o)
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble at %s", path)
	}
	if wo == nil {
		wo = pebble.Sync
	}

	return &pdb{
		db:     db,
		wo:     wo,
		logger: logger,
	}, nil
}

func (p *pdb) Put(key, value []byte) {
	if err := p.db.Set(key, value, p.wo); err != nil {
		panic(err)
	}
}

func (p *pdb) Delete(key []byte) {
	if err := p.db.Delete(key, p.wo); err != nil {
		panic(err)
	}
}

func (p *pdb) Get(key []byte) []byte {
	val, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil
		}
		panic(err)
	}
	defer func() {
		if err := closer.Close(); err != nil {
			p.logger.WithField("err", err).Warn("Close pebble value failed")
		}
	}()
	// value is only valid until closer.Close
	return common.CopyBytes(val)
}

func (p *pdb) Has(key []byte) bool {
	return p.Get(key) != nil
}

func (p *pdb) NewBatch() Batch {
	return &pdbBatch{
		batch: p.db.NewBatch(),
		pdb:   p,
	}
}

func (p *pdb) Close() error {
	return p.db.Close()
}

type pdbBatch struct {
	batch *pebble.Batch
	pdb   *pdb
	size  int
}

func (b *pdbBatch) Put(key, value []byte) {
	if err := b.batch.Set(key, value, nil); err != nil {
		panic(err)
	}
	b.size += len(key) + len(value)
}

func (b *pdbBatch) Delete(key []byte) {
	if err := b.batch.Delete(key, nil); err != nil {
		panic(err)
	}
	b.size += len(key)
}

func (b *pdbBatch) Commit() {
	if err := b.batch.Commit(b.pdb.wo); err != nil {
		panic(err)
	}
}

func (b *pdbBatch) Size() int {
	return b.size
}

func (b *pdbBatch) Reset() {
	b.batch.Reset()
	b.size = 0
}

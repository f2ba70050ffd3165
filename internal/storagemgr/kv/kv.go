// Package kv is the byte-level key-value store shared by the state and chain ledgers.
// Backend failures are unrecoverable for a ledger node, so the implementations panic
// instead of returning errors.
package kv

type Storage interface {
	Put(key, value []byte)
	Delete(key []byte)
	Get(key []byte) []byte
	Has(key []byte) bool
	NewBatch() Batch
	Close() error
}

// Batch buffers writes until Commit applies them atomically.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Commit()
	Size() int
	Reset()
}

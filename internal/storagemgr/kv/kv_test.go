package kv

import (
	"path/filepath"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStorages(t *testing.T) map[string]Storage {
	dir := t.TempDir()
	ldb, err := NewLeveldb(filepath.Join(dir, "leveldb"), nil, false)
	require.Nil(t, err)
	pdb, err := NewPebble(filepath.Join(dir, "pebble"), &pebble.Options{}, pebble.NoSync, logrus.New())
	require.Nil(t, err)
	return map[string]Storage{
		"memory":  NewMemory(),
		"leveldb": ldb,
		"pebble":  pdb,
	}
}

func TestStorage(t *testing.T) {
	for name, s := range testStorages(t) {
		s := s
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			assert.Nil(t, s.Get([]byte("a")))
			assert.False(t, s.Has([]byte("a")))

			s.Put([]byte("a"), []byte("1"))
			assert.Equal(t, []byte("1"), s.Get([]byte("a")))
			assert.True(t, s.Has([]byte("a")))

			s.Put([]byte("a"), []byte("2"))
			assert.Equal(t, []byte("2"), s.Get([]byte("a")))

			s.Delete([]byte("a"))
			assert.Nil(t, s.Get([]byte("a")))
			assert.False(t, s.Has([]byte("a")))
		})
	}
}

func TestBatch(t *testing.T) {
	for name, s := range testStorages(t) {
		s := s
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			s.Put([]byte("stale"), []byte("x"))

			batch := s.NewBatch()
			batch.Put([]byte("a"), []byte("1"))
			batch.Put([]byte("b"), []byte("2"))
			batch.Delete([]byte("stale"))
			assert.True(t, batch.Size() > 0)

			// nothing visible before commit
			assert.Nil(t, s.Get([]byte("a")))
			assert.True(t, s.Has([]byte("stale")))

			batch.Commit()
			assert.Equal(t, []byte("1"), s.Get([]byte("a")))
			assert.Equal(t, []byte("2"), s.Get([]byte("b")))
			assert.False(t, s.Has([]byte("stale")))

			batch.Reset()
			assert.Equal(t, 0, batch.Size())
			batch.Put([]byte("c"), []byte("3"))
			batch.Commit()
			assert.Equal(t, []byte("3"), s.Get([]byte("c")))
		})
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	s := NewMemory()
	value := []byte("abc")
	s.Put([]byte("k"), value)
	value[0] = 'x'
	got := s.Get([]byte("k"))
	assert.Equal(t, []byte("abc"), got)
	got[0] = 'y'
	assert.Equal(t, []byte("abc"), s.Get([]byte("k")))
}

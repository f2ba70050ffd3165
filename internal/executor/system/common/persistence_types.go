package common

import (
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/axiomesh/token-ledger/internal/ledger"
)

// Codec maps a value to its slot bytes. Encoding to an empty slice clears the slot.
type Codec[V any] interface {
	Encode(v V) ([]byte, error)
	Decode(data []byte) (V, error)
}

// Uint256Codec stores 32 byte big endian words, zero clears the slot.
type Uint256Codec struct{}

func (Uint256Codec) Encode(v *uint256.Int) ([]byte, error) {
	if v == nil || v.IsZero() {
		return nil, nil
	}
	word := v.Bytes32()
	return word[:], nil
}

func (Uint256Codec) Decode(data []byte) (*uint256.Int, error) {
	if len(data) > 32 {
		return nil, errors.Errorf("uint256 slot too long: %d bytes", len(data))
	}
	return new(uint256.Int).SetBytes(data), nil
}

type StringCodec struct{}

func (StringCodec) Encode(v string) ([]byte, error) {
	return []byte(v), nil
}

func (StringCodec) Decode(data []byte) (string, error) {
	return string(data), nil
}

type AddressCodec struct{}

func (AddressCodec) Encode(v ethcommon.Address) ([]byte, error) {
	return v.Bytes(), nil
}

func (AddressCodec) Decode(data []byte) (ethcommon.Address, error) {
	if len(data) == 0 {
		return ethcommon.Address{}, nil
	}
	if len(data) != ethcommon.AddressLength {
		return ethcommon.Address{}, errors.Errorf("address slot has %d bytes", len(data))
	}
	return ethcommon.BytesToAddress(data), nil
}

type BoolCodec struct{}

func (BoolCodec) Encode(v bool) ([]byte, error) {
	if !v {
		return nil, nil
	}
	return []byte{1}, nil
}

func (BoolCodec) Decode(data []byte) (bool, error) {
	return len(data) > 0 && data[0] != 0, nil
}

type VMMap[K, V any] struct {
	contractAccount ledger.IAccount
	mapName         string
	keyToString     func(key K) string
	codec           Codec[V]
}

func NewVMMapWithCodec[K, V any](contractAccount ledger.IAccount, mapName string, keyToString func(key K) string, codec Codec[V]) *VMMap[K, V] {
	return &VMMap[K, V]{
		contractAccount: contractAccount,
		mapName:         mapName,
		keyToString:     keyToString,
		codec:           codec,
	}
}

func (m *VMMap[K, V]) stateKey(key K) []byte {
	return []byte(fmt.Sprintf("%s-%s", m.mapName, m.keyToString(key)))
}

// Get returns the decoded value, or the codec's zero value when absent.
func (m *VMMap[K, V]) Get(k K) (exist bool, v V, err error) {
	exist, data := m.contractAccount.GetState(m.stateKey(k))
	if v, err = m.codec.Decode(data); err != nil {
		return false, v, errors.Wrapf(err, "system contract[%s] map[%s] key[%s] decode failed", m.contractAccount.GetAddress(), m.mapName, m.keyToString(k))
	}
	return exist && len(data) > 0, v, nil
}

func (m *VMMap[K, V]) Put(k K, v V) error {
	data, err := m.codec.Encode(v)
	if err != nil {
		return err
	}

	m.contractAccount.SetState(m.stateKey(k), data)
	return nil
}

// Delete clears the entry, so a later Get reports it absent.
func (m *VMMap[K, V]) Delete(k K) error {
	m.contractAccount.SetState(m.stateKey(k), nil)
	return nil
}

type VMSlot[V any] struct {
	contractAccount ledger.IAccount
	slotName        string
	codec           Codec[V]
}

func NewVMSlotWithCodec[V any](contractAccount ledger.IAccount, slotName string, codec Codec[V]) *VMSlot[V] {
	return &VMSlot[V]{
		contractAccount: contractAccount,
		slotName:        slotName,
		codec:           codec,
	}
}

func (s *VMSlot[V]) stateKey() []byte {
	return []byte(s.slotName)
}

func (s *VMSlot[V]) Get() (exist bool, v V, err error) {
	exist, data := s.contractAccount.GetState(s.stateKey())
	if v, err = s.codec.Decode(data); err != nil {
		return false, v, errors.Wrapf(err, "system contract[%s] slot[%s] decode failed", s.contractAccount.GetAddress(), s.slotName)
	}
	return exist && len(data) > 0, v, nil
}

func (s *VMSlot[V]) Has() bool {
	exist, _, err := s.Get()
	return err == nil && exist
}

func (s *VMSlot[V]) Put(v V) error {
	data, err := s.codec.Encode(v)
	if err != nil {
		return err
	}

	s.contractAccount.SetState(s.stateKey(), data)
	return nil
}

package common

import (
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVMMap(t *testing.T) {
	nvm := NewTestNVM(t)
	account := nvm.StateLedger.GetOrCreateAccount(ethcommon.HexToAddress(ZeroAddress))
	names := NewVMMapWithCodec[string, string](account, "test", func(key string) string { return key }, StringCodec{})

	exist, v, err := names.Get("test")
	assert.Nil(t, err)
	assert.Empty(t, v)
	assert.False(t, exist)

	require.Nil(t, names.Put("test", "old"))
	exist, v, err = names.Get("test")
	assert.Nil(t, err)
	assert.Equal(t, "old", v)
	assert.True(t, exist)

	require.Nil(t, names.Put("test", "new"))
	_, v, err = names.Get("test")
	assert.Nil(t, err)
	assert.Equal(t, "new", v)

	require.Nil(t, names.Delete("test"))
	exist, v, err = names.Get("test")
	assert.Nil(t, err)
	assert.False(t, exist)
	assert.Empty(t, v)
}

func TestVMMapUint256(t *testing.T) {
	nvm := NewTestNVM(t)
	account := nvm.StateLedger.GetOrCreateAccount(ethcommon.HexToAddress(ZeroAddress))
	balances := NewVMMapWithCodec[ethcommon.Address, *uint256.Int](account, "balance", func(key ethcommon.Address) string { return key.Hex() }, Uint256Codec{})

	holder := ethcommon.HexToAddress("0x1210000000000000000000000000000000000000")
	exist, v, err := balances.Get(holder)
	require.Nil(t, err)
	assert.False(t, exist)
	assert.True(t, v.IsZero())

	require.Nil(t, balances.Put(holder, uint256.NewInt(100)))
	exist, v, err = balances.Get(holder)
	require.Nil(t, err)
	assert.True(t, exist)
	assert.EqualValues(t, 100, v.Uint64())

	exist, raw := account.GetState([]byte("balance-" + holder.Hex()))
	assert.True(t, exist)
	assert.Len(t, raw, 32)

	// zero clears the slot
	require.Nil(t, balances.Put(holder, uint256.NewInt(0)))
	exist, _, err = balances.Get(holder)
	require.Nil(t, err)
	assert.False(t, exist)
}

func TestVMSlot(t *testing.T) {
	nvm := NewTestNVM(t)
	account := nvm.StateLedger.GetOrCreateAccount(ethcommon.HexToAddress(ZeroAddress))

	name := NewVMSlotWithCodec[string](account, "name", StringCodec{})
	assert.False(t, name.Has())
	require.Nil(t, name.Put("Stylus"))
	assert.True(t, name.Has())
	_, v, err := name.Get()
	require.Nil(t, err)
	assert.Equal(t, "Stylus", v)

	owner := NewVMSlotWithCodec[ethcommon.Address](account, "owner", AddressCodec{})
	exist, got, err := owner.Get()
	require.Nil(t, err)
	assert.False(t, exist)
	assert.Equal(t, ethcommon.Address{}, got)
	addr := ethcommon.HexToAddress("0x1220000000000000000000000000000000000000")
	require.Nil(t, owner.Put(addr))
	_, got, err = owner.Get()
	require.Nil(t, err)
	assert.Equal(t, addr, got)

	flag := NewVMSlotWithCodec[bool](account, "initialized", BoolCodec{})
	assert.False(t, flag.Has())
	require.Nil(t, flag.Put(true))
	assert.True(t, flag.Has())
	require.Nil(t, flag.Put(false))
	assert.False(t, flag.Has())
}

func TestUint256CodecRejectsLongSlot(t *testing.T) {
	_, err := Uint256Codec{}.Decode(make([]byte, 33))
	assert.Error(t, err)
}

func TestIsSystemContractAddr(t *testing.T) {
	assert.True(t, IsSystemContractAddr(ethcommon.HexToAddress(TokenLedgerContractAddr)))
	assert.False(t, IsSystemContractAddr(ethcommon.HexToAddress(ZeroAddress)))
	assert.True(t, IsZeroAddress(ethcommon.Address{}))
}

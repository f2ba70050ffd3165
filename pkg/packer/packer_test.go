package packer

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "from", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
		],
		"name": "Moved",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": false, "internalType": "address", "name": "to", "type": "address"},
			{"indexed": true, "internalType": "address", "name": "from", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
		],
		"name": "Shifted",
		"type": "event"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "account", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "NotEnough",
		"type": "error"
	},
	{"inputs": [], "name": "Closed", "type": "error"}
]`

type MovedEvent struct {
	From  common.Address
	Value *big.Int
}

func (_event *MovedEvent) Pack(abi abi.ABI) (*types.Log, error) {
	return PackEvent(_event, abi.Events["Moved"])
}

type ShiftedEvent struct {
	From  common.Address
	Value *big.Int
	To    common.Address
}

func (_event *ShiftedEvent) Pack(abi abi.ABI) (*types.Log, error) {
	return PackEvent(_event, abi.Events["Shifted"])
}

type NotEnoughError struct {
	Account common.Address
	Amount  *big.Int
}

func (_error *NotEnoughError) Pack(abi abi.ABI) error {
	return PackError(_error, abi.Errors["NotEnough"])
}

type ClosedError struct{}

func (_error *ClosedError) Pack(abi abi.ABI) error {
	return PackError(_error, abi.Errors["Closed"])
}

func loadABI(t *testing.T) abi.ABI {
	innerABI, err := abi.JSON(strings.NewReader(testABI))
	require.Nil(t, err)
	return innerABI
}

func TestPackEvent(t *testing.T) {
	innerABI := loadABI(t)
	input := &MovedEvent{
		From:  common.HexToAddress("0x0000000000000000000000000000000000001000"),
		Value: big.NewInt(100),
	}
	log, err := input.Pack(innerABI)
	require.Nil(t, err)
	require.Len(t, log.Topics, 2)
	assert.Equal(t, innerABI.Events["Moved"].ID, log.Topics[0])
	assert.Equal(t, common.BytesToHash(input.From.Bytes()), log.Topics[1])

	data, err := innerABI.Events["Moved"].Inputs.Unpack(log.Data)
	require.Nil(t, err)
	assert.Equal(t, big.NewInt(100), data[0])

	parsed := &MovedEvent{}
	require.Nil(t, UnpackEvent(parsed, innerABI.Events["Moved"], log))
	assert.Equal(t, input.From, parsed.From)
	assert.Equal(t, input.Value, parsed.Value)
}

func TestUnpackEventAssignsDataByName(t *testing.T) {
	innerABI := loadABI(t)

	// a lone data argument lands in its named field, not the first field
	moved, err := (&MovedEvent{From: common.HexToAddress("0x1000"), Value: big.NewInt(7)}).Pack(innerABI)
	require.Nil(t, err)
	parsedMoved := &MovedEvent{}
	require.Nil(t, UnpackEvent(parsedMoved, innerABI.Events["Moved"], moved))
	assert.Equal(t, common.HexToAddress("0x1000"), parsedMoved.From)
	assert.EqualValues(t, 7, parsedMoved.Value.Int64())

	input := &ShiftedEvent{
		From:  common.HexToAddress("0x2000"),
		Value: big.NewInt(42),
		To:    common.HexToAddress("0x3000"),
	}
	shifted, err := input.Pack(innerABI)
	require.Nil(t, err)
	parsed := &ShiftedEvent{}
	require.Nil(t, UnpackEvent(parsed, innerABI.Events["Shifted"], shifted))
	assert.Equal(t, input, parsed)

	type noValue struct{ From common.Address }
	assert.NotNil(t, UnpackEvent(&noValue{}, innerABI.Events["Moved"], moved))

	type wrongType struct {
		From  common.Address
		Value uint64
	}
	assert.NotNil(t, UnpackEvent(&wrongType{}, innerABI.Events["Moved"], moved))
}

func TestPackEventWithNil(t *testing.T) {
	innerABI := loadABI(t)
	_, err := PackEvent(nil, innerABI.Events["Moved"])
	assert.NotNil(t, err)

	type wrongFields struct{ Other uint64 }
	_, err = PackEvent(&wrongFields{}, innerABI.Events["Moved"])
	assert.NotNil(t, err)
}

func TestUnpackEventWithWrongTopic(t *testing.T) {
	innerABI := loadABI(t)
	err := UnpackEvent(&MovedEvent{}, innerABI.Events["Moved"], &types.Log{Topics: []common.Hash{{1}}})
	assert.NotNil(t, err)
}

func TestPackError(t *testing.T) {
	innerABI := loadABI(t)
	errTest := &NotEnoughError{
		Account: common.HexToAddress("0x0000000000000000000000000000000000001000"),
		Amount:  big.NewInt(100),
	}
	err := errTest.Pack(innerABI)

	var revertErr *RevertError
	require.True(t, errors.As(err, &revertErr))
	assert.True(t, errors.Is(err, vm.ErrExecutionReverted))
	assert.Equal(t, innerABI.Errors["NotEnough"].ID.Bytes()[:4], revertErr.Data[:4])
	assert.Contains(t, revertErr.Error(), "NotEnough")

	name, args, err := UnpackError(innerABI, revertErr.Data)
	require.Nil(t, err)
	assert.Equal(t, "NotEnough", name)
	assert.Equal(t, errTest.Account, args[0])
	assert.Equal(t, errTest.Amount, args[1])
}

func TestPackErrorWithoutArgs(t *testing.T) {
	innerABI := loadABI(t)
	err := (&ClosedError{}).Pack(innerABI)
	var revertErr *RevertError
	require.True(t, errors.As(err, &revertErr))
	assert.Len(t, revertErr.Data, 4)

	name, args, err := UnpackError(innerABI, revertErr.Data)
	require.Nil(t, err)
	assert.Equal(t, "Closed", name)
	assert.Empty(t, args)

	_, _, err = UnpackError(innerABI, []byte{1, 2})
	assert.NotNil(t, err)
	_, _, err = UnpackError(innerABI, []byte{1, 2, 3, 4})
	assert.NotNil(t, err)
}

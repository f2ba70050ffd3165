package packer

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type Event interface {
	Pack(abi abi.ABI) (*types.Log, error)
}

type Error interface {
	Pack(abi abi.ABI) error
}

// PackEvent encodes eventStruct as a log. Field names are the camel case
// form of the event input names. The caller fills in the emitter address.
func PackEvent(eventStruct any, event abi.Event) (*types.Log, error) {
	if eventStruct == nil {
		return nil, errors.New("event struct is nil")
	}
	var noIndexedArgs []any
	topicArgs := [][]any{
		{event.ID},
	}
	v := reflect.ValueOf(eventStruct).Elem()
	for _, input := range event.Inputs {
		field := v.FieldByName(abi.ToCamelCase(input.Name))
		if !field.IsValid() {
			return nil, errors.Errorf("event %s missing field %s", event.Name, abi.ToCamelCase(input.Name))
		}
		if !input.Indexed {
			noIndexedArgs = append(noIndexedArgs, field.Interface())
		} else {
			topicArgs = append(topicArgs, []any{field.Interface()})
		}
	}

	topics, err := abi.MakeTopics(topicArgs...)
	if err != nil {
		return nil, errors.Wrapf(err, "event %s make topics error", event.Name)
	}

	packedData, err := event.Inputs.NonIndexed().Pack(noIndexedArgs...)
	if err != nil {
		return nil, errors.Wrapf(err, "event %s pack args error", event.Name)
	}

	return &types.Log{
		Topics: lo.Map(topics, func(t []common.Hash, i int) common.Hash {
			return t[0]
		}),
		Data:    packedData,
		Removed: false,
	}, nil
}

// UnpackEvent decodes log into out, the inverse of PackEvent.
func UnpackEvent(out any, event abi.Event, log *types.Log) error {
	if len(log.Topics) == 0 || log.Topics[0] != event.ID {
		return errors.Errorf("log is not event %s", event.Name)
	}
	if len(log.Data) > 0 {
		values, err := event.Inputs.NonIndexed().Unpack(log.Data)
		if err != nil {
			return errors.Wrapf(err, "event %s unpack data error", event.Name)
		}
		v := reflect.ValueOf(out).Elem()
		for i, input := range event.Inputs.NonIndexed() {
			name := abi.ToCamelCase(input.Name)
			field := v.FieldByName(name)
			if !field.IsValid() {
				return errors.Errorf("event %s missing field %s", event.Name, name)
			}
			value := reflect.ValueOf(values[i])
			if !value.Type().AssignableTo(field.Type()) {
				return errors.Errorf("event %s field %s is %s, want %s", event.Name, name, field.Type(), value.Type())
			}
			field.Set(value)
		}
	}
	var indexed abi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if err := abi.ParseTopics(out, indexed, log.Topics[1:]); err != nil {
		return errors.Wrapf(err, "event %s parse topics error", event.Name)
	}
	return nil
}

type RevertError struct {
	Err error

	// Data is encoded reverted reason, or result
	Data []byte

	// reverted result
	Str string
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("%s errdata %s", e.Err.Error(), e.Str)
}

func (e *RevertError) Unwrap() error {
	return e.Err
}

func PackError(errStruct any, abiErr abi.Error) error {
	if errStruct == nil {
		return errors.New("error struct is nil")
	}
	selector := common.CopyBytes(abiErr.ID.Bytes()[:4])
	var args []any
	v := reflect.ValueOf(errStruct).Elem()
	for _, input := range abiErr.Inputs {
		args = append(args, v.FieldByName(abi.ToCamelCase(input.Name)).Interface())
	}
	packed, err := abiErr.Inputs.Pack(args...)
	if err != nil {
		return err
	}

	return &RevertError{
		Err:  vm.ErrExecutionReverted,
		Data: append(selector, packed...),
		Str:  fmt.Sprintf("%s, args: %v", abiErr.Name, args),
	}
}

// UnpackError resolves revert data against the custom errors in contractABI
// and returns the error name with its decoded arguments.
func UnpackError(contractABI abi.ABI, data []byte) (string, []any, error) {
	if len(data) < 4 {
		return "", nil, errors.New("revert data too short")
	}
	for name, abiErr := range contractABI.Errors {
		if !bytes.Equal(abiErr.ID.Bytes()[:4], data[:4]) {
			continue
		}
		args, err := abiErr.Inputs.Unpack(data[4:])
		if err != nil {
			return "", nil, errors.Wrapf(err, "unpack error %s", name)
		}
		return name, args, nil
	}
	return "", nil, errors.Errorf("unknown error selector %x", data[:4])
}

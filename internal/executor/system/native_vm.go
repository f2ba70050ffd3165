package system

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/token-ledger/internal/executor/system/common"
	"github.com/axiomesh/token-ledger/internal/executor/system/token"
	"github.com/axiomesh/token-ledger/internal/ledger"
	"github.com/axiomesh/token-ledger/pkg/loggers"
	"github.com/axiomesh/token-ledger/pkg/packer"
	"github.com/axiomesh/token-ledger/pkg/repo"
)

var (
	ErrNotExistSystemContract         = errors.New("not exist this system contract")
	ErrNotExistMethodName             = errors.New("not exist method name of this system contract")
	ErrNotExistSystemContractABI      = errors.New("not exist this system contract abi")
	ErrNotDeploySystemContract        = errors.New("not deploy this system contract")
	ErrNotImplementFuncSystemContract = errors.New("not implement the function for this system contract")
)

var _ common.VirtualMachine = (*NativeVM)(nil)

// NativeVM handle abi decoding for parameters and abi encoding for return data
type NativeVM struct {
	logger        logrus.FieldLogger
	stateLedger   ledger.StateLedger
	currentLogs   []*types.Log
	currentHeight uint64
	from          ethcommon.Address
	to            *ethcommon.Address

	// contract address mapping to method signature
	contract2MethodSig map[ethcommon.Address]map[string][]byte
	// contract address mapping to contract abi
	contract2ABI map[ethcommon.Address]abi.ABI
	// contract address mapping to contact instance
	contract2Instance map[ethcommon.Address]common.SystemContract
}

// New deploys the token ledger under the given policy.
func New(policy repo.TokenPolicy) *NativeVM {
	nvm := newEmpty()

	cfg := &common.SystemContractConfig{
		Logger: nvm.logger,
	}
	nvm.Deploy(common.TokenLedgerContractAddr, token.ABI, token.Method2Sig, token.New(cfg, policy))
	return nvm
}

func newEmpty() *NativeVM {
	return &NativeVM{
		logger:             loggers.Logger(loggers.SystemContract),
		contract2MethodSig: make(map[ethcommon.Address]map[string][]byte),
		contract2ABI:       make(map[ethcommon.Address]abi.ABI),
		contract2Instance:  make(map[ethcommon.Address]common.SystemContract),
	}
}

func (nvm *NativeVM) View() common.VirtualMachine {
	return &NativeVM{
		logger:             nvm.logger,
		contract2MethodSig: nvm.contract2MethodSig,
		contract2ABI:       nvm.contract2ABI,
		contract2Instance:  nvm.contract2Instance,
	}
}

func (nvm *NativeVM) Deploy(addr string, abiFile string, method2Sig map[string]string, instance common.SystemContract) {
	contractAddr := ethcommon.HexToAddress(addr)
	// check system contract range
	if !common.IsSystemContractAddr(contractAddr) {
		panic(fmt.Sprintf("this system contract %s is out of range", addr))
	}

	if _, ok := nvm.contract2Instance[contractAddr]; ok {
		panic("deploy system contract repeated")
	}
	nvm.contract2Instance[contractAddr] = instance

	contractABI, err := abi.JSON(strings.NewReader(abiFile))
	if err != nil {
		panic(err)
	}
	nvm.contract2ABI[contractAddr] = contractABI

	m2sig := make(map[string][]byte)
	for methodName, methodSig := range method2Sig {
		m2sig[methodName] = crypto.Keccak256([]byte(methodSig))
	}
	nvm.contract2MethodSig[contractAddr] = m2sig
}

func (nvm *NativeVM) Reset(currentHeight uint64, stateLedger ledger.StateLedger, from ethcommon.Address, to *ethcommon.Address) {
	nvm.stateLedger = stateLedger
	nvm.currentHeight = currentHeight
	nvm.currentLogs = make([]*types.Log, 0)
	nvm.from = from
	nvm.to = to
}

func (nvm *NativeVM) Run(data []byte) (execResult []byte, execErr error) {
	defer func() {
		if execErr == nil {
			nvm.saveLogs()
		}
	}()
	defer func() {
		if err := recover(); err != nil {
			nvm.logger.Error(err)
			execResult = nil
			execErr = fmt.Errorf("%s", err)
		}
	}()

	if nvm.to == nil {
		return nil, ErrNotExistSystemContract
	}

	// get args and method, call the contract method
	contractAddr := *nvm.to
	methodName, err := nvm.getMethodName(contractAddr, data)
	if err != nil {
		return nil, err
	}
	contractInstance, ok := nvm.contract2Instance[contractAddr]
	if !ok {
		return nil, ErrNotDeploySystemContract
	}

	// set context first
	contractInstance.SetContext(&common.VMContext{
		StateLedger: nvm.stateLedger,
		BlockNumber: nvm.currentHeight,
		From:        nvm.from,
		CurrentLogs: &nvm.currentLogs,
	})

	// capitalize the first letter of a function
	funcName := methodName
	if len(methodName) >= 2 {
		funcName = fmt.Sprintf("%s%s", strings.ToUpper(methodName[:1]), methodName[1:])
	}
	nvm.logger.Debugf("run system contract method name: %s", funcName)
	method := reflect.ValueOf(contractInstance).MethodByName(funcName)
	if !method.IsValid() {
		return nil, ErrNotImplementFuncSystemContract
	}
	args, err := nvm.parseArgs(contractAddr, data, methodName)
	if err != nil {
		return nil, err
	}
	var inputs []reflect.Value
	for _, arg := range args {
		inputs = append(inputs, reflect.ValueOf(arg))
	}
	// maybe panic when inputs mismatch, but we recover
	results := method.Call(inputs)

	var returnRes []any
	var returnErr error
	for _, result := range results {
		if isNilValue(result) {
			continue
		}
		if err, ok := result.Interface().(error); ok {
			returnErr = err
			break
		}
		returnRes = append(returnRes, result.Interface())
	}

	nvm.logger.Debugf("Contract addr: %s, method name: %s, return result: %+v, return error: %v", contractAddr, methodName, returnRes, returnErr)

	if returnErr != nil {
		// typed contract errors become abi encoded revert data
		if contractErr, ok := returnErr.(packer.Error); ok {
			return nil, contractErr.Pack(nvm.contract2ABI[contractAddr])
		}
		return nil, returnErr
	}

	if returnRes != nil {
		return nvm.PackOutputArgs(contractAddr, methodName, returnRes...)
	}
	return nil, nil
}

// isNilValue reports nil for the kinds that can hold it, value kinds such as
// arrays and structs are never nil.
func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

// getMethodName returns the method whose selector prefixes data.
func (nvm *NativeVM) getMethodName(contractAddr ethcommon.Address, data []byte) (string, error) {
	if len(data) < 4 {
		return "", ErrNotExistMethodName
	}

	method2Sig, ok := nvm.contract2MethodSig[contractAddr]
	if !ok {
		return "", ErrNotExistSystemContract
	}

	for methodName, methodSig := range method2Sig {
		id := methodSig[:4]
		if bytes.Equal(id, data[:4]) {
			return methodName, nil
		}
	}

	return "", ErrNotExistMethodName
}

// parseArgs parse the arguments to specified interface by method name
func (nvm *NativeVM) parseArgs(contractAddr ethcommon.Address, data []byte, methodName string) ([]any, error) {
	if len(data) < 4 {
		return nil, errors.Errorf("msg data length is not improperly formatted: %q - Bytes: %+v", data, data)
	}

	// discard method id
	msgData := data[4:]

	contractABI, ok := nvm.contract2ABI[contractAddr]
	if !ok {
		return nil, ErrNotExistSystemContractABI
	}

	var args abi.Arguments
	if method, ok := contractABI.Methods[methodName]; ok {
		if len(msgData)%32 != 0 {
			return nil, errors.Errorf("system contract abi: improperly formatted input: %q - Bytes: %+v", msgData, msgData)
		}
		args = method.Inputs
	}

	if args == nil {
		return nil, errors.Errorf("system contract abi: could not locate named method: %s", methodName)
	}

	unpacked, err := args.Unpack(msgData)
	if err != nil {
		return nil, err
	}
	return unpacked, nil
}

func (nvm *NativeVM) methodOutputs(contractAddr ethcommon.Address, methodName string) (abi.Arguments, error) {
	contractABI, ok := nvm.contract2ABI[contractAddr]
	if !ok {
		return nil, ErrNotExistSystemContractABI
	}

	method, ok := contractABI.Methods[methodName]
	if !ok {
		return nil, errors.Errorf("system contract abi: could not locate named method: %s", methodName)
	}
	return method.Outputs, nil
}

// PackOutputArgs pack the output arguments by method name
func (nvm *NativeVM) PackOutputArgs(contractAddr ethcommon.Address, methodName string, outputArgs ...any) ([]byte, error) {
	args, err := nvm.methodOutputs(contractAddr, methodName)
	if err != nil {
		return nil, err
	}
	return args.Pack(outputArgs...)
}

// UnpackOutputArgs unpack the output arguments by method name
func (nvm *NativeVM) UnpackOutputArgs(contractAddr ethcommon.Address, methodName string, packed []byte) ([]any, error) {
	args, err := nvm.methodOutputs(contractAddr, methodName)
	if err != nil {
		return nil, err
	}
	return args.Unpack(packed)
}

// saveLogs save all logs during the system execution
func (nvm *NativeVM) saveLogs() {
	nvm.logger.Debugf("logs: %+v", nvm.currentLogs)

	for _, currentLog := range nvm.currentLogs {
		nvm.stateLedger.AddLog(currentLog)
	}
}

// IsSystemContract judge if it is system contract
// return true if system contract, false if not
func (nvm *NativeVM) IsSystemContract(addr ethcommon.Address) bool {
	_, ok := nvm.contract2Instance[addr]
	return ok
}

func (nvm *NativeVM) GetContractInstance(addr ethcommon.Address) common.SystemContract {
	return nvm.contract2Instance[addr]
}

// RunNativeVM executes data as one call into the contract at to.
func RunNativeVM(nvm common.VirtualMachine, height uint64, lg ledger.StateLedger, data []byte, from ethcommon.Address, to *ethcommon.Address) *core.ExecutionResult {
	nvm.Reset(height, lg, from, to)
	returnData, err := nvm.Run(data)
	return &core.ExecutionResult{
		Err:        err,
		ReturnData: returnData,
	}
}

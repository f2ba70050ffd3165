package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	blockKey         = "block-"
	blockHashKey     = "block-hash-"
	receiptsKey      = "receipts-"
	receiptLookupKey = "receipt-lookup-"
	chainMetaKey     = "chain-meta"
	accountKey       = "account-"
	storageKey       = "storage-"
	stateMetaKey     = "state-meta"
	stateRootKey     = "state-root-"
)

func compositeKey(prefix string, value any) []byte {
	return append([]byte(prefix), []byte(fmt.Sprintf("%v", value))...)
}

func compositeAccountKey(addr common.Address) []byte {
	return compositeKey(accountKey, addr.Hex())
}

func compositeStorageKey(addr common.Address, key []byte) []byte {
	return compositeKey(storageKey, addr.Hex()+"-"+hexutil.Encode(key))
}

package ledger

import (
	"bytes"

	"github.com/cbergoon/merkletree"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// EmptyRoot is the root of an empty receipt list, compatible with Ethereum.
var EmptyRoot = common.HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

// Invocation is a single call into a native contract made on behalf of From.
type Invocation struct {
	From common.Address `json:"from"`
	To   common.Address `json:"to"`
	Data []byte         `json:"data"`
}

// Hash identifies the invocation by its position in the chain, so identical
// payloads in different slots never collide.
func (inv *Invocation) Hash(blockNumber uint64, index uint64) common.Hash {
	data, err := rlp.EncodeToBytes([]any{blockNumber, index, inv.From, inv.To, inv.Data})
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(data)
}

type BlockHeader struct {
	Number      uint64      `json:"number"`
	ParentHash  common.Hash `json:"parentHash"`
	StateRoot   common.Hash `json:"stateRoot"`
	ReceiptRoot common.Hash `json:"receiptRoot"`
	Timestamp   uint64      `json:"timestamp"`
}

func (h *BlockHeader) Hash() common.Hash {
	data, err := rlp.EncodeToBytes(h)
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(data)
}

type Block struct {
	Header      *BlockHeader  `json:"header"`
	Invocations []*Invocation `json:"invocations"`
}

func (b *Block) Hash() common.Hash {
	return b.Header.Hash()
}

func (b *Block) Number() uint64 {
	return b.Header.Number
}

type ReceiptStatus uint64

const (
	ReceiptFailed ReceiptStatus = iota
	ReceiptSuccess
)

type Receipt struct {
	InvocationHash common.Hash   `json:"invocationHash"`
	BlockNumber    uint64        `json:"blockNumber"`
	Index          uint64        `json:"index"`
	Status         ReceiptStatus `json:"status"`
	Ret            []byte        `json:"ret"`
	RevertData     []byte        `json:"revertData"`
	Err            string        `json:"err"`
	Logs           []*types.Log  `json:"logs"`
}

func (r *Receipt) IsSuccess() bool {
	return r.Status == ReceiptSuccess
}

// Hash covers the consensus fields of the receipt, logs included.
func (r *Receipt) Hash() HashContent {
	data, err := rlp.EncodeToBytes(r)
	if err != nil {
		panic(err)
	}
	return HashContent(crypto.Keccak256Hash(data))
}

// fillLogContext restores the fields rlp does not carry for logs.
func (r *Receipt) fillLogContext(blockHash common.Hash, firstLogIndex uint) uint {
	idx := firstLogIndex
	for _, log := range r.Logs {
		log.BlockNumber = r.BlockNumber
		log.BlockHash = blockHash
		log.TxHash = r.InvocationHash
		log.TxIndex = uint(r.Index)
		log.Index = idx
		idx++
	}
	return idx
}

type ChainMeta struct {
	Height    uint64      `json:"height"`
	BlockHash common.Hash `json:"blockHash"`
	StateRoot common.Hash `json:"stateRoot"`
}

// LogFilter selects logs from the inclusive block range. Topics follow the
// eth_getLogs convention: position i matches any of Topics[i], empty matches all.
type LogFilter struct {
	FromBlock uint64           `json:"fromBlock"`
	ToBlock   uint64           `json:"toBlock"`
	Addresses []common.Address `json:"addresses"`
	Topics    [][]common.Hash  `json:"topics"`
}

func (f *LogFilter) Match(log *types.Log) bool {
	if len(f.Addresses) > 0 {
		found := false
		for _, addr := range f.Addresses {
			if addr == log.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Topics) > len(log.Topics) {
		return false
	}
	for i, sub := range f.Topics {
		if len(sub) == 0 {
			continue
		}
		match := false
		for _, topic := range sub {
			if topic == log.Topics[i] {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	return true
}

var _ merkletree.Content = HashContent{}

// HashContent adapts a hash to a merkle tree leaf.
type HashContent common.Hash

func (h HashContent) CalculateHash() ([]byte, error) {
	return h[:], nil
}

func (h HashContent) Equals(other merkletree.Content) (bool, error) {
	o, ok := other.(HashContent)
	if !ok {
		return false, nil
	}
	return bytes.Equal(h[:], o[:]), nil
}

// CalcMerkleRoot returns EmptyRoot for no contents.
func CalcMerkleRoot(contents []merkletree.Content) (common.Hash, error) {
	if len(contents) == 0 {
		return EmptyRoot, nil
	}

	tree, err := merkletree.NewTree(contents)
	if err != nil {
		return common.Hash{}, err
	}

	return common.BytesToHash(tree.MerkleRoot()), nil
}

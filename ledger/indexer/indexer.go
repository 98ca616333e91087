package indexer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/lunfardo314/easywallet/ledger"
	"github.com/lunfardo314/easywallet/ledger/transaction"
	"github.com/lunfardo314/unitrie/common"
)

// Store of the indexer is not a part of the ledger state and is not committed into the root
type Store interface {
	common.BatchedUpdatable
	common.Traversable
	common.KVReader
}

// Indexer keeps history of applied operations per wallet
type Indexer struct {
	mutex sync.RWMutex
	store Store
}

// Entry means the operation TxHash, executed with Timestamp, changed the wallet PubKey
type Entry struct {
	PubKey    ledger.PublicKey
	TxHash    ledger.Hash
	Timestamp int64
}

func New(store Store) *Indexer {
	return &Indexer{
		store: store,
	}
}

// NewInMemory mostly for testing
func NewInMemory() *Indexer {
	return New(common.NewInMemoryKVStore())
}

// EntriesFromBlock makes entries for wallets changed by the committed operations with effect.
// Receipts must be in the order of operations, as returned by the processor
func EntriesFromBlock(ops []transaction.Operation, receipts []*ledger.Receipt) ([]*Entry, error) {
	if len(ops) != len(receipts) {
		return nil, fmt.Errorf("indexer: %d operations but %d receipts", len(ops), len(receipts))
	}
	ret := make([]*Entry, 0)
	for i, r := range receipts {
		if r.Status != ledger.StatusCommitted || !r.Applied {
			continue
		}
		for _, pk := range affectedWallets(ops[i]) {
			ret = append(ret, &Entry{
				PubKey:    pk,
				TxHash:    r.TxHash,
				Timestamp: r.Timestamp,
			})
		}
	}
	return ret, nil
}

// affectedWallets without repetitions
func affectedWallets(op transaction.Operation) []ledger.PublicKey {
	var all []ledger.PublicKey
	switch op := op.(type) {
	case *transaction.CreateWallet:
		all = []ledger.PublicKey{op.PubKey}
	case *transaction.Issue:
		all = []ledger.PublicKey{op.PubKey}
	case *transaction.Transfer:
		rcv := op.Receivers()
		all = append([]ledger.PublicKey{op.From}, rcv[:]...)
	}
	ret := make([]ledger.PublicKey, 0, len(all))
	seen := make(map[ledger.PublicKey]struct{})
	for _, pk := range all {
		if _, already := seen[pk]; !already {
			seen[pk] = struct{}{}
			ret = append(ret, pk)
		}
	}
	return ret
}

func entryKey(pk ledger.PublicKey, h ledger.Hash) []byte {
	return common.Concat(pk[:], h[:])
}

func (inr *Indexer) Update(entries []*Entry) error {
	inr.mutex.Lock()
	defer inr.mutex.Unlock()

	w := inr.store.BatchedWriter()
	for _, e := range entries {
		var ts [8]byte
		binary.BigEndian.PutUint64(ts[:], uint64(e.Timestamp))
		w.Set(entryKey(e.PubKey, e.TxHash), ts[:])
	}
	return w.Commit()
}

// UpdateFromBlock indexes the block applied by the processor
func (inr *Indexer) UpdateFromBlock(ops []transaction.Operation, receipts []*ledger.Receipt) error {
	entries, err := EntriesFromBlock(ops, receipts)
	if err != nil {
		return err
	}
	return inr.Update(entries)
}

// History of the wallet sorted by timestamp. Operations with the same timestamp are sorted by hash
func (inr *Indexer) History(pk ledger.PublicKey) ([]*Entry, error) {
	inr.mutex.RLock()
	defer inr.mutex.RUnlock()

	ret := make([]*Entry, 0)
	var err error
	inr.store.Iterator(pk[:]).Iterate(func(k, v []byte) bool {
		if len(k) != ledger.PublicKeyLength+ledger.HashLength || len(v) != 8 {
			err = fmt.Errorf("indexer: wrong entry %x", k)
			return false
		}
		e := &Entry{
			PubKey:    pk,
			Timestamp: int64(binary.BigEndian.Uint64(v)),
		}
		copy(e.TxHash[:], k[ledger.PublicKeyLength:])
		ret = append(ret, e)
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Timestamp != ret[j].Timestamp {
			return ret[i].Timestamp < ret[j].Timestamp
		}
		return bytes.Compare(ret[i].TxHash[:], ret[j].TxHash[:]) < 0
	})
	return ret, nil
}

package state

import (
	"bytes"
	"math"
	"sort"

	"github.com/lunfardo314/easywallet/ledger"
	"github.com/lunfardo314/unitrie/common"
)

// Fork is a transactional view over a parent state. Mutations are buffered in the fork
// and are invisible to the parent until the fork is merged or committed.
// Discarding a fork is just dropping it. Fork is not thread-safe
type Fork struct {
	parent   ledger.StateReader
	wallets  map[ledger.PublicKey]*ledger.Wallet
	receipts map[ledger.Hash]*ledger.Receipt
}

var _ ledger.View = &Fork{}

func NewFork(parent ledger.StateReader) *Fork {
	return &Fork{
		parent:   parent,
		wallets:  make(map[ledger.PublicKey]*ledger.Wallet),
		receipts: make(map[ledger.Hash]*ledger.Receipt),
	}
}

// GetWallet returns a copy of the current wallet record
func (f *Fork) GetWallet(pk ledger.PublicKey) (*ledger.Wallet, bool) {
	if w, ok := f.wallets[pk]; ok {
		return w.Clone(), true
	}
	return f.parent.GetWallet(pk)
}

func (f *Fork) CreateWallet(pk ledger.PublicKey, name string, txHash ledger.Hash) {
	_, already := f.GetWallet(pk)
	common.Assert(!already, "CreateWallet: wallet %s already exists", pk.String())

	f.wallets[pk] = &ledger.Wallet{
		PubKey: pk,
		Name:   name,
		LastTx: txHash,
	}
}

// IncreaseBalance is applied to the current value of the wallet in the fork, not to the snapshot w
func (f *Fork) IncreaseBalance(w *ledger.Wallet, amount uint64, txHash ledger.Hash) error {
	cur := f.mustCurrent(w.PubKey)
	if cur.Balance > math.MaxUint64-amount {
		return ledger.NewExecutionError(ledger.BalanceOverflow)
	}
	cur.Balance += amount
	cur.LastTx = txHash
	f.wallets[cur.PubKey] = cur
	return nil
}

// DecreaseBalance is applied to the current value of the wallet in the fork, not to the snapshot w
func (f *Fork) DecreaseBalance(w *ledger.Wallet, amount uint64, txHash ledger.Hash) error {
	cur := f.mustCurrent(w.PubKey)
	if cur.Balance < amount {
		return ledger.NewExecutionError(ledger.BalanceOverflow)
	}
	cur.Balance -= amount
	cur.LastTx = txHash
	f.wallets[cur.PubKey] = cur
	return nil
}

func (f *Fork) mustCurrent(pk ledger.PublicKey) *ledger.Wallet {
	ret, ok := f.GetWallet(pk)
	common.Assert(ok, "wallet %s does not exist", pk.String())
	return ret
}

func (f *Fork) PutReceipt(r *ledger.Receipt) {
	f.receipts[r.TxHash] = r
}

func (f *Fork) GetReceipt(h ledger.Hash) (*ledger.Receipt, bool) {
	if r, ok := f.receipts[h]; ok {
		return r, true
	}
	if rr, ok := f.parent.(ledger.ReceiptReader); ok {
		return rr.GetReceipt(h)
	}
	return nil, false
}

// MergeInto moves all mutations of the fork into the parent fork
func (f *Fork) MergeInto(parent *Fork) {
	for pk, w := range f.wallets {
		parent.wallets[pk] = w
	}
	for h, r := range f.receipts {
		parent.receipts[h] = r
	}
	f.wallets = make(map[ledger.PublicKey]*ledger.Wallet)
	f.receipts = make(map[ledger.Hash]*ledger.Receipt)
}

func (f *Fork) IsEmpty() bool {
	return len(f.wallets) == 0 && len(f.receipts) == 0
}

// NumMutatedWallets number of wallets created or updated in the fork
func (f *Fork) NumMutatedWallets() int {
	return len(f.wallets)
}

// forEachMutation enumerates buffered records as trie key/value pairs in the order of keys
func (f *Fork) forEachMutation(fun func(key, value []byte)) {
	type kv struct{ k, v []byte }
	all := make([]kv, 0, len(f.wallets)+len(f.receipts))
	for pk, w := range f.wallets {
		all = append(all, kv{ledger.WalletKey(pk), w.Bytes()})
	}
	for h, r := range f.receipts {
		all = append(all, kv{ledger.ReceiptKey(h), r.Bytes()})
	}
	sort.Slice(all, func(i, j int) bool {
		return bytes.Compare(all[i].k, all[j].k) < 0
	})
	for _, e := range all {
		fun(e.k, e.v)
	}
}

package state

import (
	"fmt"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easywallet/ledger"
	"github.com/lunfardo314/unitrie/common"
	"github.com/lunfardo314/unitrie/immutable"
	"github.com/lunfardo314/unitrie/models/trie_blake2b"
)

type (
	// Updatable is an updatable ledger state, with the particular root
	// Suitable for chained updates
	Updatable struct {
		store ledger.StateStore
		root  common.VCommitment
	}

	// Readable is a read-only ledger state, with the particular root
	Readable struct {
		trie *immutable.TrieReader
	}
)

// commitment model singleton

var commitmentModel = trie_blake2b.New(common.PathArity16, trie_blake2b.HashSize256)

// InitLedgerState initializes empty ledger state in the empty store.
// Identity is committed into the root, so ledgers with different identities never share roots
func InitLedgerState(store common.KVWriter, identity []byte) common.VCommitment {
	storeTmp := common.NewInMemoryKVStore()
	emptyRoot := immutable.MustInitRoot(storeTmp, commitmentModel, identity)
	common.CopyAll(store, storeTmp)
	return emptyRoot
}

// NewReadable creates read-only ledger state with the given root
func NewReadable(store common.KVReader, root common.VCommitment) (*Readable, error) {
	trie, err := immutable.NewTrieReader(commitmentModel, store, root)
	if err != nil {
		return nil, err
	}
	return &Readable{trie}, nil
}

// NewUpdatable creates updatable state with the given root. After updated, the root changes.
// Suitable for chained updates of the ledger state
func NewUpdatable(store ledger.StateStore, root common.VCommitment) (*Updatable, error) {
	_, err := immutable.NewTrieReader(commitmentModel, store, root)
	if err != nil {
		return nil, err
	}
	return &Updatable{
		root:  root.Clone(),
		store: store,
	}, nil
}

func (u *Updatable) Readable() *Readable {
	trie, err := immutable.NewTrieReader(commitmentModel, u.store, u.root)
	easyfl.AssertNoError(err)
	return &Readable{
		trie: trie,
	}
}

// Root return the current root
func (u *Updatable) Root() common.VCommitment {
	return u.root
}

// Commit writes all mutations buffered in the fork into the trie and moves the root.
// The fork is not changed. Empty fork leaves the root as is
func (u *Updatable) Commit(f *Fork) error {
	if f.IsEmpty() {
		return nil
	}
	trie, err := immutable.NewTrieUpdatable(commitmentModel, u.store, u.root)
	if err != nil {
		return err
	}
	f.forEachMutation(func(key, value []byte) {
		trie.Update(key, value)
	})
	batch := u.store.BatchedWriter()
	root := trie.Commit(batch)
	if err = batch.Commit(); err != nil {
		return fmt.Errorf("state commit: %w", err)
	}
	u.root = root
	return nil
}

func (r *Readable) GetWallet(pk ledger.PublicKey) (*ledger.Wallet, bool) {
	data := r.trie.Get(ledger.WalletKey(pk))
	if len(data) == 0 {
		return nil, false
	}
	ret, err := ledger.WalletFromBytes(data)
	easyfl.AssertNoError(err)
	return ret, true
}

func (r *Readable) GetReceipt(h ledger.Hash) (*ledger.Receipt, bool) {
	data := r.trie.Get(ledger.ReceiptKey(h))
	if len(data) == 0 {
		return nil, false
	}
	ret, err := ledger.ReceiptFromBytes(data)
	easyfl.AssertNoError(err)
	return ret, true
}

// IterateWallets iterates all wallets in the state
func (r *Readable) IterateWallets(fun func(w *ledger.Wallet) bool) {
	r.trie.Iterator([]byte{ledger.PartitionWallets}).Iterate(func(_, v []byte) bool {
		w, err := ledger.WalletFromBytes(v)
		easyfl.AssertNoError(err)
		return fun(w)
	})
}

package walletdb

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easywallet/ledger"
	"github.com/lunfardo314/easywallet/ledger/indexer"
	"github.com/lunfardo314/easywallet/ledger/processor"
	"github.com/lunfardo314/easywallet/ledger/state"
	"github.com/lunfardo314/easywallet/ledger/transaction"
	"github.com/lunfardo314/easywallet/ledger/txbuilder"
	"github.com/lunfardo314/unitrie/common"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ed25519"
)

// WalletDB is an in-memory ledger with the processor, history indexer and a controllable ordering time.
// Intended for tests and development

type WalletDB struct {
	mutex      sync.Mutex
	store      ledger.StateStore
	proc       *processor.Processor
	indexer    *indexer.Indexer
	timeSource func() int64
	timeFixed  int64
	isFixed    bool
	seed       atomic.Uint64
	log        *zap.SugaredLogger
}

type Config struct {
	Processor processor.Config
	// Identity is committed into the empty state root
	Identity []byte
	// TimeSource provides the ordering time in milliseconds. Wall clock if nil.
	// Ignored while the time is fixed with SetTime
	TimeSource func() int64
}

const (
	// for determinism
	deterministicSeed = "1234567890987654321"
	defaultIdentity   = "easywallet test ledger"
	// IssueDefault amount credited by Fund if not specified
	IssueDefault = uint64(1_000_000)
)

func DefaultConfig() Config {
	return Config{
		Processor: processor.DefaultConfig(),
		Identity:  []byte(defaultIdentity),
	}
}

func New(cfg Config, log ...*zap.SugaredLogger) *WalletDB {
	var lg *zap.SugaredLogger
	if len(log) > 0 && log[0] != nil {
		lg = log[0]
	} else {
		lg = zap.NewNop().Sugar()
	}
	if len(cfg.Identity) == 0 {
		cfg.Identity = []byte(defaultIdentity)
	}
	if cfg.TimeSource == nil {
		cfg.TimeSource = func() int64 {
			return txbuilder.TimestampMillis(time.Now())
		}
	}
	store := common.NewInMemoryKVStore()
	root := state.InitLedgerState(store, cfg.Identity)
	proc, err := processor.New(cfg.Processor, store, root, lg)
	easyfl.AssertNoError(err)

	return &WalletDB{
		store:      store,
		proc:       proc,
		indexer:    indexer.NewInMemory(),
		timeSource: cfg.TimeSource,
		log:        lg.Named("walletdb"),
	}
}

// GenerateKey deterministic ed25519 key pair with the index n
func GenerateKey(n uint16) (ed25519.PrivateKey, ledger.PublicKey) {
	var u16 [2]byte
	binary.BigEndian.PutUint16(u16[:], n)
	seed := blake2b.Sum256(common.Concat([]byte(deterministicSeed), u16[:]))
	priv := ed25519.NewKeyFromSeed(seed[:])
	return priv, txbuilder.PublicKeyFromPrivate(priv)
}

func (w *WalletDB) Processor() *processor.Processor {
	return w.proc
}

func (w *WalletDB) Indexer() *indexer.Indexer {
	return w.indexer
}

func (w *WalletDB) Store() ledger.StateStore {
	return w.store
}

func (w *WalletDB) Root() common.VCommitment {
	return w.proc.Root()
}

// SetTime fixes the ordering time until UnfixTime is called
func (w *WalletDB) SetTime(ts int64) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.timeFixed = ts
	w.isFixed = true
}

// UnfixTime returns to the time source
func (w *WalletDB) UnfixTime() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.timeFixed = 0
	w.isFixed = false
}

// Now is the ordering time the next operation will be executed with
func (w *WalletDB) Now() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.isFixed {
		return w.timeFixed
	}
	return w.timeSource()
}

// AddOperation applies the operation at the current ordering time and updates the indexer.
// Returns the receipt and the error of the receipt, if the operation was not committed.
// Ledger state and indexer are updated separately, so the state can be updated while indexer fails
func (w *WalletDB) AddOperation(op transaction.Operation) (*ledger.Receipt, error) {
	rcpt, err := w.proc.Apply(w.Now(), op)
	if err != nil {
		return nil, err
	}
	if err = w.indexer.UpdateFromBlock([]transaction.Operation{op}, []*ledger.Receipt{rcpt}); err != nil {
		return rcpt, indexerFailed(err)
	}
	if err = rcpt.Err(); err != nil {
		w.log.Debugf("%s: %v", op.String(), err)
	}
	return rcpt, rcpt.Err()
}

func indexerFailed(err error) error {
	return fmt.Errorf("ledger state was updated but indexer update failed: %w", err)
}

// AddBytes parses and applies the operation
func (w *WalletDB) AddBytes(txBytes []byte) (*ledger.Receipt, error) {
	op, err := transaction.FromBytes(txBytes)
	if err != nil {
		return nil, err
	}
	return w.AddOperation(op)
}

func (w *WalletDB) CreateWallet(privKey ed25519.PrivateKey, name string) error {
	_, err := w.AddOperation(txbuilder.MakeCreateWallet(privKey, name))
	return err
}

// Fund issues amount to the wallet, IssueDefault if amount not specified
func (w *WalletDB) Fund(privKey ed25519.PrivateKey, amount ...uint64) error {
	a := IssueDefault
	if len(amount) > 0 {
		a = amount[0]
	}
	_, err := w.AddOperation(txbuilder.MakeIssue(privKey, a, 0, 0, w.nextSeed()))
	return err
}

// Transfer sends amount to each of the three receivers with TxTime one second before the ordering time
func (w *WalletDB) Transfer(privKey ed25519.PrivateKey, to, toSecond, toThird ledger.PublicKey, amount uint64) (*ledger.Receipt, error) {
	par := txbuilder.NewTransferInputs(privKey).
		WithReceivers(to, toSecond, toThird).
		WithAmount(amount).
		WithSeed(w.nextSeed()).
		WithTxTime(w.Now() - 1000)
	return w.AddOperation(txbuilder.MakeTransfer(par))
}

// nextSeed makes repeated operations with equal parameters different
func (w *WalletDB) nextSeed() uint64 {
	return w.seed.Inc()
}

func (w *WalletDB) Wallet(pk ledger.PublicKey) (*ledger.Wallet, bool) {
	return w.proc.GetWallet(pk)
}

// Balance of the wallet, 0 if the wallet does not exist
func (w *WalletDB) Balance(pk ledger.PublicKey) uint64 {
	if wallet, ok := w.proc.GetWallet(pk); ok {
		return wallet.Balance
	}
	return 0
}

func (w *WalletDB) Receipt(h ledger.Hash) (*ledger.Receipt, bool) {
	return w.proc.GetReceipt(h)
}

// History of operations which changed the wallet
func (w *WalletDB) History(pk ledger.PublicKey) ([]*indexer.Entry, error) {
	return w.indexer.History(pk)
}

// Wallets all wallets in the state
func (w *WalletDB) Wallets() []*ledger.Wallet {
	ret := make([]*ledger.Wallet, 0)
	w.proc.Readable().IterateWallets(func(wallet *ledger.Wallet) bool {
		ret = append(ret, wallet)
		return true
	})
	return ret
}

// TotalSupply sum of all balances
func (w *WalletDB) TotalSupply() (uint64, error) {
	var ret uint64
	var err error
	w.proc.Readable().IterateWallets(func(wallet *ledger.Wallet) bool {
		if ret+wallet.Balance < ret {
			err = fmt.Errorf("total supply overflows uint64")
			return false
		}
		ret += wallet.Balance
		return true
	})
	return ret, err
}

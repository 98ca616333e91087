package walletdb

import (
	"io"
	"testing"

	"github.com/lunfardo314/easywallet/ledger"
	"github.com/lunfardo314/easywallet/util/testutil"
	"github.com/stretchr/testify/require"
)

const testNow = int64(1_700_000_000_000)

func newTestDB(t *testing.T) *WalletDB {
	ret := New(DefaultConfig(), testutil.NewTestLogger(t, false))
	ret.SetTime(testNow)
	return ret
}

func TestGenerateKey(t *testing.T) {
	priv1, pub1 := GenerateKey(1)
	priv1again, pub1again := GenerateKey(1)
	_, pub2 := GenerateKey(2)
	require.EqualValues(t, priv1, priv1again)
	require.EqualValues(t, pub1, pub1again)
	require.NotEqualValues(t, pub1, pub2)
}

func TestWalletDB(t *testing.T) {
	privA, pubA := GenerateKey(0)
	privB, pubB := GenerateKey(1)
	privC, pubC := GenerateKey(2)
	privD, pubD := GenerateKey(3)

	t.Run("empty", func(t *testing.T) {
		db := newTestDB(t)
		require.EqualValues(t, 0, len(db.Wallets()))
		_, found := db.Wallet(pubA)
		require.False(t, found)
		require.EqualValues(t, 0, db.Balance(pubA))
	})
	t.Run("create and fund", func(t *testing.T) {
		db := newTestDB(t)
		require.NoError(t, db.CreateWallet(privA, "Alice"))
		err := db.CreateWallet(privA, "Alice again")
		require.ErrorIs(t, err, ledger.NewExecutionError(ledger.WalletAlreadyExists))

		require.NoError(t, db.Fund(privA, 100))
		require.NoError(t, db.Fund(privA, 100))
		require.NoError(t, db.Fund(privA))
		require.EqualValues(t, 200+IssueDefault, db.Balance(pubA))

		w, found := db.Wallet(pubA)
		require.True(t, found)
		require.EqualValues(t, "Alice", w.Name)

		err = db.Fund(privB, 10)
		require.ErrorIs(t, err, ledger.NewExecutionError(ledger.ReceiverNotFound))
	})
	t.Run("transfer", func(t *testing.T) {
		db := newTestDB(t)
		require.NoError(t, db.CreateWallet(privA, "A"))
		require.NoError(t, db.CreateWallet(privB, "B"))
		require.NoError(t, db.CreateWallet(privC, "C"))
		require.NoError(t, db.CreateWallet(privD, "D"))
		require.NoError(t, db.Fund(privA, 150))

		rcpt, err := db.Transfer(privA, pubB, pubC, pubD, 40)
		require.NoError(t, err)
		require.True(t, rcpt.Applied)
		require.EqualValues(t, 30, db.Balance(pubA))
		require.EqualValues(t, 40, db.Balance(pubB))
		require.EqualValues(t, 40, db.Balance(pubC))
		require.EqualValues(t, 40, db.Balance(pubD))

		rcpt, err = db.Transfer(privA, pubB, pubC, pubD, 40)
		require.ErrorIs(t, err, ledger.NewExecutionError(ledger.InsufficientCurrencyAmount))
		require.EqualValues(t, ledger.StatusRolledBack, rcpt.Status)
		require.EqualValues(t, 30, db.Balance(pubA))

		back, found := db.Receipt(rcpt.TxHash)
		require.True(t, found)
		require.EqualValues(t, rcpt, back)

		hist, err := db.History(pubA)
		require.NoError(t, err)
		// create, fund, transfer
		require.EqualValues(t, 3, len(hist))
		hist, err = db.History(pubB)
		require.NoError(t, err)
		require.EqualValues(t, 2, len(hist))

		supply, err := db.TotalSupply()
		require.NoError(t, err)
		require.EqualValues(t, 150, supply)
		require.EqualValues(t, 4, len(db.Wallets()))
	})
	t.Run("bytes", func(t *testing.T) {
		db := newTestDB(t)
		_, err := db.AddBytes([]byte{1, 2, 3})
		require.Error(t, err)
	})
	t.Run("identity", func(t *testing.T) {
		db1 := newTestDB(t)
		cfg := DefaultConfig()
		cfg.Identity = []byte("another ledger")
		db2 := New(cfg)
		require.NotEqualValues(t, db1.Root().String(), db2.Root().String())
	})
	t.Run("time source", func(t *testing.T) {
		ts := int64(5_000)
		cfg := DefaultConfig()
		cfg.TimeSource = func() int64 {
			ts++
			return ts
		}
		db := New(cfg)
		require.EqualValues(t, 5_001, db.Now())
		db.SetTime(10)
		require.EqualValues(t, 10, db.Now())
		db.SetTime(0)
		require.EqualValues(t, 0, db.Now())
		db.UnfixTime()
		require.EqualValues(t, 5_002, db.Now())
	})
	t.Run("transfer at small ordering time", func(t *testing.T) {
		db := newTestDB(t)
		db.SetTime(1000)
		require.NoError(t, db.CreateWallet(privA, "A"))
		require.NoError(t, db.CreateWallet(privB, "B"))
		require.NoError(t, db.CreateWallet(privC, "C"))
		require.NoError(t, db.CreateWallet(privD, "D"))
		require.NoError(t, db.Fund(privA, 100))

		// TxTime is 0
		rcpt, err := db.Transfer(privA, pubB, pubC, pubD, 10)
		require.NoError(t, err)
		require.True(t, rcpt.Applied)
		require.EqualValues(t, 70, db.Balance(pubA))
		require.EqualValues(t, 10, db.Balance(pubB))
	})
}

func TestIndexerError(t *testing.T) {
	err := indexerFailed(io.ErrUnexpectedEOF)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Contains(t, err.Error(), "indexer update failed")
}

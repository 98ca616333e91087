package indexer

import (
	"testing"

	"github.com/lunfardo314/easywallet/ledger"
	"github.com/lunfardo314/easywallet/ledger/transaction"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ed25519"
)

func testKey(n byte) (ed25519.PrivateKey, ledger.PublicKey) {
	seed := blake2b.Sum256([]byte{n, 0xff})
	priv := ed25519.NewKeyFromSeed(seed[:])
	return priv, ledger.PublicKeyFromED25519(priv.Public().(ed25519.PublicKey))
}

func committed(op transaction.Operation, ts int64, applied bool) *ledger.Receipt {
	return &ledger.Receipt{
		TxHash:    op.Hash(),
		Kind:      byte(op.Kind()),
		Status:    ledger.StatusCommitted,
		Applied:   applied,
		Timestamp: ts,
	}
}

func TestIndexer(t *testing.T) {
	privA, pubA := testKey(0)
	_, pubB := testKey(1)
	_, pubC := testKey(2)

	create := transaction.Sign(transaction.NewCreateWallet(pubA, "A"), privA)
	issue := transaction.Sign(transaction.NewIssue(pubA, 10, 0, 0, 0), privA)
	tr := transaction.Sign(transaction.NewTransfer(pubA, pubB, pubB, pubC, 1, 0, "100"), privA)
	noEffect := transaction.Sign(transaction.NewTransfer(pubA, pubB, pubB, pubC, 1, 1, "100"), privA)
	failed := transaction.Sign(transaction.NewIssue(pubA, 10, 0, 0, 1), privA)

	t.Run("entries", func(t *testing.T) {
		ops := []transaction.Operation{create, tr, noEffect, failed}
		failedReceipt := committed(failed, 2, false)
		failedReceipt.Status = ledger.StatusRolledBack
		receipts := []*ledger.Receipt{
			committed(create, 1, true),
			committed(tr, 2, true),
			committed(noEffect, 2, false),
			failedReceipt,
		}
		entries, err := EntriesFromBlock(ops, receipts)
		require.NoError(t, err)
		// create: A, transfer: A, B, C
		require.EqualValues(t, 4, len(entries))

		_, err = EntriesFromBlock(ops, receipts[:1])
		require.Error(t, err)
	})
	t.Run("history", func(t *testing.T) {
		inr := NewInMemory()
		require.NoError(t, inr.UpdateFromBlock(
			[]transaction.Operation{tr, create},
			[]*ledger.Receipt{committed(tr, 3, true), committed(create, 1, true)},
		))
		require.NoError(t, inr.UpdateFromBlock(
			[]transaction.Operation{issue},
			[]*ledger.Receipt{committed(issue, 2, true)},
		))

		h, err := inr.History(pubA)
		require.NoError(t, err)
		require.EqualValues(t, 3, len(h))
		require.EqualValues(t, create.Hash(), h[0].TxHash)
		require.EqualValues(t, issue.Hash(), h[1].TxHash)
		require.EqualValues(t, tr.Hash(), h[2].TxHash)
		require.EqualValues(t, []int64{1, 2, 3}, []int64{h[0].Timestamp, h[1].Timestamp, h[2].Timestamp})

		h, err = inr.History(pubB)
		require.NoError(t, err)
		require.EqualValues(t, 1, len(h))
		require.EqualValues(t, tr.Hash(), h[0].TxHash)

		_, pubD := testKey(3)
		h, err = inr.History(pubD)
		require.NoError(t, err)
		require.EqualValues(t, 0, len(h))
	})
}

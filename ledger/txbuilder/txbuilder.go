package txbuilder

import (
	"strconv"
	"time"

	"github.com/lunfardo314/easywallet/ledger"
	"github.com/lunfardo314/easywallet/ledger/transaction"
	"golang.org/x/crypto/ed25519"
)

type TransferInputs struct {
	SenderPrivateKey ed25519.PrivateKey
	SenderPublicKey  ledger.PublicKey
	Receivers        [3]ledger.PublicKey
	Amount           uint64
	Seed             uint64
	TxTime           int64 // milliseconds, takes time.Now() if not set with WithTxTime
	hasTxTime        bool
}

func NewTransferInputs(senderKey ed25519.PrivateKey) *TransferInputs {
	return &TransferInputs{
		SenderPrivateKey: senderKey,
		SenderPublicKey:  PublicKeyFromPrivate(senderKey),
	}
}

// WithReceivers sets the three receivers. Each of them will receive the full amount
func (t *TransferInputs) WithReceivers(to, toSecond, toThird ledger.PublicKey) *TransferInputs {
	t.Receivers = [3]ledger.PublicKey{to, toSecond, toThird}
	return t
}

func (t *TransferInputs) WithAmount(amount uint64) *TransferInputs {
	t.Amount = amount
	return t
}

func (t *TransferInputs) WithSeed(seed uint64) *TransferInputs {
	t.Seed = seed
	return t
}

func (t *TransferInputs) WithTxTime(ts int64) *TransferInputs {
	t.TxTime = ts
	t.hasTxTime = true
	return t
}

func MakeTransfer(par *TransferInputs) *transaction.Transfer {
	ts := par.TxTime
	if !par.hasTxTime {
		ts = TimestampMillis(time.Now())
	}
	tx := transaction.NewTransfer(
		par.SenderPublicKey,
		par.Receivers[0], par.Receivers[1], par.Receivers[2],
		par.Amount, par.Seed, FormatTxTime(ts),
	)
	transaction.Sign(tx, par.SenderPrivateKey)
	return tx
}

func MakeIssue(privKey ed25519.PrivateKey, amount, amountSecond, amountThird, seed uint64) *transaction.Issue {
	tx := transaction.NewIssue(PublicKeyFromPrivate(privKey), amount, amountSecond, amountThird, seed)
	transaction.Sign(tx, privKey)
	return tx
}

func MakeCreateWallet(privKey ed25519.PrivateKey, name string) *transaction.CreateWallet {
	tx := transaction.NewCreateWallet(PublicKeyFromPrivate(privKey), name)
	transaction.Sign(tx, privKey)
	return tx
}

func PublicKeyFromPrivate(privKey ed25519.PrivateKey) ledger.PublicKey {
	return ledger.PublicKeyFromED25519(privKey.Public().(ed25519.PublicKey))
}

// TimestampMillis milliseconds since Unix epoch, the unit of Transfer time
func TimestampMillis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

func FormatTxTime(ms int64) string {
	return strconv.FormatInt(ms, 10)
}

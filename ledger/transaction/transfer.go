package transaction

import (
	"fmt"
	"math/bits"
	"strconv"

	"github.com/lunfardo314/easywallet/lazyslice"
	"github.com/lunfardo314/easywallet/ledger"
)

// Transfer moves Amount from the sender to each of the three receivers, so the sender is debited 3*Amount.
// It has effect only when executed within the time window after TxTime.
// TxTime is the decimal string of milliseconds since Unix epoch, set by the author
type Transfer struct {
	From     ledger.PublicKey
	To       ledger.PublicKey
	ToSecond ledger.PublicKey
	ToThird  ledger.PublicKey
	Amount   uint64
	Seed     uint64
	TxTime   string
	sealed
}

// number of receivers, each receives full amount
const numReceivers = 3

var _ Operation = &Transfer{}

func NewTransfer(from, to, toSecond, toThird ledger.PublicKey, amount, seed uint64, txTime string) *Transfer {
	return &Transfer{
		From:     from,
		To:       to,
		ToSecond: toSecond,
		ToThird:  toThird,
		Amount:   amount,
		Seed:     seed,
		TxTime:   txTime,
	}
}

func transferFromEssence(arr *lazyslice.Array) (*Transfer, error) {
	if err := checkNumElements(arr, 8); err != nil {
		return nil, err
	}
	var keys [4]ledger.PublicKey
	var err error
	for i := range keys {
		if keys[i], err = ledger.PublicKeyFromBytes(arr.At(i + 1)); err != nil {
			return nil, err
		}
	}
	amount, err := decodeUint64(arr.At(5))
	if err != nil {
		return nil, err
	}
	seed, err := decodeUint64(arr.At(6))
	if err != nil {
		return nil, err
	}
	return NewTransfer(keys[0], keys[1], keys[2], keys[3], amount, seed, string(arr.At(7))), nil
}

func (tx *Transfer) Kind() Kind {
	return KindTransfer
}

func (tx *Transfer) Signer() ledger.PublicKey {
	return tx.From
}

func (tx *Transfer) Essence() []byte {
	return lazyslice.MakeArray(
		[]byte{byte(KindTransfer)},
		tx.From[:],
		tx.To[:],
		tx.ToSecond[:],
		tx.ToThird[:],
		encodeUint64(tx.Amount),
		encodeUint64(tx.Seed),
		[]byte(tx.TxTime),
	).Bytes()
}

func (tx *Transfer) seal(sig []byte) {
	tx.sealWith(tx.Essence(), sig)
}

// Timestamp parses TxTime
func (tx *Transfer) Timestamp() (int64, error) {
	return strconv.ParseInt(tx.TxTime, 10, 64)
}

// Verify checks the signature of the sender and that TxTime is a valid timestamp
func (tx *Transfer) Verify() bool {
	if _, err := tx.Timestamp(); err != nil {
		return false
	}
	return verifySignature(tx)
}

// Execute checks all wallets and the balance of the sender before the time window.
// The balance check is against Amount, not against the debited 3*Amount.
// A debit which does not fit the balance fails with BalanceOverflow
func (tx *Transfer) Execute(view ledger.View, ctx ledger.ExecutionContext) (bool, error) {
	txTime, err := tx.Timestamp()
	if err != nil {
		return false, fmt.Errorf("Transfer: wrong tx time '%s': %w", tx.TxTime, err)
	}
	sender, found := view.GetWallet(tx.From)
	if !found {
		return false, ledger.NewExecutionError(ledger.SenderNotFound)
	}
	receivers := make([]*ledger.Wallet, 0, numReceivers)
	for _, pk := range tx.Receivers() {
		w, found := view.GetWallet(pk)
		if !found {
			return false, ledger.NewExecutionError(ledger.ReceiverNotFound)
		}
		receivers = append(receivers, w)
	}
	if sender.Balance < tx.Amount {
		return false, ledger.NewExecutionError(ledger.InsufficientCurrencyAmount)
	}
	if !ctx.InTimeWindow(txTime) {
		if ctx.StrictTimeWindow {
			return false, ledger.NewExecutionError(ledger.OutsideTimeWindow)
		}
		return false, nil
	}
	hi, total := bits.Mul64(tx.Amount, numReceivers)
	if hi != 0 {
		return false, ledger.NewExecutionError(ledger.BalanceOverflow)
	}
	h := tx.Hash()
	if err = view.DecreaseBalance(sender, total, h); err != nil {
		return false, err
	}
	for _, w := range receivers {
		if err = view.IncreaseBalance(w, tx.Amount, h); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (tx *Transfer) Receivers() [numReceivers]ledger.PublicKey {
	return [numReceivers]ledger.PublicKey{tx.To, tx.ToSecond, tx.ToThird}
}

func (tx *Transfer) String() string {
	return fmt.Sprintf("Transfer(%s -> %s, %s, %s, amount %d, seed %d, time %s)",
		tx.From.String(), tx.To.String(), tx.ToSecond.String(), tx.ToThird.String(), tx.Amount, tx.Seed, tx.TxTime)
}

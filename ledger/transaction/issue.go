package transaction

import (
	"fmt"
	"math/bits"

	"github.com/lunfardo314/easywallet/lazyslice"
	"github.com/lunfardo314/easywallet/ledger"
)

// Issue credits the wallet with the sum of three amounts.
// Seed only makes otherwise identical operations different
type Issue struct {
	PubKey       ledger.PublicKey
	Amount       uint64
	AmountSecond uint64
	AmountThird  uint64
	Seed         uint64
	sealed
}

var _ Operation = &Issue{}

func NewIssue(pk ledger.PublicKey, amount, amountSecond, amountThird, seed uint64) *Issue {
	return &Issue{
		PubKey:       pk,
		Amount:       amount,
		AmountSecond: amountSecond,
		AmountThird:  amountThird,
		Seed:         seed,
	}
}

func issueFromEssence(arr *lazyslice.Array) (*Issue, error) {
	if err := checkNumElements(arr, 6); err != nil {
		return nil, err
	}
	pk, err := ledger.PublicKeyFromBytes(arr.At(1))
	if err != nil {
		return nil, err
	}
	var u [4]uint64
	for i := range u {
		if u[i], err = decodeUint64(arr.At(i + 2)); err != nil {
			return nil, err
		}
	}
	return NewIssue(pk, u[0], u[1], u[2], u[3]), nil
}

func (tx *Issue) Kind() Kind {
	return KindIssue
}

func (tx *Issue) Signer() ledger.PublicKey {
	return tx.PubKey
}

func (tx *Issue) Essence() []byte {
	return lazyslice.MakeArray(
		[]byte{byte(KindIssue)},
		tx.PubKey[:],
		encodeUint64(tx.Amount),
		encodeUint64(tx.AmountSecond),
		encodeUint64(tx.AmountThird),
		encodeUint64(tx.Seed),
	).Bytes()
}

func (tx *Issue) seal(sig []byte) {
	tx.sealWith(tx.Essence(), sig)
}

func (tx *Issue) Verify() bool {
	return verifySignature(tx)
}

// Total is the sum of the three amounts. Not ok if the sum overflows
func (tx *Issue) Total() (uint64, bool) {
	sum, carry1 := bits.Add64(tx.Amount, tx.AmountSecond, 0)
	sum, carry2 := bits.Add64(sum, tx.AmountThird, 0)
	return sum, carry1 == 0 && carry2 == 0
}

func (tx *Issue) Execute(view ledger.View, _ ledger.ExecutionContext) (bool, error) {
	wallet, found := view.GetWallet(tx.PubKey)
	if !found {
		return false, ledger.NewExecutionError(ledger.ReceiverNotFound)
	}
	total, ok := tx.Total()
	if !ok {
		return false, ledger.NewExecutionError(ledger.BalanceOverflow)
	}
	if err := view.IncreaseBalance(wallet, total, tx.Hash()); err != nil {
		return false, err
	}
	return true, nil
}

func (tx *Issue) String() string {
	return fmt.Sprintf("Issue(%s, %d + %d + %d, seed %d)",
		tx.PubKey.String(), tx.Amount, tx.AmountSecond, tx.AmountThird, tx.Seed)
}

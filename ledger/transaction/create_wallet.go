package transaction

import (
	"fmt"

	"github.com/lunfardo314/easywallet/lazyslice"
	"github.com/lunfardo314/easywallet/ledger"
)

// CreateWallet registers new wallet with the given name and zero balance
type CreateWallet struct {
	PubKey ledger.PublicKey
	Name   string
	sealed
}

var _ Operation = &CreateWallet{}

func NewCreateWallet(pk ledger.PublicKey, name string) *CreateWallet {
	return &CreateWallet{
		PubKey: pk,
		Name:   name,
	}
}

func createWalletFromEssence(arr *lazyslice.Array) (*CreateWallet, error) {
	if err := checkNumElements(arr, 3); err != nil {
		return nil, err
	}
	pk, err := ledger.PublicKeyFromBytes(arr.At(1))
	if err != nil {
		return nil, err
	}
	return NewCreateWallet(pk, string(arr.At(2))), nil
}

func (tx *CreateWallet) Kind() Kind {
	return KindCreateWallet
}

func (tx *CreateWallet) Signer() ledger.PublicKey {
	return tx.PubKey
}

func (tx *CreateWallet) Essence() []byte {
	return lazyslice.MakeArray([]byte{byte(KindCreateWallet)}, tx.PubKey[:], []byte(tx.Name)).Bytes()
}

func (tx *CreateWallet) seal(sig []byte) {
	tx.sealWith(tx.Essence(), sig)
}

func (tx *CreateWallet) Verify() bool {
	return verifySignature(tx)
}

func (tx *CreateWallet) Execute(view ledger.View, _ ledger.ExecutionContext) (bool, error) {
	if _, found := view.GetWallet(tx.PubKey); found {
		return false, ledger.NewExecutionError(ledger.WalletAlreadyExists)
	}
	view.CreateWallet(tx.PubKey, tx.Name, tx.Hash())
	return true, nil
}

func (tx *CreateWallet) String() string {
	return fmt.Sprintf("CreateWallet(%s, '%s')", tx.PubKey.String(), tx.Name)
}

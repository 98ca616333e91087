package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/lunfardo314/easywallet/lazyslice"
)

// Wallet is the state record of one account, keyed by its public key
type Wallet struct {
	PubKey  PublicKey
	Name    string
	Balance uint64
	// LastTx is the hash of the operation which changed the wallet last
	LastTx Hash
}

const walletNumElements = 4

func (w *Wallet) Bytes() []byte {
	var balanceBin [8]byte
	binary.BigEndian.PutUint64(balanceBin[:], w.Balance)
	return lazyslice.MakeArray(w.PubKey[:], []byte(w.Name), balanceBin[:], w.LastTx[:]).Bytes()
}

func WalletFromBytes(data []byte) (*Wallet, error) {
	arr, err := lazyslice.ParseArray(data, walletNumElements)
	if err != nil {
		return nil, fmt.Errorf("WalletFromBytes: %w", err)
	}
	ret := &Wallet{
		Name: string(arr.At(1)),
	}
	if ret.PubKey, err = PublicKeyFromBytes(arr.At(0)); err != nil {
		return nil, fmt.Errorf("WalletFromBytes: public key: %w", err)
	}
	if len(arr.At(2)) != 8 {
		return nil, fmt.Errorf("WalletFromBytes: balance: %w", ErrWrongDataLength)
	}
	ret.Balance = binary.BigEndian.Uint64(arr.At(2))
	if ret.LastTx, err = HashFromBytes(arr.At(3)); err != nil {
		return nil, fmt.Errorf("WalletFromBytes: last tx: %w", err)
	}
	return ret, nil
}

func (w *Wallet) Clone() *Wallet {
	ret := *w
	return &ret
}

func (w *Wallet) String() string {
	return fmt.Sprintf("wallet %s '%s': balance %d, last tx %s", w.PubKey.String(), w.Name, w.Balance, w.LastTx.String())
}

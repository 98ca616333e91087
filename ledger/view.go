package ledger

type (
	// StateReader is read access to wallets
	StateReader interface {
		GetWallet(pk PublicKey) (*Wallet, bool)
	}

	ReceiptReader interface {
		GetReceipt(h Hash) (*Receipt, bool)
	}

	// View is the mutable transactional view of the ledger used by one operation execution.
	// All mutations issued on the view are discarded as a whole if the operation fails
	View interface {
		StateReader
		// CreateWallet inserts new wallet with zero balance
		CreateWallet(pk PublicKey, name string, txHash Hash)
		// IncreaseBalance credits the wallet. Fails with BalanceOverflow
		IncreaseBalance(w *Wallet, amount uint64, txHash Hash) error
		// DecreaseBalance debits the wallet. Fails with BalanceOverflow if the balance is less than amount
		DecreaseBalance(w *Wallet, amount uint64, txHash Hash) error
	}
)

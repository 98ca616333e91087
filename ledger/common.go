package ledger

import (
	"encoding/hex"
	"errors"
	"math"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/unitrie/common"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ed25519"
)

const (
	// DefaultTimeWindowMillis is 36 minutes
	DefaultTimeWindowMillis = int64(2_160_000)

	PublicKeyLength = ed25519.PublicKeySize
	HashLength      = blake2b.Size256
)

// partitions of the state trie
const (
	PartitionWallets = byte(iota)
	PartitionReceipts
)

type (
	// PublicKey identifies a wallet
	PublicKey [PublicKeyLength]byte

	// Hash is the blake2b-256 content hash of an operation
	Hash [HashLength]byte

	// ExecutionContext is the data agreed by all replicas for the operation being executed.
	// Timestamp is the ordering time in milliseconds since Unix epoch (for example the block time).
	// It is never taken from the local clock of the node
	ExecutionContext struct {
		Timestamp int64
		// TimeWindowMillis is the length of the Transfer validity window. 0 means DefaultTimeWindowMillis
		TimeWindowMillis int64
		// StrictTimeWindow turns a Transfer outside its time window into OutsideTimeWindow error.
		// Otherwise such a Transfer succeeds without effect
		StrictTimeWindow bool
	}

	StateStore interface {
		common.KVReader
		common.BatchedUpdatable
	}
)

var ErrWrongDataLength = errors.New("wrong data length")

func PublicKeyFromBytes(data []byte) (ret PublicKey, err error) {
	if len(data) != PublicKeyLength {
		err = ErrWrongDataLength
		return
	}
	copy(ret[:], data)
	return
}

func PublicKeyFromED25519(pub ed25519.PublicKey) PublicKey {
	ret, err := PublicKeyFromBytes(pub)
	easyfl.AssertNoError(err)
	return ret
}

func PublicKeyFromHex(s string) (PublicKey, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, err
	}
	return PublicKeyFromBytes(data)
}

func (pk PublicKey) Bytes() []byte {
	return pk[:]
}

func (pk PublicKey) ED25519() ed25519.PublicKey {
	return pk[:]
}

func (pk PublicKey) String() string {
	return hex.EncodeToString(pk[:])
}

func HashFromBytes(data []byte) (ret Hash, err error) {
	if len(data) != HashLength {
		err = ErrWrongDataLength
		return
	}
	copy(ret[:], data)
	return
}

// HashData is the content hash used across the ledger
func HashData(data []byte) Hash {
	return blake2b.Sum256(data)
}

func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func WalletKey(pk PublicKey) []byte {
	return common.Concat(PartitionWallets, pk[:])
}

func ReceiptKey(h Hash) []byte {
	return common.Concat(PartitionReceipts, h[:])
}

func (c ExecutionContext) timeWindow() int64 {
	if c.TimeWindowMillis > 0 {
		return c.TimeWindowMillis
	}
	return DefaultTimeWindowMillis
}

// InTimeWindow is true if the ordering time is strictly inside (t, t + window)
func (c ExecutionContext) InTimeWindow(t int64) bool {
	if c.Timestamp <= t {
		return false
	}
	w := c.timeWindow()
	if t > math.MaxInt64-w {
		// upper bound does not fit int64
		return true
	}
	return c.Timestamp < t+w
}

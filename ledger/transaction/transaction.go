package transaction

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/lunfardo314/easywallet/lazyslice"
	"github.com/lunfardo314/easywallet/ledger"
	"github.com/lunfardo314/unitrie/common"
	"golang.org/x/crypto/ed25519"
)

// Kind is the type tag of the operation, the first element of the essence
type Kind byte

const (
	KindCreateWallet = Kind(iota)
	KindIssue
	KindTransfer
)

func (k Kind) String() string {
	switch k {
	case KindCreateWallet:
		return "CreateWallet"
	case KindIssue:
		return "Issue"
	case KindTransfer:
		return "Transfer"
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

// Operation is a signed immutable ledger operation
type Operation interface {
	Kind() Kind
	// Signer is the public key the signature must be valid for
	Signer() ledger.PublicKey
	// Essence is the signed part of the operation
	Essence() []byte
	Signature() []byte
	// Bytes is the wire form: array of essence and signature
	Bytes() []byte
	// Hash is the blake2b-256 hash of Bytes
	Hash() ledger.Hash
	// Verify checks authenticity and well-formedness of the operation. It does not access the state
	Verify() bool
	// Execute runs the operation against the view. Applied is false when the operation succeeded
	// without changing the view. If error is returned, mutations on the view must be discarded
	Execute(view ledger.View, ctx ledger.ExecutionContext) (applied bool, err error)
	String() string

	seal(sig []byte)
}

// sealed holds signature and the data derived from it
type sealed struct {
	signature []byte
	bytes     []byte
	hash      ledger.Hash
}

const maxEssenceElements = 8

var (
	ErrNonCanonical     = errors.New("non-canonical operation bytes")
	ErrUnknownKind      = errors.New("unknown operation kind")
	ErrMissingSignature = errors.New("missing signature")
)

func (s *sealed) sealWith(essence, sig []byte) {
	common.Assert(s.signature == nil, "operation already signed")
	s.signature = sig
	s.bytes = lazyslice.MakeArray(essence, sig).Bytes()
	s.hash = ledger.HashData(s.bytes)
}

func (s *sealed) mustSealed() {
	common.Assert(s.signature != nil, "operation is not signed")
}

func (s *sealed) Signature() []byte {
	return s.signature
}

func (s *sealed) Bytes() []byte {
	s.mustSealed()
	return s.bytes
}

func (s *sealed) Hash() ledger.Hash {
	s.mustSealed()
	return s.hash
}

// Sign signs the essence of the unsigned operation. The operation must not be changed after it is signed
func Sign(op Operation, privateKey ed25519.PrivateKey) Operation {
	op.seal(ed25519.Sign(privateKey, op.Essence()))
	return op
}

func verifySignature(op Operation) bool {
	sig := op.Signature()
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(op.Signer().ED25519(), op.Essence(), sig)
}

// FromBytes parses wire bytes of any operation. The bytes must be exactly
// the canonical encoding, so the hash of the operation is unique
func FromBytes(data []byte) (Operation, error) {
	arr, err := lazyslice.ParseArray(data, 2)
	if err != nil {
		return nil, fmt.Errorf("operation: %w", err)
	}
	var op Operation
	kindArr, err := lazyslice.ParseArrayUpTo(arr.At(0), maxEssenceElements)
	if err != nil {
		return nil, fmt.Errorf("operation essence: %w", err)
	}
	if kindArr.NumElements() == 0 || len(kindArr.At(0)) != 1 {
		return nil, fmt.Errorf("operation essence: %w", ErrUnknownKind)
	}
	switch Kind(kindArr.At(0)[0]) {
	case KindCreateWallet:
		op, err = createWalletFromEssence(kindArr)
	case KindIssue:
		op, err = issueFromEssence(kindArr)
	case KindTransfer:
		op, err = transferFromEssence(kindArr)
	default:
		err = ErrUnknownKind
	}
	if err != nil {
		return nil, fmt.Errorf("operation %s: %w", Kind(kindArr.At(0)[0]), err)
	}
	if len(arr.At(1)) == 0 {
		return nil, ErrMissingSignature
	}
	op.seal(append([]byte(nil), arr.At(1)...))
	if !bytes.Equal(op.Bytes(), data) {
		return nil, ErrNonCanonical
	}
	return op, nil
}

func checkNumElements(arr *lazyslice.Array, n int) error {
	if arr.NumElements() != n {
		return fmt.Errorf("expected %d essence elements, got %d", n, arr.NumElements())
	}
	return nil
}

func encodeUint64(v uint64) []byte {
	var ret [8]byte
	binary.BigEndian.PutUint64(ret[:], v)
	return ret[:]
}

func decodeUint64(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, ledger.ErrWrongDataLength
	}
	return binary.BigEndian.Uint64(data), nil
}

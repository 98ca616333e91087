package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/lunfardo314/easywallet/lazyslice"
)

// Status is the terminal state of an operation
type Status byte

const (
	// StatusCommitted the operation was executed and its effects are in the state
	StatusCommitted = Status(iota)
	// StatusRolledBack the operation failed during execution, effects were discarded
	StatusRolledBack
	// StatusRejected the operation did not pass verification and was never executed
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusCommitted:
		return "committed"
	case StatusRolledBack:
		return "rolled back"
	case StatusRejected:
		return "rejected"
	}
	return fmt.Sprintf("status(%d)", byte(s))
}

// Receipt is the execution history record of one operation
type Receipt struct {
	TxHash Hash
	Kind   byte
	Status Status
	// Applied is false for committed operations without effect on the state,
	// i.e. a Transfer outside its time window
	Applied bool
	// HasCode is true when the Code is a domain error code
	HasCode     bool
	Code        ErrorCode
	Description string
	Timestamp   int64
}

const receiptNumElements = 5

func (r *Receipt) Bytes() []byte {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(r.Timestamp))
	var flags byte
	if r.Applied {
		flags |= 0x01
	}
	if r.HasCode {
		flags |= 0x02
	}
	return lazyslice.MakeArray(
		r.TxHash[:],
		[]byte{r.Kind, byte(r.Status), flags},
		[]byte{byte(r.Code)},
		[]byte(r.Description),
		ts[:],
	).Bytes()
}

func ReceiptFromBytes(data []byte) (*Receipt, error) {
	arr, err := lazyslice.ParseArray(data, receiptNumElements)
	if err != nil {
		return nil, fmt.Errorf("ReceiptFromBytes: %w", err)
	}
	ret := &Receipt{}
	if ret.TxHash, err = HashFromBytes(arr.At(0)); err != nil {
		return nil, fmt.Errorf("ReceiptFromBytes: tx hash: %w", err)
	}
	if len(arr.At(1)) != 3 || len(arr.At(2)) != 1 || len(arr.At(4)) != 8 {
		return nil, fmt.Errorf("ReceiptFromBytes: %w", ErrWrongDataLength)
	}
	ret.Kind = arr.At(1)[0]
	ret.Status = Status(arr.At(1)[1])
	ret.Applied = arr.At(1)[2]&0x01 != 0
	ret.HasCode = arr.At(1)[2]&0x02 != 0
	ret.Code = ErrorCode(arr.At(2)[0])
	ret.Description = string(arr.At(3))
	ret.Timestamp = int64(binary.BigEndian.Uint64(arr.At(4)))
	return ret, nil
}

func (r *Receipt) Err() error {
	if r.Status == StatusCommitted {
		return nil
	}
	if r.HasCode {
		return &ExecutionError{Code: r.Code, Description: r.Description}
	}
	return fmt.Errorf("%s: %s", r.Status, r.Description)
}

func (r *Receipt) String() string {
	ret := fmt.Sprintf("tx %s (kind %d) %s", r.TxHash.String(), r.Kind, r.Status)
	if r.Status == StatusCommitted && !r.Applied {
		ret += " without effect"
	}
	if r.Description != "" {
		ret += ": " + r.Description
	}
	return ret
}

package lazyslice

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Array can be interpreted two ways:
// - as byte slice
// - as serialized append-only array of byte slices
// Serialization is optimized by analyzing maximum length of the data element
type Array struct {
	bytes          []byte
	parsed         [][]byte
	maxNumElements int
}

type lenPrefixType uint16

// prefix of the serialized array is uint16, big-endian.
// The highest 2 bits encode the size of element length prefix (0, 1, 2 or 4 bytes),
// the rest is the number of elements. Max 2^14-1
const (
	DataLenBytes0  = uint16(0x00) << 14
	DataLenBytes8  = uint16(0x01) << 14
	DataLenBytes16 = uint16(0x02) << 14
	DataLenBytes32 = uint16(0x03) << 14

	DataLenMask  = uint16(0x03) << 14
	ArrayLenMask = ^DataLenMask
	MaxArrayLen  = int(ArrayLenMask) // 16383

	emptyArrayPrefix = lenPrefixType(0)
)

var ErrUnexpectedEOF = errors.New("lazyslice: unexpected EOF")

func (dl lenPrefixType) DataLenBytes() int {
	switch uint16(dl) & DataLenMask {
	case DataLenBytes8:
		return 1
	case DataLenBytes16:
		return 2
	case DataLenBytes32:
		return 4
	}
	return 0
}

func (dl lenPrefixType) NumElements() int {
	return int(uint16(dl) & ArrayLenMask)
}

func (dl lenPrefixType) Bytes() []byte {
	var ret [2]byte
	binary.BigEndian.PutUint16(ret[:], uint16(dl))
	return ret[:]
}

// ArrayFromBytes wraps data without parsing it. Parsing is lazy, on first access.
// Malformed data panics on access, use ParseArray for untrusted input
func ArrayFromBytes(data []byte, maxNumElements ...int) *Array {
	mx := MaxArrayLen
	if len(maxNumElements) > 0 {
		mx = maxNumElements[0]
	}
	return &Array{
		bytes:          data,
		maxNumElements: mx,
	}
}

// ParseArray parses data eagerly and checks the number of elements is exactly numElements
func ParseArray(data []byte, numElements int) (*Array, error) {
	ret, err := ParseArrayUpTo(data, numElements)
	if err != nil {
		return nil, err
	}
	if len(ret.parsed) != numElements {
		return nil, fmt.Errorf("lazyslice: expected %d elements, got %d", numElements, len(ret.parsed))
	}
	return ret, nil
}

// ParseArrayUpTo parses data eagerly. The array can't have more than maxNumElements elements
func ParseArrayUpTo(data []byte, maxNumElements int) (*Array, error) {
	parsed, err := parseArray(data, maxNumElements)
	if err != nil {
		return nil, err
	}
	return &Array{
		bytes:          data,
		parsed:         parsed,
		maxNumElements: maxNumElements,
	}, nil
}

func EmptyArray(maxNumElements ...int) *Array {
	return ArrayFromBytes(emptyArrayPrefix.Bytes(), maxNumElements...)
}

// MakeArray creates array from elements
func MakeArray(elems ...[]byte) *Array {
	ret := EmptyArray()
	for _, e := range elems {
		ret.Push(e)
	}
	return ret
}

func (a *Array) IsEmpty() bool {
	return a.NumElements() == 0
}

func (a *Array) Push(data []byte) int {
	a.ensureParsed()
	if len(a.parsed) >= a.maxNumElements {
		panic("Array.Push: too many elements")
	}
	a.parsed = append(a.parsed, data)
	a.bytes = nil // invalidate bytes
	return len(a.parsed) - 1
}

func (a *Array) ForEach(fun func(i int, data []byte) bool) {
	for i := 0; i < a.NumElements(); i++ {
		if !fun(i, a.At(i)) {
			break
		}
	}
}

func (a *Array) ensureParsed() {
	if a.parsed != nil {
		return
	}
	var err error
	a.parsed, err = parseArray(a.bytes, a.maxNumElements)
	if err != nil {
		panic(err)
	}
}

func (a *Array) ensureBytes() {
	if a.bytes != nil {
		return
	}
	if len(a.parsed) == 0 {
		// not parsed, bytes stay nil
		return
	}
	var buf bytes.Buffer
	if err := encodeArray(a.parsed, &buf); err != nil {
		panic(err)
	}
	a.bytes = buf.Bytes()
}

func (a *Array) At(idx int) []byte {
	a.ensureParsed()
	return a.parsed[idx]
}

func (a *Array) NumElements() int {
	a.ensureParsed()
	return len(a.parsed)
}

func (a *Array) Bytes() []byte {
	a.ensureBytes()
	return a.bytes
}

func calcLenPrefix(data [][]byte) (lenPrefixType, error) {
	if len(data) > MaxArrayLen {
		return 0, errors.New("lazyslice: too many elements")
	}
	if len(data) == 0 {
		return emptyArrayPrefix, nil
	}
	var dl uint16
	for _, d := range data {
		t := DataLenBytes0
		switch {
		case uint64(len(d)) > math.MaxUint32:
			return 0, errors.New("lazyslice: element can't be longer than MaxUint32")
		case len(d) > math.MaxUint16:
			t = DataLenBytes32
		case len(d) > math.MaxUint8:
			t = DataLenBytes16
		case len(d) > 0:
			t = DataLenBytes8
		}
		if dl < t {
			dl = t
		}
	}
	return lenPrefixType(dl | uint16(len(data))), nil
}

func writeData(data [][]byte, numDataLenBytes int, w io.Writer) error {
	if numDataLenBytes == 0 {
		return nil // all empty
	}
	var lenBuf [4]byte
	for _, d := range data {
		switch numDataLenBytes {
		case 1:
			lenBuf[0] = byte(len(d))
		case 2:
			binary.BigEndian.PutUint16(lenBuf[:2], uint16(len(d)))
		case 4:
			binary.BigEndian.PutUint32(lenBuf[:4], uint32(len(d)))
		}
		if _, err := w.Write(lenBuf[:numDataLenBytes]); err != nil {
			return err
		}
		if _, err := w.Write(d); err != nil {
			return err
		}
	}
	return nil
}

// decodeElement cuts the element from the buffer without copying.
// Returns the rest of the buffer and the element
func decodeElement(buf []byte, numDataLenBytes int) ([]byte, []byte, error) {
	if len(buf) < numDataLenBytes {
		return nil, nil, ErrUnexpectedEOF
	}
	var sz int
	switch numDataLenBytes {
	case 0:
	case 1:
		sz = int(buf[0])
	case 2:
		sz = int(binary.BigEndian.Uint16(buf[:2]))
	case 4:
		sz = int(binary.BigEndian.Uint32(buf[:4]))
	default:
		return nil, nil, errors.New("lazyslice: wrong length prefix")
	}
	if len(buf) < numDataLenBytes+sz {
		return nil, nil, ErrUnexpectedEOF
	}
	return buf[numDataLenBytes+sz:], buf[numDataLenBytes : numDataLenBytes+sz], nil
}

func decodeData(data []byte, numDataLenBytes int, n int) ([][]byte, error) {
	ret := make([][]byte, n)
	var err error
	for i := 0; i < n; i++ {
		data, ret[i], err = decodeElement(data, numDataLenBytes)
		if err != nil {
			return nil, err
		}
	}
	if len(data) != 0 {
		return nil, errors.New("lazyslice: not all bytes were consumed")
	}
	return ret, nil
}

func encodeArray(data [][]byte, w io.Writer) error {
	prefix, err := calcLenPrefix(data)
	if err != nil {
		return err
	}
	if _, err = w.Write(prefix.Bytes()); err != nil {
		return err
	}
	return writeData(data, prefix.DataLenBytes(), w)
}

func parseArray(data []byte, maxNumElements int) ([][]byte, error) {
	if len(data) < 2 {
		return nil, ErrUnexpectedEOF
	}
	prefix := lenPrefixType(binary.BigEndian.Uint16(data[:2]))
	if prefix.NumElements() > maxNumElements {
		return nil, fmt.Errorf("lazyslice: number of elements in the prefix %d is larger than maxNumElements %d",
			prefix.NumElements(), maxNumElements)
	}
	return decodeData(data[2:], prefix.DataLenBytes(), prefix.NumElements())
}

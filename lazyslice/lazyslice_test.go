package lazyslice

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

const howMany = 250

var data [][]byte

func init() {
	data = make([][]byte, howMany)
	for i := range data {
		data[i] = make([]byte, 2)
		binary.BigEndian.PutUint16(data[i], uint16(i))
	}
}

func TestArraySemantics(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		ls := ArrayFromBytes(nil)
		require.EqualValues(t, 0, len(ls.Bytes()))
		require.Panics(t, func() {
			ls.NumElements()
		})
	})
	t.Run("empty", func(t *testing.T) {
		ls := EmptyArray()
		require.EqualValues(t, []byte{0, 0}, ls.Bytes())
		require.EqualValues(t, 0, ls.NumElements())
		require.True(t, ls.IsEmpty())
	})
	t.Run("serialize all nil", func(t *testing.T) {
		ls := MakeArray(nil, nil, nil)
		require.EqualValues(t, 3, ls.NumElements())
		lsBin := ls.Bytes()
		require.EqualValues(t, []byte{0, 3}, lsBin)
		lsBack := ArrayFromBytes(lsBin)
		require.EqualValues(t, 3, lsBack.NumElements())
		lsBack.ForEach(func(i int, d []byte) bool {
			require.EqualValues(t, 0, len(d))
			return true
		})
	})
	t.Run("serialize some nil", func(t *testing.T) {
		ls := MakeArray(nil, nil, data[17], nil, []byte("1234567890"))
		require.EqualValues(t, 5, ls.NumElements())
		lsBack := ArrayFromBytes(ls.Bytes())
		require.EqualValues(t, 5, lsBack.NumElements())
		require.EqualValues(t, 0, len(lsBack.At(0)))
		require.EqualValues(t, 0, len(lsBack.At(1)))
		require.EqualValues(t, data[17], lsBack.At(2))
		require.EqualValues(t, 0, len(lsBack.At(3)))
		require.EqualValues(t, []byte("1234567890"), lsBack.At(4))
	})
	t.Run("deserialize rubbish", func(t *testing.T) {
		lsBin := MakeArray(data[17]).Bytes()
		lsBinWrong := append(append([]byte{}, lsBin...), 1, 2, 3)
		lsBack := ArrayFromBytes(lsBinWrong)
		require.Panics(t, func() {
			lsBack.At(0)
		})
		_, err := ParseArray(lsBinWrong, 1)
		require.Error(t, err)
		_, err = ParseArray(lsBin[:len(lsBin)-1], 1)
		require.ErrorIs(t, err, ErrUnexpectedEOF)
	})
	t.Run("parse exact", func(t *testing.T) {
		lsBin := MakeArray(data[1], data[2]).Bytes()
		a, err := ParseArray(lsBin, 2)
		require.NoError(t, err)
		require.EqualValues(t, data[2], a.At(1))

		_, err = ParseArray(lsBin, 3)
		require.Error(t, err)
		_, err = ParseArray(lsBin, 1)
		require.Error(t, err)
	})
	t.Run("push+boundaries", func(t *testing.T) {
		ls := EmptyArray()
		ls.Push(data[17])
		require.EqualValues(t, 1, ls.NumElements())
		lsBack := ArrayFromBytes(ls.Bytes())
		require.EqualValues(t, ls.At(0), lsBack.At(0))
		require.Panics(t, func() {
			ls.At(1)
		})
		require.Panics(t, func() {
			ls := EmptyArray(3)
			for i := 0; i < 4; i++ {
				ls.Push(data[0])
			}
		})
	})
	t.Run("element sizes", func(t *testing.T) {
		for _, sz := range []int{1, 255, 256, 70000} {
			ls := MakeArray(bytes.Repeat(data[3], sz), data[5])
			lsBack := ArrayFromBytes(ls.Bytes())
			require.EqualValues(t, 2, lsBack.NumElements())
			require.EqualValues(t, ls.At(0), lsBack.At(0))
			require.EqualValues(t, data[5], lsBack.At(1))
		}
	})
	t.Run("deterministic", func(t *testing.T) {
		ls1 := EmptyArray()
		ls2 := EmptyArray()
		for i := 0; i < 100; i++ {
			ls1.Push(bytes.Repeat(data[i], 300))
			ls2.Push(bytes.Repeat(data[i], 300))
		}
		require.EqualValues(t, ls1.Bytes(), ls2.Bytes())
	})
}

package wire

import (
	"encoding/binary"
	"math"
)

// EncodeStringList renders a STRING_LIST payload: a uint32 count followed
// by that many length-prefixed UTF-8 strings.
func EncodeStringList(items []string) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(len(items)))
	for _, s := range items {
		lenBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(lenBuf, uint32(len(s)))
		out = append(out, lenBuf...)
		out = append(out, s...)
	}
	return out
}

// DecodeStringList parses a STRING_LIST payload.
func DecodeStringList(b []byte) ([]string, error) {
	if len(b) < 4 {
		return nil, &DecodeError{Reason: "string list missing count"}
	}
	count := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	out := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(b) < 4 {
			return nil, &DecodeError{Reason: "string list element missing length"}
		}
		n := binary.BigEndian.Uint32(b[:4])
		b = b[4:]
		if uint64(len(b)) < uint64(n) {
			return nil, &DecodeError{Reason: "string list element truncated"}
		}
		out = append(out, string(b[:n]))
		b = b[n:]
	}
	return out, nil
}

// EncodeIntegerList renders an INTEGER_LIST payload: a uint32 count
// followed by that many 4-byte big-endian ints.
func EncodeIntegerList(items []int32) []byte {
	out := make([]byte, 4+4*len(items))
	binary.BigEndian.PutUint32(out, uint32(len(items)))
	for i, v := range items {
		binary.BigEndian.PutUint32(out[4+4*i:], uint32(v))
	}
	return out
}

// DecodeIntegerList parses an INTEGER_LIST payload.
func DecodeIntegerList(b []byte) ([]int32, error) {
	if len(b) < 4 {
		return nil, &DecodeError{Reason: "integer list missing count"}
	}
	count := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	if uint64(len(b)) != uint64(count)*4 {
		return nil, &DecodeError{Reason: "integer list length mismatch"}
	}
	out := make([]int32, count)
	for i := range out {
		out[i] = int32(binary.BigEndian.Uint32(b[4*i:]))
	}
	return out, nil
}

// EncodeLongList renders a LONG_LIST payload: a uint32 count followed by
// that many 8-byte big-endian longs.
func EncodeLongList(items []int64) []byte {
	out := make([]byte, 4+8*len(items))
	binary.BigEndian.PutUint32(out, uint32(len(items)))
	for i, v := range items {
		binary.BigEndian.PutUint64(out[4+8*i:], uint64(v))
	}
	return out
}

// DecodeLongList parses a LONG_LIST payload.
func DecodeLongList(b []byte) ([]int64, error) {
	if len(b) < 4 {
		return nil, &DecodeError{Reason: "long list missing count"}
	}
	count := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	if uint64(len(b)) != uint64(count)*8 {
		return nil, &DecodeError{Reason: "long list length mismatch"}
	}
	out := make([]int64, count)
	for i := range out {
		out[i] = int64(binary.BigEndian.Uint64(b[8*i:]))
	}
	return out, nil
}

// EncodeDoubleList renders a DOUBLE_LIST payload.
func EncodeDoubleList(items []float64) []byte {
	longs := make([]int64, len(items))
	for i, f := range items {
		bits, _ := EncodeScalar(TypeDouble, f)
		longs[i] = int64(binary.BigEndian.Uint64(bits))
	}
	return EncodeLongList(longs)
}

// DecodeDoubleList parses a DOUBLE_LIST payload.
func DecodeDoubleList(b []byte) ([]float64, error) {
	longs, err := DecodeLongList(b)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(longs))
	for i, v := range longs {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(v))
		f, err := DecodeDouble(buf)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// EncodeBytesList renders a BYTES_LIST payload: a uint32 count followed
// by that many length-prefixed opaque byte strings.
func EncodeBytesList(items [][]byte) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(len(items)))
	for _, item := range items {
		lenBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(lenBuf, uint32(len(item)))
		out = append(out, lenBuf...)
		out = append(out, item...)
	}
	return out
}

// DecodeBytesList parses a BYTES_LIST payload.
func DecodeBytesList(b []byte) ([][]byte, error) {
	if len(b) < 4 {
		return nil, &DecodeError{Reason: "bytes list missing count"}
	}
	count := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	out := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(b) < 4 {
			return nil, &DecodeError{Reason: "bytes list element missing length"}
		}
		n := binary.BigEndian.Uint32(b[:4])
		b = b[4:]
		if uint64(len(b)) < uint64(n) {
			return nil, &DecodeError{Reason: "bytes list element truncated"}
		}
		item := make([]byte, n)
		copy(item, b[:n])
		out = append(out, item)
		b = b[n:]
	}
	return out, nil
}

// EncodeFloatList renders a FLOAT_LIST payload: a uint32 count followed
// by that many 4-byte big-endian IEEE-754 single-precision floats.
func EncodeFloatList(items []float32) []byte {
	out := make([]byte, 4+4*len(items))
	binary.BigEndian.PutUint32(out, uint32(len(items)))
	for i, v := range items {
		binary.BigEndian.PutUint32(out[4+4*i:], math.Float32bits(v))
	}
	return out
}

// DecodeFloatList parses a FLOAT_LIST payload.
func DecodeFloatList(b []byte) ([]float32, error) {
	if len(b) < 4 {
		return nil, &DecodeError{Reason: "float list missing count"}
	}
	count := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	if uint64(len(b)) != uint64(count)*4 {
		return nil, &DecodeError{Reason: "float list length mismatch"}
	}
	out := make([]float32, count)
	for i := range out {
		out[i] = math.Float32frombits(binary.BigEndian.Uint32(b[4*i:]))
	}
	return out, nil
}

// EncodeBoolList renders a BOOLEAN_LIST payload: a uint32 count followed
// by that many single bytes.
func EncodeBoolList(items []bool) []byte {
	out := make([]byte, 4+len(items))
	binary.BigEndian.PutUint32(out, uint32(len(items)))
	for i, b := range items {
		if b {
			out[4+i] = 1
		}
	}
	return out
}

// DecodeBoolList parses a BOOLEAN_LIST payload.
func DecodeBoolList(b []byte) ([]bool, error) {
	if len(b) < 4 {
		return nil, &DecodeError{Reason: "bool list missing count"}
	}
	count := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	if uint64(len(b)) != uint64(count) {
		return nil, &DecodeError{Reason: "bool list length mismatch"}
	}
	out := make([]bool, count)
	for i := range out {
		out[i] = b[i] != 0
	}
	return out, nil
}

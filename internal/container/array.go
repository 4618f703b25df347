package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// DType is the element type of an array dataset.
type DType uint8

const (
	DTypeInvalid DType = iota
	DTypeBytes
	DTypeInt64
	DTypeFloat64
)

func (d DType) String() string {
	switch d {
	case DTypeBytes:
		return "bytes"
	case DTypeInt64:
		return "int64"
	case DTypeFloat64:
		return "float64"
	}
	return "invalid"
}

func (d DType) size() int {
	switch d {
	case DTypeBytes:
		return 1
	case DTypeInt64, DTypeFloat64:
		return 8
	}
	return 0
}

// Array is a one-dimensional typed dataset. It keeps the little-endian
// encoding it is persisted with, so equality is byte identity.
type Array struct {
	dtype DType
	raw   []byte
}

// BytesArray wraps a verbatim byte capture. The slice is copied.
func BytesArray(b []byte) Array {
	return Array{dtype: DTypeBytes, raw: append([]byte{}, b...)}
}

// Int64Array encodes integer samples.
func Int64Array(v []int64) Array {
	raw := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(raw[8*i:], uint64(x))
	}
	return Array{dtype: DTypeInt64, raw: raw}
}

// Float64Array encodes float samples bit for bit, NaN included.
func Float64Array(v []float64) Array {
	raw := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(x))
	}
	return Array{dtype: DTypeFloat64, raw: raw}
}

func decodeArray(dtype DType, length int64, raw []byte) (Array, error) {
	size := dtype.size()
	if size == 0 {
		return Array{}, fmt.Errorf("unknown array dtype %d", dtype)
	}
	if int64(len(raw)) != length*int64(size) {
		return Array{}, fmt.Errorf("%s array: length %d does not match %d payload bytes", dtype, length, len(raw))
	}
	return Array{dtype: dtype, raw: append([]byte{}, raw...)}, nil
}

func (a Array) DType() DType { return a.dtype }

// Len is the number of elements (the array's shape).
func (a Array) Len() int {
	if a.dtype.size() == 0 {
		return 0
	}
	return len(a.raw) / a.dtype.size()
}

func (a Array) Bytes() ([]byte, bool) {
	if a.dtype != DTypeBytes {
		return nil, false
	}
	return append([]byte{}, a.raw...), true
}

func (a Array) Int64s() ([]int64, bool) {
	if a.dtype != DTypeInt64 {
		return nil, false
	}
	out := make([]int64, a.Len())
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(a.raw[8*i:]))
	}
	return out, true
}

func (a Array) Float64s() ([]float64, bool) {
	if a.dtype != DTypeFloat64 {
		return nil, false
	}
	out := make([]float64, a.Len())
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(a.raw[8*i:]))
	}
	return out, true
}

// Equal compares dtype, shape and element bytes.
func (a Array) Equal(o Array) bool {
	return a.dtype == o.dtype && bytes.Equal(a.raw, o.raw)
}

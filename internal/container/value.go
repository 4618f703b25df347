package container

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind tags the payload held by a Value.
type ValueKind uint8

const (
	KindInvalid ValueKind = iota
	KindFloat
	KindInt
	KindString
	KindBool
	KindFloats
	KindStrings
)

func (k ValueKind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindFloats:
		return "floats"
	case KindStrings:
		return "strings"
	default:
		return "invalid"
	}
}

// Value is an attribute value. Only one payload field is meaningful,
// selected by kind. The zero Value is invalid.
type Value struct {
	kind ValueKind
	f    float64
	i    int64
	s    string
	fs   []float64
	ss   []string
}

// Float returns a float attribute value. NaN is a valid payload; every
// NaN is stored as math.NaN() so bitwise comparison treats them as equal.
func Float(v float64) Value { return Value{kind: KindFloat, f: canonical(v)} }

func canonical(v float64) float64 {
	if math.IsNaN(v) {
		return math.NaN()
	}
	return v
}

func canonicalAll(fs []float64) []float64 {
	for i, f := range fs {
		fs[i] = canonical(f)
	}
	return fs
}

// NaN returns the "unset numeric" sentinel.
func NaN() Value { return Float(math.NaN()) }

// Int returns an integer attribute value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// String returns a string attribute value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Bool returns a boolean attribute value.
func Bool(v bool) Value {
	if v {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

// Floats returns a float list value. The slice is copied.
func Floats(v []float64) Value {
	return Value{kind: KindFloats, fs: canonicalAll(append([]float64{}, v...))}
}

// Strings returns a string list value. The slice is copied.
func Strings(v []string) Value {
	return Value{kind: KindStrings, ss: append([]string{}, v...)}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

func (v Value) AsBool() (bool, bool) { return v.i != 0, v.kind == KindBool }

func (v Value) AsFloats() ([]float64, bool) {
	if v.kind != KindFloats {
		return nil, false
	}
	return append([]float64{}, v.fs...), true
}

func (v Value) AsStrings() ([]string, bool) {
	if v.kind != KindStrings {
		return nil, false
	}
	return append([]string{}, v.ss...), true
}

// Equal reports exact equality. Floats compare by bit pattern after NaN
// canonicalization, so any NaN equals any NaN. Values of different kinds are
// never equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindFloat:
		return math.Float64bits(v.f) == math.Float64bits(o.f)
	case KindInt, KindBool:
		return v.i == o.i
	case KindString:
		return v.s == o.s
	case KindFloats:
		if len(v.fs) != len(o.fs) {
			return false
		}
		for i := range v.fs {
			if math.Float64bits(v.fs[i]) != math.Float64bits(o.fs[i]) {
				return false
			}
		}
		return true
	case KindStrings:
		if len(v.ss) != len(o.ss) {
			return false
		}
		for i := range v.ss {
			if v.ss[i] != o.ss[i] {
				return false
			}
		}
		return true
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.i != 0)
	case KindFloats:
		parts := make([]string, len(v.fs))
		for i, f := range v.fs {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindStrings:
		return "[" + strings.Join(v.ss, ", ") + "]"
	}
	return "<invalid>"
}

// AttrsEqual compares two attribute maps key by key with Value.Equal.
func AttrsEqual(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !av.Equal(bv) {
			return false
		}
	}
	return true
}

// encodeValue maps a Value onto the attrs columns. Floats go through their
// bit pattern because SQLite turns a REAL NaN into NULL.
func encodeValue(v Value) (num *int64, text *string, data []byte, err error) {
	switch v.kind {
	case KindFloat:
		bits := int64(math.Float64bits(v.f))
		return &bits, nil, nil, nil
	case KindInt, KindBool:
		n := v.i
		return &n, nil, nil, nil
	case KindString:
		s := v.s
		return nil, &s, nil, nil
	case KindFloats:
		return nil, nil, Float64Array(v.fs).raw, nil
	case KindStrings:
		b, err := json.Marshal(v.ss)
		if err != nil {
			return nil, nil, nil, err
		}
		return nil, nil, b, nil
	}
	return nil, nil, nil, fmt.Errorf("cannot encode %s value", v.kind)
}

func decodeValue(kind ValueKind, num *int64, text *string, data []byte) (Value, error) {
	switch kind {
	case KindFloat:
		if num == nil {
			return Value{}, fmt.Errorf("float attribute without payload")
		}
		return Float(math.Float64frombits(uint64(*num))), nil
	case KindInt:
		if num == nil {
			return Value{}, fmt.Errorf("int attribute without payload")
		}
		return Int(*num), nil
	case KindBool:
		if num == nil {
			return Value{}, fmt.Errorf("bool attribute without payload")
		}
		return Bool(*num != 0), nil
	case KindString:
		if text == nil {
			return String(""), nil
		}
		return String(*text), nil
	case KindFloats:
		if len(data)%8 != 0 {
			return Value{}, fmt.Errorf("float list payload of %d bytes", len(data))
		}
		fs, _ := Array{dtype: DTypeFloat64, raw: data}.Float64s()
		return Value{kind: KindFloats, fs: canonicalAll(fs)}, nil
	case KindStrings:
		var ss []string
		if len(data) > 0 {
			if err := json.Unmarshal(data, &ss); err != nil {
				return Value{}, err
			}
		}
		return Value{kind: KindStrings, ss: append([]string{}, ss...)}, nil
	}
	return Value{}, fmt.Errorf("unknown attribute kind %d", kind)
}

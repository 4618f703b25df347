package container

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueEqual(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Value
		equal bool
	}{
		{"nan equals nan", NaN(), Float(math.NaN()), true},
		{"any nan bit pattern equals nan", Float(math.Float64frombits(0xFFF8000000000000)), NaN(), true},
		{"nan payloads in float lists", Floats([]float64{math.Float64frombits(0x7FF8000000000001)}), Floats([]float64{math.NaN()}), true},
		{"float vs same float", Float(1.5), Float(1.5), true},
		{"positive vs negative zero", Float(0), Float(math.Copysign(0, -1)), false},
		{"int vs float never equal", Int(2), Float(2), false},
		{"strings", String("quartz"), String("quartz"), true},
		{"empty string vs missing kind", String(""), Value{}, false},
		{"bool", Bool(true), Bool(true), true},
		{"bool differs", Bool(true), Bool(false), false},
		{"float lists with nan", Floats([]float64{1, math.NaN()}), Floats([]float64{1, math.NaN()}), true},
		{"float lists differ in length", Floats([]float64{1}), Floats([]float64{1, 2}), false},
		{"empty string lists", Strings(nil), Strings([]string{}), true},
		{"string lists differ", Strings([]string{"a"}), Strings([]string{"b"}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.a.Equal(tt.b))
			assert.Equal(t, tt.equal, tt.b.Equal(tt.a))
		})
	}
}

func TestValueAccessorsCopy(t *testing.T) {
	src := []float64{1, 2}
	v := Floats(src)
	src[0] = 99

	got, ok := v.AsFloats()
	assert.True(t, ok)
	assert.Equal(t, []float64{1, 2}, got)

	got[1] = 42
	again, _ := v.AsFloats()
	assert.Equal(t, []float64{1, 2}, again)

	_, ok = v.AsStrings()
	assert.False(t, ok)
}

func TestValueEncodeRoundTrip(t *testing.T) {
	values := []Value{
		NaN(),
		Float(-3.25),
		Int(-7),
		String("NaCl"),
		Bool(true),
		Floats([]float64{0.5, math.NaN(), math.Inf(1)}),
		Strings([]string{"quartz", "diamond"}),
		Floats(nil),
	}
	for _, v := range values {
		t.Run(v.Kind().String(), func(t *testing.T) {
			num, text, data, err := encodeValue(v)
			assert.NoError(t, err)
			back, err := decodeValue(v.Kind(), num, text, data)
			assert.NoError(t, err)
			assert.True(t, v.Equal(back), "%v != %v", v, back)
		})
	}

	_, _, _, err := encodeValue(Value{})
	assert.Error(t, err)
}

func TestDecodeCanonicalizesNaN(t *testing.T) {
	bits := int64(0x7FF8000000000001)
	v, err := decodeValue(KindFloat, &bits, nil, nil)
	assert.NoError(t, err)
	f, _ := v.AsFloat()
	assert.Equal(t, math.Float64bits(math.NaN()), math.Float64bits(f))
}

func TestAttrsEqual(t *testing.T) {
	a := map[string]Value{"pressure": NaN(), "crystal": String("")}
	b := map[string]Value{"pressure": NaN(), "crystal": String("")}
	assert.True(t, AttrsEqual(a, b))

	b["crystal"] = String("quartz")
	assert.False(t, AttrsEqual(a, b))

	delete(b, "crystal")
	assert.False(t, AttrsEqual(a, b))
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "NaN", NaN().String())
	assert.Equal(t, "[1, 2.5]", Floats([]float64{1, 2.5}).String())
	assert.Equal(t, "[a, b]", Strings([]string{"a", "b"}).String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "<invalid>", Value{}.String())
}

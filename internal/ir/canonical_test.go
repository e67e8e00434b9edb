package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"null", Null{}, `null`},
		{"nil", nil, `null`},
		{"string", String("hello"), `"hello"`},
		{"int", Int(-42), `-42`},
		{"float keeps fraction", Float(3), `3.0`},
		{"float", Float(0.85), `0.85`},
		{"bool", Bool(true), `true`},
		{"list", List{Int(1), String("a"), Bool(false)}, `[1,"a",false]`},
		{"sorted keys", Obj(O("b", Int(2)), O("a", Int(1))), `{"a":1,"b":2}`},
		{"no html escape", String("<a&b>"), `"<a&b>"`},
		{"go map", map[string]any{"z": 1, "y": []any{"x"}}, `{"y":["x"],"z":1}`},
		{"line separator literal", String("a\u2028b"), "\"a\u2028b\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonical_NFC(t *testing.T) {
	// "é" as e + combining acute normalizes to the precomposed form.
	decomposed := String("e\u0301")
	got, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonical_EscapedBackslashKeepsSequence(t *testing.T) {
	got, err := MarshalCanonical(String(`\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(got))
}

func TestMarshalCanonical_RejectsNonFinite(t *testing.T) {
	_, err := MarshalCanonical(List{Float(1), Float(posInf())})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list[1]")
}

func TestMarshalCanonical_UnsupportedType(t *testing.T) {
	_, err := MarshalCanonical(struct{}{})
	require.Error(t, err)
}

func TestMarshalCanonical_Deterministic(t *testing.T) {
	obj := Obj(
		O("label_ids", Ints(3, 1, 2)),
		O("window", Obj(O("low", Int(0)), O("high", Null{}))),
		O("direction", String("out")),
	)
	first, err := MarshalCanonical(obj)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := MarshalCanonical(obj.Clone())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

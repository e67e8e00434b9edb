package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func posInf() float64 { return math.Inf(1) }

func TestSortedKeys_UTF16Order(t *testing.T) {
	// UTF-8 byte order puts U+FF61 first; UTF-16 puts the emoji's high
	// surrogate 0xD83D first.
	obj := Obj(O("\uff61", Int(1)), O("\U0001F600", Int(2)), O("a", Int(3)))
	assert.Equal(t, []string{"a", "\U0001F600", "\uff61"}, obj.SortedKeys())
}

func TestUnmarshalValue_NumberKinds(t *testing.T) {
	v, err := UnmarshalValue([]byte(`{"i":7,"f":7.5,"e":1e3,"n":null,"l":[true,"x"]}`))
	require.NoError(t, err)

	obj, ok := v.(Object)
	require.True(t, ok)
	assert.Equal(t, Int(7), obj["i"])
	assert.Equal(t, Float(7.5), obj["f"])
	assert.Equal(t, Float(1000), obj["e"])
	assert.Equal(t, Null{}, obj["n"])
	assert.Equal(t, List{Bool(true), String("x")}, obj["l"])
}

func TestMarshalValue_RoundTripKeepsFloat(t *testing.T) {
	b, err := MarshalValue(Float(2))
	require.NoError(t, err)
	back, err := UnmarshalValue(b)
	require.NoError(t, err)
	assert.Equal(t, Float(2), back)
}

func TestObject_UnmarshalJSONRejectsNonObject(t *testing.T) {
	var obj Object
	err := obj.UnmarshalJSON([]byte(`[1,2]`))
	require.Error(t, err)
}

func TestCloneValue_IsDeep(t *testing.T) {
	orig := Obj(O("ids", Ints(1, 2)), O("nested", Obj(O("k", String("v")))))
	cp := orig.Clone()

	cp["ids"].(List)[0] = Int(99)
	cp["nested"].(Object)["k"] = String("changed")

	assert.Equal(t, Int(1), orig["ids"].(List)[0])
	assert.Equal(t, String("v"), orig["nested"].(Object)["k"])
}

func TestFromGo(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    Value
		wantErr bool
	}{
		{"int", 5, Int(5), false},
		{"uint64 overflow", uint64(math.MaxUint64), nil, true},
		{"float32", float32(0.5), Float(0.5), false},
		{"passthrough", String("s"), String("s"), false},
		{"nested", map[string]any{"a": []any{1, nil}}, Obj(O("a", List{Int(1), Null{}})), false},
		{"channel", make(chan int), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntsAndStrings(t *testing.T) {
	assert.Equal(t, List{Int(-10), Int(-11)}, Ints(int32(-10), int32(-11)))
	assert.Equal(t, List{String("a"), String("b")}, Strings("a", "b"))
}

package values

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceEquality(t *testing.T) {
	assert.True(t, NumberValue(1).Is(NumberValue(1)))
	assert.True(t, NaN.Is(NaN), "NaN is NaN in reference mode")
	assert.False(t, NumberValue(1).Is(NumberValue(2)))
	assert.True(t, NumberValue(0).Is(NumberValue(math.Copysign(0, -1))), "+0 is -0")
	assert.True(t, Null.Is(Null))
	assert.True(t, Undefined.Is(Undefined))
	assert.False(t, Null.Is(Undefined))

	arr := NewArray(NumberValue(1))
	other := NewArray(NumberValue(1))
	assert.True(t, arr.Is(arr), "same container compares equal")
	assert.False(t, arr.Is(other), "distinct containers compare unequal")
}

func TestStrictEquality(t *testing.T) {
	assert.False(t, NaN.StrictEquals(NaN), "NaN !== NaN")
	assert.True(t, NewString("a").StrictEquals(NewString("a")))
	assert.False(t, NumberValue(1).StrictEquals(NewString("1")))
	assert.True(t, True.StrictEquals(BooleanValue(true)))
}

func TestLooseEquality(t *testing.T) {
	assert.True(t, Null.LooseEquals(Undefined))
	assert.True(t, NumberValue(1).LooseEquals(NewString("1")))
	assert.True(t, True.LooseEquals(NumberValue(1)))
	assert.True(t, False.LooseEquals(NewString("0")))
	assert.False(t, NumberValue(1).LooseEquals(NewString("one")))
	assert.False(t, Null.LooseEquals(NumberValue(0)))
}

func TestDeepEquality(t *testing.T) {
	a := NewArray(NumberValue(1), NewString("x"), NaN)
	b := NewArray(NumberValue(1), NewString("x"), NaN)
	assert.True(t, a.DeepEquals(b), "structurally equal arrays, NaN included")

	oa := NewObject()
	oa.AsObject().Set("k", a)
	ob := NewObject()
	ob.AsObject().Set("k", b)
	assert.True(t, oa.DeepEquals(ob))

	ob.AsObject().Set("extra", Null)
	assert.False(t, oa.DeepEquals(ob), "extra key breaks equality")
}

func TestDeepCopyIndependence(t *testing.T) {
	inner := NewObject()
	inner.AsObject().Set("n", NumberValue(1))
	original := NewArray(inner)

	clone := original.Copy()
	require.True(t, clone.DeepEquals(original))
	require.False(t, clone.Is(original))

	clone.AsArray().Get(0).AsObject().Set("n", NumberValue(2))
	got, _ := inner.AsObject().Get("n")
	assert.True(t, got.Is(NumberValue(1)), "mutating the clone leaves the original alone")
}

func TestShallowCopySharesElements(t *testing.T) {
	inner := NewObject()
	original := NewArray(inner)
	clone := original.ShallowCopy()
	require.False(t, clone.Is(original))
	assert.True(t, clone.AsArray().Get(0).Is(inner), "elements are shared")
}

func TestTruthiness(t *testing.T) {
	falsey := []Value{Undefined, Null, False, NumberValue(0), NaN, NewString("")}
	for _, v := range falsey {
		assert.True(t, v.IsFalsey(), "%s should be falsey", v.Inspect())
	}
	truthy := []Value{True, NumberValue(-1), NewString("0"), NewArray(), NewObject()}
	for _, v := range truthy {
		assert.True(t, v.IsTruthy(), "%s should be truthy", v.Inspect())
	}
}

func TestCoercions(t *testing.T) {
	assert.Equal(t, float64(0), Null.ToNumber())
	assert.True(t, math.IsNaN(Undefined.ToNumber()))
	assert.Equal(t, float64(42), NewString(" 42 ").ToNumber())
	assert.True(t, math.IsNaN(NewString("forty").ToNumber()))
	assert.Equal(t, "1,2", NewArray(NumberValue(1), NumberValue(2)).ToString())
	assert.Equal(t, "42", NumberValue(42).ToString())
	assert.Equal(t, "NaN", NaN.ToString())
}

func TestWrapExportRoundTrip(t *testing.T) {
	native := map[string]any{
		"name":  "fox",
		"count": 3.0,
		"tags":  []any{"quick", "brown"},
		"flag":  true,
		"none":  nil,
	}
	wrapped := Wrap(native)
	require.True(t, wrapped.IsObject())

	exported := wrapped.Export()
	if diff := cmp.Diff(native, exported); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderedObjectIteration(t *testing.T) {
	obj := NewObject().AsObject()
	obj.Set("b", NumberValue(1))
	obj.Set("a", NumberValue(2))
	obj.Set("c", NumberValue(3))
	obj.Delete("a")
	obj.Set("a", NumberValue(4))
	assert.Equal(t, []string{"b", "c", "a"}, obj.Keys(), "insertion order survives delete+reinsert")
}

func TestArrayGrowth(t *testing.T) {
	arr := NewArray().AsArray()
	arr.Set(2, NumberValue(9))
	require.Equal(t, 3, arr.Len())
	assert.True(t, arr.Get(0).Is(Undefined))
	assert.True(t, arr.Get(2).Is(NumberValue(9)))
	arr.SetLength(1)
	assert.Equal(t, 1, arr.Len())
	assert.True(t, arr.Get(2).Is(Undefined), "out of range reads as undefined")
}

func TestInspect(t *testing.T) {
	obj := NewObject()
	obj.AsObject().Set("a", NewArray(NumberValue(1), NewString("two")))
	assert.Equal(t, `{a: [1, "two"]}`, obj.Inspect())
	assert.Equal(t, "undefined", Undefined.Inspect())
}

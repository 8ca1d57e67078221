package pymarshal

import (
	"math/big"
	"testing"
)

func TestDictPythonEquality(t *testing.T) {
	d := NewDict()
	d.Set(NewLong(1), Str{Value: "abc"})

	// int(1), float(1.0) and True address the same entry
	for _, key := range []Object{
		NewLong(1),
		Long{Value: big.NewInt(1), Kind: KindLong},
		Float{Value: 1.0},
		Bool(true),
	} {
		v, ok := d.Get_(key)
		if !ok {
			t.Fatalf("Get(%v): entry not found", key)
		}
		if s, _ := v.(Str); s.Value != "abc" {
			t.Errorf("Get(%v) = %v", key, v)
		}
	}

	// but not float(1.5) or the string "1"
	for _, key := range []Object{
		Float{Value: 1.5},
		Str{Value: "1"},
	} {
		if _, ok := d.Get_(key); ok {
			t.Errorf("Get(%v): unexpected hit", key)
		}
	}
}

func TestDictStrKeys(t *testing.T) {
	d := NewDict()
	d.Set(Str{Value: "k", Kind: KindShortASCII}, NewLong(1))

	// the wire form of the key does not matter
	if v := d.Get(Str{Value: "k", Kind: KindUnicode}); v == nil {
		t.Errorf("interning/form distinction leaked into key equality")
	}
	// bytes and str with the same content stay distinct
	if _, ok := d.Get_(Bytes("k")); ok {
		t.Errorf("Bytes key matched a Str entry")
	}
}

func TestDictTupleKeys(t *testing.T) {
	d := NewDict()
	k1 := Tuple{Items: []Object{NewLong(1), Str{Value: "a"}}}
	d.Set(k1, Bool(true))

	k2 := Tuple{Items: []Object{Float{Value: 1.0}, Str{Value: "a", Kind: KindUnicode}}, Kind: KindTuple}
	v, ok := d.Get_(k2)
	if !ok || v != Object(Bool(true)) {
		t.Errorf("tuple key with equal elements not found (ok=%v v=%v)", ok, v)
	}
}

func TestDictOrderAndOverwrite(t *testing.T) {
	d := NewDict()
	d.Set(Str{Value: "a"}, NewLong(1))
	d.Set(Str{Value: "b"}, NewLong(2))
	d.Set(Float{Value: 0}, NewLong(3))

	// overwriting via an equal key keeps position and original key
	d.Set(Str{Value: "a", Kind: KindUnicode}, NewLong(10))

	items := d.Items()
	if len(items) != 3 {
		t.Fatalf("Len = %d, want 3", len(items))
	}
	if k, _ := items[0].Key.(Str); k.Value != "a" || k.Kind != 0 {
		t.Errorf("items[0].Key = %#v, want original 'a'", items[0].Key)
	}
	if v := items[0].Value.(Long); v.Value.Int64() != 10 {
		t.Errorf("items[0].Value = %v, want 10", items[0].Value)
	}
	if k, _ := items[2].Key.(Float); k.Value != 0 {
		t.Errorf("items[2].Key = %#v, want 0.0", items[2].Key)
	}
}

func TestDictDel(t *testing.T) {
	d := NewDictWithData(
		Str{Value: "a"}, NewLong(1),
		Str{Value: "b"}, NewLong(2),
		Str{Value: "c"}, NewLong(3))

	d.Del(Str{Value: "b", Kind: KindUnicode})
	if d.Len() != 2 {
		t.Fatalf("Len = %d after Del, want 2", d.Len())
	}
	if _, ok := d.Get_(Str{Value: "b"}); ok {
		t.Errorf("deleted key still present")
	}
	// surviving entries keep order and stay reachable
	if v := d.Get(Str{Value: "c"}); v == nil {
		t.Errorf("entry after the deleted one lost")
	}
	if k, _ := d.Items()[1].Key.(Str); k.Value != "c" {
		t.Errorf("Items()[1].Key = %#v, want 'c'", d.Items()[1].Key)
	}
}

func TestDictUnhashableKeyPanics(t *testing.T) {
	d := NewDict()
	defer func() {
		if recover() == nil {
			t.Errorf("Set with list key did not panic")
		}
	}()
	d.Set(List{NewLong(1)}, None{})
}

func TestDictZeroValue(t *testing.T) {
	var d Dict
	if d.Len() != 0 {
		t.Errorf("zero Dict Len = %d", d.Len())
	}
	if _, ok := d.Get_(Str{Value: "x"}); ok {
		t.Errorf("zero Dict Get_ hit")
	}
}

func TestFrozenSetEquality(t *testing.T) {
	a := FrozenSet{NewLong(1), Str{Value: "x"}}
	b := FrozenSet{Str{Value: "x", Kind: KindUnicode}, Float{Value: 1.0}}

	// frozensets compare as unordered sets and are usable as keys
	d := NewDict()
	d.Set(a, Bool(true))
	if _, ok := d.Get_(b); !ok {
		t.Errorf("equal frozenset in different order not found as key")
	}
	if !a.Has(Float{Value: 1.0}) {
		t.Errorf("Has(1.0) = false, want true")
	}
	if a.Has(NewLong(7)) {
		t.Errorf("Has(7) = true, want false")
	}
}

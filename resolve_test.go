package pymarshal

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestUsedRefs(t *testing.T) {
	// (@0='x', @0, @0, @1=5)  -- @0 loaded twice, @1 never
	obj := Tuple{Items: []Object{
		StoreRef{Index: 0, Value: Str{Value: "x", Kind: KindShortASCII}},
		Ref{Index: 0},
		Ref{Index: 0},
		StoreRef{Index: 1, Value: Long{Value: bigInt("5"), Kind: KindInt}},
	}, Kind: KindSmallTuple}

	used := UsedRefs(obj)
	if used[0] != 2 {
		t.Errorf("used[0] = %d, want 2", used[0])
	}
	if _, ok := used[1]; ok {
		t.Errorf("index 1 counted despite never being loaded")
	}
}

func TestOptimizeRefsDropsUnused(t *testing.T) {
	// every interned string gets stored on the wire, most are never
	// loaded again; optimizing away their table entries shrinks the
	// stream without changing its meaning
	data := ")\x03\xfa\x01a\xfa\x01br\x01\x00\x00\x00"
	obj, refs, err := Decode([]byte(data), v311)
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 {
		t.Fatalf("refs = %d, want 2", len(refs))
	}

	oobj, orefs, err := OptimizeRefs(obj, refs)
	if err != nil {
		t.Fatal(err)
	}
	if len(orefs) != 1 {
		t.Fatalf("optimized refs = %d, want 1", len(orefs))
	}

	out, err := Encode(oobj, orefs, v311)
	if err != nil {
		t.Fatal(err)
	}
	want := ")\x03z\x01a\xfa\x01br\x00\x00\x00\x00"
	if !bytes.Equal(out, []byte(want)) {
		t.Errorf("optimized stream:\nwant % x\ngot  % x", want, out)
	}
}

func TestOptimizeRefsKeepsCycle(t *testing.T) {
	obj := StoreRef{Index: 0, Value: List{Ref{Index: 0}, StoreRef{Index: 1, Value: None{}}}}
	refs := Refs{List{Ref{Index: 0}}, None{}}

	oobj, orefs, err := OptimizeRefs(obj, refs)
	if err != nil {
		t.Fatal(err)
	}
	// the self-store survives, the unused store of None does not
	want := StoreRef{Index: 0, Value: List{Ref{Index: 0}, None{}}}
	if diff := cmp.Diff(Object(want), oobj, cmpOpts()...); diff != "" {
		t.Errorf("object mismatch (-want +got):\n%s", diff)
	}
	if len(orefs) != 1 {
		t.Errorf("optimized refs = %d, want 1", len(orefs))
	}
}

func TestOptimizeRefsDangling(t *testing.T) {
	obj := List{Ref{Index: 3}}
	if _, _, err := OptimizeRefs(obj, nil); err == nil {
		t.Errorf("dangling ref optimized without error")
	}
}

func TestResolveRefsInlines(t *testing.T) {
	data := ")\x02\xfa\x01xr\x00\x00\x00\x00"
	obj, refs, err := Decode([]byte(data), v311)
	if err != nil {
		t.Fatal(err)
	}

	resolved, rrefs, err := ResolveRefs(obj, refs)
	if err != nil {
		t.Fatal(err)
	}
	want := Tuple{Items: []Object{
		Str{Value: "x", Kind: KindShortASCII},
		Str{Value: "x", Kind: KindShortASCII},
	}, Kind: KindSmallTuple}
	if diff := cmp.Diff(Object(want), resolved, cmpOpts()...); diff != "" {
		t.Errorf("resolved mismatch (-want +got):\n%s", diff)
	}
	if len(rrefs) != 0 {
		t.Errorf("acyclic input left %d table entries", len(rrefs))
	}
}

func TestResolveRefsKeepsCycle(t *testing.T) {
	// (@0='x', @1=[@1, @0], @0)  -- the list is cyclic, the string is not
	data := ")\x03\xfa\x01x\xdb\x02\x00\x00\x00r\x01\x00\x00\x00r\x00\x00\x00\x00r\x00\x00\x00\x00"
	obj, refs, err := Decode([]byte(data), v311)
	if err != nil {
		t.Fatal(err)
	}

	resolved, rrefs, err := ResolveRefs(obj, refs)
	if err != nil {
		t.Fatal(err)
	}
	x := Str{Value: "x", Kind: KindShortASCII}
	want := Tuple{Items: []Object{
		x,
		StoreRef{Index: 0, Value: List{Ref{Index: 0}, x}},
		x,
	}, Kind: KindSmallTuple}
	if diff := cmp.Diff(Object(want), resolved, cmpOpts()...); diff != "" {
		t.Errorf("resolved mismatch (-want +got):\n%s", diff)
	}
	if len(rrefs) != 1 {
		t.Errorf("resolved refs = %d, want 1 surviving cyclic store", len(rrefs))
	}
}

func TestResolveRefsDictKey(t *testing.T) {
	// {@0='k': @0} resolves to {'k': 'k'}
	d := NewDict()
	d.Set(StoreRef{Index: 0, Value: Str{Value: "k", Kind: KindShortASCII}}, Ref{Index: 0})
	refs := Refs{Str{Value: "k", Kind: KindShortASCII}}

	resolved, _, err := ResolveRefs(d, refs)
	if err != nil {
		t.Fatal(err)
	}
	rd, ok := resolved.(Dict)
	if !ok || rd.Len() != 1 {
		t.Fatalf("resolved = %v", resolved)
	}
	v := rd.Get(Str{Value: "k"})
	if s, _ := v.(Str); s.Value != "k" {
		t.Errorf("resolved dict value = %v", v)
	}
}

func TestResolveRefsTableCycle(t *testing.T) {
	// the cycle lives in the table, not in the object: @0 is only
	// reachable through refs, so its store cannot be renumbered
	obj := List{Ref{Index: 0}}
	refs := Refs{List{Ref{Index: 0}}}
	if _, _, err := ResolveRefs(obj, refs); !errors.Is(err, ErrCyclicRef) {
		t.Errorf("got %v, want ErrCyclicRef", err)
	}
}

func TestResolveRefsDangling(t *testing.T) {
	_, _, err := ResolveRefs(List{Ref{Index: 5}}, nil)
	var re *RefError
	if !errors.As(err, &re) || re.Index != 5 {
		t.Errorf("got %v, want RefError for index 5", err)
	}
}

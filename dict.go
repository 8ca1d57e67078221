package pymarshal

// Python-like Dict that matches keys by Python equality and preserves
// insertion order.
//
// For example Dict.Get will find the same entry for the keys Long(1),
// Float(1.0) and Bool(true), like a Python dict would.

import (
	"encoding/binary"
	"fmt"
	"hash/maphash"
	"math"
	"math/big"
	"strings"

	"github.com/aristanetworks/gomap"
)

// DictItem is one key/value entry of a Dict.
type DictItem struct {
	Key, Value Object
}

// Dict represents dict from Python.
//
// It mirrors Python with respect to which objects may be used as keys
// and with respect to key equality: Tuple keys are allowed, Long(1),
// Float(1.0) and Bool(true) all address the same entry, and Bytes and
// Str never compare equal even with identical content. Entries keep
// the order they were inserted in, which is also the order they sit
// in the marshal stream.
//
// Note: similarly to builtin map Dict is a pointer-like type: its
// zero value represents a nil dictionary that is empty and invalid to
// Set on.
type Dict struct {
	s *dictState
}

type dictState struct {
	items []DictItem
	index *gomap.Map[Object, int] // key -> position in items
}

// NewDict returns a new empty dictionary.
func NewDict() Dict {
	return NewDictWithSizeHint(0)
}

// NewDictWithSizeHint returns a new empty dictionary with preallocated
// space for size items.
func NewDictWithSizeHint(size int) Dict {
	return Dict{s: &dictState{
		items: make([]DictItem, 0, size),
		index: gomap.NewHint[Object, int](size, equalObject, hashObject),
	}}
}

// NewDictWithData returns a new dictionary with preset data.
//
// kv should be key₁, value₁, key₂, value₂, ...
func NewDictWithData(kv ...Object) Dict {
	l := len(kv)
	if l%2 != 0 {
		panic("odd number of arguments")
	}
	l /= 2
	d := NewDictWithSizeHint(l)
	for i := 0; i < l; i++ {
		d.Set(kv[2*i], kv[2*i+1])
	}
	return d
}

// Get returns the value associated with an equal key.
//
// nil is returned if no matching key is present in the dictionary.
//
// Get panics if key is not allowed to be used as a Dict key.
func (d Dict) Get(key Object) Object {
	value, _ := d.Get_(key)
	return value
}

// Get_ is the comma-ok version of Get.
func (d Dict) Get_(key Object) (value Object, ok bool) {
	if d.s == nil {
		return nil, false
	}
	pos, ok := d.s.index.Get(key)
	if !ok {
		return nil, false
	}
	return d.s.items[pos].Value, true
}

// Set associates key with value.
//
// When an equal key is already present its value is replaced in place,
// keeping the original key and its position, like Python does.
//
// Set panics if key is not allowed to be used as a Dict key.
func (d Dict) Set(key, value Object) {
	if pos, ok := d.s.index.Get(key); ok {
		d.s.items[pos].Value = value
		return
	}
	d.s.items = append(d.s.items, DictItem{Key: key, Value: value})
	d.s.index.Set(key, len(d.s.items)-1)
}

// Del removes the entry with an equal key, if present.
//
// Del panics if key is not allowed to be used as a Dict key.
func (d Dict) Del(key Object) {
	if d.s == nil {
		return
	}
	pos, ok := d.s.index.Get(key)
	if !ok {
		return
	}
	d.s.items = append(d.s.items[:pos], d.s.items[pos+1:]...)
	// positions after the removed entry shifted down by one
	d.s.index.Delete(key)
	for i := pos; i < len(d.s.items); i++ {
		d.s.index.Set(d.s.items[i].Key, i)
	}
}

// Len returns the number of items in the dictionary.
func (d Dict) Len() int {
	if d.s == nil {
		return 0
	}
	return len(d.s.items)
}

// Items returns the entries in insertion order.
//
// The returned slice is owned by the dictionary and must not be
// mutated by the caller.
func (d Dict) Items() []DictItem {
	if d.s == nil {
		return nil
	}
	return d.s.items
}

// String returns a human-readable representation of the dictionary.
func (d Dict) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, kv := range d.Items() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v: %v", kv.Key, kv.Value)
	}
	b.WriteByte('}')
	return b.String()
}

// ---- equal ----

// equalObject implements equality matching what Python would return
// for a == b, restricted to the Object union.
//
// Equality properties:
//
//  1. self equal:  equalObject(a,a) = true
//  2. symmetric:   equalObject(a,b) = equalObject(b,a)
//  3. transitive:  equalObject(a,b) ∧ equalObject(b,c) ⇒ equalObject(a,c)
//
// Numbers compare across Bool, Long, Float and Complex. Str compares
// by content regardless of which wire form carried it, and likewise
// Tuple. A StoreRef is transparent and compares as its Value; a Ref
// compares only to a Ref with the same table index.
func equalObject(xa, xb Object) bool {
	if sr, ok := xa.(StoreRef); ok {
		xa = sr.Value
	}
	if sr, ok := xb.(StoreRef); ok {
		xb = sr.Value
	}

	switch a := xa.(type) {
	case None:
		_, ok := xb.(None)
		return ok
	case StopIteration:
		_, ok := xb.(StopIteration)
		return ok
	case Ellipsis:
		_, ok := xb.(Ellipsis)
		return ok

	case Bool, Long, Float, Complex:
		return eqNumber(xa, xb)

	case Str:
		b, ok := xb.(Str)
		return ok && a.Value == b.Value

	case Bytes:
		b, ok := xb.(Bytes)
		return ok && a == b

	case Tuple:
		b, ok := xb.(Tuple)
		return ok && eqItems(a.Items, b.Items)

	case List:
		b, ok := xb.(List)
		return ok && eqItems(a, b)

	case Set:
		b, ok := xb.(Set)
		return ok && eqSetwise(a, b)

	case FrozenSet:
		b, ok := xb.(FrozenSet)
		return ok && eqSetwise(a, b)

	case Dict:
		b, ok := xb.(Dict)
		return ok && eqDict(a, b)

	case Ref:
		b, ok := xb.(Ref)
		return ok && a.Index == b.Index

	case *Code310:
		return xa == xb
	case *Code311:
		return xa == xb
	}

	return xa == xb
}

func eqItems(a, b []Object) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalObject(a[i], b[i]) {
			return false
		}
	}
	return true
}

// eqSetwise compares two element slices as unordered sets, like
// Python set equality. Elements are assumed distinct within each side.
func eqSetwise(a, b []Object) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		if !containsObject(b, x) {
			return false
		}
	}
	return true
}

func containsObject(items []Object, x Object) bool {
	for _, item := range items {
		if equalObject(item, x) {
			return true
		}
	}
	return false
}

func eqDict(a, b Dict) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, kv := range a.Items() {
		vb, ok := b.Get_(kv.Key)
		if !ok || !equalObject(kv.Value, vb) {
			return false
		}
	}
	return true
}

// eqNumber compares two objects of which at least one is numeric.
// Bool counts as 0 or 1, matching Python:
//
//	>>> {1: 'abc'}[True]
//	'abc'
func eqNumber(xa, xb Object) bool {
	ai, af, ok := numParts(xa)
	if !ok {
		return false
	}
	bi, bf, ok := numParts(xb)
	if !ok {
		return false
	}

	switch {
	case ai != nil && bi != nil:
		return ai.Cmp(bi) == 0
	case ai != nil:
		return eqIntFloat(ai, bf)
	case bi != nil:
		return eqIntFloat(bi, af)
	default:
		return af == bf
	}
}

// numParts splits a numeric object into either an exact integer or a
// float64. A Complex with a nonzero imaginary part never equals an
// integer or a float, so it fails the split.
func numParts(x Object) (i *big.Int, f float64, ok bool) {
	switch v := x.(type) {
	case Bool:
		if v {
			return big.NewInt(1), 0, true
		}
		return big.NewInt(0), 0, true
	case Long:
		return v.Value, 0, true
	case Float:
		return nil, v.Value, true
	case Complex:
		if v.Im == 0 {
			return nil, v.Re, true
		}
	}
	return nil, 0, false
}

func eqIntFloat(i *big.Int, f float64) bool {
	// big.Float represents both sides without rounding
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return false
	}
	return new(big.Float).SetInt(i).Cmp(big.NewFloat(f)) == 0
}

// ---- hash ----

// hashObject returns a hash of x consistent with equalObject:
//
//	equalObject(a,b)  ⇒  hashObject(seed,a) = hashObject(seed,b)
//
// It panics with "unhashable type: ..." if x is not allowed to be
// used as a Dict key.
func hashObject(seed maphash.Seed, x Object) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)

	hashUint := func(u uint64) {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], u)
		h.Write(b[:])
	}

	hashBig := func(i *big.Int) {
		hashUint(uint64(i.Sign() + 1))
		h.Write(i.Bytes())
	}

	// an integral float must hash like the equal integer
	hashFloat := func(f float64) {
		if math.IsInf(f, 0) || math.IsNaN(f) {
			hashUint(math.Float64bits(f))
			return
		}
		if bi, acc := big.NewFloat(f).Int(nil); acc == big.Exact {
			hashBig(bi)
		} else {
			hashUint(math.Float64bits(f))
		}
	}

	switch v := x.(type) {
	case None:
		h.WriteString("None")
	case StopIteration:
		h.WriteString("StopIteration")
	case Ellipsis:
		h.WriteString("Ellipsis")

	case Bool:
		if v {
			hashBig(big.NewInt(1))
		} else {
			hashBig(big.NewInt(0))
		}
	case Long:
		hashBig(v.Value)
	case Float:
		hashFloat(v.Value)
	case Complex:
		hashFloat(v.Re)
		if v.Im != 0 {
			hashFloat(v.Im)
		}

	case Str:
		h.WriteString("str")
		h.WriteString(v.Value)
	case Bytes:
		h.WriteString("bytes")
		h.WriteString(string(v))

	case Tuple:
		h.WriteString("tuple")
		for _, item := range v.Items {
			hashUint(hashObject(seed, item))
		}

	case FrozenSet:
		// order-independent combination, set equality is unordered
		h.WriteString("frozenset")
		var sum uint64
		for _, item := range v {
			sum += hashObject(seed, item)
		}
		hashUint(sum)

	case Ref:
		h.WriteString("ref")
		hashUint(uint64(v.Index))

	case StoreRef:
		return hashObject(seed, v.Value)

	default:
		panic(fmt.Sprintf("unhashable type: %T", x))
	}

	return h.Sum64()
}

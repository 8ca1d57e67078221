package pymarshal

import (
	"math"
	"math/big"
)

// Object is one marshalled Python value.
//
// It is a closed union: the only implementations are the types in this
// package. The graph an Object spans is always a tree — sharing and
// cycles in the source stream are expressed with StoreRef/Ref markers
// rather than aliased pointers, so walking an Object terminates.
type Object interface {
	isObject()
}

// None is a representation of Python's None.
type None struct{}

// StopIteration is a representation of Python's StopIteration.
type StopIteration struct{}

// Ellipsis is a representation of Python's Ellipsis.
type Ellipsis struct{}

// Bool is a representation of Python's bool.
type Bool bool

// Long is a representation of a Python int of any magnitude.
//
// Kind records the wire form the value was read with (KindInt,
// KindInt64 or KindLong) so that re-encoding replays the same tag. The
// zero Kind selects the canonical form: KindInt when the value fits in
// 32 bits, KindLong otherwise.
type Long struct {
	Value *big.Int
	Kind  Kind
}

// NewLong returns a canonical-form Long for v.
func NewLong(v int64) Long {
	return Long{Value: big.NewInt(v)}
}

// Float is a representation of Python's float.
//
// Kind records whether the value was read in binary (KindBinaryFloat)
// or text (KindFloat) form. Text floats additionally retain the source
// digits in Text, because the float64 alone cannot reproduce every
// legal spelling (e.g. "1.50") byte for byte. The zero Kind selects
// the binary form.
type Float struct {
	Value float64
	Kind  Kind
	Text  string
}

// Complex is a representation of Python's complex, real part first.
// Form handling follows Float, with one Kind covering both parts.
type Complex struct {
	Re, Im         float64
	Kind           Kind
	ReText, ImText string
}

// Bytes is a representation of Python's bytes.
type Bytes string

// Str is a representation of Python's str.
//
// Kind distinguishes the six str tags: plain vs interned, ASCII vs
// arbitrary UTF-8, and 1-byte vs 4-byte length prefix. Interning is a
// property of the tag, carried here so it survives a round trip. The
// zero Kind selects KindShortASCII for ASCII text under 256 bytes and
// KindUnicode otherwise.
type Str struct {
	Value string
	Kind  Kind
}

// Interned reports whether the string was marked interned on the wire.
func (s Str) Interned() bool {
	switch s.Kind {
	case KindInterned, KindASCIIInterned, KindShortASCIIInterned:
		return true
	}
	return false
}

// Tuple is a representation of Python's tuple.
//
// Kind records whether the long (KindTuple) or small (KindSmallTuple)
// form was read. The zero Kind selects the small form for up to 255
// items, matching what current interpreters write.
type Tuple struct {
	Items []Object
	Kind  Kind
}

// List is a representation of Python's list.
type List []Object

// Set is a representation of Python's set, in stream order.
type Set []Object

// FrozenSet is a representation of Python's frozenset, in stream order.
type FrozenSet []Object

// Has reports whether the set contains an element equal (in the Python
// sense, see Dict) to x.
func (s Set) Has(x Object) bool { return containsObject(s, x) }

// Has reports whether the frozenset contains an element equal to x.
func (s FrozenSet) Has(x Object) bool { return containsObject(s, x) }

// Ref marks a repeat occurrence of a shared object: the value lives in
// the reference table at Index, stored there by the matching StoreRef.
type Ref struct {
	Index int
}

// StoreRef marks the first occurrence of an object the stream flagged
// as shareable. Value is the decoded object; the reference table holds
// the same value at Index. A Ref to Index inside Value's own subtree
// is how the format spells a cycle.
type StoreRef struct {
	Index int
	Value Object
}

// CodeFlags is the co_flags bit set of a code object.
type CodeFlags uint32

const (
	FlagOptimized   CodeFlags = 0x1
	FlagNewLocals   CodeFlags = 0x2
	FlagVarArgs     CodeFlags = 0x4
	FlagVarKeywords CodeFlags = 0x8
	FlagNested      CodeFlags = 0x10
	FlagGenerator   CodeFlags = 0x20

	FlagNoFree CodeFlags = 0x40 // removed in 3.10

	FlagCoroutine         CodeFlags = 0x80
	FlagIterableCoroutine CodeFlags = 0x100
	FlagAsyncGenerator    CodeFlags = 0x200

	FlagGeneratorAllowed CodeFlags = 0x1000

	FlagFutureDivision        CodeFlags = 0x2000
	FlagFutureAbsoluteImport  CodeFlags = 0x4000
	FlagFutureWithStatement   CodeFlags = 0x8000
	FlagFuturePrintFunction   CodeFlags = 0x10000
	FlagFutureUnicodeLiterals CodeFlags = 0x20000

	FlagFutureBarryAsBDFL  CodeFlags = 0x40000
	FlagFutureGeneratorStop CodeFlags = 0x80000
	FlagFutureAnnotations   CodeFlags = 0x100000

	FlagNoMonitoringEvents CodeFlags = 0x200000 // added in 3.13
)

// Code310 is the code-object layout of Python 3.10.
//
// Object-typed fields hold either the value directly or a Ref/StoreRef
// into the reference table, exactly as read; the instruction bytes in
// Code are an opaque Bytes value.
type Code310 struct {
	ArgCount        uint32
	PosOnlyArgCount uint32
	KwOnlyArgCount  uint32
	NLocals         uint32
	StackSize       uint32
	Flags           CodeFlags
	Code            Object // Bytes
	Consts          Object // Tuple
	Names           Object // Tuple of Str
	VarNames        Object // Tuple of Str
	FreeVars        Object // Tuple of Str
	CellVars        Object // Tuple of Str
	Filename        Object // Str
	Name            Object // Str
	FirstLineNo     uint32
	LNoTab          Object // Bytes
}

// Code311 is the code-object layout shared by Python 3.11, 3.12 and
// 3.13: nlocals and the four name tuples of 3.10 are replaced by the
// localsplus pair, and qualname, linetable and exceptiontable appear.
type Code311 struct {
	ArgCount        uint32
	PosOnlyArgCount uint32
	KwOnlyArgCount  uint32
	StackSize       uint32
	Flags           CodeFlags
	Code            Object // Bytes
	Consts          Object // Tuple
	Names           Object // Tuple of Str
	LocalsPlusNames Object // Tuple of Str
	LocalsPlusKinds Object // Bytes
	Filename        Object // Str
	Name            Object // Str
	QualName        Object // Str
	FirstLineNo     uint32
	LineTable       Object // Bytes
	ExceptionTable  Object // Bytes
}

func (None) isObject()          {}
func (StopIteration) isObject() {}
func (Ellipsis) isObject()      {}
func (Bool) isObject()          {}
func (Long) isObject()          {}
func (Float) isObject()         {}
func (Complex) isObject()       {}
func (Bytes) isObject()         {}
func (Str) isObject()           {}
func (Tuple) isObject()         {}
func (List) isObject()          {}
func (Set) isObject()           {}
func (FrozenSet) isObject()     {}
func (Dict) isObject()          {}
func (Ref) isObject()           {}
func (StoreRef) isObject()      {}
func (*Code310) isObject()      {}
func (*Code311) isObject()      {}

// longKind resolves the effective wire form of l.
func (l Long) longKind() Kind {
	if l.Kind != 0 {
		return l.Kind
	}
	if l.Value.IsInt64() {
		if v := l.Value.Int64(); v >= math.MinInt32 && v <= math.MaxInt32 {
			return KindInt
		}
	}
	return KindLong
}

// floatKind resolves the effective wire form of f.
func (f Float) floatKind() Kind {
	if f.Kind != 0 {
		return f.Kind
	}
	return KindBinaryFloat
}

func (c Complex) complexKind() Kind {
	if c.Kind != 0 {
		return c.Kind
	}
	return KindBinaryComplex
}

// strKind resolves the effective wire form of s.
func (s Str) strKind() Kind {
	if s.Kind != 0 {
		return s.Kind
	}
	if len(s.Value) < 256 && isASCII(s.Value) {
		return KindShortASCII
	}
	return KindUnicode
}

// tupleKind resolves the effective wire form of t.
func (t Tuple) tupleKind() Kind {
	if t.Kind != 0 {
		return t.Kind
	}
	if len(t.Items) <= 255 {
		return KindSmallTuple
	}
	return KindTuple
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// hashable reports whether obj may be used as a dict key or set
// element. Mirrors Python: the mutable containers and code objects are
// not hashable. Ref markers are hashable because they stand for an
// already-stored (necessarily hashable, if used as a key) object.
func hashable(obj Object) bool {
	switch x := obj.(type) {
	case None, StopIteration, Ellipsis, Bool, Long, Float, Complex, Bytes, Str, Ref:
		return true
	case Tuple:
		for _, item := range x.Items {
			if !hashable(item) {
				return false
			}
		}
		return true
	case FrozenSet:
		for _, item := range x {
			if !hashable(item) {
				return false
			}
		}
		return true
	case StoreRef:
		return hashable(x.Value)
	}
	return false
}

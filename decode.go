package pymarshal

import (
	"encoding/binary"
	"io"
	"math"
	"math/big"
	"unicode/utf8"
)

// maxDepth bounds container nesting while decoding and encoding. The
// value matches what CPython's marshal enforces on non-Windows builds.
const maxDepth = 2000

// Decode reads one marshalled object from data, which must hold the
// object and nothing else. version selects the tag table and the code
// object layout; it must be one of the supported versions.
//
// The returned Refs table holds every object the stream flagged as
// shareable, in store order. Shared and cyclic structure is expressed
// through StoreRef and Ref markers in the returned object rather than
// through aliased Go values, so the result is always a finite tree.
func Decode(data []byte, version Version) (Object, Refs, error) {
	if !version.Supported() {
		return nil, nil, &VersionError{Version: version}
	}
	d := &decoder{data: data, version: version}
	obj, err := d.load()
	if err != nil {
		return nil, nil, err
	}
	if obj == nil {
		return nil, nil, errNullObject
	}
	if d.pos != len(d.data) {
		return nil, nil, ErrTrailingBytes
	}
	return obj, d.refs, nil
}

type decoder struct {
	data    []byte
	pos     int
	version Version
	refs    Refs
	depth   int
}

// ---- primitive readers ----

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, errNegativeSize
	}
	if n > len(d.data)-d.pos {
		return nil, io.ErrUnexpectedEOF
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) readUint32() (uint32, error) {
	b, err := d.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) readInt32() (int32, error) {
	u, err := d.readUint32()
	return int32(u), err
}

func (d *decoder) readInt64() (int64, error) {
	b, err := d.readBytes(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// readSize reads a 4-byte count and sanity-checks it: negative counts
// are invalid, and a count exceeding the remaining input cannot be
// satisfied, every item being at least one byte.
func (d *decoder) readSize() (int, error) {
	n, err := d.readInt32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errNegativeSize
	}
	if int(n) > len(d.data)-d.pos {
		return 0, io.ErrUnexpectedEOF
	}
	return int(n), nil
}

// ---- object loading ----

// load reads one object, handling the ref flag.
//
// A nil Object with a nil error is the NULL pseudo-object ('0'); only
// a dict, where it terminates the item list, accepts it. Every other
// caller turns it into an error.
func (d *decoder) load() (Object, error) {
	if d.depth >= maxDepth {
		return nil, ErrMaxDepth
	}
	d.depth++
	defer func() { d.depth-- }()

	pos := d.pos
	b, err := d.readByte()
	if err != nil {
		return nil, err
	}
	flag := b&flagRef != 0
	kind := Kind(b &^ flagRef)
	if kind == KindUnknown || !validKind(d.version, kind) {
		return nil, &KindError{Kind: byte(kind), Pos: pos}
	}

	switch kind {
	case KindNull:
		if flag {
			return nil, errNullRef
		}
		return nil, nil
	case KindRef:
		if flag {
			return nil, errRefFlag
		}
		n, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		idx := int(n)
		if idx < 0 || idx >= len(d.refs) {
			return nil, &RefError{Index: idx}
		}
		return Ref{Index: idx}, nil
	}

	// A flagged object owns the next table index. The index is
	// reserved before the payload is read so that a Ref inside the
	// payload can point back at the object itself.
	idx := -1
	if flag {
		idx = len(d.refs)
		d.refs = append(d.refs, nil)
	}

	obj, err := d.loadKind(kind)
	if err != nil {
		return nil, err
	}
	if flag {
		d.refs[idx] = obj
		return StoreRef{Index: idx, Value: obj}, nil
	}
	return obj, nil
}

func (d *decoder) loadKind(kind Kind) (Object, error) {
	switch kind {
	case KindNone:
		return None{}, nil
	case KindTrue:
		return Bool(true), nil
	case KindFalse:
		return Bool(false), nil
	case KindStopIteration:
		return StopIteration{}, nil
	case KindEllipsis:
		return Ellipsis{}, nil

	case KindInt:
		n, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		return Long{Value: big.NewInt(int64(n)), Kind: KindInt}, nil

	case KindInt64:
		n, err := d.readInt64()
		if err != nil {
			return nil, err
		}
		return Long{Value: big.NewInt(n), Kind: KindInt64}, nil

	case KindLong:
		return d.loadLong()

	case KindFloat:
		s, err := d.readFloatText()
		if err != nil {
			return nil, err
		}
		f, err := parseFloatText(s)
		if err != nil {
			return nil, err
		}
		return Float{Value: f, Kind: KindFloat, Text: s}, nil

	case KindBinaryFloat:
		f, err := d.readBinaryFloat()
		if err != nil {
			return nil, err
		}
		return Float{Value: f, Kind: KindBinaryFloat}, nil

	case KindComplex:
		res, err := d.readFloatText()
		if err != nil {
			return nil, err
		}
		re, err := parseFloatText(res)
		if err != nil {
			return nil, err
		}
		ims, err := d.readFloatText()
		if err != nil {
			return nil, err
		}
		im, err := parseFloatText(ims)
		if err != nil {
			return nil, err
		}
		return Complex{Re: re, Im: im, Kind: KindComplex, ReText: res, ImText: ims}, nil

	case KindBinaryComplex:
		re, err := d.readBinaryFloat()
		if err != nil {
			return nil, err
		}
		im, err := d.readBinaryFloat()
		if err != nil {
			return nil, err
		}
		return Complex{Re: re, Im: im, Kind: KindBinaryComplex}, nil

	case KindString:
		n, err := d.readSize()
		if err != nil {
			return nil, err
		}
		b, err := d.readBytes(n)
		if err != nil {
			return nil, err
		}
		return Bytes(b), nil

	case KindUnicode, KindInterned, KindASCII, KindASCIIInterned,
		KindShortASCII, KindShortASCIIInterned:
		return d.loadStr(kind)

	case KindTuple:
		n, err := d.readSize()
		if err != nil {
			return nil, err
		}
		return d.loadTuple(n, KindTuple)

	case KindSmallTuple:
		n, err := d.readByte()
		if err != nil {
			return nil, err
		}
		return d.loadTuple(int(n), KindSmallTuple)

	case KindList:
		n, err := d.readSize()
		if err != nil {
			return nil, err
		}
		items, err := d.loadItems(n, errNullInList)
		if err != nil {
			return nil, err
		}
		return List(items), nil

	case KindSet:
		items, err := d.loadSetItems()
		if err != nil {
			return nil, err
		}
		return Set(items), nil

	case KindFrozenSet:
		items, err := d.loadSetItems()
		if err != nil {
			return nil, err
		}
		return FrozenSet(items), nil

	case KindDict:
		return d.loadDict()

	case KindCode:
		if d.version.atLeast(3, 11) {
			return d.loadCode311()
		}
		return d.loadCode310()
	}

	// unreachable while kindsByVersion and this switch agree
	return nil, &KindError{Kind: byte(kind), Pos: d.pos - 1}
}

func (d *decoder) loadLong() (Object, error) {
	n, err := d.readInt32()
	if err != nil {
		return nil, err
	}
	negative := n < 0
	count := int(n)
	if negative {
		count = -count
	}
	b, err := d.readBytes(2 * count)
	if err != nil {
		return nil, err
	}
	digits := make([]uint16, count)
	for i := range digits {
		digits[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	v, err := longFromDigits(digits, negative)
	if err != nil {
		return nil, err
	}
	return Long{Value: v, Kind: KindLong}, nil
}

func (d *decoder) readFloatText() (string, error) {
	n, err := d.readByte()
	if err != nil {
		return "", err
	}
	b, err := d.readBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) readBinaryFloat() (float64, error) {
	b, err := d.readBytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (d *decoder) loadStr(kind Kind) (Object, error) {
	var n int
	if shortKind(kind) {
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		n = int(b)
	} else {
		var err error
		n, err = d.readSize()
		if err != nil {
			return nil, err
		}
	}
	b, err := d.readBytes(n)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(b) {
		return nil, ErrInvalidUTF8
	}
	if kind != KindUnicode && kind != KindInterned && !isASCII(string(b)) {
		return nil, errNonASCII
	}
	return Str{Value: string(b), Kind: kind}, nil
}

func (d *decoder) loadTuple(n int, kind Kind) (Object, error) {
	items, err := d.loadItems(n, errNullInTuple)
	if err != nil {
		return nil, err
	}
	return Tuple{Items: items, Kind: kind}, nil
}

func (d *decoder) loadItems(n int, errNull error) ([]Object, error) {
	items := make([]Object, 0, n)
	for i := 0; i < n; i++ {
		item, err := d.load()
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, errNull
		}
		items = append(items, item)
	}
	return items, nil
}

func (d *decoder) loadSetItems() ([]Object, error) {
	n, err := d.readSize()
	if err != nil {
		return nil, err
	}
	items, err := d.loadItems(n, errNullInSet)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if !hashable(item) {
			return nil, errUnhashableSet
		}
	}
	return items, nil
}

func (d *decoder) loadDict() (Object, error) {
	dict := NewDict()
	for {
		key, err := d.load()
		if err != nil {
			return nil, err
		}
		if key == nil {
			// NULL key terminates the dict
			return dict, nil
		}
		if !hashable(key) {
			return nil, errUnhashableKey
		}
		// a duplicate key would collapse into one entry and the lost
		// pair could never be re-encoded
		if _, dup := dict.Get_(key); dup {
			return nil, errDuplicateKey
		}
		value, err := d.load()
		if err != nil {
			return nil, err
		}
		if value == nil {
			return nil, errNullInDict
		}
		dict.Set(key, value)
	}
}

// ---- code objects ----

func (d *decoder) loadCode310() (Object, error) {
	c := &Code310{}
	fields := []*uint32{
		&c.ArgCount, &c.PosOnlyArgCount, &c.KwOnlyArgCount,
		&c.NLocals, &c.StackSize,
	}
	for _, f := range fields {
		n, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		*f = n
	}
	flags, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	c.Flags = CodeFlags(flags)

	if c.Code, err = d.loadCodeBytes("code"); err != nil {
		return nil, err
	}
	if c.Consts, err = d.loadCodeTuple("consts"); err != nil {
		return nil, err
	}
	if c.Names, err = d.loadCodeTuple("names"); err != nil {
		return nil, err
	}
	if c.VarNames, err = d.loadCodeTuple("varnames"); err != nil {
		return nil, err
	}
	if c.FreeVars, err = d.loadCodeTuple("freevars"); err != nil {
		return nil, err
	}
	if c.CellVars, err = d.loadCodeTuple("cellvars"); err != nil {
		return nil, err
	}
	if c.Filename, err = d.loadCodeStr("filename"); err != nil {
		return nil, err
	}
	if c.Name, err = d.loadCodeStr("name"); err != nil {
		return nil, err
	}
	if c.FirstLineNo, err = d.readUint32(); err != nil {
		return nil, err
	}
	if c.LNoTab, err = d.loadCodeBytes("lnotab"); err != nil {
		return nil, err
	}
	return c, nil
}

func (d *decoder) loadCode311() (Object, error) {
	c := &Code311{}
	fields := []*uint32{
		&c.ArgCount, &c.PosOnlyArgCount, &c.KwOnlyArgCount, &c.StackSize,
	}
	for _, f := range fields {
		n, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		*f = n
	}
	flags, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	c.Flags = CodeFlags(flags)

	if c.Code, err = d.loadCodeBytes("code"); err != nil {
		return nil, err
	}
	if c.Consts, err = d.loadCodeTuple("consts"); err != nil {
		return nil, err
	}
	if c.Names, err = d.loadCodeTuple("names"); err != nil {
		return nil, err
	}
	if c.LocalsPlusNames, err = d.loadCodeTuple("localsplusnames"); err != nil {
		return nil, err
	}
	if c.LocalsPlusKinds, err = d.loadCodeBytes("localspluskinds"); err != nil {
		return nil, err
	}
	if c.Filename, err = d.loadCodeStr("filename"); err != nil {
		return nil, err
	}
	if c.Name, err = d.loadCodeStr("name"); err != nil {
		return nil, err
	}
	if c.QualName, err = d.loadCodeStr("qualname"); err != nil {
		return nil, err
	}
	if c.FirstLineNo, err = d.readUint32(); err != nil {
		return nil, err
	}
	if c.LineTable, err = d.loadCodeBytes("linetable"); err != nil {
		return nil, err
	}
	if c.ExceptionTable, err = d.loadCodeBytes("exceptiontable"); err != nil {
		return nil, err
	}
	return c, nil
}

// loadCodeField reads one code sub-object and rejects NULL. The field
// keeps its Ref/StoreRef wrapper so re-encoding replays the stream.
func (d *decoder) loadCodeField() (Object, error) {
	obj, err := d.load()
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errNullInCode
	}
	return obj, nil
}

// deref follows Ref and StoreRef markers to the concrete object. It
// returns nil for a reference whose table slot is still a reservation
// placeholder, which a caller must treat as unverifiable rather than
// wrong.
func (d *decoder) deref(obj Object) Object {
	for {
		switch v := obj.(type) {
		case StoreRef:
			obj = v.Value
		case Ref:
			target, ok := d.refs.Get(v.Index)
			if !ok {
				return nil
			}
			obj = target
		default:
			return obj
		}
		if obj == nil {
			return nil
		}
	}
}

func (d *decoder) loadCodeBytes(field string) (Object, error) {
	obj, err := d.loadCodeField()
	if err != nil {
		return nil, err
	}
	switch d.deref(obj).(type) {
	case Bytes, nil:
		return obj, nil
	}
	return nil, &CodeFieldError{Field: field}
}

func (d *decoder) loadCodeTuple(field string) (Object, error) {
	obj, err := d.loadCodeField()
	if err != nil {
		return nil, err
	}
	switch d.deref(obj).(type) {
	case Tuple, nil:
		return obj, nil
	}
	return nil, &CodeFieldError{Field: field}
}

func (d *decoder) loadCodeStr(field string) (Object, error) {
	obj, err := d.loadCodeField()
	if err != nil {
		return nil, err
	}
	switch d.deref(obj).(type) {
	case Str, nil:
		return obj, nil
	}
	return nil, &CodeFieldError{Field: field}
}

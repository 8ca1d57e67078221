package pymarshal

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Encode serializes obj into the marshal wire format of version.
//
// refs must be the reference table that belongs to obj: every
// StoreRef in the object must claim the next free table index in
// stream order, every Ref must point at an index already stored, and
// the table must hold no entries beyond those the object stores. A
// pair returned by Decode satisfies this by construction, and
// re-encoding it with the same version reproduces the input bytes
// exactly.
//
// Objects whose provenance Kind is zero are written in canonical
// form, so a graph built by hand encodes without further setup.
func Encode(obj Object, refs Refs, version Version) ([]byte, error) {
	if !version.Supported() {
		return nil, &VersionError{Version: version}
	}
	e := &encoder{version: version, refs: refs}
	if err := e.dump(obj); err != nil {
		return nil, err
	}
	if e.nstored != len(refs) {
		return nil, &RefError{Index: e.nstored}
	}
	return e.buf.Bytes(), nil
}

type encoder struct {
	buf     bytes.Buffer
	version Version
	refs    Refs
	nstored int // StoreRefs written so far; also the next free index
	depth   int
}

// ---- primitive writers ----

func (e *encoder) writeByte(b byte) {
	e.buf.WriteByte(b)
}

func (e *encoder) writeUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) writeInt32(v int32) {
	e.writeUint32(uint32(v))
}

func (e *encoder) writeInt64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	e.buf.Write(b[:])
}

func (e *encoder) writeBinaryFloat(f float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(f))
	e.buf.Write(b[:])
}

func (e *encoder) writeFloatText(s string) error {
	if len(s) > 255 {
		return errShortLength
	}
	e.writeByte(byte(len(s)))
	e.buf.WriteString(s)
	return nil
}

// ---- object dumping ----

// dump writes one object, handling the ref markers.
func (e *encoder) dump(obj Object) error {
	if e.depth >= maxDepth {
		return ErrMaxDepth
	}
	e.depth++
	defer func() { e.depth-- }()

	switch v := obj.(type) {
	case nil:
		return errNullObject

	case StoreRef:
		// a store must claim the next free table index
		if v.Index != e.nstored {
			return &RefError{Index: v.Index}
		}
		if v.Value == nil {
			return errNullObject
		}
		e.nstored++
		return e.dumpValue(v.Value, true)

	case Ref:
		// only an already-stored index may be referenced; an object
		// being stored counts, which is what makes cycles encodable
		if v.Index < 0 || v.Index >= e.nstored {
			return &RefError{Index: v.Index}
		}
		e.writeByte(byte(KindRef))
		e.writeInt32(int32(v.Index))
		return nil
	}

	return e.dumpValue(obj, false)
}

func (e *encoder) writeTag(kind Kind, flagged bool) {
	b := byte(kind)
	if flagged {
		b |= flagRef
	}
	e.writeByte(b)
}

func (e *encoder) dumpValue(obj Object, flagged bool) error {
	switch v := obj.(type) {
	case None:
		e.writeTag(KindNone, flagged)
	case Bool:
		if v {
			e.writeTag(KindTrue, flagged)
		} else {
			e.writeTag(KindFalse, flagged)
		}
	case StopIteration:
		e.writeTag(KindStopIteration, flagged)
	case Ellipsis:
		e.writeTag(KindEllipsis, flagged)

	case Long:
		return e.dumpLong(v, flagged)
	case Float:
		return e.dumpFloat(v, flagged)
	case Complex:
		return e.dumpComplex(v, flagged)

	case Bytes:
		e.writeTag(KindString, flagged)
		e.writeInt32(int32(len(v)))
		e.buf.WriteString(string(v))
	case Str:
		return e.dumpStr(v, flagged)

	case Tuple:
		return e.dumpTuple(v, flagged)
	case List:
		e.writeTag(KindList, flagged)
		e.writeInt32(int32(len(v)))
		return e.dumpItems(v)
	case Set:
		e.writeTag(KindSet, flagged)
		e.writeInt32(int32(len(v)))
		return e.dumpItems(v)
	case FrozenSet:
		e.writeTag(KindFrozenSet, flagged)
		e.writeInt32(int32(len(v)))
		return e.dumpItems(v)
	case Dict:
		return e.dumpDict(v, flagged)

	case *Code310:
		return e.dumpCode310(v, flagged)
	case *Code311:
		return e.dumpCode311(v, flagged)

	case StoreRef, Ref:
		// a marker wrapped in a marker has no wire form
		return &RefError{Index: refIndex(obj)}

	default:
		return errNullObject
	}
	return nil
}

func refIndex(obj Object) int {
	switch v := obj.(type) {
	case StoreRef:
		return v.Index
	case Ref:
		return v.Index
	}
	return -1
}

func (e *encoder) dumpItems(items []Object) error {
	for _, item := range items {
		if err := e.dump(item); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) dumpLong(v Long, flagged bool) error {
	kind := v.longKind()
	switch kind {
	case KindInt:
		if !v.Value.IsInt64() {
			return errIntRange
		}
		n := v.Value.Int64()
		if n < math.MinInt32 || n > math.MaxInt32 {
			return errIntRange
		}
		e.writeTag(KindInt, flagged)
		e.writeInt32(int32(n))

	case KindInt64:
		if !v.Value.IsInt64() {
			return errIntRange
		}
		e.writeTag(KindInt64, flagged)
		e.writeInt64(v.Value.Int64())

	case KindLong:
		digits, negative := digitsFromLong(v.Value)
		count := int32(len(digits))
		if negative {
			count = -count
		}
		e.writeTag(KindLong, flagged)
		e.writeInt32(count)
		for _, d := range digits {
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], d)
			e.buf.Write(b[:])
		}

	default:
		return &KindError{Kind: byte(kind), Pos: e.buf.Len()}
	}
	return nil
}

func (e *encoder) dumpFloat(v Float, flagged bool) error {
	switch v.floatKind() {
	case KindBinaryFloat:
		e.writeTag(KindBinaryFloat, flagged)
		e.writeBinaryFloat(v.Value)
		return nil
	case KindFloat:
		s := v.Text
		if s == "" {
			s = formatFloatText(v.Value)
		}
		e.writeTag(KindFloat, flagged)
		return e.writeFloatText(s)
	}
	return &KindError{Kind: byte(v.Kind), Pos: e.buf.Len()}
}

func (e *encoder) dumpComplex(v Complex, flagged bool) error {
	switch v.complexKind() {
	case KindBinaryComplex:
		e.writeTag(KindBinaryComplex, flagged)
		e.writeBinaryFloat(v.Re)
		e.writeBinaryFloat(v.Im)
		return nil
	case KindComplex:
		res, ims := v.ReText, v.ImText
		if res == "" {
			res = formatFloatText(v.Re)
		}
		if ims == "" {
			ims = formatFloatText(v.Im)
		}
		e.writeTag(KindComplex, flagged)
		if err := e.writeFloatText(res); err != nil {
			return err
		}
		return e.writeFloatText(ims)
	}
	return &KindError{Kind: byte(v.Kind), Pos: e.buf.Len()}
}

func (e *encoder) dumpStr(v Str, flagged bool) error {
	kind := v.strKind()
	if !stringKind(kind) {
		return &KindError{Kind: byte(kind), Pos: e.buf.Len()}
	}
	if kind != KindUnicode && kind != KindInterned && !isASCII(v.Value) {
		return errNonASCII
	}
	e.writeTag(kind, flagged)
	if shortKind(kind) {
		if len(v.Value) > 255 {
			return errShortLength
		}
		e.writeByte(byte(len(v.Value)))
	} else {
		e.writeInt32(int32(len(v.Value)))
	}
	e.buf.WriteString(v.Value)
	return nil
}

func (e *encoder) dumpTuple(v Tuple, flagged bool) error {
	switch kind := v.tupleKind(); kind {
	case KindSmallTuple:
		if len(v.Items) > 255 {
			return errShortLength
		}
		e.writeTag(KindSmallTuple, flagged)
		e.writeByte(byte(len(v.Items)))
	case KindTuple:
		e.writeTag(KindTuple, flagged)
		e.writeInt32(int32(len(v.Items)))
	default:
		return &KindError{Kind: byte(kind), Pos: e.buf.Len()}
	}
	return e.dumpItems(v.Items)
}

func (e *encoder) dumpDict(v Dict, flagged bool) error {
	e.writeTag(KindDict, flagged)
	for _, kv := range v.Items() {
		if err := e.dump(kv.Key); err != nil {
			return err
		}
		if err := e.dump(kv.Value); err != nil {
			return err
		}
	}
	e.writeByte(byte(KindNull))
	return nil
}

func (e *encoder) dumpCode310(v *Code310, flagged bool) error {
	if e.version.atLeast(3, 11) {
		return &VersionError{Version: e.version, What: "3.10 code object"}
	}
	e.writeTag(KindCode, flagged)
	for _, n := range []uint32{
		v.ArgCount, v.PosOnlyArgCount, v.KwOnlyArgCount,
		v.NLocals, v.StackSize, uint32(v.Flags),
	} {
		e.writeUint32(n)
	}
	for _, field := range []Object{
		v.Code, v.Consts, v.Names, v.VarNames, v.FreeVars, v.CellVars,
		v.Filename, v.Name,
	} {
		if err := e.dump(field); err != nil {
			return err
		}
	}
	e.writeUint32(v.FirstLineNo)
	return e.dump(v.LNoTab)
}

func (e *encoder) dumpCode311(v *Code311, flagged bool) error {
	if !e.version.atLeast(3, 11) {
		return &VersionError{Version: e.version, What: "3.11 code object"}
	}
	e.writeTag(KindCode, flagged)
	for _, n := range []uint32{
		v.ArgCount, v.PosOnlyArgCount, v.KwOnlyArgCount,
		v.StackSize, uint32(v.Flags),
	} {
		e.writeUint32(n)
	}
	for _, field := range []Object{
		v.Code, v.Consts, v.Names, v.LocalsPlusNames, v.LocalsPlusKinds,
		v.Filename, v.Name, v.QualName,
	} {
		if err := e.dump(field); err != nil {
			return err
		}
	}
	e.writeUint32(v.FirstLineNo)
	if err := e.dump(v.LineTable); err != nil {
		return err
	}
	return e.dump(v.ExceptionTable)
}

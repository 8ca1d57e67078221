package pymarshal

import (
	"errors"
	"fmt"
)

var (
	// ErrMaxDepth is returned when nested containers exceed the fixed
	// depth bound (maxDepth in decode.go). The bound protects against
	// stack exhaustion on adversarial input.
	ErrMaxDepth = errors.New("marshal: max object nesting depth exceeded")

	// ErrTrailingBytes is returned by Decode when the buffer holds
	// bytes past the end of the top-level object.
	ErrTrailingBytes = errors.New("marshal: trailing bytes after object")

	// ErrInvalidUTF8 is returned when a str tag carries a payload that
	// is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("marshal: invalid UTF-8 in string")

	// ErrBadDigit is returned for a long digit outside [0, 2^15).
	ErrBadDigit = errors.New("marshal: bad marshal data (digit out of range in long)")

	// ErrUnnormalizedLong is returned for a long whose most significant
	// digit is zero; the encoder could never reproduce such a stream.
	ErrUnnormalizedLong = errors.New("marshal: bad marshal data (unnormalized long data)")

	// ErrBadFloat is returned for a text float that does not parse as a
	// decimal number.
	ErrBadFloat = errors.New("marshal: bad marshal data (invalid float literal)")

	// ErrCyclicRef is returned by ResolveRefs for a cycle that runs
	// through reference-table entries outside the resolved object;
	// such a cycle cannot be kept as renumbered markers.
	ErrCyclicRef = errors.New("marshal: cannot resolve cyclic reference")

	errNegativeSize  = errors.New("marshal: bad marshal data (size out of range)")
	errNullInTuple   = errors.New("marshal: NULL object in marshal data for tuple")
	errNullInList    = errors.New("marshal: NULL object in marshal data for list")
	errNullInSet     = errors.New("marshal: NULL object in marshal data for set")
	errNullInDict    = errors.New("marshal: NULL object in marshal data for dict")
	errNullInCode    = errors.New("marshal: NULL object in marshal data for code")
	errNullObject    = errors.New("marshal: NULL object at top level")
	errNullRef       = errors.New("marshal: bad marshal data (NULL object with ref flag)")
	errRefFlag       = errors.New("marshal: bad marshal data (ref flag on a reference)")
	errShortLength   = errors.New("marshal: length does not fit in short form")
	errNonASCII      = errors.New("marshal: non-ASCII data in ASCII string form")
	errIntRange      = errors.New("marshal: value out of range for int form")
	errUnhashableKey = errors.New("marshal: bad marshal data (unhashable dict key)")
	errDuplicateKey  = errors.New("marshal: bad marshal data (duplicate dict key)")
	errUnhashableSet = errors.New("marshal: bad marshal data (unhashable set element)")
)

// KindError is the error Decode returns when it reads a tag byte that
// is not defined for the active version.
type KindError struct {
	Kind byte // tag byte with the ref flag stripped
	Pos  int  // offset of the tag byte in the input
}

func (e *KindError) Error() string {
	return fmt.Sprintf("marshal: unknown type tag %d (%c) at position %d", e.Kind, e.Kind, e.Pos)
}

// RefError reports a reference-table violation: a load of an index that
// was never stored, or a store that skips or reuses an index.
type RefError struct {
	Index int
}

func (e *RefError) Error() string {
	return fmt.Sprintf("marshal: bad marshal data (invalid reference %d)", e.Index)
}

// MagicError reports a pyc magic number that matches no known Python
// release.
type MagicError struct {
	Magic uint32
}

func (e *MagicError) Error() string {
	return fmt.Sprintf("marshal: unrecognized pyc magic number %#08x", e.Magic)
}

// CodeFieldError reports a code-object field whose decoded value, after
// following any reference, has the wrong type for that field.
type CodeFieldError struct {
	Field string
}

func (e *CodeFieldError) Error() string {
	return fmt.Sprintf("marshal: bad code object (field %s has wrong type)", e.Field)
}

// VersionError reports a version outside the supported set, or an
// object that has no representation in the requested version.
type VersionError struct {
	Version Version
	What    string // optional: what could not be represented
}

func (e *VersionError) Error() string {
	if e.What != "" {
		return fmt.Sprintf("marshal: %s not representable in Python %s", e.What, e.Version)
	}
	return fmt.Sprintf("marshal: unsupported Python version %s", e.Version)
}

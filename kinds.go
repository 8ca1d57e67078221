package pymarshal

import "fmt"

// Kind is the type tag of a marshalled value.
//
// On the wire a value starts with one tag byte: the low 7 bits are the
// Kind, the top bit is the ref flag saying the object must be recorded
// in the reference table (see Refs).
type Kind byte

// Type tags
const (
	KindNull               Kind = '0' // internal NULL; terminates dict items
	KindNone               Kind = 'N' // None singleton
	KindFalse              Kind = 'F' // False singleton
	KindTrue               Kind = 'T' // True singleton
	KindStopIteration      Kind = 'S' // StopIteration singleton
	KindEllipsis           Kind = '.' // Ellipsis singleton
	KindInt                Kind = 'i' // int; 4-byte signed little-endian
	KindInt64              Kind = 'I' // int; 8-byte signed little-endian
	KindFloat              Kind = 'f' // float; length-prefixed decimal string
	KindBinaryFloat        Kind = 'g' // float; 8-byte IEEE 754 little-endian
	KindComplex            Kind = 'x' // complex; two decimal strings
	KindBinaryComplex      Kind = 'y' // complex; two 8-byte IEEE 754
	KindLong               Kind = 'l' // int; signed count + 15-bit digits
	KindString             Kind = 's' // bytes; 4-byte length + data
	KindInterned           Kind = 't' // interned str; 4-byte length + UTF-8
	KindRef                Kind = 'r' // reference; 4-byte table index
	KindTuple              Kind = '(' // tuple; 4-byte count + items
	KindList               Kind = '[' // list; 4-byte count + items
	KindDict               Kind = '{' // dict; key/value items until NULL key
	KindCode               Kind = 'c' // code object; version-specific fields
	KindUnicode            Kind = 'u' // str; 4-byte length + UTF-8
	KindUnknown            Kind = '?' // invalid; never produced
	KindSet                Kind = '<' // set; 4-byte count + items
	KindFrozenSet          Kind = '>' // frozenset; 4-byte count + items
	KindASCII              Kind = 'a' // ASCII str; 4-byte length + data
	KindASCIIInterned      Kind = 'A' // interned ASCII str; 4-byte length + data
	KindSmallTuple         Kind = ')' // tuple; 1-byte count + items
	KindShortASCII         Kind = 'z' // ASCII str; 1-byte length + data
	KindShortASCIIInterned Kind = 'Z' // interned ASCII str; 1-byte length + data

	// flagRef is ORed into the tag byte when the object is recorded in
	// the reference table. It is not a Kind of its own.
	flagRef = 0x80
)

// marshalKinds is every tag the marshal format of the supported
// versions accepts. The tag language has been stable since well before
// 3.10; what changes across versions is the payload layout behind
// KindCode (see decoder/encoder) and the pyc magic numbers (version.go).
var marshalKinds = []Kind{
	KindNull,
	KindNone,
	KindFalse,
	KindTrue,
	KindStopIteration,
	KindEllipsis,
	KindInt,
	KindInt64,
	KindFloat,
	KindBinaryFloat,
	KindComplex,
	KindBinaryComplex,
	KindLong,
	KindString,
	KindInterned,
	KindRef,
	KindTuple,
	KindList,
	KindDict,
	KindCode,
	KindUnicode,
	KindSet,
	KindFrozenSet,
	KindASCII,
	KindASCIIInterned,
	KindSmallTuple,
	KindShortASCII,
	KindShortASCIIInterned,
}

// kindsByVersion is the version table: the closed set of tags each
// supported format version understands, indexed purely by version.
// A tag byte is never disambiguated by sniffing its payload.
var kindsByVersion = map[Version][]Kind{
	{3, 10}: marshalKinds,
	{3, 11}: marshalKinds,
	{3, 12}: marshalKinds,
	{3, 13}: marshalKinds,
}

var kindSetByVersion = func() map[Version]map[Kind]bool {
	m := make(map[Version]map[Kind]bool, len(kindsByVersion))
	for v, kinds := range kindsByVersion {
		set := make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			set[k] = true
		}
		m[v] = set
	}
	return m
}()

// validKind reports whether tag k is defined for format version v.
func validKind(v Version, k Kind) bool {
	return kindSetByVersion[v][k]
}

var kindNames = map[Kind]string{
	KindNull:               "NULL",
	KindNone:               "None",
	KindFalse:              "False",
	KindTrue:               "True",
	KindStopIteration:      "StopIteration",
	KindEllipsis:           "Ellipsis",
	KindInt:                "int",
	KindInt64:              "int64",
	KindFloat:              "float",
	KindBinaryFloat:        "binary float",
	KindComplex:            "complex",
	KindBinaryComplex:      "binary complex",
	KindLong:               "long",
	KindString:             "bytes",
	KindInterned:           "interned str",
	KindRef:                "ref",
	KindTuple:              "tuple",
	KindList:               "list",
	KindDict:               "dict",
	KindCode:               "code",
	KindUnicode:            "str",
	KindUnknown:            "unknown",
	KindSet:                "set",
	KindFrozenSet:          "frozenset",
	KindASCII:              "ascii str",
	KindASCIIInterned:      "interned ascii str",
	KindSmallTuple:         "small tuple",
	KindShortASCII:         "short ascii str",
	KindShortASCIIInterned: "short interned ascii str",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", byte(k))
}

// stringKind reports whether k is one of the str tags (the text forms,
// not KindString which carries raw bytes).
func stringKind(k Kind) bool {
	switch k {
	case KindUnicode, KindInterned, KindASCII, KindASCIIInterned,
		KindShortASCII, KindShortASCIIInterned:
		return true
	}
	return false
}

// shortKind reports whether k uses a 1-byte length prefix.
func shortKind(k Kind) bool {
	switch k {
	case KindShortASCII, KindShortASCIIInterned:
		return true
	}
	return false
}

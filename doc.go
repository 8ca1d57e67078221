// Package pymarshal is a library for decoding/encoding Python's marshal
// format, the serialization CPython uses for code objects in .pyc files.
//
// Use Decode to read one marshalled object from a byte buffer:
//
//	obj, refs, err := pymarshal.Decode(data, pymarshal.Version{3, 11})
//
// and Encode to serialize it back:
//
//	out, err := pymarshal.Encode(obj, refs, pymarshal.Version{3, 11})
//
// Decoding and re-encoding with the same version reproduces the input
// byte for byte: every object remembers which wire form carried it,
// including which of the seven string tags, binary versus text floats,
// and the three integer forms. Whole .pyc files round-trip the same
// way through ReadPyc and WritePyc.
//
// The following table summarizes the mapping of types in between
// Python and Go:
//
//	Python         Go
//	------         --
//
//	None        ↔  pymarshal.None
//	bool        ↔  pymarshal.Bool
//	int         ↔  pymarshal.Long      (*big.Int inside)
//	float       ↔  pymarshal.Float
//	complex     ↔  pymarshal.Complex
//	bytes       ↔  pymarshal.Bytes
//	str         ↔  pymarshal.Str
//	tuple       ↔  pymarshal.Tuple
//	list        ↔  pymarshal.List
//	set         ↔  pymarshal.Set
//	frozenset   ↔  pymarshal.FrozenSet
//	dict        ↔  pymarshal.Dict
//	code        ↔  *pymarshal.Code310 / *pymarshal.Code311
//
// # References
//
// The marshal format shares repeated objects through a reference
// table: an object whose tag carries the high bit is stored into the
// table, and later occurrences are written as a 4-byte index into it.
// This package keeps that structure visible instead of building
// aliased or cyclic Go values: the first occurrence decodes to a
// StoreRef marker and every later one to a Ref marker, with the table
// itself returned as Refs. A decoded object is therefore always a
// finite tree and safe to walk, even when the stream encodes a cycle
// such as a list containing itself.
//
// ResolveRefs inlines the markers away for acyclic graphs, and
// OptimizeRefs drops table entries that are stored but never loaded,
// the way CPython's w_object does when writing.
//
// # Versions
//
// The stream does not identify the Python release that wrote it, and
// tag payloads changed across releases (most visibly for code
// objects), so every call takes an explicit Version. Releases 3.10
// through 3.13 are supported. For .pyc files the version is implied
// by the magic number and ReadPyc selects it automatically.
package pymarshal

package pymarshal

import (
	"encoding/binary"
	"io"
)

// Bits of the pyc header flags word, defined by PEP 552.
const (
	// PycFlagHashBased marks a hash-based pyc: the 8 stamp bytes hold
	// the source hash instead of mtime and size.
	PycFlagHashBased uint32 = 0x1

	// PycFlagCheckSource asks the interpreter to verify the source
	// hash of a hash-based pyc at import time.
	PycFlagCheckSource uint32 = 0x2
)

// PycFile is a parsed .pyc file: the 16-byte header plus the
// marshalled top-level code object.
//
// The stamp bytes are kept raw. For a timestamp-based file ([MTime]
// and [SourceSize] interpret them) they hold the source mtime and
// size; for a hash-based file they hold the source hash.
type PycFile struct {
	Version Version
	Flags   uint32
	Stamp   [8]byte
	Object  Object
	Refs    Refs
}

// HashBased reports whether the file uses hash-based invalidation.
func (f *PycFile) HashBased() bool {
	return f.Flags&PycFlagHashBased != 0
}

// MTime returns the source modification time of a timestamp-based
// file.
func (f *PycFile) MTime() uint32 {
	return binary.LittleEndian.Uint32(f.Stamp[0:4])
}

// SourceSize returns the source size of a timestamp-based file,
// modulo 2^32.
func (f *PycFile) SourceSize() uint32 {
	return binary.LittleEndian.Uint32(f.Stamp[4:8])
}

// ReadPyc parses a complete pyc file from r. The format version is
// taken from the magic number, so the body decodes with the right tag
// table and code layout.
func ReadPyc(r io.Reader) (*PycFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < 16 {
		return nil, io.ErrUnexpectedEOF
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	version, ok := versionFromMagic(magic)
	if !ok {
		return nil, &MagicError{Magic: magic}
	}
	if !version.Supported() {
		return nil, &VersionError{Version: version}
	}

	f := &PycFile{
		Version: version,
		Flags:   binary.LittleEndian.Uint32(data[4:8]),
	}
	copy(f.Stamp[:], data[8:16])

	f.Object, f.Refs, err = Decode(data[16:], version)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// WritePyc serializes f to w. Reading a file back with ReadPyc and
// writing it again reproduces the original bytes.
func WritePyc(w io.Writer, f *PycFile) error {
	magic, ok := f.Version.magic()
	if !ok || !f.Version.Supported() {
		return &VersionError{Version: f.Version}
	}

	body, err := Encode(f.Object, f.Refs, f.Version)
	if err != nil {
		return err
	}

	var header [16]byte
	binary.LittleEndian.PutUint32(header[0:4], magic)
	binary.LittleEndian.PutUint32(header[4:8], f.Flags)
	copy(header[8:16], f.Stamp[:])

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

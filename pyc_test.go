package pymarshal

import (
	"bytes"
	"errors"
	"testing"
)

// pyc311 builds a minimal timestamp-based 3.11 pyc wrapping body.
func pyc311(body string) []byte {
	header := "\xa7\x0d\x0d\x0a" + // magic
		"\x00\x00\x00\x00" + // flags
		"\x12\x34\x56\x78" + // mtime
		"\x2c\x01\x00\x00" // source size
	return []byte(header + body)
}

func TestReadPyc(t *testing.T) {
	f, err := ReadPyc(bytes.NewReader(pyc311("N")))
	if err != nil {
		t.Fatal(err)
	}
	if f.Version != v311 {
		t.Errorf("Version = %s, want 3.11", f.Version)
	}
	if f.HashBased() {
		t.Errorf("HashBased = true for flags 0")
	}
	if f.MTime() != 0x78563412 {
		t.Errorf("MTime = %#x", f.MTime())
	}
	if f.SourceSize() != 300 {
		t.Errorf("SourceSize = %d, want 300", f.SourceSize())
	}
	if _, ok := f.Object.(None); !ok {
		t.Errorf("Object = %v", f.Object)
	}
}

func TestWritePycRoundTrip(t *testing.T) {
	in := pyc311("\xdb\x01\x00\x00\x00r\x00\x00\x00\x00")
	f, err := ReadPyc(bytes.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := WritePyc(&out, f); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Bytes(), in) {
		t.Errorf("pyc round trip:\nin  % x\nout % x", in, out.Bytes())
	}
}

func TestReadPycHashBased(t *testing.T) {
	data := []byte("\xa7\x0d\x0d\x0a" +
		"\x03\x00\x00\x00" + // hash-based, check source
		"\x01\x02\x03\x04\x05\x06\x07\x08" + // source hash
		"N")
	f, err := ReadPyc(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if !f.HashBased() {
		t.Errorf("HashBased = false")
	}
	if f.Flags&PycFlagCheckSource == 0 {
		t.Errorf("check-source flag lost")
	}
	if f.Stamp != [8]byte{1, 2, 3, 4, 5, 6, 7, 8} {
		t.Errorf("Stamp = % x", f.Stamp)
	}
}

func TestReadPycErrors(t *testing.T) {
	// truncated header
	if _, err := ReadPyc(bytes.NewReader([]byte("\xa7\x0d\x0d\x0a"))); err == nil {
		t.Errorf("truncated header accepted")
	}

	// unknown magic
	_, err := ReadPyc(bytes.NewReader(append([]byte("\xff\xff\xff\xff"), make([]byte, 13)...)))
	var me *MagicError
	if !errors.As(err, &me) {
		t.Errorf("got %v, want MagicError", err)
	}

	// recognized but unsupported release (3.7)
	data := append([]byte("\x42\x0d\x0d\x0a"), make([]byte, 12)...)
	data = append(data, 'N')
	_, err = ReadPyc(bytes.NewReader(data))
	var ve *VersionError
	if !errors.As(err, &ve) || ve.Version != (Version{3, 7}) {
		t.Errorf("got %v, want VersionError for 3.7", err)
	}
}

func TestWritePycUnsupportedVersion(t *testing.T) {
	f := &PycFile{Version: Version{3, 7}, Object: None{}}
	var out bytes.Buffer
	var ve *VersionError
	if err := WritePyc(&out, f); !errors.As(err, &ve) {
		t.Errorf("got %v, want VersionError", err)
	}
}

package pymarshal

import (
	"bytes"
	"testing"
)

// FuzzDecode checks the codec's core contract on arbitrary input:
// whatever decodes must re-encode to the identical bytes, and the
// decoder must reject or accept without panicking.
func FuzzDecode(f *testing.F) {
	for _, tt := range streamTests {
		f.Add([]byte(tt.data), tt.version.Minor-10)
	}
	f.Add([]byte("r\x00\x00\x00\x00"), 1)
	f.Add([]byte("l\x02\x00\x00\x00\x01\x00\x01\x00"), 3)

	f.Fuzz(func(t *testing.T, data []byte, minor int) {
		version := Version{3, 10 + ((minor%4)+4)%4}
		obj, refs, err := Decode(data, version)
		if err != nil {
			return
		}
		out, err := Encode(obj, refs, version)
		if err != nil {
			t.Fatalf("decoded object does not encode: %v\ninput % x", err, data)
		}
		if !bytes.Equal(out, data) {
			t.Fatalf("round trip mismatch:\nin  % x\nout % x", data, out)
		}
	})
}

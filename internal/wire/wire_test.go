package wire

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func mustDecode(t *testing.T, b []byte) (int64, []byte) {
	t.Helper()
	created, p, err := DecodeRecord(b)
	if err != nil {
		t.Fatalf("DecodeRecord error: %v", err)
	}
	return created, p
}

func TestRecordRoundTrip(t *testing.T) {
	now := time.Now().UnixNano()
	cases := []struct {
		created int64
		payload []byte
	}{
		{0, nil},
		{now, []byte("hello")},
		{math.MaxInt64, []byte{0, 1, 2, 3, 4}},
	}
	for _, tc := range cases {
		enc := EncodeRecord(tc.created, tc.payload)
		created, p := mustDecode(t, enc)
		if created != tc.created {
			t.Fatalf("created mismatch: got %d want %d", created, tc.created)
		}
		if !bytes.Equal(p, tc.payload) {
			t.Fatalf("payload mismatch: got %x want %x", p, tc.payload)
		}
	}
}

func TestRecordRejectsTrailingBytes(t *testing.T) {
	enc := EncodeRecord(7, []byte("x"))
	enc = append(enc, 0xDE, 0xAD) // add junk
	if _, _, err := DecodeRecord(enc); err == nil {
		t.Fatalf("expected error on trailing bytes")
	}
}

func TestRecordCorruptHeadersAndLengths(t *testing.T) {
	enc := EncodeRecord(1, []byte("abc"))

	// bad magic
	badMagic := append([]byte(nil), enc...)
	badMagic[0] = 'X'
	if _, _, err := DecodeRecord(badMagic); err == nil {
		t.Fatalf("expected error on bad magic")
	}

	// wrong version
	badVer := append([]byte(nil), enc...)
	badVer[4] = version + 1
	if _, _, err := DecodeRecord(badVer); err == nil {
		t.Fatalf("expected error on bad version")
	}

	// wrong kind
	badKind := append([]byte(nil), enc...)
	badKind[5] = kindRecord + 1
	if _, _, err := DecodeRecord(badKind); err == nil {
		t.Fatalf("expected error on bad kind")
	}

	// vlen too large (announce more than available)
	tooLong := append([]byte(nil), enc...)
	// vlen sits at offset 14..17 (4 magic + 1 ver + 1 kind + 8 created)
	binary.BigEndian.PutUint32(tooLong[14:18], uint32(len("abc")+1))
	if _, _, err := DecodeRecord(tooLong); err == nil {
		t.Fatalf("expected error on vlen beyond buffer")
	}

	// truncated buffer
	if _, _, err := DecodeRecord(enc[:10]); err == nil {
		t.Fatalf("expected error on truncated buffer")
	}

	// empty input
	if _, _, err := DecodeRecord(nil); err == nil {
		t.Fatalf("expected error on empty input")
	}
}

package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version    byte = 1
	kindRecord byte = 1
)

var (
	ErrCorrupt = errors.New("taskstore: corrupt record")
	magic4     = [...]byte{'T', 'S', 'K', 'V'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Record: magic(4) | ver(1) | kind(1=record) | created(u64 be, unix nanos) | vlen(u32 be) | payload(vlen)
//
// The frame lets the store tell its own records from foreign or truncated
// bytes and self-heal on read. Write versioning lives in the backend, not
// here; created rides in the header so updates can preserve the original
// creation time without the payload codec's involvement.
func EncodeRecord(createdUnixNano int64, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 8 + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindRecord)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(createdUnixNano))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

func DecodeRecord(b []byte) (createdUnixNano int64, payload []byte, err error) {
	const hdr = 4 + 1 + 1 + 8 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindRecord {
		return 0, nil, ErrCorrupt
	}

	off := 6

	created := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off { // exact length; trailing junk is corruption
		return 0, nil, ErrCorrupt
	}

	return int64(created), b[off : off+vlen], nil
}

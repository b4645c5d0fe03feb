package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version byte = 1

	// KindShell tags entries belonging to a shell (static asset) store.
	KindShell byte = 1
	// KindAPI tags entries belonging to an api (cached read response) store.
	KindAPI byte = 2
)

var (
	ErrCorrupt = errors.New("offcache: corrupt cache entry")
	magic4     = [...]byte{'O', 'F', 'F', 'C'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

func validKind(k byte) bool { return k == KindShell || k == KindAPI }

// Entry: magic(4) | ver(1) | kind(1) | storedAt unix-milli (u64 be) | vlen(u32 be) | payload(vlen)
//
// Framing is strict: trailing bytes after the payload make the entry corrupt.
func EncodeEntry(kind byte, storedAt time.Time, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 8 + 4 + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kind)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(storedAt.UnixMilli()))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

func DecodeEntry(b []byte) (kind byte, storedAt time.Time, payload []byte, err error) {
	const hdr = 4 + 1 + 1 + 8 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || !validKind(b[5]) {
		return 0, time.Time{}, nil, ErrCorrupt
	}
	kind = b[5]

	off := 6

	ms := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off { // strict: no trailing bytes
		return 0, time.Time{}, nil, ErrCorrupt
	}

	return kind, time.UnixMilli(int64(ms)).UTC(), b[off : off+vlen], nil
}

package wire

import (
	"bytes"
	"testing"
	"time"
)

func TestEntryRoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	payload := []byte(`{"sessions":[]}`)

	b := EncodeEntry(KindAPI, at, payload)

	kind, storedAt, got, err := DecodeEntry(b)
	if err != nil {
		t.Fatalf("DecodeEntry: %v", err)
	}
	if kind != KindAPI {
		t.Fatalf("kind = %d, want %d", kind, KindAPI)
	}
	if !storedAt.Equal(at) {
		t.Fatalf("storedAt = %v, want %v", storedAt, at)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: %q vs %q", got, payload)
	}
}

func TestEntryEmptyPayload(t *testing.T) {
	b := EncodeEntry(KindShell, time.Now(), nil)
	kind, _, payload, err := DecodeEntry(b)
	if err != nil {
		t.Fatalf("DecodeEntry: %v", err)
	}
	if kind != KindShell || len(payload) != 0 {
		t.Fatalf("kind=%d len=%d, want shell kind with empty payload", kind, len(payload))
	}
}

// DecodeEntry must reject trailing bytes (strict framing).
func TestDecodeEntryRejectsTrailing(t *testing.T) {
	b := EncodeEntry(KindShell, time.Now(), []byte("x"))
	b = append(b, 0xDE, 0xAD)
	if _, _, _, err := DecodeEntry(b); err == nil {
		t.Fatalf("DecodeEntry should reject trailing bytes")
	}
}

func TestDecodeEntryRejectsGarbage(t *testing.T) {
	cases := map[string][]byte{
		"empty":       nil,
		"short":       {'O', 'F', 'F'},
		"wrong_magic": append([]byte("XXXX"), EncodeEntry(KindAPI, time.Now(), []byte("v"))[4:]...),
		"bad_kind":    mutate(EncodeEntry(KindAPI, time.Now(), []byte("v")), 5, 0x7F),
		"bad_version": mutate(EncodeEntry(KindAPI, time.Now(), []byte("v")), 4, 99),
		"truncated":   EncodeEntry(KindAPI, time.Now(), []byte("value"))[:12],
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			if _, _, _, err := DecodeEntry(b); err == nil {
				t.Fatalf("DecodeEntry should fail on %s input", name)
			}
		})
	}
}

func mutate(b []byte, i int, v byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	out[i] = v
	return out
}

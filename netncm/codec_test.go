package netncm

import "testing"

func TestNTH16RoundTrip(t *testing.T) {
	h := nth16{HeaderLength: nthLen, Sequence: 7, BlockLength: 70, NdpIndex: 12}
	copy(h.Signature[:], nthSignature)

	got, err := decodeNTH16(encodeNTH16(h))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestNTH16InvalidSignature(t *testing.T) {
	buf := encodeNTH16(nth16{})
	copy(buf[0:4], "XXXX")
	if _, err := decodeNTH16(buf); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestNTH16TooShort(t *testing.T) {
	if _, err := decodeNTH16(make([]byte, 4)); err != ErrLengthMismatch {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestNDP16RoundTrip(t *testing.T) {
	n := ndp16{Entries: []ndpEntry{{Index: 28, Length: 42}}}
	copy(n.Signature[:], ndpSignature)

	buf := encodeNDP16(n)
	if len(buf) != 16 {
		t.Fatalf("encoded NDP length = %d, want 16", len(buf))
	}

	got, err := decodeNDP16(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Entries) != 1 || got.Entries[0] != n.Entries[0] {
		t.Fatalf("entries mismatch: got %+v", got.Entries)
	}
}

func TestNDP16MultipleEntriesStopAtSentinel(t *testing.T) {
	n := ndp16{Entries: []ndpEntry{{Index: 28, Length: 60}, {Index: 88, Length: 80}}}
	copy(n.Signature[:], ndpSignature)

	got, err := decodeNDP16(encodeNDP16(n))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(got.Entries))
	}
	if got.Entries[0].Length != 60 || got.Entries[1].Length != 80 {
		t.Fatalf("unexpected entries: %+v", got.Entries)
	}
}

func TestArpReplyLiteralBytes(t *testing.T) {
	// spec.md scenario 3: single-datagram TX of a 42-byte ARP reply.
	wantNTH := []byte{0x4E, 0x43, 0x4D, 0x48, 0x0C, 0x00, 0x01, 0x00, 0x46, 0x00, 0x0C, 0x00}
	wantNDP := []byte{0x4E, 0x43, 0x4D, 0x30, 0x10, 0x00, 0x00, 0x00, 0x1C, 0x00, 0x2A, 0x00, 0x00, 0x00, 0x00, 0x00}

	h := nth16{HeaderLength: nthLen, Sequence: 1, BlockLength: headerBlockLen + 42, NdpIndex: nthLen}
	copy(h.Signature[:], nthSignature)
	got := encodeNTH16(h)
	for i := range wantNTH {
		if got[i] != wantNTH[i] {
			t.Fatalf("NTH16 byte %d = %#x, want %#x (full: % x)", i, got[i], wantNTH[i], got)
		}
	}

	n := ndp16{Entries: []ndpEntry{{Index: headerBlockLen, Length: 42}}}
	copy(n.Signature[:], ndpSignature)
	gotN := encodeNDP16(n)
	if len(gotN) != len(wantNDP) {
		t.Fatalf("NDP16 length = %d, want %d", len(gotN), len(wantNDP))
	}
	for i := range wantNDP {
		if gotN[i] != wantNDP[i] {
			t.Fatalf("NDP16 byte %d = %#x, want %#x (full: % x)", i, gotN[i], wantNDP[i], gotN)
		}
	}
}

// Package netncm implements the NCM wire engine: reassembly of inbound
// NCM Transfer Blocks into Ethernet frames (rx.go), segmentation of
// outbound Ethernet frames into NTBs (tx.go), and the little-endian
// NTH16/NDP16 codec both directions share (this file).
package netncm

import (
	"encoding/binary"
	"errors"
)

var (
	// ErrInvalidSignature is returned by the codec when an NTH16 or
	// NDP16 signature does not match the expected 4-byte magic.
	ErrInvalidSignature = errors.New("netncm: invalid signature")
	// ErrLengthMismatch is returned when a decoded length field is
	// inconsistent with the buffer it was decoded from.
	ErrLengthMismatch = errors.New("netncm: length mismatch")
)

const (
	nthSignature = "NCMH"
	ndpSignature = "NCM0"

	nthLen       = 12 // NTH16 header length
	ndpHeaderLen = 8  // NDP16 fixed header length, before datagram entries
	entrySize    = 4  // one (index, length) u16 pair

	// headerBlockLen is the fixed NTH16+NDP16(one datagram)+sentinel
	// size this engine always uses on TX, since it only ever places a
	// single datagram per outbound NTB (spec's max_dgrams=1).
	headerBlockLen = nthLen + ndpHeaderLen + 2*entrySize // 0x1c == 28
)

// nth16 is the 12-byte NCM Transfer Header.
type nth16 struct {
	Signature    [4]byte
	HeaderLength uint16
	Sequence     uint16
	BlockLength  uint16
	NdpIndex     uint16
}

func encodeNTH16(h nth16) []byte {
	buf := make([]byte, nthLen)
	copy(buf[0:4], h.Signature[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.HeaderLength)
	binary.LittleEndian.PutUint16(buf[6:8], h.Sequence)
	binary.LittleEndian.PutUint16(buf[8:10], h.BlockLength)
	binary.LittleEndian.PutUint16(buf[10:12], h.NdpIndex)
	return buf
}

func decodeNTH16(buf []byte) (nth16, error) {
	var h nth16
	if len(buf) < nthLen {
		return h, ErrLengthMismatch
	}
	copy(h.Signature[:], buf[0:4])
	if string(h.Signature[:]) != nthSignature {
		return h, ErrInvalidSignature
	}
	h.HeaderLength = binary.LittleEndian.Uint16(buf[4:6])
	h.Sequence = binary.LittleEndian.Uint16(buf[6:8])
	h.BlockLength = binary.LittleEndian.Uint16(buf[8:10])
	h.NdpIndex = binary.LittleEndian.Uint16(buf[10:12])
	return h, nil
}

// ndpEntry is one (index, length) datagram pointer.
type ndpEntry struct {
	Index  uint16
	Length uint16
}

// ndp16 is the NCM Datagram Pointer Table: its fixed header plus a list
// of entries, terminated on the wire by a (0,0) sentinel that is not
// included in Entries.
type ndp16 struct {
	Signature    [4]byte
	Length       uint16
	NextNdpIndex uint16
	Entries      []ndpEntry
}

func encodeNDP16(n ndp16) []byte {
	total := ndpHeaderLen + (len(n.Entries)+1)*entrySize
	buf := make([]byte, total)
	copy(buf[0:4], n.Signature[:])
	binary.LittleEndian.PutUint16(buf[4:6], uint16(total))
	binary.LittleEndian.PutUint16(buf[6:8], n.NextNdpIndex)
	off := ndpHeaderLen
	for _, e := range n.Entries {
		binary.LittleEndian.PutUint16(buf[off:off+2], e.Index)
		binary.LittleEndian.PutUint16(buf[off+2:off+4], e.Length)
		off += entrySize
	}
	// trailing (0,0) sentinel already zero from make().
	return buf
}

// decodeNDP16 parses the NDP16 at the start of buf. Entries are read
// until a (0,0) sentinel pair or the end of the table as given by its
// own length field, whichever comes first — callers pass the full
// remainder of the NTB from ndp_index onward, which may be longer than
// the NDP table itself.
func decodeNDP16(buf []byte) (ndp16, error) {
	var n ndp16
	if len(buf) < ndpHeaderLen {
		return n, ErrLengthMismatch
	}
	copy(n.Signature[:], buf[0:4])
	if string(n.Signature[:]) != ndpSignature {
		return n, ErrInvalidSignature
	}
	n.Length = binary.LittleEndian.Uint16(buf[4:6])
	n.NextNdpIndex = binary.LittleEndian.Uint16(buf[6:8])

	if int(n.Length) < ndpHeaderLen || int(n.Length) > len(buf) {
		return n, ErrLengthMismatch
	}

	for off := ndpHeaderLen; off+entrySize <= int(n.Length); off += entrySize {
		idx := binary.LittleEndian.Uint16(buf[off : off+2])
		ln := binary.LittleEndian.Uint16(buf[off+2 : off+4])
		if idx == 0 && ln == 0 {
			break
		}
		n.Entries = append(n.Entries, ndpEntry{Index: idx, Length: ln})
	}
	return n, nil
}

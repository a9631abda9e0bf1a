// Package dhcp implements a minimal on-device DHCPv4 server: one
// subnet, DISCOVER/OFFER and REQUEST/ACK only, a fixed lease pool keyed
// by client MAC address.
package dhcp

import (
	"encoding/binary"
	"fmt"
	"log"
	"net"
)

// UDP ports (RFC 2131).
const (
	ServerPort = 67
	ClientPort = 68
)

const (
	opBootRequest = 1
	opBootReply   = 2

	htypeEthernet = 1
	hlenEthernet  = 6

	magicCookie = 0x63825363
)

// Option codes used by this server (dhcp.rs's DhcpOptionTypes).
const (
	optPad          = 0
	optSubnetMask   = 1
	optRouter       = 3
	optDNSServer    = 6
	optRequestedIP  = 50
	optLeaseTime    = 51
	optMsgType      = 53
	optServerID     = 54
	optEnd          = 255
)

// Message types (dhcp.rs's DhcpMsgTypes).
const (
	msgDiscover = 1
	msgOffer    = 2
	msgRequest  = 3
	msgAck      = 5
)

// Config fixes the addressing parameters spec.md assigns to the
// device's single subnet.
type Config struct {
	ServerIP   [4]byte
	Subnet     [4]byte
	Router     [4]byte
	DNS        [4]byte
	RangeStart [4]byte // first leasable address, inclusive
	RangeEnd   [4]byte // last leasable address, inclusive
	LeaseTime  uint32  // seconds
}

// DefaultConfig matches spec.md §6: device 192.168.69.1/24, gateway
// 192.168.69.100, lease pool 192.168.69.[5..132], 86400s leases.
func DefaultConfig() Config {
	return Config{
		ServerIP:   [4]byte{192, 168, 69, 1},
		Subnet:     [4]byte{255, 255, 255, 0},
		Router:     [4]byte{192, 168, 69, 100},
		DNS:        [4]byte{192, 168, 69, 1},
		RangeStart: [4]byte{192, 168, 69, 5},
		RangeEnd:   [4]byte{192, 168, 69, 132},
		LeaseTime:  86400,
	}
}

// Server hands out leases by client MAC, reusing the same address across
// a DISCOVER/OFFER then REQUEST/ACK pair or a renewal, exactly as
// dhcp.rs's create_lease does.
type Server struct {
	cfg       Config
	allocated map[[6]byte][4]byte
	nextAddr  uint32 // next unallocated address, as a big-endian uint32
}

func New(cfg Config) *Server {
	return &Server{
		cfg:       cfg,
		allocated: make(map[[6]byte][4]byte),
		nextAddr:  binary.BigEndian.Uint32(cfg.RangeStart[:]),
	}
}

// createLease returns the IPv4 address leased to mac, allocating a fresh
// one from the pool on first request. Mirrors dhcp.rs: a MAC that
// already holds a lease gets the same address back; the pool is a
// simple bump allocator within [RangeStart, RangeEnd].
func (s *Server) createLease(mac [6]byte) ([4]byte, bool) {
	if addr, ok := s.allocated[mac]; ok {
		return addr, true
	}

	end := binary.BigEndian.Uint32(s.cfg.RangeEnd[:])
	if s.nextAddr > end {
		return [4]byte{}, false // pool exhausted
	}

	var addr [4]byte
	binary.BigEndian.PutUint32(addr[:], s.nextAddr)
	s.nextAddr++
	s.allocated[mac] = addr
	return addr, true
}

// msg is the fixed-layout DHCP message body (RFC 2131 figure 1),
// decoded/encoded by hand exactly as the teacher hand-codes every wire
// struct; DHCP has no variable-length fixed section, only the trailing
// options list this server appends itself.
type msg struct {
	op      uint8
	htype   uint8
	hlen    uint8
	hops    uint8
	xid     uint32
	secs    uint16
	flags   uint16
	ciaddr  [4]byte
	yiaddr  [4]byte
	siaddr  [4]byte
	giaddr  [4]byte
	chaddr  [6]byte
	msgType uint8
}

func decodeMsg(buf []byte) (msg, error) {
	var m msg
	if len(buf) < 240 {
		return m, fmt.Errorf("dhcp: packet too short (%d bytes)", len(buf))
	}
	m.op = buf[0]
	m.htype = buf[1]
	m.hlen = buf[2]
	m.hops = buf[3]
	m.xid = binary.BigEndian.Uint32(buf[4:8])
	m.secs = binary.BigEndian.Uint16(buf[8:10])
	m.flags = binary.BigEndian.Uint16(buf[10:12])
	copy(m.ciaddr[:], buf[12:16])
	copy(m.giaddr[:], buf[24:28])
	copy(m.chaddr[:], buf[28:34])

	cookie := binary.BigEndian.Uint32(buf[236:240])
	if cookie != magicCookie {
		return m, fmt.Errorf("dhcp: bad magic cookie")
	}

	for i := 240; i < len(buf); {
		code := buf[i]
		if code == optEnd {
			break
		}
		if code == optPad {
			i++
			continue
		}
		if i+1 >= len(buf) {
			break
		}
		ln := int(buf[i+1])
		if i+2+ln > len(buf) {
			return m, fmt.Errorf("dhcp: option %d overruns packet", code)
		}
		val := buf[i+2 : i+2+ln]
		if code == optMsgType && ln == 1 {
			m.msgType = val[0]
		}
		i += 2 + ln
	}
	return m, nil
}

// Recv processes one received DHCP client message and returns the reply
// to send back (server port to client port), or ok=false if the message
// should be ignored (wrong op/htype/malformed/no type option).
func (s *Server) Recv(buf []byte) (reply []byte, ok bool) {
	m, err := decodeMsg(buf)
	if err != nil {
		log.Printf("dhcp: %v", err)
		return nil, false
	}
	if m.op != opBootRequest || m.htype != htypeEthernet || m.hlen != hlenEthernet {
		return nil, false
	}

	switch m.msgType {
	case msgDiscover:
		addr, ok := s.createLease(m.chaddr)
		if !ok {
			log.Printf("dhcp: lease pool exhausted, ignoring DISCOVER from %s", net.HardwareAddr(m.chaddr[:]))
			return nil, false
		}
		return s.buildReply(m, msgOffer, addr), true
	case msgRequest:
		addr, ok := s.createLease(m.chaddr)
		if !ok {
			return nil, false
		}
		return s.buildReply(m, msgAck, addr), true
	default:
		return nil, false
	}
}

func (s *Server) buildReply(req msg, msgType uint8, yiaddr [4]byte) []byte {
	buf := make([]byte, 240)
	buf[0] = opBootReply
	buf[1] = htypeEthernet
	buf[2] = hlenEthernet
	binary.BigEndian.PutUint32(buf[4:8], req.xid)
	copy(buf[16:20], yiaddr[:])
	copy(buf[20:24], s.cfg.ServerIP[:])
	copy(buf[28:34], req.chaddr[:])
	binary.BigEndian.PutUint32(buf[236:240], magicCookie)

	buf = appendOpt(buf, optMsgType, []byte{msgType})
	buf = appendOpt(buf, optServerID, s.cfg.ServerIP[:])
	buf = appendOpt(buf, optSubnetMask, s.cfg.Subnet[:])
	buf = appendOpt(buf, optRouter, s.cfg.Router[:])
	leaseBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(leaseBytes, s.cfg.LeaseTime)
	buf = appendOpt(buf, optLeaseTime, leaseBytes)
	buf = appendOpt(buf, optDNSServer, s.cfg.DNS[:])
	buf = append(buf, optEnd)
	return buf
}

func appendOpt(buf []byte, code byte, val []byte) []byte {
	buf = append(buf, code, byte(len(val)))
	return append(buf, val...)
}

package pinger

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// IPv4Header is a read-only view of a received IPv4 header.
//
//	0               8               16                              31
//	+-------+-------+---------------+-------------------------------+
//	|version|  IHL  |      TOS      |          total length         |
//	+-------+-------+---------------+-----+-------------------------+
//	|        identification         |flags|     fragment offset     |
//	+---------------+---------------+-----+-------------------------+
//	|      TTL      |   protocol    |        header checksum        |
//	+---------------+---------------+-------------------------------+
//	|                        source address                         |
//	+---------------------------------------------------------------+
//	|                      destination address                      |
//	+---------------------------------------------------------------+
//	/                      options (0 - 40 bytes)                   /
//	+---------------------------------------------------------------+
type IPv4Header struct {
	Version  int
	Len      int // header length in bytes, options included
	TOS      int
	TotalLen int
	ID       int
	Flags    int // 3 bits: reserved, DF, MF
	FragOff  int
	TTL      int
	Protocol int
	Checksum int
	Src      netip.Addr
	Dst      netip.Addr
	Options  []byte
}

const (
	flagDontFragment  = 0x2
	flagMoreFragments = 0x1
)

func (h *IPv4Header) DontFragment() bool {
	return h.Flags&flagDontFragment != 0
}

func (h *IPv4Header) MoreFragments() bool {
	return h.Flags&flagMoreFragments != 0
}

func (h *IPv4Header) String() string {
	return fmt.Sprintf("ver=%d hdrlen=%d tos=%#x totallen=%d id=%#x flags=%#x fragoff=%#x ttl=%d proto=%d cksum=%#x src=%v dst=%v",
		h.Version, h.Len, h.TOS, h.TotalLen, h.ID, h.Flags, h.FragOff, h.TTL, h.Protocol, h.Checksum, h.Src, h.Dst)
}

// ParseIPv4Header decodes the IPv4 header at the start of b.
// The next layer starts at b[h.Len:].
func ParseIPv4Header(b []byte) (*IPv4Header, error) {
	if len(b) < IPv4HeaderLen {
		return nil, ErrHeaderTooShort
	}

	version := int(b[0] >> 4)
	if version != 4 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, version)
	}

	hdrlen := int(b[0]&0x0f) << 2
	if hdrlen < IPv4HeaderLen || hdrlen > IPv4MaxHeaderLen {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHeaderLen, hdrlen)
	}
	if len(b) < hdrlen {
		return nil, fmt.Errorf("%w: header length %d, have %d bytes", ErrTruncated, hdrlen, len(b))
	}

	frag := int(binary.BigEndian.Uint16(b[6:8]))
	h := &IPv4Header{
		Version:  version,
		Len:      hdrlen,
		TOS:      int(b[1]),
		TotalLen: int(binary.BigEndian.Uint16(b[2:4])),
		ID:       int(binary.BigEndian.Uint16(b[4:6])),
		Flags:    frag >> 13,
		FragOff:  frag & 0x1fff,
		TTL:      int(b[8]),
		Protocol: int(b[9]),
		Checksum: int(binary.BigEndian.Uint16(b[10:12])),
		Src:      netip.AddrFrom4(*(*[4]byte)(b[12:16])),
		Dst:      netip.AddrFrom4(*(*[4]byte)(b[16:20])),
	}
	if hdrlen > IPv4HeaderLen {
		h.Options = make([]byte, hdrlen-IPv4HeaderLen)
		copy(h.Options, b[IPv4HeaderLen:hdrlen])
	}

	return h, nil
}

// ICMPHeader is the fixed 8 byte ICMP header.
//
//	0               8               16                              31
//	+---------------+---------------+-------------------------------+
//	|     type      |     code      |           checksum            |
//	+---------------+---------------+-------------------------------+
//	|          identifier           |        sequence number        |
//	+-------------------------------+-------------------------------+
type ICMPHeader struct {
	Type     uint8
	Code     uint8
	Checksum uint16
	ID       uint16
	Seq      uint16
}

// Marshal appends the wire form of h to b.
func (h *ICMPHeader) Marshal(b []byte) []byte {
	var raw [ICMPHeaderLen]byte
	raw[0] = h.Type
	raw[1] = h.Code
	binary.BigEndian.PutUint16(raw[2:4], h.Checksum)
	binary.BigEndian.PutUint16(raw[4:6], h.ID)
	binary.BigEndian.PutUint16(raw[6:8], h.Seq)
	return append(b, raw[:]...)
}

// ParseICMPHeader reads the header fields verbatim. The checksum is not verified.
func ParseICMPHeader(b []byte) (*ICMPHeader, error) {
	if len(b) < ICMPHeaderLen {
		return nil, fmt.Errorf("%w: icmp header needs %d bytes, have %d", ErrHeaderTooShort, ICMPHeaderLen, len(b))
	}
	return &ICMPHeader{
		Type:     b[0],
		Code:     b[1],
		Checksum: binary.BigEndian.Uint16(b[2:4]),
		ID:       binary.BigEndian.Uint16(b[4:6]),
		Seq:      binary.BigEndian.Uint16(b[6:8]),
	}, nil
}

// SetChecksum computes the checksum over h and body and stores it in h.
func (h *ICMPHeader) SetChecksum(body []byte) {
	h.Checksum = Checksum(h, body)
}

// ValidChecksum reports whether the stored checksum matches h and body.
func (h *ICMPHeader) ValidChecksum(body []byte) bool {
	return h.Checksum == Checksum(h, body)
}

// Checksum is the Internet checksum of an ICMP message.
// The checksum field of h is not part of the sum.
func Checksum(h *ICMPHeader, body []byte) uint16 {
	sum := uint32(h.Type)<<8 + uint32(h.Code) + uint32(h.ID) + uint32(h.Seq)

	for i := 0; i < len(body); i += 2 {
		sum += uint32(body[i]) << 8
		if i+1 < len(body) {
			sum += uint32(body[i+1])
		}
	}

	sum = (sum >> 16) + (sum & 0xffff)
	sum += sum >> 16
	return ^uint16(sum)
}

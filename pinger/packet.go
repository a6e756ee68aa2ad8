package pinger

import (
	"net/netip"
)

// Packet is a raw datagram on its way to or from the socket
type Packet struct {
	Bytes []byte
	Len   int
	Addr  netip.Addr
	Seq   uint16
}

// Reply is a parsed inbound datagram
type Reply struct {
	Src  netip.Addr
	Dst  netip.Addr
	TTL  int
	Type uint8
	Code uint8
	ID   uint16
	Seq  uint16
	Body []byte
}

// IsEchoReply reports whether r answers echo request id/seq
func (r *Reply) IsEchoReply(id, seq uint16) bool {
	return r.Type == TypeEchoReply && r.ID == id && r.Seq == seq
}

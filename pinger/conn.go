package pinger

import "net/netip"

// Conn is a raw ICMP socket. ReadPacket returns whole IPv4 datagrams, IP
// header included; WriteTo takes an ICMP message and lets the kernel build
// the IP header. Close must unblock a pending ReadPacket.
type Conn interface {
	WriteTo(b []byte, dst netip.Addr) (int, error)
	ReadPacket(b []byte) (int, error)
	Close() error
}

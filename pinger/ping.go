package pinger

import (
	"net/netip"
)

// NewPinger returns a new Pinger instance
func NewPinger(id uint16) *Pinger {
	return &Pinger{
		Body: DefaultBody,
		id:   id,
	}
}

// Pinger builds echo requests for a single target and parses what comes back.
type Pinger struct {
	// Body is the echo request payload
	Body []byte

	ipaddr netip.Addr
	id     uint16
	conn   Conn
}

// SetIPAddr sets the ip address of the target host.
func (p *Pinger) SetIPAddr(addr netip.Addr) {
	p.ipaddr = addr
}

// IPAddr returns the ip address of the target host.
func (p *Pinger) IPAddr() netip.Addr {
	return p.ipaddr
}

// Addr returns the string ip address of the target host.
func (p *Pinger) Addr() string {
	if p.ipaddr.IsValid() {
		return p.ipaddr.String()
	}
	return ""
}

// ID returns the ICMP identifier stamped into every request.
func (p *Pinger) ID() uint16 {
	return p.id
}

// SetConn attaches the socket used for sending and receiving. nil detaches it.
func (p *Pinger) SetConn(c Conn) {
	p.conn = c
}

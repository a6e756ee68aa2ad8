package pinger

import (
	"errors"
	"syscall"
)

// SendICMP prepares and sends echo request seq to the target
func (p *Pinger) SendICMP(seq uint16) error {
	pkt, err := p.PrepareICMP(seq)
	if err != nil {
		return err
	}

	return p.SendPacket(pkt)
}

func (p *Pinger) PrepareICMP(seq uint16) (*Packet, error) {
	if !p.ipaddr.Is4() {
		return nil, ErrInvalidAddr
	}

	hdr := ICMPHeader{
		Type: TypeEchoRequest,
		Code: 0,
		ID:   p.id,
		Seq:  seq,
	}
	hdr.SetChecksum(p.Body)

	b := make([]byte, 0, ICMPHeaderLen+len(p.Body))
	b = hdr.Marshal(b)
	b = append(b, p.Body...)

	return &Packet{
		Bytes: b,
		Len:   len(b),
		Addr:  p.ipaddr,
		Seq:   seq,
	}, nil
}

func (p *Pinger) SendPacket(pkt *Packet) error {
	var err error

	if p.conn == nil {
		return ErrInvalidConn
	}

	// Some retries in case of ENOBUFS may occure
	// Do not retry infinitely
	for tries := sendRetries; tries > 0; tries-- {
		_, err = p.conn.WriteTo(pkt.Bytes[:pkt.Len], pkt.Addr)
		if errors.Is(err, syscall.ENOBUFS) {
			continue
		}
		break
	}

	return err
}

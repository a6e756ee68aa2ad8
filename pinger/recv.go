package pinger

// RecvPacket blocks until a datagram arrives or the connection is closed.
func (p *Pinger) RecvPacket() (*Packet, error) {
	if p.conn == nil {
		return nil, ErrInvalidConn
	}

	b := make([]byte, recvBufferSize)
	n, err := p.conn.ReadPacket(b)
	if err != nil {
		return nil, err
	}

	return &Packet{Bytes: b, Len: n}, nil
}

// ParsePacket decodes an IPv4 header followed by an ICMP header.
func (p *Pinger) ParsePacket(recv *Packet) (*Reply, error) {
	b := recv.Bytes[:recv.Len]

	ip, err := ParseIPv4Header(b)
	if err != nil {
		return nil, err
	}

	hdr, err := ParseICMPHeader(b[ip.Len:])
	if err != nil {
		return nil, err
	}

	return &Reply{
		Src:  ip.Src,
		Dst:  ip.Dst,
		TTL:  ip.TTL,
		Type: hdr.Type,
		Code: hdr.Code,
		ID:   hdr.ID,
		Seq:  hdr.Seq,
		Body: b[ip.Len+ICMPHeaderLen:],
	}, nil
}

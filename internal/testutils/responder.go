package testutils

import (
	"encoding/binary"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Request is an echo request seen by the Responder
type Request struct {
	Dst      netip.Addr
	Type     uint8
	ID       uint16
	Seq      uint16
	Checksum uint16
	// Checksum matches the one gopacket computes for the same message
	Valid   bool
	Payload []byte
	At      time.Time
}

// Responder is an in-memory raw ICMP socket that answers echo requests the
// way a remote host and the local IP stack would: every reply is delivered as
// a full IPv4 datagram, header included.
type Responder struct {
	// Local is the destination address of delivered replies
	Local netip.Addr
	// Drop keeps the responder silent for a request
	Drop func(dst netip.Addr, seq uint16) bool
	// Mangle may rewrite a reply before it is delivered
	Mangle func(reply *layers.ICMPv4)
	// Noise delivers foreign and malformed traffic ahead of every reply
	Noise bool
	// Duplicate delivers every reply twice
	Duplicate bool
	// Delay postpones delivery of replies
	Delay time.Duration
	// WriteErr is returned from WriteTo once FailAfter requests were accepted
	WriteErr  error
	FailAfter int
	// ReadErr is returned from ReadPacket instead of waiting for traffic
	ReadErr error

	mu       sync.Mutex
	requests []Request
	rx       chan []byte
	done     chan struct{}
	once     sync.Once
}

func NewResponder() *Responder {
	return &Responder{
		Local: netip.MustParseAddr("127.0.0.1"),
		rx:    make(chan []byte, 256),
		done:  make(chan struct{}),
	}
}

func (r *Responder) WriteTo(b []byte, dst netip.Addr) (int, error) {
	if r.Closed() {
		return 0, net.ErrClosed
	}

	r.mu.Lock()
	if r.WriteErr != nil && len(r.requests) >= r.FailAfter {
		r.mu.Unlock()
		return 0, r.WriteErr
	}

	var req layers.ICMPv4
	if err := req.DecodeFromBytes(b, gopacket.NilDecodeFeedback); err != nil {
		r.mu.Unlock()
		return 0, err
	}
	payload := append([]byte(nil), req.Payload...)
	r.requests = append(r.requests, Request{
		Dst:      dst,
		Type:     req.TypeCode.Type(),
		ID:       req.Id,
		Seq:      req.Seq,
		Checksum: req.Checksum,
		Valid:    gopacketChecksum(req.TypeCode, req.Id, req.Seq, payload) == req.Checksum,
		Payload:  payload,
		At:       time.Now(),
	})
	r.mu.Unlock()

	if r.Drop != nil && r.Drop(dst, req.Seq) {
		return len(b), nil
	}

	var out [][]byte
	if r.Noise {
		out = append(out, r.noise(dst, req.Id, req.Seq, payload)...)
	}

	reply := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoReply, 0),
		Id:       req.Id,
		Seq:      req.Seq,
	}
	if r.Mangle != nil {
		r.Mangle(reply)
	}
	pkt, err := BuildDatagram(dst, r.Local, reply, payload)
	if err != nil {
		return 0, err
	}
	out = append(out, pkt)
	if r.Duplicate {
		out = append(out, pkt)
	}

	if r.Delay > 0 {
		time.AfterFunc(r.Delay, func() { r.deliver(out...) })
	} else {
		r.deliver(out...)
	}
	return len(b), nil
}

// noise is what a busy raw socket sees besides our own replies
func (r *Responder) noise(dst netip.Addr, id, seq uint16, payload []byte) [][]byte {
	var out [][]byte
	add := func(icmp *layers.ICMPv4) {
		if pkt, err := BuildDatagram(dst, r.Local, icmp, payload); err == nil {
			out = append(out, pkt)
		}
	}

	// loopback copy of the request itself
	add(&layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0), Id: id, Seq: seq})
	// another process pinging the same host
	add(&layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoReply, 0), Id: id + 1, Seq: seq})
	// late answer to an older probe
	add(&layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoReply, 0), Id: id, Seq: seq - 1})
	// unreachable for somebody else
	add(&layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeDestinationUnreachable, layers.ICMPv4CodeHost), Id: id, Seq: seq})

	out = append(out, MalformedDatagrams()...)
	return out
}

func (r *Responder) deliver(pkts ...[]byte) {
	for _, p := range pkts {
		select {
		case r.rx <- p:
		case <-r.done:
			return
		}
	}
}

// Inject queues a raw datagram for the reader
func (r *Responder) Inject(pkt []byte) {
	r.deliver(pkt)
}

func (r *Responder) ReadPacket(b []byte) (int, error) {
	if r.ReadErr != nil {
		return 0, r.ReadErr
	}

	select {
	case p := <-r.rx:
		return copy(b, p), nil
	case <-r.done:
		return 0, net.ErrClosed
	}
}

func (r *Responder) Close() error {
	r.once.Do(func() { close(r.done) })
	return nil
}

func (r *Responder) Closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Requests returns the echo requests written so far
func (r *Responder) Requests() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Request(nil), r.requests...)
}

// BuildDatagram serializes an IPv4 datagram carrying icmp and payload,
// checksums and lengths filled in by gopacket.
func BuildDatagram(src, dst netip.Addr, icmp *layers.ICMPv4, payload []byte) ([]byte, error) {
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    src.AsSlice(),
		DstIP:    dst.AsSlice(),
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, icmp, gopacket.Payload(payload)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MalformedDatagrams are datagrams a header decoder must reject
func MalformedDatagrams() [][]byte {
	ipv6 := make([]byte, 48)
	ipv6[0] = 0x60

	shortIHL := make([]byte, 28)
	shortIHL[0] = 0x43

	longIHL := make([]byte, 28)
	longIHL[0] = 0x4f // 60 bytes of header announced, 28 present

	return [][]byte{
		ipv6,
		shortIHL,
		longIHL,
		{0x45, 0x00, 0x00, 0x0a},
		{},
	}
}

func gopacketChecksum(tc layers.ICMPv4TypeCode, id, seq uint16, payload []byte) uint16 {
	check := &layers.ICMPv4{TypeCode: tc, Id: id, Seq: seq}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, check, gopacket.Payload(payload)); err != nil {
		return 0
	}
	return binary.BigEndian.Uint16(buf.Bytes()[2:4])
}

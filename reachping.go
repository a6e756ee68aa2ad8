// Package reachping decides whether an IPv4 host is reachable by sending a
// handful of ICMP echo requests over a raw socket and requiring a strict
// majority of them to be answered.
//
// A single probe run is a Session: one goroutine sends a request, waits for
// its timeout and sends the next one, another goroutine reads the socket and
// counts replies that carry the session identifier and the current sequence
// number. Closing the socket ends both.
package reachping

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"
	"net/netip"
	"sync"
	"time"

	"github.com/drgkaleda/go-reachping/internal/logger"
	"github.com/drgkaleda/go-reachping/pinger"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// ListenFunc opens the raw socket a session probes through
type ListenFunc func(ttl int) (pinger.Conn, error)

// Process wide identifier allocator. Randomly seeded so that two processes
// probing the same host are unlikely to collide, incremented per session so
// that sessions inside one process never do.
var lastID = atomic.NewUint32(uint32(rand.New(rand.NewSource(time.Now().UnixNano())).Intn(0xffff)))

func nextID() uint16 {
	return uint16(lastID.Inc())
}

// Result of a finished session
type Result struct {
	Addr      netip.Addr
	Count     int
	Sent      int
	Replies   int
	Reachable bool
	// Err is the transport fault that ended the run early, if any
	Err error
}

// Session is a single probe run against one destination.
type Session struct {
	sync.Mutex

	// Count of echo requests to send. Values below MinCount are raised to MinCount.
	Count int

	// Interval is the timeout of every probe, and thus the spacing between them.
	Interval time.Duration

	// TTL of outgoing requests
	TTL int

	// Listen opens the socket. Defaults to a privileged raw socket.
	Listen ListenFunc

	dst    netip.Addr
	pinger *pinger.Pinger
	conn   pinger.Conn
	closed *atomic.Bool

	// guarded by the embedded mutex
	state    State
	count    int
	interval time.Duration
	sequence uint16 // last sent sequence number, 0 before the first send
	answered uint16 // last sequence number that got a verified reply
	sent     int
	replies  int
	sentAt   time.Time
}

// NewSession prepares a probe run against addr with default settings.
func NewSession(addr netip.Addr) *Session {
	id := nextID()
	s := &Session{
		Count:    DefaultCount,
		Interval: DefaultInterval,
		TTL:      DefaultTTL,
		Listen:   pinger.ListenRaw,

		dst:    addr.Unmap(),
		pinger: pinger.NewPinger(id),
		closed: atomic.NewBool(false),
	}
	s.pinger.SetIPAddr(s.dst)
	return s
}

// ID returns the ICMP identifier of this session
func (s *Session) ID() uint16 {
	return s.pinger.ID()
}

// Addr returns the destination
func (s *Session) Addr() netip.Addr {
	return s.dst
}

// State returns where the run currently is
func (s *Session) State() State {
	s.Lock()
	defer s.Unlock()
	return s.state
}

// Run probes the destination and blocks until all probes are sent and the last
// one timed out, a transport fault occurs or ctx is cancelled. The Result is
// always filled in; the error reports a fault in the probing itself, never a
// silent host. A Session can be run only once.
func (s *Session) Run(ctx context.Context) (Result, error) {
	err := s.start()
	if err != nil {
		return s.result(err), err
	}
	defer s.cleanup()

	logger.Debug().Printf("probing %s id=%d count=%d interval=%v", s.dst, s.ID(), s.count, s.interval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.sendLoop(gctx)
	})
	g.Go(func() error {
		return s.recvLoop()
	})
	err = g.Wait()

	res := s.result(err)
	logger.Debug().Printf("probed %s id=%d sent=%d replies=%d reachable=%v err=%v",
		s.dst, s.ID(), res.Sent, res.Replies, res.Reachable, err)
	return res, err
}

func (s *Session) start() error {
	s.Lock()
	defer s.Unlock()

	if s.state != StateIdle || s.closed.Load() {
		return ErrRunning
	}
	if !s.dst.Is4() {
		s.state = StateDone
		return fmt.Errorf("%w: %v", ErrInvalidAddr, s.dst)
	}

	s.count = clampCount(s.Count)
	s.interval = s.Interval
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}

	listen := s.Listen
	if listen == nil {
		listen = pinger.ListenRaw
	}
	conn, err := listen(s.TTL)
	if err != nil {
		s.state = StateDone
		s.closed.Store(true)
		return fmt.Errorf("open raw socket: %w", err)
	}

	s.conn = conn
	s.pinger.SetConn(conn)
	return nil
}

// close is the only way a run gets cancelled. It unblocks the listener and
// stops the sender; calling it again is a no-op.
func (s *Session) close() {
	if s.closed.Swap(true) {
		return
	}

	s.Lock()
	s.state = StateDone
	s.Unlock()

	if s.conn != nil {
		s.conn.Close()
	}
}

// cleanup cannot be done in close, because the other loop may still be using the conn
func (s *Session) cleanup() {
	s.close()
	s.pinger.SetConn(nil)
	s.conn = nil
}

func (s *Session) result(err error) Result {
	s.Lock()
	defer s.Unlock()

	count := s.count
	if count == 0 {
		count = clampCount(s.Count)
	}
	return Result{
		Addr:      s.dst,
		Count:     count,
		Sent:      s.sent,
		Replies:   s.replies,
		Reachable: Reachable(s.replies, count),
		Err:       err,
	}
}

func clampCount(count int) int {
	if count < MinCount {
		return MinCount
	}
	if count > MaxCount {
		return MaxCount
	}
	return count
}

// Reachable reports whether replies is a strict majority of count.
func Reachable(replies, count int) bool {
	return replies > count/2
}

// AddrFromUint32 converts a host-order 32 bit IPv4 address, 0x7f000001 being 127.0.0.1.
func AddrFromUint32(address uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], address)
	return netip.AddrFrom4(b)
}

// Probe sends count echo requests to address, interval milliseconds apart, and
// reports whether more than half of them were answered. Any fault in the
// probing itself is reported as unreachable.
func Probe(address uint32, count int, intervalMs int) bool {
	s := NewSession(AddrFromUint32(address))
	s.Count = count
	s.Interval = time.Duration(intervalMs) * time.Millisecond

	res, err := s.Run(context.Background())
	if err != nil {
		logger.Warning().Printf("probe %s: %v", res.Addr, err)
	}
	return res.Reachable
}

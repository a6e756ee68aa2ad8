package reachping

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"testing"

	"github.com/drgkaleda/go-reachping/internal/testutils"
	"github.com/drgkaleda/go-reachping/pinger"
	"github.com/google/go-cmp/cmp"
)

type collector struct {
	calls   int
	results []Result
}

func (c *collector) ProbeProcess(results []Result) {
	c.calls++
	c.results = results
}

func TestMultiProbe(t *testing.T) {
	alive := netip.MustParseAddr("192.0.2.1")
	silent := netip.MustParseAddr("192.0.2.2")
	flaky := netip.MustParseAddr("192.0.2.3")
	another := netip.MustParseAddr("192.0.2.4")

	var mu sync.Mutex
	var responders []*testutils.Responder
	ids := map[uint16]bool{}

	listen := func(int) (pinger.Conn, error) {
		r := testutils.NewResponder()
		r.Drop = func(dst netip.Addr, seq uint16) bool {
			switch dst {
			case silent:
				return true
			case flaky:
				return seq%2 == 0
			default:
				return false
			}
		}
		mu.Lock()
		responders = append(responders, r)
		mu.Unlock()
		return r, nil
	}

	c := &collector{}
	mp := NewMultiProbe(c)
	mp.Count = 4
	mp.Interval = testInterval
	mp.Workers = 2
	mp.Listen = func(ttl int) (pinger.Conn, error) {
		if ttl != DefaultTTL {
			t.Errorf("ttl %d not passed on", ttl)
		}
		return listen(ttl)
	}

	addrs := []netip.Addr{alive, silent, flaky, another}
	results := mp.Probe(context.Background(), addrs...)

	if c.calls != 1 {
		t.Fatalf("client called %d times", c.calls)
	}
	if diff := cmp.Diff(results, c.results, resultCmp...); diff != "" {
		t.Errorf("client got other results (-returned +client):\n%s", diff)
	}

	want := []Result{
		{Addr: alive, Count: 4, Sent: 4, Replies: 4, Reachable: true},
		{Addr: silent, Count: 4, Sent: 4, Replies: 0, Reachable: false},
		{Addr: flaky, Count: 4, Sent: 4, Replies: 2, Reachable: false},
		{Addr: another, Count: 4, Sent: 4, Replies: 4, Reachable: true},
	}
	if diff := cmp.Diff(want, results, resultCmp...); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}

	if len(responders) != len(addrs) {
		t.Fatalf("expected one socket per destination, got %d", len(responders))
	}
	for _, r := range responders {
		if !r.Closed() {
			t.Error("socket left open")
		}
		reqs := r.Requests()
		if len(reqs) == 0 {
			t.Fatal("socket never used")
		}
		id := reqs[0].ID
		if ids[id] {
			t.Errorf("identifier %d shared between sessions", id)
		}
		ids[id] = true
		for _, req := range reqs {
			if req.ID != id || req.Dst != reqs[0].Dst {
				t.Errorf("socket shared between sessions: %+v", req)
			}
		}
	}
}

func TestMultiProbeFaultIsolation(t *testing.T) {
	bad := netip.MustParseAddr("192.0.2.66")
	good := netip.MustParseAddr("192.0.2.1")
	fault := errors.New("no route")

	mp := NewMultiProbe(nil)
	mp.Count = 2
	mp.Interval = testInterval
	mp.Listen = func(int) (pinger.Conn, error) {
		return &routedConn{Responder: testutils.NewResponder(), fail: bad, err: fault}, nil
	}

	results := mp.Probe(context.Background(), bad, good, netip.MustParseAddr("2001:db8::1"))

	if !errors.Is(results[0].Err, fault) || results[0].Reachable {
		t.Errorf("bad destination: %+v", results[0])
	}
	if results[1].Err != nil || !results[1].Reachable || results[1].Replies != 2 {
		t.Errorf("good destination affected: %+v", results[1])
	}
	if !errors.Is(results[2].Err, ErrInvalidAddr) {
		t.Errorf("IPv6 destination: %+v", results[2])
	}
}

func TestMultiProbeEmpty(t *testing.T) {
	c := &collector{}
	if res := NewMultiProbe(c).Probe(context.Background()); len(res) != 0 {
		t.Errorf("results for no destinations: %+v", res)
	}
	if c.calls != 0 {
		t.Errorf("client called without destinations")
	}
}

// routedConn fails every send to one destination
type routedConn struct {
	*testutils.Responder
	fail netip.Addr
	err  error
}

func (c *routedConn) WriteTo(b []byte, dst netip.Addr) (int, error) {
	if dst == c.fail {
		return 0, c.err
	}
	return c.Responder.WriteTo(b, dst)
}

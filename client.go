package reachping

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/drgkaleda/go-reachping/internal/logger"
	"golang.org/x/sync/errgroup"
)

// Unified interface to process probe results
type ProbeClient interface {
	ProbeProcess(results []Result)
}

// MultiProbe probes many destinations at once. Every destination gets its own
// Session, with its own socket and identifier; nothing is shared between them.
type MultiProbe struct {
	sync.Mutex

	Count    int
	Interval time.Duration
	TTL      int
	// Workers limits how many sessions run at the same time
	Workers int
	Listen  ListenFunc

	client ProbeClient
}

func NewMultiProbe(client ProbeClient) *MultiProbe {
	return &MultiProbe{
		Count:    DefaultCount,
		Interval: DefaultInterval,
		TTL:      DefaultTTL,
		Workers:  DefaultWorkers,
		client:   client,
	}
}

// Probe is blocking. It probes all addrs and hands the results, in addrs
// order, to the client. A failing session does not stop the others; its
// fault is kept in Result.Err.
func (mp *MultiProbe) Probe(ctx context.Context, addrs ...netip.Addr) []Result {
	// Lock the prober - its instance may be reused by several clients
	mp.Lock()
	defer mp.Unlock()

	results := make([]Result, len(addrs))
	if len(addrs) == 0 {
		return results
	}

	workers := mp.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	g := errgroup.Group{}
	g.SetLimit(workers)
	for i, addr := range addrs {
		i, addr := i, addr
		g.Go(func() error {
			s := NewSession(addr)
			s.Count = mp.Count
			s.Interval = mp.Interval
			s.TTL = mp.TTL
			if mp.Listen != nil {
				s.Listen = mp.Listen
			}

			// Since indexes are unique, there is no collision
			results[i], _ = s.Run(ctx)
			if results[i].Err != nil {
				logger.Warning().Printf("probe %s: %v", addr, results[i].Err)
			}
			return nil
		})
	}
	g.Wait()

	if mp.client != nil {
		mp.client.ProbeProcess(results)
	}
	return results
}

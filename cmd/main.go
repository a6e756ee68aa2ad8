package main

import (
	"context"
	"flag"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"syscall"

	"github.com/drgkaleda/go-reachping"
	"github.com/drgkaleda/go-reachping/internal/logger"
)

var (
	count    = flag.Int("c", reachping.DefaultCount, "echo requests per host")
	interval = flag.Duration("i", reachping.DefaultInterval, "per probe timeout")
	ttl      = flag.Int("ttl", reachping.DefaultTTL, "TTL of outgoing requests")
	workers  = flag.Int("w", reachping.DefaultWorkers, "hosts probed at the same time")
	level    = flag.String("log", "info", "log level: debug, info, warning, error")
	verbose  = flag.Bool("v", false, "shortcut for -log debug")
)

type printer struct {
	unreachable int
}

func (p *printer) ProbeProcess(results []reachping.Result) {
	for _, r := range results {
		status := "unreachable"
		if r.Reachable {
			status = "reachable"
		} else {
			p.unreachable++
		}
		if r.Err != nil {
			fmt.Printf("%-15s %-11s %d/%d replies (%v)\n", r.Addr, status, r.Replies, r.Count, r.Err)
		} else {
			fmt.Printf("%-15s %-11s %d/%d replies\n", r.Addr, status, r.Replies, r.Count)
		}
	}
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] ipv4-address...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	lvl := logger.ParseLevel(*level)
	if *verbose {
		lvl = logger.DebugLevel
	}
	logger.SetupGlobalLogger(lvl, os.Stderr)

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var addrs []netip.Addr
	for _, arg := range flag.Args() {
		addr, err := netip.ParseAddr(arg)
		if err != nil || !addr.Unmap().Is4() {
			logger.Error().Printf("%q is not an IPv4 address", arg)
			os.Exit(2)
		}
		addrs = append(addrs, addr.Unmap())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	out := &printer{}
	mp := reachping.NewMultiProbe(out)
	mp.Count = *count
	mp.Interval = *interval
	mp.TTL = *ttl
	mp.Workers = *workers

	logger.Info().Printf("probing %d hosts, %d requests each, %v apart", len(addrs), *count, *interval)
	mp.Probe(ctx, addrs...)
	stop()

	if out.unreachable > 0 {
		os.Exit(1)
	}
}

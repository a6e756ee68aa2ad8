package reachping

import (
	"context"
	"fmt"
	"time"

	"github.com/drgkaleda/go-reachping/internal/logger"
)

// sendLoop sends one probe, waits for its timeout and decides whether to send
// the next one. The socket is closed when it returns.
//
// The timeout is re-armed to the same deadline the probe was sent with, so the
// next probe leaves right on the timeout edge: probes are one interval apart
// and a silent host costs count*interval in total.
func (s *Session) sendLoop(ctx context.Context) error {
	defer s.close()

	for !s.closed.Load() {
		deadline, err := s.sendNext()
		if err != nil {
			if s.closed.Load() {
				// closed under our feet, whoever closed it reports why
				return nil
			}
			return err
		}

		if err = s.waitUntil(ctx, deadline); err != nil {
			return err
		}

		if s.timeout() {
			return nil
		}
	}
	return nil
}

// sendNext performs the send step and returns the probe deadline
func (s *Session) sendNext() (time.Time, error) {
	s.Lock()
	if s.state != StateDone {
		s.state = StateSending
	}
	s.sequence++
	seq := s.sequence
	s.Unlock()

	pkt, err := s.pinger.PrepareICMP(seq)
	if err != nil {
		return time.Time{}, fmt.Errorf("prepare probe %d: %w", seq, err)
	}

	sentAt := time.Now()
	if err = s.pinger.SendPacket(pkt); err != nil {
		return time.Time{}, fmt.Errorf("send probe %d to %s: %w", seq, s.dst, err)
	}

	s.Lock()
	s.sent++
	s.sentAt = sentAt
	if s.state == StateSending {
		s.state = StateAwaiting
	}
	deadline := s.sentAt.Add(s.interval)
	s.Unlock()

	logger.Debug().Printf("%s id=%d seq=%d sent", s.dst, s.ID(), seq)
	return deadline, nil
}

func (s *Session) waitUntil(ctx context.Context, deadline time.Time) error {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// timeout handles an expired probe. Returns true when no probes are left.
func (s *Session) timeout() bool {
	s.Lock()
	defer s.Unlock()

	if s.answered != s.sequence {
		logger.Debug().Printf("%s id=%d seq=%d timed out", s.dst, s.ID(), s.sequence)
	}
	if int(s.sequence) >= s.count {
		s.state = StateDone
		return true
	}
	return false
}

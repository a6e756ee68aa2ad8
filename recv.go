package reachping

import (
	"fmt"

	"github.com/drgkaleda/go-reachping/internal/logger"
	"github.com/drgkaleda/go-reachping/pinger"
)

// recvLoop reads the socket until it gets closed or the last probe is
// answered. A read error on a socket nobody closed is a transport fault: the
// socket is closed so that the sender stops too.
// It keeps reading past the first datagram after the final send, so stray
// traffic cannot cost the final reply.
func (s *Session) recvLoop() error {
	for {
		pkt, err := s.pinger.RecvPacket()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			s.close()
			return fmt.Errorf("receive from %s: %w", s.dst, err)
		}

		if s.closed.Load() {
			return nil
		}

		if s.processPacket(pkt) {
			return nil
		}
	}
}

// processPacket counts verified replies. Returns true once the final probe is answered.
// We can receive all ICMP packets received by the host, so anything that is not
// an echo reply with our identifier and the current sequence number is dropped.
func (s *Session) processPacket(pkt *pinger.Packet) bool {
	reply, err := s.pinger.ParsePacket(pkt)
	if err != nil {
		logger.Debug().Printf("%s id=%d dropped malformed datagram: %v", s.dst, s.ID(), err)
		return false
	}

	s.Lock()
	defer s.Unlock()

	if s.state == StateDone || s.closed.Load() {
		return true
	}
	if !reply.IsEchoReply(s.ID(), s.sequence) {
		return false
	}
	if s.answered == s.sequence {
		logger.Debug().Printf("%s id=%d seq=%d duplicate reply from %s", s.dst, s.ID(), reply.Seq, reply.Src)
		return false
	}

	s.answered = s.sequence
	s.replies++
	logger.Debug().Printf("%s id=%d seq=%d reply from %s ttl=%d", s.dst, s.ID(), reply.Seq, reply.Src, reply.TTL)

	return int(s.sequence) >= s.count
}

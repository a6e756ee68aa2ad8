package reachping

import (
	"errors"
	"time"
)

const (
	MinCount        = 2
	MaxCount        = 0xffff // sequence numbers are 16 bit
	DefaultCount    = 4
	DefaultInterval = time.Second
	DefaultTTL      = 64
	DefaultWorkers  = 16
)

var (
	ErrRunning     = errors.New("session already started")
	ErrInvalidAddr = errors.New("not an IPv4 address")
)

// State of a probing session
type State int

const (
	StateIdle State = iota
	StateSending
	StateAwaiting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateAwaiting:
		return "awaiting"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

//go:build unix

package pinger

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestRecvAgain(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{unix.EAGAIN, true},
		{unix.EWOULDBLOCK, true},
		{unix.EINTR, true},
		{unix.EBADF, false},
		{unix.ENOMEM, false},
	}

	for _, tt := range tests {
		if got := recvAgain(tt.err); got != tt.want {
			t.Errorf("recvAgain(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

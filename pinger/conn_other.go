//go:build !unix

package pinger

import "errors"

// ListenRaw is only implemented on unix systems.
func ListenRaw(ttl int) (Conn, error) {
	return nil, errors.New("raw icmp sockets are not supported on this platform")
}

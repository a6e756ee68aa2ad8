//go:build unix

package pinger

import (
	"fmt"
	"net"
	"net/netip"
	"syscall"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

type rawConn struct {
	conn *net.IPConn
	raw  syscall.RawConn
}

// ListenRaw opens a privileged ip4:icmp socket. ttl <= 0 keeps the system default.
func ListenRaw(ttl int) (Conn, error) {
	pc, err := net.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return nil, err
	}
	conn, ok := pc.(*net.IPConn)
	if !ok {
		pc.Close()
		return nil, ErrInvalidConn
	}

	if ttl > 0 {
		if err = ipv4.NewPacketConn(conn).SetTTL(ttl); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set ttl %d: %w", ttl, err)
		}
	}

	raw, err := conn.SyscallConn()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &rawConn{conn: conn, raw: raw}, nil
}

func (c *rawConn) WriteTo(b []byte, dst netip.Addr) (int, error) {
	return c.conn.WriteTo(b, &net.IPAddr{IP: dst.AsSlice()})
}

// ReadPacket bypasses IPConn.ReadFrom, which strips the IPv4 header.
func (c *rawConn) ReadPacket(b []byte) (int, error) {
	var n int
	var rerr error
	err := c.raw.Read(func(fd uintptr) bool {
		n, _, rerr = unix.Recvfrom(int(fd), b, 0)
		return !recvAgain(rerr)
	})
	if err != nil {
		return 0, err
	}
	if rerr != nil {
		return 0, &net.OpError{Op: "read", Net: "ip4:icmp", Err: rerr}
	}
	return n, nil
}

// recvAgain reports whether a Recvfrom error means wait for the poller and retry
func recvAgain(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR
}

func (c *rawConn) Close() error {
	return c.conn.Close()
}

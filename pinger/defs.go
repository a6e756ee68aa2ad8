package pinger

import (
	"errors"

	"golang.org/x/net/ipv4"
)

const (
	ProtocolICMP = 1

	IPv4HeaderLen    = 20
	IPv4MaxHeaderLen = 60
	ICMPHeaderLen    = 8

	// Largest datagram accepted from the socket
	recvBufferSize = 1024
	// Send attempts when the kernel reports ENOBUFS
	sendRetries = 6
)

// ICMP message types this package speaks
const (
	TypeEchoReply   = uint8(ipv4.ICMPTypeEchoReply)
	TypeEchoRequest = uint8(ipv4.ICMPTypeEcho)
)

// DefaultBody is the payload carried by every echo request
var DefaultBody = []byte("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ")

var (
	ErrInvalidConn = errors.New("invalid connection")
	ErrInvalidAddr = errors.New("invalid address")

	ErrHeaderTooShort   = errors.New("header too short")
	ErrInvalidVersion   = errors.New("invalid IP version")
	ErrInvalidHeaderLen = errors.New("invalid IP header length")
	ErrTruncated        = errors.New("truncated datagram")
)

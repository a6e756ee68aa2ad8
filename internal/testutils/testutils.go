package testutils

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/drgkaleda/go-reachping/internal/logger"
)

// SetupTestLogger points the global logger at a buffer and stdout at debug
// level. Returns the buffer and a func restoring the default logger.
func SetupTestLogger() (*bytes.Buffer, func()) {
	var logBuf bytes.Buffer
	logger.SetupGlobalLogger(logger.DebugLevel, io.MultiWriter(&logBuf, os.Stdout))
	return &logBuf, func() { logger.SetupGlobalLogger(logger.WarningLevel, os.Stderr) }
}

// RawSocket opens a privileged socket or skips the test when that is not
// possible, or when the host does not answer loopback echo requests.
func RawSocket[C io.Closer](t testing.TB, open func() (C, error)) C {
	t.Helper()

	if b, err := os.ReadFile("/proc/sys/net/ipv4/icmp_echo_ignore_all"); err == nil && strings.TrimSpace(string(b)) == "1" {
		t.Skip("host ignores echo requests")
	}

	c, err := open()
	if err != nil {
		t.Skipf("raw socket unavailable: %s", err)
	}
	return c
}

// Package probe checks whether a TCP listener accepts connections.
package probe

import (
	"context"
	"net"
	"strconv"
	"time"
)

// DefaultTimeout bounds a single connection attempt.
const DefaultTimeout = 2 * time.Second

// Prober answers whether host:port accepts a TCP connection.
type Prober interface {
	Check(ctx context.Context, host string, port int) bool
}

// Dialer is a Prober backed by net.Dialer.
type Dialer struct {
	Timeout time.Duration
}

// Check connects to host:port and closes the connection immediately. Any
// error, including ctx cancellation, reports false.
func (d Dialer) Check(ctx context.Context, host string, port int) bool {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Func adapts a function to Prober.
type Func func(ctx context.Context, host string, port int) bool

// Check calls f.
func (f Func) Check(ctx context.Context, host string, port int) bool {
	return f(ctx, host, port)
}

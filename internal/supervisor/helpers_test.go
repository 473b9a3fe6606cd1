package supervisor

import (
	"net"
	"testing"
)

type listener struct {
	net.Listener
	port int
}

// netListen opens a listener that accepts and immediately drops connections.
func netListen(t *testing.T) (*listener, error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	return &listener{Listener: ln, port: ln.Addr().(*net.TCPAddr).Port}, nil
}

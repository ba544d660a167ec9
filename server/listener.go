package server

import (
	"fmt"
	"net"
	"os"

	reuseport "github.com/kavu/go_reuseport"
	"golang.org/x/sys/unix"
)

// newListener binds the serving socket and hands back both the Go-side
// listener (kept alive for Addr and fd lifetime) and the duplicated raw
// fd the loop polls on, already non-blocking.
func newListener(config Config) (net.Listener, *os.File, error) {
	var (
		ln  net.Listener
		err error
	)
	if config.ReusePort {
		ln, err = reuseport.Listen("tcp4", config.Endpoint)
	} else {
		ln, err = net.Listen("tcp4", config.Endpoint)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create listener: %w", err)
	}

	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return nil, nil, fmt.Errorf("unexpected listener type %T", ln)
	}
	file, err := tcpLn.File()
	if err != nil {
		ln.Close()
		return nil, nil, fmt.Errorf("failed to obtain listener fd: %w", err)
	}
	if err := unix.SetNonblock(int(file.Fd()), true); err != nil {
		file.Close()
		ln.Close()
		return nil, nil, fmt.Errorf("failed to set listener non-blocking: %w", err)
	}
	return ln, file, nil
}

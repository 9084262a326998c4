//go:build !windows

package ipc

import (
	"net"
	"time"
)

func listen(string) (net.Listener, error) { return nil, ErrUnsupported }

func dial(string, time.Duration) (net.Conn, error) { return nil, ErrUnsupported }

package ipc

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

const (
	defaultDialTimeout = 3 * time.Second
	defaultRWTimeout   = 10 * time.Second
)

// Send delivers one request to the running instance and waits for its
// response. An empty pipeName selects DefaultPipeName.
func Send(pipeName string, req Request) (Response, error) {
	if pipeName == "" {
		pipeName = DefaultPipeName()
	}
	conn, err := dial(pipeName, defaultDialTimeout)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()
	return exchange(conn, req)
}

func exchange(conn net.Conn, req Request) (Response, error) {
	if err := conn.SetDeadline(time.Now().Add(defaultRWTimeout)); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}
	raw, err := encodeRequest(req)
	if err != nil {
		return Response{}, err
	}
	if err := writeFrame(conn, raw); err != nil {
		return Response{}, err
	}
	respRaw, err := readFrame(bufio.NewReaderSize(conn, maxResponseBytes+1), maxResponseBytes)
	if err != nil {
		return Response{}, err
	}
	resp, err := decodeResponse(respRaw)
	if err != nil {
		return Response{}, fmt.Errorf("invalid response: %w", err)
	}
	return resp, nil
}

// IsConnectionError reports whether err means no instance is listening.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnsupported) || errors.Is(err, os.ErrNotExist) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial" || opErr.Op == "open"
	}
	return false
}

package ipc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

const (
	maxRequestBytes  = 4 * 1024
	maxResponseBytes = 64 * 1024
)

// readFrame reads one newline-delimited frame of at most maxBytes. A final
// frame without a delimiter is accepted; an empty stream yields io.EOF.
func readFrame(reader *bufio.Reader, maxBytes int) ([]byte, error) {
	raw, err := reader.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("frame exceeds %d bytes", maxBytes)
	}
	if errors.Is(err, io.EOF) {
		if len(raw) == 0 {
			return nil, io.EOF
		}
		return raw, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func writeFrame(w io.Writer, payload []byte) error {
	frame := make([]byte, 0, len(payload)+1)
	frame = append(frame, payload...)
	frame = append(frame, '\n')
	_, err := w.Write(frame)
	return err
}

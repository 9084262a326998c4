package ipc

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestReadFrame(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
		wantEOF bool
	}{
		{name: "delimited", input: `{"command":"status"}` + "\n", want: `{"command":"status"}` + "\n"},
		{name: "final frame without delimiter", input: `{"command":"stop"}`, want: `{"command":"stop"}`},
		{name: "only first frame", input: "a\nb\n", want: "a\n"},
		{name: "empty stream", input: "", wantEOF: true},
		{name: "oversized", input: strings.Repeat("x", maxRequestBytes+1) + "\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := bufio.NewReaderSize(strings.NewReader(tt.input), maxRequestBytes+1)
			raw, err := readFrame(reader, maxRequestBytes)
			switch {
			case tt.wantEOF:
				if err != io.EOF {
					t.Fatalf("readFrame() error = %v, want io.EOF", err)
				}
			case tt.wantErr:
				if err == nil || !strings.Contains(err.Error(), "exceeds") {
					t.Fatalf("readFrame() error = %v, want size error", err)
				}
			default:
				if err != nil {
					t.Fatalf("readFrame() error = %v", err)
				}
				if string(raw) != tt.want {
					t.Fatalf("readFrame() = %q, want %q", raw, tt.want)
				}
			}
		})
	}
}

func TestWriteFrameAppendsDelimiter(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, []byte(`{}`)); err != nil {
		t.Fatalf("writeFrame() error = %v", err)
	}
	if buf.String() != "{}\n" {
		t.Fatalf("writeFrame() wrote %q", buf.String())
	}
}

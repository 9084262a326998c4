// Package ipc is the control channel between the running keyswitch
// process and its CLI subcommands. Each connection carries one
// newline-terminated JSON request and one JSON response.
package ipc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"keyswitch/internal/userutil"
)

// Commands understood by the running instance.
const (
	CommandStatus   = "status"
	CommandBindings = "bindings"
	CommandReload   = "reload"
	CommandStop     = "stop"
)

// ErrUnsupported is returned by Listen and Send where named pipes are not
// available.
var ErrUnsupported = errors.New("named pipes are not supported on this platform")

const (
	defaultPipePrefix = `\\.\pipe\keyswitch-`
	pipeNameEnv       = "KEYSWITCH_PIPE"
)

var pipeNamePattern = regexp.MustCompile(`(?i)^\\\\\.\\pipe\\keyswitch-[a-z0-9._-]{1,128}$`)

// Request is a single control command.
type Request struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Response mirrors a CLI invocation result.
type Response struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
}

// Handler serves one control request.
type Handler interface {
	Handle(req Request) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(req Request) Response

// Handle calls f(req).
func (f HandlerFunc) Handle(req Request) Response { return f(req) }

// ErrorResponse builds a failed response with a newline-terminated message.
func ErrorResponse(msg string) Response {
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	return Response{ExitCode: 1, Stderr: msg}
}

// DefaultPipeName returns the per-user pipe path. KEYSWITCH_PIPE overrides
// it when the value stays inside the keyswitch pipe namespace.
func DefaultPipeName() string {
	if v, ok := trustedPipeNameFromEnv(); ok {
		return v
	}
	return userutil.ScopedName(defaultPipePrefix)
}

func trustedPipeNameFromEnv() (string, bool) {
	value := strings.TrimSpace(os.Getenv(pipeNameEnv))
	if value == "" {
		return "", false
	}
	if !pipeNamePattern.MatchString(value) {
		slog.Warn("[ipc] "+pipeNameEnv+" rejected: value does not match allowed pattern", "value", value)
		return "", false
	}
	return value, true
}

func encodeRequest(req Request) ([]byte, error) {
	return json.Marshal(req)
}

func decodeRequest(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, err
	}
	req.Command = strings.TrimSpace(req.Command)
	if req.Command == "" {
		return Request{}, errors.New("command is required")
	}
	return req, nil
}

func encodeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}

func decodeResponse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

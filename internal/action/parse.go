package action

import (
	"errors"
	"fmt"
	"strings"

	"keyswitch/internal/keys"
)

const (
	namePressKey    = "press-key"
	namePostMessage = "post-message"
	nameDoNothing   = "none"
)

// Spec is the declarative form of an action as written in the config file.
type Spec struct {
	Name   string
	Key    string // press-key target
	Msg    uint32 // post-message fields
	WParam uint64
	LParam int64
}

// Parse converts a Spec into an Action.
func Parse(spec Spec) (Action, error) {
	name := strings.ToLower(strings.TrimSpace(spec.Name))
	if name == "" {
		return nil, errors.New("action name is required")
	}

	if fn, ok := ParseSystemFunction(name); ok {
		return System{Function: fn}, nil
	}

	switch name {
	case namePressKey:
		if strings.TrimSpace(spec.Key) == "" {
			return nil, errors.New("press-key requires a key")
		}
		vk, err := keys.ParseKey(spec.Key)
		if err != nil {
			return nil, fmt.Errorf("press-key: %w", err)
		}
		return PressKey{Key: vk}, nil
	case namePostMessage:
		if spec.Msg == 0 {
			return nil, errors.New("post-message requires a non-zero message")
		}
		return PostMessage{
			Msg:    spec.Msg,
			WParam: uintptr(spec.WParam),
			LParam: uintptr(spec.LParam),
		}, nil
	case nameDoNothing, "do-nothing":
		return DoNothing{}, nil
	}
	return nil, fmt.Errorf("unknown action %q", spec.Name)
}

// Names returns every action name accepted by Parse.
func Names() []string {
	names := make([]string, 0, len(systemFunctionNames)+3)
	for _, fn := range SystemFunctions() {
		names = append(names, fn.String())
	}
	return append(names, namePressKey, namePostMessage, nameDoNothing)
}

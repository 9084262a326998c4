package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"keyswitch/internal/binding"
	"keyswitch/internal/ipc"
)

// handleControl serves requests from `keyswitch status|bindings|reload|stop`.
func (a *App) handleControl(req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return ipc.Response{Stdout: a.statusText()}
	case ipc.CommandBindings:
		d := a.dispatcher.Load()
		if d == nil {
			return ipc.ErrorResponse(errNotRunning.Error())
		}
		return ipc.Response{Stdout: formatBindings(d.Table())}
	case ipc.CommandReload:
		n, err := a.Reload()
		if err != nil {
			return ipc.ErrorResponse(err.Error())
		}
		return ipc.Response{Stdout: fmt.Sprintf("reloaded %d bindings\n", n)}
	case ipc.CommandStop:
		if !a.requestStop() {
			return ipc.ErrorResponse(errNotRunning.Error())
		}
		return ipc.Response{Stdout: "stopping\n"}
	default:
		return ipc.ErrorResponse(fmt.Sprintf("unknown command %q", req.Command))
	}
}

func (a *App) statusText() string {
	var b strings.Builder
	d := a.dispatcher.Load()
	if d == nil {
		b.WriteString("state:    stopped\n")
	} else {
		stats := d.Stats()
		fmt.Fprintf(&b, "state:    running (pid %d, up %s)\n", os.Getpid(), time.Since(a.startedAt).Round(time.Second))
		fmt.Fprintf(&b, "config:   %s (reloads: %d)\n", a.configPath, a.reloads.Load())
		fmt.Fprintf(&b, "bindings: %d\n", d.Table().Len())
		fmt.Fprintf(&b, "events:   %d seen, %d fired, %d suppressed, %d failed\n",
			stats.Events, stats.Fired, stats.Suppressed, stats.Failures)
		if pressed := d.State().Pressed(); pressed.Len() > 0 {
			names := make([]string, 0, pressed.Len())
			for _, vk := range pressed.Keys() {
				names = append(names, vk.String())
			}
			fmt.Fprintf(&b, "pressed:  %s\n", strings.Join(names, "+"))
		}
	}
	fmt.Fprintf(&b, "log:      %s\n", a.level.Level())

	entries := a.diag.Entries()
	if len(entries) == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, "recent warnings (%d total):\n", a.diag.Total())
	for _, e := range entries {
		b.WriteString("  ")
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// formatBindings renders the table one binding per line, in match order.
func formatBindings(table *binding.Table) string {
	if table == nil || table.Len() == 0 {
		return "no bindings configured\n"
	}
	var b strings.Builder
	for _, entry := range table.Bindings() {
		b.WriteString("  ")
		b.WriteString(entry.String())
		b.WriteByte('\n')
	}
	return b.String()
}

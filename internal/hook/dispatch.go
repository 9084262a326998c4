// Package hook turns raw keyboard transitions into suppress/pass-through
// verdicts by matching the live key state against a binding table.
package hook

import (
	"log/slog"
	"sync/atomic"

	"keyswitch/internal/action"
	"keyswitch/internal/binding"
	"keyswitch/internal/inject"
	"keyswitch/internal/keys"
)

// Verdict tells the hook glue what to do with the original event.
type Verdict int

const (
	// PassThrough forwards the event to the next hook and the application.
	PassThrough Verdict = iota
	// Suppress discards the event.
	Suppress
)

func (v Verdict) String() string {
	if v == Suppress {
		return "suppress"
	}
	return "pass-through"
}

// Event is one physical key transition as seen by the hook.
type Event struct {
	Key       keys.VKey // physical virtual-key code, before normalization
	Down      bool
	ExtraInfo uintptr
}

// Decision is the outcome of applying an event to the state.
type Decision struct {
	Verdict Verdict
	// Fire is set when Binding matched and its action must run.
	Fire    bool
	Binding binding.Binding
}

// Decide applies ev to s and reports the verdict and the binding to fire.
// It performs no I/O; callers run the action afterwards.
func Decide(s *State, table *binding.Table, ev Event) Decision {
	if inject.IsInjected(ev.ExtraInfo) {
		return Decision{}
	}

	canonical := keys.Normalize(ev.Key)
	if !ev.Down {
		s.setActive(canonical, false)
		if s.releaseSuppressed(ev.Key) {
			return Decision{Verdict: Suppress}
		}
		return Decision{}
	}

	s.setActive(canonical, true)
	match, ok := table.FirstMatch(s.Pressed())
	if !ok {
		return Decision{}
	}

	decision := Decision{Fire: true, Binding: match}
	if match.BlockDefault {
		s.suppress(ev.Key)
		decision.Verdict = Suppress
	}
	return decision
}

// Stats counts dispatch outcomes since start.
type Stats struct {
	Events     uint64
	Fired      uint64
	Suppressed uint64
	Failures   uint64
}

// Dispatcher owns the key state and the published binding table.
type Dispatcher struct {
	state *State
	table atomic.Pointer[binding.Table]
	exec  action.Executor

	events     atomic.Uint64
	fired      atomic.Uint64
	suppressed atomic.Uint64
	failures   atomic.Uint64
}

// NewDispatcher returns a dispatcher serving table with a fresh key state.
func NewDispatcher(table *binding.Table, exec action.Executor) *Dispatcher {
	d := &Dispatcher{
		state: NewState(),
		exec:  exec,
	}
	d.table.Store(table)
	return d
}

// Dispatch handles one key transition and returns the verdict.
func (d *Dispatcher) Dispatch(ev Event) Verdict {
	d.events.Add(1)
	decision := Decide(d.state, d.table.Load(), ev)
	if decision.Fire {
		d.fired.Add(1)
		d.execute(decision.Binding)
	}
	if decision.Verdict == Suppress {
		d.suppressed.Add(1)
	}
	return decision.Verdict
}

func (d *Dispatcher) execute(b binding.Binding) {
	if b.IsAutoBlocker() {
		return
	}
	if d.exec == nil {
		slog.Debug("[action] no executor configured, skipping", "action", b.Action.String())
		return
	}
	if err := b.Action.Execute(d.exec); err != nil {
		d.failures.Add(1)
		slog.Warn("[action] execution failed",
			"action", b.Action.String(),
			"combination", b.Combination.String(),
			"error", err,
		)
	}
}

// SwapTable publishes a new binding table. The key state is kept, so keys
// held across a reload are still tracked.
func (d *Dispatcher) SwapTable(table *binding.Table) {
	d.table.Store(table)
}

// Table returns the currently published binding table.
func (d *Dispatcher) Table() *binding.Table {
	return d.table.Load()
}

// State exposes the live key state for inspection.
func (d *Dispatcher) State() *State {
	return d.state
}

// Stats returns a snapshot of the dispatch counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Events:     d.events.Load(),
		Fired:      d.fired.Load(),
		Suppressed: d.suppressed.Load(),
		Failures:   d.failures.Load(),
	}
}

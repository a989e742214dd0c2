// Package obs provides an injectable event hook for the viewer core.
// Core packages emit structured events instead of logging directly,
// so behaviors like stale-render discards and coalesced resizes are
// observable in tests and pluggable into any logging backend.
package obs

import "log/slog"

// Event names emitted by the viewer core.
type Event string

const (
	EventLoadStarted     Event = "load.started"
	EventLoadInstalled   Event = "load.installed"
	EventLoadDiscarded   Event = "load.discarded"
	EventLoadFailed      Event = "load.failed"
	EventRenderStarted   Event = "render.started"
	EventRenderApplied   Event = "render.applied"
	EventRenderDiscarded Event = "render.discarded"
	EventRenderFailed    Event = "render.failed"
	EventResizeEmitted   Event = "resize.emitted"
	EventResizeCoalesced Event = "resize.coalesced"
	EventProgressSaved   Event = "progress.saved"
	EventProgressFailed  Event = "progress.failed"
	EventPollTick        Event = "poll.tick"
	EventPollTerminal    Event = "poll.terminal"
)

// Hook receives viewer events.
type Hook interface {
	Emit(ev Event, fields ...Field)
}

// Field is a typed key/value attached to an event.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field      { return Field{Key: key, Value: value} }
func Int(key string, value int) Field     { return Field{Key: key, Value: value} }
func Uint64(key string, v uint64) Field   { return Field{Key: key, Value: v} }
func Float64(key string, v float64) Field { return Field{Key: key, Value: v} }
func Err(err error) Field                 { return Field{Key: "error", Value: err} }

// NopHook discards all events.
type NopHook struct{}

func (NopHook) Emit(Event, ...Field) {}

// LogHook forwards events to a slog logger at debug level.
type LogHook struct {
	Log *slog.Logger
}

func (h LogHook) Emit(ev Event, fields ...Field) {
	args := make([]any, 0, 2*len(fields))
	for _, f := range fields {
		args = append(args, f.Key, f.Value)
	}
	h.Log.Debug(string(ev), args...)
}

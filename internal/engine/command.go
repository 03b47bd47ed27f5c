// SPDX-License-Identifier: MIT
package engine

import "fmt"

// CommandKind tags the variants of Command.
type CommandKind int

const (
	KindInterval CommandKind = iota
	KindStop
	KindRecordingStart
	KindRecordingComplete
	KindRecordingAbort
	KindKeyDown
	KindMessage
	KindJumpingWarning
)

func (k CommandKind) String() string {
	switch k {
	case KindInterval:
		return "Interval"
	case KindStop:
		return "Stop"
	case KindRecordingStart:
		return "RecordingStart"
	case KindRecordingComplete:
		return "RecordingComplete"
	case KindRecordingAbort:
		return "RecordingAbort"
	case KindKeyDown:
		return "KeyDown"
	case KindMessage:
		return "Message"
	case KindJumpingWarning:
		return "JumpingWarning"
	default:
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
}

// Command is a closed set of messages delivered to consumer stages in global
// order. The unexported method keeps the set closed to this package, so
// Dispatch can match it exhaustively.
type Command interface {
	Kind() CommandKind
	command()
}

// Interval carries one published ring entry. The entry is borrowed: it is
// only valid until the stage's Process call returns.
type Interval struct {
	Entry  *Entry
	Length int
}

// Stop ends the run. Commands posted before it are still delivered, nothing
// posted after it is. A non-nil Err faults the run.
type Stop struct {
	Err error
}

// RecordingStart asks recorder stages to begin capture at the next interval.
// MaxSamples <= 0 means unbounded.
type RecordingStart struct {
	Path       string
	MaxSamples int64
}

// RecordingComplete is posted by a recorder once MaxSamples were captured.
type RecordingComplete struct {
	Path    string
	Samples int64
}

// RecordingAbort stops an active capture early.
type RecordingAbort struct{}

// KeyDown forwards a key press from an interactive front end.
type KeyDown struct {
	Value rune
}

// Message is a free-form notification between stages.
type Message struct {
	Value any
}

// JumpingWarning marks a discontinuity in the input stream: the hardware
// dropped samples before the interval starting at Position.
type JumpingWarning struct {
	Position int64
}

func (Interval) Kind() CommandKind          { return KindInterval }
func (Stop) Kind() CommandKind              { return KindStop }
func (RecordingStart) Kind() CommandKind    { return KindRecordingStart }
func (RecordingComplete) Kind() CommandKind { return KindRecordingComplete }
func (RecordingAbort) Kind() CommandKind    { return KindRecordingAbort }
func (KeyDown) Kind() CommandKind           { return KindKeyDown }
func (Message) Kind() CommandKind           { return KindMessage }
func (JumpingWarning) Kind() CommandKind    { return KindJumpingWarning }

func (Interval) command()          {}
func (Stop) command()              {}
func (RecordingStart) command()    {}
func (RecordingComplete) command() {}
func (RecordingAbort) command()    {}
func (KeyDown) command()           {}
func (Message) command()           {}
func (JumpingWarning) command()    {}

// CommandHandler has one method per Command variant. Adding a variant adds a
// method, which breaks every handler until it either handles the variant or
// embeds NopHandler to ignore it.
type CommandHandler interface {
	OnInterval(ctx *Context, cmd Interval) error
	OnStop(ctx *Context, cmd Stop) error
	OnRecordingStart(ctx *Context, cmd RecordingStart) error
	OnRecordingComplete(ctx *Context, cmd RecordingComplete) error
	OnRecordingAbort(ctx *Context, cmd RecordingAbort) error
	OnKeyDown(ctx *Context, cmd KeyDown) error
	OnMessage(ctx *Context, cmd Message) error
	OnJumpingWarning(ctx *Context, cmd JumpingWarning) error
}

// Dispatch routes cmd to the matching handler method.
func Dispatch(ctx *Context, cmd Command, h CommandHandler) error {
	switch c := cmd.(type) {
	case Interval:
		return h.OnInterval(ctx, c)
	case Stop:
		return h.OnStop(ctx, c)
	case RecordingStart:
		return h.OnRecordingStart(ctx, c)
	case RecordingComplete:
		return h.OnRecordingComplete(ctx, c)
	case RecordingAbort:
		return h.OnRecordingAbort(ctx, c)
	case KeyDown:
		return h.OnKeyDown(ctx, c)
	case Message:
		return h.OnMessage(ctx, c)
	case JumpingWarning:
		return h.OnJumpingWarning(ctx, c)
	default:
		return fmt.Errorf("unhandled command %T", cmd)
	}
}

// NopHandler ignores every command. Embed it to opt out of variants
// explicitly.
type NopHandler struct{}

func (NopHandler) OnInterval(*Context, Interval) error                   { return nil }
func (NopHandler) OnStop(*Context, Stop) error                           { return nil }
func (NopHandler) OnRecordingStart(*Context, RecordingStart) error       { return nil }
func (NopHandler) OnRecordingComplete(*Context, RecordingComplete) error { return nil }
func (NopHandler) OnRecordingAbort(*Context, RecordingAbort) error       { return nil }
func (NopHandler) OnKeyDown(*Context, KeyDown) error                     { return nil }
func (NopHandler) OnMessage(*Context, Message) error                     { return nil }
func (NopHandler) OnJumpingWarning(*Context, JumpingWarning) error       { return nil }

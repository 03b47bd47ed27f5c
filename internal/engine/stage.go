// SPDX-License-Identifier: MIT
package engine

import "fmt"

// RealtimeStage transforms one interval in place inside the producer. It runs
// synchronously in registration order and must neither block nor allocate.
// input and output hold at least length samples per channel; output starts
// zeroed for the first stage and carries the previous stage's result after
// that.
type RealtimeStage interface {
	Process(input, output [][]float64, length int) error
}

// ConsumerStage receives every command of a run in global order, one at a
// time, on its own goroutine.
type ConsumerStage interface {
	Process(ctx *Context, cmd Command) error
}

// Resetter is implemented by realtime stages that carry signal history.
// Launch calls Reset before the backend starts, so every run begins from the
// same state.
type Resetter interface {
	Reset()
}

// Named is implemented by stages that want a readable label in logs and
// failures.
type Named interface {
	Name() string
}

// HandlerStage adapts a CommandHandler to ConsumerStage.
type HandlerStage struct {
	Label   string
	Handler CommandHandler
}

func (s HandlerStage) Process(ctx *Context, cmd Command) error {
	return Dispatch(ctx, cmd, s.Handler)
}

func (s HandlerStage) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return stageName(s.Handler, -1)
}

// ConsumerFunc adapts a plain function to ConsumerStage.
type ConsumerFunc func(ctx *Context, cmd Command) error

func (f ConsumerFunc) Process(ctx *Context, cmd Command) error { return f(ctx, cmd) }

// RealtimeFunc adapts a plain function to RealtimeStage.
type RealtimeFunc func(input, output [][]float64, length int) error

func (f RealtimeFunc) Process(input, output [][]float64, length int) error {
	return f(input, output, length)
}

func stageName(stage any, index int) string {
	if n, ok := stage.(Named); ok {
		return n.Name()
	}
	if index < 0 {
		return fmt.Sprintf("%T", stage)
	}
	return fmt.Sprintf("%T#%d", stage, index)
}

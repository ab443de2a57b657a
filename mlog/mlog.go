// Package mlog wires the daemon's ambient structured logging on top of
// github.com/joeycumines/go-utilpkg/logiface, using the stumpy backend for
// JSON-lines output. Every other package in this module logs through the
// *Logger this package builds, rather than calling log or fmt directly.
package mlog

import (
	"io"

	"github.com/joeycumines/go-utilpkg/logiface"
	"github.com/joeycumines/go-utilpkg/logiface/stumpy"

	"github.com/joeycumines/mctl/channel"
	"github.com/joeycumines/mctl/code"
)

// Logger is the structured logger used throughout the daemon.
type Logger = logiface.Logger[*stumpy.Event]

// New builds a Logger writing JSON lines to w.
func New(w io.Writer) *Logger {
	return stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(w),
		),
	)
}

// LogExecuted records the outcome of a fully finished code, at Info for
// success and Err for any failing message, matching the severity mapping
// the rest of the corpus uses for request/response logging.
func LogExecuted(l *Logger, c *code.Code, result *code.CodeResult) {
	if result.IsSuccessful() {
		l.Info().
			Str(`channel`, c.Channel.String()).
			Str(`code`, code.Render(c)).
			Log(`code executed`)
	} else {
		l.Err().
			Str(`channel`, c.Channel.String()).
			Str(`code`, code.Render(c)).
			Log(`code failed`)
	}
}

// Channel is a convenience re-export so callers needn't import the channel
// package solely to log a value already typed as channel.Channel.
type Channel = channel.Channel

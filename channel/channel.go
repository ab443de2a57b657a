// Package channel enumerates the fixed set of input channels a code may
// originate from. The set is closed and compile-time; each channel carries
// independent scheduling and file-write state, owned by package sched.
package channel

import "fmt"

// Channel identifies the originating input stream of a Code.
type Channel uint8

const (
	HTTP Channel = iota
	Telnet
	File
	USB
	Aux
	Daemon
	Queue
	LCD
	SBC
	Autopause
	Trigger

	// Count is the number of channels, N in the spec. Keep it last.
	Count
)

var names = [Count]string{
	HTTP:      "HTTP",
	Telnet:    "Telnet",
	File:      "File",
	USB:       "USB",
	Aux:       "Aux",
	Daemon:    "Daemon",
	Queue:     "Queue",
	LCD:       "LCD",
	SBC:       "SBC",
	Autopause: "Autopause",
	Trigger:   "Trigger",
}

// String implements fmt.Stringer.
func (c Channel) String() string {
	if c >= Count {
		return fmt.Sprintf("Channel(%d)", uint8(c))
	}
	return names[c]
}

// Valid reports whether c is one of the fixed, compile-time channels.
func (c Channel) Valid() bool {
	return c < Count
}

// All returns every channel in declaration order, for iteration over
// per-channel state arrays.
func All() [Count]Channel {
	var a [Count]Channel
	for i := range a {
		a[i] = Channel(i)
	}
	return a
}

// Compatibility is the textual-framing mode applied to certain responses
// (M20 listing format, the "ok" terminator convention). It is per-channel
// state, set by M555 and read by CodeExecuted.
type Compatibility uint8

const (
	// Me is the native (non-emulated) response format.
	Me Compatibility = iota
	RepRapFirmware
	Marlin
	NanoDLP
	Teacup
	Sprinter
	Repetier
)

func (c Compatibility) String() string {
	switch c {
	case Me:
		return "Me"
	case RepRapFirmware:
		return "RepRapFirmware"
	case Marlin:
		return "Marlin"
	case NanoDLP:
		return "NanoDLP"
	case Teacup:
		return "Teacup"
	case Sprinter:
		return "Sprinter"
	case Repetier:
		return "Repetier"
	default:
		return fmt.Sprintf("Compatibility(%d)", uint8(c))
	}
}

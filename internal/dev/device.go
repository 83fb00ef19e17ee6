// Package dev holds the opaque device handle produced by discovery and a
// simulated transport for headless operation.
package dev

import (
	"github.com/coreman2200/funtimes-lumatrix/internal/input"
	"github.com/coreman2200/funtimes-lumatrix/internal/proto"
)

// Device is the handle the engine renders against: the matrix geometry,
// the write transport, and an optional key-event source. Enumeration and
// hot-plug live elsewhere; by the time a Device exists it is open.
type Device struct {
	Name      string
	Width     int
	Height    int
	Transport proto.Transport
	Input     input.Source
}

// HasKeyInput reports whether the device can produce key events.
func (d *Device) HasKeyInput() bool { return d.Input != nil }

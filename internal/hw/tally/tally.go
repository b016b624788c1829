// Package tally drives the REC lamp lit while a recording is active.
package tally

import (
	"github.com/cjeanneret/ptzkey/internal/debug"
	"github.com/cjeanneret/ptzkey/internal/hw/gpio"
)

// Lamp is a single GPIO output. A nil *Lamp is a valid, disabled lamp.
//
// Wiring:
// - the lamp (or a transistor/relay driving it) is connected to Pin and GND
// - with ActiveLow the lamp is lit when the pin is pulled LOW
type Lamp struct {
	gpio      gpio.Driver
	pin       int
	activeLow bool
	lit       bool
}

// New configures pin as an output and switches the lamp off.
// It returns nil when pin is 0 (no lamp wired).
func New(g gpio.Driver, pin int, activeLow bool) *Lamp {
	if g == nil || pin <= 0 {
		return nil
	}
	l := &Lamp{gpio: g, pin: pin, activeLow: activeLow}
	if err := g.SetupPin(pin, gpio.Output); err != nil {
		debug.Error(err)
	}
	if err := g.WritePin(pin, l.level(false)); err != nil {
		debug.Error(err)
	}
	return l
}

func (l *Lamp) level(on bool) gpio.Level {
	if l.activeLow {
		return gpio.Level(!on)
	}
	return gpio.Level(on)
}

// Set switches the lamp. Writes are skipped when the state is unchanged.
func (l *Lamp) Set(on bool) error {
	if l == nil || l.lit == on {
		return nil
	}
	debug.Verbose("Tally: pin %d -> %v", l.pin, on)
	if err := l.gpio.WritePin(l.pin, l.level(on)); err != nil {
		return err
	}
	l.lit = on
	return nil
}

// On lights the lamp.
func (l *Lamp) On() error { return l.Set(true) }

// Off switches the lamp off.
func (l *Lamp) Off() error { return l.Set(false) }

// Lit reports the last state written.
func (l *Lamp) Lit() bool {
	return l != nil && l.lit
}

// Close switches the lamp off and releases the driver.
func (l *Lamp) Close() error {
	if l == nil {
		return nil
	}
	if err := l.gpio.WritePin(l.pin, l.level(false)); err != nil {
		debug.Error(err)
	}
	l.lit = false
	return l.gpio.Close()
}

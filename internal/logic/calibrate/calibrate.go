// Package calibrate discovers the tilt polarity of a PTZ camera at startup.
//
// Devices do not reliably report which sign of a relative tilt move points
// "up", so the calibrator probes both directions and keeps the one that
// approaches the reported upper tilt bound.
package calibrate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cjeanneret/ptzkey/internal/debug"
	"github.com/cjeanneret/ptzkey/internal/ptz"
)

const (
	// LimitEpsilon is how close to a tilt bound counts as "on the limit".
	LimitEpsilon = 0.01
	// NudgeStep is the corrective move away from a tilt bound.
	NudgeStep = 0.12
	// ResponseEpsilon is the smallest tilt change treated as a real response.
	ResponseEpsilon = 1e-3
)

// Calibrator runs the startup calibration against one device profile.
type Calibrator struct {
	Device ptz.Device
	Token  string
	Sleep  func(time.Duration) // time.Sleep when nil
}

// New creates a calibrator bound to a device profile.
func New(d ptz.Device, profileToken string) *Calibrator {
	return &Calibrator{Device: d, Token: profileToken, Sleep: time.Sleep}
}

func (c *Calibrator) wait(d time.Duration) {
	if c.Sleep != nil {
		c.Sleep(d)
		return
	}
	time.Sleep(d)
}

// reading is the outcome of one probe step: a tilt value or unavailable.
type reading struct {
	tilt float64
	ok   bool
}

func (c *Calibrator) readTilt(ctx context.Context) reading {
	p, err := c.Device.Status(ctx, c.Token)
	if err != nil {
		debug.Verbose("calibrate: position unavailable: %v", err)
		return reading{}
	}
	return reading{tilt: p.Tilt, ok: true}
}

// probe moves the tilt axis by dy, waits, and reads the tilt back.
func (c *Calibrator) probe(ctx context.Context, dy float64, settle time.Duration) reading {
	if err := c.Device.RelativeMove(ctx, c.Token, 0, dy); err != nil {
		debug.Verbose("calibrate: probe dy=%+.3f failed: %v", dy, err)
		return reading{}
	}
	c.wait(settle)
	return c.readTilt(ctx)
}

// NudgeOffLimit moves the tilt axis away from a bound it is resting on, so
// that both probe directions can respond. It is best-effort and never fails.
func (c *Calibrator) NudgeOffLimit(ctx context.Context, tilt ptz.AxisRange, settle time.Duration) {
	r := c.readTilt(ctx)
	if !r.ok {
		return
	}
	var dy float64
	switch tilt.NearBound(r.tilt, LimitEpsilon) {
	case +1:
		dy = -NudgeStep
	case -1:
		dy = +NudgeStep
	default:
		return
	}
	debug.Live("calibrate: tilt %.3f on limit, nudging dy=%+.2f", r.tilt, dy)
	if err := c.Device.RelativeMove(ctx, c.Token, 0, dy); err != nil {
		debug.Verbose("calibrate: nudge failed: %v", err)
		return
	}
	c.wait(settle)
}

// DecideTiltUpSign returns +1 when a positive tilt delta moves toward tiltMax,
// -1 when the negative one does. It defaults to +1 when a read is unavailable
// or the axis does not respond.
func (c *Calibrator) DecideTiltUpSign(ctx context.Context, tiltMax, probe float64, settle time.Duration) int {
	debug.Section("Tilt polarity probe")

	base := c.readTilt(ctx)
	if !base.ok {
		debug.Info("calibrate: no baseline position, tilt up sign defaults to +1")
		return +1
	}

	plus := c.probe(ctx, +probe, settle)
	c.probe(ctx, -probe, settle) // back near baseline
	minus := c.probe(ctx, -probe, settle)
	c.probe(ctx, +probe, settle) // back near baseline

	sign := decide(base, plus, minus, tiltMax)
	debug.Value("tilt_baseline", base)
	debug.Value("tilt_plus", plus)
	debug.Value("tilt_minus", minus)
	debug.Value("tilt_up_sign", sign)
	return sign
}

func (r reading) String() string {
	if !r.ok {
		return "unavailable"
	}
	return fmt.Sprintf("%+.4f", r.tilt)
}

func decide(base, plus, minus reading, tiltMax float64) int {
	if !base.ok || !plus.ok || !minus.ok {
		return +1
	}
	if math.Abs(plus.tilt-base.tilt) < ResponseEpsilon && math.Abs(minus.tilt-base.tilt) < ResponseEpsilon {
		return +1
	}
	if math.Abs(tiltMax-plus.tilt) <= math.Abs(tiltMax-minus.tilt) {
		return +1
	}
	return -1
}

// Options configures a full calibration run.
type Options struct {
	Mount       ptz.MountMode
	BasePanSign int
	Probe       float64
	Settle      time.Duration // wait after the nudge
	ProbeSettle time.Duration // wait after each probe move
}

// Run nudges the tilt axis off a limit, probes its polarity and applies the
// mount orientation.
func (c *Calibrator) Run(ctx context.Context, ranges ptz.Ranges, opts Options) ptz.Calibration {
	c.NudgeOffLimit(ctx, ranges.Tilt, opts.Settle)
	sign := c.DecideTiltUpSign(ctx, ranges.Tilt.Max, opts.Probe, opts.ProbeSettle)
	cal := ptz.NewCalibration(opts.Mount, sign, opts.BasePanSign)
	debug.Info("calibration: %s", cal)
	return cal
}

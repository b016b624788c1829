package motion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cjeanneret/ptzkey/internal/debug"
	"github.com/cjeanneret/ptzkey/internal/ptz"
)

// MaxErrorLen bounds the move error shown on the status line.
const MaxErrorLen = 120

// Direction is a directional key.
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// Config holds the motion parameters.
type Config struct {
	Step   float64       // relative move per key press
	Margin float64       // soft-limit margin inside each reported bound
	Settle time.Duration // wait after each successful move
}

// Outcome reports what a directional request did.
type Outcome struct {
	DX, DY  float64
	Blocked bool   // refused by a soft limit; no device call was made
	Moved   bool   // a move (full or half) was accepted
	Retried bool   // the full move failed and the half move was tried
	Message string // status line text, "" when nothing to report
}

// Controller converts directional keys into bounded relative moves.
// It's the layer between the session loop and the device client.
type Controller struct {
	dev    ptz.Device
	token  string
	ranges ptz.Ranges
	cfg    Config
	sleep  func(time.Duration)
}

func NewController(dev ptz.Device, profileToken string, ranges ptz.Ranges, cfg Config) *Controller {
	return &Controller{
		dev:    dev,
		token:  profileToken,
		ranges: ranges,
		cfg:    cfg,
		sleep:  time.Sleep,
	}
}

// SetSleep replaces the settle wait (tests).
func (c *Controller) SetSleep(sleep func(time.Duration)) {
	c.sleep = sleep
}

// Limits returns the soft limits (reported ranges minus the margin).
func (c *Controller) Limits() ptz.Ranges {
	return ptz.Ranges{
		Pan:  c.ranges.Pan.Shrink(c.cfg.Margin),
		Tilt: c.ranges.Tilt.Shrink(c.cfg.Margin),
	}
}

// Plan computes the signed deltas for a direction and applies the soft-limit
// check. blocked is "" when the move may be issued. With an unknown position
// no limit is checked.
func (c *Controller) Plan(dir Direction, cal ptz.Calibration, pos *ptz.Position) (dx, dy float64, blocked string) {
	step := c.cfg.Step
	switch dir {
	case Right:
		dx = +step * float64(cal.PanSign)
	case Left:
		dx = -step * float64(cal.PanSign)
	case Up:
		dy = +step * float64(cal.TiltUpSign)
	case Down:
		dy = +step * float64(-cal.TiltUpSign)
	}

	if pos == nil {
		return dx, dy, ""
	}
	limits := c.Limits()
	if !limits.Pan.Allows(pos.Pan, dx) || !limits.Tilt.Allows(pos.Tilt, dy) {
		return 0, 0, "blocked: " + dir.String() + " limit"
	}
	return dx, dy, ""
}

// Move plans and issues one directional move. A rejected move is retried
// once at half magnitude. The caller must refresh the position afterwards,
// whatever the outcome.
func (c *Controller) Move(ctx context.Context, dir Direction, cal ptz.Calibration, pos *ptz.Position) Outcome {
	dx, dy, blocked := c.Plan(dir, cal, pos)
	if blocked != "" {
		debug.Live("%s (pos %v)", blocked, pos)
		return Outcome{Blocked: true, Message: blocked}
	}
	if dx == 0 && dy == 0 {
		return Outcome{}
	}

	out := Outcome{DX: dx, DY: dy}
	err1 := c.dev.RelativeMove(ctx, c.token, dx, dy)
	if err1 == nil {
		c.sleep(c.cfg.Settle)
		debug.Move(dx, dy, "ok")
		out.Moved = true
		return out
	}
	debug.Move(dx, dy, "rejected: "+err1.Error())

	out.Retried = true
	out.DX, out.DY = dx*0.5, dy*0.5
	err2 := c.dev.RelativeMove(ctx, c.token, out.DX, out.DY)
	if err2 == nil {
		c.sleep(c.cfg.Settle)
		debug.Move(out.DX, out.DY, "ok (half step)")
		out.Moved = true
		out.Message = "move: retried with half step"
		return out
	}
	debug.Move(out.DX, out.DY, "rejected: "+err2.Error())

	detail := strings.TrimSpace(err2.Error())
	if detail == "" {
		detail = strings.TrimSpace(err1.Error())
	}
	out.Message = "move error: " + ptz.Truncate(detail, MaxErrorLen)
	return out
}

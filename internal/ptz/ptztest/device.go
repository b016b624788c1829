// Package ptztest provides a simulated ptz.Device for tests.
package ptztest

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/cjeanneret/ptzkey/internal/ptz"
)

// Move is one recorded RelativeMove call.
type Move struct {
	DX, DY float64
}

// Device simulates a camera head. Moves are applied to the position,
// scaled by TiltPolarity on the tilt axis and clamped to Range.
type Device struct {
	mu sync.Mutex

	Pos          ptz.Position
	Range        ptz.Ranges
	TiltPolarity float64 // physical tilt per unit of dy; 0 freezes the axis

	ProfileList []ptz.Profile
	Snapshot    string // snapshot URI, "" = none
	HomeOK      bool

	// MoveErrs is consumed one entry per RelativeMove; nil entries succeed.
	MoveErrs []error
	// StatusErrs is consumed one entry per Status call; nil entries succeed.
	StatusErrs []error
	// Unknown makes every Status call report an unavailable position.
	Unknown bool

	Moves      []Move
	HomeCalls  int
	CloseCalls int
}

// New returns a device at the origin with [-1,1] ranges and positive polarity.
func New() *Device {
	return &Device{
		Range:        ptz.DefaultRanges(),
		TiltPolarity: 1,
		ProfileList:  []ptz.Profile{{Token: "profile_1", PTZConfigToken: "ptz_cfg"}},
		HomeOK:       true,
	}
}

func (d *Device) Profiles(ctx context.Context) ([]ptz.Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.ProfileList) == 0 {
		return nil, ptz.ErrNoProfiles
	}
	return append([]ptz.Profile(nil), d.ProfileList...), nil
}

func (d *Device) Status(ctx context.Context, token string) (ptz.Position, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.StatusErrs) > 0 {
		err := d.StatusErrs[0]
		d.StatusErrs = d.StatusErrs[1:]
		if err != nil {
			return ptz.Position{}, err
		}
	}
	if d.Unknown {
		return ptz.Position{}, ptz.ErrPositionUnavailable
	}
	return d.Pos, nil
}

func (d *Device) RelativeMove(ctx context.Context, token string, dx, dy float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Moves = append(d.Moves, Move{DX: dx, DY: dy})
	if len(d.MoveErrs) > 0 {
		err := d.MoveErrs[0]
		d.MoveErrs = d.MoveErrs[1:]
		if err != nil {
			return err
		}
	}
	d.Pos.Pan = clamp(d.Pos.Pan+dx, d.Range.Pan)
	d.Pos.Tilt = clamp(d.Pos.Tilt+dy*d.TiltPolarity, d.Range.Tilt)
	return nil
}

func (d *Device) GotoHome(ctx context.Context, token string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.HomeCalls++
	if d.HomeOK {
		d.Pos = ptz.Position{}
	}
	return d.HomeOK
}

func (d *Device) Ranges(ctx context.Context, configToken string) (ptz.Ranges, error) {
	return d.Range, nil
}

func (d *Device) SnapshotURI(ctx context.Context, token string) (string, error) {
	if d.Snapshot == "" {
		return "", errors.New("snapshot uri not supported")
	}
	return d.Snapshot, nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CloseCalls++
	return nil
}

// MoveLog returns a copy of the recorded moves.
func (d *Device) MoveLog() []Move {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Move(nil), d.Moves...)
}

func clamp(v float64, r ptz.AxisRange) float64 {
	return math.Max(r.Min, math.Min(r.Max, v))
}

var _ ptz.Device = (*Device)(nil)

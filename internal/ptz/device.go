package ptz

import (
	"context"
	"errors"
)

// ErrNoProfiles is returned when the device exposes no media profile.
var ErrNoProfiles = errors.New("device reported no media profiles")

// Profile is a device media profile. PTZConfigToken is empty when the profile
// carries no PTZ configuration.
type Profile struct {
	Token          string
	Name           string
	PTZConfigToken string
}

// HasPTZ reports whether the profile references a PTZ configuration.
func (p Profile) HasPTZ() bool {
	return p.PTZConfigToken != ""
}

// PickProfile prefers the first profile with a PTZ configuration, else the first one.
func PickProfile(profiles []Profile) (Profile, error) {
	if len(profiles) == 0 {
		return Profile{}, ErrNoProfiles
	}
	for _, p := range profiles {
		if p.HasPTZ() {
			return p, nil
		}
	}
	return profiles[0], nil
}

// Device is the operation set consumed from the camera protocol client.
// Calls are issued sequentially; implementations need not be safe for
// concurrent use.
type Device interface {
	// Profiles lists the media profiles.
	Profiles(ctx context.Context) ([]Profile, error)

	// Status returns the current pan/tilt position, or ErrPositionUnavailable.
	Status(ctx context.Context, profileToken string) (Position, error)

	// RelativeMove moves both axes by the given deltas.
	RelativeMove(ctx context.Context, profileToken string, dx, dy float64) error

	// GotoHome requests the home position and reports whether the device accepted it.
	GotoHome(ctx context.Context, profileToken string) bool

	// Ranges returns the pan/tilt travel of a PTZ configuration, falling back
	// to DefaultRanges for anything the device does not report.
	Ranges(ctx context.Context, configToken string) (Ranges, error)

	// SnapshotURI returns the HTTP snapshot URI, or "" when the device has none.
	SnapshotURI(ctx context.Context, profileToken string) (string, error)

	// Close releases the session. It is called exactly once.
	Close() error
}

// Snapshotter is implemented by devices with a native snapshot helper.
type Snapshotter interface {
	Snapshot(ctx context.Context, profileToken string) ([]byte, error)
}

// ReadPosition queries the device and returns nil when the position is unknown.
func ReadPosition(ctx context.Context, d Device, profileToken string) *Position {
	p, err := d.Status(ctx, profileToken)
	if err != nil {
		return nil
	}
	return &p
}

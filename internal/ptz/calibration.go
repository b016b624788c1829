package ptz

import (
	"fmt"
	"strings"
)

// MountMode describes how the camera is mounted.
type MountMode string

const (
	MountDesk    MountMode = "desk"
	MountCeiling MountMode = "ceiling"
)

// ParseMountMode accepts "desk" or "ceiling" (case-insensitive, trimmed).
func ParseMountMode(s string) (MountMode, error) {
	switch m := MountMode(strings.ToLower(strings.TrimSpace(s))); m {
	case MountDesk, MountCeiling:
		return m, nil
	}
	return "", fmt.Errorf("mount mode must be %q or %q, got %q", MountDesk, MountCeiling, s)
}

// Calibration is the control polarity derived once per session.
// TiltUpSign and PanSign are always +1 or -1.
type Calibration struct {
	TiltUpSign int
	PanSign    int
	Mount      MountMode
}

// NewCalibration applies the mount mode to the measured tilt sign and the
// configured base pan sign. A ceiling mount negates both.
func NewCalibration(mount MountMode, measuredTiltUp int, basePanSign int) Calibration {
	tilt := unitSign(measuredTiltUp)
	pan := unitSign(basePanSign)
	if mount == MountCeiling {
		tilt = -tilt
		pan = -pan
	}
	return Calibration{TiltUpSign: tilt, PanSign: pan, Mount: mount}
}

// InvertTilt swaps the meaning of up and down.
func (c *Calibration) InvertTilt() {
	c.TiltUpSign = -unitSign(c.TiltUpSign)
}

func (c Calibration) String() string {
	return fmt.Sprintf("tilt_up_sign=%+d pan_sign=%+d mount=%s", c.TiltUpSign, c.PanSign, c.Mount)
}

func unitSign(v int) int {
	if v < 0 {
		return -1
	}
	return +1
}

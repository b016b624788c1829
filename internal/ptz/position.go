package ptz

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPositionUnavailable is returned when the device reports no pan/tilt position.
var ErrPositionUnavailable = errors.New("position not available")

// Position is the last known pan/tilt pose in device-native units.
type Position struct {
	Pan  float64
	Tilt float64
}

func (p Position) String() string {
	return fmt.Sprintf("pan=%+.3f tilt=%+.3f", p.Pan, p.Tilt)
}

// AxisRange is the legal travel of one axis.
type AxisRange struct {
	Min float64
	Max float64
}

// DefaultAxisRange is used when the device does not report a range.
var DefaultAxisRange = AxisRange{Min: -1, Max: 1}

// Valid reports whether Min < Max.
func (r AxisRange) Valid() bool {
	return r.Min < r.Max
}

// Shrink returns the range with margin removed from both ends (the soft limits).
func (r AxisRange) Shrink(margin float64) AxisRange {
	return AxisRange{Min: r.Min + margin, Max: r.Max - margin}
}

// NearBound reports whether v lies within eps of either end.
// It returns -1 for the lower bound, +1 for the upper bound and 0 otherwise.
func (r AxisRange) NearBound(v, eps float64) int {
	switch {
	case v >= r.Max-eps:
		return +1
	case v <= r.Min+eps:
		return -1
	}
	return 0
}

// boundEps absorbs float rounding when a move lands exactly on a bound.
const boundEps = 1e-9

// Allows reports whether moving from v by delta stays inside the range.
// A zero delta is always allowed.
func (r AxisRange) Allows(v, delta float64) bool {
	switch {
	case delta > 0:
		return v < r.Max && v+delta <= r.Max+boundEps
	case delta < 0:
		return v > r.Min && v+delta >= r.Min-boundEps
	}
	return true
}

func (r AxisRange) String() string {
	return fmt.Sprintf("[%.2f,%.2f]", r.Min, r.Max)
}

// Ranges holds the travel of both axes.
type Ranges struct {
	Pan  AxisRange
	Tilt AxisRange
}

// DefaultRanges returns [-1,1] on both axes.
func DefaultRanges() Ranges {
	return Ranges{Pan: DefaultAxisRange, Tilt: DefaultAxisRange}
}

func (r Ranges) String() string {
	return fmt.Sprintf("range pan%s tilt%s", r.Pan, r.Tilt)
}

// Truncate collapses a message onto a single line and cuts it to at most n runes.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

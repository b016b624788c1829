package ptz

import (
	"math"
	"strings"
	"testing"
)

func TestAxisRange_Shrink(t *testing.T) {
	r := AxisRange{Min: -1, Max: 1}.Shrink(0.02)
	if math.Abs(r.Min+0.98) > 1e-12 || math.Abs(r.Max-0.98) > 1e-12 {
		t.Errorf("Shrink(0.02) = %v, want [-0.98,0.98]", r)
	}
}

func TestAxisRange_Valid(t *testing.T) {
	if !DefaultAxisRange.Valid() {
		t.Error("default range should be valid")
	}
	if (AxisRange{Min: 1, Max: 1}).Valid() {
		t.Error("empty range should be invalid")
	}
}

func TestAxisRange_NearBound(t *testing.T) {
	r := AxisRange{Min: -1, Max: 1}
	cases := []struct {
		v    float64
		want int
	}{
		{1.0, +1},
		{0.995, +1},
		{0.98, 0},
		{0, 0},
		{-0.995, -1},
		{-1.2, -1},
	}
	for _, tc := range cases {
		if got := r.NearBound(tc.v, 0.01); got != tc.want {
			t.Errorf("NearBound(%v) = %d, want %d", tc.v, got, tc.want)
		}
	}
}

func TestAxisRange_Allows(t *testing.T) {
	soft := AxisRange{Min: -1, Max: 1}.Shrink(0.02)
	cases := []struct {
		name     string
		v, delta float64
		want     bool
	}{
		{"interior_right", 0.0, 0.1, true},
		{"interior_left", 0.0, -0.1, true},
		{"projected_past_max", 0.95, 0.1, false},
		{"lands_on_max", 0.88, 0.1, true},
		{"at_max", 0.98, 0.1, false},
		{"beyond_max_moving_in", 0.99, -0.1, true},
		{"at_min", -0.98, -0.1, false},
		{"beyond_min", -1.0, -0.1, false},
		{"zero_delta", 5, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := soft.Allows(tc.v, tc.delta); got != tc.want {
				t.Errorf("Allows(%v, %v) = %v, want %v", tc.v, tc.delta, got, tc.want)
			}
		})
	}
}

// Every position strictly inside the soft range can take a step toward the centre.
func TestAxisRange_InteriorNeverBlocked(t *testing.T) {
	soft := DefaultAxisRange.Shrink(0.02)
	for i := 1; i < 196; i++ {
		v := soft.Min + float64(i)*0.01
		if v >= soft.Max {
			break
		}
		delta := 0.10
		if v > 0 {
			delta = -0.10
		}
		if !soft.Allows(v, delta) {
			t.Fatalf("step %v from %v should be allowed", delta, v)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("  line one\nline two  ", 100); got != "line one line two" {
		t.Errorf("Truncate = %q", got)
	}
	long := strings.Repeat("x", 500)
	if got := Truncate(long, 120); len(got) != 120 {
		t.Errorf("len = %d, want 120", len(got))
	}
}

func TestPickProfile(t *testing.T) {
	profiles := []Profile{
		{Token: "main"},
		{Token: "ptz", PTZConfigToken: "cfg0"},
	}
	p, err := PickProfile(profiles)
	if err != nil {
		t.Fatalf("PickProfile: %v", err)
	}
	if p.Token != "ptz" {
		t.Errorf("token = %q, want ptz", p.Token)
	}

	p, err = PickProfile(profiles[:1])
	if err != nil {
		t.Fatalf("PickProfile: %v", err)
	}
	if p.Token != "main" {
		t.Errorf("fallback token = %q, want main", p.Token)
	}

	if _, err := PickProfile(nil); err != ErrNoProfiles {
		t.Errorf("err = %v, want ErrNoProfiles", err)
	}
}

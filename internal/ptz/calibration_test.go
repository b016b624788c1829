package ptz

import "testing"

func TestParseMountMode(t *testing.T) {
	cases := []struct {
		in      string
		want    MountMode
		wantErr bool
	}{
		{"desk", MountDesk, false},
		{" Ceiling ", MountCeiling, false},
		{"wall", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseMountMode(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseMountMode(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseMountMode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewCalibration_Desk(t *testing.T) {
	c := NewCalibration(MountDesk, -1, -1)
	if c.TiltUpSign != -1 || c.PanSign != -1 {
		t.Errorf("desk calibration = %+v", c)
	}
}

func TestNewCalibration_CeilingFlipsBoth(t *testing.T) {
	c := NewCalibration(MountCeiling, +1, -1)
	if c.TiltUpSign != -1 {
		t.Errorf("TiltUpSign = %d, want -1", c.TiltUpSign)
	}
	if c.PanSign != +1 {
		t.Errorf("PanSign = %d, want +1", c.PanSign)
	}
}

func TestCalibration_InvertTwiceRestores(t *testing.T) {
	for _, sign := range []int{+1, -1} {
		c := NewCalibration(MountDesk, sign, 1)
		c.InvertTilt()
		if c.TiltUpSign != -sign {
			t.Errorf("after one invert = %d, want %d", c.TiltUpSign, -sign)
		}
		c.InvertTilt()
		if c.TiltUpSign != sign {
			t.Errorf("after two inverts = %d, want %d", c.TiltUpSign, sign)
		}
	}
}

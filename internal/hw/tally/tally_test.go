package tally

import (
	"testing"

	"github.com/cjeanneret/ptzkey/internal/hw/gpio"
)

// recordingDriver records GPIO calls for verification.
type recordingDriver struct {
	calls  []gpioCall
	closed bool
}

type gpioCall struct {
	op    string
	pin   int
	level gpio.Level
}

func (d *recordingDriver) SetupPin(pin int, mode gpio.PinMode) error {
	d.calls = append(d.calls, gpioCall{op: "setup", pin: pin})
	return nil
}

func (d *recordingDriver) WritePin(pin int, level gpio.Level) error {
	d.calls = append(d.calls, gpioCall{op: "write", pin: pin, level: level})
	return nil
}

func (d *recordingDriver) ReadPin(pin int) (gpio.Level, error) {
	return gpio.Low, nil
}

func (d *recordingDriver) Close() error {
	d.closed = true
	return nil
}

func (d *recordingDriver) writeCalls() []gpioCall {
	var result []gpioCall
	for _, c := range d.calls {
		if c.op == "write" {
			result = append(result, c)
		}
	}
	return result
}

func TestNew_DisabledWithoutPin(t *testing.T) {
	drv := &recordingDriver{}
	l := New(drv, 0, false)
	if l != nil {
		t.Fatal("pin 0 should disable the lamp")
	}
	// a nil lamp is usable
	if err := l.On(); err != nil {
		t.Errorf("On on nil lamp: %v", err)
	}
	if l.Lit() {
		t.Error("nil lamp reported lit")
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close on nil lamp: %v", err)
	}
	if len(drv.calls) != 0 {
		t.Errorf("driver touched: %v", drv.calls)
	}
}

func TestNew_InitializedOff(t *testing.T) {
	tests := []struct {
		name      string
		activeLow bool
		want      gpio.Level
	}{
		{"active high", false, gpio.Low},
		{"active low", true, gpio.High},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := &recordingDriver{}
			New(drv, 17, tt.activeLow)
			if drv.calls[0].op != "setup" || drv.calls[0].pin != 17 {
				t.Errorf("first call = %+v, want setup of pin 17", drv.calls[0])
			}
			writes := drv.writeCalls()
			if len(writes) != 1 || writes[0].level != tt.want {
				t.Errorf("writes = %v, want single %v", writes, tt.want)
			}
		})
	}
}

func TestLamp_OnOff(t *testing.T) {
	drv := &recordingDriver{}
	l := New(drv, 17, false)
	drv.calls = nil // reset after init

	l.On()
	l.On()
	if !l.Lit() {
		t.Error("lamp should be lit")
	}
	l.Off()

	writes := drv.writeCalls()
	expected := []gpio.Level{gpio.High, gpio.Low}
	if len(writes) != len(expected) {
		t.Fatalf("expected %d writes, got %d: %v", len(expected), len(writes), writes)
	}
	for i, want := range expected {
		if writes[i].level != want {
			t.Errorf("write %d = %v, want %v", i, writes[i].level, want)
		}
	}
}

func TestLamp_ActiveLow(t *testing.T) {
	drv := &recordingDriver{}
	l := New(drv, 4, true)
	drv.calls = nil

	l.On()
	if w := drv.writeCalls(); len(w) != 1 || w[0].level != gpio.Low {
		t.Errorf("active-low On wrote %v, want LOW", w)
	}
}

func TestLamp_CloseSwitchesOff(t *testing.T) {
	drv := &recordingDriver{}
	l := New(drv, 17, false)
	l.On()
	drv.calls = nil

	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if w := drv.writeCalls(); len(w) != 1 || w[0].level != gpio.Low {
		t.Errorf("Close wrote %v, want LOW", w)
	}
	if !drv.closed {
		t.Error("driver not closed")
	}
	if l.Lit() {
		t.Error("lamp still lit after Close")
	}
}

func TestLamp_WithMockDriver(t *testing.T) {
	drv, err := gpio.NewDriver(true)
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	l := New(drv, 17, false)
	if err := l.On(); err != nil {
		t.Errorf("On: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

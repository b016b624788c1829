package gpio

import "testing"

func TestNewDriver_Mock(t *testing.T) {
	drv, err := NewDriver(true)
	if err != nil {
		t.Fatalf("NewDriver(true): %v", err)
	}
	if _, ok := drv.(*MockDriver); !ok {
		t.Fatalf("driver = %T, want *MockDriver", drv)
	}
}

func TestMockDriver_ReadBack(t *testing.T) {
	m := &MockDriver{}
	if lvl, _ := m.ReadPin(17); lvl != Low {
		t.Errorf("unwritten pin = %v, want Low", lvl)
	}
	if err := m.SetupPin(17, Output); err != nil {
		t.Fatal(err)
	}
	m.WritePin(17, High)
	if lvl, _ := m.ReadPin(17); lvl != High {
		t.Errorf("pin 17 = %v, want High", lvl)
	}
	m.WritePin(17, Low)
	if lvl, _ := m.ReadPin(17); lvl != Low {
		t.Errorf("pin 17 = %v, want Low", lvl)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

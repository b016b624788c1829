package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
)

func newSim(t *testing.T) (*Screen, tcell.SimulationScreen) {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	sc, err := NewWithScreen(sim)
	if err != nil {
		t.Fatalf("NewWithScreen: %v", err)
	}
	sim.SetSize(40, 20)
	t.Cleanup(sc.Close)
	return sc, sim
}

func rowText(sim tcell.SimulationScreen, row int) string {
	cells, w, _ := sim.GetContents()
	var b strings.Builder
	for x := 0; x < w; x++ {
		c := cells[row*w+x]
		if len(c.Runes) == 0 {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(c.Runes[0])
	}
	return strings.TrimRight(b.String(), " ")
}

// ---------- Key mapping ----------

func TestKeyAction(t *testing.T) {
	tests := []struct {
		name string
		key  tcell.Key
		r    rune
		want Action
	}{
		{"arrow left", tcell.KeyLeft, 0, Left},
		{"arrow right", tcell.KeyRight, 0, Right},
		{"arrow up", tcell.KeyUp, 0, Up},
		{"arrow down", tcell.KeyDown, 0, Down},
		{"a", tcell.KeyRune, 'a', Left},
		{"D", tcell.KeyRune, 'D', Right},
		{"W", tcell.KeyRune, 'W', Up},
		{"s", tcell.KeyRune, 's', Down},
		{"h", tcell.KeyRune, 'h', Home},
		{"H", tcell.KeyRune, 'H', Home},
		{"i", tcell.KeyRune, 'I', InvertTilt},
		{"p", tcell.KeyRune, 'p', Photo},
		{"v", tcell.KeyRune, 'v', ToggleVideo},
		{"V", tcell.KeyRune, 'V', TimedVideo},
		{"l", tcell.KeyRune, 'L', TogglePreview},
		{"q", tcell.KeyRune, 'q', Quit},
		{"Q", tcell.KeyRune, 'Q', Quit},
		{"ctrl-c", tcell.KeyCtrlC, 0, Quit},
		{"unmapped rune", tcell.KeyRune, 'x', None},
		{"unmapped key", tcell.KeyF5, 0, None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := tcell.NewEventKey(tt.key, tt.r, tcell.ModNone)
			if got := KeyAction(ev); got != tt.want {
				t.Errorf("KeyAction = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAction_String(t *testing.T) {
	if TimedVideo.String() != "timed-video" {
		t.Errorf("String = %q", TimedVideo.String())
	}
	if Action(99).String() != "action(99)" {
		t.Errorf("String = %q", Action(99).String())
	}
}

// ---------- Screen ----------

func TestScreen_Line(t *testing.T) {
	sc, sim := newSim(t)

	sc.Line(2, "pos pan=+0.100 tilt=-0.200")
	sc.Show()
	if got := rowText(sim, 2); got != "pos pan=+0.100 tilt=-0.200" {
		t.Errorf("row 2 = %q", got)
	}

	sc.Line(2, "short")
	sc.Show()
	if got := rowText(sim, 2); got != "short" {
		t.Errorf("row 2 after rewrite = %q, want previous text cleared", got)
	}
}

func TestScreen_LineClipsAndIgnoresOutOfRange(t *testing.T) {
	sc, sim := newSim(t)

	sc.Line(0, strings.Repeat("x", 100))
	sc.Line(50, "off screen")
	sc.Line(-1, "off screen")
	sc.Show()
	if got := rowText(sim, 0); got != strings.Repeat("x", 40) {
		t.Errorf("row 0 = %q", got)
	}
}

func TestScreen_NextAction(t *testing.T) {
	sc, sim := newSim(t)

	sim.InjectKey(tcell.KeyRune, 'p', tcell.ModNone)
	if got := sc.NextAction(time.Second); got != Photo {
		t.Errorf("NextAction = %s, want photo", got)
	}
}

func TestScreen_NextActionTimeout(t *testing.T) {
	sc, _ := newSim(t)

	start := time.Now()
	if got := sc.NextAction(50 * time.Millisecond); got != None {
		t.Errorf("NextAction = %s, want none", got)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("NextAction returned before the timeout")
	}
}

func TestScreen_WaitKey(t *testing.T) {
	sc, sim := newSim(t)

	if sc.WaitKey(30 * time.Millisecond) {
		t.Error("WaitKey reported a key with none pressed")
	}
	sim.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	if !sc.WaitKey(time.Second) {
		t.Error("WaitKey missed the key")
	}
}

// Package ui is the full-screen terminal of the session: rows of text and
// one decoded key at a time.
package ui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
)

// Action is a decoded key press.
type Action int

const (
	None Action = iota
	Quit
	Home
	InvertTilt
	Photo
	ToggleVideo
	TimedVideo
	TogglePreview
	Left
	Right
	Up
	Down
)

var actionNames = map[Action]string{
	None:          "none",
	Quit:          "quit",
	Home:          "home",
	InvertTilt:    "invert-tilt",
	Photo:         "photo",
	ToggleVideo:   "toggle-video",
	TimedVideo:    "timed-video",
	TogglePreview: "toggle-preview",
	Left:          "left",
	Right:         "right",
	Up:            "up",
	Down:          "down",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// KeyAction maps a key event. Letters are case-insensitive except v/V.
func KeyAction(ev *tcell.EventKey) Action {
	switch ev.Key() {
	case tcell.KeyLeft:
		return Left
	case tcell.KeyRight:
		return Right
	case tcell.KeyUp:
		return Up
	case tcell.KeyDown:
		return Down
	case tcell.KeyCtrlC:
		return Quit
	case tcell.KeyRune:
	default:
		return None
	}

	switch r := ev.Rune(); r {
	case 'v':
		return ToggleVideo
	case 'V':
		return TimedVideo
	case 'q', 'Q':
		return Quit
	case 'h', 'H':
		return Home
	case 'i', 'I':
		return InvertTilt
	case 'p', 'P':
		return Photo
	case 'l', 'L':
		return TogglePreview
	case 'a', 'A':
		return Left
	case 'd', 'D':
		return Right
	case 'w', 'W':
		return Up
	case 's', 'S':
		return Down
	}
	return None
}

// Screen wraps a tcell screen. Events are pumped into a channel so that
// NextAction can wait with a timeout.
type Screen struct {
	s      tcell.Screen
	events chan tcell.Event
	quit   chan struct{}
}

// New opens the controlling terminal.
func New() (*Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("open terminal: %w", err)
	}
	return NewWithScreen(s)
}

// NewWithScreen initializes s and starts reading its events.
func NewWithScreen(s tcell.Screen) (*Screen, error) {
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("init terminal: %w", err)
	}
	s.HideCursor()
	s.Clear()
	sc := &Screen{
		s:      s,
		events: make(chan tcell.Event, 16),
		quit:   make(chan struct{}),
	}
	go s.ChannelEvents(sc.events, sc.quit)
	return sc, nil
}

// Clear blanks the whole screen.
func (sc *Screen) Clear() {
	sc.s.Clear()
}

// Line writes text at row, clipped to the screen width; the rest of the row
// is blanked. Rows outside the screen are ignored.
func (sc *Screen) Line(row int, text string) {
	w, h := sc.s.Size()
	if row < 0 || row >= h {
		return
	}
	col := 0
	for _, r := range text {
		if col >= w {
			break
		}
		if r == '\n' || r == '\r' || r == '\t' {
			r = ' '
		}
		sc.s.SetContent(col, row, r, nil, tcell.StyleDefault)
		col++
	}
	for ; col < w; col++ {
		sc.s.SetContent(col, row, ' ', nil, tcell.StyleDefault)
	}
}

// Show flushes pending writes to the terminal.
func (sc *Screen) Show() {
	sc.s.Show()
}

// NextAction waits up to timeout for one key press. Unmapped keys and the
// timeout both return None.
func (sc *Screen) NextAction(timeout time.Duration) Action {
	t := time.NewTimer(timeout)
	defer t.Stop()
	for {
		select {
		case ev, ok := <-sc.events:
			if !ok {
				return None
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				return KeyAction(ev)
			case *tcell.EventResize:
				sc.s.Sync()
			}
		case <-t.C:
			return None
		}
	}
}

// WaitKey blocks until any key is pressed or timeout elapses.
func (sc *Screen) WaitKey(timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	for {
		select {
		case ev, ok := <-sc.events:
			if !ok {
				return false
			}
			if _, isKey := ev.(*tcell.EventKey); isKey {
				return true
			}
		case <-t.C:
			return false
		}
	}
}

// Close restores the terminal.
func (sc *Screen) Close() {
	close(sc.quit)
	sc.s.Fini()
}

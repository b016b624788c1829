package session

import (
	"fmt"
	"time"

	"github.com/cjeanneret/ptzkey/internal/ptz"
	"github.com/cjeanneret/ptzkey/internal/stream"
)

// Screen rows.
const (
	rowTitle    = 0
	rowParams   = 11
	rowTiltSign = 12
	rowPosition = 14
	rowVideo    = 15
	rowLive     = 16
	rowMessage  = 17
	rowRecorder = 18
	rowCount    = 19
)

const (
	maxDiagLen    = 120 // recorder output on its row
	maxMessageLen = 480 // status messages; frame-grab diagnostics fit
)

// setLine stores a row. URL credentials never reach the screen or the mirror.
func (s *Session) setLine(row int, text string) {
	if row >= 0 && row < rowCount {
		s.lines[row] = stream.Scrub(text)
	}
}

// setDiagnostics shows recorder output on its own row, or clears it.
func (s *Session) setDiagnostics(diag string) {
	if diag == "" {
		s.setLine(rowRecorder, "")
		return
	}
	s.setLine(rowRecorder, "ffmpeg: "+ptz.Truncate(diag, maxDiagLen))
}

// flush writes every row to the screen and publishes the view.
func (s *Session) flush() {
	for row, text := range s.lines {
		s.deps.Screen.Line(row, text)
	}
	s.deps.Screen.Show()
	if s.deps.Publisher != nil {
		s.deps.Publisher.Publish(s.lines[:])
	}
}

func (s *Session) renderLegend() {
	s.deps.Screen.Clear()
	s.lines = [rowCount]string{}
	s.setLine(rowTitle, "PTZ keyboard control (RelativeMove + photo + video)")
	s.setLine(2, "Arrow / WASD : move")
	s.setLine(4, "h            : go home (if supported)")
	s.setLine(5, "i            : invert tilt (UP/DOWN swap)")
	s.setLine(6, "p            : capture photo")
	s.setLine(7, "v            : start/stop video recording")
	s.setLine(8, fmt.Sprintf("V            : record %gs video", s.cfg.VideoDuration().Seconds()))
	s.setLine(9, "l            : start/stop live preview")
	s.setLine(10, "q            : quit")
	s.setLine(rowParams, fmt.Sprintf("step=%v margin=%v settle=%v mount=%s",
		s.cfg.PTZ.Step, s.cfg.PTZ.Margin, s.cfg.PTZ.SettleSec, s.cal.Mount))
	s.renderTiltSign()
}

func (s *Session) renderTiltSign() {
	s.setLine(rowTiltSign, fmt.Sprintf("tilt_up_sign=%+d", s.cal.TiltUpSign))
}

func (s *Session) renderStatus(now time.Time) {
	if s.pos != nil {
		s.setLine(rowPosition, fmt.Sprintf("pos pan=%+.3f tilt=%+.3f", s.pos.Pan, s.pos.Tilt))
	} else {
		s.setLine(rowPosition, "pos (not available)")
	}

	switch {
	case s.rec.Running() && s.rec.HasDeadline():
		s.setLine(rowVideo, fmt.Sprintf("video: REC %ds -> %s", s.rec.Remaining(now), s.rec.Path))
	case s.rec.Running():
		s.setLine(rowVideo, "video: REC -> "+s.rec.Path)
	default:
		s.setLine(rowVideo, "video: idle")
	}

	if s.preview.Running() {
		s.setLine(rowLive, "live: on")
	} else {
		s.setLine(rowLive, "live: off")
	}
}

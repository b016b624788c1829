package session

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cjeanneret/ptzkey/internal/debug"
	"github.com/cjeanneret/ptzkey/internal/logic/motion"
	"github.com/cjeanneret/ptzkey/internal/media"
	"github.com/cjeanneret/ptzkey/internal/process"
	"github.com/cjeanneret/ptzkey/internal/ptz"
	"github.com/cjeanneret/ptzkey/internal/stream"
	"github.com/cjeanneret/ptzkey/internal/ui"
)

var directions = map[ui.Action]motion.Direction{
	ui.Left:  motion.Left,
	ui.Right: motion.Right,
	ui.Up:    motion.Up,
	ui.Down:  motion.Down,
}

func (s *Session) dispatch(ctx context.Context, act ui.Action) {
	switch act {
	case ui.Quit:
		s.quit = true
	case ui.Home:
		s.home(ctx)
	case ui.InvertTilt:
		s.cal.InvertTilt()
		s.renderTiltSign()
		s.setLine(rowMessage, "tilt inverted")
		debug.Info("tilt inverted: %s", s.cal)
	case ui.Photo:
		s.photo(ctx)
	case ui.ToggleVideo:
		s.toggleVideo()
	case ui.TimedVideo:
		s.timedVideo()
	case ui.TogglePreview:
		s.togglePreview()
	default:
		if dir, ok := directions[act]; ok {
			s.move(ctx, dir)
		}
	}
}

func (s *Session) home(ctx context.Context) {
	if s.dev.GotoHome(ctx, s.token) {
		s.setLine(rowMessage, "home: ok")
	} else {
		s.setLine(rowMessage, "home: not supported / failed")
	}
	s.flush()
	s.deps.Sleep(HomeSettle)
	s.refreshPosition(ctx)
}

func (s *Session) move(ctx context.Context, dir motion.Direction) {
	out := s.motion.Move(ctx, dir, s.cal, s.pos)
	s.setLine(rowMessage, out.Message)
	// refreshed after every attempt, blocked or failed included
	s.refreshPosition(ctx)
}

func (s *Session) photo(ctx context.Context) {
	s.setLine(rowMessage, "capturing photo ...")
	s.flush()
	path, err := s.capture.Photo(ctx, s.cfg.Output.CaptureDir)
	if err != nil {
		s.setLine(rowMessage, "photo failed: "+ptz.Truncate(err.Error(), maxMessageLen))
		return
	}
	debug.Info("photo saved: %s", path)
	s.setLine(rowMessage, "saved: "+path)
}

func (s *Session) streamURL() (string, error) {
	return stream.URL(s.cfg.Camera)
}

// startRecording launches the recorder. duration 0 records until stopped.
func (s *Session) startRecording(duration time.Duration) (*process.Handle, error) {
	url, err := s.streamURL()
	if err != nil {
		return nil, err
	}
	dir := s.cfg.Output.VideoDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create video dir: %w", err)
	}
	now := s.deps.Now()
	path := media.OutputPath(dir, "record", "mkv", now)
	s.setLine(rowMessage, "video start ... "+path)
	s.flush()

	h, err := s.recorder.Start(s.rec, process.Spec{
		Command:  process.Command{Name: s.cfg.Tools.FFmpeg, Args: media.RecordArgs(url, path)},
		Path:     path,
		Duration: duration,
	}, now)
	if err != nil {
		return nil, err
	}
	s.lampOn()
	return h, nil
}

func (s *Session) stopRecording() {
	s.setLine(rowMessage, "video stopping ...")
	s.flush()
	path := s.rec.Path
	diag := s.recorder.Stop(s.rec)
	s.rec = nil
	s.lampOff()
	if path != "" {
		s.setLine(rowMessage, "video saved: "+path)
	} else {
		s.setLine(rowMessage, "video stopped")
	}
	s.setDiagnostics(diag)
}

func (s *Session) toggleVideo() {
	if s.rec.Running() {
		s.stopRecording()
		return
	}
	h, err := s.startRecording(0)
	if err != nil {
		s.rec = nil
		s.setLine(rowMessage, "video start failed: "+ptz.Truncate(err.Error(), maxMessageLen))
		return
	}
	s.rec = h
	s.setLine(rowMessage, "video recording started")
}

func (s *Session) timedVideo() {
	if s.rec.Running() {
		s.setLine(rowMessage, "video is already recording")
		return
	}
	h, err := s.startRecording(s.cfg.VideoDuration())
	if err != nil {
		s.rec = nil
		s.setLine(rowMessage, "video failed: "+ptz.Truncate(err.Error(), maxMessageLen))
		return
	}
	s.rec = h
	s.setLine(rowMessage, "video recording started")
	s.setLine(rowRecorder, "")
}

func (s *Session) togglePreview() {
	if s.preview.Running() {
		s.setLine(rowMessage, "live preview stopping ...")
		s.flush()
		s.previewer.Stop(s.preview)
		s.preview = nil
		s.setLine(rowMessage, "live preview stopped")
		return
	}

	fail := func(err error) {
		s.preview = nil
		s.setLine(rowMessage, "live preview failed: "+ptz.Truncate(err.Error(), maxMessageLen))
	}
	bin, err := s.deps.LookPath(s.cfg.Tools.FFplay)
	if err != nil {
		fail(err)
		return
	}
	url, err := s.streamURL()
	if err != nil {
		fail(err)
		return
	}
	s.setLine(rowMessage, "live preview starting ...")
	s.flush()
	h, err := s.previewer.Start(s.preview, process.Spec{
		Command: process.Command{Name: bin, Args: media.PreviewArgs(url)},
	}, s.deps.Now())
	if err != nil {
		fail(err)
		return
	}
	s.preview = h
	s.setLine(rowMessage, "live preview started")
}

// Package session runs the interactive keyboard loop: startup calibration,
// one bounded key read per tick, dispatch, and unconditional cleanup.
//
// Everything here runs on the caller's goroutine. The recording and preview
// slots, the position and the calibration are only touched between the
// blocking points of the loop, so none of them is locked.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cjeanneret/ptzkey/internal/config"
	"github.com/cjeanneret/ptzkey/internal/debug"
	"github.com/cjeanneret/ptzkey/internal/logic/calibrate"
	"github.com/cjeanneret/ptzkey/internal/logic/capture"
	"github.com/cjeanneret/ptzkey/internal/logic/motion"
	"github.com/cjeanneret/ptzkey/internal/media"
	"github.com/cjeanneret/ptzkey/internal/process"
	"github.com/cjeanneret/ptzkey/internal/ptz"
	"github.com/cjeanneret/ptzkey/internal/ui"
)

// HomeSettle is the wait after a go-home request before the position is read.
const HomeSettle = 400 * time.Millisecond

// AckTimeout bounds the wait for a key after a fatal startup error.
const AckTimeout = 10 * time.Minute

// Screen is the terminal sink.
type Screen interface {
	Line(row int, text string)
	Clear()
	Show()
	NextAction(timeout time.Duration) ui.Action
	WaitKey(timeout time.Duration) bool
}

// Publisher receives every rendered view (web mirror).
type Publisher interface {
	Publish(lines []string)
}

// Lamp is the REC tally output.
type Lamp interface {
	On() error
	Off() error
}

// Deps are the collaborators of a session. Config, Connect, Screen and
// Launcher are required.
type Deps struct {
	Config    *config.Config
	Connect   func(ctx context.Context) (ptz.Device, error)
	Screen    Screen
	Launcher  process.Launcher
	Grabber   capture.FrameGrabber
	Lamp      Lamp
	Publisher Publisher
	LookPath  func(name string) (string, error) // media.Require when nil
	Now       func() time.Time                  // time.Now when nil
	Sleep     func(time.Duration)               // time.Sleep when nil
}

// Session is one interactive run against one device.
type Session struct {
	deps Deps
	cfg  *config.Config

	dev    ptz.Device
	token  string
	ranges ptz.Ranges
	cal    ptz.Calibration
	pos    *ptz.Position

	motion  *motion.Controller
	capture *capture.Service

	recorder  *process.Supervisor
	previewer *process.Supervisor
	rec       *process.Handle
	preview   *process.Handle

	lines [rowCount]string
	quit  bool
}

// New validates deps and fills the optional ones.
func New(deps Deps) (*Session, error) {
	if deps.Config == nil || deps.Connect == nil || deps.Screen == nil || deps.Launcher == nil {
		return nil, errors.New("session: config, connect, screen and launcher are required")
	}
	if deps.LookPath == nil {
		deps.LookPath = media.Require
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Sleep == nil {
		deps.Sleep = time.Sleep
	}
	return &Session{
		deps:      deps,
		cfg:       deps.Config,
		recorder:  process.NewSupervisor(process.PolicyFor(process.RoleRecording), deps.Launcher),
		previewer: process.NewSupervisor(process.PolicyFor(process.RolePreview), deps.Launcher),
	}, nil
}

// Run connects, calibrates and loops until the quit key or ctx is done.
// Active recording and preview processes are stopped and the device is
// closed on every exit path. The returned error is a fatal startup error.
func (s *Session) Run(ctx context.Context) error {
	defer s.cleanup()

	if err := s.startup(ctx); err != nil {
		s.fatal(err)
		return err
	}
	s.renderLegend()

	for !s.quit && ctx.Err() == nil {
		s.tick(ctx)
	}
	return nil
}

func (s *Session) startup(ctx context.Context) error {
	debug.Section("Startup")
	s.setLine(rowTitle, "connecting ...")
	s.flush()

	dev, err := s.deps.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	s.dev = dev

	profiles, err := dev.Profiles(ctx)
	if err != nil {
		return fmt.Errorf("get profiles: %w", err)
	}
	profile, err := ptz.PickProfile(profiles)
	if err != nil {
		return err
	}
	s.token = profile.Token
	debug.Value("profile", profile.Token)

	ranges, err := dev.Ranges(ctx, profile.PTZConfigToken)
	if err != nil {
		debug.Error(fmt.Errorf("ptz ranges, using defaults: %w", err))
		ranges = ptz.DefaultRanges()
	}
	s.ranges = ranges

	s.setLine(rowTitle, "calibrating tilt ...")
	s.setLine(2, fmt.Sprintf("range pan[%.2f,%.2f] tilt[%.2f,%.2f]",
		ranges.Pan.Min, ranges.Pan.Max, ranges.Tilt.Min, ranges.Tilt.Max))
	s.flush()

	cal := calibrate.New(dev, s.token)
	cal.Sleep = s.deps.Sleep
	s.cal = cal.Run(ctx, ranges, calibrate.Options{
		Mount:       s.cfg.Mount(),
		BasePanSign: s.cfg.BasePanSign(),
		Probe:       s.cfg.PTZ.Probe,
		Settle:      s.cfg.Settle(),
		ProbeSettle: s.cfg.ProbeSettle(),
	})

	s.motion = motion.NewController(dev, s.token, ranges, motion.Config{
		Step:   s.cfg.PTZ.Step,
		Margin: s.cfg.PTZ.Margin,
		Settle: s.cfg.Settle(),
	})
	s.motion.SetSleep(s.deps.Sleep)

	streamURL, err := s.streamURL()
	if err != nil {
		// only the frame-grab step needs it; photos may still work
		debug.Error(err)
	}
	s.capture = capture.NewService(dev, s.token, s.cfg.Camera.Username, s.cfg.Camera.Password, s.deps.Grabber, streamURL)
	s.capture.SetClock(s.deps.Now)

	s.refreshPosition(ctx)
	debug.PrintStruct("Ranges", s.ranges)
	debug.Summary(debug.Fmt("Ready: profile=%s %s", s.token, s.cal))
	return nil
}

// fatal shows a startup error and waits for acknowledgement.
func (s *Session) fatal(err error) {
	debug.Error(err)
	s.deps.Screen.Clear()
	s.lines = [rowCount]string{}
	s.setLine(rowTitle, "startup failed: "+ptz.Truncate(err.Error(), maxMessageLen))
	s.setLine(2, "press any key to exit")
	s.flush()
	s.deps.Screen.WaitKey(AckTimeout)
}

// tick is one loop iteration: deadline and liveness checks, render, one
// bounded key read, dispatch.
func (s *Session) tick(ctx context.Context) {
	now := s.deps.Now()

	if s.rec.Running() && s.rec.DeadlineReached(now) {
		debug.Live("fixed-duration recording reached its deadline")
		s.stopRecording()
	}
	if s.recorder.Exited(s.rec) {
		s.setLine(rowMessage, "video stopped: recorder exited")
		s.setDiagnostics(s.recorder.Diagnostics(s.rec))
		s.rec = nil
		s.lampOff()
	}
	if s.previewer.Exited(s.preview) {
		s.preview = nil
		s.setLine(rowMessage, "live preview stopped")
	}

	s.renderStatus(now)
	s.flush()

	act := s.deps.Screen.NextAction(s.cfg.Tick())
	if act == ui.None {
		return
	}
	debug.Live("key: %s", act)
	s.dispatch(ctx, act)
}

// cleanup never fails; errors are logged.
func (s *Session) cleanup() {
	if s.rec.Running() {
		debug.Process("recording", "stopping at shutdown")
		s.recorder.Stop(s.rec)
	}
	s.rec = nil
	s.lampOff()
	if s.preview.Running() {
		debug.Process("preview", "stopping at shutdown")
		s.previewer.Stop(s.preview)
	}
	s.preview = nil
	if s.dev != nil {
		if err := s.dev.Close(); err != nil {
			debug.Error(fmt.Errorf("close device: %w", err))
		}
		s.dev = nil
	}
}

func (s *Session) refreshPosition(ctx context.Context) {
	s.pos = ptz.ReadPosition(ctx, s.dev, s.token)
}

func (s *Session) lampOn() {
	if s.deps.Lamp == nil {
		return
	}
	if err := s.deps.Lamp.On(); err != nil {
		debug.Error(fmt.Errorf("tally on: %w", err))
	}
}

func (s *Session) lampOff() {
	if s.deps.Lamp == nil {
		return
	}
	if err := s.deps.Lamp.Off(); err != nil {
		debug.Error(fmt.Errorf("tally off: %w", err))
	}
}

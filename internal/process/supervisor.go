// Package process supervises the recording and live-preview subprocesses.
//
// A Supervisor serves one role. It never keeps a process handle itself: the
// caller owns the single Handle slot of each role and passes it back in.
package process

import (
	"errors"
	"fmt"
	"time"

	"github.com/cjeanneret/ptzkey/internal/debug"
	"github.com/cjeanneret/ptzkey/internal/ptz"
)

// ErrAlreadyActive is returned by Start when the role's slot holds a running process.
var ErrAlreadyActive = errors.New("already active")

// Role selects the stop policy.
type Role int

const (
	RoleRecording Role = iota
	RolePreview
)

func (r Role) String() string {
	switch r {
	case RoleRecording:
		return "recording"
	case RolePreview:
		return "preview"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// State is the lifecycle of a supervised process.
type State int

const (
	Idle State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Process is a started external process.
type Process interface {
	// Quit asks the process to finish cooperatively (writes to its input).
	Quit() error
	// Terminate sends the terminate signal.
	Terminate() error
	// Kill forcefully stops the process.
	Kill() error
	// Done is closed once the process has exited and its output is drained.
	Done() <-chan struct{}
	// ExitCode is valid after Done; -1 when unknown.
	ExitCode() int
	// Diagnostics returns the captured error output.
	Diagnostics() string
}

// Command describes a process to launch.
type Command struct {
	Name  string
	Args  []string
	Stdin bool // open an input pipe for Quit
}

// Launcher starts processes.
type Launcher interface {
	Launch(cmd Command) (Process, error)
}

// Policy is the role-specific stop behaviour.
type Policy struct {
	Role     Role
	Quit     bool          // a cooperative quit channel exists
	QuitWait time.Duration // wait after Quit before terminating
	TermWait time.Duration // wait after Terminate before killing
	DiagLen  int           // diagnostics returned by Stop are truncated to this
}

// PolicyFor returns the default policy of a role.
func PolicyFor(role Role) Policy {
	if role == RolePreview {
		return Policy{Role: RolePreview, TermWait: 1500 * time.Millisecond, DiagLen: 300}
	}
	return Policy{
		Role:     RoleRecording,
		Quit:     true,
		QuitWait: 3 * time.Second,
		TermWait: 2 * time.Second,
		DiagLen:  300,
	}
}

// Handle is the session slot content for one role.
type Handle struct {
	Role     Role
	Path     string    // output file, "" for preview
	Started  time.Time
	Deadline time.Time // zero when the session has no fixed duration

	proc  Process
	state State
}

// State returns the lifecycle state.
func (h *Handle) State() State {
	if h == nil {
		return Idle
	}
	return h.state
}

// Running reports whether the handle holds a running process.
func (h *Handle) Running() bool {
	return h.State() == Running
}

// HasDeadline reports whether the session stops by itself.
func (h *Handle) HasDeadline() bool {
	return h != nil && !h.Deadline.IsZero()
}

// DeadlineReached reports whether now is at or past the deadline.
func (h *Handle) DeadlineReached(now time.Time) bool {
	return h.HasDeadline() && !now.Before(h.Deadline)
}

// Remaining returns the whole seconds left before the deadline, rounded up.
func (h *Handle) Remaining(now time.Time) int {
	if !h.HasDeadline() {
		return 0
	}
	left := h.Deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - time.Nanosecond) / time.Second)
}

// Spec is a start request.
type Spec struct {
	Command  Command
	Path     string        // output file recorded in the handle
	Duration time.Duration // > 0 sets a deadline
}

// Supervisor starts and stops processes of one role.
type Supervisor struct {
	policy   Policy
	launcher Launcher
}

// NewSupervisor creates a supervisor with the given policy.
func NewSupervisor(policy Policy, launcher Launcher) *Supervisor {
	return &Supervisor{policy: policy, launcher: launcher}
}

// Policy returns the supervisor's stop policy.
func (s *Supervisor) Policy() Policy {
	return s.policy
}

// Start launches a process unless current already runs one.
func (s *Supervisor) Start(current *Handle, spec Spec, now time.Time) (*Handle, error) {
	role := s.policy.Role
	if current.Running() {
		return current, fmt.Errorf("%s %w", role, ErrAlreadyActive)
	}

	h := &Handle{Role: role, Path: spec.Path, Started: now, state: Starting}
	spec.Command.Stdin = s.policy.Quit
	proc, err := s.launcher.Launch(spec.Command)
	if err != nil {
		h.state = Idle
		debug.Process(role.String(), "start failed: "+err.Error())
		return nil, err
	}
	h.proc = proc
	h.state = Running
	if spec.Duration > 0 {
		h.Deadline = now.Add(spec.Duration)
	}
	debug.Process(role.String(), "started "+spec.Command.Name)
	return h, nil
}

// Stop runs the role's escalation (quit, terminate, kill) and returns only
// once the process has exited. The returned diagnostics are truncated.
func (s *Supervisor) Stop(h *Handle) string {
	if h == nil || h.proc == nil || h.state == Idle {
		return ""
	}
	role := s.policy.Role.String()
	h.state = Stopping
	p := h.proc

	exited := isDone(p)
	if !exited && s.policy.Quit {
		debug.Process(role, "quit")
		if err := p.Quit(); err != nil {
			debug.Process(role, "quit failed: "+err.Error())
		}
		exited = waitDone(p, s.policy.QuitWait)
	}
	if !exited {
		debug.Process(role, "terminate")
		if err := p.Terminate(); err != nil {
			debug.Process(role, "terminate failed: "+err.Error())
		}
		exited = waitDone(p, s.policy.TermWait)
	}
	if !exited {
		debug.Process(role, "kill")
		if err := p.Kill(); err != nil {
			debug.Process(role, "kill failed: "+err.Error())
		}
		<-p.Done()
	}

	h.state = Idle
	debug.Process(role, fmt.Sprintf("stopped (exit %d)", p.ExitCode()))
	return ptz.Truncate(p.Diagnostics(), s.policy.DiagLen)
}

// Exited is the per-tick liveness check. It reports true, and moves the
// handle to Idle, when a running process has exited on its own.
func (s *Supervisor) Exited(h *Handle) bool {
	if !h.Running() || !isDone(h.proc) {
		return false
	}
	h.state = Idle
	debug.Process(s.policy.Role.String(), fmt.Sprintf("exited on its own (exit %d)", h.proc.ExitCode()))
	return true
}

// Diagnostics returns the truncated error output of a handle's process.
func (s *Supervisor) Diagnostics(h *Handle) string {
	if h == nil || h.proc == nil {
		return ""
	}
	return ptz.Truncate(h.proc.Diagnostics(), s.policy.DiagLen)
}

func isDone(p Process) bool {
	select {
	case <-p.Done():
		return true
	default:
		return false
	}
}

func waitDone(p Process, d time.Duration) bool {
	if d <= 0 {
		return isDone(p)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.Done():
		return true
	case <-t.C:
		return false
	}
}

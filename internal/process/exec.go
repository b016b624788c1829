package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/cjeanneret/ptzkey/internal/stream"
)

// maxDiagnostics caps the stderr kept per process.
const maxDiagnostics = 16 * 1024

// ExecLauncher starts real processes with os/exec.
type ExecLauncher struct {
	// WaitDelay bounds stderr draining after exit (default 2s).
	WaitDelay time.Duration
}

// Launch starts cmd with stderr captured and, when requested, a stdin pipe.
func (l ExecLauncher) Launch(c Command) (Process, error) {
	cmd := exec.Command(c.Name, c.Args...)
	stderr := &tailBuffer{max: maxDiagnostics}
	cmd.Stderr = stderr
	cmd.WaitDelay = l.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = 2 * time.Second
	}

	var stdin io.WriteCloser
	if c.Stdin {
		var err error
		stdin, err = cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("stdin pipe: %w", err)
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", c.Name, err)
	}

	p := &execProcess{cmd: cmd, stdin: stdin, stderr: stderr, done: make(chan struct{})}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  *tailBuffer
	done    chan struct{}
	waitErr error

	quitOnce sync.Once
}

func (p *execProcess) Quit() error {
	if p.stdin == nil {
		return errors.New("no input channel")
	}
	var err error
	p.quitOnce.Do(func() {
		if _, werr := io.WriteString(p.stdin, "q\n"); werr != nil {
			err = werr
		}
		p.stdin.Close()
	})
	return err
}

func (p *execProcess) Terminate() error {
	return ignoreFinished(p.cmd.Process.Signal(syscall.SIGTERM))
}

func (p *execProcess) Kill() error {
	return ignoreFinished(p.cmd.Process.Kill())
}

func (p *execProcess) Done() <-chan struct{} {
	return p.done
}

func (p *execProcess) ExitCode() int {
	select {
	case <-p.done:
		if p.cmd.ProcessState != nil {
			return p.cmd.ProcessState.ExitCode()
		}
	default:
	}
	return -1
}

// Diagnostics returns the stderr tail with URL credentials scrubbed.
func (p *execProcess) Diagnostics() string {
	return stream.Scrub(p.stderr.String())
}

func ignoreFinished(err error) error {
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/cjeanneret/ptzkey/internal/debug"
	"github.com/cjeanneret/ptzkey/internal/ptz"
	"github.com/cjeanneret/ptzkey/internal/stream"
)

// MaxFrameErrorLen bounds the ffmpeg diagnostics attached to a failed grab.
const MaxFrameErrorLen = 400

// ErrFrameTimeout is returned when ffmpeg does not produce a frame in time.
var ErrFrameTimeout = errors.New("ffmpeg timeout while capturing frame")

// FFmpegGrabber extracts a single frame from a live stream.
type FFmpegGrabber struct {
	Binary  string        // default "ffmpeg"
	Timeout time.Duration // default 10s
	TempDir string        // default os.TempDir()
}

// Grab runs ffmpeg against streamURL and returns the JPEG bytes. The
// temporary output file is removed whatever the outcome. Credentials echoed
// by ffmpeg are scrubbed from the returned error.
func (g *FFmpegGrabber) Grab(ctx context.Context, streamURL string) ([]byte, error) {
	bin := g.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	tmp, err := os.CreateTemp(g.TempDir, "ptzkey-frame-*.jpg")
	if err != nil {
		return nil, fmt.Errorf("create temp frame: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(cctx, bin, FrameArgs(streamURL, path)...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	debug.Verbose("ffmpeg frame grab (timeout %v)", timeout)
	runErr := cmd.Run()

	if errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, ErrFrameTimeout
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("ffmpeg failed (code=%d): %s",
				exitErr.ExitCode(), ptz.Truncate(stream.Scrub(stderr.String()), MaxFrameErrorLen))
		}
		return nil, fmt.Errorf("run ffmpeg: %w", runErr)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("ffmpeg produced an empty frame")
	}
	return data, nil
}

// Package media holds the contracts of the external ffmpeg/ffplay executables:
// argument lists, single-frame extraction and output file naming.
package media

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"
)

// TimestampLayout is used in every output file name.
const TimestampLayout = "20060102_150405"

// PreviewTitle is the window title of the live preview.
const PreviewTitle = "ONVIF Live Preview"

// ErrToolNotFound is returned by Require when an executable is not on PATH.
var ErrToolNotFound = errors.New("not found")

// FrameArgs extracts exactly one JPEG frame from an RTSP stream.
func FrameArgs(streamURL, out string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-rtsp_transport", "tcp",
		"-y",
		"-i", streamURL,
		"-frames:v", "1",
		"-q:v", "2",
		"-f", "image2",
		out,
	}
}

// RecordArgs copies every stream into a Matroska container without
// re-encoding. ffmpeg stops cleanly when it reads "q" on stdin.
func RecordArgs(streamURL, out string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-rtsp_transport", "tcp",
		"-i", streamURL,
		"-map", "0",
		"-c", "copy",
		"-f", "matroska",
		"-y", out,
	}
}

// PreviewArgs displays the stream with minimal buffering.
func PreviewArgs(streamURL string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-rtsp_transport", "tcp",
		"-fflags", "nobuffer",
		"-flags", "low_delay",
		"-framedrop",
		"-window_title", PreviewTitle,
		streamURL,
	}
}

// OutputPath returns dir/<prefix>_<timestamp>.<ext>.
func OutputPath(dir, prefix, ext string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", prefix, t.Format(TimestampLayout), ext))
}

// Require resolves an executable on PATH, failing with "<name> not found".
func Require(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s %w", filepath.Base(name), ErrToolNotFound)
	}
	return path, nil
}

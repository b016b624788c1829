// Package capture resolves still photos through an ordered fallback chain
// and persists them.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/icholy/digest"

	"github.com/cjeanneret/ptzkey/internal/debug"
	"github.com/cjeanneret/ptzkey/internal/media"
	"github.com/cjeanneret/ptzkey/internal/ptz"
)

// SnapshotTimeout bounds the snapshot URI request.
const SnapshotTimeout = 6 * time.Second

// maxSnapshotBytes caps the body read from the snapshot URI.
const maxSnapshotBytes = 32 << 20

var (
	// ErrNoSnapshotURI is returned when the device reports no snapshot URI.
	ErrNoSnapshotURI = errors.New("device has no snapshot uri")
	// ErrNoSnapshotHelper is returned when the device has no native snapshot.
	ErrNoSnapshotHelper = errors.New("device has no native snapshot")
)

// FrameGrabber extracts one frame from a live stream.
type FrameGrabber interface {
	Grab(ctx context.Context, streamURL string) ([]byte, error)
}

// Service captures photos for one profile.
type Service struct {
	Device    ptz.Device
	Token     string
	Grabber   FrameGrabber
	StreamURL string

	client *http.Client
	now    func() time.Time
}

// NewService builds a service whose snapshot requests authenticate with
// username/password (basic sent up front, digest challenges answered).
func NewService(dev ptz.Device, token string, username, password string, grabber FrameGrabber, streamURL string) *Service {
	return &Service{
		Device:    dev,
		Token:     token,
		Grabber:   grabber,
		StreamURL: streamURL,
		client: &http.Client{
			Timeout: SnapshotTimeout,
			Transport: &basicAuth{
				username: username,
				password: password,
				next:     &digest.Transport{Username: username, Password: password},
			},
		},
		now: time.Now,
	}
}

// SetClock overrides the clock used for file names.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// step is one link of the fallback chain.
type step struct {
	name string
	run  func(ctx context.Context) ([]byte, error)
}

func (s *Service) steps() []step {
	return []step{
		{"native snapshot", s.native},
		{"snapshot uri", s.fromURI},
		{"frame grab", s.grab},
	}
}

// Capture walks the chain and returns the bytes of the first step that
// succeeds. When every step fails, only the last step's error is returned.
func (s *Service) Capture(ctx context.Context) ([]byte, error) {
	var lastErr error
	for _, st := range s.steps() {
		data, err := st.run(ctx)
		if err == nil {
			debug.Verbose("capture: %s ok (%d bytes)", st.name, len(data))
			return data, nil
		}
		debug.Capture(st.name, err)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (s *Service) native(ctx context.Context) ([]byte, error) {
	snap, ok := s.Device.(ptz.Snapshotter)
	if !ok {
		return nil, ErrNoSnapshotHelper
	}
	data, err := snap.Snapshot(ctx, s.Token)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("native snapshot returned no data")
	}
	return data, nil
}

func (s *Service) fromURI(ctx context.Context) ([]byte, error) {
	uri, err := s.Device.SnapshotURI(ctx, s.Token)
	if err != nil {
		return nil, err
	}
	if uri == "" {
		return nil, ErrNoSnapshotURI
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("snapshot fetch: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("snapshot read: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("snapshot fetch: empty body")
	}
	return data, nil
}

func (s *Service) grab(ctx context.Context) ([]byte, error) {
	if s.Grabber == nil {
		return nil, fmt.Errorf("no frame grabber configured")
	}
	return s.Grabber.Grab(ctx, s.StreamURL)
}

// Save writes data to dir/capture_<timestamp>.jpg, creating dir.
func (s *Service) Save(data []byte, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create capture dir: %w", err)
	}
	path := media.OutputPath(dir, "capture", "jpg", s.now())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write capture: %w", err)
	}
	return path, nil
}

// Photo captures and saves in one call.
func (s *Service) Photo(ctx context.Context, dir string) (string, error) {
	data, err := s.Capture(ctx)
	if err != nil {
		return "", err
	}
	return s.Save(data, dir)
}

// basicAuth sends basic credentials with every request.
type basicAuth struct {
	username, password string
	next               http.RoundTripper
}

func (b *basicAuth) RoundTrip(req *http.Request) (*http.Response, error) {
	if b.username == "" && b.password == "" {
		return b.next.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.SetBasicAuth(b.username, b.password)
	return b.next.RoundTrip(req)
}

package onvif

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	goonvif "github.com/use-go/onvif"
	"github.com/use-go/onvif/device"
	"github.com/use-go/onvif/media"
	onvif_ptz "github.com/use-go/onvif/ptz"
	"github.com/use-go/onvif/xsd"
	xsd_onvif "github.com/use-go/onvif/xsd/onvif"

	"github.com/cjeanneret/ptzkey/internal/debug"
	"github.com/cjeanneret/ptzkey/internal/ptz"
)

// Generic spaces every ONVIF PTZ node supports. Some firmwares reject a
// vector with an empty space attribute, so none is ever sent.
const (
	translationSpace     = "http://www.onvif.org/ver10/tptz/PanTiltSpaces/TranslationGenericSpace"
	zoomTranslationSpace = "http://www.onvif.org/ver10/tptz/ZoomSpaces/TranslationGenericSpace"
	speedSpace           = "http://www.onvif.org/ver10/tptz/PanTiltSpaces/GenericSpeedSpace"
	zoomSpeedSpace       = "http://www.onvif.org/ver10/tptz/ZoomSpaces/ZoomGenericSpeedSpace"
)

// maxBodyBytes caps a SOAP response.
const maxBodyBytes = 1 << 20

// caller is the subset of *goonvif.Device used here.
type caller interface {
	CallMethod(method interface{}) (*http.Response, error)
}

// Params describes how to reach the camera's device service.
type Params struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration // per-call HTTP timeout (default 10s)
}

// Device implements ptz.Device over ONVIF SOAP calls.
type Device struct {
	dev    caller
	closed bool
}

// Dial performs the initial handshake (service discovery). A failure here is
// the fatal "camera unreachable" startup case.
func Dial(ctx context.Context, p Params) (*Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Timeout <= 0 {
		p.Timeout = 10 * time.Second
	}
	xaddr := p.Host + ":" + strconv.Itoa(p.Port)
	debug.Verbose("ONVIF handshake with %s", xaddr)

	dev, err := goonvif.NewDevice(goonvif.DeviceParams{
		Xaddr:      xaddr,
		Username:   p.Username,
		Password:   p.Password,
		HttpClient: &http.Client{Timeout: p.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to camera %s: %w", xaddr, err)
	}
	return &Device{dev: dev}, nil
}

// call issues one SOAP request and returns the response body. Non-2xx
// responses are reported with the SOAP fault reason when one is present.
func (d *Device) call(ctx context.Context, name string, req interface{}) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := d.dev.CallMethod(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if reason := faultText(body); reason != "" {
			return nil, fmt.Errorf("%s: %s", name, reason)
		}
		return nil, fmt.Errorf("%s: HTTP %d", name, resp.StatusCode)
	}
	if reason := faultText(body); reason != "" {
		return nil, fmt.Errorf("%s: %s", name, reason)
	}
	debug.Trace("%s: %d bytes", name, len(body))
	return body, nil
}

// Profiles lists the media profiles.
func (d *Device) Profiles(ctx context.Context) ([]ptz.Profile, error) {
	body, err := d.call(ctx, "GetProfiles", media.GetProfiles{})
	if err != nil {
		return nil, err
	}
	return parseProfiles(body)
}

// Status returns the current pan/tilt position.
func (d *Device) Status(ctx context.Context, profileToken string) (ptz.Position, error) {
	body, err := d.call(ctx, "GetStatus", onvif_ptz.GetStatus{
		ProfileToken: xsd_onvif.ReferenceToken(profileToken),
	})
	if err != nil {
		return ptz.Position{}, fmt.Errorf("%w: %v", ptz.ErrPositionUnavailable, err)
	}
	return parseStatus(body)
}

// RelativeMove translates both axes in the generic translation space.
// The request type always carries a zoom translation and a speed; they are
// sent as a zero zoom step at full generic speed.
func (d *Device) RelativeMove(ctx context.Context, profileToken string, dx, dy float64) error {
	req := onvif_ptz.RelativeMove{ProfileToken: xsd_onvif.ReferenceToken(profileToken)}
	req.Translation.PanTilt.X = dx
	req.Translation.PanTilt.Y = dy
	req.Translation.PanTilt.Space = xsd.AnyURI(translationSpace)
	req.Translation.Zoom.Space = xsd.AnyURI(zoomTranslationSpace)
	fullSpeed(&req.Speed.PanTilt, &req.Speed.Zoom)

	_, err := d.call(ctx, "RelativeMove", req)
	return err
}

func fullSpeed(pt *xsd_onvif.Vector2D, zoom *xsd_onvif.Vector1D) {
	pt.X, pt.Y = 1, 1
	pt.Space = xsd.AnyURI(speedSpace)
	zoom.X = 1
	zoom.Space = xsd.AnyURI(zoomSpeedSpace)
}

// GotoHome requests the home position. Unsupported and failed requests both
// report false.
func (d *Device) GotoHome(ctx context.Context, profileToken string) bool {
	req := onvif_ptz.GotoHomePosition{ProfileToken: xsd_onvif.ReferenceToken(profileToken)}
	fullSpeed(&req.Speed.PanTilt, &req.Speed.Zoom)

	if _, err := d.call(ctx, "GotoHomePosition", req); err != nil {
		debug.Verbose("home: %v", err)
		return false
	}
	return true
}

// Ranges reads the absolute pan/tilt space of a PTZ configuration.
// Missing elements fall back to [-1, 1].
func (d *Device) Ranges(ctx context.Context, configToken string) (ptz.Ranges, error) {
	if configToken == "" {
		return ptz.DefaultRanges(), nil
	}
	body, err := d.call(ctx, "GetConfigurationOptions", onvif_ptz.GetConfigurationOptions{
		ConfigurationToken: xsd_onvif.ReferenceToken(configToken),
	})
	if err != nil {
		return ptz.DefaultRanges(), err
	}
	return parseRanges(body)
}

// SnapshotURI returns the HTTP snapshot URI, or "" when none is reported.
func (d *Device) SnapshotURI(ctx context.Context, profileToken string) (string, error) {
	body, err := d.call(ctx, "GetSnapshotUri", media.GetSnapshotUri{
		ProfileToken: xsd_onvif.ReferenceToken(profileToken),
	})
	if err != nil {
		return "", err
	}
	return parseSnapshotURI(body)
}

// DeviceInformation returns manufacturer, model and firmware details.
func (d *Device) DeviceInformation(ctx context.Context) (DeviceInformation, error) {
	body, err := d.call(ctx, "GetDeviceInformation", device.GetDeviceInformation{})
	if err != nil {
		return DeviceInformation{}, err
	}
	return parseDeviceInfo(body)
}

// Close ends the session. The SOAP transport is stateless, so this only
// guards against use after close.
func (d *Device) Close() error {
	if d.closed {
		return fmt.Errorf("device already closed")
	}
	d.closed = true
	debug.Verbose("ONVIF session closed")
	return nil
}

var _ ptz.Device = (*Device)(nil)

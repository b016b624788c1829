package onvif

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/cjeanneret/ptzkey/internal/ptz"
)

// Response envelopes. Every optional element is a pointer so that an absent
// element resolves to a documented default instead of a zero value.

type profilesEnvelope struct {
	Body struct {
		GetProfilesResponse struct {
			Profiles []struct {
				Token            string `xml:"token,attr"`
				Name             string `xml:"Name"`
				PTZConfiguration *struct {
					Token string `xml:"token,attr"`
				} `xml:"PTZConfiguration"`
			} `xml:"Profiles"`
		} `xml:"GetProfilesResponse"`
	} `xml:"Body"`
}

type vector2D struct {
	X *float64 `xml:"x,attr"`
	Y *float64 `xml:"y,attr"`
}

type statusEnvelope struct {
	Body struct {
		GetStatusResponse struct {
			PTZStatus *struct {
				Position *struct {
					PanTilt *vector2D `xml:"PanTilt"`
				} `xml:"Position"`
				MoveStatus *struct {
					PanTilt string `xml:"PanTilt"`
				} `xml:"MoveStatus"`
			} `xml:"PTZStatus"`
		} `xml:"GetStatusResponse"`
	} `xml:"Body"`
}

type floatRange struct {
	Min *float64 `xml:"Min"`
	Max *float64 `xml:"Max"`
}

type optionsEnvelope struct {
	Body struct {
		GetConfigurationOptionsResponse struct {
			PTZConfigurationOptions *struct {
				Spaces *struct {
					AbsolutePanTiltPositionSpace []struct {
						URI    string      `xml:"URI"`
						XRange *floatRange `xml:"XRange"`
						YRange *floatRange `xml:"YRange"`
					} `xml:"AbsolutePanTiltPositionSpace"`
				} `xml:"Spaces"`
			} `xml:"PTZConfigurationOptions"`
		} `xml:"GetConfigurationOptionsResponse"`
	} `xml:"Body"`
}

type snapshotURIEnvelope struct {
	Body struct {
		GetSnapshotUriResponse struct {
			MediaUri *struct {
				Uri string `xml:"Uri"`
			} `xml:"MediaUri"`
		} `xml:"GetSnapshotUriResponse"`
	} `xml:"Body"`
}

type deviceInfoEnvelope struct {
	Body struct {
		GetDeviceInformationResponse struct {
			Manufacturer    string `xml:"Manufacturer"`
			Model           string `xml:"Model"`
			FirmwareVersion string `xml:"FirmwareVersion"`
			SerialNumber    string `xml:"SerialNumber"`
			HardwareId      string `xml:"HardwareId"`
		} `xml:"GetDeviceInformationResponse"`
	} `xml:"Body"`
}

// faultEnvelope covers SOAP 1.2 (Reason/Text) and SOAP 1.1 (faultstring).
type faultEnvelope struct {
	Body struct {
		Fault *struct {
			Code struct {
				Value   string `xml:"Value"`
				Subcode struct {
					Value string `xml:"Value"`
				} `xml:"Subcode"`
			} `xml:"Code"`
			Reason struct {
				Text []string `xml:"Text"`
			} `xml:"Reason"`
			FaultString string `xml:"faultstring"`
		} `xml:"Fault"`
	} `xml:"Body"`
}

// DeviceInformation is the device identity report.
type DeviceInformation struct {
	Manufacturer    string
	Model           string
	FirmwareVersion string
	SerialNumber    string
	HardwareID      string
}

func parseProfiles(body []byte) ([]ptz.Profile, error) {
	var env profilesEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode GetProfiles: %w", err)
	}
	out := make([]ptz.Profile, 0, len(env.Body.GetProfilesResponse.Profiles))
	for _, p := range env.Body.GetProfilesResponse.Profiles {
		prof := ptz.Profile{Token: p.Token, Name: strings.TrimSpace(p.Name)}
		if p.PTZConfiguration != nil {
			prof.PTZConfigToken = p.PTZConfiguration.Token
		}
		out = append(out, prof)
	}
	return out, nil
}

func parseStatus(body []byte) (ptz.Position, error) {
	var env statusEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return ptz.Position{}, fmt.Errorf("decode GetStatus: %w", err)
	}
	st := env.Body.GetStatusResponse.PTZStatus
	if st == nil || st.Position == nil || st.Position.PanTilt == nil {
		return ptz.Position{}, ptz.ErrPositionUnavailable
	}
	pt := st.Position.PanTilt
	if pt.X == nil || pt.Y == nil {
		return ptz.Position{}, ptz.ErrPositionUnavailable
	}
	return ptz.Position{Pan: *pt.X, Tilt: *pt.Y}, nil
}

func (r *floatRange) axis() ptz.AxisRange {
	out := ptz.DefaultAxisRange
	if r == nil {
		return out
	}
	if r.Min != nil {
		out.Min = *r.Min
	}
	if r.Max != nil {
		out.Max = *r.Max
	}
	if !out.Valid() {
		return ptz.DefaultAxisRange
	}
	return out
}

func parseRanges(body []byte) (ptz.Ranges, error) {
	var env optionsEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return ptz.DefaultRanges(), fmt.Errorf("decode GetConfigurationOptions: %w", err)
	}
	opts := env.Body.GetConfigurationOptionsResponse.PTZConfigurationOptions
	if opts == nil || opts.Spaces == nil || len(opts.Spaces.AbsolutePanTiltPositionSpace) == 0 {
		return ptz.DefaultRanges(), nil
	}
	space := opts.Spaces.AbsolutePanTiltPositionSpace[0]
	return ptz.Ranges{Pan: space.XRange.axis(), Tilt: space.YRange.axis()}, nil
}

func parseSnapshotURI(body []byte) (string, error) {
	var env snapshotURIEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("decode GetSnapshotUri: %w", err)
	}
	if mu := env.Body.GetSnapshotUriResponse.MediaUri; mu != nil {
		return strings.TrimSpace(mu.Uri), nil
	}
	return "", nil
}

func parseDeviceInfo(body []byte) (DeviceInformation, error) {
	var env deviceInfoEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return DeviceInformation{}, fmt.Errorf("decode GetDeviceInformation: %w", err)
	}
	r := env.Body.GetDeviceInformationResponse
	return DeviceInformation{
		Manufacturer:    strings.TrimSpace(r.Manufacturer),
		Model:           strings.TrimSpace(r.Model),
		FirmwareVersion: strings.TrimSpace(r.FirmwareVersion),
		SerialNumber:    strings.TrimSpace(r.SerialNumber),
		HardwareID:      strings.TrimSpace(r.HardwareId),
	}, nil
}

// faultText extracts a one-line reason from a SOAP fault body. It returns ""
// when the body is not a fault.
func faultText(body []byte) string {
	var env faultEnvelope
	if err := xml.Unmarshal(body, &env); err != nil || env.Body.Fault == nil {
		return ""
	}
	f := env.Body.Fault
	for _, t := range f.Reason.Text {
		if s := strings.TrimSpace(t); s != "" {
			return s
		}
	}
	if s := strings.TrimSpace(f.FaultString); s != "" {
		return s
	}
	if s := strings.TrimSpace(f.Code.Subcode.Value); s != "" {
		return s
	}
	return strings.TrimSpace(f.Code.Value)
}

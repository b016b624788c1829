package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/ptzkey/internal/ptz"
)

// MaxConfigFileBytes caps the size of a YAML config file.
const MaxConfigFileBytes = 64 * 1024

// ErrMissingCredentials is returned by Validate when the camera host or
// credentials are not configured.
var ErrMissingCredentials = errors.New("camera host, username and password are required")

// CameraConfig describes how to reach the camera.
type CameraConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`        // ONVIF HTTP port (default 80)
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	StreamURL  string `yaml:"stream_url"`  // overrides the derived RTSP URL
	RTSPPort   int    `yaml:"rtsp_port"`   // port of the derived RTSP URL (default 554)
	StreamPath string `yaml:"stream_path"` // path of the derived RTSP URL (default /stream1)
}

// PTZConfig holds the motion and calibration parameters.
type PTZConfig struct {
	MountMode string  `yaml:"mount_mode"` // "desk" or "ceiling"
	Step      float64 `yaml:"step"`       // relative move per key press (native units)
	Margin    float64 `yaml:"margin"`     // soft-limit margin subtracted from each bound
	SettleSec float64 `yaml:"settle_sec"` // wait after each move
	Probe     float64 `yaml:"probe"`      // polarity probe size
	PanSign   float64 `yaml:"pan_sign"`   // base pan polarity, +1 or -1
}

// OutputConfig holds where photos and videos are written.
type OutputConfig struct {
	CaptureDir   string `yaml:"capture_dir"`
	VideoDir     string `yaml:"video_dir"`
	VideoSeconds float64 `yaml:"video_seconds"` // fixed-duration recording length
}

// ToolsConfig names the external executables.
type ToolsConfig struct {
	FFmpeg          string  `yaml:"ffmpeg"`
	FFplay          string  `yaml:"ffplay"`
	FrameTimeoutSec float64 `yaml:"frame_timeout_sec"` // single-frame extraction wall clock
}

// TallyConfig describes the optional REC lamp.
type TallyConfig struct {
	Pin       int  `yaml:"pin"` // BCM pin, 0 = no lamp
	ActiveLow bool `yaml:"active_low"`
}

// WebConfig configures the read-only status mirror.
type WebConfig struct {
	Addr string `yaml:"addr"` // e.g. ":8080", empty = disabled
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int    `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	LogFile    string `yaml:"log_file"`    // debug output while the terminal is in use
	MockGPIO   *bool  `yaml:"mock_gpio"`   // use mock GPIO (default true)
	TickMs     int    `yaml:"tick_ms"`     // bounded keyboard wait per loop tick
}

// Config aggregates all application configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	PTZ      PTZConfig      `yaml:"ptz"`
	Output   OutputConfig   `yaml:"output"`
	Tools    ToolsConfig    `yaml:"tools"`
	Tally    TallyConfig    `yaml:"tally"`
	Web      WebConfig      `yaml:"web"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ValidateConfigPath rejects empty paths, parent traversal and non-YAML files.
func ValidateConfigPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain '..'", path)
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	default:
		return fmt.Errorf("config path %q must be a .yaml file", path)
	}
	return nil
}

// Default returns a configuration with every default applied and no camera.
func Default() *Config {
	var cfg Config
	cfg.PTZ.Margin = 0.02
	cfg.applyDefaults()
	return &cfg
}

// Load reads a YAML file and returns the configuration with defaults applied.
// An empty path returns Default(). The result is not validated: call ApplyEnv
// and then Validate.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if err := ValidateConfigPath(path); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxConfigFileBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Fields absent from the file keep their default; an explicit zero
	// margin disables the soft margin.
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Camera.Port <= 0 {
		c.Camera.Port = 80
	}
	if c.Camera.RTSPPort <= 0 {
		c.Camera.RTSPPort = 554
	}
	if c.Camera.StreamPath == "" {
		c.Camera.StreamPath = "/stream1"
	}
	if c.PTZ.MountMode == "" {
		c.PTZ.MountMode = string(ptz.MountDesk)
	}
	if c.PTZ.Step <= 0 {
		c.PTZ.Step = 0.10
	}
	if c.PTZ.SettleSec <= 0 {
		c.PTZ.SettleSec = 0.12
	}
	if c.PTZ.Probe <= 0 {
		c.PTZ.Probe = 0.12
	}
	if c.PTZ.PanSign == 0 {
		c.PTZ.PanSign = -1.0
	}
	if c.Output.CaptureDir == "" {
		c.Output.CaptureDir = "./captures"
	}
	if c.Output.VideoDir == "" {
		c.Output.VideoDir = "./captures"
	}
	if c.Output.VideoSeconds <= 0 {
		c.Output.VideoSeconds = 10
	}
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = "ffmpeg"
	}
	if c.Tools.FFplay == "" {
		c.Tools.FFplay = "ffplay"
	}
	if c.Tools.FrameTimeoutSec <= 0 {
		c.Tools.FrameTimeoutSec = 10
	}
	if c.Defaults.LogFile == "" {
		c.Defaults.LogFile = "ptzkey.log"
	}
	if c.Defaults.MockGPIO == nil {
		mock := true
		c.Defaults.MockGPIO = &mock
	}
	if c.Defaults.TickMs <= 0 {
		c.Defaults.TickMs = 100
	}
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays environment variables on the configuration.
// Unset or empty variables leave the current value untouched.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	str := func(key string, dst *string) {
		if v, ok := get(key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := get(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", key, v)
		}
		*dst = n
		return nil
	}
	float := func(key string, dst *float64) error {
		v, ok := get(key)
		if !ok {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid number %q", key, v)
		}
		*dst = f
		return nil
	}

	str("ONVIF_HOST", &c.Camera.Host)
	str("ONVIF_USER", &c.Camera.Username)
	str("ONVIF_PASSWORD", &c.Camera.Password)
	str("STREAM_URL", &c.Camera.StreamURL)
	str("MOUNT_MODE", &c.PTZ.MountMode)
	str("CAPTURE_DIR", &c.Output.CaptureDir)
	str("VIDEO_DIR", &c.Output.VideoDir)
	str("PTZ_LOG_FILE", &c.Defaults.LogFile)
	str("PTZ_WEB_ADDR", &c.Web.Addr)

	for _, f := range []struct {
		key string
		dst *int
	}{
		{"ONVIF_PORT", &c.Camera.Port},
		{"PTZ_DEBUG_LEVEL", &c.Defaults.DebugLevel},
		{"PTZ_TALLY_PIN", &c.Tally.Pin},
	} {
		if err := integer(f.key, f.dst); err != nil {
			return err
		}
	}
	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"PTZ_STEP", &c.PTZ.Step},
		{"PTZ_MARGIN", &c.PTZ.Margin},
		{"VIDEO_SECONDS", &c.Output.VideoSeconds},
		{"PTZ_SETTLE_SEC", &c.PTZ.SettleSec},
		{"PTZ_PROBE", &c.PTZ.Probe},
		{"PAN_SIGN", &c.PTZ.PanSign},
	} {
		if err := float(f.key, f.dst); err != nil {
			return err
		}
	}

	if v, ok := get("PTZ_MOCK_GPIO"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PTZ_MOCK_GPIO: invalid boolean %q", v)
		}
		c.Defaults.MockGPIO = &b
	}
	return nil
}

// Validate checks the final configuration (file + environment + flags).
func (c *Config) Validate() error {
	if c.Camera.Host == "" || c.Camera.Username == "" || c.Camera.Password == "" {
		return ErrMissingCredentials
	}
	if c.Camera.Port < 1 || c.Camera.Port > 65535 {
		return fmt.Errorf("camera.port must be between 1 and 65535, got %d", c.Camera.Port)
	}
	if _, err := ptz.ParseMountMode(c.PTZ.MountMode); err != nil {
		return err
	}
	if c.PTZ.Step <= 0 || c.PTZ.Step > 1 {
		return fmt.Errorf("ptz.step must be in (0, 1], got %.3f", c.PTZ.Step)
	}
	if c.PTZ.Margin < 0 || c.PTZ.Margin >= 1 {
		return fmt.Errorf("ptz.margin must be in [0, 1), got %.3f", c.PTZ.Margin)
	}
	if c.PTZ.SettleSec <= 0 {
		return fmt.Errorf("ptz.settle_sec must be > 0, got %.3f", c.PTZ.SettleSec)
	}
	if c.PTZ.Probe <= 0 || c.PTZ.Probe > 1 {
		return fmt.Errorf("ptz.probe must be in (0, 1], got %.3f", c.PTZ.Probe)
	}
	if c.PTZ.PanSign != 1 && c.PTZ.PanSign != -1 {
		return fmt.Errorf("ptz.pan_sign must be +1 or -1, got %v", c.PTZ.PanSign)
	}
	if c.Output.VideoSeconds <= 0 {
		return fmt.Errorf("output.video_seconds must be > 0, got %g", c.Output.VideoSeconds)
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	if c.Tally.Pin < 0 || c.Tally.Pin > 27 {
		return fmt.Errorf("tally.pin must be a BCM pin 0-27, got %d", c.Tally.Pin)
	}
	return nil
}

// Mount returns the parsed mount mode (desk when invalid; Validate reports that case).
func (c *Config) Mount() ptz.MountMode {
	m, err := ptz.ParseMountMode(c.PTZ.MountMode)
	if err != nil {
		return ptz.MountDesk
	}
	return m
}

// BasePanSign returns the configured pan polarity as +1 or -1.
func (c *Config) BasePanSign() int {
	if c.PTZ.PanSign < 0 {
		return -1
	}
	return 1
}

// UseMockGPIO reports whether the mock GPIO driver should be used.
func (c *Config) UseMockGPIO() bool {
	return c.Defaults.MockGPIO == nil || *c.Defaults.MockGPIO
}

// Settle returns the wait after each relative move.
func (c *Config) Settle() time.Duration {
	return seconds(c.PTZ.SettleSec)
}

// ProbeSettle returns the wait used between calibration probes,
// never shorter than 200ms.
func (c *Config) ProbeSettle() time.Duration {
	return seconds(math.Max(0.20, c.PTZ.SettleSec))
}

// VideoDuration returns the length of a fixed-duration recording.
func (c *Config) VideoDuration() time.Duration {
	return seconds(c.Output.VideoSeconds)
}

// FrameTimeout returns the single-frame extraction wall-clock timeout.
func (c *Config) FrameTimeout() time.Duration {
	return seconds(c.Tools.FrameTimeoutSec)
}

// Tick returns the bounded keyboard wait of one loop iteration.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.Defaults.TickMs) * time.Millisecond
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cjeanneret/ptzkey/internal/config"
	"github.com/cjeanneret/ptzkey/internal/debug"
	"github.com/cjeanneret/ptzkey/internal/hw/gpio"
	"github.com/cjeanneret/ptzkey/internal/hw/onvif"
	"github.com/cjeanneret/ptzkey/internal/hw/tally"
	"github.com/cjeanneret/ptzkey/internal/media"
	"github.com/cjeanneret/ptzkey/internal/process"
	"github.com/cjeanneret/ptzkey/internal/ptz"
	"github.com/cjeanneret/ptzkey/internal/session"
	"github.com/cjeanneret/ptzkey/internal/ui"
	"github.com/cjeanneret/ptzkey/internal/web"
)

const version = "0.1.0"

// shutdownSignals cancel the command context so cleanup still runs.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// dialTimeout bounds every ONVIF request of the session.
const dialTimeout = 10 * time.Second

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(shutdownSignals...),
	); err != nil {
		os.Exit(1)
	}
}

// options are the command-line overrides. Zero values mean "keep config".
type options struct {
	configPath string
	mount      string
	step       float64
	debugLevel int
	web        string
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "ptzkey",
		Short: "Keyboard control for ONVIF PTZ cameras",
		Long: `ptzkey drives an ONVIF pan/tilt camera from the keyboard.

Arrow keys or WASD move the camera by relative steps inside its soft limits,
p takes a photo, v and V record video, l opens a live preview.
Camera settings come from the config file, then environment variables
(.env is loaded when present), then flags.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, cmd.Flags().Changed, os.LookupEnv)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts.configPath)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	f.StringVar(&opts.mount, "mount", "", "mount mode: desk or ceiling")
	f.Float64Var(&opts.step, "step", 0, "relative move per key press (0-1]")
	f.IntVar(&opts.debugLevel, "debug", 0, "debug level 0-4, written to the log file")
	f.StringVar(&opts.web, "web", "", "serve the read-only status page; --web for :8080, --web 8980 or --web host:port")
	f.Lookup("web").NoOptDefVal = ":8080"
	return cmd
}

// loadConfig builds the final configuration: file, environment, then flags.
func loadConfig(opts options, changed func(string) bool, lookup config.LookupFunc) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := applyOverrides(cfg, opts, changed); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyOverrides copies the flags that were set on the command line.
func applyOverrides(cfg *config.Config, opts options, changed func(string) bool) error {
	if changed("mount") {
		m, err := ptz.ParseMountMode(opts.mount)
		if err != nil {
			return err
		}
		cfg.PTZ.MountMode = string(m)
	}
	if changed("step") {
		cfg.PTZ.Step = opts.step
	}
	if changed("debug") {
		cfg.Defaults.DebugLevel = opts.debugLevel
	}
	if changed("web") {
		addr, err := webAddr(opts.web)
		if err != nil {
			return err
		}
		cfg.Web.Addr = addr
	}
	return nil
}

// webAddr accepts a bare port ("8980") or a listen address ("127.0.0.1:8980").
func webAddr(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ":8080", nil
	}
	portPart := s
	if i := strings.LastIndex(s, ":"); i >= 0 {
		portPart = s[i+1:]
	}
	v, err := strconv.Atoi(portPart)
	if err != nil {
		return "", fmt.Errorf("web: invalid port %q", portPart)
	}
	if v <= 0 || v > 65535 {
		return "", fmt.Errorf("web: port must be 1-65535, got %d", v)
	}
	if portPart == s {
		return ":" + s, nil
	}
	return s, nil
}

func run(ctx context.Context, cfg *config.Config, cfgPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The terminal belongs to the key loop: debug output goes to a file.
	var logOut io.Writer = io.Discard
	if cfg.Defaults.DebugLevel > debug.LevelOff {
		f, err := debug.OpenFile(cfg.Defaults.LogFile)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	debug.Init(cfg.Defaults.DebugLevel, logOut)
	debug.Section("Initialization")
	debug.Value("Version", version)
	debug.Value("Config path", cfgPath)
	debug.Value("Debug level", debug.Level())
	debug.Value("Camera", cfg.Camera.Host)
	debug.Value("Mount", cfg.Mount())

	deps := session.Deps{
		Config: cfg,
		Connect: func(ctx context.Context) (ptz.Device, error) {
			dev, err := onvif.Dial(ctx, onvif.Params{
				Host:     cfg.Camera.Host,
				Port:     cfg.Camera.Port,
				Username: cfg.Camera.Username,
				Password: cfg.Camera.Password,
				Timeout:  dialTimeout,
			})
			if err != nil {
				return nil, err
			}
			return dev, nil
		},
		Launcher: process.ExecLauncher{},
		Grabber:  &media.FFmpegGrabber{Binary: cfg.Tools.FFmpeg, Timeout: cfg.FrameTimeout()},
		LookPath: media.Require,
	}

	debug.Step(1, "Initializing status mirror")
	if cfg.Web.Addr != "" {
		broadcaster := web.NewStatusBroadcaster()
		board := web.NewBoard(broadcaster)
		srv, err := web.NewServer(cfg.Web.Addr, broadcaster, board)
		if err != nil {
			return fmt.Errorf("web server: %w", err)
		}
		debug.SetOutput(io.MultiWriter(logOut, web.BroadcastWriter(broadcaster)))
		go func() {
			if err := srv.Run(ctx); err != nil {
				debug.Error(fmt.Errorf("web server: %w", err))
			}
		}()
		deps.Publisher = board
		debug.Value("Web address", cfg.Web.Addr)
	}

	debug.Step(2, "Initializing tally lamp")
	if cfg.Tally.Pin > 0 {
		debug.Value("Mock GPIO", cfg.UseMockGPIO())
		drv, err := gpio.NewDriver(cfg.UseMockGPIO())
		if err != nil {
			return fmt.Errorf("init GPIO: %w", err)
		}
		lamp := tally.New(drv, cfg.Tally.Pin, cfg.Tally.ActiveLow)
		defer func() {
			if err := lamp.Close(); err != nil {
				debug.Error(fmt.Errorf("closing tally: %w", err))
			}
		}()
		deps.Lamp = lamp
		debug.Value("Tally pin", cfg.Tally.Pin)
	}

	debug.Step(3, "Initializing terminal")
	screen, err := ui.New()
	if err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer screen.Close()
	deps.Screen = screen

	s, err := session.New(deps)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

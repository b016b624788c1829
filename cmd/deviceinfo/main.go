// Command deviceinfo prints what a camera reports over ONVIF: identity,
// the PTZ profile used by ptzkey, its ranges, position and snapshot URI.
// With --probe it also opens the RTSP stream and counts packets.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cjeanneret/ptzkey/internal/config"
	"github.com/cjeanneret/ptzkey/internal/hw/onvif"
	"github.com/cjeanneret/ptzkey/internal/ptz"
	"github.com/cjeanneret/ptzkey/internal/stream"
)

const version = "0.1.0"

// shutdownSignals cancel the command context so cleanup still runs.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

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

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		probe   time.Duration
	)
	cmd := &cobra.Command{
		Use:          "deviceinfo",
		Short:        "Print ONVIF identity, PTZ profile and stream details of a camera",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
				return fmt.Errorf("environment: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			ctx := cmd.Context()
			dev, err := onvif.Dial(ctx, onvif.Params{
				Host:     cfg.Camera.Host,
				Port:     cfg.Camera.Port,
				Username: cfg.Camera.Username,
				Password: cfg.Camera.Password,
				Timeout:  10 * time.Second,
			})
			if err != nil {
				return err
			}
			defer dev.Close()

			out := cmd.OutOrStdout()
			if err := describe(ctx, dev, out); err != nil {
				return err
			}
			streamURL, err := stream.URL(cfg.Camera)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Stream:       %s\n", stream.Redact(streamURL))
			if probe <= 0 {
				return nil
			}
			rep, err := stream.Probe(ctx, streamURL, probe)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Probe:        %s\n", rep)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().DurationVar(&probe, "probe", 0, "read the RTSP stream for this long (e.g. 3s)")
	return cmd
}

// inspector is the part of the ONVIF device the report reads.
type inspector interface {
	ptz.Device
	DeviceInformation(ctx context.Context) (onvif.DeviceInformation, error)
}

// describe writes the identity and PTZ section of the report.
// Only a missing PTZ profile is fatal; other failures are printed inline.
func describe(ctx context.Context, dev inspector, w io.Writer) error {
	info, err := dev.DeviceInformation(ctx)
	if err != nil {
		fmt.Fprintf(w, "Device:       (unavailable: %v)\n", err)
	} else {
		fmt.Fprintf(w, "Manufacturer: %s\n", info.Manufacturer)
		fmt.Fprintf(w, "Model:        %s\n", info.Model)
		fmt.Fprintf(w, "Firmware:     %s\n", info.FirmwareVersion)
		fmt.Fprintf(w, "Serial:       %s\n", info.SerialNumber)
		fmt.Fprintf(w, "Hardware ID:  %s\n", info.HardwareID)
	}

	profiles, err := dev.Profiles(ctx)
	if err != nil {
		return fmt.Errorf("get profiles: %w", err)
	}
	profile, err := ptz.PickProfile(profiles)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Profile:      %s (%s), %d total\n", profile.Token, profile.Name, len(profiles))

	if r, err := dev.Ranges(ctx, profile.PTZConfigToken); err != nil {
		fmt.Fprintf(w, "Ranges:       (defaults, %v)\n", err)
	} else {
		fmt.Fprintf(w, "Ranges:       pan[%.2f,%.2f] tilt[%.2f,%.2f]\n",
			r.Pan.Min, r.Pan.Max, r.Tilt.Min, r.Tilt.Max)
	}

	if pos := ptz.ReadPosition(ctx, dev, profile.Token); pos != nil {
		fmt.Fprintf(w, "Position:     pan=%+.3f tilt=%+.3f\n", pos.Pan, pos.Tilt)
	} else {
		fmt.Fprintln(w, "Position:     (not available)")
	}

	if uri, err := dev.SnapshotURI(ctx, profile.Token); err != nil || uri == "" {
		fmt.Fprintln(w, "Snapshot URI: (none)")
	} else {
		fmt.Fprintf(w, "Snapshot URI: %s\n", uri)
	}
	return nil
}

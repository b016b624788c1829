package main

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/cjeanneret/ptzkey/internal/config"
)

func env(m map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func changedSet(names ...string) func(string) bool {
	set := map[string]bool{}
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

var cameraEnv = map[string]string{
	"ONVIF_HOST":     "192.168.1.50",
	"ONVIF_USER":     "admin",
	"ONVIF_PASSWORD": "secret",
}

// ---------- webAddr ----------

func TestWebAddr_Valid(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ":8080"},
		{":8080", ":8080"},
		{"8980", ":8980"},
		{"127.0.0.1:9000", "127.0.0.1:9000"},
		{" 8081 ", ":8081"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := webAddr(tc.in)
			if err != nil {
				t.Fatalf("webAddr(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("webAddr(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestWebAddr_Invalid(t *testing.T) {
	for _, in := range []string{"abc", "0", "65536", "host:", "-1"} {
		t.Run(in, func(t *testing.T) {
			if _, err := webAddr(in); err == nil {
				t.Errorf("webAddr(%q) should fail", in)
			}
		})
	}
}

// ---------- applyOverrides ----------

func TestApplyOverrides_OnlyChangedFlags(t *testing.T) {
	cfg := config.Default()
	opts := options{mount: "ceiling", step: 0.25, debugLevel: 3, web: "8980"}

	if err := applyOverrides(cfg, opts, changedSet("step", "web")); err != nil {
		t.Fatalf("applyOverrides: %v", err)
	}
	if cfg.PTZ.Step != 0.25 {
		t.Errorf("step = %v, want 0.25", cfg.PTZ.Step)
	}
	if cfg.Web.Addr != ":8980" {
		t.Errorf("web addr = %q", cfg.Web.Addr)
	}
	if cfg.PTZ.MountMode != "desk" {
		t.Errorf("mount changed without flag: %q", cfg.PTZ.MountMode)
	}
	if cfg.Defaults.DebugLevel != 0 {
		t.Errorf("debug level changed without flag: %d", cfg.Defaults.DebugLevel)
	}
}

func TestApplyOverrides_MountNormalized(t *testing.T) {
	cfg := config.Default()
	if err := applyOverrides(cfg, options{mount: " Ceiling "}, changedSet("mount")); err != nil {
		t.Fatalf("applyOverrides: %v", err)
	}
	if cfg.PTZ.MountMode != "ceiling" {
		t.Errorf("mount = %q, want ceiling", cfg.PTZ.MountMode)
	}
}

func TestApplyOverrides_InvalidMount(t *testing.T) {
	cfg := config.Default()
	if err := applyOverrides(cfg, options{mount: "wall"}, changedSet("mount")); err == nil {
		t.Error("expected error for unknown mount mode")
	}
}

// ---------- loadConfig ----------

func TestLoadConfig_EnvOnly(t *testing.T) {
	cfg, err := loadConfig(options{}, changedSet(), env(cameraEnv))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Camera.Host != "192.168.1.50" || cfg.Camera.Port != 80 {
		t.Errorf("camera = %+v", cfg.Camera)
	}
}

func TestLoadConfig_MissingCredentials(t *testing.T) {
	_, err := loadConfig(options{}, changedSet(), env(nil))
	if !errors.Is(err, config.ErrMissingCredentials) {
		t.Errorf("err = %v, want missing credentials", err)
	}
}

func TestLoadConfig_FlagsWinOverEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ptzkey.yaml")
	yaml := "camera:\n  host: 10.0.0.9\nptz:\n  mount_mode: desk\n  step: 0.05\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	e := map[string]string{
		"ONVIF_USER":     "admin",
		"ONVIF_PASSWORD": "secret",
		"PTZ_STEP":       "0.08",
	}
	opts := options{configPath: path, step: 0.2, mount: "ceiling"}

	cfg, err := loadConfig(opts, changedSet("step", "mount"), env(e))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Camera.Host != "10.0.0.9" {
		t.Errorf("host = %q, want file value", cfg.Camera.Host)
	}
	if cfg.PTZ.Step != 0.2 {
		t.Errorf("step = %v, want flag value 0.2", cfg.PTZ.Step)
	}
	if cfg.PTZ.MountMode != "ceiling" {
		t.Errorf("mount = %q", cfg.PTZ.MountMode)
	}
}

func TestLoadConfig_StepOutOfRange(t *testing.T) {
	_, err := loadConfig(options{step: 1.5}, changedSet("step"), env(cameraEnv))
	if err == nil {
		t.Error("expected validation error for step 1.5")
	}
}

// ---------- root command ----------

func TestRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"config", "mount", "step", "debug", "web"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing flag --%s", name)
		}
	}
	if got := cmd.Flags().Lookup("web").NoOptDefVal; got != ":8080" {
		t.Errorf("--web without value = %q, want :8080", got)
	}
}

func TestRootCmd_ParseWebWithoutValue(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.Flags().Parse([]string{"--web", "--mount=ceiling"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cmd.Flags().Changed("web") {
		t.Fatal("--web should be marked changed")
	}
	v, _ := cmd.Flags().GetString("web")
	if v != ":8080" {
		t.Errorf("web = %q", v)
	}
}

func TestShutdownSignals_Catchable(t *testing.T) {
	var term bool
	for _, sig := range shutdownSignals {
		if sig == os.Kill {
			t.Error("SIGKILL cannot be caught and must not be registered")
		}
		if sig == syscall.SIGTERM {
			term = true
		}
	}
	if !term {
		t.Error("SIGTERM must cancel the session so cleanup runs")
	}
}

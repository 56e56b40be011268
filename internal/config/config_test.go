package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"huddle/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":3001" {
		t.Fatalf("want listen_addr :3001, got %q", cfg.ListenAddr)
	}
	if cfg.DefaultRoom != "main" {
		t.Fatalf("want default_room main, got %q", cfg.DefaultRoom)
	}
	if cfg.EventBuffer != 64 {
		t.Fatalf("want event_buffer 64, got %d", cfg.EventBuffer)
	}
	if cfg.RTC.PLIInterval != 3*time.Second {
		t.Fatalf("want pli_interval 3s, got %s", cfg.RTC.PLIInterval)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HUDDLE_LISTEN_ADDR", ":9000")
	t.Setenv("HUDDLE_DEFAULT_ROOM", "dreamh")
	t.Setenv("HUDDLE_RTC_ANNOUNCED_IP", "203.0.113.7")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9000" {
		t.Fatalf("want listen_addr :9000, got %q", cfg.ListenAddr)
	}
	if cfg.DefaultRoom != "dreamh" {
		t.Fatalf("want default_room dreamh, got %q", cfg.DefaultRoom)
	}
	if cfg.RTC.AnnouncedIP != "203.0.113.7" {
		t.Fatalf("want announced_ip 203.0.113.7, got %q", cfg.RTC.AnnouncedIP)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "huddle.yaml")
	body := "listen_addr: \":4000\"\nrtc:\n  port_min: 40000\n  port_max: 40100\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":4000" {
		t.Fatalf("want listen_addr :4000, got %q", cfg.ListenAddr)
	}
	if cfg.RTC.PortMin != 40000 || cfg.RTC.PortMax != 40100 {
		t.Fatalf("want port range 40000-40100, got %d-%d", cfg.RTC.PortMin, cfg.RTC.PortMax)
	}
	// File values merge over defaults.
	if cfg.DefaultRoom != "main" {
		t.Fatalf("want default_room main, got %q", cfg.DefaultRoom)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("want error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	base := func() config.Config {
		return config.Config{
			ListenAddr:  ":3001",
			DefaultRoom: "main",
			LogLevel:    "info",
			EventBuffer: 64,
			RTC:         config.RTC{PLIInterval: 3 * time.Second},
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg := base()
	cfg.ListenAddr = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("want error for empty listen_addr")
	}

	cfg = base()
	cfg.EventBuffer = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("want error for zero event_buffer")
	}

	cfg = base()
	cfg.RTC.AnnouncedIP = "not-an-ip"
	if err := cfg.Validate(); err == nil {
		t.Fatal("want error for bad announced_ip")
	}

	cfg = base()
	cfg.RTC.PortMin = 50000
	cfg.RTC.PortMax = 40000
	if err := cfg.Validate(); err == nil {
		t.Fatal("want error for inverted port range")
	}

	cfg = base()
	cfg.RTC.PLIInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("want error for zero pli_interval")
	}
}

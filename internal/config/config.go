package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	// ListenAddr is the HTTP/WebSocket bind address.
	ListenAddr string `mapstructure:"listen_addr"`
	// DefaultRoom is joined when the client names no room.
	DefaultRoom string `mapstructure:"default_room"`
	// LogLevel is one of debug, info, warn, error, none.
	LogLevel string `mapstructure:"log_level"`
	// EventBuffer is the per-session room event queue length.
	EventBuffer int `mapstructure:"event_buffer"`

	RTC RTC `mapstructure:"rtc"`
}

// RTC configures the WebRTC media plane.
type RTC struct {
	// ListenIP restricts ICE to one local interface address. Empty means
	// all interfaces.
	ListenIP string `mapstructure:"listen_ip"`
	// AnnouncedIP is the public address written into candidates when the
	// server sits behind 1:1 NAT.
	AnnouncedIP string `mapstructure:"announced_ip"`
	// PortMin/PortMax bound the UDP port range. Both zero means ephemeral.
	PortMin uint16 `mapstructure:"port_min"`
	PortMax uint16 `mapstructure:"port_max"`
	// PLIInterval is how often video producers with live consumers are
	// asked for a keyframe.
	PLIInterval time.Duration `mapstructure:"pli_interval"`
}

// Load reads configuration. path may name a config file; when empty, a
// huddle.yaml in the working directory is used if present.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":3001")
	v.SetDefault("default_room", "main")
	v.SetDefault("log_level", "info")
	v.SetDefault("event_buffer", 64)
	v.SetDefault("rtc.listen_ip", "")
	v.SetDefault("rtc.announced_ip", "")
	v.SetDefault("rtc.port_min", 0)
	v.SetDefault("rtc.port_max", 0)
	v.SetDefault("rtc.pli_interval", 3*time.Second)

	v.SetEnvPrefix("HUDDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("huddle")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.DefaultRoom == "" {
		return fmt.Errorf("default_room must not be empty")
	}
	if c.EventBuffer < 1 {
		return fmt.Errorf("event_buffer must be at least 1, got %d", c.EventBuffer)
	}
	if c.RTC.ListenIP != "" && net.ParseIP(c.RTC.ListenIP) == nil {
		return fmt.Errorf("rtc.listen_ip: invalid IP %q", c.RTC.ListenIP)
	}
	if c.RTC.AnnouncedIP != "" && net.ParseIP(c.RTC.AnnouncedIP) == nil {
		return fmt.Errorf("rtc.announced_ip: invalid IP %q", c.RTC.AnnouncedIP)
	}
	if c.RTC.PortMin > c.RTC.PortMax {
		return fmt.Errorf("rtc.port_min %d exceeds rtc.port_max %d", c.RTC.PortMin, c.RTC.PortMax)
	}
	if c.RTC.PLIInterval <= 0 {
		return fmt.Errorf("rtc.pli_interval must be positive, got %s", c.RTC.PLIInterval)
	}
	return nil
}

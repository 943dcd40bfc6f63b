// Package config resolves daemon settings from defaults, an optional TOML
// file and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	"github.com/sweeney/ledctl/internal/gpio"
	"github.com/sweeney/ledctl/internal/led"
)

// Output drivers.
const (
	DriverGPIOCDev = "gpiocdev"
	DriverPeriph   = "periph"
	DriverLog      = "log"
)

var ErrInvalid = errors.New("invalid config")

// Config is the resolved daemon configuration.
type Config struct {
	LED  LEDConfig  `toml:"led"`
	MQTT MQTTConfig `toml:"mqtt"`
	HTTP HTTPConfig `toml:"http"`
}

// LEDConfig describes the channel and its output.
type LEDConfig struct {
	Name              string `toml:"name"`
	Driver            string `toml:"driver"`
	Chip              string `toml:"chip"`
	Pin               string `toml:"pin"` // line offset for gpiocdev, pin name for periph
	Mode              string `toml:"mode"`
	DefaultOn         bool   `toml:"default_on"`
	DefaultBrightness int    `toml:"default_brightness"`
	FlashIntervalMs   int    `toml:"flash_interval_ms"`
	FadeIntervalMs    int    `toml:"fade_interval_ms"`
}

// MQTTConfig holds broker settings. An empty Broker disables MQTT.
type MQTTConfig struct {
	Broker           string `toml:"broker"`
	ClientID         string `toml:"client_id"`
	HeartbeatSeconds int    `toml:"heartbeat_seconds"` // 0 disables
}

// HTTPConfig holds the status server settings. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LED: LEDConfig{
			Name:            "led",
			Driver:          DriverGPIOCDev,
			Chip:            gpio.DefaultChip,
			Pin:             strconv.Itoa(gpio.DefaultPin),
			Mode:            string(led.ModeBinary),
			FlashIntervalMs: int(led.DefaultTiming.FlashInterval),
			FadeIntervalMs:  int(led.DefaultTiming.FadeInterval),
		},
		MQTT: MQTTConfig{
			Broker:           "tcp://127.0.0.1:1883",
			HeartbeatSeconds: 900,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default value. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Flag names.
const (
	FlagName              = "name"
	FlagDriver            = "driver"
	FlagChip              = "chip"
	FlagPin               = "pin"
	FlagMode              = "mode"
	FlagDefaultOn         = "default-on"
	FlagDefaultBrightness = "default-brightness"
	FlagFlashInterval     = "flash-interval"
	FlagFadeInterval      = "fade-interval"
	FlagBroker            = "broker"
	FlagClientID          = "client-id"
	FlagHeartbeat         = "heartbeat"
	FlagHTTP              = "http"
)

// RegisterFlags defines the config flags on fs with the built-in defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagName, d.LED.Name, "channel name, used in MQTT topics")
	fs.String(FlagDriver, d.LED.Driver, "output driver: gpiocdev, periph or log")
	fs.String(FlagChip, d.LED.Chip, "GPIO chip (gpiocdev driver)")
	fs.String(FlagPin, d.LED.Pin, "line offset (gpiocdev) or pin name (periph)")
	fs.String(FlagMode, d.LED.Mode, "output mode: binary, pwm or pwm-extended")
	fs.Bool(FlagDefaultOn, d.LED.DefaultOn, "switch on at startup (binary mode)")
	fs.Int(FlagDefaultBrightness, d.LED.DefaultBrightness, "brightness at startup (pwm modes)")
	fs.Int(FlagFlashInterval, d.LED.FlashIntervalMs, "flash half-period in ms")
	fs.Int(FlagFadeInterval, d.LED.FadeIntervalMs, "time per fade step in ms")
	fs.String(FlagBroker, d.MQTT.Broker, "MQTT broker address (empty disables MQTT)")
	fs.String(FlagClientID, d.MQTT.ClientID, "MQTT client ID (default ledctl-<name>)")
	fs.Int(FlagHeartbeat, d.MQTT.HeartbeatSeconds, "heartbeat interval in seconds (0 to disable)")
	fs.String(FlagHTTP, d.HTTP.Addr, "HTTP listen address (empty disables)")
}

// ApplyFlags overrides c with every flag explicitly set on fs.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var errs []error
	fs.Visit(func(f *pflag.Flag) {
		var err error
		switch f.Name {
		case FlagName:
			c.LED.Name, err = fs.GetString(f.Name)
		case FlagDriver:
			c.LED.Driver, err = fs.GetString(f.Name)
		case FlagChip:
			c.LED.Chip, err = fs.GetString(f.Name)
		case FlagPin:
			c.LED.Pin, err = fs.GetString(f.Name)
		case FlagMode:
			c.LED.Mode, err = fs.GetString(f.Name)
		case FlagDefaultOn:
			c.LED.DefaultOn, err = fs.GetBool(f.Name)
		case FlagDefaultBrightness:
			c.LED.DefaultBrightness, err = fs.GetInt(f.Name)
		case FlagFlashInterval:
			c.LED.FlashIntervalMs, err = fs.GetInt(f.Name)
		case FlagFadeInterval:
			c.LED.FadeIntervalMs, err = fs.GetInt(f.Name)
		case FlagBroker:
			c.MQTT.Broker, err = fs.GetString(f.Name)
		case FlagClientID:
			c.MQTT.ClientID, err = fs.GetString(f.Name)
		case FlagHeartbeat:
			c.MQTT.HeartbeatSeconds, err = fs.GetInt(f.Name)
		case FlagHTTP:
			c.HTTP.Addr, err = fs.GetString(f.Name)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("flag --%s: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}

// Validate checks the resolved configuration.
func (c Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.LED.Name == "" || strings.ContainsAny(c.LED.Name, "/+# ") {
		invalid("name %q must be non-empty without '/', '+', '#' or spaces", c.LED.Name)
	}
	switch c.LED.Driver {
	case DriverGPIOCDev:
		if _, err := c.LineOffset(); err != nil {
			invalid("pin %q: gpiocdev needs a numeric line offset", c.LED.Pin)
		}
	case DriverPeriph, DriverLog:
		if c.LED.Pin == "" {
			invalid("pin must be set")
		}
	default:
		invalid("driver %q (want gpiocdev, periph or log)", c.LED.Driver)
	}
	switch led.Mode(c.LED.Mode) {
	case led.ModeBinary, led.ModePWM, led.ModePWMExtended:
	default:
		invalid("mode %q (want binary, pwm or pwm-extended)", c.LED.Mode)
	}
	if c.LED.DefaultBrightness < 0 || c.LED.DefaultBrightness > int(led.ExtendedMaxBrightness) {
		invalid("default_brightness %d out of [0, %d]", c.LED.DefaultBrightness, led.ExtendedMaxBrightness)
	}
	if c.LED.FlashIntervalMs <= 0 {
		invalid("flash_interval_ms must be positive, got %d", c.LED.FlashIntervalMs)
	}
	if c.LED.FadeIntervalMs <= 0 {
		invalid("fade_interval_ms must be positive, got %d", c.LED.FadeIntervalMs)
	}
	if c.MQTT.HeartbeatSeconds < 0 {
		invalid("heartbeat_seconds must not be negative, got %d", c.MQTT.HeartbeatSeconds)
	}
	return errors.Join(errs...)
}

// LineOffset parses Pin as a gpiocdev line offset.
func (c Config) LineOffset() (int, error) {
	n, err := strconv.Atoi(c.LED.Pin)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative line offset %d", n)
	}
	return n, nil
}

// Timing returns the channel timing.
func (c Config) Timing() led.Timing {
	return led.Timing{
		FlashInterval: uint32(c.LED.FlashIntervalMs),
		FadeInterval:  uint32(c.LED.FadeIntervalMs),
	}
}

// Heartbeat returns the heartbeat interval, 0 if disabled.
func (c Config) Heartbeat() time.Duration {
	return time.Duration(c.MQTT.HeartbeatSeconds) * time.Second
}

// ClientID returns the MQTT client ID, deriving one from the name if unset.
func (c Config) ClientID() string {
	if c.MQTT.ClientID != "" {
		return c.MQTT.ClientID
	}
	return "ledctl-" + c.LED.Name
}

// TOML renders c as a config file.
func (c Config) TOML() ([]byte, error) {
	return toml.Marshal(c)
}

// Package config loads daemon settings from flags, environment, an optional
// .env file and an optional TOML file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sweeney/heater-control/internal/gpio"
	"github.com/sweeney/heater-control/internal/logic"
	"github.com/sweeney/heater-control/internal/pulse"
	"github.com/sweeney/heater-control/internal/sensor"
)

const (
	EnvPrefix      = "HEATER"
	DefaultEnvFile = "/etc/heater-control.env"
	configName     = "heater-control"
)

// Notification transports.
const (
	TransportMQTT = "mqtt"
	TransportAMQP = "amqp"
	TransportNone = "none"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// DefaultSensors maps the deployed 1-wire probe ids to labels.
var DefaultSensors = map[string]string{
	"28-3c01a8169133": logic.LabelHeater,
	"28-3c01a816d9f0": logic.LabelWater,
}

// Config holds every daemon setting.
type Config struct {
	Sensors        map[string]string `mapstructure:"sensors"`
	Required       []string          `mapstructure:"required"`
	OneWirePath    string            `mapstructure:"onewire_path"`
	Target         float64           `mapstructure:"target"`
	AvgNum         int               `mapstructure:"avg_num"`
	RunLength      int               `mapstructure:"run_length"`
	FaultThreshold int               `mapstructure:"fault_threshold"`
	MaxTemp        float64           `mapstructure:"max_temp"`
	MaxRise        float64           `mapstructure:"max_rise"`
	TimeLimit      time.Duration     `mapstructure:"time_limit"`
	Grace          time.Duration     `mapstructure:"grace"`
	Cycle          time.Duration     `mapstructure:"cycle"`
	Tick           time.Duration     `mapstructure:"tick"`
	SensorTimeout  time.Duration     `mapstructure:"sensor_timeout"`
	GPIOChip       string            `mapstructure:"gpio_chip"`
	PinEnable      int               `mapstructure:"pin_enable"`
	PinPulse       int               `mapstructure:"pin_pulse"`
	Notify         Notify            `mapstructure:"notify"`
	HTTPAddr       string            `mapstructure:"http"`
	LogLevel       string            `mapstructure:"log_level"`
	PrintTemps     bool              `mapstructure:"print_temps"`
}

// Notify configures the alert transport. Recipient and credentials normally
// come from the environment file.
type Notify struct {
	Transport string `mapstructure:"transport"`
	URL       string `mapstructure:"url"`
	Recipient string `mapstructure:"recipient"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
}

func setDefaults(v *viper.Viper) {
	d := logic.DefaultConfig()
	v.SetDefault("required", d.Required)
	v.SetDefault("onewire_path", sensor.DefaultOneWirePath)
	v.SetDefault("target", d.Target)
	v.SetDefault("avg_num", d.AvgNum)
	v.SetDefault("run_length", d.RunLength)
	v.SetDefault("fault_threshold", d.FaultThreshold)
	v.SetDefault("max_temp", d.MaxTemp)
	v.SetDefault("max_rise", d.MaxRise)
	v.SetDefault("time_limit", d.TimeLimit)
	v.SetDefault("grace", d.Grace)
	v.SetDefault("cycle", 500*time.Millisecond)
	v.SetDefault("tick", pulse.DefaultTick)
	v.SetDefault("sensor_timeout", sensor.DefaultTimeout)
	v.SetDefault("gpio_chip", gpio.DefaultChip)
	v.SetDefault("pin_enable", gpio.DefaultPinEnable)
	v.SetDefault("pin_pulse", gpio.DefaultPinPulse)
	v.SetDefault("notify.transport", TransportMQTT)
	v.SetDefault("notify.url", "tcp://localhost:1883")
	v.SetDefault("notify.recipient", "")
	v.SetDefault("notify.username", "")
	v.SetDefault("notify.password", "")
	v.SetDefault("http", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("print_temps", false)
}

// flagBindings maps config keys to command line flags.
var flagBindings = map[string]string{
	"target":           "target",
	"run_length":       "run-length",
	"time_limit":       "time-limit",
	"cycle":            "cycle",
	"tick":             "tick",
	"onewire_path":     "onewire-path",
	"pin_enable":       "pin-enable",
	"pin_pulse":        "pin-pulse",
	"notify.transport": "notify-transport",
	"notify.url":       "notify-url",
	"http":             "http",
	"log_level":        "log-level",
	"print_temps":      "print-temps",
}

// NewFlagSet defines the daemon's command line flags.
func NewFlagSet(name string) *pflag.FlagSet {
	d := logic.DefaultConfig()
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "Path to a TOML config file")
	fs.String("env-file", DefaultEnvFile, "Path to an env file with notification credentials")
	fs.Float64("target", d.Target, "Target water temperature (°C)")
	fs.Int("run-length", d.RunLength, "Pulse budget granted per heating cycle (ticks)")
	fs.Duration("time-limit", d.TimeLimit, "Maximum run time")
	fs.Duration("cycle", 500*time.Millisecond, "Monitor cycle interval")
	fs.Duration("tick", pulse.DefaultTick, "Pulse driver tick")
	fs.String("onewire-path", sensor.DefaultOneWirePath, "1-wire sysfs device directory")
	fs.Int("pin-enable", gpio.DefaultPinEnable, "BCM pin number for heater enable")
	fs.Int("pin-pulse", gpio.DefaultPinPulse, "BCM pin number for heater pulse")
	fs.String("notify-transport", TransportMQTT, "Notification transport: mqtt, amqp or none")
	fs.String("notify-url", "tcp://localhost:1883", "Notification broker URL")
	fs.String("http", "", "HTTP status address (empty to disable)")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.Bool("print-temps", false, "Print current temperatures and exit")
	return fs
}

// Load parses args and merges every configuration source.
func Load(args []string) (*Config, error) {
	fs := NewFlagSet("heater-control")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return LoadFlags(fs)
}

// LoadFlags merges configuration for an already parsed flag set.
func LoadFlags(fs *pflag.FlagSet) (*Config, error) {
	envFile, _ := fs.GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("toml")
	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath("/etc")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	for key, name := range flagBindings {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Notify.Transport = strings.ToLower(cfg.Notify.Transport)
	// A map default would be merged key by key with the file's table.
	if len(cfg.Sensors) == 0 {
		cfg.Sensors = make(map[string]string, len(DefaultSensors))
		for id, label := range DefaultSensors {
			cfg.Sensors[id] = label
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the control loop cannot run with.
func (c *Config) Validate() error {
	switch {
	case len(c.Sensors) == 0:
		return fmt.Errorf("%w: no sensors configured", ErrInvalid)
	case c.Cycle <= 0:
		return fmt.Errorf("%w: cycle must be positive, got %v", ErrInvalid, c.Cycle)
	case c.Tick <= 0:
		return fmt.Errorf("%w: tick must be positive, got %v", ErrInvalid, c.Tick)
	case c.RunLength <= 0:
		return fmt.Errorf("%w: run_length must be positive, got %d", ErrInvalid, c.RunLength)
	case c.AvgNum <= 0:
		return fmt.Errorf("%w: avg_num must be positive, got %d", ErrInvalid, c.AvgNum)
	case c.FaultThreshold < 0:
		return fmt.Errorf("%w: fault_threshold must not be negative, got %d", ErrInvalid, c.FaultThreshold)
	case c.TimeLimit <= 0:
		return fmt.Errorf("%w: time_limit must be positive, got %v", ErrInvalid, c.TimeLimit)
	case c.MaxTemp <= c.Target:
		return fmt.Errorf("%w: max_temp %.1f must exceed target %.1f", ErrInvalid, c.MaxTemp, c.Target)
	}

	labels := make(map[string]bool, len(c.Sensors))
	for _, label := range c.Sensors {
		labels[label] = true
	}
	if !labels[logic.LabelWater] {
		return fmt.Errorf("%w: no sensor labelled %q", ErrInvalid, logic.LabelWater)
	}
	for _, r := range c.Required {
		if !labels[r] {
			return fmt.Errorf("%w: required sensor %q is not configured", ErrInvalid, r)
		}
	}

	switch c.Notify.Transport {
	case TransportMQTT, TransportAMQP:
		if c.Notify.Recipient == "" && !c.PrintTemps {
			return fmt.Errorf("%w: notify.recipient is required for %s", ErrInvalid, c.Notify.Transport)
		}
	case TransportNone:
	default:
		return fmt.Errorf("%w: unknown notify.transport %q", ErrInvalid, c.Notify.Transport)
	}
	return nil
}

// Logic returns the control parameters for the decision core.
func (c *Config) Logic() logic.Config {
	return logic.Config{
		Target:         c.Target,
		AvgNum:         c.AvgNum,
		RunLength:      c.RunLength,
		FaultThreshold: c.FaultThreshold,
		MaxTemp:        c.MaxTemp,
		MaxRise:        c.MaxRise,
		TimeLimit:      c.TimeLimit,
		Grace:          c.Grace,
		WaterLabel:     logic.LabelWater,
		Required:       append([]string(nil), c.Required...),
	}
}

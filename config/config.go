// Package config loads the server configuration from defaults, an optional
// config file and environment variables, in increasing priority.
//
// Every key can be set from the environment by upper-casing it and
// replacing dots with underscores: server.address becomes SERVER_ADDRESS.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/nixxel-company-limited/ql-print-server/adapter"
	"github.com/nixxel-company-limited/ql-print-server/protocol"
)

// Config is the complete server configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Device  DeviceConfig  `mapstructure:"device"`
	Print   PrintConfig   `mapstructure:"print"`
	Journal JournalConfig `mapstructure:"journal"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Address     string        `mapstructure:"address"`
	MaxJobSize  int64         `mapstructure:"max_job_size"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type DeviceConfig struct {
	Adapter     string        `mapstructure:"adapter"`
	Path        string        `mapstructure:"path"`
	ReadBackoff time.Duration `mapstructure:"read_backoff"`
	USB         USBConfig     `mapstructure:"usb"`
	Serial      SerialConfig  `mapstructure:"serial"`
}

type USBConfig struct {
	VendorID    uint16        `mapstructure:"vendor_id"`
	ProductID   uint16        `mapstructure:"product_id"`
	Serial      string        `mapstructure:"serial"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type SerialConfig struct {
	Port        string        `mapstructure:"port"`
	BaudRate    int           `mapstructure:"baud_rate"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type PrintConfig struct {
	BytesPerLine   int     `mapstructure:"bytes_per_line"`
	Margin         uint16  `mapstructure:"margin"`
	AutoCut        bool    `mapstructure:"auto_cut"`
	CutAtEnd       bool    `mapstructure:"cut_at_end"`
	HighResolution bool    `mapstructure:"high_resolution"`
	Feed           bool    `mapstructure:"feed"`
	Dither         bool    `mapstructure:"dither"`
	Gamma          float64 `mapstructure:"gamma"`
	FlipVertical   bool    `mapstructure:"flip_vertical"`
	Font           string  `mapstructure:"font"`
	FontSize       float64 `mapstructure:"font_size"`
	MaxPixels      int     `mapstructure:"max_pixels"`
}

type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfigName is looked up without extension in the working
// directory and /etc/ql-print-server when no file is given.
const DefaultConfigName = "ql-print-server"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "localhost:9100")
	v.SetDefault("server.max_job_size", 16<<20)
	v.SetDefault("server.read_timeout", 30*time.Second)

	v.SetDefault("device.adapter", string(adapter.KindCharDevice))
	v.SetDefault("device.path", adapter.DefaultDevicePath)
	v.SetDefault("device.read_backoff", 5*time.Millisecond)
	v.SetDefault("device.usb.vendor_id", adapter.BrotherVendorID)
	v.SetDefault("device.usb.product_id", 0)
	v.SetDefault("device.usb.serial", "")
	v.SetDefault("device.usb.read_timeout", adapter.DefaultUSBReadTimeout)
	v.SetDefault("device.serial.port", "")
	v.SetDefault("device.serial.baud_rate", adapter.DefaultBaudRate)
	v.SetDefault("device.serial.read_timeout", adapter.DefaultSerialReadTimeout)

	v.SetDefault("print.bytes_per_line", 90)
	v.SetDefault("print.margin", 0)
	v.SetDefault("print.auto_cut", false)
	v.SetDefault("print.cut_at_end", false)
	v.SetDefault("print.high_resolution", false)
	v.SetDefault("print.feed", true)
	v.SetDefault("print.dither", true)
	v.SetDefault("print.gamma", 1.0)
	v.SetDefault("print.flip_vertical", true)
	v.SetDefault("print.font", "goregular")
	v.SetDefault("print.font_size", 12.0)
	v.SetDefault("print.max_pixels", 25<<20)

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", "jobs.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads the configuration. An empty path searches for
// DefaultConfigName and carries on without a file if none exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ql-print-server")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the server cannot use.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address must not be empty"))
	}
	if c.Server.MaxJobSize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_job_size must be positive, got %d", c.Server.MaxJobSize))
	}

	kind, err := adapter.ParseKind(c.Device.Adapter)
	if err != nil {
		errs = append(errs, fmt.Errorf("device.adapter: %w", err))
	}
	switch kind {
	case adapter.KindCharDevice:
		if c.Device.Path == "" {
			errs = append(errs, errors.New("device.path is required for the chardev adapter"))
		}
	case adapter.KindSerial:
		if c.Device.Serial.Port == "" {
			errs = append(errs, errors.New("device.serial.port is required for the serial adapter"))
		}
	}

	if c.Print.BytesPerLine < 1 || c.Print.BytesPerLine > protocol.MaxBytesPerLine {
		errs = append(errs, fmt.Errorf("print.bytes_per_line must be between 1 and %d, got %d",
			protocol.MaxBytesPerLine, c.Print.BytesPerLine))
	}
	if c.Print.Gamma < 0 {
		errs = append(errs, fmt.Errorf("print.gamma must not be negative, got %g", c.Print.Gamma))
	}
	if c.Print.FontSize <= 0 {
		errs = append(errs, fmt.Errorf("print.font_size must be positive, got %g", c.Print.FontSize))
	}

	if c.Print.MaxPixels <= 0 {
		errs = append(errs, fmt.Errorf("print.max_pixels must be positive, got %d", c.Print.MaxPixels))
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		errs = append(errs, errors.New("journal.path is required when the journal is enabled"))
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Logger builds the process logger. A nil writer means stderr.
func (c LogConfig) Logger(w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if w == nil {
		w = os.Stderr
	}
	if c.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/stmmctl/internal/protocol"
	"github.com/danmuck/stmmctl/internal/protocol/frame"
	"github.com/danmuck/stmmctl/internal/protocol/session"
	"github.com/danmuck/stmmctl/internal/tee/loopback"
	"github.com/danmuck/stmmctl/internal/tee/optee"
	"github.com/google/uuid"
	gotoml "github.com/pelletier/go-toml/v2"
)

const (
	TransportOPTEE    = "optee"
	TransportLoopback = "loopback"
)

var ErrInvalidConfig = errors.New("config: invalid")

// Config is the effective client configuration.
type Config struct {
	Transport       string
	Device          string
	TAUUID          uuid.UUID
	Session         session.Config
	Retry           session.RetryPolicy
	Loopback        LoopbackConfig
	Log             LogConfig
	MetricsTextfile string
}

type LoopbackConfig struct {
	PayloadSize uint64
	Status      protocol.Status
}

type LogConfig struct {
	Level   string
	File    string
	NoColor bool
}

type fileConfig struct {
	Transport       string       `toml:"transport"`
	Device          string       `toml:"device"`
	TAUUID          string       `toml:"ta_uuid"`
	WordSize        int          `toml:"word_size"`
	StatusPolicy    string       `toml:"status_policy"`
	MaxPayloadSize  int          `toml:"max_payload_size"`
	ConnectAttempts int          `toml:"connect_attempts"`
	ConnectBackoff  string       `toml:"connect_backoff"`
	Loopback        loopbackFile `toml:"loopback"`
	Log             logFile      `toml:"log"`
	Metrics         metricsFile  `toml:"metrics"`
}

type loopbackFile struct {
	PayloadSize uint64      `toml:"payload_size"`
	Status      statusValue `toml:"status"`
}

// statusValue accepts an EFI status as a name or hex string, since TOML
// integers cannot carry the error bit, or as a plain integer.
type statusValue protocol.Status

func (v *statusValue) UnmarshalTOML(data any) error {
	switch raw := data.(type) {
	case int64:
		if raw < 0 {
			return fmt.Errorf("%w: status %d is negative", ErrInvalidConfig, raw)
		}
		*v = statusValue(raw)
	case string:
		s, err := protocol.ParseStatus(raw)
		if err != nil {
			return fmt.Errorf("%w: status: %w", ErrInvalidConfig, err)
		}
		*v = statusValue(s)
	default:
		return fmt.Errorf("%w: status must be a string or integer, got %T", ErrInvalidConfig, data)
	}
	return nil
}

func (v statusValue) MarshalText() ([]byte, error) {
	return []byte(protocol.Status(v).String()), nil
}

type logFile struct {
	Level   string `toml:"level"`
	File    string `toml:"file"`
	NoColor bool   `toml:"no_color"`
}

type metricsFile struct {
	Textfile string `toml:"textfile"`
}

func Default() Config {
	return Config{
		Transport: TransportOPTEE,
		Device:    optee.DefaultDevice,
		TAUUID:    protocol.VariableServiceGUID,
		Session:   session.DefaultConfig(),
		Retry:     session.DefaultRetryPolicy(),
		Loopback: LoopbackConfig{
			PayloadSize: loopback.DefaultPayloadSize,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. Keys absent from the file keep their
// default value.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, undecoded[0].String())
	}

	if meta.IsDefined("transport") {
		cfg.Transport = strings.ToLower(strings.TrimSpace(raw.Transport))
	}
	if meta.IsDefined("device") {
		cfg.Device = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("ta_uuid") {
		id, err := uuid.Parse(strings.TrimSpace(raw.TAUUID))
		if err != nil {
			return Config{}, fmt.Errorf("%w: ta_uuid: %v", ErrInvalidConfig, err)
		}
		cfg.TAUUID = id
	}
	if meta.IsDefined("word_size") {
		cfg.Session.Layout = frame.Layout{WordSize: raw.WordSize}
	}
	if meta.IsDefined("status_policy") {
		p, err := session.ParseStatusPolicy(raw.StatusPolicy)
		if err != nil {
			return Config{}, fmt.Errorf("%w: status_policy: %v", ErrInvalidConfig, err)
		}
		cfg.Session.StatusPolicy = p
	}
	if meta.IsDefined("max_payload_size") {
		cfg.Session.MaxPayloadSize = raw.MaxPayloadSize
	}
	if meta.IsDefined("connect_attempts") {
		cfg.Retry.MaxAttempts = raw.ConnectAttempts
	}
	if meta.IsDefined("connect_backoff") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ConnectBackoff))
		if err != nil {
			return Config{}, fmt.Errorf("parse connect_backoff: %w", err)
		}
		cfg.Retry.Backoff.InitialDelay = d
	}
	if meta.IsDefined("loopback", "payload_size") {
		cfg.Loopback.PayloadSize = raw.Loopback.PayloadSize
	}
	if meta.IsDefined("loopback", "status") {
		cfg.Loopback.Status = protocol.Status(raw.Loopback.Status)
	}
	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "file") {
		cfg.Log.File = strings.TrimSpace(raw.Log.File)
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}
	if meta.IsDefined("metrics", "textfile") {
		cfg.MetricsTextfile = strings.TrimSpace(raw.Metrics.Textfile)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Transport {
	case TransportOPTEE:
		if c.Device == "" {
			return fmt.Errorf("%w: device required for optee transport", ErrInvalidConfig)
		}
	case TransportLoopback:
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, c.Transport)
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("%w: connect_attempts must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Encode renders c in the file format.
func Encode(c Config) ([]byte, error) {
	return gotoml.Marshal(fileConfig{
		Transport:       c.Transport,
		Device:          c.Device,
		TAUUID:          c.TAUUID.String(),
		WordSize:        c.Session.Layout.WordSize,
		StatusPolicy:    string(c.Session.StatusPolicy),
		MaxPayloadSize:  c.Session.MaxPayloadSize,
		ConnectAttempts: c.Retry.MaxAttempts,
		ConnectBackoff:  c.Retry.Backoff.InitialDelay.String(),
		Loopback: loopbackFile{
			PayloadSize: c.Loopback.PayloadSize,
			Status:      statusValue(c.Loopback.Status),
		},
		Log: logFile{
			Level:   c.Log.Level,
			File:    c.Log.File,
			NoColor: c.Log.NoColor,
		},
		Metrics: metricsFile{Textfile: c.MetricsTextfile},
	})
}

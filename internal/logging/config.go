package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	EnvLogLevel     = "STMMCTL_LOG_LEVEL"
	EnvLogTimestamp = "STMMCTL_LOG_TIMESTAMP"
	EnvLogNoColor   = "STMMCTL_LOG_NOCOLOR"
	EnvLogFile      = "STMMCTL_LOG_FILE"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config selects level, console styling and an optional rotating file sink.
type Config struct {
	Level      zerolog.Level
	Timestamp  bool
	NoColor    bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var configureOnce sync.Once

func ConfigureRuntime(overrides ...func(*Config)) {
	Configure(ProfileRuntime, overrides...)
}

func ConfigureTests() {
	Configure(ProfileTest)
}

// Configure installs the process-wide logger once. Overrides run before the
// environment is consulted, so env vars always win.
func Configure(profile Profile, overrides ...func(*Config)) {
	configureOnce.Do(func() {
		cfg := DefaultConfig(profile)
		for _, o := range overrides {
			o(&cfg)
		}
		applyEnvOverrides(&cfg)
		log.Logger = New(cfg)
		zerolog.SetGlobalLevel(cfg.Level)
	})
}

func DefaultConfig(profile Profile) Config {
	cfg := Config{
		MaxSizeMB:  16,
		MaxBackups: 4,
		MaxAgeDays: 7,
	}
	switch profile {
	case ProfileTest:
		cfg.Level = zerolog.DebugLevel
		cfg.Timestamp = false
	default:
		cfg.Level = zerolog.InfoLevel
		cfg.Timestamp = true
	}
	return cfg
}

// New builds a logger for cfg without touching global state.
func New(cfg Config) zerolog.Logger {
	ctx := zerolog.New(newWriter(cfg)).Level(cfg.Level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

func newWriter(cfg Config) io.Writer {
	if path := strings.TrimSpace(cfg.File); path != "" {
		return &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			LocalTime:  true,
		}
	}
	noColor := cfg.NoColor || !isatty.IsTerminal(os.Stderr.Fd())
	return zerolog.ConsoleWriter{
		Out:        colorable.NewColorableStderr(),
		NoColor:    noColor,
		TimeFormat: time.RFC3339,
	}
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.File = v
	}
}

// ParseLevel maps a config or env spelling to a zerolog level.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace", "diagnostics":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none", "inactive":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

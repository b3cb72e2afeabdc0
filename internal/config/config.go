package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go-pairs/internal/round"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config is read from the environment, after any .env file.
type Config struct {
	LogLevel zerolog.Level
	LogFile  string
	DataDir  string
	Store    string
	Addr     string
	Tick     time.Duration
	// IdleTimeout is how long a hosted session may go untouched before it is
	// closed.
	IdleTimeout time.Duration

	ResolveDelay    time.Duration
	MatchPoints     int
	Preview         bool
	PreviewDuration time.Duration
	SettleDelay     time.Duration
}

// Load reads .env (if present) and the PAIRS_* environment variables.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		LogFile: os.Getenv("PAIRS_LOG_FILE"),
		DataDir: getEnv("PAIRS_DATA_DIR", defaultDataDir()),
		Store:   strings.ToLower(getEnv("PAIRS_STORE", "json")),
		Addr:    getEnv("PAIRS_ADDR", ":8080"),
	}

	lvl, err := zerolog.ParseLevel(getEnv("PAIRS_LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("PAIRS_LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = lvl

	// Only the settle delay may be zero; a round treats the others' zero
	// values as unset.
	durations := []struct {
		key       string
		def       time.Duration
		dst       *time.Duration
		allowZero bool
	}{
		{"PAIRS_TICK", 20 * time.Millisecond, &cfg.Tick, false},
		{"PAIRS_IDLE_TIMEOUT", 30 * time.Minute, &cfg.IdleTimeout, false},
		{"PAIRS_RESOLVE_DELAY", round.DefaultResolveDelay, &cfg.ResolveDelay, false},
		{"PAIRS_PREVIEW_DURATION", round.DefaultPreviewDuration, &cfg.PreviewDuration, false},
		{"PAIRS_SETTLE_DELAY", round.DefaultSettleDelay, &cfg.SettleDelay, true},
	}
	for _, d := range durations {
		v, err := getDuration(d.key, d.def, d.allowZero)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	if cfg.MatchPoints, err = getInt("PAIRS_MATCH_POINTS", round.DefaultMatchPoints); err != nil {
		return Config{}, err
	}
	if cfg.Preview, err = getBool("PAIRS_PREVIEW", true); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RoundOptions carries the timing and scoring settings into a round.
func (c Config) RoundOptions() round.Options {
	return round.Options{
		MatchPoints:     c.MatchPoints,
		ResolveDelay:    c.ResolveDelay,
		Preview:         c.Preview,
		PreviewDuration: c.PreviewDuration,
		SettleDelay:     c.SettleDelay,
	}
}

// SetupLogging configures the global zerolog logger. Console output goes to
// w; with LogFile set, JSON lines go to that file instead. The returned closer
// releases the file.
func (c Config) SetupLogging(w io.Writer) (io.Closer, error) {
	zerolog.SetGlobalLevel(c.LogLevel)
	if c.LogFile == "" {
		if w == nil {
			w = io.Discard
		}
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
		return io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(c.LogFile), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	return f, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".go-pairs"
	}
	return filepath.Join(home, ".config", "go-pairs")
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration, allowZero bool) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", k)
	}
	if d == 0 && !allowZero {
		return 0, fmt.Errorf("%s: must be greater than zero", k)
	}
	return d, nil
}

func getInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("%s: must be at least 1", k)
	}
	return n, nil
}

func getBool(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}

// Package config reads process settings from the environment and loop
// definitions from YAML files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sarchlab/mtloop/timing"
)

// Clock kinds.
const (
	ClockCounter = "counter"
	ClockWall    = "wall"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	LoopFile    string
	Clock       string
	Freq        timing.Freq
	Steps       uint64
	RecordPath  string
	Verbose     bool

	Monitor     bool
	MonitorPort int
	OpenBrowser bool
}

// Load reads an optional .env file and then the MTLOOP_* environment
// variables.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with a custom env file. A missing file is not an error.
func LoadFile(envFile string) (*Config, error) {
	err := godotenv.Load(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	freq, err := timing.ParseFreq(getEnv("MTLOOP_FREQ", "1kHz"))
	if err != nil {
		return nil, fmt.Errorf("MTLOOP_FREQ: %w", err)
	}

	steps, err := getEnvUint("MTLOOP_STEPS", 0)
	if err != nil {
		return nil, fmt.Errorf("MTLOOP_STEPS: %w", err)
	}

	cfg := &Config{
		Environment: getEnv("MTLOOP_ENV", "production"),
		LoopFile:    getEnv("MTLOOP_CONFIG", ""),
		Clock:       strings.ToLower(getEnv("MTLOOP_CLOCK", ClockCounter)),
		Freq:        freq,
		Steps:       steps,
		RecordPath:  getEnv("MTLOOP_RECORD", ""),
		Verbose:     getEnvBool("MTLOOP_VERBOSE", false),
		Monitor:     getEnvBool("MTLOOP_MONITOR", false),
		MonitorPort: getEnvInt("MTLOOP_MONITOR_PORT", 0),
		OpenBrowser: getEnvBool("MTLOOP_OPEN_BROWSER", false),
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings that cannot be checked while parsing.
func (c *Config) Validate() error {
	if c.Clock != ClockCounter && c.Clock != ClockWall {
		return fmt.Errorf("unknown clock %q, want %s or %s",
			c.Clock, ClockCounter, ClockWall)
	}

	if c.MonitorPort < 0 || c.MonitorPort > 65535 {
		return fmt.Errorf("monitor port %d out of range", c.MonitorPort)
	}

	return nil
}

// NewClock creates the clock selected by the configuration.
func (c *Config) NewClock() timing.Clock {
	if c.Clock == ClockWall {
		return timing.NewWallClock(c.Freq)
	}

	return timing.NewCounterClock()
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvUint(key string, def uint64) (uint64, error) {
	val := os.Getenv(key)
	if val == "" {
		return def, nil
	}

	return strconv.ParseUint(val, 10, 64)
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}

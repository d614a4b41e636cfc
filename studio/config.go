package studio

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/BobTheZombie/Harmoniq-Studio-sub001/midi"
)

// Config is the engine-host configuration, read from harmoniq.yml in the
// user config directory. Environment variables REALTIME_PRIORITY and
// MPE_MODE override the file.
type Config struct {
	SampleRate       int    `yaml:"sample_rate"`
	BlockSize        int    `yaml:"block_size"`
	Channels         int    `yaml:"channels"`
	RealtimePriority int    `yaml:"realtime_priority"`
	MPEMode          string `yaml:"mpe_mode"`
	Backend          string `yaml:"backend"`
	MIDIInputPrefix  string `yaml:"midi_input_prefix"`
}

func DefaultConfig() Config {
	return Config{
		SampleRate:       48000,
		BlockSize:        256,
		Channels:         2,
		RealtimePriority: 70,
		MPEMode:          "omni",
		Backend:          "oto",
	}
}

// LoadConfig reads the config file when present, otherwise returns the
// defaults. A missing file is not an error; a malformed one is.
func LoadConfig() (Config, error) {
	c := DefaultConfig()
	dir, err := os.UserConfigDir()
	if err == nil {
		path := filepath.Join(dir, "harmoniq", "harmoniq.yml")
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, &c); err != nil {
				return c, fmt.Errorf("cannot parse %s: %w", path, err)
			}
		}
	}
	c.applyEnv()
	return c.validate()
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("REALTIME_PRIORITY"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			c.RealtimePriority = p
		}
	}
	if v, ok := os.LookupEnv("MPE_MODE"); ok {
		c.MPEMode = v
	}
}

func (c Config) validate() (Config, error) {
	if c.SampleRate <= 0 {
		return c, fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.BlockSize <= 0 {
		return c, fmt.Errorf("block_size must be positive, got %d", c.BlockSize)
	}
	if c.Channels <= 0 {
		return c, fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	return c, nil
}

// MIDIMode resolves the configured MPE zone policy.
func (c Config) MIDIMode() midi.Mode { return midi.ModeFromEnv(c.MPEMode) }

// Package config loads and validates the uplink TOML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Modulations the radio deck accepts.
var allowedModulations = map[string]bool{
	"FSK":  true,
	"LoRa": true,
}

// Duration decodes TOML strings like "200ms" into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	CubesatName string   `toml:"cubesat_name"`
	HMACSecret  string   `toml:"hmac_secret"`
	Jokes       []string `toml:"jokes"`
	Modulation  string   `toml:"modulation"`

	MaxFrameSize  int      `toml:"max_frame_size"`
	SendDelay     Duration `toml:"send_delay"`
	FrameDelay    Duration `toml:"frame_delay"`
	ListenTimeout Duration `toml:"listen_timeout"`

	NVMPath       string `toml:"nvm_path"`
	NVMSize       int    `toml:"nvm_size"`
	CounterOffset int    `toml:"counter_offset"`

	RadioBindAddr string `toml:"radio_bind_addr"`
	RadioPeerAddr string `toml:"radio_peer_addr"`
	OpsAddr       string `toml:"ops_addr"`

	path string
}

func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	cfg.path = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Modulation == "" {
		c.Modulation = "LoRa"
	}
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = 252
	}
	if c.SendDelay == 0 {
		c.SendDelay = Duration(200 * time.Millisecond)
	}
	if c.FrameDelay == 0 {
		c.FrameDelay = Duration(200 * time.Millisecond)
	}
	if c.ListenTimeout == 0 {
		c.ListenTimeout = Duration(10 * time.Second)
	}
	if c.NVMPath == "" {
		c.NVMPath = "nvm.bin"
	}
	if c.NVMSize == 0 {
		c.NVMSize = 64
	}
	if c.RadioBindAddr == "" {
		c.RadioBindAddr = ":7410"
	}
}

func (c Config) Validate() error {
	if c.CubesatName == "" {
		return fmt.Errorf("config invalid: cubesat_name is required")
	}
	if len(c.CubesatName) > 10 {
		return fmt.Errorf("config invalid: cubesat_name longer than 10 chars")
	}
	if c.HMACSecret == "" {
		return fmt.Errorf("config invalid: hmac_secret is required")
	}
	if !allowedModulations[c.Modulation] {
		return fmt.Errorf("config invalid: modulation %q not in [FSK LoRa]", c.Modulation)
	}
	if c.MaxFrameSize <= 4 {
		return fmt.Errorf("config invalid: max_frame_size %d leaves no payload room", c.MaxFrameSize)
	}
	if c.CounterOffset < 0 || c.CounterOffset+2 > c.NVMSize {
		return fmt.Errorf("config invalid: counter_offset %d outside nvm of %d bytes", c.CounterOffset, c.NVMSize)
	}
	return nil
}

// UpdateModulation validates and persists a new radio modulation back
// to the config file, so it survives the reset that usually follows.
func (c *Config) UpdateModulation(modulation string) error {
	if !allowedModulations[modulation] {
		return fmt.Errorf("config invalid: modulation %q not in [FSK LoRa]", modulation)
	}
	c.Modulation = modulation
	if c.path == "" {
		return nil
	}
	return c.save()
}

func (c Config) save() error {
	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("config save failed (%s): %w", c.path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("config encode failed (%s): %w", c.path, err)
	}
	return nil
}

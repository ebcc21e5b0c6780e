package config

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Font struct {
	Path      string `yaml:"path"`
	FirstChar int    `yaml:"first_char"`
}

type Serial struct {
	Device string `yaml:"device"`         // e.g. /dev/ttyUSB0
	Port   string `yaml:"port,omitempty"` // periph UART name; wins over device
	Baud   int    `yaml:"baud,omitempty"`
}

type Strip struct {
	SPI        string  `yaml:"spi,omitempty"`
	Serpentine bool    `yaml:"serpentine"`
	FreqKHz    int     `yaml:"freq_khz,omitempty"`
	WhiteCap   float64 `yaml:"white_cap,omitempty"` // 0..1 of full white per LED
}

type Transport struct {
	Kind   string `yaml:"kind"` // "udp" | "serial" | "strip"
	Addr   string `yaml:"addr"` // udp destination
	Serial Serial `yaml:"serial"`
	Strip  Strip  `yaml:"strip,omitempty"`
}

type Render struct {
	Delay    time.Duration `yaml:"delay"`
	Discrete bool          `yaml:"discrete"`
}

type Bridge struct {
	Listen         string `yaml:"listen"`
	Serial         Serial `yaml:"serial"`
	PreviewAddr    string `yaml:"preview_addr,omitempty"`
	DropMismatched bool   `yaml:"drop_mismatched"`
}

type Log struct {
	Level string `yaml:"level"` // zerolog level name
}

// Apply sets the global zerolog level. Unknown names leave it unchanged.
func (l Log) Apply() {
	if l.Level == "" {
		return
	}
	lvl, err := zerolog.ParseLevel(l.Level)
	if err != nil {
		log.Warn().Str("level", l.Level).Msg("unknown log level; keeping current")
		return
	}
	zerolog.SetGlobalLevel(lvl)
}

type Config struct {
	Font      Font      `yaml:"font"`
	Transport Transport `yaml:"transport"`
	Render    Render    `yaml:"render"`
	Bridge    Bridge    `yaml:"bridge"`
	Log       Log       `yaml:"log"`
}

// Default matches the stock rig: a UDP sender on localhost feeding a bridge
// that writes to the first USB serial adapter.
func Default() *Config {
	return &Config{
		Font:      Font{Path: "8x8font_green.png", FirstChar: 32},
		Transport: Transport{Kind: "udp", Addr: "localhost:9000", Serial: Serial{Device: "/dev/ttyUSB0"}},
		Render:    Render{Delay: 100 * time.Millisecond},
		Bridge:    Bridge{Listen: "localhost:9000", Serial: Serial{Device: "/dev/ttyUSB0"}},
		Log:       Log{Level: "info"},
	}
}

// Load reads path over Default, so keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

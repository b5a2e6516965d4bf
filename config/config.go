package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/soocke/probe-tracker-go/domain/search"
)

// Backend names accepted in Config.Backend.
const (
	BackendNative = "native"
	BackendGoCV   = "gocv"
)

// Config holds runtime configuration for the tracker.
// Fields may be loaded from a JSON or YAML file and overridden by command-line flags.
type Config struct {
	Debug    bool   `json:"debug" yaml:"debug"`
	LogLevel string `json:"log_level" yaml:"log_level"`
	Backend  string `json:"backend" yaml:"backend"`

	// Adaptive search parameters
	Search search.Config `json:"search" yaml:"search"`

	// Collaborator tuning
	Stride            int     `json:"stride" yaml:"stride"`
	Refine            bool    `json:"refine" yaml:"refine"`
	BlurSigma         float64 `json:"blur_sigma" yaml:"blur_sigma"`
	RotationCacheSize int     `json:"rotation_cache_size" yaml:"rotation_cache_size"`

	// Inputs. An empty ReferencePath grabs the screen; an empty ProbeDir
	// captures probes from the screen selection.
	ReferencePath         string `json:"reference_path" yaml:"reference_path"`
	ProbeDir              string `json:"probe_dir" yaml:"probe_dir"`
	ProbeLoop             bool   `json:"probe_loop" yaml:"probe_loop"`
	CaptureIntervalMillis int    `json:"capture_interval_ms" yaml:"capture_interval_ms"`

	// Probe selection rectangle on screen
	SelectionX int `json:"selection_x" yaml:"selection_x"`
	SelectionY int `json:"selection_y" yaml:"selection_y"`
	SelectionW int `json:"selection_w" yaml:"selection_w"`
	SelectionH int `json:"selection_h" yaml:"selection_h"`

	// Driver timing
	TickMillis        int `json:"tick_ms" yaml:"tick_ms"`
	SearchDelayMillis int `json:"search_delay_ms" yaml:"search_delay_ms"`
	LostTimeoutMillis int `json:"lost_timeout_ms" yaml:"lost_timeout_ms"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:                 false,
		LogLevel:              "info",
		Backend:               BackendNative,
		Search:                search.DefaultConfig(),
		Stride:                1,
		Refine:                true,
		BlurSigma:             1.0,
		RotationCacheSize:     64,
		CaptureIntervalMillis: 50,
		SelectionX:            0,
		SelectionY:            0,
		SelectionW:            0,
		SelectionH:            0,
		TickMillis:            16,
		SearchDelayMillis:     65,
		LostTimeoutMillis:     2000,
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case BackendNative, BackendGoCV:
		c.Backend = strings.ToLower(c.Backend)
	case "":
		c.Backend = BackendNative
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		c.LogLevel = "info"
	}
	if c.Stride <= 0 {
		c.Stride = 1
	}
	if c.BlurSigma < 0 {
		c.BlurSigma = 0
	}
	if c.RotationCacheSize <= 0 {
		c.RotationCacheSize = 64
	}
	if c.CaptureIntervalMillis < 0 {
		c.CaptureIntervalMillis = 0
	}
	if c.SelectionW < 0 || c.SelectionH < 0 {
		c.SelectionW, c.SelectionH = 0, 0
	}
	if c.TickMillis <= 0 {
		c.TickMillis = 16
	}
	if c.SearchDelayMillis <= 0 {
		c.SearchDelayMillis = 65
	}
	if c.LostTimeoutMillis <= 0 {
		c.LostTimeoutMillis = 2000
	}
	return c.Search.Validate()
}

// Selection returns the configured probe rectangle, or nil when unset.
func (c *Config) Selection() *image.Rectangle {
	if c.SelectionW <= 0 || c.SelectionH <= 0 {
		return nil
	}
	r := image.Rect(c.SelectionX, c.SelectionY, c.SelectionX+c.SelectionW, c.SelectionY+c.SelectionH)
	return &r
}

// Level maps LogLevel to a slog level; Debug forces debug.
func (c *Config) Level() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	err := l.UnmarshalText([]byte(s))
	return l, err
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load attempts to read configuration from the given JSON or YAML file path,
// chosen by extension. If the file does not exist it returns DefaultConfig().
// On decode error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := Decode(data, isYAML(path), cfg); err != nil {
		return DefaultConfig(), err
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// Decode overlays data onto cfg. Unknown keys are rejected.
func Decode(data []byte, asYAML bool, cfg *Config) error {
	if asYAML {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("config yaml: %w", err)
		}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("config json: %w", err)
	}
	return nil
}

// Save writes the configuration to the given path, as YAML for .yaml/.yml
// paths and JSON otherwise.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

package compositor

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config configures a Compositor and the windowed runner.
type Config struct {
	Mode CompositionMode `yaml:"mode"`
	// Debug logs per-dispatch stats and tree shape warnings.
	Debug bool `yaml:"debug"`
	// QueueCapacity preallocates each transaction queue.
	QueueCapacity int          `yaml:"queueCapacity"`
	Window        WindowConfig `yaml:"window"`
	// Metrics enables the Prometheus collectors on the default registerer
	// when no registerer is passed with WithMetrics.
	Metrics  bool   `yaml:"metrics"`
	LogLevel string `yaml:"logLevel"`
}

// WindowConfig sizes the window opened by Run.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		Mode:          CompositionModeDefault,
		QueueCapacity: 64,
		Window: WindowConfig{
			Title:  "compositor",
			Width:  1280,
			Height: 720,
		},
		LogLevel: "info",
	}
}

// LoadConfig parses YAML over DefaultConfig. Fields absent from data keep
// their defaults.
func LoadConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("compositor: failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads and parses a YAML config file. A missing file yields
// DefaultConfig.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("compositor: failed to read config: %w", err)
	}
	return LoadConfig(data)
}

// Validate checks ranges.
func (c Config) Validate() error {
	if c.QueueCapacity < 0 {
		return fmt.Errorf("compositor: queueCapacity must be >= 0, got %d", c.QueueCapacity)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("compositor: window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel. The empty string means info.
func (c Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("compositor: invalid logLevel %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// UnmarshalYAML accepts "default" or "library".
func (m *CompositionMode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	mode, err := ParseCompositionMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// MarshalYAML writes the mode name.
func (m CompositionMode) MarshalYAML() (any, error) {
	return m.String(), nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/targodan/UberSpatchBoard/errors"
)

// Source types.
const (
	SourceFile = "file"
	SourceNATS = "nats"
)

// Marshaller names.
const (
	MarshallerHexchat = "hexchat"
)

// Duration wraps time.Duration so it reads and writes as "2h30m" in
// YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.WrapInvalid(err, "Duration", "UnmarshalYAML", "duration parsing")
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// SourceConfig describes one ingestion source.
type SourceConfig struct {
	// Type is "file" or "nats".
	Type string `yaml:"type"`
	// Marshaller decodes raw lines; only "hexchat" exists today.
	Marshaller string `yaml:"marshaller"`
	// Channel overrides the channel the marshaller extracted, when set.
	Channel string `yaml:"channel,omitempty"`

	// Path of the log file to tail. File sources only.
	Path string `yaml:"path,omitempty"`

	// URL and Subject of the NATS subscription. NATS sources only.
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// GatewayConfig configures the HTTP/WebSocket read surface.
type GatewayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Config is the complete board configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`
	// QueueCapacity bounds the ingestion queue. Zero uses the default.
	QueueCapacity int `yaml:"queueCapacity,omitempty"`
	// CaseRetention is how long closed cases stay on the board before
	// the housekeeping sweep evicts them.
	CaseRetention Duration       `yaml:"caseRetention"`
	Gateway       GatewayConfig  `yaml:"gateway"`
	Metrics       MetricsConfig  `yaml:"metrics"`
	Sources       []SourceConfig `yaml:"sources"`
}

// Default returns the configuration the board starts with when none
// exists yet: tailing the Hexchat #fuelrats log at its per-OS default
// location.
func Default() *Config {
	return &Config{
		LogLevel:      "info",
		CaseRetention: Duration(2 * time.Hour),
		Gateway: GatewayConfig{
			Enabled: true,
			Listen:  ":8080",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  ":9090",
		},
		Sources: []SourceConfig{
			{
				Type:       SourceFile,
				Marshaller: MarshallerHexchat,
				Path:       defaultHexchatLogPath(),
			},
		},
	}
}

// defaultHexchatLogPath guesses where Hexchat writes the #fuelrats log
// on this platform.
func defaultHexchatLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "HexChat", "logs", "fuelrats", "#fuelrats.log")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "HexChat", "logs", "fuelrats", "#fuelrats.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "hexchat", "logs", "fuelrats", "#fuelrats.log")
	}
}

// Validate checks the config for consistency.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown log level %q", c.LogLevel),
			"Config", "Validate", "log level validation")
	}

	if c.QueueCapacity < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("negative queue capacity %d", c.QueueCapacity),
			"Config", "Validate", "queue capacity validation")
	}

	if c.CaseRetention <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("non-positive case retention %v", c.CaseRetention.Std()),
			"Config", "Validate", "retention validation")
	}

	if c.Gateway.Enabled && c.Gateway.Listen == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig,
			"Config", "Validate", "gateway listen address validation")
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig,
			"Config", "Validate", "metrics listen address validation")
	}

	for i, source := range c.Sources {
		if err := source.validate(); err != nil {
			return errors.WrapInvalid(err, "Config", "Validate",
				fmt.Sprintf("source %d validation", i))
		}
	}

	return nil
}

func (s *SourceConfig) validate() error {
	if s.Marshaller != MarshallerHexchat {
		return fmt.Errorf("unknown marshaller %q", s.Marshaller)
	}

	switch s.Type {
	case SourceFile:
		if s.Path == "" {
			return fmt.Errorf("file source needs a path")
		}
	case SourceNATS:
		if s.URL == "" {
			return fmt.Errorf("nats source needs a url")
		}
		if s.Subject == "" {
			return fmt.Errorf("nats source needs a subject")
		}
	default:
		return fmt.Errorf("unknown source type %q", s.Type)
	}

	return nil
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config", "Load", "read config file")
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "parse config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "Config", "Save", "marshal config")
	}

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errors.Wrap(err, "Config", "Save", "write config file")
	}
	return nil
}

// LoadOrCreate loads the config at path, writing and returning the
// default config when the file does not exist yet.
func LoadOrCreate(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := cfg.Save(path); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}

// Package config loads the omnivoice CLI configuration.
//
// Configuration is a single YAML file under os.UserConfigDir()/omnivoice/:
//
//	~/Library/Application Support/omnivoice/config.yaml   (macOS)
//	~/.config/omnivoice/config.yaml                       (Linux)
//	%AppData%/omnivoice/config.yaml                       (Windows)
//
// A missing file yields the defaults; `omnivoice config init` writes them
// out for editing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	// appDir is the directory name under os.UserConfigDir().
	appDir = "omnivoice"

	configFile = "config.yaml"
)

// Config is the root configuration.
type Config struct {
	// DataDir holds the key-value store and model artifacts. Defaults to
	// <config dir>/data.
	DataDir string `yaml:"data_dir"`

	// User scopes the command catalogue and conversation context.
	User string `yaml:"user"`

	Audio    Audio     `yaml:"audio"`
	Wake     Wake      `yaml:"wake"`
	ASR      ASR       `yaml:"asr"`
	TTS      TTS       `yaml:"tts"`
	Contacts []Contact `yaml:"contacts"`

	// GrammarFile overrides the built-in intent grammar when set.
	GrammarFile string `yaml:"grammar_file,omitempty"`
}

// Audio configures microphone capture.
type Audio struct {
	// SampleRate is the capture rate in Hz. Supported values are 16000,
	// 24000 and 48000. Capture at rates other than 16000 is resampled
	// before it reaches the recognizers.
	SampleRate int `yaml:"sample_rate"`
}

// Wake configures the wake-word detector and its model store.
type Wake struct {
	// Word is the phrase the detector listens for.
	Word string `yaml:"word"`

	// Sensitivity in [0.1, 1.0]; higher means fewer false accepts.
	Sensitivity float64 `yaml:"sensitivity"`

	// Cooldown is a duration string, e.g. "2s".
	Cooldown string `yaml:"cooldown"`

	// ModelDir is the local model store root. Ignored when S3 is set.
	ModelDir string `yaml:"model_dir,omitempty"`

	// S3 switches the model store to an S3-compatible bucket.
	S3 *S3 `yaml:"s3,omitempty"`
}

// S3 describes an S3-compatible object store for model artifacts.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// ASR configures the transcription provider.
type ASR struct {
	// Provider selects the mux entry: "asr/ws" or "asr/openai".
	Provider string `yaml:"provider"`

	// Endpoint and Token configure the websocket provider.
	Endpoint string `yaml:"endpoint,omitempty"`
	Token    string `yaml:"token,omitempty"`

	// OpenAIKey and Model configure the hosted fallback provider.
	OpenAIKey string `yaml:"openai_api_key,omitempty"`
	Model     string `yaml:"model,omitempty"`

	Language string `yaml:"language"`
	Partials bool   `yaml:"partials"`

	// IdleTimeout is a duration string, e.g. "10s".
	IdleTimeout string `yaml:"idle_timeout,omitempty"`
}

// TTS configures spoken feedback.
type TTS struct {
	// Provider selects the speaker mux entry. "console" prints instead
	// of speaking; "portaudio" plays tones through the output device and
	// prints the text.
	Provider string `yaml:"provider"`
}

// Contact is one address book entry.
type Contact struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Phone  string   `yaml:"phone"`
	Labels []string `yaml:"labels,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		User:  "default",
		Audio: Audio{SampleRate: 16000},
		Wake: Wake{
			Word:        "小欧小欧",
			Sensitivity: 0.5,
			Cooldown:    "2s",
		},
		ASR: ASR{
			Provider: "asr/ws",
			Language: "zh-CN",
			Partials: true,
		},
		TTS: TTS{Provider: "console"},
	}
}

// Dir returns the configuration directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(base, appDir), nil
}

// Load reads the configuration from the default location. A missing file
// is not an error; defaults are returned.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(dir, configFile))
}

// LoadFrom reads the configuration from a specific file.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.fillPaths(filepath.Dir(path))
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.fillPaths(filepath.Dir(path))
	return cfg, nil
}

// Save writes the configuration to the given file, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) fillPaths(dir string) {
	if c.DataDir == "" {
		c.DataDir = filepath.Join(dir, "data")
	}
	if c.Wake.ModelDir == "" {
		c.Wake.ModelDir = filepath.Join(c.DataDir, "models")
	}
}

// KVDir returns the badger store directory.
func (c *Config) KVDir() string {
	return filepath.Join(c.DataDir, "kv")
}

// CooldownDuration parses Wake.Cooldown; zero means the detector default.
func (c *Config) CooldownDuration() (time.Duration, error) {
	return parseDuration(c.Wake.Cooldown)
}

// IdleTimeoutDuration parses ASR.IdleTimeout; zero means the session
// default.
func (c *Config) IdleTimeoutDuration() (time.Duration, error) {
	return parseDuration(c.ASR.IdleTimeout)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

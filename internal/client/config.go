package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultServerURL  = "http://localhost:3001"
	defaultConfigDir  = ".promptbuddy"
	defaultConfigFile = "config.yaml"
	defaultStoreFile  = "state.db"
)

// Config is the CLI configuration. Every field has a usable default, so a missing
// config file is not an error.
type Config struct {
	ServerURL      string        `yaml:"server_url"`
	StorePath      string        `yaml:"store_path"`
	Tone           string        `yaml:"tone"`
	Simplicity     string        `yaml:"simplicity"`
	GoogleClientID string        `yaml:"google_client_id"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Speech         SpeechConfig  `yaml:"speech"`
	Log            LogConfig     `yaml:"log"`
}

type SpeechConfig struct {
	// Disabled swaps Speech-to-Text for a transcriber that always refuses.
	Disabled        bool   `yaml:"disabled"`
	Language        string `yaml:"language"`
	SampleRate      int    `yaml:"sample_rate"`
	CredentialsFile string `yaml:"credentials_file"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfigPath honours PROMPTBUDDY_CONFIG and falls back to ~/.promptbuddy/config.yaml.
func DefaultConfigPath() string {
	if p := strings.TrimSpace(os.Getenv("PROMPTBUDDY_CONFIG")); p != "" {
		return p
	}
	return filepath.Join(homeDir(), defaultConfigDir, defaultConfigFile)
}

// LoadConfig reads path, expands ${VAR} references, applies env overrides and
// defaults. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.applyEnv()
	cfg.setDefaults()
	cfg.StorePath = expandHome(cfg.StorePath)
	cfg.Speech.CredentialsFile = expandHome(cfg.Speech.CredentialsFile)
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("PROMPTBUDDY_SERVER_URL")); v != "" {
		c.ServerURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PROMPTBUDDY_STORE")); v != "" {
		c.StorePath = v
	}
	if v := strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")); v != "" {
		c.GoogleClientID = v
	}
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv("PROMPTBUDDY_SPEECH_DISABLED"))); err == nil {
		c.Speech.Disabled = v
	}
}

func (c *Config) setDefaults() {
	if c.ServerURL == "" {
		c.ServerURL = defaultServerURL
	}
	if c.StorePath == "" {
		c.StorePath = filepath.Join(homeDir(), defaultConfigDir, defaultStoreFile)
	}
	if c.Tone == "" {
		c.Tone = "casual"
	}
	if c.Simplicity == "" {
		c.Simplicity = "simple"
	}
	if c.Speech.Language == "" {
		c.Speech.Language = "en-US"
	}
	if c.Speech.SampleRate == 0 {
		c.Speech.SampleRate = 16000
	}
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	return "."
}

func expandHome(p string) string {
	if p == "~" {
		return homeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(homeDir(), p[2:])
	}
	return p
}

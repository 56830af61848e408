package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/adreport-cli/internal/utils"
)

// Global configuration structure.
type Global struct {
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"`
	Provider       string  `mapstructure:"provider" yaml:"provider"`
	Model          string  `mapstructure:"model" yaml:"model"`
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url"`
	MaxTokens      int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`
	HTTPTimeoutSec int     `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryBackoffMs []int   `mapstructure:"retry_backoff_ms" yaml:"retry_backoff_ms"`

	// Extraction
	QualityThreshold int    `mapstructure:"quality_threshold" yaml:"quality_threshold"`
	LayoutFile       string `mapstructure:"layout_file" yaml:"layout_file,omitempty"`

	// Customer/preset database
	StorePath string `mapstructure:"store_path" yaml:"store_path"`

	// Key issuance, client and server side
	KeyEndpoint    string `mapstructure:"key_endpoint" yaml:"key_endpoint"`
	ListenAddr     string `mapstructure:"listen_addr" yaml:"listen_addr"`
	AllowedDomain  string `mapstructure:"allowed_domain" yaml:"allowed_domain"`
	TokenInfoURL   string `mapstructure:"tokeninfo_url" yaml:"tokeninfo_url"`
	GoogleClientID string `mapstructure:"google_client_id" yaml:"google_client_id,omitempty"`
}

// Dir returns ~/.adreport.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".adreport"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.adreport/config.yaml, creating the directory if necessary.
// The file is readable only by the owner since it may hold an API key.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.WriteFileAtomic(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

var defaults = map[string]any{
	"api_key":           "",
	"provider":          "gemini",
	"model":             "gemini-2.5-flash",
	"base_url":          "https://generativelanguage.googleapis.com/v1beta",
	"max_tokens":        0,
	"temperature":       0.0,
	"http_timeout_sec":  60,
	"retry_backoff_ms":  []int{1000, 2000, 4000, 8000, 16000},
	"quality_threshold": 2,
	"layout_file":       "",
	"store_path":        "",
	"key_endpoint":      "",
	"listen_addr":       ":8080",
	"allowed_domain":    "mi-rai.co.jp",
	"tokeninfo_url":     "https://oauth2.googleapis.com/tokeninfo",
	"google_client_id":  "",
}

// Keys lists every configuration key.
func Keys() []string {
	out := make([]string, 0, len(defaults))
	for k := range defaults {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (ADREPORT_*) > config file > defaults. The result is for
// running commands; pass LoadFile's result to Save instead so environment
// overrides never reach disk.
func Load(cfgFile string) (*Global, error) {
	c, err := load(cfgFile, true)
	if err != nil {
		return nil, err
	}
	if c.StorePath == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.StorePath = filepath.Join(dir, "adreport.db")
	}
	return c, nil
}

// LoadFile reads only defaults and the config file.
func LoadFile(cfgFile string) (*Global, error) {
	return load(cfgFile, false)
}

func load(cfgFile string, env bool) (*Global, error) {
	v := viper.New()
	if env {
		v.SetEnvPrefix("ADREPORT")
		v.AutomaticEnv()
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// A missing file is fine; a broken one is not.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// ResolvedAPIKey is api_key, or GEMINI_API_KEY when api_key is empty.
func (c *Global) ResolvedAPIKey() string {
	if c != nil && c.APIKey != "" {
		return c.APIKey
	}
	return os.Getenv("GEMINI_API_KEY")
}

// Set parses value for key and stores it in c.
func (c *Global) Set(key, value string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(value)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, value)
		}
		return i, nil
	}
	var err error
	switch key {
	case "api_key":
		c.APIKey = value
	case "provider":
		switch strings.ToLower(value) {
		case "gemini", "rest":
			c.Provider = "gemini"
		case "genai", "sdk":
			c.Provider = "genai"
		default:
			return fmt.Errorf("invalid provider: %s (use gemini or genai)", value)
		}
	case "model":
		c.Model = value
	case "base_url":
		c.BaseURL = value
	case "max_tokens":
		c.MaxTokens, err = atoi()
	case "temperature":
		f, perr := strconv.ParseFloat(value, 64)
		if perr != nil || f < 0 {
			return fmt.Errorf("invalid float for temperature: %v", value)
		}
		c.Temperature = f
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi()
	case "retry_backoff_ms":
		var ms []int
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, perr := strconv.Atoi(part)
			if perr != nil || n < 0 {
				return fmt.Errorf("invalid retry_backoff_ms entry %q", part)
			}
			ms = append(ms, n)
		}
		c.RetryBackoffMs = ms
	case "quality_threshold":
		c.QualityThreshold, err = atoi()
		if err == nil && c.QualityThreshold == 0 {
			err = fmt.Errorf("quality_threshold must be at least 1")
		}
	case "layout_file":
		c.LayoutFile = value
	case "store_path":
		c.StorePath = value
	case "key_endpoint":
		c.KeyEndpoint = value
	case "listen_addr":
		c.ListenAddr = value
	case "allowed_domain":
		c.AllowedDomain = value
	case "tokeninfo_url":
		c.TokenInfoURL = value
	case "google_client_id":
		c.GoogleClientID = value
	default:
		return fmt.Errorf("unknown key: %s (known: %s)", key, strings.Join(Keys(), ", "))
	}
	return err
}

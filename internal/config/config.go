package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

const (
	DirName        = "jobcrawl"
	ConfigFileName = "config.json"
)

// Config contains default crawl settings.
type Config struct {
	DefaultLocation string `json:"default_location"`
	DefaultCountry  string `json:"default_country"`
	DefaultPages    int    `json:"default_pages" validate:"min=1"`

	Driver      string `json:"driver" validate:"oneof=chromedp rod static"`
	Headless    bool   `json:"headless"`
	UserDataDir string `json:"user_data_dir"`
	ChromePath  string `json:"chrome_path"`
	UserAgent   string `json:"user_agent"`

	ListTimeout    string `json:"list_timeout"`
	DetailTimeout  string `json:"detail_timeout"`
	ContentTimeout string `json:"content_timeout"`

	OutputDir string `json:"output_dir" validate:"required"`
}

func DefaultConfig() Config {
	return Config{
		DefaultCountry: "usa",
		DefaultPages:   1,
		Driver:         "chromedp",
		ListTimeout:    "20s",
		DetailTimeout:  "10s",
		ContentTimeout: "15s",
		OutputDir:      "data",
	}
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q (got %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	for name, value := range map[string]string{
		"list_timeout":    c.ListTimeout,
		"detail_timeout":  c.DetailTimeout,
		"content_timeout": c.ContentTimeout,
	} {
		if _, err := ParseTimeout(value); err != nil {
			return fmt.Errorf("invalid config: %s: %w", name, err)
		}
	}
	return nil
}

// ParseTimeout parses a positive Go duration such as "20s".
func ParseTimeout(value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", value)
	}
	return d, nil
}

func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, DirName), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// Load reads the config file, then applies JOBCRAWL_* environment overrides.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), err
	}
	return LoadFile(path)
}

func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json5.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DefaultLocation = envString("JOBCRAWL_DEFAULT_LOCATION", cfg.DefaultLocation)
	cfg.DefaultCountry = envString("JOBCRAWL_DEFAULT_COUNTRY", cfg.DefaultCountry)
	cfg.DefaultPages = envInt("JOBCRAWL_DEFAULT_PAGES", cfg.DefaultPages)
	cfg.Driver = envString("JOBCRAWL_DRIVER", cfg.Driver)
	cfg.Headless = envBool("JOBCRAWL_HEADLESS", cfg.Headless)
	cfg.UserDataDir = envString("JOBCRAWL_USER_DATA_DIR", cfg.UserDataDir)
	cfg.ChromePath = envString("JOBCRAWL_CHROME_PATH", cfg.ChromePath)
	cfg.OutputDir = envString("JOBCRAWL_OUTPUT_DIR", cfg.OutputDir)
}

// Init writes a default config.json if it doesn't already exist.
func Init() ([]string, error) {
	var created []string

	dir, err := ConfigDir()
	if err != nil {
		return created, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return created, err
	}

	configPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := writeConfig(configPath, DefaultConfig()); err != nil {
			return created, err
		}
		created = append(created, configPath)
	}

	return created, nil
}

func writeConfig(path string, cfg Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Marshal renders cfg in the config file layout.
func Marshal(cfg Config) ([]byte, error) {
	return json.MarshalIndent(cfg, "", "  ")
}

func envString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

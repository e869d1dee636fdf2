// Package config loads the receipt engine configuration from YAML, .env
// files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/luxstay/receipt-engine/internal/layout"
	"github.com/luxstay/receipt-engine/pkg/receiptdoc"
)

const registryFile = "receipt_registry.json"

// Config is the complete runtime configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Receipt ReceiptConfig `yaml:"receipt"`
	Layout  layout.Config `yaml:"layout"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// BackendConfig points at the hotel reservation API
type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ReceiptConfig controls receipt content and serialization
type ReceiptConfig struct {
	Product        string `yaml:"product"`
	CodeKind       string `yaml:"code"`
	FontName       string `yaml:"font"`
	StrictEncoding bool   `yaml:"strict_encoding"`
	RegistryPath   string `yaml:"registry"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "12212",
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 10 * time.Second,
		},
		Receipt: ReceiptConfig{
			Product:  "LuxStay",
			CodeKind: receiptdoc.CodeQR,
			FontName: "Helvetica",
		},
		Layout:  layout.DefaultConfig(),
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}
}

// Load reads configPath (optional) over the defaults, then applies
// environment overrides. Variables from .env or .env.local are loaded
// first without overriding the process environment.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	cfg.applyEnv(os.Getenv)

	if cfg.Receipt.RegistryPath == "" {
		cfg.Receipt.RegistryPath = DefaultRegistryPath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFiles() {
	for _, path := range []string{".env", ".env.local"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		// godotenv.Load never overrides variables that are already set
		_ = godotenv.Load(path)
	}
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("SERVER_PORT"); v != "" {
		c.Server.Port = v
	}
	if v := getenv("API_BASE_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := getenv("RECEIPT_REGISTRY"); v != "" {
		c.Receipt.RegistryPath = v
	}
	if v := getenv("RECEIPT_PRODUCT"); v != "" {
		c.Receipt.Product = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = NormalizeLogLevel(v)
	}
}

// Validate checks the values that would otherwise fail at request time
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Server.Port) == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("backend.base_url must be an http(s) URL, got %q", c.Backend.BaseURL))
	}
	switch c.Receipt.CodeKind {
	case "", "none", receiptdoc.CodeQR, receiptdoc.CodeCode128, receiptdoc.CodeCode39:
	default:
		errs = append(errs, fmt.Errorf("receipt.code: unsupported kind %q", c.Receipt.CodeKind))
	}
	if err := c.Layout.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("layout: %w", err))
	}

	return errors.Join(errs...)
}

// DefaultRegistryPath places the registry next to the executable when that
// directory is writable, then falls back to the working directory and
// finally the user config directory.
func DefaultRegistryPath() string {
	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		if writable(exeDir) {
			return filepath.Join(exeDir, registryFile)
		}
	}

	if wd, err := os.Getwd(); err == nil && writable(wd) {
		return filepath.Join(wd, registryFile)
	}

	var configDir string
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			configDir = filepath.Join(appData, "receipt-engine")
		} else {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "receipt-engine")
		}
	} else if home := os.Getenv("HOME"); home != "" {
		configDir = filepath.Join(home, ".config", "receipt-engine")
	}

	if configDir != "" {
		_ = os.MkdirAll(configDir, 0755)
		return filepath.Join(configDir, registryFile)
	}
	return registryFile
}

func writable(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	testFile := filepath.Join(dir, ".receipt-engine-write-test")
	f, err := os.Create(testFile)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(testFile)
	return true
}

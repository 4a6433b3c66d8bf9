// Package config loads client settings once at start-up: built-in defaults,
// then an optional YAML file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"cardgame/go-client/internal/ledger"
)

const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

type Config struct {
	Ledger   LedgerConfig
	Session  SessionConfig
	Dispatch DispatchConfig
	Log      LogConfig
}

type LedgerConfig struct {
	HTTPEndpoint string
	ContractID   string
	Timeout      time.Duration
}

type SessionConfig struct {
	Store      string
	Path       string
	Passphrase string
	Verify     string
}

type DispatchConfig struct {
	Serialize   bool
	SubmitRPS   float64
	SubmitBurst int
}

type LogConfig struct {
	Level  string
	Format string
}

func Default() Config {
	return Config{
		Ledger:   LedgerConfig{Timeout: 10 * time.Second},
		Session:  SessionConfig{Store: StoreFile, Path: defaultSessionPath(), Verify: "transaction"},
		Dispatch: DispatchConfig{Serialize: true},
		Log:      LogConfig{Level: "info", Format: "json"},
	}
}

type fileConfig struct {
	Ledger struct {
		HTTPEndpoint string        `yaml:"httpEndpoint"`
		ContractID   string        `yaml:"contractId"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"ledger"`
	Session struct {
		Store      string `yaml:"store"`
		Path       string `yaml:"path"`
		Passphrase string `yaml:"passphrase"`
		Verify     string `yaml:"verify"`
	} `yaml:"session"`
	Dispatch struct {
		Serialize   *bool   `yaml:"serialize"`
		SubmitRPS   float64 `yaml:"submitRps"`
		SubmitBurst int     `yaml:"submitBurst"`
	} `yaml:"dispatch"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

type envConfig struct {
	HTTPEndpoint      string `env:"LEDGER_HTTP_ENDPOINT"`
	ContractID        string `env:"LEDGER_CONTRACT_ID"`
	SessionStore      string `env:"CARDGAME_SESSION_STORE"`
	SessionPath       string `env:"CARDGAME_SESSION_PATH"`
	SessionPassphrase string `env:"CARDGAME_SESSION_PASSPHRASE"`
	VerifyMode        string `env:"CARDGAME_VERIFY_MODE"`
	LogLevel          string `env:"CARDGAME_LOG_LEVEL"`
	LogFormat         string `env:"CARDGAME_LOG_FORMAT"`
}

// Load reads configPath, or the first default candidate that exists when
// configPath is empty, and applies environment overrides. It does not validate.
func Load(configPath string) (Config, error) {
	cfg := Default()

	candidates := []string{"configs/cardgame.yaml", "cardgame.yaml"}
	if configPath != "" {
		candidates = []string{configPath}
	}
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if configPath == "" && errors.Is(err, os.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		var parsed fileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		Merge(&cfg, parsed)
		break
	}

	if err := ApplyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Merge(dst *Config, src fileConfig) {
	if src.Ledger.HTTPEndpoint != "" {
		dst.Ledger.HTTPEndpoint = src.Ledger.HTTPEndpoint
	}
	if src.Ledger.ContractID != "" {
		dst.Ledger.ContractID = src.Ledger.ContractID
	}
	if src.Ledger.Timeout != 0 {
		dst.Ledger.Timeout = src.Ledger.Timeout
	}
	if src.Session.Store != "" {
		dst.Session.Store = src.Session.Store
	}
	if src.Session.Path != "" {
		dst.Session.Path = src.Session.Path
	}
	if src.Session.Passphrase != "" {
		dst.Session.Passphrase = src.Session.Passphrase
	}
	if src.Session.Verify != "" {
		dst.Session.Verify = src.Session.Verify
	}
	if src.Dispatch.Serialize != nil {
		dst.Dispatch.Serialize = *src.Dispatch.Serialize
	}
	if src.Dispatch.SubmitRPS != 0 {
		dst.Dispatch.SubmitRPS = src.Dispatch.SubmitRPS
	}
	if src.Dispatch.SubmitBurst != 0 {
		dst.Dispatch.SubmitBurst = src.Dispatch.SubmitBurst
	}
	if src.Log.Level != "" {
		dst.Log.Level = src.Log.Level
	}
	if src.Log.Format != "" {
		dst.Log.Format = src.Log.Format
	}
}

func ApplyEnvOverrides(cfg *Config) error {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	overrides := []struct {
		dst *string
		val string
	}{
		{&cfg.Ledger.HTTPEndpoint, e.HTTPEndpoint},
		{&cfg.Ledger.ContractID, e.ContractID},
		{&cfg.Session.Store, e.SessionStore},
		{&cfg.Session.Path, e.SessionPath},
		{&cfg.Session.Passphrase, e.SessionPassphrase},
		{&cfg.Session.Verify, e.VerifyMode},
		{&cfg.Log.Level, e.LogLevel},
		{&cfg.Log.Format, e.LogFormat},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(o.val); v != "" {
			*o.dst = v
		}
	}
	return nil
}

func (c Config) Validate() error {
	u, err := url.Parse(c.Ledger.HTTPEndpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("ledger endpoint %q must be an absolute http(s) URL", c.Ledger.HTTPEndpoint)
	}
	if err := ledger.ValidateAccountName(c.Ledger.ContractID); err != nil {
		return fmt.Errorf("ledger contract id: %w", err)
	}
	switch c.Session.Store {
	case StoreMemory:
	case StoreFile, StoreSQLite:
		if strings.TrimSpace(c.Session.Path) == "" {
			return fmt.Errorf("session store %q needs a path", c.Session.Store)
		}
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	if c.Dispatch.SubmitRPS < 0 || c.Dispatch.SubmitBurst < 0 {
		return errors.New("dispatch submit limits must not be negative")
	}
	return nil
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".cardgame", "session.json")
	}
	return filepath.Join(dir, "cardgame", "session.json")
}

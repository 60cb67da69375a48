package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Data      DataConfig
	Warehouse WarehouseConfig
	Log       LogConfig
	Analysis  AnalysisConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type StorageConfig struct {
	DataDir string
}

// DataConfig selects where sales records are read from. Source is one of
// "warehouse" (records imported into the local store), "file", "sqlite" or
// "postgres".
type DataConfig struct {
	Source string
	Path   string
	Table  string
}

type WarehouseConfig struct {
	PostgresDSN string
}

type LogConfig struct {
	Level string
}

type AnalysisConfig struct {
	SpikeThreshold    float64
	CriticalLevel     int
	DefaultElasticity float64
	Workers           int
}

// Data sources.
const (
	SourceWarehouse = "warehouse"
	SourceFile      = "file"
	SourceSQLite    = "sqlite"
	SourcePostgres  = "postgres"
)

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Data: DataConfig{
			Source: SourceWarehouse,
			Table:  "sales_records",
		},
		Log: LogConfig{
			Level: "info",
		},
		Analysis: AnalysisConfig{
			SpikeThreshold:    2.0,
			CriticalLevel:     50,
			DefaultElasticity: -1.5,
			Workers:           4,
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// A .env file in the working directory is loaded first; it never overrides
// variables already set in the environment.
//
// On macOS the backend is UserDefaults (domain: com.kalambet.cpgagent) and
// secrets fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/cpgagent/config.json
// and secrets fall back to $XDG_DATA_HOME/cpgagent/secrets.json.
//
// Environment variables (CPGAGENT_*) override backend values on all platforms.
func Load() (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	return loadWith(newPlatformBackend(), keychainReader{})
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

const keychainService = "cpgagent"

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Secrets not set in the environment fall back to the platform store.
	for _, s := range specs {
		if !s.secret || s.extract(cfg).(string) != "" {
			continue
		}
		if v, err := kc.Get(keychainService, s.account); err == nil && v != "" {
			s.apply(&cfg, v)
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Data.Source {
	case SourceWarehouse:
	case SourceFile, SourceSQLite:
		if c.Data.Path == "" {
			return fmt.Errorf("data.source %q requires data.path (or CPGAGENT_DATA_PATH)", c.Data.Source)
		}
	case SourcePostgres:
		if c.Warehouse.PostgresDSN == "" {
			return fmt.Errorf("data.source postgres requires a DSN; set CPGAGENT_POSTGRES_DSN%s", secretHint("postgres_dsn"))
		}
	default:
		return fmt.Errorf("invalid data.source %q; use warehouse, file, sqlite or postgres", c.Data.Source)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q; use debug, info, warn or error", c.Log.Level)
	}

	if c.Analysis.SpikeThreshold <= 0 {
		return fmt.Errorf("analysis.spike_threshold must be positive, got %v", c.Analysis.SpikeThreshold)
	}
	if c.Analysis.CriticalLevel < 0 {
		return fmt.Errorf("analysis.critical_level must be non-negative, got %d", c.Analysis.CriticalLevel)
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be at least 1, got %d", c.Analysis.Workers)
	}
	return nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	account string // secret store account for secret keys
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "CPGAGENT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_token", typ: kString, env: "CPGAGENT_API_TOKEN",
		secret: true, account: "api_token",
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "storage.data_dir", typ: kString, env: "CPGAGENT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "data.source", typ: kString, env: "CPGAGENT_DATA_SOURCE",
		apply:   func(cfg *Config, v any) { cfg.Data.Source = v.(string) },
		extract: func(cfg Config) any { return cfg.Data.Source },
	},
	{
		key: "data.path", typ: kString, env: "CPGAGENT_DATA_PATH",
		apply:   func(cfg *Config, v any) { cfg.Data.Path = v.(string) },
		extract: func(cfg Config) any { return cfg.Data.Path },
	},
	{
		key: "data.table", typ: kString, env: "CPGAGENT_DATA_TABLE",
		apply:   func(cfg *Config, v any) { cfg.Data.Table = v.(string) },
		extract: func(cfg Config) any { return cfg.Data.Table },
	},
	{
		key: "warehouse.postgres_dsn", typ: kString, env: "CPGAGENT_POSTGRES_DSN",
		secret: true, account: "postgres_dsn",
		apply:   func(cfg *Config, v any) { cfg.Warehouse.PostgresDSN = v.(string) },
		extract: func(cfg Config) any { return cfg.Warehouse.PostgresDSN },
	},
	{
		key: "log.level", typ: kString, env: "CPGAGENT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "analysis.spike_threshold", typ: kFloat, env: "CPGAGENT_ANALYSIS_SPIKE_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Analysis.SpikeThreshold = v.(float64) },
		extract: func(cfg Config) any { return cfg.Analysis.SpikeThreshold },
	},
	{
		key: "analysis.critical_level", typ: kInt, env: "CPGAGENT_ANALYSIS_CRITICAL_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Analysis.CriticalLevel = v.(int) },
		extract: func(cfg Config) any { return cfg.Analysis.CriticalLevel },
	},
	{
		key: "analysis.default_elasticity", typ: kFloat, env: "CPGAGENT_ANALYSIS_DEFAULT_ELASTICITY",
		apply:   func(cfg *Config, v any) { cfg.Analysis.DefaultElasticity = v.(float64) },
		extract: func(cfg Config) any { return cfg.Analysis.DefaultElasticity },
	},
	{
		key: "analysis.workers", typ: kInt, env: "CPGAGENT_ANALYSIS_WORKERS",
		apply:   func(cfg *Config, v any) { cfg.Analysis.Workers = v.(int) },
		extract: func(cfg Config) any { return cfg.Analysis.Workers },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// mockKeychain is a test double for the keychain interface.
type mockKeychain struct {
	values map[string]string
}

func (m mockKeychain) Get(service, account string) (string, error) {
	if v, ok := m.values[account]; ok && service == keychainService {
		return v, nil
	}
	return "", errors.New("not found")
}

func writeTempConfig(t *testing.T, content string) *fileBackend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return newFileBackend(path)
}

// TestDefaults verifies all default values are applied when loading an empty config file.
func TestDefaults(t *testing.T) {
	b := writeTempConfig(t, `{}`)

	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Data.Source != SourceWarehouse {
		t.Errorf("Data.Source = %q, want %q", cfg.Data.Source, SourceWarehouse)
	}
	if cfg.Data.Table != "sales_records" {
		t.Errorf("Data.Table = %q, want %q", cfg.Data.Table, "sales_records")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Analysis.SpikeThreshold != 2.0 {
		t.Errorf("Analysis.SpikeThreshold = %v, want 2.0", cfg.Analysis.SpikeThreshold)
	}
	if cfg.Analysis.CriticalLevel != 50 {
		t.Errorf("Analysis.CriticalLevel = %d, want 50", cfg.Analysis.CriticalLevel)
	}
	if cfg.Analysis.DefaultElasticity != -1.5 {
		t.Errorf("Analysis.DefaultElasticity = %v, want -1.5", cfg.Analysis.DefaultElasticity)
	}
	if cfg.Analysis.Workers != 4 {
		t.Errorf("Analysis.Workers = %d, want 4", cfg.Analysis.Workers)
	}
	if cfg.Server.APIToken != "" {
		t.Errorf("Server.APIToken = %q, want empty", cfg.Server.APIToken)
	}
}

// TestFileParsing verifies that values are read from the JSON config file.
func TestFileParsing(t *testing.T) {
	b := writeTempConfig(t, `{
  "server.port": 5000,
  "storage.data_dir": "/tmp/cpgagent-test",
  "data.source": "file",
  "data.path": "/data/sales.parquet",
  "log.level": "debug",
  "analysis.spike_threshold": "2.5",
  "analysis.critical_level": 20,
  "analysis.workers": "8"
}`)

	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Storage.DataDir != "/tmp/cpgagent-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Data.Source != SourceFile || cfg.Data.Path != "/data/sales.parquet" {
		t.Errorf("Data = %+v", cfg.Data)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Analysis.SpikeThreshold != 2.5 {
		t.Errorf("Analysis.SpikeThreshold = %v", cfg.Analysis.SpikeThreshold)
	}
	if cfg.Analysis.CriticalLevel != 20 {
		t.Errorf("Analysis.CriticalLevel = %d", cfg.Analysis.CriticalLevel)
	}
	if cfg.Analysis.Workers != 8 {
		t.Errorf("Analysis.Workers = %d", cfg.Analysis.Workers)
	}
}

// TestEnvOverride verifies that environment variables override config file values.
func TestEnvOverride(t *testing.T) {
	b := writeTempConfig(t, `{"server.port": 5000, "log.level": "warn"}`)

	t.Setenv("CPGAGENT_SERVER_PORT", "6000")
	t.Setenv("CPGAGENT_ANALYSIS_DEFAULT_ELASTICITY", "-0.8")
	t.Setenv("CPGAGENT_API_TOKEN", "env-token")

	cfg, err := loadWith(b, mockKeychain{values: map[string]string{"api_token": "keychain-token"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
	if cfg.Analysis.DefaultElasticity != -0.8 {
		t.Errorf("Analysis.DefaultElasticity = %v, want -0.8", cfg.Analysis.DefaultElasticity)
	}
	if cfg.Server.APIToken != "env-token" {
		t.Errorf("APIToken = %q, want %q", cfg.Server.APIToken, "env-token")
	}
}

// TestEnvOverride_BadValueIgnored verifies unparsable env values keep the default.
func TestEnvOverride_BadValueIgnored(t *testing.T) {
	b := writeTempConfig(t, `{}`)
	t.Setenv("CPGAGENT_ANALYSIS_WORKERS", "many")

	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Analysis.Workers != 4 {
		t.Errorf("Analysis.Workers = %d, want default 4", cfg.Analysis.Workers)
	}
}

// TestKeychainFallback verifies the secret store is consulted when a secret is not in env.
func TestKeychainFallback(t *testing.T) {
	b := writeTempConfig(t, `{"data.source": "postgres"}`)

	kc := mockKeychain{values: map[string]string{"postgres_dsn": "postgres://analyst@warehouse/cpg"}}
	cfg, err := loadWith(b, kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Warehouse.PostgresDSN != "postgres://analyst@warehouse/cpg" {
		t.Errorf("PostgresDSN = %q", cfg.Warehouse.PostgresDSN)
	}
}

// TestValidation verifies invalid combinations are rejected with a clear error.
func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown source", `{"data.source": "s3"}`, "invalid data.source"},
		{"file without path", `{"data.source": "file"}`, "requires data.path"},
		{"postgres without dsn", `{"data.source": "postgres"}`, "requires a DSN"},
		{"bad log level", `{"log.level": "verbose"}`, "invalid log.level"},
		{"zero threshold", `{"analysis.spike_threshold": "0"}`, "spike_threshold"},
		{"negative level", `{"analysis.critical_level": -1}`, "critical_level"},
		{"zero workers", `{"analysis.workers": 0}`, "workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadWith(writeTempConfig(t, tt.content), mockKeychain{})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestSetKey(t *testing.T) {
	b := writeTempConfig(t, `{}`)

	if err := setKey(b, "analysis.workers", "6"); err != nil {
		t.Fatalf("setKey workers: %v", err)
	}
	if err := setKey(b, "analysis.spike_threshold", "3.5"); err != nil {
		t.Fatalf("setKey threshold: %v", err)
	}
	if err := setKey(b, "analysis.workers", "six"); err == nil {
		t.Error("expected error for non-integer value")
	}
	if err := setKey(b, "server.api_token", "x"); err == nil {
		t.Error("expected error setting a secret")
	}
	if err := setKey(b, "proxy.model", "x"); err == nil {
		t.Error("expected error for unknown key")
	}

	// Values persist to disk.
	cfg, err := loadWith(newFileBackend(b.path), mockKeychain{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Analysis.Workers != 6 || cfg.Analysis.SpikeThreshold != 3.5 {
		t.Errorf("reloaded analysis = %+v", cfg.Analysis)
	}
}

func TestShowAll_HidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Server.APIToken = "hidden"

	for _, k := range ShowAll(cfg) {
		if k.Key == "server.api_token" || k.Key == "warehouse.postgres_dsn" {
			t.Errorf("secret %s must not be shown", k.Key)
		}
	}
	if got, want := len(ShowAll(cfg)), len(ValidKeys()); got != want {
		t.Errorf("ShowAll returned %d keys, ValidKeys %d", got, want)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "CPGAGENT_TEST_DOTENV_NEW=from-file\nCPGAGENT_TEST_DOTENV_KEEP=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CPGAGENT_TEST_DOTENV_KEEP", "from-shell")
	t.Cleanup(func() { os.Unsetenv("CPGAGENT_TEST_DOTENV_NEW") })

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if got := os.Getenv("CPGAGENT_TEST_DOTENV_NEW"); got != "from-file" {
		t.Errorf("NEW = %q, want from-file", got)
	}
	if got := os.Getenv("CPGAGENT_TEST_DOTENV_KEEP"); got != "from-shell" {
		t.Errorf("KEEP = %q, want from-shell", got)
	}

	if err := loadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Debug bool   `yaml:"debug"`
}

func (c *testConfig) Validate() error {
	if c.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_KeepsDefaults(t *testing.T) {
	path := writeConfig(t, "name: inkwell\n")
	cfg := &testConfig{Port: 8080}
	if err := Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "inkwell" || cfg.Port != 8080 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("INKWELL_TEST_PORT", "9090")
	path := writeConfig(t, "port: ${INKWELL_TEST_PORT}\n")
	cfg := &testConfig{}
	if err := Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Port)
	}
}

func TestLoad_Validates(t *testing.T) {
	path := writeConfig(t, "port: 0\n")
	if err := Load(path, &testConfig{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "port: [unclosed\n")
	if err := Load(path, &testConfig{Port: 1}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadIfExists_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	cfg := &testConfig{Port: 8080}
	if err := LoadIfExists(missing, cfg); err != nil {
		t.Fatalf("missing file should keep defaults: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("port = %d", cfg.Port)
	}

	if err := LoadIfExists(missing, &testConfig{}); err == nil {
		t.Fatal("defaults should still be validated")
	}
}

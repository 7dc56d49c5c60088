package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count must not be negative")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_KeepsDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("FOLIO_TEST_NAME", "travel")
	path := writeFile(t, "name: ${FOLIO_TEST_NAME}\n")

	s := sample{Name: "x", Count: 3}
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "travel" || s.Count != 3 {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	path := writeFile(t, "count: -1\n")
	var s sample
	err := Load(path, &s)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoad_Missing(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &s); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadOrDefault_Missing(t *testing.T) {
	s := sample{Name: "default"}
	loaded, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"), &s)
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if loaded || s.Name != "default" {
		t.Errorf("loaded = %v, s = %+v", loaded, s)
	}
}

func TestLoadOrDefault_MissingStillValidates(t *testing.T) {
	s := sample{Count: -5}
	if _, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"), &s); err == nil {
		t.Fatal("invalid defaults should fail validation")
	}
}

func TestLoadOrDefault_Present(t *testing.T) {
	path := writeFile(t, "count: 7\n")
	var s sample
	loaded, err := LoadOrDefault(path, &s)
	if err != nil || !loaded || s.Count != 7 {
		t.Fatalf("loaded = %v, err = %v, s = %+v", loaded, err, s)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeFile(t, "name: [unterminated\n")
	var s sample
	if err := Load(path, &s); err == nil {
		t.Fatal("expected parse error")
	}
}

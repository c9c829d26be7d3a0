package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Report.DefaultVersion != DefaultVersionTag {
		t.Errorf("DefaultVersion = %q", cfg.Report.DefaultVersion)
	}
	if _, ok := cfg.Report.Versions[DefaultVersionTag]; !ok {
		t.Error("default version table missing the shipped version")
	}
	if cfg.Convert.Property != "PRES" || cfg.Convert.Precision != 4 {
		t.Errorf("convert defaults = %+v", cfg.Convert)
	}
	if cfg.Convert.MismatchPolicy != "warn" {
		t.Errorf("MismatchPolicy = %q, want warn", cfg.Convert.MismatchPolicy)
	}
}

func TestLoadFileMerge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".resflow.yaml")
	body := `
report:
  versions:
    ese-lnx-v2025.10: /opt/cmg/2025.10/report
convert:
  property: SW
  precision: 6
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.loadFile(path); err != nil {
		t.Fatalf("loadFile failed: %v", err)
	}
	cfg := m.Get()

	if cfg.Convert.Property != "SW" || cfg.Convert.Precision != 6 {
		t.Errorf("merged convert = %+v", cfg.Convert)
	}
	// New version merged without dropping the default entry.
	if _, ok := cfg.Report.Versions["ese-lnx-v2025.10"]; !ok {
		t.Error("new version entry not merged")
	}
	if _, ok := cfg.Report.Versions[DefaultVersionTag]; !ok {
		t.Error("default version entry lost during merge")
	}
	// Unset fields keep their defaults.
	if cfg.Convert.MismatchPolicy != "warn" {
		t.Errorf("MismatchPolicy = %q, want default", cfg.Convert.MismatchPolicy)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RESFLOW_VERSION", "ese-lnx-v2025.10")
	t.Setenv("RESFLOW_PROPERTY", "SG")
	t.Setenv("RESFLOW_PRECISION", "8")

	m := NewManager()
	m.loadEnv()
	cfg := m.Get()

	if cfg.Report.DefaultVersion != "ese-lnx-v2025.10" {
		t.Errorf("DefaultVersion = %q", cfg.Report.DefaultVersion)
	}
	if cfg.Convert.Property != "SG" || cfg.Convert.Precision != 8 {
		t.Errorf("convert = %+v", cfg.Convert)
	}
}

func TestLoadEnvBadPrecisionIgnored(t *testing.T) {
	t.Setenv("RESFLOW_PRECISION", "not-a-number")

	m := NewManager()
	m.loadEnv()
	if got := m.Get().Convert.Precision; got != 4 {
		t.Errorf("Precision = %d, want default 4", got)
	}
}

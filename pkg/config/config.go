// Package config provides hierarchical configuration management.
// Priority: defaults < user < project < env < flags
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultVersionTag is the only Results version shipped in the
// default table.
const DefaultVersionTag = "ese-ts2win-v2024.20"

// Config holds all resflow configuration.
type Config struct {
	Version int `yaml:"version"`

	Report  ReportConfig  `yaml:"report"`
	Convert ConvertConfig `yaml:"convert"`
}

// ReportConfig controls the external Report tool invocation.
type ReportConfig struct {
	// DefaultVersion selects the version tag used when none is given
	// on the command line.
	DefaultVersion string `yaml:"default_version"`

	// Versions is the closed table of supported version tags and
	// their executable paths.
	Versions map[string]string `yaml:"versions"`
}

// ConvertConfig controls default conversion behavior.
type ConvertConfig struct {
	Property  string `yaml:"property"`
	Precision int    `yaml:"precision"`

	// MismatchPolicy is warn | ignore | strict.
	MismatchPolicy string `yaml:"mismatch_policy"`

	// SaveDir is where .npy arrays are written.
	SaveDir string `yaml:"save_dir"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Report: ReportConfig{
			DefaultVersion: DefaultVersionTag,
			Versions: map[string]string{
				DefaultVersionTag: `C:\Program Files\CMG\RESULTS\2024.20\Win_x64\exe\Report.exe`,
			},
		},
		Convert: ConvertConfig{
			Property:       "PRES",
			Precision:      4,
			MismatchPolicy: "warn",
			SaveDir:        "results",
		},
	}
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{config: Default()}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()

	for _, path := range m.configPaths() {
		if err := m.loadFile(path); err != nil {
			if !os.IsNotExist(err) {
				return err
			}
			continue
		}
		m.paths = append(m.paths, path)
	}

	m.loadEnv()
	return nil
}

// configPaths returns config file paths in priority order.
func (m *Manager) configPaths() []string {
	var paths []string

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".resflow", "config.yaml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".resflow.yaml"))
	}

	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	m.merge(&partial)
	return nil
}

// merge merges non-zero values from src into config. Version table
// entries are merged key-wise so a project file can add one version
// without repeating the defaults.
func (m *Manager) merge(src *Config) {
	if src.Report.DefaultVersion != "" {
		m.config.Report.DefaultVersion = src.Report.DefaultVersion
	}
	for tag, exe := range src.Report.Versions {
		if m.config.Report.Versions == nil {
			m.config.Report.Versions = make(map[string]string)
		}
		m.config.Report.Versions[tag] = exe
	}

	if src.Convert.Property != "" {
		m.config.Convert.Property = src.Convert.Property
	}
	if src.Convert.Precision != 0 {
		m.config.Convert.Precision = src.Convert.Precision
	}
	if src.Convert.MismatchPolicy != "" {
		m.config.Convert.MismatchPolicy = src.Convert.MismatchPolicy
	}
	if src.Convert.SaveDir != "" {
		m.config.Convert.SaveDir = src.Convert.SaveDir
	}
}

// loadEnv loads configuration from environment variables.
func (m *Manager) loadEnv() {
	if v := os.Getenv("RESFLOW_VERSION"); v != "" {
		m.config.Report.DefaultVersion = v
	}
	if v := os.Getenv("RESFLOW_PROPERTY"); v != "" {
		m.config.Convert.Property = v
	}
	if v := os.Getenv("RESFLOW_PRECISION"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			m.config.Convert.Precision = p
		}
	}
	if v := os.Getenv("RESFLOW_SAVE_DIR"); v != "" {
		m.config.Convert.SaveDir = v
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Paths returns the config files that were loaded.
func (m *Manager) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to the user config file.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	dir := filepath.Join(home, ".resflow")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644)
}

// Global instance
var (
	globalManager *Manager
	globalOnce    sync.Once
)

// Global returns the global configuration manager.
func Global() *Manager {
	globalOnce.Do(func() {
		globalManager = NewManager()
		globalManager.Load()
	})
	return globalManager
}

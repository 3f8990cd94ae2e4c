package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/astroshed/starcapture/internal/logger"
	"gopkg.in/yaml.v3"
)

// Config holds all recorder settings
type Config struct {
	// Observer is the operator name recorded in session metadata
	Observer string `json:"observer" yaml:"observer"`

	// Telescope is the instrument name recorded in session metadata
	Telescope string `json:"telescope" yaml:"telescope"`

	// SaveDirectory is the destination for recordings; empty disables recording
	SaveDirectory string `json:"save_directory" yaml:"save_directory"`

	// SaveFormat selects the output writer ("ser" or "tiff")
	SaveFormat string `json:"save_format" yaml:"save_format"`

	// SaveInfoFile enables the metadata sidecar next to each recording
	SaveInfoFile bool `json:"save_info_file" yaml:"save_info_file"`

	// FramesLimit stops a recording after this many frames; 0 = unbounded
	FramesLimit uint64 `json:"frames_limit" yaml:"frames_limit"`

	// MemoryBudgetMB bounds the in-flight frame queue, in megabytes
	MemoryBudgetMB int64 `json:"memory_budget_mb" yaml:"memory_budget_mb"`

	ServerPort int    `json:"server_port" yaml:"server_port"`
	LogLevel   string `json:"log_level" yaml:"log_level"`
}

// MemoryBudget returns the queue memory budget in bytes
func (c *Config) MemoryBudget() int64 {
	return c.MemoryBudgetMB * 1024 * 1024
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "starcapture")
	actualConfigPath := filepath.Join(configDir, "config.yaml")
	if configFile != "" {
		actualConfigPath = configFile
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, using defaults")
			m.config = m.getDefaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Str("save_format", m.config.SaveFormat).
		Msg("Config loaded")

	return m, nil
}

// getDefaults returns default configuration
func (m *Manager) getDefaults() *Config {
	return &Config{
		SaveFormat:     "ser",
		SaveInfoFile:   true,
		FramesLimit:    0,
		MemoryBudgetMB: 512,
		ServerPort:     8080,
		LogLevel:       "info",
	}
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.SaveFormat == "" {
		cfg.SaveFormat = "ser"
	}
	if cfg.MemoryBudgetMB <= 0 {
		cfg.MemoryBudgetMB = 512
	}
	if cfg.ServerPort == 0 {
		cfg.ServerPort = 8080
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return m.getDefaults()
	}
	cfg := *m.config
	return &cfg
}

// Update replaces the entire configuration and persists it
func (m *Manager) Update(cfg *Config) error {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = m.getDefaults()
	}

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return err
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// Override mutates the in-memory configuration without persisting it.
// Used for one-off CLI flag overrides.
func (m *Manager) Override(fn func(*Config)) {
	m.mu.Lock()
	fn(m.config)
	m.mu.Unlock()
}

// GetConfigPath returns the path of the loaded config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// SetObserver updates the observer name
func (m *Manager) SetObserver(name string) error {
	m.mu.Lock()
	m.config.Observer = name
	m.mu.Unlock()
	return m.Save()
}

// SetTelescope updates the telescope name
func (m *Manager) SetTelescope(name string) error {
	m.mu.Lock()
	m.config.Telescope = name
	m.mu.Unlock()
	return m.Save()
}

// SetPort updates the API server port
func (m *Manager) SetPort(port int) {
	m.mu.Lock()
	m.config.ServerPort = port
	m.mu.Unlock()
}

// SetLogLevel updates the log level
func (m *Manager) SetLogLevel(level string) {
	m.mu.Lock()
	m.config.LogLevel = level
	m.mu.Unlock()
}

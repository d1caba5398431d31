package config

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dmi-s/rongame/game/engine"
	"github.com/dmi-s/rongame/game/service"
	"github.com/dmi-s/rongame/logger"
)

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = service.ErrInvalidConfig
)

// DefaultLevel is the level served when no other default is set
const DefaultLevel = "warehouse"

//go:embed levels/*.json levels/*.yaml
var embeddedLevels embed.FS

var levelExtensions = []string{".json", ".yaml", ".yml"}

// Manager handles level loading and caching. Files in the level directory
// take precedence over the embedded levels of the same name.
type Manager struct {
	configDir     string
	defaultName   string
	defaultConfig *engine.GameConfig
	configs       map[string]*engine.GameConfig
	mu            sync.RWMutex
}

// NewManager creates a new level manager. configDir may be empty or missing,
// in which case only the embedded levels are served.
func NewManager(configDir string) (*Manager, error) {
	if configDir != "" {
		if _, err := os.Stat(configDir); os.IsNotExist(err) {
			logger.Log.Warnf("level directory %s does not exist, serving embedded levels only", configDir)
		}
	}

	m := &Manager{
		configDir:   configDir,
		defaultName: DefaultLevel,
		configs:     make(map[string]*engine.GameConfig),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// Dir returns the level directory, possibly empty
func (m *Manager) Dir() string {
	return m.configDir
}

// configID strips directories and level extensions from a file name
func configID(name string) string {
	base := filepath.Base(name)
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range levelExtensions {
		if ext == e {
			return strings.TrimSuffix(base, filepath.Ext(base))
		}
	}
	return base
}

func isLevelFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range levelExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ParseLevel decodes a level from JSON or YAML, chosen by the file extension
func ParseLevel(filename string, data []byte) (*engine.GameConfig, error) {
	var config engine.GameConfig
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	return &config, nil
}

// readLevel finds the raw level data on disk first, then in the embedded set
func (m *Manager) readLevel(id string) (string, []byte, bool, error) {
	if m.configDir != "" {
		for _, ext := range levelExtensions {
			path := filepath.Join(m.configDir, id+ext)
			data, err := os.ReadFile(path)
			if err == nil {
				return path, data, false, nil
			}
			if !os.IsNotExist(err) {
				return "", nil, false, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	for _, ext := range levelExtensions {
		path := "levels/" + id + ext
		data, err := embeddedLevels.ReadFile(path)
		if err == nil {
			return path, data, true, nil
		}
	}
	return "", nil, false, ErrConfigNotFound
}

// LoadConfig loads a level by ID; a file extension is ignored
func (m *Manager) LoadConfig(name string) (*engine.GameConfig, error) {
	id := configID(name)

	m.mu.RLock()
	// Check cache first
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	path, data, _, err := m.readLevel(id)
	if err != nil {
		return nil, err
	}

	config, err := ParseLevel(path, data)
	if err != nil {
		return nil, err
	}

	if err := engine.ValidateGameConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another loader may have won the race
	if cached, exists := m.configs[id]; exists {
		return cached, nil
	}
	m.configs[id] = config
	return config, nil
}

// levelFiles lists level file names by config ID, disk entries overriding embedded ones
func (m *Manager) levelFiles() (map[string]string, map[string]bool, error) {
	files := make(map[string]string)
	embedded := make(map[string]bool)

	entries, err := fs.ReadDir(embeddedLevels, "levels")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read embedded levels: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isLevelFile(entry.Name()) {
			continue
		}
		id := configID(entry.Name())
		files[id] = entry.Name()
		embedded[id] = true
	}

	if m.configDir == "" {
		return files, embedded, nil
	}
	entries, err = os.ReadDir(m.configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return files, embedded, nil
		}
		return nil, nil, fmt.Errorf("failed to read config directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isLevelFile(entry.Name()) {
			continue
		}
		id := configID(entry.Name())
		files[id] = entry.Name()
		embedded[id] = false
	}
	return files, embedded, nil
}

// ListConfigs returns information about all available levels, sorted by ID
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	files, embedded, err := m.levelFiles()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(files))
	for id := range files {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	configs := make([]*service.ConfigInfo, 0, len(ids))
	for _, id := range ids {
		config, err := m.LoadConfig(id)
		if err != nil {
			logger.Log.WithError(err).Warnf("skipping level %s", files[id])
			continue
		}

		configs = append(configs, &service.ConfigInfo{
			Filename:    files[id],
			ConfigID:    id, // This is the identifier to use for session creation
			Name:        config.Name,
			Description: config.Description,
			Width:       config.Width,
			Height:      config.Height,
			Robots:      len(config.Robots),
			Embedded:    embedded[id],
		})
	}

	return configs, nil
}

// GetDefault returns the default level
func (m *Manager) GetDefault() *engine.GameConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default level by ID
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultName = configID(name)
	m.defaultConfig = config
	return nil
}

// RefreshCache drops every cached level and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.GameConfig)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// invalidate drops one cached level, reloading it when it is the default
func (m *Manager) invalidate(id string) {
	m.mu.Lock()
	delete(m.configs, id)
	isDefault := id == m.defaultName
	m.mu.Unlock()

	if isDefault {
		if err := m.loadDefaultConfig(); err != nil {
			logger.Log.WithError(err).Warn("failed to reload default level")
		}
	}
}

// loadDefaultConfig resolves the default level: the configured name, then
// the first listed level, then the built-in warehouse.
func (m *Manager) loadDefaultConfig() error {
	m.mu.RLock()
	name := m.defaultName
	m.mu.RUnlock()

	config, err := m.LoadConfig(name)
	if err != nil {
		logger.Log.WithError(err).Warnf("default level %s unavailable", name)

		configs, listErr := m.ListConfigs()
		if listErr == nil && len(configs) > 0 {
			config, err = m.LoadConfig(configs[0].ConfigID)
		}
		if err != nil {
			config = engine.DefaultConfig()
		}
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
	return nil
}

// SaveConfig writes a level as JSON into the level directory
func (m *Manager) SaveConfig(name string, config *engine.GameConfig) error {
	if m.configDir == "" {
		return fmt.Errorf("no level directory configured")
	}

	// Validate config before saving
	if err := engine.ValidateGameConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	id := configID(name)
	if id == "" || id == "." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: bad level name %q", ErrInvalidConfig, name)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(m.configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configPath := filepath.Join(m.configDir, id+".json")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	m.configs[id] = config
	m.mu.Unlock()

	logger.Log.WithField("level", id).Info("level saved")
	return nil
}

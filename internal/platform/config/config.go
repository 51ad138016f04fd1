package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// StateDir is created under the data directory on first run.
const StateDir = ".protocol"

const defaultSettingsYAML = `# protocol settings
version: 1

# Language for new sessions: en | ko
language: en

# Default wake-up time used by "start" when --wake is omitted (HH:MM, 24h).
wake_time: "07:00"

# Set to false to run without interrupt notifications.
notifications: true

# Optional path to a question catalog document overriding the built-in one.
catalog_path: ""

# trace | debug | info | warn | error
log_level: info
`

// Settings models .protocol/config.yaml.
type Settings struct {
	Version       int    `yaml:"version"`
	Language      string `yaml:"language"`
	WakeTime      string `yaml:"wake_time"`
	Notifications bool   `yaml:"notifications"`
	CatalogPath   string `yaml:"catalog_path"`
	LogLevel      string `yaml:"log_level"`
}

type Config struct {
	DataDir      string
	StatePath    string
	DBPath       string
	SettingsPath string
	LogDir       string
	ExportDir    string
	Settings     Settings
}

func New(dataDir string) (Config, error) {
	if strings.TrimSpace(dataDir) == "" {
		return Config{}, fmt.Errorf("data path is required")
	}
	state := filepath.Join(dataDir, StateDir)
	cfg := Config{
		DataDir:      dataDir,
		StatePath:    state,
		DBPath:       filepath.Join(state, "protocol.db"),
		SettingsPath: filepath.Join(state, "config.yaml"),
		LogDir:       filepath.Join(state, "logs"),
		ExportDir:    filepath.Join(dataDir, "journal"),
	}
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return Config{}, fmt.Errorf("create state dir: %w", err)
	}
	if err := ensureSettings(cfg.SettingsPath); err != nil {
		return Config{}, err
	}
	settings, err := LoadSettings(cfg.SettingsPath)
	if err != nil {
		return Config{}, err
	}
	if settings.CatalogPath != "" && !filepath.IsAbs(settings.CatalogPath) {
		settings.CatalogPath = filepath.Clean(filepath.Join(dataDir, settings.CatalogPath))
	}
	cfg.Settings = settings
	return cfg, nil
}

func ensureSettings(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat settings: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultSettingsYAML), 0o644); err != nil {
		return fmt.Errorf("write default settings: %w", err)
	}
	return nil
}

// LoadSettings reads a settings document; absent keys keep their defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	b, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(b, &settings); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	settings.Language = strings.ToLower(strings.TrimSpace(settings.Language))
	if settings.Language != "en" && settings.Language != "ko" {
		return Settings{}, fmt.Errorf("unsupported language %q", settings.Language)
	}
	if _, _, err := ParseClock(settings.WakeTime); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func DefaultSettings() Settings {
	return Settings{
		Version:       1,
		Language:      "en",
		WakeTime:      "07:00",
		Notifications: true,
		LogLevel:      "info",
	}
}

// ParseClock parses an HH:MM wall-clock string.
func ParseClock(raw string) (int, int, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(strings.TrimSpace(raw), "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("invalid wake time %q: %w", raw, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid wake time %q", raw)
	}
	return hour, minute, nil
}

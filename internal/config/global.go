package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/rolo/config.yml.
type GlobalConfig struct {
	WorkspacePath string `yaml:"workspace_path,omitempty"`
	LogLevel      string `yaml:"log_level,omitempty"`
	LogFile       string `yaml:"log_file,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "rolo"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"

	EnvWorkspace = "ROLO_WORKSPACE"
	EnvLogLevel  = "ROLO_LOG_LEVEL"
	EnvLogFile   = "ROLO_LOG_FILE"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/rolo/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadEnv loads a .env file from the current directory into the process
// environment. Variables already set are left alone; a missing file is fine.
func LoadEnv() {
	_ = godotenv.Load()
}

// LoadGlobalConfig loads the global configuration file and applies
// ROLO_* environment overrides.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	var cfg GlobalConfig
	if path := GlobalConfigPath(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing global config: %w", err)
			}
		}
	}

	cfg.WorkspacePath = GetConfigValue(EnvWorkspace, cfg.WorkspacePath)
	cfg.LogLevel = GetConfigValue(EnvLogLevel, cfg.LogLevel)
	cfg.LogFile = GetConfigValue(EnvLogFile, cfg.LogFile)

	if cfg.WorkspacePath != "" {
		cfg.WorkspacePath = ExpandPath(cfg.WorkspacePath)
	}
	if cfg.LogFile != "" {
		cfg.LogFile = ExpandPath(cfg.LogFile)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// GetConfigValue returns the environment variable if set, otherwise the config value.
func GetConfigValue(envKey, configValue string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	return configValue
}

// ErrWorkspaceNotConfigured is returned when no workspace is found and
// workspace_path is not set.
var ErrWorkspaceNotConfigured = errors.New("workspace_path not configured")

// ErrWorkspaceNotExist is returned when the configured workspace_path has no workspace.
var ErrWorkspaceNotExist = errors.New("workspace_path is not a rolo workspace")

// ResolveWorkspace finds the workspace root: walking up from start first,
// then falling back to the configured workspace_path.
func ResolveWorkspace(start string) (string, error) {
	if root, err := FindWorkspace(start); err == nil {
		return root, nil
	}

	cfg, err := LoadGlobalConfig()
	if err != nil {
		return "", err
	}
	if cfg.WorkspacePath == "" {
		return "", ErrWorkspaceNotConfigured
	}
	if !IsWorkspace(cfg.WorkspacePath) {
		return "", fmt.Errorf("%w: %s", ErrWorkspaceNotExist, cfg.WorkspacePath)
	}
	return cfg.WorkspacePath, nil
}

// HelpfulConfigMessage returns a helpful message when no workspace is found.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No rolo workspace found.

Run 'rolo init' to create one here, or create %s to set a default:
  mkdir -p %s
  echo 'workspace_path: /path/to/your/contacts' > %s

The %s environment variable overrides the file.`,
		configPath,
		filepath.Dir(configPath),
		configPath,
		EnvWorkspace)
}

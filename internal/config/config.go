package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// DefaultDeckName is used when an input file carries no deckName
const DefaultDeckName = "OneNote Converted Deck"

// Config represents the application configuration
type Config struct {
	DeckName     string `toml:"deck_name" validate:"required"`
	LogLevel     string `toml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat    string `toml:"log_format" validate:"oneof=auto console json"`
	StableDeckID bool   `toml:"stable_deck_id"`
}

// Default returns the configuration used when no config file exists
func Default() *Config {
	return &Config{
		DeckName:  DefaultDeckName,
		LogLevel:  "info",
		LogFormat: "auto",
	}
}

// Validate checks field values against their allowed sets
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config value for %s: %q", fe.Field(), fe.Value())
		}
		return err
	}
	return nil
}

// GetXDGDataHome returns XDG_DATA_HOME or default path
func GetXDGDataHome() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return xdgData
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".local", "share")
}

// GetXDGConfigHome returns XDG_CONFIG_HOME or default path
func GetXDGConfigHome() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return xdgConfig
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config")
}

// GetLibraryPath returns the directory generated packages are collected in
func GetLibraryPath() string {
	return filepath.Join(GetXDGDataHome(), "autoanki", "decks")
}

// GetConfigFilePath returns the path to the config file
func GetConfigFilePath() string {
	return filepath.Join(GetXDGConfigHome(), "autoanki", "config.toml")
}

// LoadConfig loads the config file, falling back to defaults when it does
// not exist. Keys missing from the file keep their default values.
func LoadConfig() (*Config, error) {
	config := Default()

	configPath := GetConfigFilePath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return nil, fmt.Errorf("error decoding config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// InitConfig writes the default config file unless one already exists and
// returns the effective configuration.
func InitConfig() (*Config, error) {
	configPath := GetConfigFilePath()
	if _, err := os.Stat(configPath); err == nil {
		return LoadConfig()
	}

	// Ensure the config directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("error creating config directory: %w", err)
	}

	config := Default()
	if err := writeConfig(configPath, config); err != nil {
		return nil, err
	}
	return config, nil
}

func writeConfig(configPath string, config *Config) error {
	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}

	return nil
}

// file: internal/config/persistence.go
// version: 2.0.0
// guid: 9c8d7e6f-5a4b-3c2d-1e0f-9a8b7c6d5e4f

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of the data directory config file.
type fileConfig struct {
	LibraryDir           string   `yaml:"library_dir,omitempty"`
	InboxDir             string   `yaml:"inbox_dir,omitempty"`
	OrganizationStrategy string   `yaml:"organization_strategy,omitempty"`
	OracleEnabled        bool     `yaml:"oracle_enabled"`
	OracleAPIKeys        []string `yaml:"oracle_api_keys,omitempty"`
	OracleModel          string   `yaml:"oracle_model,omitempty"`
	OracleBaseURL        string   `yaml:"oracle_base_url,omitempty"`
	ArcVocabulary        []string `yaml:"arc_vocabulary,omitempty"`
	SpinoffVocabulary    []string `yaml:"spinoff_vocabulary,omitempty"`
	PolicyFile           string   `yaml:"policy_file,omitempty"`
	LogLevel             string   `yaml:"log_level,omitempty"`
}

// ConfigFilePath returns the path to the YAML config file next to the database.
func ConfigFilePath() string {
	if AppConfig.DatabasePath == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(AppConfig.DatabasePath), "config.yaml")
}

// LoadConfigFromFile fills settings that are still empty from the config
// file next to the database. Flags, env and the main config file win.
func LoadConfigFromFile() error {
	path := ConfigFilePath()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to parse config file")
		return nil
	}

	applied := 0
	fill := func(dst *string, val string) {
		if *dst == "" && val != "" {
			*dst = val
			applied++
		}
	}
	fill(&AppConfig.LibraryDir, fc.LibraryDir)
	fill(&AppConfig.InboxDir, fc.InboxDir)
	fill(&AppConfig.OrganizationStrategy, fc.OrganizationStrategy)
	fill(&AppConfig.OracleModel, fc.OracleModel)
	fill(&AppConfig.OracleBaseURL, fc.OracleBaseURL)
	fill(&AppConfig.PolicyFile, fc.PolicyFile)

	if len(AppConfig.OracleAPIKeys) == 0 && len(fc.OracleAPIKeys) > 0 {
		AppConfig.OracleAPIKeys = append([]string(nil), fc.OracleAPIKeys...)
		AppConfig.OracleEnabled = AppConfig.OracleEnabled || fc.OracleEnabled
		applied++
	}

	if applied > 0 {
		log.Info().Int("applied", applied).Str("path", path).Msg("loaded settings from config file")
	}
	return nil
}

// SaveConfigToFile writes the persistent settings next to the database.
// API keys are stored in plaintext, so the file is created 0600.
func SaveConfigToFile() (string, error) {
	path := ConfigFilePath()
	if path == "" {
		return "", fmt.Errorf("cannot determine config file path")
	}

	fc := fileConfig{
		LibraryDir:           AppConfig.LibraryDir,
		InboxDir:             AppConfig.InboxDir,
		OrganizationStrategy: AppConfig.OrganizationStrategy,
		OracleEnabled:        AppConfig.OracleEnabled,
		OracleAPIKeys:        AppConfig.OracleAPIKeys,
		OracleModel:          AppConfig.OracleModel,
		OracleBaseURL:        AppConfig.OracleBaseURL,
		ArcVocabulary:        AppConfig.ArcVocabulary,
		SpinoffVocabulary:    AppConfig.SpinoffVocabulary,
		PolicyFile:           AppConfig.PolicyFile,
		LogLevel:             AppConfig.LogLevel,
	}

	data, err := yaml.Marshal(fc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	log.Info().Str("path", path).Msg("configuration saved")
	return path, nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"martaudit/internal/common"
	"martaudit/pkg/models"
)

// Defaults applied when the config file leaves a setting unset
const (
	DefaultWarehousePort     = 5439
	DefaultSSLMode           = "require"
	DefaultLLMModel          = "gpt-4o-mini"
	DefaultMaxDefectExamples = 5
	DefaultSampleLimit       = 10
	DefaultQueryTimeoutSecs  = 300
	DefaultOutputDir         = "data_quality_reports"
)

func GetConfigPath() string {
	// Check for environment variable first
	if configPath := os.Getenv("MARTAUDIT_CONFIG"); configPath != "" {
		return filepath.Dir(configPath)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".martaudit")
}

func GetConfigFile() string {
	// Check for environment variable first
	if configFile := os.Getenv("MARTAUDIT_CONFIG"); configFile != "" {
		// Validate the path to prevent directory traversal
		cleaned, err := common.CleanPath(configFile)
		if err != nil {
			// Fall back to default if invalid
			return filepath.Join(GetConfigPath(), "config.yaml")
		}
		return cleaned
	}
	return filepath.Join(GetConfigPath(), "config.yaml")
}

func Load() (*models.Config, error) {
	return LoadFile(GetConfigFile())
}

// LoadFile loads configuration from an explicit path, applying defaults
// and credential overrides from the environment
func LoadFile(path string) (*models.Config, error) {
	cleanedPath, err := common.CleanPath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	config := &models.Config{}

	if _, err := os.Stat(cleanedPath); err == nil {
		data, err := os.ReadFile(cleanedPath) // #nosec G304 - path is validated
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyDefaults(config)
	applyEnvOverrides(config)

	return config, nil
}

func Save(config *models.Config) error {
	configPath := GetConfigPath()
	if err := os.MkdirAll(configPath, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := GetConfigFile()

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func Exists() bool {
	_, err := os.Stat(GetConfigFile())
	return err == nil
}

func applyDefaults(config *models.Config) {
	if config.Warehouse.Port == 0 {
		config.Warehouse.Port = DefaultWarehousePort
	}
	if config.Warehouse.SSLMode == "" {
		config.Warehouse.SSLMode = DefaultSSLMode
	}
	if config.LLM.Model == "" {
		config.LLM.Model = DefaultLLMModel
	}
	if config.Audit.MaxDefectExamples == 0 {
		config.Audit.MaxDefectExamples = DefaultMaxDefectExamples
	}
	if config.Audit.SampleLimit == 0 {
		config.Audit.SampleLimit = DefaultSampleLimit
	}
	if config.Audit.QueryTimeoutSecs == 0 {
		config.Audit.QueryTimeoutSecs = DefaultQueryTimeoutSecs
	}
	if config.Audit.OutputDir == "" {
		config.Audit.OutputDir = DefaultOutputDir
	}
}

// applyEnvOverrides lets credentials come from the environment so they
// never have to live in the config file
func applyEnvOverrides(config *models.Config) {
	if host := os.Getenv("WAREHOUSE_HOST"); host != "" {
		config.Warehouse.Host = host
	}
	if port := os.Getenv("WAREHOUSE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Warehouse.Port = p
		}
	}
	if database := os.Getenv("WAREHOUSE_DATABASE"); database != "" {
		config.Warehouse.Database = database
	}
	if user := os.Getenv("WAREHOUSE_USER"); user != "" {
		config.Warehouse.User = user
	}
	if password := os.Getenv("WAREHOUSE_PASSWORD"); password != "" {
		config.Warehouse.Password = password
	}
	if schema := os.Getenv("WAREHOUSE_SCHEMA"); schema != "" {
		config.Warehouse.Schema = schema
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		config.LLM.Model = model
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const configYAML = `warehouse:
  host: warehouse.example.com
  database: dev
  user: auditor
  password: file-secret
  schema: waffles
llm:
  model: gpt-4o
dbt:
  models_path: /srv/dbt/models/marts
  mart_models:
    - customers
    - orders
audit:
  output_dir: /srv/reports
  max_defect_examples: 3
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, configYAML)

	cfg, err := LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, "warehouse.example.com", cfg.Warehouse.Host)
	assert.Equal(t, "waffles", cfg.Warehouse.Schema)
	assert.Equal(t, []string{"customers", "orders"}, cfg.DBT.MartModels)
	assert.Equal(t, "/srv/reports", cfg.Audit.OutputDir)
	assert.Equal(t, 3, cfg.Audit.MaxDefectExamples)
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	path := writeConfig(t, configYAML)

	cfg, err := LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, DefaultWarehousePort, cfg.Warehouse.Port)
	assert.Equal(t, DefaultSSLMode, cfg.Warehouse.SSLMode)
	assert.Equal(t, DefaultSampleLimit, cfg.Audit.SampleLimit)
	assert.Equal(t, DefaultQueryTimeoutSecs, cfg.Audit.QueryTimeoutSecs)
	// Explicit values win over defaults
	assert.Equal(t, 3, cfg.Audit.MaxDefectExamples)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
}

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))

	require.NoError(t, err)
	assert.Equal(t, DefaultWarehousePort, cfg.Warehouse.Port)
	assert.Equal(t, DefaultLLMModel, cfg.LLM.Model)
	assert.Equal(t, DefaultOutputDir, cfg.Audit.OutputDir)
	assert.Equal(t, DefaultMaxDefectExamples, cfg.Audit.MaxDefectExamples)
}

func TestLoadFileInvalidYAML(t *testing.T) {
	path := writeConfig(t, "warehouse: [not a mapping")

	_, err := LoadFile(path)

	assert.Error(t, err)
}

func TestEnvOverridesCredentials(t *testing.T) {
	path := writeConfig(t, configYAML)

	t.Setenv("WAREHOUSE_PASSWORD", "env-secret")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("WAREHOUSE_PORT", "5440")

	cfg, err := LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Warehouse.Password)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 5440, cfg.Warehouse.Port)
	// Non-overridden values stay from the file
	assert.Equal(t, "auditor", cfg.Warehouse.User)
}

func TestEnvOverrideInvalidPortIgnored(t *testing.T) {
	path := writeConfig(t, configYAML)

	t.Setenv("WAREHOUSE_PORT", "not-a-port")

	cfg, err := LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, DefaultWarehousePort, cfg.Warehouse.Port)
}

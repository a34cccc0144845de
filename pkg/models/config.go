package models

// Config is the top-level martaudit configuration
type Config struct {
	Warehouse Warehouse `yaml:"warehouse"`
	LLM       LLM       `yaml:"llm"`
	DBT       DBT       `yaml:"dbt"`
	Audit     Audit     `yaml:"audit"`
}

// Warehouse holds warehouse connection settings
type Warehouse struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Schema   string `yaml:"schema"`
	SSLMode  string `yaml:"sslmode"`
}

// LLM holds settings for the check-generation endpoint
type LLM struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// DBT holds dbt project settings
type DBT struct {
	ModelsPath string   `yaml:"models_path"`
	MartModels []string `yaml:"mart_models"`
}

// Audit holds audit execution settings
type Audit struct {
	OutputDir         string `yaml:"output_dir"`
	MaxDefectExamples int    `yaml:"max_defect_examples"`
	SampleLimit       int    `yaml:"sample_limit"`
	QueryTimeoutSecs  int    `yaml:"query_timeout_seconds"`
	LogFile           string `yaml:"log_file"`
}

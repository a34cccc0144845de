// Package dbt reads dbt model files (SQL plus the optional YAML schema
// file) and turns them into the context the check generator needs:
// model SQL, ref() dependencies, config block settings, column
// descriptions, and any checks already declared in the schema file.
package dbt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"martaudit/internal/common"
	"martaudit/internal/logging"
	apperrors "martaudit/pkg/errors"
	"martaudit/pkg/models"
)

var (
	// {{ ref('model_name') }} or {{ ref("model_name") }}
	refPattern = regexp.MustCompile(`{{\s*ref\s*\(\s*['"]([^'"]+)['"]\s*\)\s*}}`)
	// {{ config(...) }}
	configPattern = regexp.MustCompile(`(?s){{\s*config\s*\((.*?)\)\s*}}`)
	// key='value' or key="value" inside a config block
	configKVPattern = regexp.MustCompile(`(\w+)\s*=\s*['"]([^'"]+)['"]`)
)

// Parser reads dbt model files from a models directory
type Parser struct {
	modelsPath string
	logger     *logging.Logger
}

// NewParser creates a parser rooted at the given models directory
func NewParser(modelsPath string, logger *logging.Logger) *Parser {
	return &Parser{
		modelsPath: modelsPath,
		logger:     logger.WithField("component", "dbt"),
	}
}

// schemaFile mirrors the dbt schema YAML layout we care about
type schemaFile struct {
	Models []schemaModel `yaml:"models"`
}

type schemaModel struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Tests       []interface{}  `yaml:"tests"`
	Columns     []schemaColumn `yaml:"columns"`
}

type schemaColumn struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Tests       []interface{} `yaml:"tests"`
}

// GetModelSQL reads the SQL file for a dbt model
func (p *Parser) GetModelSQL(modelName string) (string, error) {
	sqlPath, err := common.ValidatePath(filepath.Join(p.modelsPath, modelName+".sql"), p.modelsPath)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeModelInvalid, "Invalid model name").
			WithContext("model", modelName)
	}

	data, err := os.ReadFile(sqlPath) // #nosec G304 - path is validated
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.New(apperrors.ErrCodeModelNotFound,
				fmt.Sprintf("Model SQL file not found: %s", sqlPath)).
				WithContext("model", modelName).
				WithSuggestions(
					"Verify the model name matches a .sql file in the models directory",
					"Check the dbt.models_path configuration value",
				)
		}
		return "", apperrors.Wrap(err, apperrors.ErrCodeModelInvalid,
			fmt.Sprintf("Failed to read model SQL for %s", modelName))
	}

	return string(data), nil
}

// getModelSchema reads the YAML schema file for a dbt model. A missing
// schema file is not an error; models without one still get audited.
func (p *Parser) getModelSchema(modelName string) (*schemaFile, error) {
	yamlPath, err := common.ValidatePath(filepath.Join(p.modelsPath, modelName+".yml"), p.modelsPath)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeModelInvalid, "Invalid model name").
			WithContext("model", modelName)
	}

	data, err := os.ReadFile(yamlPath) // #nosec G304 - path is validated
	if err != nil {
		if os.IsNotExist(err) {
			p.logger.Warn("Model YAML file not found", map[string]interface{}{
				"model": modelName,
				"path":  yamlPath,
			})
			return nil, nil
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeModelInvalid,
			fmt.Sprintf("Failed to read model YAML for %s", modelName))
	}

	var schema schemaFile
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeModelInvalid,
			fmt.Sprintf("Failed to parse model YAML for %s", modelName))
	}

	return &schema, nil
}

// ExtractRefs returns the unique, sorted set of models referenced via
// the ref() macro in the given SQL
func ExtractRefs(sqlContent string) []string {
	seen := make(map[string]bool)
	var refs []string
	for _, match := range refPattern.FindAllStringSubmatch(sqlContent, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			refs = append(refs, match[1])
		}
	}
	sort.Strings(refs)
	return refs
}

// ExtractConfig parses the config() block into simple key/value settings
// (materialized, dist, sort, ...). Only quoted scalar values are kept.
func ExtractConfig(sqlContent string) map[string]string {
	config := make(map[string]string)

	match := configPattern.FindStringSubmatch(sqlContent)
	if match == nil {
		return config
	}

	for _, kv := range configKVPattern.FindAllStringSubmatch(match[1], -1) {
		config[kv[1]] = kv[2]
	}

	return config
}

func (s *schemaFile) findModel(modelName string) *schemaModel {
	if s == nil {
		return nil
	}
	for i := range s.Models {
		if s.Models[i].Name == modelName {
			return &s.Models[i]
		}
	}
	return nil
}

// columnDescriptions extracts column descriptions for the named model
func (s *schemaFile) columnDescriptions(modelName string) map[string]string {
	descriptions := make(map[string]string)
	model := s.findModel(modelName)
	if model == nil {
		return descriptions
	}
	for _, col := range model.Columns {
		if col.Name != "" {
			descriptions[col.Name] = col.Description
		}
	}
	return descriptions
}

// existingChecks extracts model-level and column-level checks already
// declared in the schema file
func (s *schemaFile) existingChecks(modelName string) []models.ExistingCheck {
	var checks []models.ExistingCheck
	model := s.findModel(modelName)
	if model == nil {
		return checks
	}
	for _, test := range model.Tests {
		checks = append(checks, models.ExistingCheck{Level: "model", Test: test})
	}
	for _, col := range model.Columns {
		for _, test := range col.Tests {
			checks = append(checks, models.ExistingCheck{Level: "column", Column: col.Name, Test: test})
		}
	}
	return checks
}

// ParseModel reads a dbt model and returns its full audit context
func (p *Parser) ParseModel(modelName string) (*models.ModelContext, error) {
	p.logger.Info("Parsing model", map[string]interface{}{"model": modelName})

	sqlContent, err := p.GetModelSQL(modelName)
	if err != nil {
		return nil, err
	}

	schema, err := p.getModelSchema(modelName)
	if err != nil {
		return nil, err
	}

	ctx := &models.ModelContext{
		ModelName:          modelName,
		SQLContent:         sqlContent,
		Config:             ExtractConfig(sqlContent),
		Dependencies:       ExtractRefs(sqlContent),
		ColumnDescriptions: make(map[string]string),
	}

	if schema != nil {
		if model := schema.findModel(modelName); model != nil {
			ctx.ModelDescription = model.Description
		}
		ctx.ColumnDescriptions = schema.columnDescriptions(modelName)
		ctx.ExistingChecks = schema.existingChecks(modelName)
	}

	return ctx, nil
}

// ListModels returns the sorted names of all SQL models in the models
// directory
func (p *Parser) ListModels() ([]string, error) {
	entries, err := os.ReadDir(p.modelsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.New(apperrors.ErrCodeModelsPathMissing,
				fmt.Sprintf("Models path not found: %s", p.modelsPath)).
				WithSuggestions("Set dbt.models_path to your dbt marts directory")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeModelsPathMissing, "Failed to list models directory")
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, strings.TrimSuffix(entry.Name(), ".sql"))
		}
	}

	sort.Strings(names)
	return names, nil
}

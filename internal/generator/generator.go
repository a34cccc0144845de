// Package generator turns a model's context, schema, statistics, and
// sample rows into a validated list of data-quality checks by asking a
// chat-completion model for SQL check queries.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"martaudit/internal/logging"
	apperrors "martaudit/pkg/errors"
	"martaudit/pkg/models"
)

// promptSampleRows caps how many sample rows are embedded in the prompt
const promptSampleRows = 5

// categoryHints steer the model toward the intended scope of each
// category. The referential-integrity hint names the model's upstream
// dependencies, so it is rendered per prompt.
var categoryHints = map[models.CheckCategory]string{
	models.CategoryUniqueness:           "primary keys, composite keys",
	models.CategoryNullability:          "required fields",
	models.CategoryReferentialIntegrity: "foreign keys to upstream models like %s",
	models.CategoryDateValidity:         "no future dates, valid ranges, logical order",
	models.CategoryBusinessLogic:        "calculated fields match components, aggregations match details",
	models.CategoryValueRange:           "no negatives where inappropriate, categorical values are valid",
	models.CategoryDataConsistency:      "related fields are logically consistent",
}

// Generator produces validated check specs for one model at a time
type Generator struct {
	client Client
	schema string
	logger *logging.Logger
}

// NewGenerator creates a generator using the given completion client.
// schema is the warehouse schema the generated queries must reference.
func NewGenerator(client Client, schema string, logger *logging.Logger) *Generator {
	return &Generator{
		client: client,
		schema: schema,
		logger: logger.WithField("component", "generator"),
	}
}

// GenerateChecks asks the model for 10-15 checks and returns the ones
// that pass structural validation. The remote call is made exactly once;
// a failed call or an unusable response fails the whole model's audit.
func (g *Generator) GenerateChecks(
	ctx context.Context,
	mctx *models.ModelContext,
	columns []models.ColumnMetadata,
	stats *models.TableStats,
	sample []models.Row,
) ([]models.CheckSpec, error) {
	prompt := g.buildPrompt(mctx, columns, stats, sample)

	g.logger.Info("Generating checks", map[string]interface{}{"model": mctx.ModelName})

	response, err := g.client.Complete(ctx, prompt)
	if err != nil {
		return nil, apperrors.GenerationError(
			fmt.Sprintf("Check generation failed for %s", mctx.ModelName), err).
			WithContext("model", mctx.ModelName)
	}

	checks, err := g.parseResponse(response)
	if err != nil {
		return nil, err
	}

	g.logger.Info("Generated checks", map[string]interface{}{
		"model": mctx.ModelName,
		"count": len(checks),
	})

	return checks, nil
}

func (g *Generator) buildPrompt(
	mctx *models.ModelContext,
	columns []models.ColumnMetadata,
	stats *models.TableStats,
	sample []models.Row,
) string {
	var columnInfo []string
	for _, col := range columns {
		nullable := "NOT NULL"
		if col.Nullable {
			nullable = "NULL"
		}

		line := fmt.Sprintf("  - %s (%s, %s)", col.Name, col.DataType, nullable)
		if desc := mctx.ColumnDescriptions[col.Name]; desc != "" {
			line += " - " + desc
		}
		line += fmt.Sprintf("\n    Stats: %d nulls, %d distinct values",
			stats.NullCounts[col.Name], stats.DistinctCounts[col.Name])

		columnInfo = append(columnInfo, line)
	}

	sampleJSON := formatSample(sample, promptSampleRows)

	dependencies := "None"
	if len(mctx.Dependencies) > 0 {
		dependencies = strings.Join(mctx.Dependencies, ", ")
	}

	description := mctx.ModelDescription
	if description == "" {
		description = "No description provided"
	}

	var categories []string
	for i, category := range models.Categories {
		hint := categoryHints[category]
		if category == models.CategoryReferentialIntegrity {
			hint = fmt.Sprintf(hint, dependencies)
		}
		categories = append(categories, fmt.Sprintf("%d. %s (%s)", i+1, category, hint))
	}

	var b strings.Builder
	b.WriteString("You are a data quality expert reviewing a dbt mart model for a UAT audit. ")
	b.WriteString("Your goal is to generate comprehensive SQL test queries that will identify data quality issues a business SME would care about.\n\n")
	b.WriteString("CONTEXT:\n\n")
	fmt.Fprintf(&b, "Model Name: %s\n", mctx.ModelName)
	fmt.Fprintf(&b, "Model Description: %s\n\n", description)
	fmt.Fprintf(&b, "Model SQL:\n```sql\n%s\n```\n\n", mctx.SQLContent)
	fmt.Fprintf(&b, "Schema:\n%s\n\n", strings.Join(columnInfo, "\n"))
	fmt.Fprintf(&b, "Sample Data (first %d rows):\n%s\n\n", promptSampleRows, sampleJSON)
	fmt.Fprintf(&b, "Statistics:\n- Total rows: %d\n\n", stats.RowCount)
	fmt.Fprintf(&b, "Dependencies:\nThis model references: %s\n\n", dependencies)
	b.WriteString("TASK:\n\n")
	fmt.Fprintf(&b, "Generate 10-15 data quality test queries covering these categories:\n%s\n\n",
		strings.Join(categories, "\n"))
	b.WriteString("For each test, return JSON in this format:\n")
	b.WriteString("{\n")
	b.WriteString("  \"test_name\": \"unique_snake_case_name\",\n")
	b.WriteString("  \"test_category\": \"Uniqueness|Nullability|Referential Integrity|Date Validity|Business Logic|Value Range|Data Consistency\",\n")
	b.WriteString("  \"test_description\": \"Clear human-readable description of what this test validates\",\n")
	fmt.Fprintf(&b, "  \"test_query\": \"SQL query that returns rows WHERE defects exist (empty result = pass). Use schema '%s' and LIMIT 5 for performance.\",\n", g.schema)
	b.WriteString("  \"severity\": \"CRITICAL|HIGH|MEDIUM|LOW\"\n")
	b.WriteString("}\n\n")
	b.WriteString("IMPORTANT QUERY GUIDELINES:\n")
	b.WriteString("- Queries should return ONLY defective records (so empty result = test passes)\n")
	b.WriteString("- Include key identifiers in SELECT clause for defect examples\n")
	b.WriteString("- Use LIMIT 5 to prevent huge result sets\n")
	b.WriteString("- Queries should be read-only (SELECT only)\n")
	b.WriteString("- Test queries should be self-contained (no temp tables)\n")
	fmt.Fprintf(&b, "- Use the schema '%s' when referencing tables (e.g., %s.%s)\n", g.schema, g.schema, mctx.ModelName)
	fmt.Fprintf(&b, "- For referential integrity tests with upstream models, reference them as %s.model_name\n\n", g.schema)
	b.WriteString("Return ONLY a JSON array of test objects, no other text. Start your response with [ and end with ].\n")

	return b.String()
}

// formatSample renders up to limit sample rows as indented JSON
func formatSample(sample []models.Row, limit int) string {
	if len(sample) > limit {
		sample = sample[:limit]
	}

	// Rows render as plain maps; key order inside a row does not matter
	// to the model the way it does for defect examples.
	maps := make([]map[string]interface{}, 0, len(sample))
	for _, row := range sample {
		maps = append(maps, row.Values)
	}

	data, err := json.MarshalIndent(maps, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

// parseResponse extracts the JSON array from the raw response and keeps
// only structurally complete checks. The array is located by the first
// '[' and last ']' so incidental prose around it is tolerated.
func (g *Generator) parseResponse(response string) ([]models.CheckSpec, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")

	if start == -1 || end == -1 || end < start {
		return nil, apperrors.New(apperrors.ErrCodeGenerationFailed,
			"No JSON array found in generation response").
			WithContext("response_length", len(response))
	}

	payload := response[start : end+1]

	var candidates []models.CheckSpec
	if err := json.Unmarshal([]byte(payload), &candidates); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMalformedResponse,
			"Generation response is not valid JSON").
			WithContext("payload_length", len(payload))
	}

	validated := make([]models.CheckSpec, 0, len(candidates))
	for _, candidate := range candidates {
		if err := candidate.Validate(); err != nil {
			g.logger.Warn("Skipping invalid check definition", map[string]interface{}{
				"test_name": candidate.Name,
				"reason":    err.Error(),
			})
			continue
		}
		validated = append(validated, candidate)
	}

	return validated, nil
}

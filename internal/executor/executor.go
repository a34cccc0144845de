// Package executor runs generated checks against the warehouse and
// classifies each outcome. A check whose query fails never aborts the
// batch; it becomes an ERROR result and execution moves on.
package executor

import (
	"fmt"
	"strings"
	"time"

	"martaudit/internal/logging"
	"martaudit/pkg/models"
)

// timestampFormat is the capture-time rendering, UTC, second precision
const timestampFormat = "2006-01-02 15:04:05 UTC"

// QueryRunner is the warehouse capability the executor needs
type QueryRunner interface {
	ExecuteQuery(query string) ([]models.Row, error)
	FormatDefectExamples(rows []models.Row, limit int) string
}

// failureNotes maps check categories to FAIL note templates. Unknown
// categories fall through to a generic message.
var failureNotes = map[models.CheckCategory]string{
	models.CategoryUniqueness:           "Found %d duplicate record(s) - investigate data load process",
	models.CategoryNullability:          "Found %d record(s) with unexpected NULL values",
	models.CategoryReferentialIntegrity: "Found %d record(s) with referential integrity issues",
	models.CategoryDateValidity:         "Found %d record(s) with invalid dates",
	models.CategoryBusinessLogic:        "Found %d record(s) with business logic violations",
	models.CategoryValueRange:           "Found %d record(s) with values outside expected range",
	models.CategoryDataConsistency:      "Found %d record(s) with data consistency issues",
}

// Executor executes data-quality checks and captures results
type Executor struct {
	warehouse   QueryRunner
	maxExamples int
	logger      *logging.Logger
}

// NewExecutor creates an executor. maxExamples caps how many defect rows
// are rendered per failing check.
func NewExecutor(warehouse QueryRunner, maxExamples int, logger *logging.Logger) *Executor {
	if maxExamples <= 0 {
		maxExamples = 5
	}
	return &Executor{
		warehouse:   warehouse,
		maxExamples: maxExamples,
		logger:      logger.WithField("component", "executor"),
	}
}

// ExecuteChecks runs every check in order and returns one result per
// check, same order, one to one.
func (e *Executor) ExecuteChecks(checks []models.CheckSpec, modelName string) []models.CheckResult {
	e.logger.Info("Executing checks", map[string]interface{}{
		"model": modelName,
		"count": len(checks),
	})

	results := make([]models.CheckResult, 0, len(checks))
	for _, check := range checks {
		results = append(results, e.executeCheck(check, modelName))
	}

	passed, failed := 0, 0
	for _, r := range results {
		switch r.Status {
		case models.StatusPass:
			passed++
		case models.StatusFail:
			failed++
		}
	}
	e.logger.Info("Completed checks", map[string]interface{}{
		"model":  modelName,
		"count":  len(results),
		"passed": passed,
		"failed": failed,
	})

	return results
}

// executeCheck runs one check and classifies it. Query failures are
// converted to ERROR results, never propagated.
func (e *Executor) executeCheck(check models.CheckSpec, modelName string) models.CheckResult {
	e.logger.Debug("Executing check", map[string]interface{}{"test_name": check.Name})

	timestamp := time.Now().UTC().Format(timestampFormat)

	result := models.CheckResult{
		Name:               check.Name,
		Category:           check.Category,
		Description:        check.Description,
		Query:              check.Query,
		Severity:           check.Severity,
		ExecutionTimestamp: timestamp,
		ModelName:          modelName,
	}

	rows, err := e.warehouse.ExecuteQuery(check.Query)
	if err != nil {
		e.logger.Error("Check execution failed", map[string]interface{}{
			"test_name": check.Name,
			"error":     err.Error(),
		})

		result.DefectCount = models.DefectCountError
		result.DefectExamples = ""
		result.Status = models.StatusError
		result.Notes = fmt.Sprintf("Test execution failed: %s", err.Error())
		return result
	}

	result.DefectCount = len(rows)
	if result.DefectCount == 0 {
		result.Status = models.StatusPass
	} else {
		result.Status = models.StatusFail
		result.DefectExamples = e.warehouse.FormatDefectExamples(rows, e.maxExamples)
	}
	result.Notes = generateNotes(check, result.Status, result.DefectCount)

	return result
}

// generateNotes produces the human-readable explanation for a result
func generateNotes(check models.CheckSpec, status models.CheckStatus, defectCount int) string {
	if status == models.StatusPass {
		return fmt.Sprintf("No issues found - %s", strings.ToLower(check.Description))
	}

	if template, ok := failureNotes[check.Category]; ok {
		return fmt.Sprintf(template, defectCount)
	}
	return fmt.Sprintf("Found %d defect(s)", defectCount)
}

// Summarize folds a model's results into an audit summary. It is a pure
// fold; running it twice over the same results yields identical values.
func Summarize(results []models.CheckResult) models.AuditSummary {
	summary := models.AuditSummary{TotalTests: len(results)}

	for _, r := range results {
		switch r.Status {
		case models.StatusPass:
			summary.Passed++
		case models.StatusFail:
			summary.Failed++
		case models.StatusError:
			summary.Errors++
		}

		// The -1 execution-failure sentinel contributes nothing
		if r.DefectCount > 0 {
			summary.TotalDefects += r.DefectCount
		}

		if r.Status == models.StatusFail {
			switch r.Severity {
			case models.SeverityCritical:
				summary.CriticalFailures++
			case models.SeverityHigh:
				summary.HighFailures++
			}
		}
	}

	return summary
}

// Package audit drives the end-to-end audit of mart models: parse the
// dbt model, collect warehouse metadata, generate checks, execute them,
// and write reports. Models are audited one at a time; a model that
// fails before execution is skipped and the run continues.
package audit

import (
	"context"

	"martaudit/internal/executor"
	"martaudit/internal/logging"
	"martaudit/pkg/models"
)

// ModelParser supplies per-model dbt context
type ModelParser interface {
	ParseModel(modelName string) (*models.ModelContext, error)
}

// MetadataProvider supplies warehouse metadata, statistics, and samples
type MetadataProvider interface {
	GetTableMetadata(tableName string) ([]models.ColumnMetadata, error)
	GetTableStats(tableName string) (*models.TableStats, error)
	GetSampleData(tableName string, limit int) ([]models.Row, error)
}

// CheckGenerator produces validated checks for one model
type CheckGenerator interface {
	GenerateChecks(
		ctx context.Context,
		mctx *models.ModelContext,
		columns []models.ColumnMetadata,
		stats *models.TableStats,
		sample []models.Row,
	) ([]models.CheckSpec, error)
}

// CheckExecutor runs a batch of checks for one model
type CheckExecutor interface {
	ExecuteChecks(checks []models.CheckSpec, modelName string) []models.CheckResult
}

// ReportSink persists per-model and cross-model reports
type ReportSink interface {
	WriteReport(results []models.CheckResult, modelName string) (string, error)
	WriteSummary(allResults map[string][]models.CheckResult) (string, error)
}

// Runner audits a list of mart models sequentially
type Runner struct {
	parser      ModelParser
	metadata    MetadataProvider
	generator   CheckGenerator
	executor    CheckExecutor
	reports     ReportSink
	sampleLimit int
	logger      *logging.Logger
}

// Options configures a Runner
type Options struct {
	Parser      ModelParser
	Metadata    MetadataProvider
	Generator   CheckGenerator
	Executor    CheckExecutor
	Reports     ReportSink
	SampleLimit int
	Logger      *logging.Logger
}

// NewRunner creates an audit runner
func NewRunner(opts Options) *Runner {
	if opts.SampleLimit <= 0 {
		opts.SampleLimit = 10
	}
	return &Runner{
		parser:      opts.Parser,
		metadata:    opts.Metadata,
		generator:   opts.Generator,
		executor:    opts.Executor,
		reports:     opts.Reports,
		sampleLimit: opts.SampleLimit,
		logger:      opts.Logger.WithField("component", "audit"),
	}
}

// ModelOutcome is the successful audit of one model
type ModelOutcome struct {
	ModelName  string
	Results    []models.CheckResult
	Summary    models.AuditSummary
	ReportPath string
}

// RunReport is the outcome of a whole audit run
type RunReport struct {
	Outcomes    []ModelOutcome
	Skipped     map[string]error
	SummaryPath string
}

// AuditModel audits a single model end to end. Any failure before check
// execution propagates to the caller; check-level failures are already
// folded into ERROR results by the executor.
func (r *Runner) AuditModel(ctx context.Context, modelName string) (*ModelOutcome, error) {
	log := r.logger.WithField("model", modelName)
	log.Info("Starting audit")

	log.Info("Step 1: Parsing dbt model")
	mctx, err := r.parser.ParseModel(modelName)
	if err != nil {
		return nil, err
	}

	log.Info("Step 2: Fetching table metadata")
	columns, err := r.metadata.GetTableMetadata(modelName)
	if err != nil {
		return nil, err
	}

	log.Info("Step 3: Fetching table statistics")
	stats, err := r.metadata.GetTableStats(modelName)
	if err != nil {
		return nil, err
	}

	log.Info("Step 4: Fetching sample data")
	sample, err := r.metadata.GetSampleData(modelName, r.sampleLimit)
	if err != nil {
		return nil, err
	}

	log.Info("Step 5: Generating checks")
	checks, err := r.generator.GenerateChecks(ctx, mctx, columns, stats, sample)
	if err != nil {
		return nil, err
	}

	log.Info("Step 6: Executing checks")
	results := r.executor.ExecuteChecks(checks, modelName)

	summary := executor.Summarize(results)
	log.Info("Audit summary", map[string]interface{}{
		"passed":        summary.Passed,
		"failed":        summary.Failed,
		"errors":        summary.Errors,
		"total_defects": summary.TotalDefects,
	})
	if summary.CriticalFailures > 0 {
		log.Warn("Critical failures found", map[string]interface{}{"count": summary.CriticalFailures})
	}
	if summary.HighFailures > 0 {
		log.Warn("High-severity failures found", map[string]interface{}{"count": summary.HighFailures})
	}

	log.Info("Step 7: Writing report")
	reportPath, err := r.reports.WriteReport(results, modelName)
	if err != nil {
		return nil, err
	}

	log.Info("Audit complete", map[string]interface{}{"report": reportPath})

	return &ModelOutcome{
		ModelName:  modelName,
		Results:    results,
		Summary:    summary,
		ReportPath: reportPath,
	}, nil
}

// Run audits every named model. A model that fails is logged and
// skipped; the others are unaffected. When at least two models complete,
// a cross-model summary report is written covering only those models.
func (r *Runner) Run(ctx context.Context, modelNames []string) (*RunReport, error) {
	report := &RunReport{
		Skipped: make(map[string]error),
	}
	allResults := make(map[string][]models.CheckResult)

	for _, modelName := range modelNames {
		outcome, err := r.AuditModel(ctx, modelName)
		if err != nil {
			r.logger.Error("Skipping model due to error", map[string]interface{}{
				"model": modelName,
				"error": err.Error(),
			})
			report.Skipped[modelName] = err
			continue
		}

		report.Outcomes = append(report.Outcomes, *outcome)
		allResults[modelName] = outcome.Results
	}

	if len(allResults) > 1 {
		summaryPath, err := r.reports.WriteSummary(allResults)
		if err != nil {
			return report, err
		}
		report.SummaryPath = summaryPath
		r.logger.Info("Summary report written", map[string]interface{}{"path": summaryPath})
	}

	r.logger.Info("Data quality audit complete", map[string]interface{}{
		"models_audited": len(report.Outcomes),
		"models_skipped": len(report.Skipped),
	})

	return report, nil
}

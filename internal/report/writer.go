// Package report persists audit results as CSV reports: one per audited
// model plus a cross-model summary.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"martaudit/internal/executor"
	"martaudit/internal/logging"
	apperrors "martaudit/pkg/errors"
	"martaudit/pkg/models"
)

// filenameTimestamp versions report filenames
const filenameTimestamp = "20060102_150405"

var reportHeader = []string{
	"test_name",
	"test_category",
	"test_description",
	"test_query",
	"defect_count",
	"defect_examples",
	"status",
	"severity",
	"notes",
	"execution_timestamp",
}

var summaryHeader = []string{
	"model_name",
	"total_tests",
	"passed",
	"failed",
	"errors",
	"total_defects",
	"critical_failures",
	"high_failures",
}

// Writer writes CSV audit reports to an output directory
type Writer struct {
	outputDir string
	logger    *logging.Logger
	now       func() time.Time
}

// NewWriter creates a writer, creating the output directory if needed
func NewWriter(outputDir string, logger *logging.Logger) (*Writer, error) {
	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeReportWrite,
			fmt.Sprintf("Failed to create output directory %s", outputDir))
	}

	return &Writer{
		outputDir: outputDir,
		logger:    logger.WithField("component", "report"),
		now:       time.Now,
	}, nil
}

// WriteReport writes one model's check results and returns the file path
func (w *Writer) WriteReport(results []models.CheckResult, modelName string) (string, error) {
	timestamp := w.now().UTC().Format(filenameTimestamp)
	filename := fmt.Sprintf("%s_data_quality_report_%s.csv", modelName, timestamp)
	path := filepath.Join(w.outputDir, filename)

	w.logger.Info("Writing data quality report", map[string]interface{}{
		"model": modelName,
		"path":  path,
	})

	records := make([][]string, 0, len(results))
	for _, r := range results {
		records = append(records, []string{
			r.Name,
			string(r.Category),
			r.Description,
			r.Query,
			strconv.Itoa(r.DefectCount),
			r.DefectExamples,
			string(r.Status),
			string(r.Severity),
			r.Notes,
			r.ExecutionTimestamp,
		})
	}

	if err := w.writeCSV(path, reportHeader, records); err != nil {
		return "", err
	}

	w.logger.Info("Wrote test results", map[string]interface{}{
		"model": modelName,
		"count": len(results),
	})

	return path, nil
}

// WriteSummary writes the cross-model summary and returns the file path.
// Models are written in sorted order so the output is deterministic.
func (w *Writer) WriteSummary(allResults map[string][]models.CheckResult) (string, error) {
	timestamp := w.now().UTC().Format(filenameTimestamp)
	filename := fmt.Sprintf("data_quality_summary_%s.csv", timestamp)
	path := filepath.Join(w.outputDir, filename)

	w.logger.Info("Writing summary report", map[string]interface{}{"path": path})

	modelNames := make([]string, 0, len(allResults))
	for name := range allResults {
		modelNames = append(modelNames, name)
	}
	sort.Strings(modelNames)

	records := make([][]string, 0, len(modelNames))
	for _, name := range modelNames {
		summary := executor.Summarize(allResults[name])
		records = append(records, []string{
			name,
			strconv.Itoa(summary.TotalTests),
			strconv.Itoa(summary.Passed),
			strconv.Itoa(summary.Failed),
			strconv.Itoa(summary.Errors),
			strconv.Itoa(summary.TotalDefects),
			strconv.Itoa(summary.CriticalFailures),
			strconv.Itoa(summary.HighFailures),
		})
	}

	if err := w.writeCSV(path, summaryHeader, records); err != nil {
		return "", err
	}

	return path, nil
}

// writeCSV writes a header plus records; encoding/csv quotes embedded
// delimiters and newlines so free-text fields stay well formed
func (w *Writer) writeCSV(path string, header []string, records [][]string) error {
	f, err := os.Create(path) // #nosec G304 - path is derived from config
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeReportWrite,
			fmt.Sprintf("Failed to create report file %s", path))
	}
	defer f.Close()

	cw := csv.NewWriter(f)

	if err := cw.Write(header); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeReportWrite, "Failed to write report header")
	}
	for _, record := range records {
		if err := cw.Write(record); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeReportWrite, "Failed to write report row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeReportWrite, "Failed to flush report")
	}

	return nil
}

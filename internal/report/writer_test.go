package report

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martaudit/internal/logging"
	"martaudit/pkg/models"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.LoggerConfig{
		Level:   logging.ErrorLevel,
		Outputs: []io.Writer{io.Discard},
	})
}

func newTestWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "reports")

	w, err := NewWriter(dir, testLogger())
	require.NoError(t, err)

	// Fixed clock so filenames are predictable
	w.now = func() time.Time {
		return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	}
	return w, dir
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func sampleResults() []models.CheckResult {
	return []models.CheckResult{
		{
			Name:               "unique_order_id",
			Category:           models.CategoryUniqueness,
			Description:        "Order IDs are unique",
			Query:              "SELECT order_id FROM waffles.orders GROUP BY order_id HAVING COUNT(*) > 1",
			DefectCount:        0,
			Status:             models.StatusPass,
			Severity:           models.SeverityCritical,
			Notes:              "No issues found - order ids are unique",
			ExecutionTimestamp: "2026-03-14 15:09:26 UTC",
			ModelName:          "orders",
		},
		{
			Name:               "valid_status",
			Category:           models.CategoryValueRange,
			Description:        "Statuses are valid,\nincluding \"special\" ones",
			Query:              "SELECT * FROM waffles.orders\nWHERE status NOT IN ('placed', 'shipped')",
			DefectCount:        2,
			DefectExamples:     "order_id=7, status=lost; order_id=9, status=mystery",
			Status:             models.StatusFail,
			Severity:           models.SeverityHigh,
			Notes:              "Found 2 record(s) with values outside expected range",
			ExecutionTimestamp: "2026-03-14 15:09:26 UTC",
			ModelName:          "orders",
		},
	}
}

func TestNewWriterCreatesOutputDir(t *testing.T) {
	_, dir := newTestWriter(t)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteReport(t *testing.T) {
	w, dir := newTestWriter(t)

	path, err := w.WriteReport(sampleResults(), "orders")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "orders_data_quality_report_20260314_150926.csv"), path)

	records := readCSV(t, path)
	require.Len(t, records, 3)

	assert.Equal(t, []string{
		"test_name", "test_category", "test_description", "test_query",
		"defect_count", "defect_examples", "status", "severity", "notes",
		"execution_timestamp",
	}, records[0])

	assert.Equal(t, "unique_order_id", records[1][0])
	assert.Equal(t, "0", records[1][4])
	assert.Equal(t, "PASS", records[1][6])

	// Embedded newlines, commas, and quotes round-trip intact
	assert.Equal(t, "Statuses are valid,\nincluding \"special\" ones", records[2][2])
	assert.Contains(t, records[2][3], "\nWHERE status NOT IN")
	assert.Equal(t, "2", records[2][4])
	assert.Equal(t, "FAIL", records[2][6])
}

func TestWriteReportErrorSentinel(t *testing.T) {
	w, _ := newTestWriter(t)

	results := []models.CheckResult{{
		Name:        "broken_check",
		Category:    models.CategoryBusinessLogic,
		Description: "d",
		Query:       "q",
		DefectCount: models.DefectCountError,
		Status:      models.StatusError,
		Severity:    models.SeverityLow,
		Notes:       "Test execution failed: boom",
	}}

	path, err := w.WriteReport(results, "orders")
	require.NoError(t, err)

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, "-1", records[1][4])
	assert.Equal(t, "ERROR", records[1][6])
}

func TestWriteSummarySortedByModel(t *testing.T) {
	w, dir := newTestWriter(t)

	allResults := map[string][]models.CheckResult{
		"orders": {
			{Status: models.StatusPass, DefectCount: 0, Severity: models.SeverityLow},
			{Status: models.StatusFail, DefectCount: 3, Severity: models.SeverityCritical},
		},
		"customers": {
			{Status: models.StatusError, DefectCount: models.DefectCountError, Severity: models.SeverityHigh},
		},
	}

	path, err := w.WriteSummary(allResults)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data_quality_summary_20260314_150926.csv"), path)

	records := readCSV(t, path)
	require.Len(t, records, 3)

	assert.Equal(t, []string{
		"model_name", "total_tests", "passed", "failed", "errors",
		"total_defects", "critical_failures", "high_failures",
	}, records[0])

	assert.Equal(t, []string{"customers", "1", "0", "0", "1", "0", "0", "0"}, records[1])
	assert.Equal(t, []string{"orders", "2", "1", "1", "0", "3", "1", "0"}, records[2])
}

func TestWriteReportEmptyResults(t *testing.T) {
	w, _ := newTestWriter(t)

	path, err := w.WriteReport(nil, "orders")
	require.NoError(t, err)

	records := readCSV(t, path)
	require.Len(t, records, 1)
	assert.True(t, strings.HasSuffix(path, ".csv"))
}

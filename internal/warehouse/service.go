// Package warehouse provides the audit run's single shared warehouse
// connection: table metadata, statistics, sample rows, and execution of
// generated check queries. The warehouse speaks the Postgres wire
// protocol (Redshift and friends), so the lib/pq driver is used.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"martaudit/internal/logging"
	apperrors "martaudit/pkg/errors"
	"martaudit/pkg/models"
)

// Config holds warehouse connection configuration
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	Schema   string
	SSLMode  string
	Timeout  time.Duration
}

// ValidateConfig validates the warehouse configuration
func ValidateConfig(config Config) error {
	if config.Host == "" {
		return fmt.Errorf("host is required")
	}
	if config.Database == "" {
		return fmt.Errorf("database is required")
	}
	if config.User == "" {
		return fmt.Errorf("user is required")
	}
	if config.Password == "" {
		return fmt.Errorf("password is required")
	}
	if config.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	return nil
}

// Service provides warehouse database operations. A single Service is
// shared for the whole audit run and closed when the run ends.
type Service struct {
	db        *sql.DB
	config    Config
	connected bool
	logger    *logging.Logger
}

// NewService creates a new warehouse service
func NewService(config Config, logger *logging.Logger) *Service {
	return &Service{
		config: config,
		logger: logger.WithField("component", "warehouse"),
	}
}

// Connect establishes a connection to the warehouse
func (s *Service) Connect() error {
	if s.connected {
		return nil
	}

	sslMode := s.config.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		s.config.Host,
		s.config.Port,
		s.config.Database,
		s.config.User,
		s.config.Password,
		sslMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return apperrors.ConnectionError("Failed to open warehouse connection", err).
			WithContext("host", s.config.Host).
			WithContext("database", s.config.Database)
	}

	// One audit run, one connection. Checks run strictly sequentially.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := s.getContext()
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Class() == "28" {
			return apperrors.New(apperrors.ErrCodeAuthenticationFailed, "Authentication failed").
				WithContext("user", s.config.User).
				WithSuggestions(
					"Verify your warehouse user and password",
					"Check WAREHOUSE_PASSWORD in the environment",
				)
		}

		return apperrors.ConnectionError("Failed to connect to warehouse", err).
			WithContext("host", s.config.Host)
	}

	s.db = db
	s.connected = true
	s.logger.Info("Connected to warehouse", map[string]interface{}{
		"host":     s.config.Host,
		"database": s.config.Database,
	})
	return nil
}

// Close closes the database connection
func (s *Service) Close() error {
	if !s.connected {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	s.connected = false
	s.logger.Info("Warehouse connection closed")
	return nil
}

// TestConnection verifies the connection with a trivial query
func (s *Service) TestConnection() error {
	if !s.connected {
		if err := s.Connect(); err != nil {
			return err
		}
	}

	ctx, cancel := s.getContext()
	defer cancel()

	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return apperrors.ConnectionError("Connection test failed", err)
	}
	if one != 1 {
		return apperrors.New(apperrors.ErrCodeConnectionFailed, "Connection test returned unexpected result")
	}
	return nil
}

// GetTableMetadata returns column metadata for a table in the audit schema
func (s *Service) GetTableMetadata(tableName string) ([]models.ColumnMetadata, error) {
	if !s.connected {
		return nil, apperrors.New(apperrors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}

	query := `
	SELECT
		column_name,
		data_type,
		is_nullable,
		ordinal_position
	FROM information_schema.columns
	WHERE table_schema = $1
		AND table_name = $2
	ORDER BY ordinal_position`

	ctx, cancel := s.getContext()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, s.config.Schema, tableName)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMetadataUnavailable,
			fmt.Sprintf("Failed to get table metadata for %s", tableName)).
			WithContext("table", tableName)
	}
	defer rows.Close()

	var columns []models.ColumnMetadata
	for rows.Next() {
		var col models.ColumnMetadata
		var nullable string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &col.Position); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeMetadataUnavailable, "Failed to scan column metadata")
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMetadataUnavailable, "Failed to read column metadata")
	}

	if len(columns) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeMetadataUnavailable,
			fmt.Sprintf("Table %s.%s has no columns or does not exist", s.config.Schema, tableName)).
			WithContext("table", tableName).
			WithSuggestions(
				"Verify the table exists in the audit schema",
				"Check the warehouse.schema configuration value",
			)
	}

	return columns, nil
}

// GetTableStats returns row count plus per-column null and distinct counts
func (s *Service) GetTableStats(tableName string) (*models.TableStats, error) {
	if !s.connected {
		return nil, apperrors.New(apperrors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}

	qualified := s.qualifiedTable(tableName)

	stats := &models.TableStats{
		NullCounts:     make(map[string]int64),
		DistinctCounts: make(map[string]int64),
	}

	if err := s.queryCount(fmt.Sprintf("SELECT COUNT(*) FROM %s", qualified), &stats.RowCount); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMetadataUnavailable,
			fmt.Sprintf("Failed to get row count for %s", tableName)).
			WithContext("table", tableName)
	}

	columns, err := s.GetTableMetadata(tableName)
	if err != nil {
		return nil, err
	}

	for _, col := range columns {
		quoted := pq.QuoteIdentifier(col.Name)

		var nullCount int64
		nullQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IS NULL", qualified, quoted)
		if err := s.queryCount(nullQuery, &nullCount); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeMetadataUnavailable,
				fmt.Sprintf("Failed to get null count for %s.%s", tableName, col.Name)).
				WithContext("column", col.Name)
		}
		stats.NullCounts[col.Name] = nullCount

		var distinctCount int64
		distinctQuery := fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM %s", quoted, qualified)
		if err := s.queryCount(distinctQuery, &distinctCount); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeMetadataUnavailable,
				fmt.Sprintf("Failed to get distinct count for %s.%s", tableName, col.Name)).
				WithContext("column", col.Name)
		}
		stats.DistinctCounts[col.Name] = distinctCount
	}

	return stats, nil
}

// GetSampleData returns up to limit rows from a table
func (s *Service) GetSampleData(tableName string, limit int) ([]models.Row, error) {
	if !s.connected {
		return nil, apperrors.New(apperrors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}

	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", s.qualifiedTable(tableName), limit)

	rows, err := s.runQuery(query)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMetadataUnavailable,
			fmt.Sprintf("Failed to get sample data for %s", tableName)).
			WithContext("table", tableName)
	}
	return rows, nil
}

// ExecuteQuery executes an arbitrary read-only query and returns its rows.
// Any backend failure comes back as a coded query execution error.
func (s *Service) ExecuteQuery(query string) ([]models.Row, error) {
	if !s.connected {
		return nil, apperrors.New(apperrors.ErrCodeConnectionFailed, "Not connected to warehouse")
	}

	rows, err := s.runQuery(query)
	if err != nil {
		return nil, apperrors.QueryError("Failed to execute query", query, err)
	}
	return rows, nil
}

// FormatDefectExamples renders up to limit rows as
// "col1=val1, col2=val2; col1=val3, col2=val4"
func (s *Service) FormatDefectExamples(rows []models.Row, limit int) string {
	return FormatRows(rows, limit)
}

// FormatRows renders up to limit rows in the defect-example format
func FormatRows(rows []models.Row, limit int) string {
	if len(rows) == 0 {
		return ""
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	examples := make([]string, 0, len(rows))
	for _, row := range rows {
		examples = append(examples, row.String())
	}

	return strings.Join(examples, "; ")
}

// Helper methods

func (s *Service) getContext() (context.Context, context.CancelFunc) {
	timeout := s.config.Timeout
	if timeout == 0 {
		timeout = 300 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (s *Service) qualifiedTable(tableName string) string {
	return pq.QuoteIdentifier(s.config.Schema) + "." + pq.QuoteIdentifier(tableName)
}

func (s *Service) queryCount(query string, out *int64) error {
	ctx, cancel := s.getContext()
	defer cancel()
	return s.db.QueryRowContext(ctx, query).Scan(out)
}

// runQuery executes a query and scans all rows into ordered mappings
func (s *Service) runQuery(query string) ([]models.Row, error) {
	ctx, cancel := s.getContext()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows)
}

// scanRows converts sql.Rows into ordered column-to-value mappings.
// Statements that return no columns yield an empty result.
func scanRows(rows *sql.Rows) ([]models.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return []models.Row{}, nil
	}

	results := []models.Row{}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		valuePtrs := make([]interface{}, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := models.Row{
			Columns: cols,
			Values:  make(map[string]interface{}, len(cols)),
		}
		for i, col := range cols {
			// Drivers hand text columns back as []byte; keep them readable
			if b, ok := values[i].([]byte); ok {
				row.Values[col] = string(b)
			} else {
				row.Values[col] = values[i]
			}
		}
		results = append(results, row)
	}

	return results, rows.Err()
}

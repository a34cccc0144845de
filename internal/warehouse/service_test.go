package warehouse

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martaudit/internal/logging"
	apperrors "martaudit/pkg/errors"
	"martaudit/pkg/models"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.LoggerConfig{
		Level:   logging.ErrorLevel,
		Outputs: []io.Writer{io.Discard},
	})
}

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	service := &Service{
		db:        db,
		connected: true,
		config: Config{
			Host:     "warehouse.example.com",
			Port:     5439,
			Database: "dev",
			User:     "auditor",
			Password: "secret",
			Schema:   "waffles",
			Timeout:  30 * time.Second,
		},
		logger: testLogger(),
	}
	return service, mock
}

func TestValidateConfig(t *testing.T) {
	valid := Config{
		Host:     "warehouse.example.com",
		Port:     5439,
		Database: "dev",
		User:     "auditor",
		Password: "secret",
		Schema:   "waffles",
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "missing host", mutate: func(c *Config) { c.Host = "" }, wantError: "host is required"},
		{name: "missing database", mutate: func(c *Config) { c.Database = "" }, wantError: "database is required"},
		{name: "missing user", mutate: func(c *Config) { c.User = "" }, wantError: "user is required"},
		{name: "missing password", mutate: func(c *Config) { c.Password = "" }, wantError: "password is required"},
		{name: "missing schema", mutate: func(c *Config) { c.Schema = "" }, wantError: "schema is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.mutate(&config)

			err := ValidateConfig(config)
			if tt.wantError == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.wantError, err.Error())
			}
		})
	}
}

func TestGetTableMetadata(t *testing.T) {
	service, mock := newMockService(t)

	rows := sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
		AddRow("order_id", "integer", "NO", 1).
		AddRow("status", "character varying", "YES", 2)

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("waffles", "orders").
		WillReturnRows(rows)

	columns, err := service.GetTableMetadata("orders")

	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, "order_id", columns[0].Name)
	assert.False(t, columns[0].Nullable)
	assert.Equal(t, "status", columns[1].Name)
	assert.True(t, columns[1].Nullable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTableMetadataMissingTable(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("waffles", "ghosts").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}))

	columns, err := service.GetTableMetadata("ghosts")

	require.Error(t, err)
	assert.Nil(t, columns)
	assert.Equal(t, apperrors.ErrCodeMetadataUnavailable, apperrors.GetErrorCode(err))
}

func TestGetTableStats(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "waffles"\."orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(100))

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("waffles", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
			AddRow("order_id", "integer", "NO", 1))

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "waffles"\."orders" WHERE "order_id" IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT COUNT\(DISTINCT "order_id"\) FROM "waffles"\."orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(100))

	stats, err := service.GetTableStats("orders")

	require.NoError(t, err)
	assert.Equal(t, int64(100), stats.RowCount)
	assert.Equal(t, int64(0), stats.NullCounts["order_id"])
	assert.Equal(t, int64(100), stats.DistinctCounts["order_id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteQueryReturnsOrderedRows(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectQuery("SELECT order_id, status FROM").
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "status"}).
			AddRow(1, "returned").
			AddRow(2, "lost"))

	rows, err := service.ExecuteQuery("SELECT order_id, status FROM waffles.orders WHERE status IN ('returned','lost')")

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"order_id", "status"}, rows[0].Columns)
	assert.Equal(t, "returned", rows[0].Values["status"])
	assert.Equal(t, "order_id=1, status=returned", rows[0].String())
}

func TestExecuteQueryEmptyResult(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectQuery("SELECT order_id FROM").
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}))

	rows, err := service.ExecuteQuery("SELECT order_id FROM waffles.orders WHERE 1=0")

	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExecuteQueryBackendError(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectQuery("SELECT broken").
		WillReturnError(fmt.Errorf("syntax error at or near \"broken\""))

	rows, err := service.ExecuteQuery("SELECT broken FROM")

	require.Error(t, err)
	assert.Nil(t, rows)
	assert.Equal(t, apperrors.ErrCodeQueryExecution, apperrors.GetErrorCode(err))
}

func TestExecuteQueryNotConnected(t *testing.T) {
	service := NewService(Config{}, testLogger())

	_, err := service.ExecuteQuery("SELECT 1")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConnectionFailed, apperrors.GetErrorCode(err))
}

func TestGetSampleData(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectQuery(`SELECT \* FROM "waffles"\."orders" LIMIT 10`).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(1).AddRow(2))

	rows, err := service.GetSampleData("orders", 10)

	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestFormatRows(t *testing.T) {
	makeRow := func(id int, status string) models.Row {
		return models.Row{
			Columns: []string{"order_id", "status"},
			Values:  map[string]interface{}{"order_id": id, "status": status},
		}
	}

	tests := []struct {
		name  string
		rows  []models.Row
		limit int
		want  string
	}{
		{name: "empty", rows: nil, limit: 5, want: ""},
		{
			name:  "single row",
			rows:  []models.Row{makeRow(1, "lost")},
			limit: 5,
			want:  "order_id=1, status=lost",
		},
		{
			name:  "multiple rows joined with semicolons",
			rows:  []models.Row{makeRow(1, "lost"), makeRow(2, "returned")},
			limit: 5,
			want:  "order_id=1, status=lost; order_id=2, status=returned",
		},
		{
			name:  "capped at limit",
			rows:  []models.Row{makeRow(1, "a"), makeRow(2, "b"), makeRow(3, "c")},
			limit: 2,
			want:  "order_id=1, status=a; order_id=2, status=b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRows(tt.rows, tt.limit))
		})
	}
}

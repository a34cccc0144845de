package models

import (
	"fmt"
	"strings"
)

// ColumnMetadata describes one column of an audited table
type ColumnMetadata struct {
	Name     string
	DataType string
	Nullable bool
	Position int
}

// TableStats holds basic statistics for an audited table
type TableStats struct {
	RowCount       int64
	NullCounts     map[string]int64
	DistinctCounts map[string]int64
}

// Row is an ordered column-to-value mapping returned by a warehouse query.
// Column order follows the select list so defect rendering is stable.
type Row struct {
	Columns []string
	Values  map[string]interface{}
}

// String renders the row as "col1=val1, col2=val2" in column order
func (r Row) String() string {
	pairs := make([]string, 0, len(r.Columns))
	for _, col := range r.Columns {
		pairs = append(pairs, fmt.Sprintf("%s=%v", col, r.Values[col]))
	}
	return strings.Join(pairs, ", ")
}

// ExistingCheck is a check already declared in a model's schema file
type ExistingCheck struct {
	Level  string      `yaml:"level"`
	Column string      `yaml:"column,omitempty"`
	Test   interface{} `yaml:"test"`
}

// ModelContext is the parsed context for one dbt model
type ModelContext struct {
	ModelName          string
	SQLContent         string
	Config             map[string]string
	Dependencies       []string
	ModelDescription   string
	ColumnDescriptions map[string]string
	ExistingChecks     []ExistingCheck
}

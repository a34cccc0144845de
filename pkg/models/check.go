package models

import (
	apperrors "martaudit/pkg/errors"
)

// CheckCategory classifies what aspect of data quality a check covers
type CheckCategory string

const (
	CategoryUniqueness           CheckCategory = "Uniqueness"
	CategoryNullability          CheckCategory = "Nullability"
	CategoryReferentialIntegrity CheckCategory = "Referential Integrity"
	CategoryDateValidity         CheckCategory = "Date Validity"
	CategoryBusinessLogic        CheckCategory = "Business Logic"
	CategoryValueRange           CheckCategory = "Value Range"
	CategoryDataConsistency      CheckCategory = "Data Consistency"
)

// Categories lists all check categories in prompt order
var Categories = []CheckCategory{
	CategoryUniqueness,
	CategoryNullability,
	CategoryReferentialIntegrity,
	CategoryDateValidity,
	CategoryBusinessLogic,
	CategoryValueRange,
	CategoryDataConsistency,
}

// CheckSeverity is the ordinal severity attached to a check
type CheckSeverity string

const (
	SeverityCritical CheckSeverity = "CRITICAL"
	SeverityHigh     CheckSeverity = "HIGH"
	SeverityMedium   CheckSeverity = "MEDIUM"
	SeverityLow      CheckSeverity = "LOW"
)

// CheckStatus is the terminal classification of an executed check
type CheckStatus string

const (
	StatusPass  CheckStatus = "PASS"
	StatusFail  CheckStatus = "FAIL"
	StatusError CheckStatus = "ERROR"
)

// CheckSpec is a candidate data-quality check produced by the generator.
// JSON tags match the wire names the model is prompted to emit.
type CheckSpec struct {
	Name        string        `json:"test_name"`
	Category    CheckCategory `json:"test_category"`
	Description string        `json:"test_description"`
	Query       string        `json:"test_query"`
	Severity    CheckSeverity `json:"severity"`
}

// Validate reports whether all required fields are present. Incomplete
// candidates are dropped before execution, never repaired.
func (s CheckSpec) Validate() error {
	switch {
	case s.Name == "":
		return apperrors.New(apperrors.ErrCodeInvalidCheckSpec, "check is missing test_name")
	case s.Category == "":
		return apperrors.New(apperrors.ErrCodeInvalidCheckSpec, "check is missing test_category").
			WithContext("test_name", s.Name)
	case s.Description == "":
		return apperrors.New(apperrors.ErrCodeInvalidCheckSpec, "check is missing test_description").
			WithContext("test_name", s.Name)
	case s.Query == "":
		return apperrors.New(apperrors.ErrCodeInvalidCheckSpec, "check is missing test_query").
			WithContext("test_name", s.Name)
	case s.Severity == "":
		return apperrors.New(apperrors.ErrCodeInvalidCheckSpec, "check is missing severity").
			WithContext("test_name", s.Name)
	}
	return nil
}

// DefectCountError is the sentinel defect count for a check whose query
// failed to execute. It is reserved; it never means negative defects.
const DefectCountError = -1

// CheckResult is the executed, classified outcome of one CheckSpec.
// Immutable after creation.
type CheckResult struct {
	Name               string        `json:"test_name"`
	Category           CheckCategory `json:"test_category"`
	Description        string        `json:"test_description"`
	Query              string        `json:"test_query"`
	DefectCount        int           `json:"defect_count"`
	DefectExamples     string        `json:"defect_examples"`
	Status             CheckStatus   `json:"status"`
	Severity           CheckSeverity `json:"severity"`
	Notes              string        `json:"notes"`
	ExecutionTimestamp string        `json:"execution_timestamp"`
	ModelName          string        `json:"model_name"`
}

// AuditSummary aggregates a model's check results
type AuditSummary struct {
	TotalTests       int `json:"total_tests"`
	Passed           int `json:"passed"`
	Failed           int `json:"failed"`
	Errors           int `json:"errors"`
	TotalDefects     int `json:"total_defects"`
	CriticalFailures int `json:"critical_failures"`
	HighFailures     int `json:"high_failures"`
}

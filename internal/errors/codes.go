// Package errors provides structured error handling for ctxrank.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (corpus files, telemetry database)
//   - 3XX: Index errors (vector index transport and query failures)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates file and database errors.
	CategoryStorage Category = "STORAGE"
	// CategoryIndex indicates vector index failures.
	CategoryIndex Category = "INDEX"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeCorpusInvalid  = "ERR_202_CORPUS_INVALID"
	ErrCodeTelemetryStore = "ERR_203_TELEMETRY_STORE"

	// Index errors (300-399)
	ErrCodeIndexTimeout     = "ERR_301_INDEX_TIMEOUT"
	ErrCodeIndexUnavailable = "ERR_302_INDEX_UNAVAILABLE"
	ErrCodeEmbeddingFailed  = "ERR_303_EMBEDDING_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeInvalidFilter     = "ERR_403_INVALID_FILTER"
	ErrCodeMalformedMetadata = "ERR_407_MALFORMED_METADATA"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "1" from "ERR_101_CONFIG_NOT_FOUND"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryIndex
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeConfigInvalid:
		return SeverityFatal
	}

	if isAbsorbedCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isAbsorbedCode lists the codes the engine degrades on: the caller sees an
// empty context instead of an error.
func isAbsorbedCode(code string) bool {
	switch code {
	case ErrCodeIndexTimeout, ErrCodeIndexUnavailable, ErrCodeEmbeddingFailed, ErrCodeMalformedMetadata:
		return true
	default:
		return false
	}
}

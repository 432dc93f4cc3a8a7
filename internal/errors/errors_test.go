package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original transport error
	originalErr := errors.New("connection refused")

	// When: wrapping it as an index failure
	err := IndexUnavailable("qdrant query failed", originalErr)

	// Then: the cause is reachable through the chain
	require.NotNil(t, err)
	assert.Equal(t, originalErr, errors.Unwrap(err))
	assert.True(t, errors.Is(err, originalErr))
}

func TestError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigNotFound,
			message:  "config file not found",
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "index error",
			code:     ErrCodeIndexUnavailable,
			message:  "index down",
			expected: "[ERR_302_INDEX_UNAVAILABLE] index down",
		},
		{
			name:     "validation error",
			code:     ErrCodeInvalidInput,
			message:  "max_blocks must be positive",
			expected: "[ERR_401_INVALID_INPUT] max_blocks must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestError_Is_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("build context: %w", ValidationError("max_chars must be positive", nil))

	assert.True(t, errors.Is(err, &Error{Code: ErrCodeInvalidInput}))
	assert.False(t, errors.Is(err, &Error{Code: ErrCodeInternal}))
}

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		code     string
		category Category
		severity Severity
		absorbed bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityFatal, false},
		{ErrCodeCorpusInvalid, CategoryStorage, SeverityError, false},
		{ErrCodeIndexUnavailable, CategoryIndex, SeverityWarning, true},
		{ErrCodeMalformedMetadata, CategoryValidation, SeverityWarning, true},
		{ErrCodeInvalidInput, CategoryValidation, SeverityError, false},
		{ErrCodeInternal, CategoryInternal, SeverityError, false},
		{"bad", CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.absorbed, err.Absorbed)
		})
	}
}

func TestHelpers_OnForeignErrors(t *testing.T) {
	plain := errors.New("plain")

	assert.False(t, IsAbsorbed(plain))
	assert.Empty(t, GetCode(plain))
	assert.Empty(t, GetCategory(plain))
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestHelpers_SeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("retrieve: %w", IndexUnavailable("timeout", nil))

	assert.True(t, IsAbsorbed(err))
	assert.Equal(t, ErrCodeIndexUnavailable, GetCode(err))
	assert.Equal(t, CategoryIndex, GetCategory(err))
}

func TestWithDetailAndSuggestion(t *testing.T) {
	err := ConfigError("alpha out of range", nil).
		WithDetail("field", "retrieval.alpha").
		WithSuggestion("use a value between 0 and 1")

	assert.Equal(t, "retrieval.alpha", err.Details["field"])
	assert.Equal(t, "use a value between 0 and 1", err.Suggestion)
}

func TestFormatForCLI(t *testing.T) {
	err := ValidationError("max_blocks must be positive", nil).WithSuggestion("pass --max-blocks 5")

	out := FormatForCLI(err)

	assert.Contains(t, out, "Error: max_blocks must be positive")
	assert.Contains(t, out, "Hint: pass --max-blocks 5")
	assert.Contains(t, out, "Code: ERR_401_INVALID_INPUT")
	assert.Contains(t, FormatForCLI(errors.New("boom")), "ERR_501_INTERNAL")
	assert.Empty(t, FormatForCLI(nil))
}

func TestLogAttrs(t *testing.T) {
	err := IndexUnavailable("down", errors.New("dial tcp")).WithDetail("backend", "qdrant")

	attrs := LogAttrs(err)

	assert.Len(t, attrs, 6)
	assert.Len(t, LogAttrs(errors.New("x")), 1)
	assert.Nil(t, LogAttrs(nil))
}

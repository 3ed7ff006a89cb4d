package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/secretctl/internal/errors"
)

// TestUserErrorFormatting verifies UserError displays properly
func TestUserErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.UserError{
		Message:    "Operation failed",
		Details:    "Connection timeout",
		Suggestion: "Check network connectivity",
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, "Operation failed")
	assert.Contains(t, errMsg, "Connection timeout")
	assert.Contains(t, errMsg, "Check network connectivity")
	assert.Contains(t, errMsg, "💡")
}

// TestConfigErrorFormatting verifies ConfigError displays with context
func TestConfigErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.ConfigError{
		Field:      "stores.cluster.url",
		Value:      "invalid-url",
		Message:    "Invalid URL format",
		Suggestion: "Use format: http://hostname:port",
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, "stores.cluster.url")
	assert.Contains(t, errMsg, "invalid-url")
	assert.Contains(t, errMsg, "Invalid URL format")
	assert.Contains(t, errMsg, "http://hostname:port")
}

// TestAWSStoreSuggestions verifies AWS-specific error suggestions
func TestAWSStoreSuggestions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name               string
		errorMsg           string
		expectedSuggestion string
	}{
		{
			name:               "credentials",
			errorMsg:           "credentials not found",
			expectedSuggestion: "aws configure",
		},
		{
			name:               "access_denied",
			errorMsg:           "AccessDenied",
			expectedSuggestion: "IAM permissions",
		},
		{
			name:               "throttling",
			errorMsg:           "ThrottlingException",
			expectedSuggestion: "rate limit",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			baseErr := fmt.Errorf("%s", tt.errorMsg)
			storeErr := errors.StoreError("aws.secretsmanager", "create", baseErr)

			errMsg := storeErr.Error()
			assert.Contains(t, errMsg, tt.expectedSuggestion)
		})
	}
}

// TestClusterStoreSuggestions verifies cluster API error suggestions
func TestClusterStoreSuggestions(t *testing.T) {
	t.Parallel()

	baseErr := fmt.Errorf("request failed: 401 unauthorized")
	storeErr := errors.StoreError("cluster", "list", baseErr)

	errMsg := storeErr.Error()
	assert.Contains(t, errMsg, "cluster store error during list")
	assert.Contains(t, errMsg, "secretctl login")
}

// TestSQLStoreSuggestions verifies SQL store error suggestions
func TestSQLStoreSuggestions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name               string
		errorMsg           string
		expectedSuggestion string
	}{
		{
			name:               "auth_failed",
			errorMsg:           "pq: password authentication failed for user",
			expectedSuggestion: "DSN credentials",
		},
		{
			name:               "missing_table",
			errorMsg:           `relation "secrets" does not exist`,
			expectedSuggestion: "namespaces init",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			baseErr := fmt.Errorf("%s", tt.errorMsg)
			storeErr := errors.StoreError("sql", "create", baseErr)

			errMsg := storeErr.Error()
			assert.Contains(t, errMsg, tt.expectedSuggestion)
		})
	}
}

// TestGenericStoreSuggestions verifies network-level suggestions apply to any store
func TestGenericStoreSuggestions(t *testing.T) {
	t.Parallel()

	baseErr := fmt.Errorf("dial tcp: connection refused")
	storeErr := errors.StoreError("gcp.secretmanager", "validate", baseErr)

	errMsg := storeErr.Error()
	assert.Contains(t, errMsg, "Unable to connect")
}

// TestIsRetryable verifies retryable error detection
func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		errorMsg  string
		retryable bool
	}{
		{"timeout", "operation timeout", true},
		{"rate_limit", "rate limit exceeded", true},
		{"throttling", "ThrottlingException", true},
		{"connection_reset", "connection reset by peer", true},
		{"broken_pipe", "broken pipe", true},
		{"not_found", "resource not found", false},
		{"invalid_config", "invalid configuration", false},
		{"nil_error", "", false}, // nil error case
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var err error
			if tt.errorMsg != "" {
				err = fmt.Errorf("%s", tt.errorMsg)
			}

			result := errors.IsRetryable(err)
			assert.Equal(t, tt.retryable, result)
		})
	}
}

// TestSimplifyError verifies error simplification for common cases
func TestSimplifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		inputError    error
		expectedType  string
		expectedInMsg string
	}{
		{
			name:          "yaml_error",
			inputError:    fmt.Errorf("yaml: line 5: mapping values are not allowed"),
			expectedType:  "ConfigError",
			expectedInMsg: "Invalid YAML",
		},
		{
			name:          "json_error",
			inputError:    fmt.Errorf("json: invalid character"),
			expectedType:  "ConfigError",
			expectedInMsg: "Invalid JSON",
		},
		{
			name:          "permission_denied",
			inputError:    fmt.Errorf("permission denied"),
			expectedType:  "UserError",
			expectedInMsg: "Permission denied",
		},
		{
			name:          "file_not_found",
			inputError:    fmt.Errorf("no such file or directory"),
			expectedType:  "UserError",
			expectedInMsg: "not found",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			simplified := errors.SimplifyError(tt.inputError)

			errMsg := simplified.Error()
			assert.Contains(t, errMsg, tt.expectedInMsg)

			// Check error type
			switch tt.expectedType {
			case "ConfigError":
				_, ok := simplified.(errors.ConfigError)
				assert.True(t, ok, "Should be ConfigError type")
			case "UserError":
				_, ok := simplified.(errors.UserError)
				assert.True(t, ok, "Should be UserError type")
			}
		})
	}
}

// TestUserErrorUnwrap verifies error unwrapping works correctly
func TestUserErrorUnwrap(t *testing.T) {
	t.Parallel()

	baseErr := fmt.Errorf("base error")
	userErr := errors.UserError{
		Message: "wrapped error",
		Err:     baseErr,
	}

	unwrapped := userErr.Unwrap()
	assert.Equal(t, baseErr, unwrapped)
}

// TestNilErrorHandling verifies nil errors are handled gracefully
func TestNilErrorHandling(t *testing.T) {
	t.Parallel()

	// IsRetryable with nil
	assert.False(t, errors.IsRetryable(nil))

	// SimplifyError with nil
	assert.Nil(t, errors.SimplifyError(nil))
}

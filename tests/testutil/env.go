package testutil

import (
	"os"
	"testing"
)

// RequireEnv returns the named environment variable or skips the test when it
// is not set. Integration tests use it to gate on operator-supplied endpoints
// and credentials.
//
// Example usage:
//
//	host := testutil.RequireEnv(t, "SECRETCTL_TEST_PG_HOST")
func RequireEnv(t *testing.T, key string) string {
	t.Helper()

	value := os.Getenv(key)
	if value == "" {
		t.Skipf("skipping: %s is not set", key)
	}
	return value
}

// EnvOr returns the named environment variable or the fallback when unset.
func EnvOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// SetupTestEnv sets environment variables for the duration of a test. The
// original environment is restored through t.Cleanup, including variables
// that were previously unset.
func SetupTestEnv(t *testing.T, vars map[string]string) {
	t.Helper()

	original := make(map[string]string)
	unset := make([]string, 0)

	for key, value := range vars {
		if orig, ok := os.LookupEnv(key); ok {
			original[key] = orig
		} else {
			unset = append(unset, key)
		}

		if err := os.Setenv(key, value); err != nil {
			t.Fatalf("Failed to set environment variable %s: %v", key, err)
		}
	}

	t.Cleanup(func() {
		for key, value := range original {
			if err := os.Setenv(key, value); err != nil {
				t.Errorf("Failed to restore environment variable %s: %v", key, err)
			}
		}
		for _, key := range unset {
			if err := os.Unsetenv(key); err != nil {
				t.Errorf("Failed to unset environment variable %s: %v", key, err)
			}
		}
	})
}

package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestSecretRedaction(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "secret is redacted",
			input:    "my-secret-password",
			expected: "[REDACTED]",
		},
		{
			name:     "empty secret is still redacted",
			input:    "",
			expected: "[REDACTED]",
		},
		{
			name:     "complex secret is redacted",
			input:    "password123!@#",
			expected: "[REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Secret(tt.input).String()
			if result != tt.expected {
				t.Errorf("Secret(%q).String() = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLoggerSecretRedaction(t *testing.T) {
	// Test that secrets are properly redacted when logged
	secret := "super-secret-password"
	redactedValue := Secret(secret).String()

	if redactedValue != "[REDACTED]" {
		t.Errorf("Expected [REDACTED], got %s", redactedValue)
	}

	// Test GoString interface for %#v formatting
	goStringValue := Secret(secret).GoString()
	if goStringValue != "[REDACTED]" {
		t.Errorf("Expected [REDACTED] for GoString, got %s", goStringValue)
	}
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false, true)

	logger.Info("secret=%s created in group=%s", "my-secret", "db")
	logger.Warn("namespace=%s could not be found", "staging")
	logger.Error("store unreachable")

	out := buf.String()
	if !strings.Contains(out, "✓ secret=my-secret created in group=db\n") {
		t.Errorf("Info output missing, got %q", out)
	}
	if !strings.Contains(out, "⚠ namespace=staging could not be found\n") {
		t.Errorf("Warn output missing, got %q", out)
	}
	if !strings.Contains(out, "✗ store unreachable\n") {
		t.Errorf("Error output missing, got %q", out)
	}
}

func TestLoggerDebugMode(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false, true)

	logger.Debug("hidden message")
	if buf.Len() != 0 {
		t.Errorf("Debug output should be suppressed when debug=false, got %q", buf.String())
	}

	debugLogger := NewWithWriter(&buf, true, true)
	debugLogger.Debug("visible message")
	if !strings.Contains(buf.String(), "[DEBUG] visible message") {
		t.Errorf("Debug output missing when debug=true, got %q", buf.String())
	}
}

func TestLoggerColorCodes(t *testing.T) {
	var buf bytes.Buffer

	colored := NewWithWriter(&buf, false, false)
	colored.Info("hello")
	if !strings.Contains(buf.String(), "\033[32m") {
		t.Errorf("Expected ANSI green prefix, got %q", buf.String())
	}

	buf.Reset()
	plain := NewWithWriter(&buf, false, true)
	plain.Info("hello")
	if strings.Contains(buf.String(), "\033[") {
		t.Errorf("Expected no ANSI codes with noColor, got %q", buf.String())
	}
}

// TestRedactFunction tests the Redact utility function
func TestRedactFunction(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		secrets  []string
		expected string
	}{
		{
			name:     "single secret redacted",
			input:    "The password is secret123",
			secrets:  []string{"secret123"},
			expected: "The password is [REDACTED]",
		},
		{
			name:     "multiple secrets redacted",
			input:    "User admin with password secret123 and API key abc123",
			secrets:  []string{"admin", "secret123", "abc123"},
			expected: "User [REDACTED] with password [REDACTED] and API key [REDACTED]",
		},
		{
			name:     "no secrets to redact",
			input:    "This has no secrets",
			secrets:  []string{},
			expected: "This has no secrets",
		},
		{
			name:     "empty secret ignored",
			input:    "This has no secrets",
			secrets:  []string{""},
			expected: "This has no secrets",
		},
		{
			name:     "short secret ignored",
			input:    "Short secret: ab",
			secrets:  []string{"ab"},
			expected: "Short secret: ab", // Too short to redact
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Redact(tt.input, tt.secrets)
			if result != tt.expected {
				t.Errorf("Redact() = %q, want %q", result, tt.expected)
			}
		})
	}
}

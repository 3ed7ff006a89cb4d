// Package validation checks the resource names commands accept before any
// store traffic happens.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/systmms/secretctl/internal/errors"
)

// MaxNameLength caps namespace, group, and secret names. It is the DNS label
// limit, the tightest bound among the configured backends.
const MaxNameLength = 63

var namePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// ResourceName checks a namespace or secret name: lowercase letters, digits
// and hyphens, starting and ending with a letter or digit, at most
// MaxNameLength characters. The kind names the flag or argument in error
// messages.
func ResourceName(kind, value string) error {
	if value == "" {
		return errors.UserError{
			Message:    fmt.Sprintf("%s must not be empty", kind),
			Suggestion: fmt.Sprintf("Pass a %s such as 'dev'", kind),
		}
	}
	if len(value) > MaxNameLength {
		return errors.UserError{
			Message:    fmt.Sprintf("%s '%s' is too long (%d characters)", kind, value, len(value)),
			Suggestion: fmt.Sprintf("Use at most %d characters", MaxNameLength),
		}
	}
	if !namePattern.MatchString(value) {
		return errors.UserError{
			Message:    fmt.Sprintf("%s '%s' contains invalid characters", kind, value),
			Suggestion: "Use lowercase letters, digits and hyphens, starting and ending with a letter or digit",
		}
	}
	return nil
}

// GroupName checks a group label. Groups follow the ResourceName rule and
// additionally reject hyphens: the store-level secret name is composed as
// group-name, so a hyphen inside the group would make the composition
// ambiguous on the read path.
func GroupName(value string) error {
	if err := ResourceName("group", value); err != nil {
		return err
	}
	if strings.Contains(value, "-") {
		return errors.UserError{
			Message:    fmt.Sprintf("group '%s' must not contain hyphens", value),
			Suggestion: "The hyphen separates the group from the secret name; use a group like 'ssl' or 'db'",
		}
	}
	return nil
}

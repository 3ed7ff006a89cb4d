// Package kv parses the KEY=VALUE strings that carry secret payloads on the
// command line and in mapping files.
package kv

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	dserrors "github.com/systmms/secretctl/internal/errors"
)

// MalformedPairError reports a raw key-value string that does not satisfy the
// KEY=VALUE form. It signals a usage defect and is never swallowed: it
// propagates to the command boundary unchanged.
type MalformedPairError struct {
	Raw    string
	Reason string
}

func (e MalformedPairError) Error() string {
	return fmt.Sprintf("secret key-value pair %q not in KEY=VALUE format: %s", e.Raw, e.Reason)
}

// ParsePair splits a raw KEY=VALUE string at the first '='. The value may
// itself contain '='; only the first occurrence separates. Empty keys and
// empty values are rejected.
func ParsePair(raw string) (string, string, error) {
	sep := strings.Index(raw, "=")
	if sep == -1 {
		return "", "", MalformedPairError{Raw: raw, Reason: "missing '=' separator"}
	}
	key := raw[:sep]
	if len(key) == 0 {
		return "", "", MalformedPairError{Raw: raw, Reason: "empty key"}
	}
	value := raw[sep+1:]
	if len(value) == 0 {
		return "", "", MalformedPairError{Raw: raw, Reason: "empty value"}
	}
	return key, value, nil
}

// ParseMapping parses raw KEY=VALUE strings into a mapping. Parsing stops at
// the first malformed pair and its error is returned as-is. A key repeated
// later in the input overwrites the earlier value.
func ParseMapping(raws []string) (map[string]string, error) {
	pairs := make(map[string]string, len(raws))
	for _, raw := range raws {
		key, value, err := ParsePair(raw)
		if err != nil {
			return nil, err
		}
		pairs[key] = value
	}
	return pairs, nil
}

// LoadMappingFile reads a flat string-to-string mapping from a YAML or JSON
// document. Nested structures and non-string values are rejected: payloads
// are opaque strings everywhere in secretctl, so conversions would hide
// mistakes instead of fixing them.
func LoadMappingFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, dserrors.UserError{
			Message:    fmt.Sprintf("Cannot read secret data file '%s'", path),
			Suggestion: "Verify the path exists and is readable",
			Err:        err,
		}
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, dserrors.UserError{
			Message:    fmt.Sprintf("Cannot parse secret data file '%s'", path),
			Suggestion: "The file must be a flat YAML or JSON mapping of string keys to string values",
			Err:        err,
		}
	}

	pairs := make(map[string]string, len(doc))
	for key, value := range doc {
		str, ok := value.(string)
		if !ok {
			return nil, dserrors.UserError{
				Message:    fmt.Sprintf("Value for key '%s' in '%s' is not a string", key, path),
				Suggestion: "Quote every value in the mapping file so it parses as a string",
			}
		}
		if len(key) == 0 {
			return nil, MalformedPairError{Raw: "=" + str, Reason: "empty key"}
		}
		if len(str) == 0 {
			return nil, MalformedPairError{Raw: key + "=", Reason: "empty value"}
		}
		pairs[key] = str
	}
	return pairs, nil
}

// Merge combines mappings left to right, later mappings overwriting earlier
// keys. Used to layer positional KEY=VALUE args over a --from-file mapping.
func Merge(mappings ...map[string]string) map[string]string {
	merged := make(map[string]string)
	for _, m := range mappings {
		for key, value := range m {
			merged[key] = value
		}
	}
	return merged
}

// SortedKeys returns the mapping's keys in lexical order for deterministic
// rendering.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

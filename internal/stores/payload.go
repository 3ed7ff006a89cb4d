package stores

import (
	"encoding/json"
	"fmt"
)

// encodeSecretData marshals a key-value payload into the JSON document the
// remote backends store as the secret value.
func encodeSecretData(data map[string]string) (string, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode secret data: %w", err)
	}
	return string(encoded), nil
}

// decodeSecretData parses a stored payload back into key-value form. Objects
// written by other tools may hold arbitrary text; anything that is not a
// flat JSON object surfaces as a single "value" entry instead of an error.
func decodeSecretData(payload string) map[string]string {
	var data map[string]string
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return map[string]string{"value": payload}
	}
	if data == nil {
		return map[string]string{}
	}
	return data
}

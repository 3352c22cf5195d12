package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ledgerpal/ledgerpal/internal/common"
)

// jsonEnvelope returns the substring of raw between the first '{' and the
// last '}', inclusive. Models wrap JSON in prose and markdown fences often
// enough that scanning for the envelope is more robust than trimming fences.
func jsonEnvelope(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("%w: no {...} envelope in response", common.ErrExtractionParse)
	}
	return raw[start : end+1], nil
}

// decodeEnvelope scans raw for a JSON object and unmarshals it into a map.
func decodeEnvelope(raw string) (map[string]any, error) {
	envelope, err := jsonEnvelope(raw)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(envelope), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrExtractionParse, err)
	}
	return out, nil
}

// asInt coerces a decoded JSON value to an int. JSON numbers arrive as
// float64; models occasionally quote them.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		var i int
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%d", &i); err == nil {
			return i, true
		}
	}
	return 0, false
}

// asFloat coerces a decoded JSON value to a float64.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%f", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

// asString coerces a decoded JSON value to a string.
func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}
